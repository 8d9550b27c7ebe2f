package mcpserver

// LibraryGuide describes how the library tools behave. It is served as the
// doclib://guide resource.
const LibraryGuide = `# Document Library Guide

The library mirrors a remote document store. Documents are identified by
integer ids and grouped into directories derived from their store paths.

## Browsing

- ` + "`search_documents`" + ` filters by a case-insensitive substring of the title or
  description, sorts by title (` + "`asc`" + ` or ` + "`desc`" + `) and returns one page. The
  query, order and page persist for the session; changing the query or
  order returns to page 1. Pages beyond the end are clamped.
- ` + "`list_directory`" + ` returns one directory with its documents and
  subdirectories. The root is ` + "`/`" + `.

## Previews

- ` + "`preview_document`" + ` loads a preview the first time and returns the cached
  result afterwards. The ` + "`preview_state`" + ` field is one of ` + "`not_loaded`" + `,
  ` + "`loading`" + `, ` + "`loaded`" + ` or ` + "`error`" + `.
- MD previews are HTML, DOCX and TXT previews are plain text. PDF and
  unknown types get a placeholder and are never downloaded.
- A failed preview is a normal result with ` + "`preview_state`" + ` set to ` + "`error`" + `
  and ` + "`error_message`" + ` describing the cause.

## Refresh and uploads

- ` + "`refresh_library`" + ` reloads the whole set. All cached previews are
  discarded. When the store is unreachable the library is empty and the
  result carries a ` + "`notice`" + `.
- ` + "`upload_document`" + ` sends a PDF, DOCX, MD or TXT file to the store, refreshes
  and previews it.
`
