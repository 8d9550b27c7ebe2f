// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the document library for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/doclib/internal/apperr"
	"github.com/starford/doclib/internal/document"
	"github.com/starford/doclib/internal/library"
	"github.com/starford/doclib/internal/view"
)

const (
	kindsURI = "doclib://kinds"
	guideURI = "doclib://guide"
)

// Server wraps the MCP server with library tools. One Server is one
// session: search, order, page and selection persist between calls.
type Server struct {
	mcp   *server.MCPServer
	svc   *library.Service
	state *view.State
}

// New creates a new MCP server with all library tools registered.
func New(svc *library.Service, version string) *Server {
	s := &Server{svc: svc, state: view.NewState(svc.PageSize())}

	s.mcp = server.NewMCPServer(
		"doclib",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Search, sort and page the document library. "+
			"Omitted arguments keep the session's current query, order and page."),
		mcp.WithString("query", mcp.Description("Title or description substring; empty string clears the filter")),
		mcp.WithString("sort", mcp.Description("Title order"), mcp.Enum("asc", "desc")),
		mcp.WithNumber("page", mcp.Description("1-indexed page number")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("list_directory",
		mcp.WithDescription("List the documents and subdirectories of one directory."),
		mcp.WithString("path", mcp.Description("Directory path such as /legal/2024 (default /)")),
	), s.listDirectory)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Get a document's metadata and current preview state."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Document id")),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("preview_document",
		mcp.WithDescription("Select a document and return its preview, loading it on first use."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Document id")),
	), s.previewDocument)

	s.mcp.AddTool(mcp.NewTool("refresh_library",
		mcp.WithDescription("Reload the document set from the remote store. Cached previews are discarded."),
	), s.refreshLibrary)

	s.mcp.AddTool(mcp.NewTool("upload_document",
		mcp.WithDescription("Upload a PDF, DOCX, MD or TXT document from an http(s) URL or a base64 data URI, "+
			"then refresh and preview it."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data> URI")),
		mcp.WithString("filename", mcp.Description("Target filename; derived from the URL when omitted")),
		mcp.WithString("dir", mcp.Description("Target directory in the store")),
	), s.uploadDocument)

	s.mcp.AddResource(
		mcp.NewResource(kindsURI, "Document Kinds",
			mcp.WithResourceDescription("Preview support for each document kind."),
			mcp.WithMIMEType("application/json"),
		),
		s.readKindsResource,
	)
	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Library Guide",
			mcp.WithResourceDescription("How searching, previews and refreshes behave."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("request failed: %v", err))
}

func (s *Server) searchDocuments(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if _, ok := args["query"]; ok {
		s.state.SetQuery(req.GetString("query", ""))
	}
	if raw := req.GetString("sort", ""); raw != "" {
		order, err := view.ParseOrder(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if order != s.state.Query().Order {
			s.state.SetOrder(order)
		}
	}
	docs := s.svc.Store().Snapshot()
	if _, ok := args["page"]; ok {
		s.state.SetPage(req.GetInt("page", 1), docs)
	}
	return jsonResult(s.state.Apply(docs))
}

func (s *Server) listDirectory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.svc.NestedTree(req.GetString("path", ""))
	if err != nil {
		return errorResult(err), nil
	}
	// One level only: subdirectories are listed without their contents.
	for i := range n.Children {
		n.Children[i].Documents = n.Children[i].Documents[:0]
		n.Children[i].Children = n.Children[i].Children[:0]
	}
	return jsonResult(n)
}

func (s *Server) getDocument(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Document(document.ID(id))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(d)
}

func (s *Server) previewDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Select(ctx, document.ID(id))
	if err != nil {
		return errorResult(err), nil
	}
	s.state.Select(d.ID)
	return jsonResult(d)
}

func (s *Server) refreshLibrary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := s.svc.Refresh(ctx)
	s.state.SetPage(s.state.Query().Page, s.svc.Store().Snapshot())
	return jsonResult(res)
}

func (s *Server) readKindsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(s.svc.Kinds(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      kindsURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readGuideResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     LibraryGuide,
		},
	}, nil
}
