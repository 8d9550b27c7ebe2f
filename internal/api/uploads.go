package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

const (
	// multipartSlack covers the form framing around the file part.
	multipartSlack = 1 << 20
	maxFormMemory  = 32 << 20
)

// Upload handles POST /api/uploads (multipart/form-data, field "file",
// optional field "dir"). The file is forwarded to the remote store, the
// library refreshed, and the uploaded document selected when it appears.
//
//	@Summary		Upload a document
//	@Tags			uploads
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Document"
//	@Param			dir		formData	string	false	"Target directory"
//	@Success		200		{object}	UploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		413		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/uploads [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.svc.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)

	if err := r.ParseMultipartForm(min(limit, maxFormMemory)); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody(tooLarge(limit)))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()
	if header.Size > limit {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody(tooLarge(limit)))
		return
	}

	name := path.Base(strings.ReplaceAll(header.Filename, `\`, "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid filename"))
		return
	}

	doc, found, err := h.svc.Upload(r.Context(), name, r.FormValue("dir"), file)
	if err != nil {
		slog.Warn("api: upload forward failed", slog.String("filename", name), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	resp := UploadResponse{Filename: name, Found: found}
	if found {
		resp.Document = &doc
	}
	writeJSON(w, http.StatusOK, resp)
}

func tooLarge(limit int64) string {
	return fmt.Sprintf("file too large (max %d bytes)", limit)
}
