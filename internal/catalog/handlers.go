package catalog

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/doclib/internal/apperr"
)

const maxUploadBytes = 64 << 20

// Handler holds the store's route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListDocuments handles GET /api/documents. The response is a bare JSON
// array of records.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		slog.Error("catalog: list failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// GetDocument handles GET /api/documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("catalog: get failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// fileKey extracts the storage key from /files/*, rejecting traversal.
func fileKey(r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "*")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", false
	}
	decoded = strings.ReplaceAll(decoded, `\`, "/")
	for _, seg := range strings.Split(decoded, "/") {
		if seg == ".." {
			return "", false
		}
	}
	key := strings.Trim(path.Clean("/"+decoded), "/")
	return key, key != ""
}

// ServeFile handles GET /files/*.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	key, ok := fileKey(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		return
	}
	data, err := h.svc.Read(r.Context(), key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("catalog: read failed", slog.String("path", key), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	ctype := mime.TypeByExtension(path.Ext(key))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Upload handles POST /api/uploads (multipart/form-data, field "file",
// optional field "dir").
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	uploadID := uuid.NewString()
	doc, created, err := h.svc.Upload(r.Context(), r.FormValue("dir"), header.Filename, content)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedType):
			writeJSON(w, http.StatusUnsupportedMediaType, errorBody(ErrUnsupportedType.Error()))
			return
		case errors.Is(err, ErrInvalidName):
			writeJSON(w, http.StatusBadRequest, errorBody(ErrInvalidName.Error()))
			return
		}
		slog.Error("catalog: upload failed",
			slog.String("upload_id", uploadID),
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	slog.Info("catalog: uploaded",
		slog.String("upload_id", uploadID),
		slog.String("path", doc.Path),
		slog.Int64("size", doc.Size))

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, doc)
}
