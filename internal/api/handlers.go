package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/doclib/internal/document"
	"github.com/starford/doclib/internal/library"
	"github.com/starford/doclib/internal/view"
)

// Handler holds API route handlers.
type Handler struct {
	svc *library.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *library.Service) *Handler {
	return &Handler{svc: svc}
}

func documentID(r *http.Request) (document.ID, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return document.ID(n), true
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		Search, sort and page the library
//	@Tags			documents
//	@Produce		json
//	@Param			q			query		string	false	"Title or description substring"
//	@Param			sort		query		string	false	"Title order"	Enums(asc, desc)
//	@Param			page		query		int		false	"1-indexed page, clamped"
//	@Param			page_size	query		int		false	"Items per page"
//	@Success		200			{object}	DocumentListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order, err := view.ParseOrder(q.Get("sort"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	page, err := intParam(r, "page")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("page must be an integer"))
		return
	}
	size, err := intParam(r, "page_size")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("page_size must be an integer"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Documents(view.Query{
		Text:     q.Get("q"),
		Order:    order,
		Page:     page,
		PageSize: size,
	}))
}

// GetDocument handles GET /api/documents/{id}.
//
//	@Summary		Get one document
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		int	true	"Document id"
//	@Success		200	{object}	document.Document
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	d, err := h.svc.Document(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Preview handles POST /api/documents/{id}/preview. A failed load is a
// normal 200 response carrying the error state.
//
//	@Summary		Select a document and load its preview
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		int	true	"Document id"
//	@Success		200	{object}	document.Document
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/preview [post]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	d, err := h.svc.Select(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Tree handles GET /api/tree.
//
//	@Summary		Nested directory tree
//	@Tags			tree
//	@Produce		json
//	@Param			path	query		string	false	"Subtree root"	default(/)
//	@Success		200		{object}	tree.NestedNode
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tree [get]
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.NestedTree(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Expand handles POST /api/tree/expand.
func (h *Handler) Expand(w http.ResponseWriter, r *http.Request) {
	h.setExpanded(w, r, true)
}

// Collapse handles POST /api/tree/collapse.
func (h *Handler) Collapse(w http.ResponseWriter, r *http.Request) {
	h.setExpanded(w, r, false)
}

func (h *Handler) setExpanded(w http.ResponseWriter, r *http.Request, on bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req TreeNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.SetExpanded(req.Path, on); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TreeNodeResponse{Path: req.Path, Expanded: on})
}

// Kinds handles GET /api/kinds.
func (h *Handler) Kinds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"kinds": h.svc.Kinds()})
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	st := h.svc.Store()
	writeJSON(w, http.StatusOK, StatusResponse{
		Documents:   st.Len(),
		Generation:  st.Generation(),
		Notice:      h.svc.LastError(),
		LastRefresh: h.svc.LastRefresh(),
	})
}

// Refresh handles POST /api/refresh. An unreachable store is reported in
// the notice field, not as an HTTP error.
//
//	@Summary		Reload the library from the remote store
//	@Tags			library
//	@Produce		json
//	@Success		200	{object}	RefreshResponse
//	@Security		BearerAuth
//	@Router			/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Refresh(r.Context()))
}
