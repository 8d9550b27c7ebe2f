package api

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/doclib/internal/document"
	"github.com/starford/doclib/internal/library"
	"github.com/starford/doclib/internal/view"
)

// DocumentListResponse is one page of the listing.
type DocumentListResponse = view.Result

// RefreshResponse reports the outcome of a refresh.
type RefreshResponse = library.RefreshResult

// TreeNodeRequest names a directory for expand and collapse.
type TreeNodeRequest struct {
	Path string `json:"path" example:"/legal/2024"`
}

// Validate checks the request shape.
func (r TreeNodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required, validation.By(absolutePath)),
	)
}

func absolutePath(v any) error {
	s, _ := v.(string)
	if !strings.HasPrefix(s, "/") {
		return validation.NewError("validation_path_absolute", "must start with /")
	}
	return nil
}

// TreeNodeResponse reports a directory's expanded flag.
type TreeNodeResponse struct {
	Path     string `json:"path"`
	Expanded bool   `json:"expanded"`
}

// UploadResponse is returned after an upload is forwarded.
type UploadResponse struct {
	Filename string             `json:"filename" example:"contract.pdf"`
	Found    bool               `json:"found"`
	Document *document.Document `json:"document,omitempty"`
}

// StatusResponse describes the library's last refresh.
type StatusResponse struct {
	Documents   int       `json:"documents"`
	Generation  uint64    `json:"generation"`
	Notice      string    `json:"notice,omitempty"`
	LastRefresh time.Time `json:"last_refresh"`
}
