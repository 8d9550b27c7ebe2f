// Package models defines the types shared by the store's storage and
// catalog layers.
package models

import "time"

// ObjectInfo describes one stored document file.
type ObjectInfo struct {
	Path      string    `json:"path"` // slash-separated, relative to the storage root
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is one catalog entry as served by the store's list endpoint.
type Document struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}
