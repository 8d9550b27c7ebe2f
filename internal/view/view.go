// Package view implements the searchable, sortable, paginated listing over
// a document snapshot.
package view

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/doclib/internal/document"
)

// DefaultPageSize is used when a query carries no positive page size.
const DefaultPageSize = 8

// Order is the title sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder accepts "asc", "desc" or "" (asc).
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Asc):
		return Asc, nil
	case string(Desc):
		return Desc, nil
	}
	return "", fmt.Errorf("view: unknown sort order %q", s)
}

// Toggle returns the opposite order.
func (o Order) Toggle() Order {
	if o == Desc {
		return Asc
	}
	return Desc
}

// Query selects a page of the listing.
type Query struct {
	Text     string
	Order    Order
	Page     int
	PageSize int
}

// Result is one rendered page.
type Result struct {
	Items    []document.Document `json:"items"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	Pages    int                 `json:"pages"`
	PageSize int                 `json:"page_size"`
	Order    Order               `json:"order"`
	Query    string              `json:"query"`
	Window   []int               `json:"window"`
}

// Apply filters, sorts and paginates docs. docs is not modified.
func Apply(docs []document.Document, q Query) Result {
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	order := q.Order
	if order != Desc {
		order = Asc
	}

	matched := Sort(Filter(docs, q.Text), order)
	pages := PageCount(len(matched), size)
	page := Clamp(q.Page, pages)

	lo := min((page-1)*size, len(matched))
	hi := min(page*size, len(matched))

	return Result{
		Items:    matched[lo:hi],
		Total:    len(matched),
		Page:     page,
		Pages:    pages,
		PageSize: size,
		Order:    order,
		Query:    q.Text,
		Window:   Window(page, pages),
	}
}

// Filter keeps documents whose title or description contains text,
// case-insensitively. Empty text keeps everything.
func Filter(docs []document.Document, text string) []document.Document {
	out := make([]document.Document, 0, len(docs))
	if text == "" {
		return append(out, docs...)
	}
	needle := strings.ToLower(text)
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.Title), needle) ||
			strings.Contains(strings.ToLower(d.Description), needle) {
			out = append(out, d)
		}
	}
	return out
}

// Sort orders docs by title using English collation. The sort is stable, and
// the descending sequence is the exact reverse of the ascending one. docs is
// sorted in place and returned.
func Sort(docs []document.Document, order Order) []document.Document {
	c := collate.New(language.English)
	slices.SortStableFunc(docs, func(a, b document.Document) int {
		return c.CompareString(a.Title, b.Title)
	})
	if order == Desc {
		slices.Reverse(docs)
	}
	return docs
}

// PageCount is max(1, ceil(n/size)).
func PageCount(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	return max(1, (n+size-1)/size)
}

// Clamp bounds a 1-indexed page to [1, pages].
func Clamp(page, pages int) int {
	return max(1, min(page, max(1, pages)))
}
