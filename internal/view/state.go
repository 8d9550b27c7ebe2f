package view

import (
	"sync"

	"github.com/starford/doclib/internal/document"
)

// State is one session's view settings: query, order, page and selection.
// It is safe for concurrent use.
type State struct {
	mu       sync.Mutex
	text     string
	order    Order
	page     int
	size     int
	selected document.ID
	hasSel   bool
}

// NewState returns a state on page 1, ascending, with the given page size.
func NewState(pageSize int) *State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &State{order: Asc, page: 1, size: pageSize}
}

// Query returns the current query.
func (s *State) Query() Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Query{Text: s.text, Order: s.order, Page: s.page, PageSize: s.size}
}

// SetQuery replaces the search text and resets to page 1.
func (s *State) SetQuery(text string) {
	s.mu.Lock()
	s.text, s.page = text, 1
	s.mu.Unlock()
}

// SetOrder sets the sort order and resets to page 1.
func (s *State) SetOrder(o Order) {
	s.mu.Lock()
	s.order, s.page = o, 1
	s.mu.Unlock()
}

// ToggleOrder flips the sort order and resets to page 1.
func (s *State) ToggleOrder() Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order, s.page = s.order.Toggle(), 1
	return s.order
}

// SetPage moves to page p, clamped against the filtered docs.
func (s *State) SetPage(p int, docs []document.Document) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(Filter(docs, s.text))
	s.page = Clamp(p, PageCount(n, s.size))
	return s.page
}

// Select records the selected document.
func (s *State) Select(id document.ID) {
	s.mu.Lock()
	s.selected, s.hasSel = id, true
	s.mu.Unlock()
}

// Selected returns the selected document id, if any.
func (s *State) Selected() (document.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.hasSel
}

// Apply renders the current page of docs and stores the clamped page back.
func (s *State) Apply(docs []document.Document) Result {
	q := s.Query()
	res := Apply(docs, q)
	s.mu.Lock()
	if s.text == q.Text && s.order == q.Order {
		s.page = res.Page
	}
	s.mu.Unlock()
	return res
}
