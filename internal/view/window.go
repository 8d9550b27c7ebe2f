package view

// Ellipsis marks a gap in a page-number strip.
const Ellipsis = 0

const windowWidth = 5

// Window returns the page-number strip for the current page. Up to five
// pages are shown outright. Beyond that the first page is pinned, followed by
// an Ellipsis and a three-page run that never passes total.
func Window(current, total int) []int {
	if total <= windowWidth {
		out := make([]int, 0, total)
		for p := 1; p <= total; p++ {
			out = append(out, p)
		}
		return out
	}
	if current <= 3 {
		return []int{1, 2, 3, 4, 5}
	}
	s := min(current, total-2)
	return []int{1, Ellipsis, s, s + 1, s + 2}
}
