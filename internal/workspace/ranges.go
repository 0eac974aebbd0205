package workspace

import (
	"fmt"
	"strconv"
	"strings"
)

// PageRange is a contiguous 1-based inclusive span of pages within one
// document. Bounds are kept as raw strings so mid-edit input (empty fields,
// stray characters) stays representable; validity is checked on use.
// Range ids are unique only within their owning document's set.
type PageRange struct {
	ID    string `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Bounds parses the range bounds. ok is false when either bound is not an
// integer.
func (r PageRange) Bounds() (start, end int, ok bool) {
	start, err1 := strconv.Atoi(strings.TrimSpace(r.Start))
	end, err2 := strconv.Atoi(strings.TrimSpace(r.End))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return start, end, true
}

// Valid reports whether the range is usable against a document with
// totalPages pages: both bounds parse, 1 <= start <= end <= totalPages.
func (r PageRange) Valid(totalPages int) bool {
	s, e, ok := r.Bounds()
	return ok && s >= 1 && e <= totalPages && s <= e
}

// DescribeError returns the first applicable validation message for the
// range, or "" when valid. Exactly one message is surfaced at a time:
// non-numeric input wins over out-of-bounds, which wins over inverted
// bounds.
func DescribeError(r PageRange, totalPages int) string {
	s, e, ok := r.Bounds()
	switch {
	case !ok:
		return "page bounds must be numbers"
	case s < 1 || e > totalPages:
		return fmt.Sprintf("pages must be between 1 and %d", totalPages)
	case s > e:
		return "start page is after end page"
	}
	return ""
}
