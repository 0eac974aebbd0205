package render

// DefaultBuffer is the number of pages materialized on each side of the
// viewport when no tighter bound applies.
const DefaultBuffer = 250

// Span is a 1-based inclusive page range used as a hard clip on rendering.
// A nil *Span means the whole document is in play.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Window is the set of pages the preview must actually render right now.
// Pages outside it keep their layout slot but get placeholder content, so
// scrollbar geometry stays correct on very large documents.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether page p falls inside the window.
func (w Window) Contains(p int) bool { return p >= w.Start && p <= w.End }

// PlanWindow computes the render window around the given page. Without an
// active span the window is the buffer neighborhood clamped to the document.
// With an active span the span is a hard clip: pages outside it are never
// rendered, however close to the viewport; the buffer only narrows further
// within it.
func PlanWindow(page, totalPages int, active *Span, buffer int) Window {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	lo, hi := 1, totalPages
	if active != nil {
		lo, hi = active.Start, active.End
	}
	start := page - buffer
	if start < lo {
		start = lo
	}
	end := page + buffer
	if end > hi {
		end = hi
	}
	return Window{Start: start, End: end}
}

// ClampTarget returns the page navigation should jump to when the current
// page has drifted outside the active span: the span start when below it,
// the span end when above it. ok is false when no jump is needed, so user
// scrolling inside a valid span is never fought.
func ClampTarget(current int, active *Span) (int, bool) {
	if active == nil {
		return 0, false
	}
	if current < active.Start {
		return active.Start, true
	}
	if current > active.End {
		return active.End, true
	}
	return 0, false
}
