package pdfengine

import (
	"context"
	"errors"
)

// ErrUnparseable is returned when source bytes are not a readable PDF.
// A failing source aborts the whole batch operation it is part of.
var ErrUnparseable = errors.New("unparseable pdf")

// Engine is the byte-level PDF collaborator. Implementations are
// file-format-aware; the workspace core never inspects PDF bytes itself.
type Engine interface {
	// PageCount returns the number of pages in data, or 0 when the bytes
	// are not a parseable document. It never fails through this boundary.
	PageCount(ctx context.Context, data []byte) int

	// ExtractPages builds a new document from the given 0-based page
	// indices of data, preserving their order. Repeats are permitted.
	ExtractPages(ctx context.Context, data []byte, pages []int) ([]byte, error)

	// Merge concatenates all pages of the sources in the given order into
	// one new document. A single source is a degenerate pass-through; an
	// empty source list is an error.
	Merge(ctx context.Context, sources [][]byte) ([]byte, error)
}
