package pdfengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Memory is an Engine over a synthetic in-memory document format, used by
// tests and dry runs where real PDF bytes would only get in the way. A
// document is a JSON array of page labels behind a short magic prefix.
type Memory struct {
	// FailExtract and FailMerge, when set, make the corresponding
	// operation fail. Used to exercise batch-abort paths.
	FailExtract error
	FailMerge   error
}

var memMagic = []byte("%MEMDOC")

// MakeDoc builds a synthetic document whose pages carry the given labels.
func MakeDoc(pages ...string) []byte {
	b, _ := json.Marshal(pages)
	return append(append([]byte(nil), memMagic...), b...)
}

// Pages decodes the page labels of a synthetic document.
func Pages(data []byte) ([]string, bool) {
	if !bytes.HasPrefix(data, memMagic) {
		return nil, false
	}
	var pages []string
	if err := json.Unmarshal(data[len(memMagic):], &pages); err != nil {
		return nil, false
	}
	return pages, true
}

func (m *Memory) PageCount(ctx context.Context, data []byte) int {
	pages, ok := Pages(data)
	if !ok {
		return 0
	}
	return len(pages)
}

func (m *Memory) ExtractPages(ctx context.Context, data []byte, pages []int) ([]byte, error) {
	if m.FailExtract != nil {
		return nil, m.FailExtract
	}
	src, ok := Pages(data)
	if !ok {
		return nil, ErrUnparseable
	}
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		if p < 0 || p >= len(src) {
			return nil, fmt.Errorf("page index %d out of range", p)
		}
		out = append(out, src[p])
	}
	return MakeDoc(out...), nil
}

func (m *Memory) Merge(ctx context.Context, sources [][]byte) ([]byte, error) {
	if m.FailMerge != nil {
		return nil, m.FailMerge
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("merge: no sources")
	}
	var out []string
	for _, s := range sources {
		pages, ok := Pages(s)
		if !ok {
			return nil, ErrUnparseable
		}
		out = append(out, pages...)
	}
	return MakeDoc(out...), nil
}
