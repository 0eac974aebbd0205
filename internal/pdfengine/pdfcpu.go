package pdfengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
)

// PDFCPU implements Engine on top of pdfcpu. pdfcpu's API is file based, so
// every call round-trips through temp files; they are removed before the
// call returns.
type PDFCPU struct{}

// NewPDFCPU returns a pdfcpu-backed engine.
func NewPDFCPU() *PDFCPU { return &PDFCPU{} }

func (e *PDFCPU) PageCount(ctx context.Context, data []byte) int {
	in, cleanup, err := writeTemp(data)
	if err != nil {
		log.Warn().Err(err).Msg("page count: temp write failed")
		return 0
	}
	defer cleanup()
	n, err := api.PageCountFile(in)
	if err != nil {
		log.Warn().Err(err).Msg("page count failed; treating document as degraded")
		return 0
	}
	return n
}

func (e *PDFCPU) ExtractPages(ctx context.Context, data []byte, pages []int) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("extract: no pages selected")
	}
	in, cleanup, err := writeTemp(data)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	// pdfcpu collect takes 1-based page numbers and preserves their order.
	sel := make([]string, len(pages))
	for i, p := range pages {
		sel[i] = strconv.Itoa(p + 1)
	}
	out := in + ".out.pdf"
	defer os.Remove(out)
	if err := api.CollectFile(in, out, sel, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return os.ReadFile(out)
}

func (e *PDFCPU) Merge(ctx context.Context, sources [][]byte) ([]byte, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("merge: no sources")
	}
	dir, err := os.MkdirTemp("", "pdfmerge-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	ins := make([]string, len(sources))
	for i, src := range sources {
		p := filepath.Join(dir, fmt.Sprintf("src-%03d.pdf", i))
		if err := os.WriteFile(p, src, 0o644); err != nil {
			return nil, err
		}
		ins[i] = p
	}
	out := filepath.Join(dir, "merged.pdf")
	if err := api.MergeCreateFile(ins, out, false, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return os.ReadFile(out)
}

// writeTemp persists data to a temp .pdf file, as pdfcpu expects the
// extension, and returns the path with a cleanup func.
func writeTemp(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "pdfwb-*.pdf")
	if err != nil {
		return "", nil, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
