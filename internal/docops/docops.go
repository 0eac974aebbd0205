package docops

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfworkbench/internal/pdfengine"
	"github.com/local/pdfworkbench/internal/workspace"
)

// Ops realizes extract and merge requests against the PDF engine. It holds
// no state of its own; results are handed back to the workspace by the
// caller.
type Ops struct {
	engine pdfengine.Engine
}

// New returns document operations backed by the given engine.
func New(engine pdfengine.Engine) *Ops {
	return &Ops{engine: engine}
}

// ExtractRanges produces one new document per valid range of doc. Invalid
// ranges are skipped silently; an all-invalid or empty input yields an empty
// list, not an error. An engine failure aborts the whole batch: no partial
// document set is returned.
func (o *Ops) ExtractRanges(ctx context.Context, doc workspace.Document, ranges []workspace.PageRange) ([]workspace.Document, error) {
	out := make([]workspace.Document, 0, len(ranges))
	for _, r := range ranges {
		if !r.Valid(doc.PageCount) {
			log.Debug().Str("doc_id", doc.ID).Str("range_id", r.ID).Msg("skipping invalid range")
			continue
		}
		start, end, _ := r.Bounds()
		pages := make([]int, 0, end-start+1)
		for p := start; p <= end; p++ {
			pages = append(pages, p-1)
		}
		data, err := o.engine.ExtractPages(ctx, doc.Bytes, pages)
		if err != nil {
			return nil, fmt.Errorf("extract pages %d-%d of %s: %w", start, end, doc.Name, err)
		}
		out = append(out, workspace.Document{
			ID:        uuid.NewString(),
			Name:      fmt.Sprintf("%s_pages_%d-%d.pdf", basename(doc.Name), start, end),
			Size:      int64(len(data)),
			PageCount: o.engine.PageCount(ctx, data),
			Bytes:     data,
		})
	}
	log.Info().Str("doc_id", doc.ID).Int("ranges", len(ranges)).Int("produced", len(out)).Msg("extract completed")
	return out, nil
}

// MergeAll concatenates all pages of the given documents, in document order
// with intra-document page order preserved, into one new document named
// merged.pdf. Fewer than two documents is a permitted degenerate case; an
// engine failure aborts the batch.
func (o *Ops) MergeAll(ctx context.Context, docs []workspace.Document) (workspace.Document, error) {
	if len(docs) == 0 {
		return workspace.Document{}, fmt.Errorf("merge: no documents")
	}
	sources := make([][]byte, len(docs))
	for i, d := range docs {
		sources[i] = d.Bytes
	}
	data, err := o.engine.Merge(ctx, sources)
	if err != nil {
		return workspace.Document{}, fmt.Errorf("merge %d documents: %w", len(docs), err)
	}
	result := workspace.Document{
		ID:        uuid.NewString(),
		Name:      "merged.pdf",
		Size:      int64(len(data)),
		PageCount: o.engine.PageCount(ctx, data),
		Bytes:     data,
	}
	log.Info().Int("sources", len(docs)).Int("pages", result.PageCount).Msg("merge completed")
	return result, nil
}

// basename strips any directory part and the .pdf extension from a document
// name, for use in generated output names.
func basename(name string) string {
	b := path.Base(name)
	return strings.TrimSuffix(b, ".pdf")
}
