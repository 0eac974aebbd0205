package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfworkbench/internal/docops"
	"github.com/local/pdfworkbench/internal/metrics"
	"github.com/local/pdfworkbench/internal/store"
	"github.com/local/pdfworkbench/internal/workspace"
)

// ErrNothingToDo is returned when a batch is submitted with no usable input
// (no active document for extract, no documents for merge).
var ErrNothingToDo = errors.New("nothing to do")

// Config defines runner behavior.
type Config struct {
	Concurrency int
	JobTimeout  time.Duration
}

// Runner executes extract and merge batches on a small worker pool. Each job
// is tagged with the workspace revision it was computed against; results
// landing on a different revision are discarded rather than interleaved with
// newer state.
type Runner struct {
	cfg    Config
	ws     *workspace.Store
	ops    *docops.Ops
	status store.StatusStore
	jobs   chan job
	stop   chan struct{}
	wg     sync.WaitGroup
}

type job struct {
	id       string
	kind     string
	revision uint64
	run      func(ctx context.Context) ([]workspace.Document, error)
	apply    func(revision uint64, docs []workspace.Document) bool
}

// New creates a stopped Runner.
func New(cfg Config, ws *workspace.Store, ops *docops.Ops, status store.StatusStore) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	return &Runner{
		cfg:    cfg,
		ws:     ws,
		ops:    ops,
		status: status,
		jobs:   make(chan job, 64),
		stop:   make(chan struct{}),
	}
}

// Start launches the worker pool.
func (r *Runner) Start() {
	for i := 0; i < r.cfg.Concurrency; i++ {
		r.wg.Add(1)
		go r.loop(i)
	}
}

// Stop shuts the pool down and waits for in-flight jobs.
func (r *Runner) Stop(ctx context.Context) error {
	close(r.stop)
	done := make(chan struct{})
	go func() { r.wg.Wait(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitExtract snapshots the active document and its range set and queues
// an extract batch. Returns the job id.
func (r *Runner) SubmitExtract(ctx context.Context) (string, error) {
	doc, ok := r.ws.ActiveDocument()
	if !ok {
		return "", ErrNothingToDo
	}
	ranges := r.ws.Ranges(doc.ID)
	revision := r.ws.Revision()
	return r.submit(ctx, "extract", revision,
		func(ctx context.Context) ([]workspace.Document, error) {
			return r.ops.ExtractRanges(ctx, doc, ranges)
		},
		r.ws.ExtractIntoIf,
	)
}

// SubmitMerge snapshots all documents in display order and queues a merge
// batch. Returns the job id.
func (r *Runner) SubmitMerge(ctx context.Context) (string, error) {
	docs := r.ws.Documents()
	if len(docs) == 0 {
		return "", ErrNothingToDo
	}
	revision := r.ws.Revision()
	return r.submit(ctx, "merge", revision,
		func(ctx context.Context) ([]workspace.Document, error) {
			doc, err := r.ops.MergeAll(ctx, docs)
			if err != nil {
				return nil, err
			}
			return []workspace.Document{doc}, nil
		},
		func(rev uint64, results []workspace.Document) bool {
			return r.ws.MergeIntoIf(rev, results[0])
		},
	)
}

func (r *Runner) submit(ctx context.Context, kind string, revision uint64, run func(context.Context) ([]workspace.Document, error), apply func(uint64, []workspace.Document) bool) (string, error) {
	id := uuid.NewString()
	now := time.Now()
	_ = r.status.Set(ctx, id, store.Status{State: store.StateQueued, Kind: kind, Revision: revision, Start: &now})
	select {
	case r.jobs <- job{id: id, kind: kind, revision: revision, run: run, apply: apply}:
		log.Info().Str("job_id", id).Str("kind", kind).Uint64("revision", revision).Msg("batch queued")
		return id, nil
	default:
		return "", errors.New("batch queue full")
	}
}

func (r *Runner) loop(worker int) {
	defer r.wg.Done()
	log.Debug().Int("worker", worker).Msg("batch worker started")
	for {
		select {
		case <-r.stop:
			log.Debug().Int("worker", worker).Msg("batch worker stopped")
			return
		case j := <-r.jobs:
			r.execute(j)
		}
	}
}

func (r *Runner) execute(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.JobTimeout)
	defer cancel()

	st, _, _ := r.status.Get(ctx, j.id)
	st.State = store.StateProcessing
	st.Kind = j.kind
	_ = r.status.Set(ctx, j.id, st)

	docs, err := j.run(ctx)
	now := time.Now()
	st.End = &now
	if err != nil {
		// batch failure is recoverable: workspace state is untouched
		st.State = store.StateFailed
		st.Message = err.Error()
		_ = r.status.Set(ctx, j.id, st)
		metrics.IncBatch(j.kind, "failed")
		log.Error().Err(err).Str("job_id", j.id).Str("kind", j.kind).Msg("batch failed")
		return
	}

	if !j.apply(j.revision, docs) {
		st.State = store.StateDiscarded
		st.Message = "workspace changed while the batch was running"
		_ = r.status.Set(ctx, j.id, st)
		metrics.IncStaleResult()
		metrics.IncBatch(j.kind, "discarded")
		return
	}

	st.State = store.StateSuccess
	for _, d := range docs {
		st.DocumentIDs = append(st.DocumentIDs, d.ID)
	}
	_ = r.status.Set(ctx, j.id, st)
	metrics.IncBatch(j.kind, "success")
	metrics.SetWorkspaceDocuments(len(r.ws.Documents()))
	log.Info().Str("job_id", j.id).Str("kind", j.kind).Int("documents", len(docs)).Msg("batch applied")
}
