package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdfworkbench/internal/docops"
	"github.com/local/pdfworkbench/internal/pdfengine"
	"github.com/local/pdfworkbench/internal/store"
	"github.com/local/pdfworkbench/internal/workspace"
)

func newTestRunner(engine pdfengine.Engine) (*Runner, *workspace.Store, store.StatusStore) {
	ws := workspace.NewStore()
	status := store.NewMemoryStatus()
	r := New(Config{Concurrency: 1, JobTimeout: 5 * time.Second}, ws, docops.New(engine), status)
	return r, ws, status
}

func addMemDoc(ws *workspace.Store, id, name string, pages ...string) {
	data := pdfengine.MakeDoc(pages...)
	ws.AddDocument(workspace.Document{
		ID: id, Name: name, Size: int64(len(data)), PageCount: len(pages), Bytes: data,
	}, true)
}

// drain pulls the queued job and executes it synchronously, keeping the
// revision checks deterministic.
func drain(t *testing.T, r *Runner) {
	t.Helper()
	select {
	case j := <-r.jobs:
		r.execute(j)
	default:
		t.Fatal("no job queued")
	}
}

func TestExtractJobAppliesResults(t *testing.T) {
	r, ws, status := newTestRunner(&pdfengine.Memory{})
	addMemDoc(ws, "a", "a.pdf", "p1", "p2", "p3")

	jobID, err := r.SubmitExtract(context.Background())
	require.NoError(t, err)
	drain(t, r)

	st, ok, _ := status.Get(context.Background(), jobID)
	require.True(t, ok)
	assert.Equal(t, store.StateSuccess, st.State)
	require.Len(t, st.DocumentIDs, 1)

	docs := ws.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, "a_pages_1-3.pdf", docs[1].Name)
	active, _ := ws.ActiveDocument()
	assert.Equal(t, st.DocumentIDs[0], active.ID)
}

func TestMergeJobAppliesResult(t *testing.T) {
	r, ws, status := newTestRunner(&pdfengine.Memory{})
	addMemDoc(ws, "x", "x.pdf", "x1", "x2")
	addMemDoc(ws, "y", "y.pdf", "y1", "y2", "y3")

	jobID, err := r.SubmitMerge(context.Background())
	require.NoError(t, err)
	drain(t, r)

	st, _, _ := status.Get(context.Background(), jobID)
	assert.Equal(t, store.StateSuccess, st.State)

	active, _ := ws.ActiveDocument()
	assert.Equal(t, "merged.pdf", active.Name)
	assert.Equal(t, 5, active.PageCount)
}

func TestStaleResultIsDiscarded(t *testing.T) {
	r, ws, status := newTestRunner(&pdfengine.Memory{})
	addMemDoc(ws, "a", "a.pdf", "p1", "p2")

	jobID, err := r.SubmitExtract(context.Background())
	require.NoError(t, err)

	// the workspace moves on while the job is queued
	addMemDoc(ws, "b", "b.pdf", "q1")
	drain(t, r)

	st, _, _ := status.Get(context.Background(), jobID)
	assert.Equal(t, store.StateDiscarded, st.State)
	assert.Len(t, ws.Documents(), 2, "stale results never land")
}

func TestFailedJobLeavesWorkspaceUntouched(t *testing.T) {
	boom := errors.New("corrupt source")
	r, ws, status := newTestRunner(&pdfengine.Memory{FailExtract: boom})
	addMemDoc(ws, "a", "a.pdf", "p1", "p2")
	before := ws.Snapshot()

	jobID, err := r.SubmitExtract(context.Background())
	require.NoError(t, err)
	drain(t, r)

	st, _, _ := status.Get(context.Background(), jobID)
	assert.Equal(t, store.StateFailed, st.State)
	assert.Contains(t, st.Message, "corrupt source")
	assert.Equal(t, before, ws.Snapshot())
}

func TestSubmitWithEmptyWorkspace(t *testing.T) {
	r, _, _ := newTestRunner(&pdfengine.Memory{})
	_, err := r.SubmitExtract(context.Background())
	assert.ErrorIs(t, err, ErrNothingToDo)
	_, err = r.SubmitMerge(context.Background())
	assert.ErrorIs(t, err, ErrNothingToDo)
}

func TestStartStop(t *testing.T) {
	r, ws, status := newTestRunner(&pdfengine.Memory{})
	addMemDoc(ws, "a", "a.pdf", "p1", "p2")
	r.Start()

	jobID, err := r.SubmitExtract(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, ok, _ := status.Get(context.Background(), jobID)
		return ok && st.State == store.StateSuccess
	}, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
}
