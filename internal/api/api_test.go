package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdfworkbench/internal/batch"
	"github.com/local/pdfworkbench/internal/docops"
	"github.com/local/pdfworkbench/internal/ingest"
	"github.com/local/pdfworkbench/internal/pdfengine"
	"github.com/local/pdfworkbench/internal/store"
	"github.com/local/pdfworkbench/internal/workspace"
)

type testEnv struct {
	server *httptest.Server
	ws     *workspace.Store
	runner *batch.Runner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	engine := &pdfengine.Memory{}
	ws := workspace.NewStore()
	status := store.NewMemoryStatus()
	runner := batch.New(batch.Config{Concurrency: 1, JobTimeout: 5 * time.Second}, ws, docops.New(engine), status)
	runner.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = runner.Stop(ctx)
	})

	a := New(Dependencies{
		Workspace: ws,
		Ingest:    ingest.New(engine, ingest.Options{MaxBytes: 1 << 20}),
		Batch:     runner,
		Status:    status,
		Render:    RenderSettings{BufferPages: 250},
	})
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, ws: ws, runner: runner}
}

func (e *testEnv) seed(t *testing.T, id, name string, pages ...string) {
	t.Helper()
	data := pdfengine.MakeDoc(pages...)
	e.ws.AddDocument(workspace.Document{
		ID: id, Name: name, Size: int64(len(data)), PageCount: len(pages), Bytes: data,
	}, true)
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func uploadFile(t *testing.T, url, filename string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	resp, err := http.Post(url+"/documents/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestUploadRejectsNonPDF(t *testing.T) {
	env := newTestEnv(t)
	resp := uploadFile(t, env.server.URL, "notes.txt", []byte("plain text, not a pdf"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Empty(t, env.ws.Documents(), "rejected files never enter the workspace")
}

func TestUploadUnparseablePDFStaysVisible(t *testing.T) {
	env := newTestEnv(t)
	// passes the magic-byte gate, fails page counting
	resp := uploadFile(t, env.server.URL, "broken.pdf", []byte("%PDF-1.4\ngarbage"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	docs := env.ws.Documents()
	require.Len(t, docs, 1)
	assert.True(t, docs[0].Degraded)
	assert.Equal(t, 0, docs[0].PageCount)
}

func TestWorkspaceReportsRangeErrors(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "a", "a.pdf", "p1", "p2", "p3")
	seeded := env.ws.Ranges("a")[0]
	env.ws.UpdateRange("a", seeded.ID, "end", "9")

	resp, err := http.Get(env.server.URL + "/workspace")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, "a", body["active_id"])
	ranges := body["ranges"].([]any)
	require.Len(t, ranges, 1)
	rv := ranges[0].(map[string]any)
	assert.Equal(t, "pages must be between 1 and 3", rv["error"])
}

func TestRangeEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "a", "a.pdf", "p1", "p2", "p3", "p4")

	resp := env.postJSON(t, "/ranges/add", map[string]string{"document_id": "a"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rangeID := decodeBody(t, resp)["range_id"].(string)
	require.NotEmpty(t, rangeID)

	resp = env.postJSON(t, "/ranges/update", map[string]string{
		"document_id": "a", "range_id": rangeID, "field": "start", "value": "2",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.postJSON(t, "/ranges/select", map[string]string{"document_id": "a", "range_id": rangeID})
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, rangeID, env.ws.SelectedRangeID())

	resp = env.postJSON(t, "/ranges/remove", map[string]string{"document_id": "a", "range_id": rangeID})
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Len(t, env.ws.Ranges("a"), 1)
}

func TestExtractJobRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "a", "a.pdf", "p1", "p2", "p3")

	resp := env.postJSON(t, "/extract", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	jobID := decodeBody(t, resp)["job_id"].(string)

	require.Eventually(t, func() bool {
		r, err := http.Get(env.server.URL + "/jobs/" + jobID)
		if err != nil || r.StatusCode != http.StatusOK {
			return false
		}
		st := decodeBody(t, r)
		return st["state"] == store.StateSuccess
	}, 5*time.Second, 10*time.Millisecond)

	assert.Len(t, env.ws.Documents(), 2)
}

func TestExtractWithEmptyWorkspace(t *testing.T) {
	env := newTestEnv(t)
	resp := env.postJSON(t, "/extract", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPreviewPlanClipsToActiveRange(t *testing.T) {
	env := newTestEnv(t)
	env.ws.AddDocument(workspace.Document{ID: "big", Name: "big.pdf", Size: 1, PageCount: 1000}, true)
	seeded := env.ws.Ranges("big")[0]
	env.ws.UpdateRange("big", seeded.ID, "start", "10")
	env.ws.UpdateRange("big", seeded.ID, "end", "20")
	env.ws.SelectRange("big", seeded.ID)

	resp, err := http.Get(env.server.URL + "/preview/plan?page=3")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	win := body["window"].(map[string]any)
	assert.Equal(t, float64(10), win["start"])
	assert.Equal(t, float64(20), win["end"])
	assert.Equal(t, float64(10), body["jump_to"], "viewport below the range jumps to its start")
}

func TestPreviewPageOutsideRangeIsSuppressed(t *testing.T) {
	env := newTestEnv(t)
	env.ws.AddDocument(workspace.Document{ID: "big", Name: "big.pdf", Size: 1, PageCount: 100}, true)
	seeded := env.ws.Ranges("big")[0]
	env.ws.UpdateRange("big", seeded.ID, "start", "10")
	env.ws.UpdateRange("big", seeded.ID, "end", "20")
	env.ws.SelectRange("big", seeded.ID)

	resp, err := http.Get(env.server.URL + "/preview/page?page=5")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSaveDownloadsActiveDocument(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "a", "a.pdf", "p1", "p2")

	resp, err := http.Get(env.server.URL + "/documents/save")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `"a.pdf"`)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	pages, ok := pdfengine.Pages(data)
	require.True(t, ok)
	assert.Equal(t, []string{"p1", "p2"}, pages)
}

func TestSelectAndDeleteEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "a", "a.pdf", "p1")
	env.seed(t, "b", "b.pdf", "q1")

	resp := env.postJSON(t, "/documents/select", map[string]string{"id": "a"})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	active, _ := env.ws.ActiveDocument()
	assert.Equal(t, "a", active.ID)

	resp = env.postJSON(t, "/documents/delete", map[string]string{"id": "a"})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	active, ok := env.ws.ActiveDocument()
	require.True(t, ok)
	assert.Equal(t, "b", active.ID)
}

func TestExportWithoutBucket(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "a", "a.pdf", "p1")
	resp := env.postJSON(t, "/documents/export", map[string]string{"id": "a"})
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestJobStatusNotFound(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/jobs/" + strings.Repeat("0", 8))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
