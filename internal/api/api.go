package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfworkbench/internal/batch"
	"github.com/local/pdfworkbench/internal/ingest"
	"github.com/local/pdfworkbench/internal/metrics"
	"github.com/local/pdfworkbench/internal/render"
	"github.com/local/pdfworkbench/internal/storage"
	"github.com/local/pdfworkbench/internal/store"
	"github.com/local/pdfworkbench/internal/workspace"
)

// RenderSettings carry the preview tuning from config.
type RenderSettings struct {
	BufferPages int
	DPI         int
	Quality     int
	ColorMode   string
}

// Dependencies wires the API to its collaborators. Export may be nil when no
// bucket is configured.
type Dependencies struct {
	Workspace *workspace.Store
	Ingest    *ingest.Ingestor
	Batch     *batch.Runner
	Status    store.StatusStore
	Export    *storage.S3Client
	Render    RenderSettings
}

// API is the HTTP surface of the workbench.
type API struct {
	deps Dependencies
}

// New returns an API over the given dependencies.
func New(deps Dependencies) *API {
	if deps.Render.BufferPages <= 0 {
		deps.Render.BufferPages = render.DefaultBuffer
	}
	return &API{deps: deps}
}

// RegisterRoutes attaches all handlers to mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); _, _ = w.Write([]byte("ok")) })
	mux.HandleFunc("/workspace", a.handleWorkspace)
	mux.HandleFunc("/documents/upload", a.handleUpload)
	mux.HandleFunc("/documents/import", a.handleImport)
	mux.HandleFunc("/documents/select", a.handleSelect)
	mux.HandleFunc("/documents/delete", a.handleDelete)
	mux.HandleFunc("/documents/save", a.handleSave)
	mux.HandleFunc("/documents/export", a.handleExport)
	mux.HandleFunc("/ranges/add", a.handleRangeAdd)
	mux.HandleFunc("/ranges/update", a.handleRangeUpdate)
	mux.HandleFunc("/ranges/remove", a.handleRangeRemove)
	mux.HandleFunc("/ranges/select", a.handleRangeSelect)
	mux.HandleFunc("/extract", a.handleExtract)
	mux.HandleFunc("/merge", a.handleMerge)
	mux.HandleFunc("/jobs/", a.handleJobStatus)
	mux.HandleFunc("/preview/plan", a.handlePreviewPlan)
	mux.HandleFunc("/preview/page", a.handlePreviewPage)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// rangeView is a PageRange plus its inline validation message, resolved
// against the owning document's page count.
type rangeView struct {
	workspace.PageRange
	Error string `json:"error,omitempty"`
}

// handleWorkspace returns the full observable state: documents, active
// pointer, the active document's ranges with validation text, and the
// revision.
func (a *API) handleWorkspace(w http.ResponseWriter, r *http.Request) {
	snap := a.deps.Workspace.Snapshot()
	var ranges []rangeView
	var total int
	for _, d := range snap.Documents {
		if d.ID == snap.ActiveID {
			total = d.PageCount
		}
	}
	for _, pr := range snap.Ranges[snap.ActiveID] {
		ranges = append(ranges, rangeView{PageRange: pr, Error: workspace.DescribeError(pr, total)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents":         snap.Documents,
		"active_id":         snap.ActiveID,
		"ranges":            ranges,
		"selected_range_id": snap.SelectedRangeID,
		"revision":          snap.Revision,
	})
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}

	doc, err := a.deps.Ingest.FromBytes(r.Context(), hdr.Filename, data)
	if err != nil {
		if errors.Is(err, ingest.ErrNotPDF) {
			http.Error(w, "only PDF files are accepted", http.StatusUnsupportedMediaType)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	makeActive := r.FormValue("make_active") != "false"
	a.deps.Workspace.AddDocument(doc, makeActive)
	metrics.SetWorkspaceDocuments(len(a.deps.Workspace.Documents()))
	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		URL        string `json:"url"`
		MakeActive *bool  `json:"make_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	doc, err := a.deps.Ingest.FromRef(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, ingest.ErrNotPDF) {
			http.Error(w, "only PDF files are accepted", http.StatusUnsupportedMediaType)
			return
		}
		log.Error().Err(err).Str("url", req.URL).Msg("import failed")
		http.Error(w, "import failed", http.StatusBadGateway)
		return
	}
	makeActive := req.MakeActive == nil || *req.MakeActive
	a.deps.Workspace.AddDocument(doc, makeActive)
	metrics.SetWorkspaceDocuments(len(a.deps.Workspace.Documents()))
	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	a.deps.Workspace.SelectDocument(req.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	a.deps.Workspace.DeleteDocument(req.ID)
	metrics.SetWorkspaceDocuments(len(a.deps.Workspace.Documents()))
	w.WriteHeader(http.StatusNoContent)
}

// handleSave downloads a document's current bytes under its current name.
// Defaults to the active document.
func (a *API) handleSave(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	var doc workspace.Document
	var ok bool
	if id == "" {
		doc, ok = a.deps.Workspace.ActiveDocument()
	} else {
		doc, ok = a.deps.Workspace.Document(id)
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	_, _ = w.Write(doc.Bytes)
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if a.deps.Export == nil {
		http.Error(w, "export bucket not configured", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		ID       string `json:"id"`
		Key      string `json:"key"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	var doc workspace.Document
	var ok bool
	if req.ID == "" {
		doc, ok = a.deps.Workspace.ActiveDocument()
	} else {
		doc, ok = a.deps.Workspace.Document(req.ID)
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	key := req.Key
	if key == "" {
		key = doc.Name
	}
	if err := a.deps.Export.Upload(r.Context(), key, doc.Name, doc.Bytes, req.Password); err != nil {
		log.Error().Err(err).Str("doc_id", doc.ID).Msg("export failed")
		http.Error(w, "export failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key})
}

type rangeReq struct {
	DocumentID string `json:"document_id"`
	RangeID    string `json:"range_id"`
	Field      string `json:"field"`
	Value      string `json:"value"`
}

func decodeRangeReq(w http.ResponseWriter, r *http.Request) (rangeReq, bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return rangeReq{}, false
	}
	var req rangeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DocumentID == "" {
		http.Error(w, "missing document_id", http.StatusBadRequest)
		return rangeReq{}, false
	}
	return req, true
}

func (a *API) handleRangeAdd(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRangeReq(w, r)
	if !ok {
		return
	}
	id := a.deps.Workspace.AddRange(req.DocumentID)
	if id == "" {
		http.Error(w, "unknown document", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"range_id": id})
}

func (a *API) handleRangeUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRangeReq(w, r)
	if !ok {
		return
	}
	a.deps.Workspace.UpdateRange(req.DocumentID, req.RangeID, req.Field, req.Value)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRangeRemove(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRangeReq(w, r)
	if !ok {
		return
	}
	a.deps.Workspace.RemoveRange(req.DocumentID, req.RangeID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRangeSelect(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRangeReq(w, r)
	if !ok {
		return
	}
	a.deps.Workspace.SelectRange(req.DocumentID, req.RangeID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleExtract(w http.ResponseWriter, r *http.Request) {
	a.submitBatch(w, r, a.deps.Batch.SubmitExtract)
}

func (a *API) handleMerge(w http.ResponseWriter, r *http.Request) {
	a.submitBatch(w, r, a.deps.Batch.SubmitMerge)
}

func (a *API) submitBatch(w http.ResponseWriter, r *http.Request, submit func(ctx context.Context) (string, error)) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	jobID, err := submit(r.Context())
	if err != nil {
		if errors.Is(err, batch.ErrNothingToDo) {
			http.Error(w, "no documents to operate on", http.StatusConflict)
			return
		}
		http.Error(w, "batch unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID})
}

func (a *API) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/jobs/")
	st, ok, err := a.deps.Status.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// activeSpan resolves the current preview range of the active document.
func (a *API) activeSpan() *render.Span {
	if s, e, ok := a.deps.Workspace.CurrentRange(); ok {
		return &render.Span{Start: s, End: e}
	}
	return nil
}

// handlePreviewPlan answers, for a viewport at the given page, which pages
// must actually be rendered now and where navigation should jump if the
// viewport drifted outside the active range.
func (a *API) handlePreviewPlan(w http.ResponseWriter, r *http.Request) {
	doc, ok := a.deps.Workspace.ActiveDocument()
	if !ok {
		http.Error(w, "no active document", http.StatusNotFound)
		return
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	span := a.activeSpan()
	win := render.PlanWindow(page, doc.PageCount, span, a.deps.Render.BufferPages)
	resp := map[string]any{
		"page":        page,
		"total_pages": doc.PageCount,
		"window":      win,
		"range":       span,
	}
	if target, jump := render.ClampTarget(page, span); jump {
		resp["jump_to"] = target
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePreviewPage renders one page of the active document as JPEG. Pages
// outside the active range are suppressed: structurally present on the
// client, never rasterized here.
func (a *API) handlePreviewPage(w http.ResponseWriter, r *http.Request) {
	doc, ok := a.deps.Workspace.ActiveDocument()
	if !ok {
		http.Error(w, "no active document", http.StatusNotFound)
		return
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 || page > doc.PageCount {
		http.Error(w, "page out of range", http.StatusBadRequest)
		return
	}
	if span := a.activeSpan(); span != nil && (page < span.Start || page > span.End) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	img, _, _, err := render.PageToJPEG(doc.Bytes, page, render.Options{
		DPI:     a.deps.Render.DPI,
		Quality: a.deps.Render.Quality,
		Color:   render.ColorMode(a.deps.Render.ColorMode),
	})
	if err != nil {
		log.Error().Err(err).Str("doc_id", doc.ID).Int("page", page).Msg("page render failed")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(img)
}
