package ingest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdfworkbench/internal/pdfengine"
)

var brokenPDF = []byte("%PDF-1.4\nnot really parseable")

func TestFromBytesRejectsNonPDF(t *testing.T) {
	ing := New(&pdfengine.Memory{}, Options{})
	_, err := ing.FromBytes(context.Background(), "notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestFromBytesSizeLimit(t *testing.T) {
	ing := New(&pdfengine.Memory{}, Options{MaxBytes: 8})
	_, err := ing.FromBytes(context.Background(), "big.pdf", brokenPDF)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotPDF)
}

func TestFromBytesDegradedDocument(t *testing.T) {
	ing := New(&pdfengine.Memory{}, Options{})
	doc, err := ing.FromBytes(context.Background(), "broken.pdf", brokenPDF)
	require.NoError(t, err)
	assert.True(t, doc.Degraded)
	assert.Equal(t, 0, doc.PageCount)
	assert.Equal(t, "broken.pdf", doc.Name)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, int64(len(brokenPDF)), doc.Size)
}

func TestFromBytesDefaultName(t *testing.T) {
	ing := New(&pdfengine.Memory{}, Options{})
	doc, err := ing.FromBytes(context.Background(), "", brokenPDF)
	require.NoError(t, err)
	assert.Equal(t, "upload.pdf", doc.Name)
}

func TestFromRefLocalFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "local.pdf")
	require.NoError(t, os.WriteFile(p, brokenPDF, 0o644))

	ing := New(&pdfengine.Memory{}, Options{})
	doc, err := ing.FromRef(context.Background(), "file://"+p+"#page=3")
	require.NoError(t, err)
	assert.Equal(t, "local.pdf", doc.Name)
}

func TestFromRefHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(brokenPDF)
	}))
	defer srv.Close()

	ing := New(&pdfengine.Memory{}, Options{})
	doc, err := ing.FromRef(context.Background(), srv.URL+"/remote.pdf")
	require.NoError(t, err)
	assert.Equal(t, "remote.pdf", doc.Name)
	assert.True(t, bytes.Equal(brokenPDF, doc.Bytes))
}

func TestFromRefHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ing := New(&pdfengine.Memory{}, Options{})
	_, err := ing.FromRef(context.Background(), srv.URL+"/missing.pdf")
	assert.Error(t, err)
}
