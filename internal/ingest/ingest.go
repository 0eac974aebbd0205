package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/local/pdfworkbench/internal/filetype"
	"github.com/local/pdfworkbench/internal/metrics"
	"github.com/local/pdfworkbench/internal/pdfcheck"
	"github.com/local/pdfworkbench/internal/pdfengine"
	"github.com/local/pdfworkbench/internal/workspace"
)

// ErrNotPDF is returned when upload bytes fail the magic-byte gate. Such
// files never enter the workspace.
var ErrNotPDF = errors.New("not a pdf")

// Ingestor turns raw bytes or a remote reference into a workspace Document:
// identity, page count, degraded flag and text probe, all computed once here.
type Ingestor struct {
	engine         pdfengine.Engine
	detector       *filetype.Detector
	maxBytes       int64
	probeThreshold int
}

// Options configure ingestion limits.
type Options struct {
	MaxBytes       int64
	ProbeThreshold int
}

// New returns an Ingestor over the given engine.
func New(engine pdfengine.Engine, opts Options) *Ingestor {
	return &Ingestor{
		engine:         engine,
		detector:       filetype.New(),
		maxBytes:       opts.MaxBytes,
		probeThreshold: opts.ProbeThreshold,
	}
}

// FromBytes builds a Document from uploaded bytes. Non-PDF bytes are
// rejected; unparseable PDF bytes yield a degraded (0-page) document that
// stays visible rather than being silently dropped.
func (i *Ingestor) FromBytes(ctx context.Context, name string, data []byte) (workspace.Document, error) {
	if i.maxBytes > 0 && int64(len(data)) > i.maxBytes {
		metrics.IncIngested("rejected")
		return workspace.Document{}, fmt.Errorf("file exceeds %d bytes", i.maxBytes)
	}
	if !i.detector.IsPDF(data) {
		metrics.IncIngested("rejected")
		return workspace.Document{}, ErrNotPDF
	}
	if name == "" {
		name = "upload.pdf"
	}

	doc := workspace.Document{
		ID:    uuid.NewString(),
		Name:  name,
		Size:  int64(len(data)),
		Bytes: data,
	}
	doc.PageCount = i.engine.PageCount(ctx, data)
	if doc.PageCount == 0 {
		doc.Degraded = true
		metrics.IncIngested("degraded")
		log.Warn().Str("name", name).Msg("document ingested as degraded (0 pages)")
	} else {
		if ok, err := pdfcheck.HasExtractableText(data, i.probeThreshold); err == nil {
			doc.HasText = ok
		}
		metrics.IncIngested("ok")
	}
	log.Info().Str("doc_id", doc.ID).Str("name", name).Int("pages", doc.PageCount).Bool("has_text", doc.HasText).Msg("document ingested")
	return doc, nil
}

// FromRef ingests a document referenced by URL. Supports http(s)://,
// s3://bucket/key and file:// refs, mirroring the engine-side reference
// handling: remote refs are downloaded to a temp file first.
func (i *Ingestor) FromRef(ctx context.Context, ref string) (workspace.Document, error) {
	// Strip optional #page fragment if present
	if idx := strings.Index(ref, "#"); idx >= 0 {
		ref = ref[:idx]
	}

	var localPath string
	var tmpToRemove string
	var err error

	switch {
	case strings.HasPrefix(ref, "s3://"):
		localPath, err = downloadS3ToTemp(ctx, ref)
		tmpToRemove = localPath
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		localPath, err = downloadHTTPToTemp(ctx, ref)
		tmpToRemove = localPath
	case strings.HasPrefix(ref, "file://"):
		localPath = strings.TrimPrefix(ref, "file://")
	default:
		// treat as filesystem path
		localPath = ref
	}
	if err != nil {
		return workspace.Document{}, err
	}
	if tmpToRemove != "" {
		defer os.Remove(tmpToRemove)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return workspace.Document{}, err
	}
	return i.FromBytes(ctx, path.Base(strings.TrimSuffix(ref, "/")), data)
}

func downloadHTTPToTemp(ctx context.Context, url string) (string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}
	f, err := os.CreateTemp("", "pdfdl-*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func downloadS3ToTemp(ctx context.Context, s3url string) (string, error) {
	// s3://bucket/key
	p := strings.TrimPrefix(s3url, "s3://")
	slash := strings.Index(p, "/")
	if slash <= 0 {
		return "", fmt.Errorf("invalid s3 url: %s", s3url)
	}
	bucket := p[:slash]
	key := p[slash+1:]

	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return "", err
	}
	cli := s3.NewFromConfig(cfg)

	out, err := cli.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return "", err
	}
	defer out.Body.Close()

	f, err := os.CreateTemp("", "s3pdf-*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, out.Body); err != nil {
		return "", err
	}
	log.Info().Str("bucket", bucket).Str("key", key).Msg("downloaded s3 pdf to temp")
	return f.Name(), nil
}
