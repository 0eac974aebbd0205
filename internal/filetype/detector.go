package filetype

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType    string
	Extension   string
	Supported   bool
	Description string
}

// Detector classifies upload bytes using magic bytes, not filename. Only
// PDF enters the workspace; everything else is rejected at ingestion.
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// Detect detects the actual file type of the given bytes.
func (d *Detector) Detect(data []byte) *FileTypeInfo {
	mtype := mimetype.Detect(data)
	mimeType := mtype.String()

	info := &FileTypeInfo{
		MIMEType:  mimeType,
		Extension: mtype.Extension(),
	}

	switch {
	case mimeType == "application/pdf":
		info.Supported = true
		info.Description = "PDF document"
	case strings.HasPrefix(mimeType, "text/"):
		info.Description = "Plain text file"
	case strings.HasPrefix(mimeType, "image/"):
		info.Description = "Image file"
	default:
		info.Description = fmt.Sprintf("Unsupported file type: %s", mimeType)
	}

	log.Debug().Str("mime", mimeType).Str("ext", info.Extension).Bool("supported", info.Supported).Msg("detected file type")
	return info
}

// IsPDF reports whether the bytes are a PDF by magic bytes.
func (d *Detector) IsPDF(data []byte) bool {
	return d.Detect(data).Supported
}
