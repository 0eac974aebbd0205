package workspace

// Document is one logical PDF tracked by the workspace. Identity is assigned
// once at ingestion and never recomputed; transformations (extract, merge)
// always produce a new Document rather than mutating one in place.
type Document struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	PageCount int    `json:"page_count"`

	// Degraded marks a document whose bytes the engine could not parse
	// (PageCount 0). Kept visible rather than rejected.
	Degraded bool `json:"degraded,omitempty"`

	// HasText reports whether the ingestion probe found extractable text.
	HasText bool `json:"has_text,omitempty"`

	// Bytes is the raw PDF payload, opaque to the workspace.
	Bytes []byte `json:"-"`
}
