package workspace

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store owns the document collection, the active-document pointer and one
// range set per document. Every operation is total: unknown ids, duplicate
// uploads and empty inputs are absorbed as no-ops so a stale UI event can
// never crash the workspace.
//
// Revision is bumped on every state change. Batch operations record the
// revision they were computed against and their results are discarded if the
// workspace has moved on in the meantime.
type Store struct {
	mu            sync.Mutex
	docs          []Document
	active        string
	ranges        map[string][]PageRange
	selectedRange string
	revision      uint64
}

// NewStore returns an empty workspace.
func NewStore() *Store {
	return &Store{ranges: make(map[string][]PageRange)}
}

// Snapshot is a copy of the observable workspace state.
type Snapshot struct {
	Documents       []Document             `json:"documents"`
	ActiveID        string                 `json:"active_id"`
	Ranges          map[string][]PageRange `json:"ranges"`
	SelectedRangeID string                 `json:"selected_range_id"`
	Revision        uint64                 `json:"revision"`
}

// Snapshot returns a copy of the current state. Document byte payloads are
// shared, everything else is copied.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Documents:       append([]Document(nil), s.docs...),
		ActiveID:        s.active,
		Ranges:          make(map[string][]PageRange, len(s.ranges)),
		SelectedRangeID: s.selectedRange,
		Revision:        s.revision,
	}
	for id, rs := range s.ranges {
		snap.Ranges[id] = append([]PageRange(nil), rs...)
	}
	return snap
}

// Revision returns the current workspace revision.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Document returns the document with the given id.
func (s *Store) Document(id string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.docs[i], true
	}
	return Document{}, false
}

// ActiveDocument returns the currently active document.
func (s *Store) ActiveDocument() (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(s.active); i >= 0 {
		return s.docs[i], true
	}
	return Document{}, false
}

// Documents returns the documents in display order.
func (s *Store) Documents() []Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Document(nil), s.docs...)
}

// Ranges returns the range set of the given document in display order.
func (s *Store) Ranges(docID string) []PageRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PageRange(nil), s.ranges[docID]...)
}

// AddDocument appends doc to the workspace. A document with the same name
// and byte size is treated as the same logical file and the call becomes a
// no-op. The new document is selected when makeActive is set or when nothing
// is active yet.
func (s *Store) AddDocument(doc Document, makeActive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.Name == doc.Name && d.Size == doc.Size {
			log.Debug().Str("name", doc.Name).Int64("size", doc.Size).Msg("duplicate upload ignored")
			return
		}
	}
	s.docs = append(s.docs, doc)
	if makeActive || s.active == "" {
		s.selectLocked(doc.ID)
	}
	s.revision++
	log.Info().Str("doc_id", doc.ID).Str("name", doc.Name).Int("pages", doc.PageCount).Msg("document added")
}

// SelectDocument makes the document with the given id active and clears the
// range selection. An empty id clears the active document. Selecting a
// document that has no range set yet seeds it with the full-document range;
// re-selecting an already-ranged document leaves its ranges alone.
func (s *Store) SelectDocument(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		if s.active == "" && s.selectedRange == "" {
			return
		}
		s.active = ""
		s.selectedRange = ""
		s.revision++
		return
	}
	if s.indexOf(id) < 0 {
		return
	}
	if s.active == id && s.selectedRange == "" {
		// already in exactly this state
		return
	}
	s.selectLocked(id)
	s.revision++
}

// selectLocked sets the active document, clears the range selection and
// seeds the default [1, totalPages] range on first selection.
func (s *Store) selectLocked(id string) {
	s.active = id
	s.selectedRange = ""
	if _, ok := s.ranges[id]; ok {
		return
	}
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	d := s.docs[i]
	s.ranges[id] = []PageRange{{
		ID:    uuid.NewString(),
		Start: "1",
		End:   strconv.Itoa(d.PageCount),
	}}
}

// DeleteDocument removes the document and its range set atomically. When the
// active document is deleted the next active one is its immediate
// predecessor in the pre-deletion order, or the new first document if it was
// first, or none if the workspace is now empty.
func (s *Store) DeleteDocument(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	wasActive := s.active == id
	s.docs = append(s.docs[:i], s.docs[i+1:]...)
	delete(s.ranges, id)
	if wasActive {
		switch {
		case len(s.docs) == 0:
			s.active = ""
			s.selectedRange = ""
		case i > 0:
			// predecessor keeps its pre-deletion position i-1
			s.selectLocked(s.docs[i-1].ID)
		default:
			s.selectLocked(s.docs[0].ID)
		}
	}
	s.revision++
	log.Info().Str("doc_id", id).Bool("was_active", wasActive).Msg("document deleted")
}

// AddRange appends a new full-document range to the document's range set and
// returns its id. Range ids are generated fresh here and never reused from
// another document's set.
func (s *Store) AddRange(docID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(docID)
	if i < 0 {
		return ""
	}
	r := PageRange{
		ID:    uuid.NewString(),
		Start: "1",
		End:   strconv.Itoa(s.docs[i].PageCount),
	}
	s.ranges[docID] = append(s.ranges[docID], r)
	s.revision++
	return r.ID
}

// UpdateRange sets one bound of a range. field is "start" or "end"; the raw
// value is stored as-is so partially typed input survives.
func (s *Store) UpdateRange(docID, rangeID, field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.ranges[docID]
	for i := range rs {
		if rs[i].ID != rangeID {
			continue
		}
		switch field {
		case "start":
			rs[i].Start = value
		case "end":
			rs[i].End = value
		default:
			return
		}
		s.revision++
		return
	}
}

// RemoveRange deletes a range from a document's set and clears the range
// selection if it pointed at the removed range.
func (s *Store) RemoveRange(docID, rangeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.ranges[docID]
	for i := range rs {
		if rs[i].ID != rangeID {
			continue
		}
		s.ranges[docID] = append(rs[:i], rs[i+1:]...)
		if s.selectedRange == rangeID && s.active == docID {
			s.selectedRange = ""
		}
		s.revision++
		return
	}
}

// SelectRange marks a range of the active document as selected. Selecting a
// range of a non-active document or an unknown range id is a no-op.
func (s *Store) SelectRange(docID, rangeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if docID != s.active {
		return
	}
	for _, r := range s.ranges[docID] {
		if r.ID == rangeID {
			if s.selectedRange != rangeID {
				s.selectedRange = rangeID
				s.revision++
			}
			return
		}
	}
}

// SelectedRangeID returns the selected range id, if any.
func (s *Store) SelectedRangeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedRange
}

// CurrentRange resolves the selected range of the active document to
// concrete bounds. An absent or invalid selection means "no range"
// (full-document preview) and returns ok=false.
func (s *Store) CurrentRange() (start, end int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(s.active)
	if i < 0 || s.selectedRange == "" {
		return 0, 0, false
	}
	for _, r := range s.ranges[s.active] {
		if r.ID == s.selectedRange {
			if !r.Valid(s.docs[i].PageCount) {
				return 0, 0, false
			}
			s2, e2, _ := r.Bounds()
			return s2, e2, true
		}
	}
	return 0, 0, false
}

// MergeInto appends a merge result and makes it active. Results are
// append-only: the name+size de-duplication of AddDocument does not apply to
// engine output.
func (s *Store) MergeInto(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	s.selectLocked(doc.ID)
	s.revision++
	log.Info().Str("doc_id", doc.ID).Int("pages", doc.PageCount).Msg("merge result added")
}

// ExtractInto appends extract results and makes the first one active, if
// any. An empty result list leaves the workspace unchanged.
func (s *Store) ExtractInto(docs []Document) {
	if len(docs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
	s.selectLocked(docs[0].ID)
	s.revision++
	log.Info().Int("count", len(docs)).Msg("extract results added")
}

// MergeIntoIf applies MergeInto only when the workspace revision still
// matches the one the merge was computed against. Returns false when the
// result is stale and was discarded.
func (s *Store) MergeIntoIf(revision uint64, doc Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision != revision {
		log.Warn().Uint64("computed_at", revision).Uint64("current", s.revision).Msg("stale merge result discarded")
		return false
	}
	s.docs = append(s.docs, doc)
	s.selectLocked(doc.ID)
	s.revision++
	return true
}

// ExtractIntoIf is the revision-checked variant of ExtractInto.
func (s *Store) ExtractIntoIf(revision uint64, docs []Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision != revision {
		log.Warn().Uint64("computed_at", revision).Uint64("current", s.revision).Msg("stale extract result discarded")
		return false
	}
	if len(docs) == 0 {
		return true
	}
	s.docs = append(s.docs, docs...)
	s.selectLocked(docs[0].ID)
	s.revision++
	return true
}

// indexOf returns the position of the document with the given id, or -1.
// Caller holds the lock.
func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, d := range s.docs {
		if d.ID == id {
			return i
		}
	}
	return -1
}
