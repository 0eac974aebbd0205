package pdfcheck

import (
	"errors"
	"math/rand"
	"regexp"
	"sort"
	"time"
)

// DefaultThreshold is used when a non-positive threshold is passed in.
const DefaultThreshold = 300

// whitespaceRegex matches any whitespace (Unicode-aware). Used to strip whitespace.
var whitespaceRegex = regexp.MustCompile(`\s+`)

func stripWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(s, "")
}

// Doc abstracts an open PDF document for text probing.
type Doc interface {
	NumPage() int
	Text(i int) (string, error)
	Close() error
}

// Opener abstracts opening PDF bytes into a Doc.
type Opener interface {
	Open(data []byte) (Doc, error)
}

// defaultOpener is provided in open_fitz.go using go-fitz.
var defaultOpener Opener

// setDefaultOpener allows swapping the default opener, useful for tests or alternate backends.
func setDefaultOpener(o Opener) { defaultOpener = o }

// HasExtractableText samples a handful of pages and reports whether the
// document carries at least threshold non-whitespace characters of real
// text. Ingestion stores the answer on the document so the UI can tell a
// scanned document from a digital one.
func HasExtractableText(data []byte, threshold int) (bool, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if defaultOpener == nil {
		return false, errors.New("no PDF opener configured")
	}

	d, err := defaultOpener.Open(data)
	if err != nil {
		return false, err
	}
	defer d.Close()

	total := d.NumPage()
	if total <= 0 {
		return false, nil
	}

	totalChars := 0
	for _, idx := range sampleIndices(total) {
		text, terr := d.Text(idx)
		if terr != nil {
			continue
		}
		totalChars += len([]rune(stripWhitespace(text)))
		if totalChars >= threshold {
			// Early exit for speed
			return true, nil
		}
	}
	return totalChars >= threshold, nil
}

// sampleIndices implements the sampling heuristic:
// up to 5 pages: 0, mid, last, plus 1–2 random distinct if N >= 6.
// If N < 5, sample all pages [0..N-1].
func sampleIndices(total int) []int {
	if total <= 0 {
		return []int{}
	}
	if total <= 5 {
		idx := make([]int, total)
		for i := 0; i < total; i++ {
			idx[i] = i
		}
		return idx
	}

	mid := total / 2
	base := map[int]struct{}{0: {}, mid: {}, total - 1: {}}

	// Seed per call – fine for sampling
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	for len(base) < 5 {
		cand := rnd.Intn(total)
		if _, ok := base[cand]; ok {
			continue
		}
		base[cand] = struct{}{}
	}

	out := make([]int, 0, 5)
	for i := range base {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
