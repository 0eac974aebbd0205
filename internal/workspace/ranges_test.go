package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRangeValid(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		totalPages int
		valid      bool
	}{
		{"full document", "1", "10", 10, true},
		{"single page", "4", "4", 10, true},
		{"start below one", "0", "5", 10, false},
		{"end beyond total", "5", "20", 10, false},
		{"inverted", "8", "3", 10, false},
		{"non-numeric start", "x", "5", 10, false},
		{"empty end", "1", "", 10, false},
		{"whitespace tolerated", " 2 ", " 9 ", 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := PageRange{ID: "r", Start: tt.start, End: tt.end}
			assert.Equal(t, tt.valid, r.Valid(tt.totalPages))
		})
	}
}

func TestDescribeErrorFirstMatchWins(t *testing.T) {
	// exactly one message per range, in priority order
	assert.Equal(t, "", DescribeError(PageRange{Start: "1", End: "10"}, 10))
	assert.Equal(t, "page bounds must be numbers", DescribeError(PageRange{Start: "abc", End: "3"}, 10))
	assert.Equal(t, "pages must be between 1 and 10", DescribeError(PageRange{Start: "0", End: "5"}, 10))
	assert.Equal(t, "pages must be between 1 and 10", DescribeError(PageRange{Start: "5", End: "20"}, 10))
	assert.Equal(t, "start page is after end page", DescribeError(PageRange{Start: "8", End: "3"}, 10))

	// out-of-bounds takes priority over inverted when both apply
	assert.Equal(t, "pages must be between 1 and 10", DescribeError(PageRange{Start: "20", End: "5"}, 10))
}

func TestBounds(t *testing.T) {
	s, e, ok := PageRange{Start: "3", End: "7"}.Bounds()
	assert.True(t, ok)
	assert.Equal(t, 3, s)
	assert.Equal(t, 7, e)

	_, _, ok = PageRange{Start: "", End: "7"}.Bounds()
	assert.False(t, ok)
}
