package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	plain := []byte("%PDF-1.7 payload bytes")

	sealed, err := seal(plain, "hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, plain, sealed)
	assert.Greater(t, len(sealed), len(plain), "salt and nonce travel with the payload")

	out, err := open(sealed, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestOpenWithWrongPassword(t *testing.T) {
	sealed, err := seal([]byte("secret"), "right")
	require.NoError(t, err)

	_, err = open(sealed, "wrong")
	assert.Error(t, err)
}

func TestSealIsSalted(t *testing.T) {
	a, err := seal([]byte("same input"), "pw")
	require.NoError(t, err)
	b, err := seal([]byte("same input"), "pw")
	require.NoError(t, err)
	assert.False(t, bytes.Equal(a, b), "fresh salt and nonce per seal")
}

func TestOpenRejectsTruncatedPayload(t *testing.T) {
	_, err := open([]byte("short"), "pw")
	assert.Error(t, err)

	_, err = open(make([]byte, saltLen+2), "pw")
	assert.Error(t, err)
}
