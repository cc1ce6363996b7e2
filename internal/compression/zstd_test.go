package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressor_RoundTrip(t *testing.T) {
	c, err := NewCompressor(2, true)
	require.NoError(t, err)
	defer c.Close()

	small := []byte("tiny")
	large := bytes.Repeat([]byte(`{"id":1,"title":"Fjallraven Backpack"}`), 64)

	for _, data := range [][]byte{small, large, {}} {
		decoded, err := c.Decode(c.Encode(data))
		require.NoError(t, err)
		assert.Equal(t, data, decoded)
	}

	assert.Less(t, len(c.Encode(large)), len(large))
}

func TestCompressor_DisabledStillReadsCompressed(t *testing.T) {
	on, err := NewCompressor(1, true)
	require.NoError(t, err)
	defer on.Close()
	off, err := NewCompressor(1, false)
	require.NoError(t, err)
	defer off.Close()

	data := bytes.Repeat([]byte("abcdefgh"), 100)
	decoded, err := off.Decode(on.Encode(data))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestCompressor_Corrupt(t *testing.T) {
	c, err := NewCompressor(2, true)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Decode(nil)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = c.Decode([]byte{0x7f, 1, 2})
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = c.Decode([]byte{markerZstd, 1, 2, 3})
	assert.ErrorIs(t, err, ErrCorrupt)
}
