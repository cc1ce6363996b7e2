// Package compression wraps zstd for payloads kept in durable backends.
package compression

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Frame markers prepended to every encoded payload.
const (
	markerRaw  byte = 0x00
	markerZstd byte = 0x01

	minCompressSize = 128
)

// ErrCorrupt is returned when a payload cannot be decoded.
var ErrCorrupt = errors.New("corrupt payload")

// Compressor encodes payloads with zstd when that makes them smaller.
// It is safe for concurrent use.
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	enabled bool
}

// NewCompressor creates a compressor. level is 1 (fastest) to 3 (best).
// A disabled compressor still frames payloads so they stay readable when
// compression is switched on later.
func NewCompressor(level int, enabled bool) (*Compressor, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if !enabled {
		return &Compressor{decoder: decoder}, nil
	}

	var encoderLevel zstd.EncoderLevel
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		decoder.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	return &Compressor{
		encoder: encoder,
		decoder: decoder,
		enabled: true,
	}, nil
}

// Encode frames data, compressing it when enabled and worthwhile.
func (c *Compressor) Encode(data []byte) []byte {
	if c.enabled && len(data) >= minCompressSize {
		compressed := c.encoder.EncodeAll(data, make([]byte, 1, len(data)))
		compressed[0] = markerZstd
		if len(compressed) < len(data)+1 {
			return compressed
		}
	}
	out := make([]byte, len(data)+1)
	out[0] = markerRaw
	copy(out[1:], data)
	return out
}

// Decode reverses Encode.
func (c *Compressor) Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrCorrupt
	}
	switch data[0] {
	case markerRaw:
		out := make([]byte, len(data)-1)
		copy(out, data[1:])
		return out, nil
	case markerZstd:
		out, err := c.decoder.DecodeAll(data[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return out, nil
	default:
		return nil, ErrCorrupt
	}
}

// Close releases encoder and decoder resources.
func (c *Compressor) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
