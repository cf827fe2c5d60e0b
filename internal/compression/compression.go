// Package compression frames queue payloads with a one-byte algorithm tag so
// producers and consumers can change compression independently.
package compression

import (
	"fmt"
	"strings"
)

// Algorithm defines compression types
type Algorithm uint8

const (
	None   Algorithm = 0
	Snappy Algorithm = 1
)

// MinCompressSize is the payload size below which Encode skips compression
const MinCompressSize = 256

// Compressor interface for compression algorithms
type Compressor interface {
	// Compress compresses data
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data
	Decompress(data []byte) ([]byte, error)

	// Algorithm returns the compression algorithm type
	Algorithm() Algorithm
}

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm parses "none" or "snappy". Empty means snappy.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "snappy":
		return Snappy, nil
	case "none":
		return None, nil
	default:
		return None, fmt.Errorf("unsupported compression algorithm: %q", s)
	}
}

// GetCompressor returns a compressor for the given algorithm
func GetCompressor(algo Algorithm) (Compressor, error) {
	switch algo {
	case None:
		return noneCompressor{}, nil
	case Snappy:
		return NewSnappyCompressor(), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %d", algo)
	}
}

// Encode compresses data with algo and prefixes the algorithm tag. Payloads
// shorter than MinCompressSize are tagged None and stored as is.
func Encode(algo Algorithm, data []byte) ([]byte, error) {
	if len(data) < MinCompressSize {
		algo = None
	}
	c, err := GetCompressor(algo)
	if err != nil {
		return nil, err
	}
	body, err := c.Compress(data)
	if err != nil {
		return nil, err
	}

	framed := make([]byte, 0, len(body)+1)
	framed = append(framed, byte(algo))
	return append(framed, body...), nil
}

// Decode reverses Encode
func Decode(framed []byte) ([]byte, error) {
	if len(framed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	c, err := GetCompressor(Algorithm(framed[0]))
	if err != nil {
		return nil, err
	}
	return c.Decompress(framed[1:])
}

type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Algorithm() Algorithm                   { return None }
