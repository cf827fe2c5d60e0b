package jobs

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/demandcast/demandcast/internal/compression"
)

// Codec serializes queue payloads as JSON framed by the compression package
type Codec struct {
	algo compression.Algorithm
}

// NewCodec creates a codec for the named algorithm ("snappy" or "none")
func NewCodec(algorithm string) (*Codec, error) {
	algo, err := compression.ParseAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	return &Codec{algo: algo}, nil
}

// Encode marshals v and compresses it
func (c *Codec) Encode(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return compression.Encode(c.algo, raw)
}

// Decode accepts payloads of any supported algorithm, whatever c was
// configured with
func (c *Codec) Decode(data []byte, v interface{}) error {
	raw, err := compression.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decompress payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}
