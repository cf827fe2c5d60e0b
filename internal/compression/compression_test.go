package compression

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", Snappy, false},
		{"Snappy", Snappy, false},
		{"none", None, false},
		{"zstd", None, true},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestGetCompressor_Unsupported(t *testing.T) {
	if _, err := GetCompressor(Algorithm(9)); err == nil {
		t.Error("Expected error for unsupported algorithm")
	}
}

func TestSnappyCompressor_RoundTrip(t *testing.T) {
	c := NewSnappyCompressor()
	original := []byte(strings.Repeat(`{"date":"2024-01-01","quantity":12},`, 100))

	compressed, err := c.Compress(original)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if len(compressed) >= len(original) {
		t.Errorf("Expected repetitive payload to shrink, %d >= %d", len(compressed), len(original))
	}

	decompressed, err := c.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(original, decompressed) {
		t.Error("Decompressed data does not match original")
	}
}

func TestSnappyCompressor_Corrupt(t *testing.T) {
	if _, err := NewSnappyCompressor().Decompress([]byte{0xff, 0xff, 0xff, 0xff}); err == nil {
		t.Error("Expected error for corrupt input")
	}
}

func TestEncodeDecode(t *testing.T) {
	large := []byte(strings.Repeat("demand ", 100))
	small := []byte(`{"id":"1"}`)

	tests := []struct {
		name    string
		data    []byte
		wantTag Algorithm
	}{
		{"large payload is compressed", large, Snappy},
		{"small payload is stored", small, None},
		{"empty payload", []byte{}, None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			framed, err := Encode(Snappy, tt.data)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if Algorithm(framed[0]) != tt.wantTag {
				t.Errorf("Expected tag %s, got %s", tt.wantTag, Algorithm(framed[0]))
			}

			decoded, err := Decode(framed)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !bytes.Equal(tt.data, decoded) {
				t.Error("Decoded data does not match original")
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Error("Expected error for empty payload")
	}
	if _, err := Decode([]byte{7, 1, 2}); err == nil {
		t.Error("Expected error for unknown tag")
	}
}
