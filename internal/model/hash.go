package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// The version suffix leaves room for a future algorithm change.
const (
	DomainSlice = "bundlecore/slice/v1"
)

// ContentHash computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data), hex encoded.
// The null byte separator prevents domain/data boundary ambiguity.
func ContentHash(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SliceHash canonically encodes a slice value and returns the encoding
// together with its content hash.
func SliceHash(value any) ([]byte, string, error) {
	data, err := MarshalCanonical(value)
	if err != nil {
		return nil, "", fmt.Errorf("slice hash: %w", err)
	}
	return data, ContentHash(DomainSlice, data), nil
}
