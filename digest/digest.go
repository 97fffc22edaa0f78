// Package digest selects and renders the content digests used to compare a
// copied object against its source. Both supported algorithms produce
// 256-bit digests; the comparison is for equality only, so the algorithm
// just has to be the same on both sides of a run.
package digest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"lukechampine.com/blake3"
)

type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"

	Size = 32
)

func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case SHA256:
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	}
	return "", fmt.Errorf("unknown digest algorithm %q (want %q or %q)", name, SHA256, BLAKE3)
}

// NewHash returns a fresh incremental hasher for the algorithm.
func (a Algorithm) NewHash() hash.Hash {
	switch a {
	case BLAKE3:
		return blake3.New(Size, nil)
	default:
		return sha256.New()
	}
}

// Value is a finished digest. Displayed as lowercase hex.
type Value []byte

func (v Value) String() string {
	return hex.EncodeToString(v)
}

func (v Value) Equal(other Value) bool {
	return bytes.Equal(v, other)
}
