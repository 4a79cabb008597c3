// Package common holds the small set of shared value types — hashes and
// nibble paths — used across the store, smt, applier and gc packages.
package common

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// HashLength is the byte length of a content hash (SHA3-256).
const HashLength = 32

// Hash is a 32-byte SHA3-256 digest. The zero value is NOT the placeholder
// hash; use PlaceholderHash for that.
type Hash [HashLength]byte

// PlaceholderHash denotes the empty tree. It is the digest of a fixed,
// reserved byte string so it never collides with a real node's hash.
var PlaceholderHash = sha3Sum([]byte("SMT::PLACEHOLDER"))

func sha3Sum(parts ...[]byte) Hash {
	h := sha3.New256()
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Sum256 hashes the concatenation of parts with SHA3-256.
func Sum256(parts ...[]byte) Hash {
	return sha3Sum(parts...)
}

// BytesToHash copies the rightmost HashLength bytes of b into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash parses a hex string (with or without 0x prefix) into a Hash.
func HexToHash(s string) Hash {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, _ := hex.DecodeString(s)
	return BytesToHash(b)
}

// IsPlaceholder reports whether h is the empty-tree sentinel.
func (h Hash) IsPlaceholder() bool { return h == PlaceholderHash }

// IsZero reports whether h is the all-zero value (distinct from the
// placeholder hash — used to detect "unset" fields before defaulting).
func (h Hash) IsZero() bool { return h == Hash{} }

// Bytes returns a copy of the hash bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashLength)
	copy(b, h[:])
	return b
}

// Hex returns the 0x-prefixed lowercase hex encoding.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// Less provides a total order over hashes, used for deterministic iteration
// and for the BTreeMap-equivalent ordering the snapshot format relies on.
func (h Hash) Less(other Hash) bool {
	for i := range h {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

// Format implements fmt.Formatter so %x and %v both produce useful output.
func (h Hash) Format(f fmt.State, c rune) {
	fmt.Fprintf(f, fmt.FormatString(f, c), h.Bytes())
}
