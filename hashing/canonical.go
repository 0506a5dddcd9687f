// hashing/canonical.go
package hashing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hasher is the injected hash function everything downstream trusts:
// deterministic, pure, lowercase hex output.
type Hasher func(s string) string

// SHA256Hex is the default Hasher.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// CanonicalJSON serializes v with object keys sorted lexically at every
// nesting level and array order preserved, so semantically equal values
// always produce identical bytes. Number literals survive the round trip
// unchanged. Any reimplementation must reproduce this form exactly or
// hashes will not match across ports.
func CanonicalJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal content: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("failed to normalize content: %w", err)
	}

	// encoding/json sorts map keys, which yields the canonical ordering
	// at every nesting level once the value is in generic form.
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("failed to marshal canonical form: %w", err)
	}
	return string(canonical), nil
}

// HashCanonical hashes the canonical JSON form of v.
func HashCanonical(h Hasher, v any) (string, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return h(canonical), nil
}
