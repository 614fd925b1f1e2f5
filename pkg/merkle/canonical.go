package merkle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// CanonicalizeJSON is the byte form devices sign: object keys sorted at every
// depth, no insignificant whitespace, no HTML escaping. Structs are first
// reduced to plain objects so their field order does not matter. Floats use
// the shortest form encoding/json produces (1000000, not 1e+06).
func CanonicalizeJSON(value any) ([]byte, error) {
	raw, err := compactJSON(value)
	if err != nil {
		return nil, fmt.Errorf("value is not representable as JSON: %w", err)
	}
	return CanonicalizeRawJSON(raw)
}

// CanonicalizeRawJSON is CanonicalizeJSON for an encoded document. Numbers keep
// the exact text they were sent with.
func CanonicalizeRawJSON(raw []byte) ([]byte, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var tree any
	if err := decoder.Decode(&tree); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid JSON: trailing data")
	}

	return compactJSON(tree)
}

// compactJSON depends on encoding/json emitting map keys in sorted order.
func compactJSON(value any) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buffer.Bytes(), []byte{'\n'}), nil
}
