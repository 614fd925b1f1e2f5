package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

const (
	compactSignatureHexLength = 128
	rawPublicKeyLength        = 64
)

// Signature is an (r, s) pair in hex. Leading zeros may be omitted, as
// bignum libraries on devices usually drop them.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
}

// UnmarshalJSON accepts either {"r": "...", "s": "..."} or a single
// 128-character r||s hex string.
func (s *Signature) UnmarshalJSON(data []byte) error {
	var compact string
	if err := json.Unmarshal(data, &compact); err == nil {
		parsed, parseErr := ParseCompact(compact)
		if parseErr != nil {
			return parseErr
		}
		*s = parsed
		return nil
	}

	type plain Signature
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("signature must be an {r, s} object or r||s hex string: %w", err)
	}
	*s = Signature(decoded)
	return nil
}

// IsZero reports whether neither component was provided.
func (s Signature) IsZero() bool {
	return strings.TrimSpace(s.R) == "" && strings.TrimSpace(s.S) == ""
}

// ParseCompact splits a 64-byte r||s hex string.
func ParseCompact(value string) (Signature, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if len(trimmed) != compactSignatureHexLength {
		return Signature{}, fmt.Errorf("compact signature must be %d hex characters", compactSignatureHexLength)
	}
	half := compactSignatureHexLength / 2
	return Signature{R: trimmed[:half], S: trimmed[half:]}, nil
}

// ParsePublicKey accepts a compressed, uncompressed or raw X||Y secp256k1
// public key in hex.
func ParsePublicKey(publicKeyHex string) (*btcec.PublicKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(publicKeyHex), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("public key must be hex: %w", err)
	}
	if len(raw) == rawPublicKeyLength {
		raw = append([]byte{0x04}, raw...)
	}

	publicKey, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid secp256k1 public key: %w", err)
	}
	return publicKey, nil
}

// NormalizePublicKey returns the device primary key: the 33-byte compressed
// encoding in lower-case hex, whichever encoding the device sent. Input that
// is not a valid key is only trimmed and lower-cased, and is rejected later
// by ParsePublicKey.
func NormalizePublicKey(publicKeyHex string) string {
	publicKey, err := ParsePublicKey(publicKeyHex)
	if err != nil {
		return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(publicKeyHex), "0x"))
	}
	return hex.EncodeToString(publicKey.SerializeCompressed())
}

// VerifyMessage verifies a signature over SHA-256(message).
func VerifyMessage(publicKeyHex string, message []byte, signature Signature) (bool, error) {
	digest := sha256.Sum256(message)
	return VerifyHash(publicKeyHex, digest[:], signature)
}

// VerifyHash verifies a signature over an already computed digest. An error
// means the inputs were malformed; a false result means the signature does
// not match.
func VerifyHash(publicKeyHex string, digest []byte, signature Signature) (bool, error) {
	publicKey, err := ParsePublicKey(publicKeyHex)
	if err != nil {
		return false, err
	}

	r, err := parseScalar("r", signature.R)
	if err != nil {
		return false, err
	}
	s, err := parseScalar("s", signature.S)
	if err != nil {
		return false, err
	}

	return ecdsa.NewSignature(r, s).Verify(digest, publicKey), nil
}

func parseScalar(name string, value string) (*btcec.ModNScalar, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("signature %s is required", name)
	}
	if len(trimmed)%2 == 1 {
		trimmed = "0" + trimmed
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("signature %s must be hex: %w", name, err)
	}
	if len(raw) > 32 {
		return nil, fmt.Errorf("signature %s is longer than 32 bytes", name)
	}

	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow {
		return nil, fmt.Errorf("signature %s is not below the curve order", name)
	}
	if scalar.IsZero() {
		return nil, fmt.Errorf("signature %s must not be zero", name)
	}
	return &scalar, nil
}
