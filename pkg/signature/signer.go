package signature

import (
	"crypto/sha256"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// derSignature is the ASN.1 SEQUENCE { r INTEGER, s INTEGER } layout.
type derSignature struct {
	R *big.Int
	S *big.Int
}

// DeviceKey is a device-side key pair. The service never holds one; it backs
// the device simulator and tests.
type DeviceKey struct {
	privateKey *btcec.PrivateKey
}

func GenerateDeviceKey() (*DeviceKey, error) {
	privateKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate secp256k1 key: %w", err)
	}
	return &DeviceKey{privateKey: privateKey}, nil
}

func DeviceKeyFromHex(privateKeyHex string) (*DeviceKey, error) {
	raw, err := hex.DecodeString(privateKeyHex)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("device private key must be 32 bytes of hex")
	}
	privateKey, _ := btcec.PrivKeyFromBytes(raw)
	return &DeviceKey{privateKey: privateKey}, nil
}

func (k *DeviceKey) PrivateKeyHex() string {
	return hex.EncodeToString(k.privateKey.Serialize())
}

// PublicKeyHex returns the uncompressed 65-byte public key.
func (k *DeviceKey) PublicKeyHex() string {
	return hex.EncodeToString(k.privateKey.PubKey().SerializeUncompressed())
}

// Sign signs SHA-256(message) deterministically (RFC 6979).
func (k *DeviceKey) Sign(message []byte) (Signature, error) {
	digest := sha256.Sum256(message)
	signed := ecdsa.Sign(k.privateKey, digest[:])

	var parsed derSignature
	if _, err := asn1.Unmarshal(signed.Serialize(), &parsed); err != nil {
		return Signature{}, fmt.Errorf("failed to decode DER signature: %w", err)
	}

	return Signature{
		R: fmt.Sprintf("%064x", parsed.R),
		S: fmt.Sprintf("%064x", parsed.S),
	}, nil
}
