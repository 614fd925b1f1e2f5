// Package signature verifies the secp256k1 ECDSA signatures produced by
// sensors: over registration challenges, over revocation messages and over
// reading payloads. Signing always happens on the device; the service only
// verifies.
package signature
