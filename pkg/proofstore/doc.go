// Package proofstore persists per-reading Merkle proofs in two tiers: an
// expiring cache copy and a permanent blob copy, both addressed by leaf hash.
//
// Reads check the cache first and, on a miss, fall back to the blob store
// and write the proof back into the cache with the standard TTL.
package proofstore
