// Package merkle builds the SHA-256 Merkle trees whose roots are anchored on
// the ledger, produces per-leaf inclusion proofs and verifies them.
//
// # Tree Construction
//
// A leaf is SHA-256 of the raw reading payload. An inner node is SHA-256 of
// the concatenation left||right with no domain-separation prefix. When a level
// has an odd number of nodes the last node is promoted to the next level
// unchanged; it is never duplicated, so a promoted node contributes no proof
// step at that level.
//
// Leaves keep the order in which readings were queued. The root is therefore
// order-sensitive: the same payloads in a different order produce a different
// root, and RecomputeRoot must be given readings in their original order.
package merkle
