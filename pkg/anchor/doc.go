// Package anchor commits batches of queued readings to the ledger.
//
// A run leases the pending queue, builds a Merkle tree over the items in
// queue order, submits the root as one consensus message, waits for
// confirmation, then writes a proof for every leaf. Only when every proof is
// persisted is the lease committed. Any failure before that point moves the
// items back onto the pending queue in one write; if that move fails the run
// reports a fatal operator error and the items stay under the processing
// handle for RecoverStale.
//
// # Retries and Orphaned Proofs
//
// A failure after the ledger confirmed the root (while writing proofs)
// requeues the batch, so the same readings are anchored again under a new
// root on the next run. Proofs written by the failed attempt remain valid:
// they reference a confirmed anchor message. The retry overwrites them by
// leaf hash with proofs against the new root.
package anchor
