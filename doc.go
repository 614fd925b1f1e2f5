// Device Anchor for Go registers IoT devices as Hedera identity tokens and
// anchors their signed readings to the public ledger in Merkle batches.
//
// # Packages
//
//   - identity: challenge/response registration, ownership claims, revocation
//   - readings: signed reading ingestion into the pending queue
//   - anchor: batch anchoring job and proof verification
//   - ledger: Hedera NFT mint, NFT transfer and topic message submission
//   - mirror: mirror node reads used to verify anchors
//   - merkle: leaf hashing, trees, proofs and canonical JSON
//   - proofstore: proofs in a TTL cache backed by a durable blob store
//   - server: the JSON HTTP API
//
// # Programs
//
//   - examples/anchor-service: the HTTP service with scheduled anchoring
//   - examples/device-simulator: a device that registers and sends readings
//   - examples/create-identity-collection: creates the NFT collection and topic
//
// # Installation
//
//	go get github.com/hashgraph-online/device-anchor-go@latest
package device_anchor_go
