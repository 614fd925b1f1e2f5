package proofstore

import "github.com/hashgraph-online/device-anchor-go/pkg/merkle"

const (
	CacheKeyPrefix  = "proof:"
	BlobPathPrefix  = "proofs/"
	BlobContentType = "application/json"
)

// MerkleProof ties one reading to an anchored root. TopicID and
// SequenceNumber locate the anchor message on the ledger.
type MerkleProof struct {
	Root                 string             `json:"root"`
	Proof                []merkle.ProofStep `json:"proof"`
	TransactionSignature string             `json:"transactionSignature"`
	OriginalPayload      string             `json:"originalPayload"`
	LeafHash             string             `json:"leafHash"`
	TopicID              string             `json:"topicId,omitempty"`
	SequenceNumber       uint64             `json:"sequenceNumber,omitempty"`
}

// Verify checks the proof path against its own root.
func (p MerkleProof) Verify() bool {
	return merkle.VerifyProof(p.LeafHash, p.Proof, p.Root)
}

func CacheKey(leafHash string) string {
	return CacheKeyPrefix + leafHash
}

func BlobPath(leafHash string) string {
	return BlobPathPrefix + leafHash + ".json"
}
