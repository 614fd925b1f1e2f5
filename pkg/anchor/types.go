package anchor

import (
	"context"

	"github.com/hashgraph-online/device-anchor-go/pkg/proofstore"
)

const (
	ProtocolID    = "device-anchor"
	OperationName = "anchor"
)

// Message is the consensus message carrying a batch root.
type Message struct {
	Protocol  string `json:"p"`
	Operation string `json:"op"`
	Root      string `json:"root"`
	Leaves    int    `json:"leaves"`
}

type Result struct {
	Anchored             bool     `json:"anchored"`
	Root                 string   `json:"root,omitempty"`
	TransactionSignature string   `json:"transactionSignature,omitempty"`
	TopicID              string   `json:"topicId,omitempty"`
	SequenceNumber       uint64   `json:"sequenceNumber,omitempty"`
	LeafCount            int      `json:"leafCount"`
	LeafHashes           []string `json:"leafHashes,omitempty"`
}

type ProofWriter interface {
	Put(ctx context.Context, leafHash string, proof proofstore.MerkleProof) error
}

type ProofReader interface {
	Get(ctx context.Context, leafHash string) (proofstore.MerkleProof, error)
}
