package anchor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashgraph-online/device-anchor-go/pkg/ledger"
	"github.com/hashgraph-online/device-anchor-go/pkg/merkle"
	"github.com/hashgraph-online/device-anchor-go/pkg/mirror"
	"github.com/hashgraph-online/device-anchor-go/pkg/proofstore"
	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
)

type LedgerVerification struct {
	LeafHash     string `json:"leafHash"`
	Root         string `json:"root"`
	PathValid    bool   `json:"pathValid"`
	AnchoredRoot string `json:"anchoredRoot,omitempty"`
	Anchored     bool   `json:"anchored"`
	// TransactionChecked is set when the reader could also confirm that the
	// proof's transaction submitted the message.
	TransactionChecked bool `json:"transactionChecked"`
}

type WindowVerification struct {
	Matches      bool   `json:"matches"`
	ComputedRoot string `json:"computedRoot"`
	ExpectedRoot string `json:"expectedRoot"`
	LeafCount    int    `json:"leafCount"`
}

// TransactionReader is implemented by readers that can look up the
// transaction record behind a consensus message, such as the mirror client.
type TransactionReader interface {
	GetTransaction(ctx context.Context, transactionID string) (mirror.Transaction, error)
}

const (
	transactionResultSuccess = "SUCCESS"
	transactionNameSubmit    = "CONSENSUSSUBMITMESSAGE"
)

type Verifier struct {
	topicID  string
	messages ledger.MessageReader
	proofs   ProofReader
}

// NewVerifier builds a Verifier that accepts anchors only from topicID.
// messages may be nil, in which case only path and window checks are
// available.
func NewVerifier(topicID string, messages ledger.MessageReader, proofs ProofReader) *Verifier {
	return &Verifier{topicID: strings.TrimSpace(topicID), messages: messages, proofs: proofs}
}

func (v *Verifier) Proof(ctx context.Context, leafHash string) (proofstore.MerkleProof, error) {
	if v.proofs == nil {
		return proofstore.MerkleProof{}, shared.NewConfigurationError("verifier has no proof store", nil)
	}
	return v.proofs.Get(ctx, leafHash)
}

// VerifyLeaf loads the stored proof for leafHash and checks it against the
// ledger.
func (v *Verifier) VerifyLeaf(ctx context.Context, leafHash string) (proofstore.MerkleProof, LedgerVerification, error) {
	proof, err := v.Proof(ctx, leafHash)
	if err != nil {
		return proofstore.MerkleProof{}, LedgerVerification{}, err
	}
	verification, err := v.VerifyOnLedger(ctx, proof)
	return proof, verification, err
}

// VerifyOnLedger checks that the proof path reaches its root and that the
// referenced consensus message, on the anchor topic, anchors that same root.
// When the reader is a TransactionReader the proof's transaction must also be
// the successful submission to that topic.
func (v *Verifier) VerifyOnLedger(ctx context.Context, proof proofstore.MerkleProof) (LedgerVerification, error) {
	verification := LedgerVerification{
		LeafHash:  proof.LeafHash,
		Root:      proof.Root,
		PathValid: proof.Verify(),
	}
	if proof.OriginalPayload != "" && merkle.LeafHashHex(proof.OriginalPayload) != strings.ToLower(proof.LeafHash) {
		verification.PathValid = false
	}
	if !verification.PathValid {
		return verification, nil
	}

	if v.messages == nil {
		return verification, shared.NewConfigurationError("verifier has no ledger reader", nil)
	}
	if v.topicID == "" {
		return verification, shared.NewConfigurationError("verifier has no anchor topic", nil)
	}
	topicID := strings.TrimSpace(proof.TopicID)
	if topicID == "" || proof.SequenceNumber == 0 {
		return verification, shared.NewValidationError("proof does not reference a ledger message")
	}
	if topicID != v.topicID {
		return verification, shared.NewValidationError(
			fmt.Sprintf("proof references topic %s, not the anchor topic %s", topicID, v.topicID),
		)
	}

	payload, err := v.messages.TopicMessage(ctx, topicID, proof.SequenceNumber)
	if err != nil {
		return verification, fmt.Errorf("failed to read anchor message: %w", err)
	}

	var message Message
	if err := json.Unmarshal(payload, &message); err != nil {
		return verification, nil
	}
	if message.Protocol != ProtocolID || message.Operation != OperationName {
		return verification, nil
	}

	verification.AnchoredRoot = message.Root
	if !strings.EqualFold(message.Root, proof.Root) {
		return verification, nil
	}

	transactions, ok := v.messages.(TransactionReader)
	if !ok {
		verification.Anchored = true
		return verification, nil
	}
	if strings.TrimSpace(proof.TransactionSignature) == "" {
		return verification, shared.NewValidationError("proof does not reference a transaction")
	}
	transaction, err := transactions.GetTransaction(ctx, proof.TransactionSignature)
	if err != nil {
		return verification, fmt.Errorf("failed to read anchor transaction: %w", err)
	}
	verification.TransactionChecked = true
	verification.Anchored = transaction.Result == transactionResultSuccess &&
		transaction.Name == transactionNameSubmit &&
		transaction.EntityID == topicID
	return verification, nil
}

// VerifyWindow recomputes the root over payloads, in the given order, and
// compares it with expectedRoot.
func (v *Verifier) VerifyWindow(payloads []string, expectedRoot string) (WindowVerification, error) {
	if len(payloads) == 0 {
		return WindowVerification{}, shared.NewValidationError("at least one reading is required")
	}
	expectedRoot = strings.ToLower(strings.TrimSpace(expectedRoot))
	if expectedRoot == "" {
		return WindowVerification{}, shared.NewValidationError("root is required")
	}

	computed, err := merkle.RecomputeRoot(payloads)
	if err != nil {
		return WindowVerification{}, shared.NewValidationError(err.Error())
	}

	return WindowVerification{
		Matches:      computed == expectedRoot,
		ComputedRoot: computed,
		ExpectedRoot: expectedRoot,
		LeafCount:    len(payloads),
	}, nil
}
