package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
)

const (
	DefaultMemoryCustody = "0.0.1001"
	DefaultMemoryToken   = "0.0.2002"
	DefaultMemoryTopic   = "0.0.3003"
)

// MemoryClient is an in-process ledger with the same validation and
// confirmation semantics as HederaClient. Failures can be injected per
// operation.
type MemoryClient struct {
	mu       sync.Mutex
	custody  hedera.AccountID
	tokenID  hedera.TokenID
	topicID  string
	serial   int64
	nonce    int64
	owners   map[string]string
	messages [][]byte

	MintErr     error
	TransferErr error
	SubmitErr   error
}

func NewMemoryClient() *MemoryClient {
	custody, _ := hedera.AccountIDFromString(DefaultMemoryCustody)
	tokenID, _ := hedera.TokenIDFromString(DefaultMemoryToken)
	return &MemoryClient{
		custody: custody,
		tokenID: tokenID,
		topicID: DefaultMemoryTopic,
		owners:  map[string]string{},
	}
}

func (m *MemoryClient) CustodyAccount() string {
	return m.custody.String()
}

func (m *MemoryClient) AnchorTopicID() string {
	return m.topicID
}

func (m *MemoryClient) MintIdentityToken(ctx context.Context, metadata []byte) (MintResult, error) {
	if _, err := BuildMintTx(m.tokenID.String(), metadata, mintMemo); err != nil {
		return MintResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return MintResult{}, shared.NewTransientError("mint confirmation abandoned", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MintErr != nil {
		return MintResult{}, m.MintErr
	}

	m.serial++
	address := FormatTokenAddress(m.tokenID, m.serial)
	m.owners[address] = m.custody.String()
	return MintResult{TokenAddress: address, TransactionID: m.nextTransactionID()}, nil
}

func (m *MemoryClient) TransferToken(ctx context.Context, tokenAddress string, owner string) (string, error) {
	if _, err := BuildNftTransferTx(tokenAddress, m.custody.String(), owner, transferMemo); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", shared.NewTransientError("transfer confirmation abandoned", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TransferErr != nil {
		return "", m.TransferErr
	}

	nftID, _ := ParseTokenAddress(tokenAddress)
	address := FormatTokenAddress(nftID.TokenID, nftID.SerialNumber)
	current, exists := m.owners[address]
	if !exists {
		return "", fmt.Errorf("transaction failed with status INVALID_NFT_ID")
	}
	if current != m.custody.String() {
		return "", fmt.Errorf("transaction failed with status SENDER_DOES_NOT_OWN_NFT_SERIAL_NO")
	}
	m.owners[address] = owner
	return m.nextTransactionID(), nil
}

func (m *MemoryClient) SubmitMemo(ctx context.Context, payload []byte) (MemoReceipt, error) {
	if _, err := BuildAnchorSubmitTx(m.topicID, payload, anchorMemo); err != nil {
		return MemoReceipt{}, err
	}
	if err := ctx.Err(); err != nil {
		return MemoReceipt{}, shared.NewTransientError("anchor confirmation abandoned", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return MemoReceipt{}, m.SubmitErr
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)
	m.messages = append(m.messages, stored)
	return MemoReceipt{
		TransactionID:  m.nextTransactionID(),
		TopicID:        m.topicID,
		SequenceNumber: uint64(len(m.messages)),
	}, nil
}

// TopicMessage returns a submitted memo by its 1-based sequence number.
func (m *MemoryClient) TopicMessage(ctx context.Context, topicID string, sequenceNumber uint64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if topicID != m.topicID || sequenceNumber == 0 || sequenceNumber > uint64(len(m.messages)) {
		return nil, shared.NewNotFoundError(fmt.Sprintf("message %d not found on topic %s", sequenceNumber, topicID))
	}
	return m.messages[sequenceNumber-1], nil
}

func (m *MemoryClient) OwnerOf(tokenAddress string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[tokenAddress]
	return owner, ok
}

func (m *MemoryClient) MessageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func (m *MemoryClient) nextTransactionID() string {
	m.nonce++
	validStart := time.Unix(1700000000, m.nonce)
	return fmt.Sprintf("%s@%d.%09d", m.custody.String(), validStart.Unix(), validStart.Nanosecond())
}
