package ledger

import "context"

type MintResult struct {
	TokenAddress  string `json:"tokenAddress"`
	TransactionID string `json:"transactionId"`
}

type MemoReceipt struct {
	TransactionID  string `json:"transactionId"`
	TopicID        string `json:"topicId"`
	SequenceNumber uint64 `json:"sequenceNumber"`
}

// Client submits transactions signed by the custody account and returns only
// after the network confirmed them.
type Client interface {
	MintIdentityToken(ctx context.Context, metadata []byte) (MintResult, error)
	// TransferToken moves one identity token from custody to owner.
	TransferToken(ctx context.Context, tokenAddress string, owner string) (string, error)
	SubmitMemo(ctx context.Context, payload []byte) (MemoReceipt, error)
	CustodyAccount() string
	// AnchorTopicID is the topic SubmitMemo writes to.
	AnchorTopicID() string
}

// MessageReader fetches a previously submitted memo by its topic position.
type MessageReader interface {
	TopicMessage(ctx context.Context, topicID string, sequenceNumber uint64) ([]byte, error)
}
