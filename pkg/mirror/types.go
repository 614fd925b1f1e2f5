package mirror

type TopicMessage struct {
	ConsensusTimestamp string `json:"consensus_timestamp"`
	Message            string `json:"message"`
	PayerAccountID     string `json:"payer_account_id"`
	RunningHash        string `json:"running_hash"`
	SequenceNumber     uint64 `json:"sequence_number"`
	TopicID            string `json:"topic_id"`
}

type Transaction struct {
	ConsensusTimestamp string `json:"consensus_timestamp"`
	EntityID           string `json:"entity_id"`
	MemoBase64         string `json:"memo_base64"`
	Name               string `json:"name"`
	Result             string `json:"result"`
	TransactionID      string `json:"transaction_id"`
}

type transactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}
