package ledger

import (
	"fmt"
	"strconv"
	"strings"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
)

func BuildMintTx(tokenID string, metadata []byte, transactionMemo string) (*hedera.TokenMintTransaction, error) {
	trimmedTokenID := strings.TrimSpace(tokenID)
	if trimmedTokenID == "" {
		return nil, shared.NewConfigurationError("identity token ID is required", nil)
	}
	parsedTokenID, err := hedera.TokenIDFromString(trimmedTokenID)
	if err != nil {
		return nil, shared.NewConfigurationError("invalid identity token ID", err)
	}
	if len(metadata) == 0 || len(metadata) > 100 {
		return nil, shared.NewValidationError("identity token metadata must be 1 to 100 bytes")
	}

	transaction := hedera.NewTokenMintTransaction().
		SetTokenID(parsedTokenID).
		SetMetadata(metadata)

	if strings.TrimSpace(transactionMemo) != "" {
		transaction.SetTransactionMemo(transactionMemo)
	}

	return transaction, nil
}

func BuildNftTransferTx(
	tokenAddress string,
	fromAccountID string,
	toAccountID string,
	transactionMemo string,
) (*hedera.TransferTransaction, error) {
	nftID, err := ParseTokenAddress(tokenAddress)
	if err != nil {
		return nil, err
	}
	from, err := hedera.AccountIDFromString(strings.TrimSpace(fromAccountID))
	if err != nil {
		return nil, shared.NewConfigurationError("invalid custody account ID", err)
	}
	to, err := ParseOwnerAddress(toAccountID)
	if err != nil {
		return nil, err
	}
	if from.String() == to.String() {
		return nil, shared.NewValidationError("owner must differ from the custody account")
	}

	transaction := hedera.NewTransferTransaction().AddNftTransfer(nftID, from, to)
	if strings.TrimSpace(transactionMemo) != "" {
		transaction.SetTransactionMemo(transactionMemo)
	}

	return transaction, nil
}

func BuildAnchorSubmitTx(topicID string, payload []byte, transactionMemo string) (*hedera.TopicMessageSubmitTransaction, error) {
	trimmedTopicID := strings.TrimSpace(topicID)
	if trimmedTopicID == "" {
		return nil, shared.NewConfigurationError("anchor topic ID is required", nil)
	}
	parsedTopicID, err := hedera.TopicIDFromString(trimmedTopicID)
	if err != nil {
		return nil, shared.NewConfigurationError("invalid anchor topic ID", err)
	}
	if len(payload) == 0 {
		return nil, shared.NewValidationError("anchor payload is required")
	}

	transaction := hedera.NewTopicMessageSubmitTransaction().
		SetTopicID(parsedTopicID).
		SetMessage(payload)

	if strings.TrimSpace(transactionMemo) != "" {
		transaction.SetTransactionMemo(transactionMemo)
	}

	return transaction, nil
}

// FormatTokenAddress renders an identity token address.
func FormatTokenAddress(tokenID hedera.TokenID, serial int64) string {
	return fmt.Sprintf("%d@%s", serial, tokenID.String())
}

// ParseTokenAddress parses "<serial>@<tokenID>".
func ParseTokenAddress(tokenAddress string) (hedera.NftID, error) {
	serialPart, tokenPart, ok := strings.Cut(strings.TrimSpace(tokenAddress), "@")
	if !ok {
		return hedera.NftID{}, shared.NewValidationError("identity token address must be <serial>@<tokenID>")
	}
	serial, err := strconv.ParseInt(serialPart, 10, 64)
	if err != nil || serial <= 0 {
		return hedera.NftID{}, shared.NewValidationError("identity token serial must be a positive integer")
	}
	tokenID, err := hedera.TokenIDFromString(tokenPart)
	if err != nil {
		return hedera.NftID{}, shared.NewValidationError("invalid identity token ID")
	}
	return hedera.NftID{TokenID: tokenID, SerialNumber: serial}, nil
}

// ParseOwnerAddress parses an owner wallet account ID.
func ParseOwnerAddress(owner string) (hedera.AccountID, error) {
	trimmed := strings.TrimSpace(owner)
	if trimmed == "" {
		return hedera.AccountID{}, shared.NewValidationError("owner wallet address is required")
	}
	accountID, err := hedera.AccountIDFromString(trimmed)
	if err != nil {
		return hedera.AccountID{}, shared.NewValidationError("invalid owner wallet address")
	}
	return accountID, nil
}
