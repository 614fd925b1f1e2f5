package ledger

import (
	"context"
	"fmt"
	"strings"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
)

type CollectionOptions struct {
	Name      string
	Symbol    string
	MaxSupply int64
	TopicMemo string
}

// Provisioned holds the ledger objects the service needs. SupplyKey is the
// generated ED25519 supply key in string form.
type Provisioned struct {
	IdentityTokenID string `json:"identityTokenId"`
	SupplyKey       string `json:"supplyKey"`
	AnchorTopicID   string `json:"anchorTopicId"`
}

// ProvisionCollection creates the identity NFT collection, treasury held by
// the operator, and the anchor topic, submit key held by the operator.
func ProvisionCollection(
	ctx context.Context,
	network string,
	operatorAccountID string,
	operatorPrivateKey string,
	options CollectionOptions,
) (Provisioned, error) {
	hederaClient, accountID, operatorKey, err := shared.NewOperatorClient(network, operatorAccountID, operatorPrivateKey)
	if err != nil {
		return Provisioned{}, err
	}
	defer hederaClient.Close()

	if strings.TrimSpace(options.Name) == "" {
		options.Name = "Device Identity"
	}
	if strings.TrimSpace(options.Symbol) == "" {
		options.Symbol = "DEVID"
	}
	if options.MaxSupply <= 0 {
		options.MaxSupply = 100000
	}
	if strings.TrimSpace(options.TopicMemo) == "" {
		options.TopicMemo = "device-anchor roots"
	}

	supplyKey, err := hedera.PrivateKeyGenerateEd25519()
	if err != nil {
		return Provisioned{}, fmt.Errorf("failed to generate supply key: %w", err)
	}

	createToken, err := hedera.NewTokenCreateTransaction().
		SetTokenName(options.Name).
		SetTokenSymbol(options.Symbol).
		SetTokenType(hedera.TokenTypeNonFungibleUnique).
		SetSupplyType(hedera.TokenSupplyTypeFinite).
		SetMaxSupply(options.MaxSupply).
		SetInitialSupply(0).
		SetDecimals(0).
		SetTreasuryAccountID(accountID).
		SetAutoRenewAccount(accountID).
		SetAdminKey(operatorKey.PublicKey()).
		SetSupplyKey(supplyKey.PublicKey()).
		Execute(hederaClient)
	if err != nil {
		return Provisioned{}, fmt.Errorf("failed to execute token create transaction: %w", err)
	}
	tokenReceipt, err := createToken.GetReceipt(hederaClient)
	if err != nil {
		return Provisioned{}, fmt.Errorf("failed to get token create receipt: %w", err)
	}
	if tokenReceipt.TokenID == nil {
		return Provisioned{}, fmt.Errorf("token create receipt did not include token ID")
	}

	if err := ctx.Err(); err != nil {
		return Provisioned{}, err
	}

	createTopic, err := hedera.NewTopicCreateTransaction().
		SetTopicMemo(options.TopicMemo).
		SetSubmitKey(operatorKey.PublicKey()).
		Execute(hederaClient)
	if err != nil {
		return Provisioned{}, fmt.Errorf("failed to create anchor topic: %w", err)
	}
	topicReceipt, err := createTopic.GetReceipt(hederaClient)
	if err != nil {
		return Provisioned{}, fmt.Errorf("failed to get create topic receipt: %w", err)
	}
	if topicReceipt.TopicID == nil {
		return Provisioned{}, fmt.Errorf("create topic receipt did not include topic ID")
	}

	return Provisioned{
		IdentityTokenID: tokenReceipt.TokenID.String(),
		SupplyKey:       supplyKey.String(),
		AnchorTopicID:   topicReceipt.TopicID.String(),
	}, nil
}
