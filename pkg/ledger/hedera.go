package ledger

import (
	"context"
	"fmt"
	"strings"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
	"github.com/rs/zerolog"

	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
)

const (
	mintMemo     = "device-anchor:identity-mint"
	transferMemo = "device-anchor:identity-claim"
	anchorMemo   = "device-anchor:anchor"
)

type HederaConfig struct {
	Network            string
	OperatorAccountID  string
	OperatorPrivateKey string
	IdentityTokenID    string
	SupplyKey          string
	AnchorTopicID      string
	Logger             *zerolog.Logger
}

type HederaClient struct {
	hederaClient      *hedera.Client
	operatorAccountID hedera.AccountID
	supplyKey         *hedera.PrivateKey
	identityTokenID   string
	anchorTopicID     string
	logger            zerolog.Logger
}

func NewHederaClient(config HederaConfig) (*HederaClient, error) {
	hederaClient, accountID, _, err := shared.NewOperatorClient(
		config.Network,
		config.OperatorAccountID,
		config.OperatorPrivateKey,
	)
	if err != nil {
		return nil, shared.NewConfigurationError("failed to create ledger client", err)
	}
	if _, err := hedera.TokenIDFromString(strings.TrimSpace(config.IdentityTokenID)); err != nil {
		_ = hederaClient.Close()
		return nil, shared.NewConfigurationError("invalid identity token ID", err)
	}
	if _, err := hedera.TopicIDFromString(strings.TrimSpace(config.AnchorTopicID)); err != nil {
		_ = hederaClient.Close()
		return nil, shared.NewConfigurationError("invalid anchor topic ID", err)
	}

	var supplyKey *hedera.PrivateKey
	if strings.TrimSpace(config.SupplyKey) != "" {
		parsed, parseErr := shared.ParsePrivateKey(config.SupplyKey)
		if parseErr != nil {
			_ = hederaClient.Close()
			return nil, shared.NewConfigurationError("invalid identity supply key", parseErr)
		}
		supplyKey = &parsed
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &HederaClient{
		hederaClient:      hederaClient,
		operatorAccountID: accountID,
		supplyKey:         supplyKey,
		identityTokenID:   strings.TrimSpace(config.IdentityTokenID),
		anchorTopicID:     strings.TrimSpace(config.AnchorTopicID),
		logger:            logger.With().Str("component", "ledger").Logger(),
	}, nil
}

func (c *HederaClient) CustodyAccount() string {
	return c.operatorAccountID.String()
}

func (c *HederaClient) AnchorTopicID() string {
	return c.anchorTopicID
}

func (c *HederaClient) Close() error {
	return c.hederaClient.Close()
}

func (c *HederaClient) MintIdentityToken(ctx context.Context, metadata []byte) (MintResult, error) {
	transaction, err := BuildMintTx(c.identityTokenID, metadata, mintMemo)
	if err != nil {
		return MintResult{}, err
	}

	frozenTransaction, err := transaction.FreezeWith(c.hederaClient)
	if err != nil {
		return MintResult{}, fmt.Errorf("failed to freeze mint transaction: %w", err)
	}
	if c.supplyKey != nil {
		frozenTransaction = frozenTransaction.Sign(*c.supplyKey)
	}

	response, err := hedera.TransactionExecute(frozenTransaction, c.hederaClient)
	if err != nil {
		return MintResult{}, shared.NewTransientError("failed to execute mint transaction", err)
	}
	receipt, err := c.awaitReceipt(ctx, response)
	if err != nil {
		return MintResult{}, err
	}
	if len(receipt.SerialNumbers) == 0 {
		return MintResult{}, fmt.Errorf("mint receipt did not include a serial number")
	}

	tokenID, _ := hedera.TokenIDFromString(c.identityTokenID)
	result := MintResult{
		TokenAddress:  FormatTokenAddress(tokenID, receipt.SerialNumbers[0]),
		TransactionID: response.TransactionID.String(),
	}
	c.logger.Info().
		Str("tokenAddress", result.TokenAddress).
		Str("transactionId", result.TransactionID).
		Msg("identity token minted")
	return result, nil
}

func (c *HederaClient) TransferToken(ctx context.Context, tokenAddress string, owner string) (string, error) {
	transaction, err := BuildNftTransferTx(tokenAddress, c.CustodyAccount(), owner, transferMemo)
	if err != nil {
		return "", err
	}

	response, err := transaction.Execute(c.hederaClient)
	if err != nil {
		return "", shared.NewTransientError("failed to execute identity token transfer", err)
	}
	if _, err := c.awaitReceipt(ctx, response); err != nil {
		return "", err
	}

	c.logger.Info().
		Str("tokenAddress", tokenAddress).
		Str("owner", owner).
		Str("transactionId", response.TransactionID.String()).
		Msg("identity token transferred")
	return response.TransactionID.String(), nil
}

func (c *HederaClient) SubmitMemo(ctx context.Context, payload []byte) (MemoReceipt, error) {
	transaction, err := BuildAnchorSubmitTx(c.anchorTopicID, payload, anchorMemo)
	if err != nil {
		return MemoReceipt{}, err
	}

	response, err := transaction.Execute(c.hederaClient)
	if err != nil {
		return MemoReceipt{}, shared.NewTransientError("failed to submit anchor message", err)
	}
	receipt, err := c.awaitReceipt(ctx, response)
	if err != nil {
		return MemoReceipt{}, err
	}

	return MemoReceipt{
		TransactionID:  response.TransactionID.String(),
		TopicID:        c.anchorTopicID,
		SequenceNumber: receipt.TopicSequenceNumber,
	}, nil
}

// awaitReceipt waits for consensus. The SDK call is not cancellable, so a
// done context abandons the wait and reports a transient failure; the
// transaction itself may still reach consensus.
func (c *HederaClient) awaitReceipt(ctx context.Context, response hedera.TransactionResponse) (hedera.TransactionReceipt, error) {
	type result struct {
		receipt hedera.TransactionReceipt
		err     error
	}
	done := make(chan result, 1)
	go func() {
		receipt, err := response.GetReceipt(c.hederaClient)
		done <- result{receipt: receipt, err: err}
	}()

	select {
	case <-ctx.Done():
		return hedera.TransactionReceipt{}, shared.NewTransientError(
			fmt.Sprintf("confirmation of %s timed out", response.TransactionID.String()),
			ctx.Err(),
		)
	case outcome := <-done:
		if outcome.err != nil {
			return hedera.TransactionReceipt{}, shared.NewTransientError("failed to get transaction receipt", outcome.err)
		}
		if outcome.receipt.Status.String() != "SUCCESS" {
			return hedera.TransactionReceipt{}, fmt.Errorf("transaction failed with status %s", outcome.receipt.Status.String())
		}
		return outcome.receipt, nil
	}
}
