package shared

import (
	"fmt"
	"strings"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
)

const (
	NetworkMainnet    = "mainnet"
	NetworkTestnet    = "testnet"
	NetworkPreviewnet = "previewnet"
)

// NormalizeNetwork lower-cases and validates a network name. Empty means testnet.
func NormalizeNetwork(network string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(network))
	if normalized == "" {
		return NetworkTestnet, nil
	}

	switch normalized {
	case NetworkMainnet, NetworkTestnet, NetworkPreviewnet:
		return normalized, nil
	default:
		return "", NewConfigurationError(fmt.Sprintf("unsupported network %q", network), nil)
	}
}

// NewHederaClient creates a Hedera client for the given network.
func NewHederaClient(network string) (*hedera.Client, error) {
	normalized, err := NormalizeNetwork(network)
	if err != nil {
		return nil, err
	}

	switch normalized {
	case NetworkMainnet:
		return hedera.ClientForMainnet(), nil
	case NetworkPreviewnet:
		return hedera.ClientForPreviewnet(), nil
	default:
		return hedera.ClientForTestnet(), nil
	}
}

// NewOperatorClient creates a Hedera client with the custody account set as
// the paying and signing operator.
func NewOperatorClient(network string, accountID string, privateKey string) (*hedera.Client, hedera.AccountID, hedera.PrivateKey, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, hedera.AccountID{}, hedera.PrivateKey{}, NewConfigurationError("operator account ID is required", nil)
	}

	operatorID, err := hedera.AccountIDFromString(strings.TrimSpace(accountID))
	if err != nil {
		return nil, hedera.AccountID{}, hedera.PrivateKey{}, NewConfigurationError("invalid operator account ID", err)
	}
	operatorKey, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, hedera.AccountID{}, hedera.PrivateKey{}, err
	}

	client, err := NewHederaClient(network)
	if err != nil {
		return nil, hedera.AccountID{}, hedera.PrivateKey{}, err
	}
	client.SetOperator(operatorID, operatorKey)

	return client, operatorID, operatorKey, nil
}

// ParsePrivateKey parses an ED25519 or ECDSA private key in any encoding the
// Hedera SDK understands.
func ParsePrivateKey(raw string) (hedera.PrivateKey, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return hedera.PrivateKey{}, NewConfigurationError("private key cannot be empty", nil)
	}

	ed25519Key, edErr := hedera.PrivateKeyFromStringEd25519(candidate)
	if edErr == nil {
		return ed25519Key, nil
	}

	ecdsaKey, ecdsaErr := hedera.PrivateKeyFromStringECDSA(candidate)
	if ecdsaErr == nil {
		return ecdsaKey, nil
	}

	genericKey, genericErr := hedera.PrivateKeyFromString(candidate)
	if genericErr == nil {
		return genericKey, nil
	}

	return hedera.PrivateKey{}, NewConfigurationError(fmt.Sprintf(
		"failed to parse private key as ED25519 (%v), ECDSA (%v), or generic (%v)",
		edErr,
		ecdsaErr,
		genericErr,
	), nil)
}
