package ledger

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
)

func TestHederaIntegration_MintTransferAnchor(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION") != "1" {
		t.Skip("set RUN_INTEGRATION=1 to run live integration tests")
	}

	network, err := shared.NormalizeNetwork(os.Getenv("HEDERA_NETWORK"))
	if err != nil {
		t.Fatalf("invalid network: %v", err)
	}
	if network == shared.NetworkMainnet && os.Getenv("ALLOW_MAINNET_INTEGRATION") != "1" {
		t.Skip("resolved mainnet network; set ALLOW_MAINNET_INTEGRATION=1 to allow live mainnet writes")
	}
	accountID := strings.TrimSpace(os.Getenv("HEDERA_ACCOUNT_ID"))
	privateKey := strings.TrimSpace(os.Getenv("HEDERA_PRIVATE_KEY"))
	owner := strings.TrimSpace(os.Getenv("INTEGRATION_OWNER_ACCOUNT_ID"))
	if accountID == "" || privateKey == "" {
		t.Skip("HEDERA_ACCOUNT_ID and HEDERA_PRIVATE_KEY are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	provisioned, err := ProvisionCollection(ctx, network, accountID, privateKey, CollectionOptions{
		Name:      "device-anchor-integration",
		Symbol:    "DAIT",
		MaxSupply: 10,
	})
	if err != nil {
		t.Fatalf("provisioning failed: %v", err)
	}
	t.Logf("provisioned %+v", provisioned)

	client, err := NewHederaClient(HederaConfig{
		Network:            network,
		OperatorAccountID:  accountID,
		OperatorPrivateKey: privateKey,
		IdentityTokenID:    provisioned.IdentityTokenID,
		SupplyKey:          provisioned.SupplyKey,
		AnchorTopicID:      provisioned.AnchorTopicID,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	minted, err := client.MintIdentityToken(ctx, []byte("sensor-id:integration"))
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if !strings.HasSuffix(minted.TokenAddress, "@"+provisioned.IdentityTokenID) {
		t.Fatalf("unexpected token address %s", minted.TokenAddress)
	}

	receipt, err := client.SubmitMemo(ctx, []byte(`{"p":"device-anchor","op":"anchor","root":"00","leaves":1}`))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if receipt.SequenceNumber == 0 {
		t.Fatalf("expected a sequence number, got %+v", receipt)
	}

	if owner == "" {
		t.Log("INTEGRATION_OWNER_ACCOUNT_ID not set; skipping transfer")
		return
	}
	if _, err := client.TransferToken(ctx, minted.TokenAddress, owner); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
}
