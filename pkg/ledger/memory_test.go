package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
)

func TestMemoryMintAndTransfer(t *testing.T) {
	client := NewMemoryClient()
	ctx := context.Background()

	first, err := client.MintIdentityToken(ctx, []byte("sensor-id:a"))
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	second, _ := client.MintIdentityToken(ctx, []byte("sensor-id:b"))
	if first.TokenAddress == second.TokenAddress || first.TransactionID == second.TransactionID {
		t.Fatalf("mints must be distinct: %+v %+v", first, second)
	}
	if owner, _ := client.OwnerOf(first.TokenAddress); owner != client.CustodyAccount() {
		t.Fatalf("new token should be in custody, owner=%s", owner)
	}

	if _, err := client.TransferToken(ctx, first.TokenAddress, "0.0.7777"); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if owner, _ := client.OwnerOf(first.TokenAddress); owner != "0.0.7777" {
		t.Fatalf("unexpected owner %s", owner)
	}
	if _, err := client.TransferToken(ctx, first.TokenAddress, "0.0.8888"); err == nil {
		t.Fatal("custody no longer holds the token, second transfer must fail")
	}
}

func TestMemorySubmitAndRead(t *testing.T) {
	client := NewMemoryClient()
	ctx := context.Background()

	receipt, err := client.SubmitMemo(ctx, []byte("root"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if receipt.SequenceNumber != 1 || receipt.TopicID != DefaultMemoryTopic {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	message, err := client.TopicMessage(ctx, receipt.TopicID, receipt.SequenceNumber)
	if err != nil || string(message) != "root" {
		t.Fatalf("unexpected message %q err=%v", message, err)
	}
	if _, err := client.TopicMessage(ctx, receipt.TopicID, 2); !shared.IsCode(err, shared.ErrorCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryInjectedFailureAndCancellation(t *testing.T) {
	client := NewMemoryClient()
	client.SubmitErr = shared.NewTransientError("network down", errors.New("unavailable"))

	if _, err := client.SubmitMemo(context.Background(), []byte("root")); !shared.IsCode(err, shared.ErrorCodeTransient) {
		t.Fatalf("expected injected transient error, got %v", err)
	}
	if client.MessageCount() != 0 {
		t.Fatal("failed submit must not record a message")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.MintIdentityToken(ctx, []byte("sensor-id:a")); !shared.IsCode(err, shared.ErrorCodeTransient) {
		t.Fatalf("expected transient error on cancelled context, got %v", err)
	}
}
