package identity

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hashgraph-online/device-anchor-go/pkg/devices"
	"github.com/hashgraph-online/device-anchor-go/pkg/ledger"
	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
	"github.com/hashgraph-online/device-anchor-go/pkg/signature"
	"github.com/hashgraph-online/device-anchor-go/pkg/storage"
)

const testMAC = "AA:BB:CC:DD:EE:FF"

type fixture struct {
	service   *Service
	directory *devices.LevelDirectory
	ledger    *ledger.MemoryClient
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	directory := devices.NewLevelDirectory(db)
	memory := ledger.NewMemoryClient()
	service, err := NewService(Config{Directory: directory, Ledger: memory})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return fixture{service: service, directory: directory, ledger: memory}
}

func newDeviceKey(t *testing.T) *signature.DeviceKey {
	t.Helper()
	key, err := signature.GenerateDeviceKey()
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}
	return key
}

func sign(t *testing.T, key *signature.DeviceKey, message string) signature.Signature {
	t.Helper()
	sig, err := key.Sign([]byte(message))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return sig
}

func register(t *testing.T, f fixture, key *signature.DeviceKey) Registration {
	t.Helper()
	ctx := context.Background()
	challenge, err := f.service.IssueChallenge(ctx, testMAC, key.PublicKeyHex())
	if err != nil {
		t.Fatalf("IssueChallenge failed: %v", err)
	}
	registration, err := f.service.VerifyChallenge(ctx, key.PublicKeyHex(), challenge, sign(t, key, challenge))
	if err != nil {
		t.Fatalf("VerifyChallenge failed: %v", err)
	}
	return registration
}

func TestRegistrationMintsTokenAndClaimTokenOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := newDeviceKey(t)

	challenge, err := f.service.IssueChallenge(ctx, testMAC, key.PublicKeyHex())
	if err != nil {
		t.Fatalf("IssueChallenge failed: %v", err)
	}
	if len(challenge) != 64 {
		t.Fatalf("expected 32-byte hex nonce, got %q", challenge)
	}

	device, _ := f.directory.Get(ctx, key.PublicKeyHex())
	if device.State() != devices.StateChallengeIssued || device.MACAddress != testMAC {
		t.Fatalf("unexpected device after challenge: %+v", device)
	}

	registration, err := f.service.VerifyChallenge(ctx, key.PublicKeyHex(), challenge, sign(t, key, challenge))
	if err != nil {
		t.Fatalf("VerifyChallenge failed: %v", err)
	}
	if registration.IdentityTokenAddress == "" || registration.MintTransactionID == "" {
		t.Fatalf("expected minted identity token, got %+v", registration)
	}
	if len(registration.ClaimToken) != 32 {
		t.Fatalf("expected 16-byte hex claim token, got %q", registration.ClaimToken)
	}
	if owner, _ := f.ledger.OwnerOf(registration.IdentityTokenAddress); owner != f.ledger.CustodyAccount() {
		t.Fatalf("minted token should be in custody, owner=%s", owner)
	}

	device, _ = f.directory.Get(ctx, key.PublicKeyHex())
	if device.State() != devices.StateIdentityVerified || device.ChallengeNonce != "" {
		t.Fatalf("unexpected device after verification: %+v", device)
	}

	second, err := f.service.IssueChallenge(ctx, testMAC, key.PublicKeyHex())
	if err != nil {
		t.Fatalf("IssueChallenge failed: %v", err)
	}
	reauth, err := f.service.VerifyChallenge(ctx, key.PublicKeyHex(), second, sign(t, key, second))
	if err != nil {
		t.Fatalf("re-authentication failed: %v", err)
	}
	if reauth.IdentityTokenAddress != registration.IdentityTokenAddress {
		t.Fatalf("re-authentication must keep the token, got %s", reauth.IdentityTokenAddress)
	}
	if reauth.ClaimToken != "" {
		t.Fatal("re-authentication must not return a claim token")
	}
}

func TestKeyEncodingsShareOneDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := newDeviceKey(t)
	registration := register(t, f, key)

	parsed, err := signature.ParsePublicKey(key.PublicKeyHex())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	compressed := hex.EncodeToString(parsed.SerializeCompressed())

	challenge, err := f.service.IssueChallenge(ctx, testMAC, compressed)
	if err != nil {
		t.Fatalf("IssueChallenge with compressed key failed: %v", err)
	}
	reauth, err := f.service.VerifyChallenge(ctx, compressed, challenge, sign(t, key, challenge))
	if err != nil {
		t.Fatalf("VerifyChallenge with compressed key failed: %v", err)
	}
	if reauth.IdentityTokenAddress != registration.IdentityTokenAddress || reauth.ClaimToken != "" {
		t.Fatalf("compressed key must re-authenticate the same device, got %+v", reauth)
	}

	device, err := f.directory.Get(ctx, key.PublicKeyHex())
	if err != nil || device.PublicKey != compressed {
		t.Fatalf("device should be stored under the compressed key, got %q err=%v", device.PublicKey, err)
	}
	if string(IdentityMetadata(compressed)) != string(IdentityMetadata(key.PublicKeyHex())) {
		t.Fatal("metadata must not depend on the key encoding")
	}
}

func TestChallengeIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := newDeviceKey(t)

	challenge, _ := f.service.IssueChallenge(ctx, testMAC, key.PublicKeyHex())
	sig := sign(t, key, challenge)
	if _, err := f.service.VerifyChallenge(ctx, key.PublicKeyHex(), challenge, sig); err != nil {
		t.Fatalf("VerifyChallenge failed: %v", err)
	}

	_, err := f.service.VerifyChallenge(ctx, key.PublicKeyHex(), challenge, sig)
	if !shared.IsCode(err, shared.ErrorCodeNotFound) {
		t.Fatalf("expected replay to be not found, got %v", err)
	}
}

func TestReissuedChallengeInvalidatesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := newDeviceKey(t)

	first, _ := f.service.IssueChallenge(ctx, testMAC, key.PublicKeyHex())
	if _, err := f.service.IssueChallenge(ctx, testMAC, key.PublicKeyHex()); err != nil {
		t.Fatalf("reissue failed: %v", err)
	}

	_, err := f.service.VerifyChallenge(ctx, key.PublicKeyHex(), first, sign(t, key, first))
	if !shared.IsCode(err, shared.ErrorCodeNotFound) {
		t.Fatalf("expected stale challenge to be not found, got %v", err)
	}
}

func TestVerifyChallengeRejectsWrongSigner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := newDeviceKey(t)
	impostor := newDeviceKey(t)

	challenge, _ := f.service.IssueChallenge(ctx, testMAC, key.PublicKeyHex())
	_, err := f.service.VerifyChallenge(ctx, key.PublicKeyHex(), challenge, sign(t, impostor, challenge))
	if !shared.IsCode(err, shared.ErrorCodeAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}

	if _, err := f.service.VerifyChallenge(ctx, key.PublicKeyHex(), challenge, sign(t, key, challenge)); err != nil {
		t.Fatalf("a failed attempt must not burn the challenge: %v", err)
	}
}

func TestVerifyChallengeUnknownDevice(t *testing.T) {
	f := newFixture(t)
	key := newDeviceKey(t)
	_, err := f.service.VerifyChallenge(context.Background(), key.PublicKeyHex(), "abcd", sign(t, key, "abcd"))
	if !shared.IsCode(err, shared.ErrorCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConcurrentReplayMintsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := newDeviceKey(t)

	challenge, _ := f.service.IssueChallenge(ctx, testMAC, key.PublicKeyHex())
	sig := sign(t, key, challenge)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.VerifyChallenge(ctx, key.PublicKeyHex(), challenge, sig)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else if !shared.IsCode(err, shared.ErrorCodeNotFound) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}

	other := newDeviceKey(t)
	next := register(t, f, other)
	if !strings.HasPrefix(next.IdentityTokenAddress, "2@") {
		t.Fatalf("expected only one earlier mint, next token is %s", next.IdentityTokenAddress)
	}
}

func TestMintFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := newDeviceKey(t)
	f.ledger.MintErr = shared.NewTransientError("ledger unavailable", errors.New("timeout"))

	challenge, _ := f.service.IssueChallenge(ctx, testMAC, key.PublicKeyHex())
	_, err := f.service.VerifyChallenge(ctx, key.PublicKeyHex(), challenge, sign(t, key, challenge))
	if !shared.IsCode(err, shared.ErrorCodeTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}

	device, _ := f.directory.Get(ctx, key.PublicKeyHex())
	if device.IdentityTokenAddress != "" || device.ClaimToken != "" {
		t.Fatalf("failed mint must not record a token: %+v", device)
	}

	f.ledger.MintErr = nil
	if registration := register(t, f, key); registration.ClaimToken == "" {
		t.Fatal("expected registration to succeed after a fresh challenge")
	}
}

func TestIssueChallengeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := newDeviceKey(t)

	if _, err := f.service.IssueChallenge(ctx, "", key.PublicKeyHex()); !shared.IsCode(err, shared.ErrorCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.service.IssueChallenge(ctx, testMAC, ""); !shared.IsCode(err, shared.ErrorCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.service.IssueChallenge(ctx, testMAC, "04deadbeef"); !shared.IsCode(err, shared.ErrorCodeValidation) {
		t.Fatalf("expected validation error for malformed key, got %v", err)
	}
}

func TestClaimDeviceIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := newDeviceKey(t)
	registration := register(t, f, key)

	claimed, err := f.service.ClaimDevice(ctx, registration.ClaimToken, "0.0.7777")
	if err != nil {
		t.Fatalf("ClaimDevice failed: %v", err)
	}
	if claimed.TransactionID == "" || claimed.OwnerAddress != "0.0.7777" {
		t.Fatalf("unexpected claim result: %+v", claimed)
	}
	if owner, _ := f.ledger.OwnerOf(registration.IdentityTokenAddress); owner != "0.0.7777" {
		t.Fatalf("token should belong to the owner, got %s", owner)
	}

	device, _ := f.directory.Get(ctx, key.PublicKeyHex())
	if device.State() != devices.StateClaimed || device.ClaimToken != "" {
		t.Fatalf("unexpected device after claim: %+v", device)
	}

	_, err = f.service.ClaimDevice(ctx, registration.ClaimToken, "0.0.8888")
	if !shared.IsCode(err, shared.ErrorCodeNotFound) {
		t.Fatalf("expected second claim to be not found, got %v", err)
	}
}

func TestClaimDeviceValidationAndTransferFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registration := register(t, f, newDeviceKey(t))

	if _, err := f.service.ClaimDevice(ctx, registration.ClaimToken, "not-a-wallet"); !shared.IsCode(err, shared.ErrorCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.service.ClaimDevice(ctx, "unknown", "0.0.7777"); !shared.IsCode(err, shared.ErrorCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	f.ledger.TransferErr = shared.NewTransientError("ledger unavailable", errors.New("timeout"))
	if _, err := f.service.ClaimDevice(ctx, registration.ClaimToken, "0.0.7777"); !shared.IsCode(err, shared.ErrorCodeTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}

	f.ledger.TransferErr = nil
	if _, err := f.service.ClaimDevice(ctx, registration.ClaimToken, "0.0.7777"); err != nil {
		t.Fatalf("claim token must survive a failed transfer: %v", err)
	}
}

func TestClaimDeviceWithoutIdentityTokenIsConfigurationError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := newDeviceKey(t)

	_, err := f.directory.Upsert(ctx, key.PublicKeyHex(), func(device *devices.Device) error {
		device.MACAddress = testMAC
		device.ClaimToken = "orphanclaimtoken"
		return nil
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err = f.service.ClaimDevice(ctx, "orphanclaimtoken", "0.0.7777")
	if !shared.IsCode(err, shared.ErrorCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRecoverClaimToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := newDeviceKey(t)

	if _, err := f.service.RecoverClaimToken(ctx, key.PublicKeyHex()); !shared.IsCode(err, shared.ErrorCodeNotFound) {
		t.Fatalf("expected not found for unknown device, got %v", err)
	}

	registration := register(t, f, key)
	for i := 0; i < 2; i++ {
		recovered, err := f.service.RecoverClaimToken(ctx, key.PublicKeyHex())
		if err != nil {
			t.Fatalf("RecoverClaimToken failed: %v", err)
		}
		if recovered.ClaimToken != registration.ClaimToken || recovered.IdentityTokenAddress != registration.IdentityTokenAddress {
			t.Fatalf("unexpected recovery: %+v", recovered)
		}
	}

	if _, err := f.service.ClaimDevice(ctx, registration.ClaimToken, "0.0.7777"); err != nil {
		t.Fatalf("ClaimDevice failed: %v", err)
	}
	if _, err := f.service.RecoverClaimToken(ctx, key.PublicKeyHex()); !shared.IsCode(err, shared.ErrorCodeConflict) {
		t.Fatalf("expected conflict after claim, got %v", err)
	}
}

func TestRecoverClaimTokenBeforeMintIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := newDeviceKey(t)
	_, _ = f.service.IssueChallenge(ctx, testMAC, key.PublicKeyHex())

	if _, err := f.service.RecoverClaimToken(ctx, key.PublicKeyHex()); !shared.IsCode(err, shared.ErrorCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRevokeBlocksClaimAndReauthentication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := newDeviceKey(t)
	registration := register(t, f, key)
	address := registration.IdentityTokenAddress

	impostor := newDeviceKey(t)
	if _, err := f.service.RevokeDevice(ctx, address, sign(t, impostor, "revoke:"+address)); !shared.IsCode(err, shared.ErrorCodeAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if _, err := f.service.RevokeDevice(ctx, address, sign(t, key, "revoke:other")); !shared.IsCode(err, shared.ErrorCodeAuthentication) {
		t.Fatalf("expected authentication error for wrong message, got %v", err)
	}

	revoked, err := f.service.RevokeDevice(ctx, address, sign(t, key, "revoke:"+address))
	if err != nil {
		t.Fatalf("RevokeDevice failed: %v", err)
	}
	if revoked.Status != "revoked" {
		t.Fatalf("unexpected result: %+v", revoked)
	}

	device, _ := f.directory.Get(ctx, key.PublicKeyHex())
	if device.State() != devices.StateRevoked {
		t.Fatalf("expected revoked state, got %s", device.State())
	}

	if _, err := f.service.ClaimDevice(ctx, registration.ClaimToken, "0.0.7777"); !shared.IsCode(err, shared.ErrorCodeConflict) {
		t.Fatalf("expected conflict on claim, got %v", err)
	}
	if _, err := f.service.RecoverClaimToken(ctx, key.PublicKeyHex()); !shared.IsCode(err, shared.ErrorCodeConflict) {
		t.Fatalf("expected conflict on recovery, got %v", err)
	}
	if _, err := f.service.IssueChallenge(ctx, testMAC, key.PublicKeyHex()); !shared.IsCode(err, shared.ErrorCodeConflict) {
		t.Fatalf("expected conflict on challenge, got %v", err)
	}
	if _, err := f.service.RevokeDevice(ctx, address, sign(t, key, "revoke:"+address)); !shared.IsCode(err, shared.ErrorCodeConflict) {
		t.Fatalf("expected conflict on second revoke, got %v", err)
	}
}

func TestRevokeUnknownToken(t *testing.T) {
	f := newFixture(t)
	key := newDeviceKey(t)
	_, err := f.service.RevokeDevice(context.Background(), "9@0.0.2002", sign(t, key, "revoke:9@0.0.2002"))
	if !shared.IsCode(err, shared.ErrorCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIdentityMetadata(t *testing.T) {
	metadata := string(IdentityMetadata(" 0x04AB "))
	if metadata != string(IdentityMetadata("04ab")) {
		t.Fatal("metadata must be computed over the normalized key")
	}
	if !strings.HasPrefix(metadata, MetadataPrefix) || len(metadata) != len(MetadataPrefix)+64 {
		t.Fatalf("unexpected metadata %q", metadata)
	}
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	if _, err := NewService(Config{}); !shared.IsCode(err, shared.ErrorCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
