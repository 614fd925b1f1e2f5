package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hashgraph-online/device-anchor-go/pkg/devices"
	"github.com/hashgraph-online/device-anchor-go/pkg/ledger"
	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
	"github.com/hashgraph-online/device-anchor-go/pkg/signature"
)

type Config struct {
	Directory devices.Directory
	Ledger    ledger.Client
	Logger    *zerolog.Logger
	// Random defaults to crypto/rand.
	Random io.Reader
}

type Service struct {
	directory devices.Directory
	ledger    ledger.Client
	logger    zerolog.Logger
	random    io.Reader
	locks     *keyLocks
}

func NewService(config Config) (*Service, error) {
	if config.Directory == nil {
		return nil, shared.NewConfigurationError("device directory is required", nil)
	}
	if config.Ledger == nil {
		return nil, shared.NewConfigurationError("ledger client is required", nil)
	}
	random := config.Random
	if random == nil {
		random = rand.Reader
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Service{
		directory: config.Directory,
		ledger:    config.Ledger,
		logger:    logger.With().Str("component", "identity").Logger(),
		random:    random,
		locks:     newKeyLocks(),
	}, nil
}

// IssueChallenge creates the device on first contact and replaces any
// outstanding nonce.
func (s *Service) IssueChallenge(ctx context.Context, macAddress string, publicKey string) (string, error) {
	macAddress = strings.TrimSpace(macAddress)
	publicKey = signature.NormalizePublicKey(publicKey)
	if macAddress == "" || publicKey == "" {
		return "", shared.NewValidationError("macAddress and publicKey are required")
	}
	if _, err := signature.ParsePublicKey(publicKey); err != nil {
		return "", shared.NewValidationError("publicKey is not a valid secp256k1 key")
	}

	nonce, err := s.randomHex(nonceBytes)
	if err != nil {
		return "", err
	}

	unlock := s.locks.lock(publicKey)
	defer unlock()

	_, err = s.directory.Upsert(ctx, publicKey, func(device *devices.Device) error {
		if device.Revoked {
			return shared.NewConflictError("device has been revoked")
		}
		device.MACAddress = macAddress
		device.ChallengeNonce = nonce
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("publicKey", shared.ShortKey(publicKey)).Msg("challenge issued")
	return nonce, nil
}

// VerifyChallenge checks the signed nonce. The first success mints the
// identity token and a claim token; later successes re-authenticate.
func (s *Service) VerifyChallenge(
	ctx context.Context,
	publicKey string,
	challenge string,
	sig signature.Signature,
) (Registration, error) {
	publicKey = signature.NormalizePublicKey(publicKey)
	challenge = strings.TrimSpace(challenge)
	if publicKey == "" || challenge == "" || sig.IsZero() {
		return Registration{}, shared.NewValidationError("publicKey, challenge and signature are required")
	}

	unlock := s.locks.lock(publicKey)
	defer unlock()

	device, err := s.directory.Get(ctx, publicKey)
	if err != nil {
		return Registration{}, err
	}
	if device.Revoked {
		return Registration{}, shared.NewConflictError("device has been revoked")
	}
	if device.ChallengeNonce == "" || device.ChallengeNonce != challenge {
		return Registration{}, shared.NewNotFoundError("challenge not found or already used")
	}

	valid, err := signature.VerifyMessage(publicKey, []byte(challenge), sig)
	if err != nil {
		return Registration{}, shared.NewAuthenticationError(fmt.Sprintf("invalid signature: %v", err))
	}
	if !valid {
		return Registration{}, shared.NewAuthenticationError("invalid signature")
	}

	device, err = s.directory.Update(ctx, publicKey, func(device *devices.Device) error {
		if device.ChallengeNonce != challenge {
			return shared.NewNotFoundError("challenge not found or already used")
		}
		device.ChallengeNonce = ""
		return nil
	})
	if err != nil {
		return Registration{}, err
	}

	if device.IdentityTokenAddress != "" {
		s.logger.Info().
			Str("publicKey", shared.ShortKey(publicKey)).
			Str("identityTokenAddress", device.IdentityTokenAddress).
			Msg("device re-authenticated")
		return Registration{
			IdentityTokenAddress: device.IdentityTokenAddress,
			MintTransactionID:    device.MintTransactionID,
		}, nil
	}

	minted, err := s.ledger.MintIdentityToken(ctx, IdentityMetadata(publicKey))
	if err != nil {
		s.logger.Error().Err(err).Str("publicKey", shared.ShortKey(publicKey)).Msg("identity token mint failed")
		return Registration{}, err
	}

	claimToken, err := s.randomHex(claimTokenBytes)
	if err != nil {
		return Registration{}, err
	}

	_, err = s.directory.Update(ctx, publicKey, func(device *devices.Device) error {
		device.IdentityTokenAddress = minted.TokenAddress
		device.MintTransactionID = minted.TransactionID
		device.ClaimToken = claimToken
		return nil
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("publicKey", shared.ShortKey(publicKey)).
			Str("identityTokenAddress", minted.TokenAddress).
			Str("transactionId", minted.TransactionID).
			Msg("identity token minted but device record not updated")
		return Registration{}, err
	}

	s.logger.Info().
		Str("publicKey", shared.ShortKey(publicKey)).
		Str("identityTokenAddress", minted.TokenAddress).
		Msg("device registered")
	return Registration{
		IdentityTokenAddress: minted.TokenAddress,
		MintTransactionID:    minted.TransactionID,
		ClaimToken:           claimToken,
	}, nil
}

// ClaimDevice transfers the identity token to ownerAddress and burns the
// claim token. A burned or unknown token is NotFound.
func (s *Service) ClaimDevice(ctx context.Context, claimToken string, ownerAddress string) (ClaimResult, error) {
	claimToken = strings.TrimSpace(claimToken)
	ownerAddress = strings.TrimSpace(ownerAddress)
	if claimToken == "" || ownerAddress == "" {
		return ClaimResult{}, shared.NewValidationError("claimToken and ownerWalletAddress are required")
	}
	if _, err := ledger.ParseOwnerAddress(ownerAddress); err != nil {
		return ClaimResult{}, err
	}

	found, err := s.directory.GetByClaimToken(ctx, claimToken)
	if err != nil {
		return ClaimResult{}, err
	}

	unlock := s.locks.lock(found.PublicKey)
	defer unlock()

	device, err := s.directory.Get(ctx, found.PublicKey)
	if err != nil {
		return ClaimResult{}, err
	}
	if device.ClaimToken != claimToken {
		return ClaimResult{}, shared.NewNotFoundError("invalid or expired claim token")
	}
	if device.Revoked {
		return ClaimResult{}, shared.NewConflictError("device has been revoked")
	}
	if device.OwnerAddress != "" {
		return ClaimResult{}, shared.NewConflictError("device has already been claimed")
	}
	if device.IdentityTokenAddress == "" {
		return ClaimResult{}, shared.NewConfigurationError("device registration is incomplete: no identity token", nil)
	}

	transactionID, err := s.ledger.TransferToken(ctx, device.IdentityTokenAddress, ownerAddress)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("identityTokenAddress", device.IdentityTokenAddress).
			Msg("identity token transfer failed")
		return ClaimResult{}, err
	}

	_, err = s.directory.Update(ctx, device.PublicKey, func(device *devices.Device) error {
		device.OwnerAddress = ownerAddress
		device.ClaimToken = ""
		return nil
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("identityTokenAddress", device.IdentityTokenAddress).
			Str("owner", ownerAddress).
			Str("transactionId", transactionID).
			Msg("identity token transferred but device record not updated")
		return ClaimResult{}, err
	}

	s.logger.Info().
		Str("identityTokenAddress", device.IdentityTokenAddress).
		Str("owner", ownerAddress).
		Msg("device claimed")
	return ClaimResult{
		IdentityTokenAddress: device.IdentityTokenAddress,
		OwnerAddress:         ownerAddress,
		TransactionID:        transactionID,
	}, nil
}

// RecoverClaimToken returns the outstanding claim token unchanged.
func (s *Service) RecoverClaimToken(ctx context.Context, publicKey string) (ClaimTokenResult, error) {
	publicKey = signature.NormalizePublicKey(publicKey)
	if publicKey == "" {
		return ClaimTokenResult{}, shared.NewValidationError("publicKey is required")
	}

	device, err := s.directory.Get(ctx, publicKey)
	if err != nil {
		return ClaimTokenResult{}, err
	}
	if device.Revoked {
		return ClaimTokenResult{}, shared.NewConflictError("device has been revoked")
	}
	if device.OwnerAddress != "" {
		return ClaimTokenResult{}, shared.NewConflictError("device has already been claimed")
	}
	if device.ClaimToken == "" {
		return ClaimTokenResult{}, shared.NewNotFoundError("no claim token available for this device")
	}

	return ClaimTokenResult{
		IdentityTokenAddress: device.IdentityTokenAddress,
		ClaimToken:           device.ClaimToken,
	}, nil
}

// RevokeDevice marks the device revoked. The signature must be the device
// key's signature over RevokeMessage(identityTokenAddress).
func (s *Service) RevokeDevice(ctx context.Context, identityTokenAddress string, sig signature.Signature) (RevokeResult, error) {
	identityTokenAddress = strings.TrimSpace(identityTokenAddress)
	if identityTokenAddress == "" || sig.IsZero() {
		return RevokeResult{}, shared.NewValidationError("identityTokenAddress and signature are required")
	}

	found, err := s.directory.GetByIdentityToken(ctx, identityTokenAddress)
	if err != nil {
		return RevokeResult{}, err
	}

	unlock := s.locks.lock(found.PublicKey)
	defer unlock()

	valid, err := signature.VerifyMessage(found.PublicKey, RevokeMessage(identityTokenAddress), sig)
	if err != nil {
		return RevokeResult{}, shared.NewAuthenticationError(fmt.Sprintf("invalid signature: %v", err))
	}
	if !valid {
		return RevokeResult{}, shared.NewAuthenticationError("invalid signature")
	}

	_, err = s.directory.Update(ctx, found.PublicKey, func(device *devices.Device) error {
		if device.Revoked {
			return shared.NewConflictError("device has already been revoked")
		}
		device.Revoked = true
		device.ChallengeNonce = ""
		return nil
	})
	if err != nil {
		return RevokeResult{}, err
	}

	s.logger.Warn().Str("identityTokenAddress", identityTokenAddress).Msg("device revoked")
	return RevokeResult{IdentityTokenAddress: identityTokenAddress, Status: "revoked"}, nil
}

// IdentityMetadata is the identity token metadata for a device key.
func IdentityMetadata(publicKey string) []byte {
	digest := sha256.Sum256([]byte(signature.NormalizePublicKey(publicKey)))
	return []byte(MetadataPrefix + hex.EncodeToString(digest[:]))
}

func (s *Service) randomHex(size int) (string, error) {
	buffer := make([]byte, size)
	if _, err := io.ReadFull(s.random, buffer); err != nil {
		return "", fmt.Errorf("failed to generate random value: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}
