package readings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hashgraph-online/device-anchor-go/pkg/devices"
	"github.com/hashgraph-online/device-anchor-go/pkg/merkle"
	"github.com/hashgraph-online/device-anchor-go/pkg/queue"
	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
	"github.com/hashgraph-online/device-anchor-go/pkg/signature"
)

type Config struct {
	Directory  devices.Directory
	Queue      queue.Store
	PendingKey string
	Logger     *zerolog.Logger
}

type Service struct {
	directory  devices.Directory
	queue      queue.Store
	pendingKey string
	logger     zerolog.Logger
}

func NewService(config Config) (*Service, error) {
	if config.Directory == nil || config.Queue == nil {
		return nil, shared.NewConfigurationError("readings require a device directory and a queue", nil)
	}
	pendingKey := config.PendingKey
	if pendingKey == "" {
		pendingKey = queue.DefaultPendingKey
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}
	return &Service{
		directory:  config.Directory,
		queue:      config.Queue,
		pendingKey: pendingKey,
		logger:     logger.With().Str("component", "readings").Logger(),
	}, nil
}

func (s *Service) Submit(ctx context.Context, reading SignedReading) (Receipt, error) {
	address := strings.TrimSpace(reading.IdentityTokenAddress)
	if address == "" || len(bytes.TrimSpace(reading.Payload)) == 0 || reading.Signature.IsZero() {
		return Receipt{}, shared.NewValidationError("identityTokenAddress, payload and signature are required")
	}

	payload, err := decodeObject(reading.Payload)
	if err != nil {
		return Receipt{}, err
	}
	canonicalPayload, err := merkle.CanonicalizeJSON(payload)
	if err != nil {
		return Receipt{}, shared.NewValidationError(fmt.Sprintf("payload cannot be canonicalized: %v", err))
	}
	timestamp, hasTimestamp, err := readTimestamp(payload)
	if err != nil {
		return Receipt{}, err
	}

	device, err := s.directory.GetByIdentityToken(ctx, address)
	if err != nil {
		return Receipt{}, err
	}
	if device.Revoked {
		return Receipt{}, shared.NewConflictError("device has been revoked")
	}

	valid, err := signature.VerifyMessage(device.PublicKey, canonicalPayload, reading.Signature)
	if err != nil {
		return Receipt{}, shared.NewAuthenticationError(fmt.Sprintf("invalid signature: %v", err))
	}
	if !valid {
		return Receipt{}, shared.NewAuthenticationError("invalid signature")
	}

	item, err := merkle.CanonicalizeJSON(map[string]any{
		"identityTokenAddress": address,
		"payload":              payload,
		"signature": map[string]any{
			"r": strings.ToLower(reading.Signature.R),
			"s": strings.ToLower(reading.Signature.S),
		},
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to encode queue item: %w", err)
	}

	var previous int64
	if hasTimestamp {
		_, err = s.directory.Update(ctx, device.PublicKey, func(current *devices.Device) error {
			if current.Revoked {
				return shared.NewConflictError("device has been revoked")
			}
			if timestamp <= current.LastReadingTimestamp {
				return shared.NewConflictError("reading timestamp is not newer than the last accepted reading")
			}
			previous = current.LastReadingTimestamp
			current.LastReadingTimestamp = timestamp
			return nil
		})
		if err != nil {
			return Receipt{}, err
		}
	}

	if err := s.queue.PushBack(ctx, s.pendingKey, string(item)); err != nil {
		if hasTimestamp {
			s.rollbackTimestamp(ctx, device.PublicKey, timestamp, previous)
		}
		return Receipt{}, shared.NewTransientError("failed to enqueue reading", err)
	}

	leafHash := merkle.LeafHashHex(string(item))
	s.logger.Debug().
		Str("identityTokenAddress", address).
		Str("leafHash", leafHash).
		Msg("reading queued")
	return Receipt{LeafHash: leafHash, IdentityTokenAddress: address, Timestamp: timestamp}, nil
}

func (s *Service) rollbackTimestamp(ctx context.Context, publicKey string, recorded int64, previous int64) {
	_, err := s.directory.Update(ctx, publicKey, func(current *devices.Device) error {
		if current.LastReadingTimestamp == recorded {
			current.LastReadingTimestamp = previous
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("publicKey", shared.ShortKey(publicKey)).Msg("failed to roll back reading timestamp")
	}
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return nil, shared.NewValidationError("payload must be a JSON object")
	}
	if decoder.More() {
		return nil, shared.NewValidationError("payload has trailing data")
	}
	if payload == nil {
		return nil, shared.NewValidationError("payload must be a JSON object")
	}
	return payload, nil
}

func readTimestamp(payload map[string]any) (int64, bool, error) {
	number, ok := payload[TimestampField].(json.Number)
	if !ok {
		return 0, false, nil
	}
	value, err := number.Int64()
	if err != nil || value <= 0 {
		return 0, false, shared.NewValidationError("timestamp must be a positive integer")
	}
	return value, true, nil
}
