package devices

import "context"

// MutateFunc edits a device in place. Returning an error aborts the write.
type MutateFunc func(device *Device) error

type Directory interface {
	Get(ctx context.Context, publicKey string) (Device, error)
	GetByIdentityToken(ctx context.Context, identityTokenAddress string) (Device, error)
	GetByClaimToken(ctx context.Context, claimToken string) (Device, error)
	// Upsert creates the device when missing and applies mutate.
	Upsert(ctx context.Context, publicKey string, mutate MutateFunc) (Device, error)
	// Update applies mutate to an existing device; NotFound otherwise.
	Update(ctx context.Context, publicKey string, mutate MutateFunc) (Device, error)
}
