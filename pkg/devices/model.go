package devices

import "time"

type State string

const (
	StateUnregistered     State = "UNREGISTERED"
	StateChallengeIssued  State = "CHALLENGE_ISSUED"
	StateIdentityVerified State = "IDENTITY_VERIFIED"
	StateClaimed          State = "CLAIMED"
	StateRevoked          State = "REVOKED"
)

// Device is one sensor identity. ChallengeNonce is set only between challenge
// issuance and consumption, ClaimToken only while the identity token is still
// in custody, OwnerAddress at most once.
type Device struct {
	PublicKey            string    `json:"publicKey"`
	MACAddress           string    `json:"macAddress"`
	ChallengeNonce       string    `json:"challengeNonce,omitempty"`
	IdentityTokenAddress string    `json:"identityTokenAddress,omitempty"`
	MintTransactionID    string    `json:"mintTransactionId,omitempty"`
	OwnerAddress         string    `json:"ownerAddress,omitempty"`
	ClaimToken           string    `json:"claimToken,omitempty"`
	Revoked              bool      `json:"revoked"`
	LastReadingTimestamp int64     `json:"lastReadingTimestamp,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// State derives the lifecycle state from the record fields.
func (d Device) State() State {
	switch {
	case d.Revoked:
		return StateRevoked
	case d.OwnerAddress != "":
		return StateClaimed
	case d.IdentityTokenAddress != "":
		return StateIdentityVerified
	case d.ChallengeNonce != "":
		return StateChallengeIssued
	default:
		return StateUnregistered
	}
}
