package identity

const (
	nonceBytes      = 32
	claimTokenBytes = 16

	// MetadataPrefix prefixes the device key fingerprint stored as identity
	// token metadata.
	MetadataPrefix = "sensor-id:"
	RevokePrefix   = "revoke:"
)

type Registration struct {
	IdentityTokenAddress string `json:"identityTokenAddress"`
	MintTransactionID    string `json:"mintTransactionId,omitempty"`
	// ClaimToken is returned only by the call that minted the token.
	ClaimToken string `json:"claimToken,omitempty"`
}

type ClaimResult struct {
	IdentityTokenAddress string `json:"identityTokenAddress"`
	OwnerAddress         string `json:"ownerAddress"`
	TransactionID        string `json:"transactionId"`
}

type ClaimTokenResult struct {
	IdentityTokenAddress string `json:"identityTokenAddress"`
	ClaimToken           string `json:"claimToken"`
}

type RevokeResult struct {
	IdentityTokenAddress string `json:"identityTokenAddress"`
	Status               string `json:"status"`
}

// RevokeMessage is the message a device signs to revoke its identity.
func RevokeMessage(identityTokenAddress string) []byte {
	return []byte(RevokePrefix + identityTokenAddress)
}
