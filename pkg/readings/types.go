package readings

import (
	"encoding/json"

	"github.com/hashgraph-online/device-anchor-go/pkg/signature"
)

const TimestampField = "timestamp"

type SignedReading struct {
	IdentityTokenAddress string              `json:"identityTokenAddress"`
	Payload              json.RawMessage     `json:"payload"`
	Signature            signature.Signature `json:"signature"`
}

type Receipt struct {
	LeafHash             string `json:"leafHash"`
	IdentityTokenAddress string `json:"identityTokenAddress"`
	Timestamp            int64  `json:"timestamp,omitempty"`
}
