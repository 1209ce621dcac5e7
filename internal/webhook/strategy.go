package webhook

import (
	"encoding/json"
)

// Strategy is a verifier bound to a route, plus how that route answers a rejected call.
type Strategy interface {
	Verifier
	// AckOnFailure reports whether a rejected webhook still gets a 200 acknowledgment.
	AckOnFailure() bool
}

// AckAlways rejects internally but acknowledges externally, so the gateway does not retry.
type AckAlways struct {
	Verifier
}

func (AckAlways) AckOnFailure() bool { return true }

// AckOnlyOnSuccess answers a rejected webhook with 401.
type AckOnlyOnSuccess struct {
	Verifier
}

func (AckOnlyOnSuccess) AckOnFailure() bool { return false }

type TransactionDetails struct {
	OrderID     string `json:"order_id"`
	ReferenceID string `json:"reference_id"`
}

// Payload is the body of a gateway payment notification.
type Payload struct {
	Code               int                    `json:"code"`
	TransactionDetails *TransactionDetails    `json:"transaction_details"`
	Metadata           map[string]interface{} `json:"metadata"`
	Timestamp          json.RawMessage        `json:"timestamp"`
}
