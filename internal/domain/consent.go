package domain

import "encoding/json"

// Consent statuses reported by OBP that the gateway cares about.
const (
	ConsentStatusInitiated = "INITIATED"
	ConsentStatusAccepted  = "ACCEPTED"
)

// Consent is an OBP authorization grant created for the current user.
// Raw keeps the upstream payload so challenge metadata survives the
// session roundtrip untouched.
type Consent struct {
	ConsentID string          `json:"consent_id"`
	Status    string          `json:"status"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// Accepted reports whether the consent already passed its SCA challenge.
func (c *Consent) Accepted() bool {
	return c != nil && c.Status == ConsentStatusAccepted
}
