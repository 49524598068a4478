package domain

import "time"

// ClientConfig carries the OAuth credentials a browser session uses
// against OBP. The gateway never mints these; the explorer's login flow
// stores them in the session before any endpoint here is called.
type ClientConfig struct {
	// AuthorizationHeader is sent verbatim as the Authorization header on
	// every OBP call, e.g. a DirectLogin or OAuth token value.
	AuthorizationHeader string `json:"authorization_header,omitempty"`
	ConsumerKey         string `json:"consumer_key,omitempty"`
}

// Session is the per-browser state kept in the shared session store.
type Session struct {
	ClientConfig    ClientConfig `json:"client_config"`
	Consent         *Consent     `json:"obp_consent,omitempty"`
	ConsentJWT      string       `json:"obp_consent_jwt,omitempty"`
	OpeyToken       string       `json:"opey_token,omitempty"`
	OpeyTokenExpiry time.Time    `json:"opey_token_expiry,omitzero"`
}

// LiveOpeyToken returns the cached Opey token when one is present and
// not yet expired at the given instant.
func (s *Session) LiveOpeyToken(now time.Time) (string, bool) {
	if s.OpeyToken == "" || !now.Before(s.OpeyTokenExpiry) {
		return "", false
	}
	return s.OpeyToken, true
}
