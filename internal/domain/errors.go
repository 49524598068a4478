package domain

import "errors"

var (
	// ErrNotAuthenticated means OBP does not know a current user for the
	// session's credentials.
	ErrNotAuthenticated = errors.New("user not authenticated")

	// ErrNoConsent means no consent is pending in the session.
	ErrNoConsent = errors.New("consent not found in session")

	// ErrConsentAccepted means the cached consent already passed its
	// challenge and must not be answered again.
	ErrConsentAccepted = errors.New("consent already accepted")
)
