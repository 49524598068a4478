// Package jwt signs the short-lived tokens that prove the session's
// user identity to Opey.
package jwt

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"go.uber.org/zap"

	"github.com/nemozak1/API-Explorer-II/internal/domain"
)

// UserClaims is the custom JWT payload Opey verifies.
type UserClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Signer mints RS256 tokens with the gateway's private key. The key is
// loaded once at construction; a Signer without a key is disabled and
// fails every Sign call, which callers treat as a local configuration
// fault rather than a crash.
type Signer struct {
	key *rsa.PrivateKey
	ttl time.Duration
}

// NewSigner constructs a signer from an in-memory key.
func NewSigner(key *rsa.PrivateKey, ttl time.Duration) *Signer {
	return &Signer{key: key, ttl: ttl}
}

// NewSignerFromFile loads the PEM private key at path. An unreadable or
// malformed key yields a disabled signer, logged but non-fatal.
func NewSignerFromFile(path string, ttl time.Duration, logger *zap.Logger) *Signer {
	if logger == nil {
		logger = zap.L()
	}
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("signing key unavailable, token issuance disabled",
			zap.String("path", path), zap.Error(err))
		return &Signer{ttl: ttl}
	}
	key, err := parseRSAPrivateKey(pemBytes)
	if err != nil {
		logger.Warn("signing key unreadable, token issuance disabled",
			zap.String("path", path), zap.Error(err))
		return &Signer{ttl: ttl}
	}
	return &Signer{key: key, ttl: ttl}
}

// Enabled reports whether the signer holds a usable key.
func (s *Signer) Enabled() bool {
	return s != nil && s.key != nil
}

// Public returns the verification key, nil when disabled.
func (s *Signer) Public() *rsa.PublicKey {
	if !s.Enabled() {
		return nil
	}
	return &s.key.PublicKey
}

// Sign mints a token for the user expiring ttl after now.
func (s *Signer) Sign(user domain.User, now time.Time) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, fmt.Errorf("no signing key loaded")
	}

	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.RS256, Key: s.key},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("new signer: %w", err)
	}

	expiry := now.Add(s.ttl)
	std := gojwt.Claims{
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(expiry),
	}
	custom := UserClaims{UserID: user.UserID, Username: user.Username}

	token, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("serialize jwt: %w", err)
	}
	return token, expiry, nil
}

func parseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}
	return key, nil
}
