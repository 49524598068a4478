package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nemozak1/API-Explorer-II/internal/adapter/obp"
	"github.com/nemozak1/API-Explorer-II/internal/domain"
	"github.com/nemozak1/API-Explorer-II/internal/jwt"
)

// TokenService issues the JWTs that authenticate the session's user at
// Opey, memoized in the session for the token's lifetime.
type TokenService struct {
	obp    obp.Client
	signer *jwt.Signer
	logger *zap.Logger
	now    func() time.Time
}

// NewTokenService constructs the token service.
func NewTokenService(client obp.Client, signer *jwt.Signer, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.L()
	}
	return &TokenService{obp: client, signer: signer, logger: logger, now: time.Now}
}

// Issue returns the session's Opey token, signing a fresh one when none
// is cached or the cached one expired. A session holds at most one live
// token. Signer failure is a local configuration fault: it yields an
// empty token and a log line, never an error to the caller.
func (s *TokenService) Issue(ctx context.Context, sess *domain.Session) (string, error) {
	user, err := s.obp.CurrentUser(ctx, sess.ClientConfig)
	if err != nil {
		return "", err
	}

	now := s.now()
	if token, ok := sess.LiveOpeyToken(now); ok {
		return token, nil
	}

	token, expiry, err := s.signer.Sign(user, now)
	if err != nil {
		s.logger.Error("signing opey token failed", zap.Error(err))
		return "", nil
	}

	sess.OpeyToken = token
	sess.OpeyTokenExpiry = expiry
	s.logger.Info("opey token issued", zap.String("user_id", user.UserID))
	return token, nil
}
