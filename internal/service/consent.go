package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/nemozak1/API-Explorer-II/internal/adapter/obp"
	"github.com/nemozak1/API-Explorer-II/internal/config"
	"github.com/nemozak1/API-Explorer-II/internal/domain"
)

// ConsentService drives the consent state machine against OBP:
// no-consent -> pending (Issue) -> accepted (AnswerChallenge).
type ConsentService struct {
	obp        obp.Client
	bankID     string
	consumerID string
	logger     *zap.Logger
}

// NewConsentService constructs the consent service.
func NewConsentService(client obp.Client, cfg config.Config, logger *zap.Logger) *ConsentService {
	if logger == nil {
		logger = zap.L()
	}
	return &ConsentService{
		obp:        client,
		bankID:     cfg.ConsentBankID,
		consumerID: cfg.ConsentConsumerID,
		logger:     logger,
	}
}

// Issue returns the session's consent ID, creating a new implicit
// consent at OBP when none is cached. The session cache is checked
// first: creating a consent sends the user an SCA challenge, so a blind
// retry must never reach OBP. cached reports whether the consent came
// from the session.
func (s *ConsentService) Issue(ctx context.Context, sess *domain.Session) (consentID string, cached bool, err error) {
	if sess.Consent != nil {
		return sess.Consent.ConsentID, true, nil
	}

	user, err := s.obp.CurrentUser(ctx, sess.ClientConfig)
	if err != nil {
		return "", false, err
	}

	consent, err := s.obp.CreateConsent(ctx, sess.ClientConfig, s.bankID, obp.ConsentRequest{
		Everything:   false,
		Views:        []string{},
		Entitlements: []string{},
		ConsumerID:   s.consumerID,
	})
	if err != nil {
		return "", false, fmt.Errorf("create consent: %w", err)
	}

	sess.Consent = consent
	s.logger.Info("consent created",
		zap.String("consent_id", consent.ConsentID),
		zap.String("user_id", user.UserID))
	return consent.ConsentID, false, nil
}

// AnswerChallenge forwards the opaque SCA answer for the pending
// consent and caches the signed consent credential on success. This is
// the terminal step of the consent flow.
func (s *ConsentService) AnswerChallenge(ctx context.Context, sess *domain.Session, answer json.RawMessage) error {
	if sess.Consent == nil {
		return domain.ErrNoConsent
	}
	if sess.Consent.Accepted() {
		return domain.ErrConsentAccepted
	}

	consentJWT, err := s.obp.AnswerChallenge(ctx, sess.ClientConfig, s.bankID, sess.Consent.ConsentID, answer)
	if err != nil {
		return fmt.Errorf("answer challenge: %w", err)
	}

	sess.ConsentJWT = consentJWT
	sess.Consent.Status = domain.ConsentStatusAccepted
	s.logger.Info("consent accepted", zap.String("consent_id", sess.Consent.ConsentID))
	return nil
}
