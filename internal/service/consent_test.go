package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemozak1/API-Explorer-II/internal/adapter/obp"
	"github.com/nemozak1/API-Explorer-II/internal/config"
	"github.com/nemozak1/API-Explorer-II/internal/domain"
)

func newConsentService(client obp.Client) *ConsentService {
	cfg := config.Config{
		ConsentBankID:     "gh.29.uk",
		ConsentConsumerID: "consumer-1",
	}
	return NewConsentService(client, cfg, zap.NewNop())
}

func TestConsentIssuePopulatesSession(t *testing.T) {
	client := &fakeOBPClient{
		user:    domain.User{UserID: "user-1", Username: "felix"},
		consent: &domain.Consent{ConsentID: "consent-1", Status: domain.ConsentStatusInitiated},
	}
	svc := newConsentService(client)
	sess := &domain.Session{}

	consentID, cached, err := svc.Issue(context.Background(), sess)
	require.NoError(t, err)
	require.False(t, cached)
	require.Equal(t, "consent-1", consentID)
	require.Equal(t, 1, client.createCalls)
	require.NotNil(t, sess.Consent)
	require.Equal(t, "consent-1", sess.Consent.ConsentID)
	require.Equal(t, "consumer-1", client.lastConsentReq.ConsumerID)
	require.False(t, client.lastConsentReq.Everything)
	require.Empty(t, client.lastConsentReq.Views)
	require.Empty(t, client.lastConsentReq.Entitlements)
}

func TestConsentIssueSecondCallHitsCache(t *testing.T) {
	client := &fakeOBPClient{
		user:    domain.User{UserID: "user-1"},
		consent: &domain.Consent{ConsentID: "consent-1", Status: domain.ConsentStatusInitiated},
	}
	svc := newConsentService(client)
	sess := &domain.Session{}

	_, _, err := svc.Issue(context.Background(), sess)
	require.NoError(t, err)

	consentID, cached, err := svc.Issue(context.Background(), sess)
	require.NoError(t, err)
	require.True(t, cached)
	require.Equal(t, "consent-1", consentID)
	require.Equal(t, 1, client.createCalls)
}

func TestConsentIssueAnonymousUser(t *testing.T) {
	client := &fakeOBPClient{userErr: domain.ErrNotAuthenticated}
	svc := newConsentService(client)
	sess := &domain.Session{}

	_, _, err := svc.Issue(context.Background(), sess)
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)
	require.Zero(t, client.createCalls)
	require.Nil(t, sess.Consent)
}

func TestAnswerChallengeWithoutConsent(t *testing.T) {
	client := &fakeOBPClient{}
	svc := newConsentService(client)
	sess := &domain.Session{}

	err := svc.AnswerChallenge(context.Background(), sess, json.RawMessage(`{"answer":"123456"}`))
	require.ErrorIs(t, err, domain.ErrNoConsent)
	require.Zero(t, client.challengeCalls)
}

func TestAnswerChallengeAlreadyAccepted(t *testing.T) {
	client := &fakeOBPClient{}
	svc := newConsentService(client)
	sess := &domain.Session{
		Consent: &domain.Consent{ConsentID: "consent-1", Status: domain.ConsentStatusAccepted},
	}

	err := svc.AnswerChallenge(context.Background(), sess, json.RawMessage(`{"answer":"123456"}`))
	require.ErrorIs(t, err, domain.ErrConsentAccepted)
	require.Zero(t, client.challengeCalls)
}

func TestAnswerChallengeStoresCredential(t *testing.T) {
	client := &fakeOBPClient{challengeJWT: "signed-consent"}
	svc := newConsentService(client)
	sess := &domain.Session{
		Consent: &domain.Consent{ConsentID: "consent-1", Status: domain.ConsentStatusInitiated},
	}

	err := svc.AnswerChallenge(context.Background(), sess, json.RawMessage(`{"answer":"123456"}`))
	require.NoError(t, err)
	require.Equal(t, 1, client.challengeCalls)
	require.Equal(t, "signed-consent", sess.ConsentJWT)
	require.True(t, sess.Consent.Accepted())
	require.Equal(t, "consent-1", client.lastChallengeID)
}

// ---- fakes ----

type fakeOBPClient struct {
	user            domain.User
	userErr         error
	consent         *domain.Consent
	consentErr      error
	challengeJWT    string
	challengeErr    error
	currentCalls    int
	createCalls     int
	challengeCalls  int
	lastConsentReq  obp.ConsentRequest
	lastChallengeID string
}

var _ obp.Client = (*fakeOBPClient)(nil)

func (f *fakeOBPClient) APIVersion() string { return "v5.1.0" }

func (f *fakeOBPClient) CurrentUser(context.Context, domain.ClientConfig) (domain.User, error) {
	f.currentCalls++
	if f.userErr != nil {
		return domain.User{}, f.userErr
	}
	return f.user, nil
}

func (f *fakeOBPClient) CreateConsent(_ context.Context, _ domain.ClientConfig, _ string, req obp.ConsentRequest) (*domain.Consent, error) {
	f.createCalls++
	f.lastConsentReq = req
	if f.consentErr != nil {
		return nil, f.consentErr
	}
	consent := *f.consent
	return &consent, nil
}

func (f *fakeOBPClient) AnswerChallenge(_ context.Context, _ domain.ClientConfig, _ string, consentID string, _ json.RawMessage) (string, error) {
	f.challengeCalls++
	f.lastChallengeID = consentID
	if f.challengeErr != nil {
		return "", f.challengeErr
	}
	return f.challengeJWT, nil
}
