// Package obp holds the outbound client for the Open Banking Project
// REST API.
package obp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nemozak1/API-Explorer-II/internal/domain"
)

// ConsentRequest is the implicit-consent body sent to OBP. The gateway
// always requests the empty permission set; SCA delivery (SMS or email
// OTP) is triggered by OBP out of band.
type ConsentRequest struct {
	Everything   bool     `json:"everything"`
	Views        []string `json:"views"`
	Entitlements []string `json:"entitlements"`
	ConsumerID   string   `json:"consumer_id"`
}

// Client encapsulates the OBP calls the gateway depends on.
type Client interface {
	APIVersion() string
	CurrentUser(ctx context.Context, cfg domain.ClientConfig) (domain.User, error)
	CreateConsent(ctx context.Context, cfg domain.ClientConfig, bankID string, req ConsentRequest) (*domain.Consent, error)
	AnswerChallenge(ctx context.Context, cfg domain.ClientConfig, bankID, consentID string, answer json.RawMessage) (string, error)
}

// HTTPClient is the default HTTP implementation.
type HTTPClient struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs the default OBP client.
func NewHTTPClient(baseURL, apiVersion string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: apiVersion,
		httpClient: client,
	}
}

// APIVersion reports the OBP API version the client is configured for.
func (c *HTTPClient) APIVersion() string {
	return c.apiVersion
}

// CurrentUser probes OBP for the user bound to the session credentials.
// Anonymous callers map to domain.ErrNotAuthenticated: OBP reports them
// with a 400 or 401 (OBP-20001), and some deployments answer 200 with a
// body that carries no user_id.
func (c *HTTPClient) CurrentUser(ctx context.Context, cfg domain.ClientConfig) (domain.User, error) {
	body, status, err := c.do(ctx, http.MethodGet, c.endpoint("/users/current"), cfg, nil)
	if err != nil {
		return domain.User{}, err
	}

	var raw map[string]any
	userID := ""
	if json.Unmarshal(body, &raw) == nil {
		userID = stringValue(raw["user_id"])
	}

	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		if userID == "" {
			return domain.User{}, domain.ErrNotAuthenticated
		}
		return domain.User{}, errStatus(status)
	case status >= 300:
		return domain.User{}, errStatus(status)
	}

	if userID == "" {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	return domain.User{UserID: userID, Username: stringValue(raw["username"])}, nil
}

// CreateConsent requests an IMPLICIT consent for the current user,
// which starts the SCA flow at OBP.
func (c *HTTPClient) CreateConsent(ctx context.Context, cfg domain.ClientConfig, bankID string, req ConsentRequest) (*domain.Consent, error) {
	if req.Views == nil {
		req.Views = []string{}
	}
	if req.Entitlements == nil {
		req.Entitlements = []string{}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal consent request: %w", err)
	}

	path := fmt.Sprintf("/banks/%s/my/consents/IMPLICIT", bankID)
	body, status, err := c.do(ctx, http.MethodPost, c.endpoint(path), cfg, payload)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, errStatus(status)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode consent: %w", err)
	}
	consent := &domain.Consent{
		ConsentID: stringValue(raw["consent_id"]),
		Status:    stringValue(raw["status"]),
		Raw:       json.RawMessage(body),
	}
	if consent.ConsentID == "" {
		return nil, fmt.Errorf("consent response missing consent_id")
	}
	return consent, nil
}

// AnswerChallenge forwards the SCA answer verbatim and returns the
// signed consent credential OBP issues on success.
func (c *HTTPClient) AnswerChallenge(ctx context.Context, cfg domain.ClientConfig, bankID, consentID string, answer json.RawMessage) (string, error) {
	path := fmt.Sprintf("/banks/%s/consents/%s/challenge", bankID, consentID)
	body, status, err := c.do(ctx, http.MethodPost, c.endpoint(path), cfg, answer)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		return "", errStatus(status)
	}

	var raw map[string]any
	if json.Unmarshal(body, &raw) == nil {
		// A JSON object without a jwt key is not a credential, no matter
		// what else it carries.
		if jwt := stringValue(raw["jwt"]); jwt != "" {
			return jwt, nil
		}
		return "", fmt.Errorf("challenge response missing jwt")
	}

	// Older OBP instances return the bare credential as the whole body.
	token := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if token == "" {
		return "", fmt.Errorf("empty challenge response")
	}
	return token, nil
}

func (c *HTTPClient) endpoint(path string) string {
	return c.baseURL + "/obp/" + c.apiVersion + path
}

// do performs the request and returns the body and status. Transport and
// read failures are the only errors; status handling is the caller's.
func (c *HTTPClient) do(ctx context.Context, method, url string, cfg domain.ClientConfig, payload []byte) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("build obp request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.AuthorizationHeader != "" {
		req.Header.Set("Authorization", cfg.AuthorizationHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("obp request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read obp response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// errStatus reports an upstream failure without echoing the response
// body, which may carry account data.
func errStatus(status int) error {
	return fmt.Errorf("obp call failed: status=%d", status)
}

func stringValue(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
