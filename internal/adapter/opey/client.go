// Package opey holds the outbound client for the Opey conversational
// assistant service.
package opey

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

// Client encapsulates the Opey calls the gateway relays.
type Client interface {
	// Status probes Opey's health endpoint.
	Status(ctx context.Context) error
	// Invoke runs a non-streaming chat turn and returns the upstream
	// JSON body verbatim.
	Invoke(ctx context.Context, input domain.UserInput, bearer string) (json.RawMessage, error)
	// Stream starts a streaming chat turn and returns the live response
	// body. The caller owns the reader and must close it.
	Stream(ctx context.Context, input domain.UserInput, bearer string) (io.ReadCloser, error)
}

// HTTPClient is the default HTTP implementation.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no overall timeout: streamed bodies are read long
	// after the request deadline a regular client would enforce.
	streamClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs the default Opey client.
func NewHTTPClient(baseURL string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   client,
		streamClient: &http.Client{},
	}
}

// Status performs the health probe.
func (c *HTTPClient) Status(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("opey status: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("opey status failed: status=%d", resp.StatusCode)
	}
	return nil
}

// Invoke posts a chat turn to Opey's non-streaming endpoint.
func (c *HTTPClient) Invoke(ctx context.Context, input domain.UserInput, bearer string) (json.RawMessage, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal user input: %w", err)
	}
	req, err := c.newPost(ctx, "/invoke", payload, bearer)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opey invoke: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read invoke response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("opey invoke failed: status=%d", resp.StatusCode)
	}
	return json.RawMessage(body), nil
}

// Stream posts a chat turn to Opey's streaming endpoint with
// stream_tokens forced true and returns the live body.
func (c *HTTPClient) Stream(ctx context.Context, input domain.UserInput, bearer string) (io.ReadCloser, error) {
	payload, err := json.Marshal(domain.StreamInput{UserInput: input, StreamTokens: true})
	if err != nil {
		return nil, fmt.Errorf("marshal stream input: %w", err)
	}
	req, err := c.newPost(ctx, "/stream", payload, bearer)
	if err != nil {
		return nil, err
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opey stream: %w", err)
	}
	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		resp.Body.Close()
		return nil, fmt.Errorf("opey stream failed: status=%d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *HTTPClient) newPost(ctx context.Context, path string, payload []byte, bearer string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build opey request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req, nil
}
