package opey

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nemozak1/API-Explorer-II/internal/domain"
)

func TestStatusOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewHTTPClient(srv.URL, nil).Status(context.Background()))
}

func TestStatusUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, nil).Status(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=503")
}

func TestInvokePassesBearerAndBodyThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/invoke", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var input domain.UserInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		require.Equal(t, "hello", input.Message)

		_, _ = w.Write([]byte(`{"reply":"hi there"}`))
	}))
	defer srv.Close()

	body, err := NewHTTPClient(srv.URL, nil).Invoke(context.Background(), domain.UserInput{Message: "hello"}, "tok-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"reply":"hi there"}`, string(body))
}

func TestInvokeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"model exploded"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, nil).Invoke(context.Background(), domain.UserInput{Message: "hello"}, "")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "model exploded")
}

func TestStreamForcesStreamTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stream", r.URL.Path)

		var input domain.StreamInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		require.True(t, input.StreamTokens)
		require.Equal(t, "hello", input.Message)

		_, _ = w.Write([]byte("chunk-1"))
		_, _ = w.Write([]byte("chunk-2"))
	}))
	defer srv.Close()

	stream, err := NewHTTPClient(srv.URL, nil).Stream(context.Background(), domain.UserInput{Message: "hello"}, "tok-1")
	require.NoError(t, err)
	defer stream.Close()

	all, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, "chunk-1chunk-2", string(all))
}

func TestStreamUpstreamErrorClosesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, nil).Stream(context.Background(), domain.UserInput{Message: "hello"}, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=502")
}
