package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nemozak1/API-Explorer-II/internal/adapter/opey"
	"github.com/nemozak1/API-Explorer-II/internal/domain"
	"github.com/nemozak1/API-Explorer-II/internal/service"
	"github.com/nemozak1/API-Explorer-II/internal/session"
)

const (
	msgNotLoggedIn     = "User not logged in, Authentication required"
	msgNoConsent       = "Consent not found in session"
	msgConsentAccepted = "Consent already accepted"
)

// OpeyHandler exposes the /api/opey endpoints.
type OpeyHandler struct {
	Opey    opey.Client
	Consent *service.ConsentService
	Token   *service.TokenService
	Logger  *zap.Logger
}

// NewOpeyHandler creates the handler set.
func NewOpeyHandler(opeyClient opey.Client, consent *service.ConsentService, token *service.TokenService, logger *zap.Logger) *OpeyHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &OpeyHandler{Opey: opeyClient, Consent: consent, Token: token, Logger: logger}
}

// Status probes Opey and reports whether it is reachable.
func (h *OpeyHandler) Status(c *gin.Context) {
	if err := h.Opey.Status(c.Request.Context()); err != nil {
		h.Logger.Error("opey status probe failed", zap.Error(err))
		h.internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Opey is running"})
}

// Invoke relays a non-streaming chat turn, passing the upstream JSON
// through verbatim on success and a generic body on any failure.
func (h *OpeyHandler) Invoke(c *gin.Context) {
	var input domain.UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.Logger.Error("invoke body not parseable", zap.Error(err))
		h.internalError(c)
		return
	}

	state, ok := session.GetState(c)
	if !ok {
		h.internalError(c)
		return
	}

	body, err := h.Opey.Invoke(c.Request.Context(), input, state.Session.OpeyToken)
	if err != nil {
		h.Logger.Error("opey invoke failed", zap.Error(err))
		h.internalError(c)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// Stream relays Opey's streaming response chunk-for-chunk as an event
// stream. Chunks pass through raw; no SSE re-framing is applied.
func (h *OpeyHandler) Stream(c *gin.Context) {
	var input domain.UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.Logger.Error("stream body not parseable", zap.Error(err))
		h.internalError(c)
		return
	}

	state, ok := session.GetState(c)
	if !ok {
		h.internalError(c)
		return
	}

	// The request context cancels the upstream call when the browser
	// disconnects mid-stream.
	upstream, err := h.Opey.Stream(c.Request.Context(), input, state.Session.OpeyToken)
	if err != nil {
		h.Logger.Error("opey stream failed", zap.Error(err))
		h.internalError(c)
		return
	}
	defer upstream.Close()

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	buf := make([]byte, 4096)
	for {
		n, err := upstream.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				return
			}
			c.Writer.Flush()
		}
		if err != nil {
			if err != io.EOF {
				h.Logger.Warn("opey stream aborted", zap.Error(err))
				h.abortConnection(c)
			}
			return
		}
	}
}

// IssueConsent returns the session's consent ID, creating an implicit
// consent at OBP for the logged-in user when none is cached yet.
func (h *OpeyHandler) IssueConsent(c *gin.Context) {
	state, ok := session.GetState(c)
	if !ok {
		h.internalError(c)
		return
	}

	consentID, cached, err := h.Consent.Issue(c.Request.Context(), state.Session)
	if errors.Is(err, domain.ErrNotAuthenticated) {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgNotLoggedIn})
		return
	}
	if err != nil {
		h.Logger.Error("consent issuance failed", zap.Error(err))
		h.internalError(c)
		return
	}

	if !cached {
		if err := state.Persist(c.Request.Context()); err != nil {
			h.Logger.Error("persisting consent failed", zap.Error(err))
			h.internalError(c)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"consent_id": consentID})
}

// AnswerConsentChallenge forwards the SCA answer for the pending
// consent. The answer body is opaque to the gateway.
func (h *OpeyHandler) AnswerConsentChallenge(c *gin.Context) {
	state, ok := session.GetState(c)
	if !ok {
		h.internalError(c)
		return
	}

	answer, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		h.Logger.Error("reading challenge answer failed", zap.Error(err))
		h.internalError(c)
		return
	}

	err = h.Consent.AnswerChallenge(c.Request.Context(), state.Session, answer)
	switch {
	case errors.Is(err, domain.ErrNoConsent):
		c.JSON(http.StatusBadRequest, gin.H{"message": msgNoConsent})
		return
	case errors.Is(err, domain.ErrConsentAccepted):
		c.JSON(http.StatusBadRequest, gin.H{"message": msgConsentAccepted})
		return
	case err != nil:
		h.Logger.Error("answering consent challenge failed", zap.Error(err))
		h.internalError(c)
		return
	}

	if err := state.Persist(c.Request.Context()); err != nil {
		h.Logger.Error("persisting consent credential failed", zap.Error(err))
		h.internalError(c)
		return
	}
	c.JSON(http.StatusOK, true)
}

// IssueToken returns the session's Opey JWT, minting one when the user
// is logged in and no live token is cached.
func (h *OpeyHandler) IssueToken(c *gin.Context) {
	state, ok := session.GetState(c)
	if !ok {
		h.internalError(c)
		return
	}

	token, err := h.Token.Issue(c.Request.Context(), state.Session)
	if errors.Is(err, domain.ErrNotAuthenticated) {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgNotLoggedIn})
		return
	}
	if err != nil {
		h.Logger.Error("token issuance failed", zap.Error(err))
		h.internalError(c)
		return
	}

	if err := state.Persist(c.Request.Context()); err != nil {
		h.Logger.Error("persisting token failed", zap.Error(err))
		h.internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *OpeyHandler) internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
}

// abortConnection drops the client connection without a terminating
// chunk so the downstream reader sees the stream fail rather than
// complete.
func (h *OpeyHandler) abortConnection(c *gin.Context) {
	if conn, _, err := c.Writer.Hijack(); err == nil {
		_ = conn.Close()
	}
}
