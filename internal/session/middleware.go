package session

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nemozak1/API-Explorer-II/internal/config"
	"github.com/nemozak1/API-Explorer-II/internal/domain"
)

const ginStateKey = "sessionState"

// State is the per-request view of the browser session. Handlers mutate
// State.Session and call Persist to write it back; concurrent requests
// on the same session are deliberately not serialized.
type State struct {
	ID      string
	Session *domain.Session
	store   Store
}

// Persist writes the session back to the store, re-arming its TTL.
func (s *State) Persist(ctx context.Context) error {
	return s.store.Save(ctx, s.ID, s.Session)
}

// Middleware loads the browser session on every request, creating a
// fresh one (and its cookie) when none exists yet.
type Middleware struct {
	store  Store
	cfg    config.Config
	logger *zap.Logger
}

// NewMiddleware constructs the session middleware.
func NewMiddleware(store Store, cfg config.Config, logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = zap.L()
	}
	return &Middleware{store: store, cfg: cfg, logger: logger}
}

// Handler returns the gin middleware attaching session state to the
// request context.
func (m *Middleware) Handler() gin.HandlerFunc {
	maxAge := int(m.cfg.SessionTTL.Seconds())
	secure := m.cfg.Production()

	return func(c *gin.Context) {
		sid, err := c.Cookie(m.cfg.SessionCookie)
		fresh := err != nil || sid == ""
		if fresh {
			sid = uuid.NewString()
			c.SetCookie(m.cfg.SessionCookie, sid, maxAge, "/", "", secure, true)
		}

		var sess *domain.Session
		if !fresh {
			sess, err = m.store.Load(c.Request.Context(), sid)
			if err != nil {
				// Starting a blank session here would overwrite whatever
				// consent and token the store still holds for this ID.
				m.logger.Error("session load failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
				return
			}
			if sess != nil {
				if err := m.store.Touch(c.Request.Context(), sid); err != nil {
					m.logger.Warn("session touch failed", zap.Error(err))
				}
			}
		}
		if sess == nil {
			sess = &domain.Session{}
			if err := m.store.Save(c.Request.Context(), sid, sess); err != nil {
				m.logger.Error("session init failed", zap.Error(err))
			}
		}

		c.Set(ginStateKey, &State{ID: sid, Session: sess, store: m.store})
		c.Next()
	}
}

// GetState exposes the session state to handlers.
func GetState(c *gin.Context) (*State, bool) {
	value, ok := c.Get(ginStateKey)
	if !ok {
		return nil, false
	}
	state, ok := value.(*State)
	return state, ok
}
