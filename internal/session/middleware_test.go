package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemozak1/API-Explorer-II/internal/config"
	"github.com/nemozak1/API-Explorer-II/internal/domain"
)

func newTestEngine(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{SessionCookie: "opey_session", SessionTTL: 5 * time.Minute}
	r := gin.New()
	r.Use(NewMiddleware(store, cfg, zap.NewNop()).Handler())
	r.GET("/whoami", func(c *gin.Context) {
		state, ok := GetState(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sid": state.ID, "token": state.Session.OpeyToken})
	})
	r.POST("/mutate", func(c *gin.Context) {
		state, _ := GetState(c)
		state.Session.OpeyToken = "cached"
		if err := state.Persist(c.Request.Context()); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestMiddlewareIssuesCookieAndInitialisesSession(t *testing.T) {
	store := newMemoryStore()
	r := newTestEngine(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "opey_session", cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
	require.Len(t, store.data, 1)
}

func TestMiddlewareLoadsExistingSession(t *testing.T) {
	store := newMemoryStore()
	r := newTestEngine(store)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/mutate", nil))
	require.Equal(t, http.StatusOK, first.Code)
	cookie := first.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	second := httptest.NewRecorder()
	r.ServeHTTP(second, req)

	require.Equal(t, http.StatusOK, second.Code)
	require.Contains(t, second.Body.String(), `"token":"cached"`)
	require.Empty(t, second.Result().Cookies(), "existing session must not be re-issued a cookie")
}

func TestMiddlewareTouchesExistingSession(t *testing.T) {
	store := newMemoryStore()
	r := newTestEngine(store)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/mutate", nil))
	cookie := first.Result().Cookies()[0]
	require.Zero(t, store.touchCalls, "fresh sessions are armed by Save, not Touch")

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	second := httptest.NewRecorder()
	r.ServeHTTP(second, req)

	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, 1, store.touchCalls, "read-only requests must re-arm the session TTL")
}

func TestMiddlewareFailsClosedWhenLoadErrors(t *testing.T) {
	store := newMemoryStore()
	r := newTestEngine(store)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/mutate", nil))
	require.Equal(t, http.StatusOK, first.Code)
	cookie := first.Result().Cookies()[0]

	store.loadErr = context.DeadlineExceeded
	savesBefore := store.saveCalls

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	second := httptest.NewRecorder()
	r.ServeHTTP(second, req)

	require.Equal(t, http.StatusInternalServerError, second.Code)
	require.Contains(t, second.Body.String(), "Internal Server Error")
	require.Equal(t, savesBefore, store.saveCalls, "a failed load must not be papered over with a blank session")
	require.Equal(t, "cached", store.data[cookie.Value].OpeyToken, "stored state must survive a transient load failure")
}

// ---- fakes ----

type memoryStore struct {
	mu         sync.RWMutex
	data       map[string]domain.Session
	loadErr    error
	saveCalls  int
	touchCalls int
}

var _ Store = (*memoryStore)(nil)

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]domain.Session{}}
}

func (m *memoryStore) Load(_ context.Context, sid string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if sess, ok := m.data[sid]; ok {
		copy := sess
		return &copy, nil
	}
	return nil, nil
}

func (m *memoryStore) Save(_ context.Context, sid string, sess *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	m.data[sid] = *sess
	return nil
}

func (m *memoryStore) Touch(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touchCalls++
	return nil
}

func (m *memoryStore) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sid)
	return nil
}
