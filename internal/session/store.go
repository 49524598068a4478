package session

import (
	"context"

	"github.com/nemozak1/API-Explorer-II/internal/domain"
)

// Store persists per-browser session state in a shared backend keyed by
// session ID. Load returns (nil, nil) when no entry exists; Save and
// Touch re-arm the entry's inactivity TTL.
type Store interface {
	Load(ctx context.Context, sid string) (*domain.Session, error)
	Save(ctx context.Context, sid string, sess *domain.Session) error
	Touch(ctx context.Context, sid string) error
	Delete(ctx context.Context, sid string) error
}
