package repository

import (
	"context"
	"errors"
	"time"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/state"
)

// ErrSessionBusy is returned by SessionRepository.Update when the session
// kept changing underneath every retry.
var ErrSessionBusy = errors.New("session modified concurrently")

// SessionRepository persists per-session state.
type SessionRepository interface {
	// Get returns the session or an ErrNotFound AppError.
	Get(ctx context.Context, sid string) (*state.Session, error)

	// Create stores a new session, overwriting any previous one with the same ID.
	Create(ctx context.Context, s *state.Session) error

	// Update loads the session, passes it to fn and writes the result back
	// atomically. A concurrent write retries fn against the fresh copy.
	Update(ctx context.Context, sid string, fn func(*state.Session) error) (*state.Session, error)

	// Delete removes the session and its sequence counter.
	Delete(ctx context.Context, sid string) error

	// NextSeq returns the next request sequence of the session.
	NextSeq(ctx context.Context, sid string) (int64, error)
}

// DraftStore keeps checkout drafts in process memory.
type DraftStore interface {
	// Get returns the session's draft or an ErrNotFound AppError.
	Get(sid string) (*domain.OrderDraft, error)

	// Put stores d as the session's only draft. It fails with an
	// ErrConflict AppError while the current draft is being submitted.
	Put(d *domain.OrderDraft) error

	// Update runs fn on the session's draft while holding its lock.
	Update(sid string, fn func(*domain.OrderDraft) error) (*domain.OrderDraft, error)

	// Discard drops the session's draft unless it is being submitted.
	Discard(sid string) error

	// Delete drops the session's draft unconditionally.
	Delete(sid string)
}

// Blob is an uploaded file held in memory until it is hosted.
type Blob struct {
	ID          string
	SessionID   string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// BlobStore keeps image previews in memory.
type BlobStore interface {
	Put(b *Blob)
	Get(id string) (*Blob, bool)
	Release(id string)
	ReleaseSession(sid string) int
}
