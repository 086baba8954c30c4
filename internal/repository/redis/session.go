package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/agromarket-storefront/internal/repository"
	"github.com/utafrali/agromarket-storefront/internal/state"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
)

const (
	sessionPrefix = "session:"
	seqPrefix     = "seq:"
	maxTxRetries  = 5
)

// SessionRepository implements repository.SessionRepository using Redis.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionRepository creates a new Redis-backed session repository.
func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{
		client: client,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Get retrieves a session by ID from Redis.
func (r *SessionRepository) Get(ctx context.Context, sid string) (*state.Session, error) {
	data, err := r.client.Get(ctx, sessionPrefix+sid).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("session", sid)
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var s state.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

// Create persists a new session with the configured TTL.
func (r *SessionRepository) Create(ctx context.Context, s *state.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionPrefix+s.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Update applies fn under WATCH/MULTI and refreshes the TTL. An error from fn
// aborts without writing.
func (r *SessionRepository) Update(ctx context.Context, sid string, fn func(*state.Session) error) (*state.Session, error) {
	key := sessionPrefix + sid
	var result *state.Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return apperrors.NotFound("session", sid)
			}
			return fmt.Errorf("redis get session: %w", err)
		}

		var s state.Session
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if err := fn(&s); err != nil {
			return err
		}
		s.UpdatedAt = r.now()

		out, err := json.Marshal(&s)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, r.ttl)
			pipe.Expire(ctx, seqPrefix+sid, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = &s
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, repository.ErrSessionBusy
}

// Delete removes a session and its sequence counter.
func (r *SessionRepository) Delete(ctx context.Context, sid string) error {
	if err := r.client.Del(ctx, sessionPrefix+sid, seqPrefix+sid).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

// NextSeq increments the session's request counter.
func (r *SessionRepository) NextSeq(ctx context.Context, sid string) (int64, error) {
	seq, err := r.client.Incr(ctx, seqPrefix+sid).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr seq: %w", err)
	}
	return seq, nil
}
