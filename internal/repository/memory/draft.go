package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
)

// DraftStore holds one checkout draft per session. Drafts never leave the
// process; expired drafts are swept by Run.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[string]*domain.OrderDraft
	now    func() time.Time
	logger *slog.Logger
}

// NewDraftStore creates an empty draft store.
func NewDraftStore(logger *slog.Logger) *DraftStore {
	return &DraftStore{
		drafts: make(map[string]*domain.OrderDraft),
		now:    time.Now,
		logger: logger,
	}
}

// Get returns a copy of the session's draft.
func (s *DraftStore) Get(sid string) (*domain.OrderDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookup(sid)
	if err != nil {
		return nil, err
	}
	cp := *d
	return &cp, nil
}

// Put stores d, replacing any earlier draft of the same session. A draft
// that is being submitted is never replaced.
func (s *DraftStore) Put(d *domain.OrderDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkNotSubmitting(d.SessionID); err != nil {
		return err
	}
	s.drafts[d.SessionID] = d
	return nil
}

// Update runs fn against the stored draft. The store lock is held for the
// duration of fn, so fn must not block on the network.
func (s *DraftStore) Update(sid string, fn func(*domain.OrderDraft) error) (*domain.OrderDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookup(sid)
	if err != nil {
		return nil, err
	}
	work := *d
	if err := fn(&work); err != nil {
		return nil, err
	}
	*d = work
	cp := work
	return &cp, nil
}

// Discard drops the session's draft unless it is being submitted. A missing
// draft is not an error.
func (s *DraftStore) Discard(sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkNotSubmitting(sid); err != nil {
		return err
	}
	delete(s.drafts, sid)
	return nil
}

// Delete drops the session's draft whatever its state.
func (s *DraftStore) Delete(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, sid)
}

func (s *DraftStore) lookup(sid string) (*domain.OrderDraft, error) {
	d, ok := s.drafts[sid]
	if !ok {
		return nil, apperrors.NotFound("checkout", sid)
	}
	if d.Expired(s.now()) {
		delete(s.drafts, sid)
		return nil, apperrors.Gone("your checkout session expired, please start again")
	}
	return d, nil
}

func (s *DraftStore) checkNotSubmitting(sid string) error {
	d, ok := s.drafts[sid]
	if ok && d.State == domain.CheckoutSubmitting && !d.Expired(s.now()) {
		return apperrors.Conflict("your order is already being submitted")
	}
	return nil
}

// Sweep removes expired drafts and returns how many were dropped.
func (s *DraftStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for sid, d := range s.drafts {
		if d.Expired(now) {
			delete(s.drafts, sid)
			n++
		}
	}
	return n
}

// Len returns the number of stored drafts.
func (s *DraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

// Run sweeps every interval until ctx is canceled.
func (s *DraftStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("expired checkout drafts swept", slog.Int("count", n))
			}
		}
	}
}
