package memory

import (
	"sync"

	"github.com/utafrali/agromarket-storefront/internal/repository"
)

// BlobStore keeps image previews until their upload resolves.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]*repository.Blob
}

// NewBlobStore creates an empty blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]*repository.Blob)}
}

// Put stores b under b.ID.
func (s *BlobStore) Put(b *repository.Blob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[b.ID] = b
}

// Get returns the blob with id.
func (s *BlobStore) Get(id string) (*repository.Blob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[id]
	return b, ok
}

// Release frees the blob with id. Releasing twice is a no-op.
func (s *BlobStore) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, id)
}

// ReleaseSession frees every blob owned by sid and returns how many there were.
func (s *BlobStore) ReleaseSession(sid string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, b := range s.blobs {
		if b.SessionID == sid {
			delete(s.blobs, id)
			n++
		}
	}
	return n
}

// Len returns the number of held blobs.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
