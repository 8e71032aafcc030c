package badger

import (
	"github.com/poiesic/policygraph/storage"
)

// Store bundles the BadgerDB repositories over one backend.
type Store struct {
	*ClauseRepository
	*ChunkRepository
	*ReferenceRepository

	backend *Backend
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a Store over an open backend. Closing the store closes
// the backend.
func NewStore(backend *Backend) *Store {
	return &Store{
		ClauseRepository:    NewClauseRepository(backend),
		ChunkRepository:     NewChunkRepository(backend),
		ReferenceRepository: NewReferenceRepository(backend),
		backend:             backend,
	}
}

// OpenStore opens a persistent store in the directory at filePath.
func OpenStore(filePath string, opts ...BackendOption) (*Store, error) {
	backend, err := OpenBackend(filePath, false, opts...)
	if err != nil {
		return nil, err
	}
	return NewStore(backend), nil
}

// Backend returns the underlying backend.
func (s *Store) Backend() *Backend {
	return s.backend
}

// Close implements storage.Store.
func (s *Store) Close() error {
	return s.backend.Close()
}
