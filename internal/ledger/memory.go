package ledger

import (
	"context"
	"sync"

	"github.com/magictales/server/internal/domain"
)

// MemoryStore keeps accounts in a mutex-guarded map. It is the fallback for
// development and tests when no Redis backend is configured.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]domain.UserAccount
}

// NewMemoryStore initializes an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]domain.UserAccount)}
}

// Get returns a copy of the stored account or domain.ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, email string) (*domain.UserAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := AccountKey(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := acct
	return &copied, nil
}

// Update applies fn under the store mutex, which makes the whole
// read-modify-write atomic per process.
func (s *MemoryStore) Update(ctx context.Context, email string, fn func(acct *domain.UserAccount) error) (*domain.UserAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := AccountKey(email)
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[key]
	if !ok {
		acct = *domain.NewAccount(email)
	}
	if err := fn(&acct); err != nil {
		return nil, err
	}
	s.accounts[key] = acct
	copied := acct
	return &copied, nil
}

var _ AccountStore = (*MemoryStore)(nil)
