package ledger

import (
	"context"

	"github.com/magictales/server/internal/domain"
)

// AccountKey namespaces store keys per account.
func AccountKey(email string) string {
	return "user:" + domain.NormalizeEmail(email)
}

// AccountStore persists UserAccount records keyed by normalized email.
//
// Get returns domain.ErrNotFound for a missing record and wraps backend
// outages in domain.ErrStorageUnavailable; the two are never conflated.
//
// Update must apply fn as one atomic read-modify-write per account: two
// concurrent updates of the same key may not both observe the pre-image. A
// naive GET-then-PUT does not satisfy this and would let concurrent credit
// decrements double-spend.
type AccountStore interface {
	Get(ctx context.Context, email string) (*domain.UserAccount, error)
	Update(ctx context.Context, email string, fn func(acct *domain.UserAccount) error) (*domain.UserAccount, error)
}
