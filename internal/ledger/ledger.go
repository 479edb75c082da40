package ledger

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/magictales/server/internal/domain"
)

// Ledger owns per-user credit balances and subscription entitlement. All
// mutation funnels through the injected AccountStore so read-modify-write
// atomicity is the store's responsibility, never the caller's.
type Ledger struct {
	store  AccountStore
	logger zerolog.Logger
}

// New constructs a ledger over the given store.
func New(store AccountStore, logger zerolog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// SubscriptionUpdate replaces an account's subscription sub-record.
// MonthlyGrant is optional: when nil the previous grant is preserved.
type SubscriptionUpdate struct {
	Active       bool
	Plan         string
	MonthlyGrant *int
}

// UnlockResult reports the outcome of an entitlement check.
type UnlockResult struct {
	Remaining    int
	Subscription bool
}

// GetAccount returns the stored record, or the zero-value default when the
// account has never been written. Backend outages surface as
// domain.ErrStorageUnavailable and are never defaulted away.
func (l *Ledger) GetAccount(ctx context.Context, email string) (*domain.UserAccount, error) {
	acct, err := l.store.Get(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewAccount(email), nil
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// IncrementCredits adds n credits, flooring the balance at zero.
func (l *Ledger) IncrementCredits(ctx context.Context, email string, n int) (*domain.UserAccount, error) {
	return l.store.Update(ctx, email, func(acct *domain.UserAccount) error {
		acct.Credits += n
		if acct.Credits < 0 {
			acct.Credits = 0
		}
		return nil
	})
}

// DecrementCredit subtracts n credits. A balance below n rejects the whole
// operation with domain.ErrInsufficientCredit and leaves the record
// untouched; balances are never clamped negative.
func (l *Ledger) DecrementCredit(ctx context.Context, email string, n int) (*domain.UserAccount, error) {
	return l.store.Update(ctx, email, func(acct *domain.UserAccount) error {
		if acct.Credits < n {
			return domain.ErrInsufficientCredit
		}
		acct.Credits -= n
		return nil
	})
}

// SetSubscription replaces the subscription sub-record. The plan is written
// as given; only MonthlyGrant inherits the previous value when omitted. This
// is not a credit mutation.
func (l *Ledger) SetSubscription(ctx context.Context, email string, update SubscriptionUpdate) (*domain.UserAccount, error) {
	return l.store.Update(ctx, email, func(acct *domain.UserAccount) error {
		grant := acct.Subscription.MonthlyGrant
		if update.MonthlyGrant != nil {
			grant = *update.MonthlyGrant
		}
		acct.Subscription = domain.Subscription{
			Active:       update.Active,
			Plan:         update.Plan,
			MonthlyGrant: grant,
		}
		return nil
	})
}

// GrantMonthly credits the recurring subscription allowance. Same mutation
// as IncrementCredits; named separately to express intent.
func (l *Ledger) GrantMonthly(ctx context.Context, email string, n int) (*domain.UserAccount, error) {
	l.logger.Info().Str("email", domain.NormalizeEmail(email)).Int("credits", n).Msg("monthly grant")
	return l.IncrementCredits(ctx, email, n)
}

// Unlock performs the entitlement check for one metered action. An active
// subscription allows the action without consuming anything; otherwise
// exactly one credit is consumed atomically.
func (l *Ledger) Unlock(ctx context.Context, email string) (*UnlockResult, error) {
	var result UnlockResult
	_, err := l.store.Update(ctx, email, func(acct *domain.UserAccount) error {
		if acct.Subscription.Active {
			result = UnlockResult{Remaining: acct.Credits, Subscription: true}
			return nil
		}
		if acct.Credits < 1 {
			return domain.ErrInsufficientCredit
		}
		acct.Credits--
		result = UnlockResult{Remaining: acct.Credits, Subscription: false}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
