package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/magictales/server/internal/domain"
)

func newTestLedger() *Ledger {
	return New(NewMemoryStore(), zerolog.Nop())
}

func TestAccountKey(t *testing.T) {
	if got := AccountKey("  Kid@Example.COM "); got != "user:kid@example.com" {
		t.Fatalf("AccountKey() = %q", got)
	}
}

func TestGetAccountDefaultsWhenMissing(t *testing.T) {
	l := newTestLedger()
	acct, err := l.GetAccount(context.Background(), "New@Example.com")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if acct.Email != "new@example.com" {
		t.Fatalf("email = %q", acct.Email)
	}
	if acct.Credits != 0 || acct.Subscription.Active {
		t.Fatalf("fresh account not zero-valued: %+v", acct)
	}
}

func TestGetAccountDoesNotDefaultOutages(t *testing.T) {
	l := New(failingStore{}, zerolog.Nop())
	_, err := l.GetAccount(context.Background(), "a@b.com")
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("error = %v, want ErrStorageUnavailable passthrough", err)
	}
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, email string) (*domain.UserAccount, error) {
	return nil, domain.ErrStorageUnavailable
}

func (failingStore) Update(ctx context.Context, email string, fn func(*domain.UserAccount) error) (*domain.UserAccount, error) {
	return nil, domain.ErrStorageUnavailable
}

func TestIncrementCredits(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	acct, err := l.IncrementCredits(ctx, "a@b.com", 10)
	if err != nil {
		t.Fatalf("IncrementCredits() error = %v", err)
	}
	if acct.Credits != 10 {
		t.Fatalf("credits = %d, want 10", acct.Credits)
	}

	// Negative deltas floor at zero instead of going negative.
	acct, err = l.IncrementCredits(ctx, "a@b.com", -25)
	if err != nil {
		t.Fatalf("IncrementCredits() error = %v", err)
	}
	if acct.Credits != 0 {
		t.Fatalf("credits = %d, want floor at 0", acct.Credits)
	}
}

func TestDecrementCredit(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	if _, err := l.IncrementCredits(ctx, "a@b.com", 2); err != nil {
		t.Fatal(err)
	}

	acct, err := l.DecrementCredit(ctx, "a@b.com", 1)
	if err != nil {
		t.Fatalf("DecrementCredit() error = %v", err)
	}
	if acct.Credits != 1 {
		t.Fatalf("credits = %d, want 1", acct.Credits)
	}

	// Over-spend rejects and leaves the balance untouched.
	_, err = l.DecrementCredit(ctx, "a@b.com", 5)
	if !errors.Is(err, domain.ErrInsufficientCredit) {
		t.Fatalf("error = %v, want ErrInsufficientCredit", err)
	}
	acct, err = l.GetAccount(ctx, "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if acct.Credits != 1 {
		t.Fatalf("credits after rejected spend = %d, want 1", acct.Credits)
	}
}

func TestConcurrentDecrementSingleCredit(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	if _, err := l.IncrementCredits(ctx, "race@b.com", 1); err != nil {
		t.Fatal(err)
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.DecrementCredit(ctx, "race@b.com", 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, domain.ErrInsufficientCredit) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want exactly 1 spend of the single credit", succeeded)
	}
}

func TestSetSubscriptionPreservesGrantWhenOmitted(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	grant := 60
	if _, err := l.SetSubscription(ctx, "sub@b.com", SubscriptionUpdate{
		Active: true, Plan: "price_pro", MonthlyGrant: &grant,
	}); err != nil {
		t.Fatal(err)
	}

	// Lifecycle transition without a grant keeps the recorded 60.
	acct, err := l.SetSubscription(ctx, "sub@b.com", SubscriptionUpdate{
		Active: false, Plan: "price_pro",
	})
	if err != nil {
		t.Fatal(err)
	}
	if acct.Subscription.Active {
		t.Fatal("subscription should be inactive")
	}
	if acct.Subscription.MonthlyGrant != 60 {
		t.Fatalf("monthly grant = %d, want preserved 60", acct.Subscription.MonthlyGrant)
	}

	// An explicit zero grant does overwrite.
	zero := 0
	acct, err = l.SetSubscription(ctx, "sub@b.com", SubscriptionUpdate{
		Active: false, Plan: "price_pro", MonthlyGrant: &zero,
	})
	if err != nil {
		t.Fatal(err)
	}
	if acct.Subscription.MonthlyGrant != 0 {
		t.Fatalf("monthly grant = %d, want explicit 0", acct.Subscription.MonthlyGrant)
	}
}

func TestUnlockSubscriberKeepsCredits(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	grant := 20
	if _, err := l.SetSubscription(ctx, "sub@b.com", SubscriptionUpdate{Active: true, Plan: "p", MonthlyGrant: &grant}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.IncrementCredits(ctx, "sub@b.com", 3); err != nil {
		t.Fatal(err)
	}

	result, err := l.Unlock(ctx, "sub@b.com")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if !result.Subscription {
		t.Fatal("expected subscription unlock")
	}
	if result.Remaining != 3 {
		t.Fatalf("remaining = %d, want untouched 3", result.Remaining)
	}
}

func TestUnlockConsumesOneCredit(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	if _, err := l.IncrementCredits(ctx, "payg@b.com", 2); err != nil {
		t.Fatal(err)
	}

	result, err := l.Unlock(ctx, "payg@b.com")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if result.Subscription {
		t.Fatal("not a subscriber")
	}
	if result.Remaining != 1 {
		t.Fatalf("remaining = %d, want 1", result.Remaining)
	}
}

func TestUnlockWithoutEntitlement(t *testing.T) {
	l := newTestLedger()
	_, err := l.Unlock(context.Background(), "broke@b.com")
	if !errors.Is(err, domain.ErrInsufficientCredit) {
		t.Fatalf("error = %v, want ErrInsufficientCredit", err)
	}
}

func TestGrantMonthly(t *testing.T) {
	l := newTestLedger()
	acct, err := l.GrantMonthly(context.Background(), "sub@b.com", 20)
	if err != nil {
		t.Fatalf("GrantMonthly() error = %v", err)
	}
	if acct.Credits != 20 {
		t.Fatalf("credits = %d, want 20", acct.Credits)
	}
}
