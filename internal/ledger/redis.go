package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/magictales/server/internal/domain"
)

// casAttempts bounds the optimistic-lock retry loop under contention.
const casAttempts = 16

// RedisStore persists accounts as JSON values in Redis. Updates run inside a
// WATCH/MULTI transaction so the read-modify-write is a compare-and-swap:
// when another writer touches the key first the transaction aborts and the
// update retries on a fresh snapshot.
type RedisStore struct {
	client redis.UniversalClient
	logger zerolog.Logger
}

// NewRedisStore wraps an established Redis client.
func NewRedisStore(client redis.UniversalClient, logger zerolog.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

// Get fetches and decodes an account record.
func (s *RedisStore) Get(ctx context.Context, email string) (*domain.UserAccount, error) {
	raw, err := s.client.Get(ctx, AccountKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %v", domain.ErrStorageUnavailable, err)
	}
	return decodeAccount(email, []byte(raw))
}

// Update applies fn via optimistic CAS on the account key.
func (s *RedisStore) Update(ctx context.Context, email string, fn func(acct *domain.UserAccount) error) (*domain.UserAccount, error) {
	key := AccountKey(email)
	var updated *domain.UserAccount

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		var acct *domain.UserAccount
		switch {
		case errors.Is(err, redis.Nil):
			acct = domain.NewAccount(email)
		case err != nil:
			return fmt.Errorf("%w: redis get: %v", domain.ErrStorageUnavailable, err)
		default:
			if acct, err = decodeAccount(email, []byte(raw)); err != nil {
				return err
			}
		}

		if err := fn(acct); err != nil {
			return err
		}

		encoded, err := json.Marshal(acct)
		if err != nil {
			return fmt.Errorf("ledger: encode account: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = acct
		return nil
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug().Str("key", key).Int("attempt", attempt+1).Msg("account cas conflict, retrying")
			continue
		}
		if err != nil {
			if isDomainErr(err) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: redis watch: %v", domain.ErrStorageUnavailable, err)
		}
		return updated, nil
	}
	return nil, fmt.Errorf("%w: cas retries exhausted for %s", domain.ErrStorageUnavailable, key)
}

func decodeAccount(email string, raw []byte) (*domain.UserAccount, error) {
	var acct domain.UserAccount
	if err := json.Unmarshal(raw, &acct); err != nil {
		return nil, fmt.Errorf("ledger: decode account: %w", err)
	}
	if acct.Email == "" {
		acct.Email = domain.NormalizeEmail(email)
	}
	return &acct, nil
}

// isDomainErr keeps caller-meaningful failures from being re-wrapped as
// storage outages on their way out of the transaction closure.
func isDomainErr(err error) bool {
	return errors.Is(err, domain.ErrInsufficientCredit) ||
		errors.Is(err, domain.ErrStorageUnavailable) ||
		errors.Is(err, domain.ErrNotFound)
}

var _ AccountStore = (*RedisStore)(nil)
