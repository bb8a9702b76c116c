package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	keyBalance = "ledger:balance:%s"
	keyEntries = "ledger:entries:%s"
)

// RedisLedger implements Ledger on Redis for deployments that keep balances
// in a shared store. Balances live under ledger:balance:<user>, applied
// entries under a ledger:entries:<user> hash keyed by round and entry type.
// Atomicity uses WATCH-based optimistic transactions.
type RedisLedger struct {
	client  *redis.Client
	opening decimal.Decimal
}

// NewRedisLedger connects to Redis and verifies the connection.
func NewRedisLedger(ctx context.Context, opts *redis.Options, openingBalance decimal.Decimal) (*RedisLedger, error) {
	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisLedger{client: client, opening: openingBalance}, nil
}

// Close closes the Redis connection.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}

// Balance returns the user's balance, opening the account if needed.
func (l *RedisLedger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	raw, err := l.client.Get(ctx, fmt.Sprintf(keyBalance, userID)).Result()
	if errors.Is(err, redis.Nil) {
		if err := l.client.SetNX(ctx, fmt.Sprintf(keyBalance, userID), l.opening.String(), 0).Err(); err != nil {
			return decimal.Zero, fmt.Errorf("failed to open account: %w", err)
		}
		return l.opening, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad balance %q: %w", raw, err)
	}
	return balance, nil
}

// Debit takes amount from the user's balance for a round bet.
func (l *RedisLedger) Debit(ctx context.Context, userID string, amount decimal.Decimal, roundID string) error {
	return l.apply(ctx, userID, amount.Neg(), roundID, EntryBet)
}

// Credit pays amount to the user's balance for a round settlement.
func (l *RedisLedger) Credit(ctx context.Context, userID string, amount decimal.Decimal, roundID string) error {
	return l.apply(ctx, userID, amount, roundID, EntryWin)
}

func (l *RedisLedger) apply(ctx context.Context, userID string, delta decimal.Decimal, roundID, entryType string) error {
	balanceKey := fmt.Sprintf(keyBalance, userID)
	entriesKey := fmt.Sprintf(keyEntries, userID)
	field := roundID + ":" + entryType

	// retry while a concurrent writer touches the keys
	for attempt := 0; attempt < 10; attempt++ {
		err := l.client.Watch(ctx, func(tx *redis.Tx) error {
			applied, err := tx.HExists(ctx, entriesKey, field).Result()
			if err != nil {
				return fmt.Errorf("failed to check ledger entry: %w", err)
			}
			if applied {
				return nil
			}

			balance := l.opening
			raw, err := tx.Get(ctx, balanceKey).Result()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return fmt.Errorf("failed to read balance: %w", err)
			default:
				if balance, err = decimal.NewFromString(raw); err != nil {
					return fmt.Errorf("bad balance %q: %w", raw, err)
				}
			}

			next := balance.Add(delta)
			if next.IsNegative() {
				return ErrInsufficientFunds
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, entriesKey, field, delta.Abs().String())
				pipe.Set(ctx, balanceKey, next.String(), 0)
				return nil
			})
			return err
		}, balanceKey, entriesKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return fmt.Errorf("ledger transaction for round %s kept conflicting", roundID)
}
