package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	ai "github.com/spetersoncode/llmcore"
)

// RedisConfig describes the Redis connection of a RedisLedger.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	// KeyPrefix is prepended to the user key (default "llmcore:usage:").
	KeyPrefix string
}

// Hash fields of a user's usage counters.
const (
	fieldCalls            = "calls"
	fieldFailures         = "failures"
	fieldPromptTokens     = "prompt_tokens"
	fieldCompletionTokens = "completion_tokens"
	fieldCost             = "cost"
)

// Totals are the accumulated counters of one user.
type Totals struct {
	Calls            int64
	Failures         int64
	PromptTokens     int64
	CompletionTokens int64
	Cost             float64
}

// RedisLedger accumulates per-user usage counters in a Redis hash.
type RedisLedger struct {
	client redis.Cmdable
	prefix string
	close  func() error
}

// NewRedisLedger connects to Redis and checks the connection.
func NewRedisLedger(ctx context.Context, cfg RedisConfig) (*RedisLedger, error) {
	if cfg.Address == "" {
		return nil, errors.New("usage: Redis address is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("usage: connect to Redis: %w", err)
	}
	l := NewRedisLedgerWithClient(client, cfg.KeyPrefix)
	l.close = client.Close
	return l, nil
}

// NewRedisLedgerWithClient wraps an existing client.
func NewRedisLedgerWithClient(client redis.Cmdable, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "llmcore:usage:"
	}
	return &RedisLedger{client: client, prefix: prefix}
}

// RecordUsage adds the call's tokens and cost to the user's counters.
// Counters of the user and of the user's model are updated in one
// transaction.
func (l *RedisLedger) RecordUsage(ctx context.Context, rec ai.UsageRecord) error {
	user := l.key(userKey(rec))
	model := user + ":" + rec.Provider + "/" + rec.Model
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range []string{user, model} {
			pipe.HIncrBy(ctx, key, fieldCalls, 1)
			if rec.Err != nil {
				pipe.HIncrBy(ctx, key, fieldFailures, 1)
			}
			pipe.HIncrBy(ctx, key, fieldPromptTokens, int64(rec.Usage.PromptTokens))
			pipe.HIncrBy(ctx, key, fieldCompletionTokens, int64(rec.Usage.CompletionTokens))
			pipe.HIncrByFloat(ctx, key, fieldCost, rec.Usage.CostEstimate)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("usage: record %s: %w", rec.CallID, err)
	}
	return nil
}

// Totals returns the counters of a user. Unknown users have zero totals.
func (l *RedisLedger) Totals(ctx context.Context, userContext string) (Totals, error) {
	if userContext == "" {
		userContext = AnonymousUser
	}
	fields, err := l.client.HGetAll(ctx, l.key(userContext)).Result()
	if err != nil {
		return Totals{}, fmt.Errorf("usage: read totals: %w", err)
	}
	return parseTotals(fields)
}

// Close closes the client if the ledger opened it.
func (l *RedisLedger) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}

func (l *RedisLedger) key(user string) string {
	return l.prefix + user
}

func parseTotals(fields map[string]string) (Totals, error) {
	var t Totals
	for name, dst := range map[string]*int64{
		fieldCalls:            &t.Calls,
		fieldFailures:         &t.Failures,
		fieldPromptTokens:     &t.PromptTokens,
		fieldCompletionTokens: &t.CompletionTokens,
	} {
		v, ok := fields[name]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Totals{}, fmt.Errorf("usage: field %s: %w", name, err)
		}
		*dst = n
	}
	if v, ok := fields[fieldCost]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Totals{}, fmt.Errorf("usage: field %s: %w", fieldCost, err)
		}
		t.Cost = f
	}
	return t, nil
}
