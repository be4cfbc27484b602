package usage

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	ai "github.com/spetersoncode/llmcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHook captures commands instead of sending them to a server.
type recordingHook struct {
	mu       sync.Mutex
	commands [][]any
	hashes   map[string]map[string]string
}

func (h *recordingHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, fmt.Errorf("unexpected dial to %s", addr)
	}
}

func (h *recordingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := cmd.(*redis.MapStringStringCmd); ok {
			c.SetVal(h.hashes[fmt.Sprint(cmd.Args()[1])])
		}
		return nil
	}
}

func (h *recordingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, cmd := range cmds {
			h.commands = append(h.commands, cmd.Args())
		}
		return nil
	}
}

func newTestLedger(t *testing.T) (*RedisLedger, *recordingHook) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { client.Close() })
	hook := &recordingHook{hashes: map[string]map[string]string{}}
	client.AddHook(hook)
	return NewRedisLedgerWithClient(client, ""), hook
}

func TestRedisLedgerRecordUsage(t *testing.T) {
	ledger, hook := newTestLedger(t)

	require.NoError(t, ledger.RecordUsage(context.Background(), testRecord()))

	var names []string
	var keys []string
	for _, args := range hook.commands {
		names = append(names, fmt.Sprint(args[0]))
		if len(args) > 1 {
			keys = append(keys, fmt.Sprint(args[1]))
		}
	}
	assert.Equal(t, "multi", names[0])
	assert.Equal(t, "exec", names[len(names)-1])
	assert.Contains(t, keys, "llmcore:usage:user-42")
	assert.Contains(t, keys, "llmcore:usage:user-42:openai/gpt-4.1-mini")
	assert.Contains(t, hook.commands, []any{"hincrbyfloat", "llmcore:usage:user-42", "cost", 0.00012})
	assert.Contains(t, hook.commands, []any{"hincrby", "llmcore:usage:user-42", "prompt_tokens", int64(100)})
	assert.NotContains(t, hook.commands, []any{"hincrby", "llmcore:usage:user-42", "failures", int64(1)})
}

func TestRedisLedgerCountsFailures(t *testing.T) {
	ledger, hook := newTestLedger(t)

	rec := testRecord()
	rec.Err = ai.Errorf(ai.KindJobFailed, "job failed")
	require.NoError(t, ledger.RecordUsage(context.Background(), rec))

	assert.Contains(t, hook.commands, []any{"hincrby", "llmcore:usage:user-42", "failures", int64(1)})
}

func TestRedisLedgerTotals(t *testing.T) {
	ledger, hook := newTestLedger(t)
	hook.hashes["llmcore:usage:anonymous"] = map[string]string{
		"calls":             "3",
		"failures":          "1",
		"prompt_tokens":     "300",
		"completion_tokens": "120",
		"cost":              "0.25",
	}

	totals, err := ledger.Totals(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Totals{Calls: 3, Failures: 1, PromptTokens: 300, CompletionTokens: 120, Cost: 0.25}, totals)

	empty, err := ledger.Totals(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, Totals{}, empty)
}

func TestParseTotalsRejectsGarbage(t *testing.T) {
	_, err := parseTotals(map[string]string{"calls": "many"})
	assert.Error(t, err)

	_, err = parseTotals(map[string]string{"cost": "free"})
	assert.Error(t, err)
}

func TestNewRedisLedgerRequiresAddress(t *testing.T) {
	_, err := NewRedisLedger(context.Background(), RedisConfig{})
	assert.Error(t, err)
}
