package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	ai "github.com/spetersoncode/llmcore"
)

const usageSchema = `CREATE TABLE IF NOT EXISTS llm_usage (
        call_id VARCHAR(64) PRIMARY KEY,
        provider VARCHAR(64) NOT NULL,
        model VARCHAR(128) NOT NULL,
        user_context VARCHAR(255) NOT NULL,
        prompt_tokens INT NOT NULL DEFAULT 0,
        completion_tokens INT NOT NULL DEFAULT 0,
        cost DOUBLE NOT NULL DEFAULT 0,
        error_kind VARCHAR(64) DEFAULT '',
        error_message TEXT,
        duration_ms BIGINT NOT NULL DEFAULT 0,
        created_at BIGINT NOT NULL,
        INDEX idx_usage_user (user_context),
        INDEX idx_usage_created (created_at)
)`

const insertUsage = `INSERT INTO llm_usage
    (call_id, provider, model, user_context, prompt_tokens, completion_tokens, cost, error_kind, error_message, duration_ms, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// mysqlErrDuplicateEntry is returned when a call id is recorded twice.
const mysqlErrDuplicateEntry = 1062

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// MySQLLedger appends one row per call to the llm_usage table.
type MySQLLedger struct {
	db    execer
	close func() error
}

// NewMySQLLedger opens the database and creates the table if needed.
func NewMySQLLedger(ctx context.Context, dsn string) (*MySQLLedger, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("usage: MySQL DSN is empty")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("usage: open MySQL: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("usage: connect to MySQL: %w", err)
	}
	l := &MySQLLedger{db: db, close: db.Close}
	if err := l.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *MySQLLedger) initSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, usageSchema); err != nil {
		return fmt.Errorf("usage: create llm_usage table: %w", err)
	}
	return nil
}

// RecordUsage inserts the call's row. Recording the same call twice is a
// no-op.
func (l *MySQLLedger) RecordUsage(ctx context.Context, rec ai.UsageRecord) error {
	var kind, msg string
	if rec.Err != nil {
		kind = string(ai.KindOf(rec.Err))
		msg = rec.Err.Error()
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := l.db.ExecContext(ctx, insertUsage,
		rec.CallID, rec.Provider, rec.Model, userKey(rec),
		rec.Usage.PromptTokens, rec.Usage.CompletionTokens, rec.Usage.CostEstimate,
		kind, msg, rec.Duration.Milliseconds(), ts.Unix(),
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return nil
		}
		return fmt.Errorf("usage: insert %s: %w", rec.CallID, err)
	}
	return nil
}

// Close closes the database if the ledger opened it.
func (l *MySQLLedger) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}
