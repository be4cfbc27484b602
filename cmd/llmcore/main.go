// Command llmcore sends chat requests to any catalog provider.
//
// Usage:
//
//	llmcore [flags] call <prompt>     one call, prints the reply and usage
//	llmcore [flags] stream <prompt>   streams the reply to stdout
//	llmcore [flags] models            lists the catalog
//	llmcore [flags] serve             AG-UI server on LLMCORE_PORT
//	llmcore [flags] mcp               MCP server over stdio
//
// Flags:
//
//	-provider, -model  model selection (default: LLMCORE_PROVIDER, LLMCORE_MODEL)
//	-system            system message
//	-set name=value    parameter override, repeatable
//	-tool id           built-in tool, repeatable
//	-user              user id for usage attribution
//	-thoughts          print extracted reasoning and tool calls
//
// Configuration is via environment variables, loaded from .env if present:
//
//	LLMCORE_LOG_LEVEL     - debug, info, warn, error (default: info)
//	LLMCORE_CATALOG       - YAML catalog replacing the embedded one
//	LLMCORE_TIMEOUT       - per-call deadline (default: 2m)
//	LLMCORE_MAX_ATTEMPTS  - attempts per call for transient failures (default: 3)
//	LLMCORE_POLL_BUDGET   - async job poll budget (default: 30s)
//	LLMCORE_LOG_USAGE     - log one line per call (default: true)
//	REDIS_ADDR            - per-user usage counters in Redis
//	MYSQL_DSN             - append-only usage rows in MySQL
//	AMQP_URL, AMQP_QUEUE  - publish call events to RabbitMQ
//	OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY, PERPLEXITY_API_KEY
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/agui"
	"github.com/spetersoncode/llmcore/client"
	"github.com/spetersoncode/llmcore/dispatch"
	"github.com/spetersoncode/llmcore/mcp"
	"github.com/spetersoncode/llmcore/observe"
	"github.com/spetersoncode/llmcore/registry"
	"github.com/spetersoncode/llmcore/retry"
	"github.com/spetersoncode/llmcore/usage"
)

// overrides collects -set name=value flags.
type overrides map[string]any

func (o overrides) String() string {
	parts := make([]string, 0, len(o))
	for k, v := range o {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ",")
}

func (o overrides) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	o[name] = parseValue(value)
	return nil
}

// parseValue types a flag value: null unsets the parameter, numbers and
// booleans keep their type, anything else is a string.
func parseValue(s string) any {
	if s == "null" {
		return nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// listFlag collects repeatable string flags.
type listFlag []string

func (l *listFlag) String() string     { return strings.Join(*l, ",") }
func (l *listFlag) Set(s string) error { *l = append(*l, s); return nil }

type options struct {
	provider string
	model    string
	system   string
	user     string
	thoughts bool
	params   overrides
	tools    listFlag
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	opts := options{params: overrides{}}
	fs := flag.NewFlagSet("llmcore", flag.ExitOnError)
	fs.StringVar(&opts.provider, "provider", cfg.Provider, "provider id")
	fs.StringVar(&opts.model, "model", cfg.Model, "model id")
	fs.StringVar(&opts.system, "system", "", "system message")
	fs.StringVar(&opts.user, "user", cfg.User, "user id for usage attribution")
	fs.BoolVar(&opts.thoughts, "thoughts", false, "print extracted reasoning and tool calls")
	fs.Var(opts.params, "set", "parameter override name=value (repeatable)")
	fs.Var(&opts.tools, "tool", "built-in tool id (repeatable)")
	fs.Parse(os.Args[1:])

	level, _ := parseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, cleanup, err := newClient(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer cleanup()

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(2)
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "call":
		err = runCall(ctx, c, cfg, opts, strings.Join(rest, " "), os.Stdout)
	case "stream":
		err = runStream(ctx, c, cfg, opts, strings.Join(rest, " "), os.Stdout)
	case "models":
		err = runModels(c.Registry(), opts.provider, os.Stdout)
	case "serve":
		err = runServe(ctx, c, cfg, opts, logger)
	case "mcp":
		err = mcp.ServeStdio(c, mcp.WithName("llmcore"), mcp.WithVersion("1.0.0"))
	default:
		err = fmt.Errorf("unknown command: %s (must be call, stream, models, serve, or mcp)", cmd)
	}
	if err != nil {
		logger.Error("command failed", "command", cmd, "error", err, "kind", ai.KindOf(err))
		cleanup()
		os.Exit(1)
	}
}

// newClient wires the catalog, the usage ledgers and the event sinks.
// The returned cleanup closes the ledger and sink connections.
func newClient(ctx context.Context, cfg *Config, logger *slog.Logger) (*client.Client, func(), error) {
	reg := registry.Default()
	if cfg.Catalog != "" {
		var err error
		if reg, err = registry.LoadFile(cfg.Catalog); err != nil {
			return nil, nil, err
		}
	}

	var closers []io.Closer
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close failed", "error", err)
			}
		}
		closers = nil
	}

	var hooks []ai.UsageHook
	if cfg.LogUsage {
		hooks = append(hooks, usage.Log(logger))
	}
	if cfg.RedisAddr != "" {
		ledger, err := usage.NewRedisLedger(ctx, usage.RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, ledger)
		hooks = append(hooks, ledger)
		logger.Info("usage ledger enabled", "backend", "redis", "addr", cfg.RedisAddr)
	}
	if cfg.MySQLDSN != "" {
		ledger, err := usage.NewMySQLLedger(ctx, cfg.MySQLDSN)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, ledger)
		hooks = append(hooks, ledger)
		logger.Info("usage ledger enabled", "backend", "mysql")
	}

	sinks := []observe.Sink{observe.Log(logger)}
	if cfg.AMQPURL != "" {
		sink, err := observe.NewAMQPSink(observe.AMQPConfig{
			URL:    cfg.AMQPURL,
			Queue:  cfg.AMQPQueue,
			Logger: logger,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, sink)
		sinks = append(sinks, sink)
		logger.Info("event sink enabled", "backend", "amqp", "queue", cfg.AMQPQueue)
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.MaxAttempts
	poll := dispatch.DefaultPollConfig()
	poll.Budget = cfg.PollBudget

	c := client.New(client.Config{
		Registry: reg,
		Options: []dispatch.Option{
			dispatch.WithLogger(logger),
			dispatch.WithRetry(retryCfg),
			dispatch.WithPolling(poll),
			dispatch.WithSink(observe.Multi(sinks...)),
			dispatch.WithUsageHook(usage.Multi(hooks...)),
		},
	})
	return c, cleanup, nil
}

func (o options) request(prompt string) (*ai.CallRequest, error) {
	if o.provider == "" || o.model == "" {
		return nil, errors.New("-provider and -model are required (or set LLMCORE_PROVIDER and LLMCORE_MODEL)")
	}
	if prompt == "" {
		return nil, errors.New("prompt is required")
	}
	var messages []ai.Message
	if o.system != "" {
		messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: o.system})
	}
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: prompt})

	var tools []ai.Tool
	for _, id := range o.tools {
		tools = append(tools, ai.Tool{BuiltIn: id})
	}
	return &ai.CallRequest{
		Provider:           o.provider,
		Model:              o.model,
		Messages:           messages,
		ParameterOverrides: o.params,
		Tools:              tools,
		UserContext:        o.user,
	}, nil
}

func runCall(ctx context.Context, c *client.Client, cfg *Config, o options, prompt string, w io.Writer) error {
	req, err := o.request(prompt)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	res, err := c.Call(ctx, req)
	if err != nil {
		return err
	}

	if o.thoughts && res.Thoughts != nil {
		if res.Thoughts.ReasoningText != "" {
			fmt.Fprintf(w, "--- reasoning ---\n%s\n", res.Thoughts.ReasoningText)
		}
		for _, tc := range res.Thoughts.ToolCalls {
			fmt.Fprintf(w, "--- tool call %s (%s) ---\n%s\n", tc.Name, tc.Type, tc.Arguments)
		}
		fmt.Fprintln(w, "--- reply ---")
	}
	fmt.Fprintln(w, res.Content)
	fmt.Fprintf(w, "\n[%s] prompt=%d completion=%d cost=$%.6f\n",
		res.CallID, res.Usage.PromptTokens, res.Usage.CompletionTokens, res.Usage.CostEstimate)
	return nil
}

func runStream(ctx context.Context, c *client.Client, cfg *Config, o options, prompt string, w io.Writer) error {
	req, err := o.request(prompt)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	stream, err := c.Stream(ctx, req)
	if err != nil {
		return err
	}
	for chunk, err := range stream.All() {
		if err != nil {
			fmt.Fprintln(w)
			return err
		}
		fmt.Fprint(w, chunk)
	}
	u := stream.Usage()
	fmt.Fprintf(w, "\n\n[%s] prompt=%d completion=%d cost=$%.6f\n",
		stream.CallID(), u.PromptTokens, u.CompletionTokens, u.CostEstimate)
	return nil
}

func runModels(reg *registry.Registry, provider string, w io.Writer) error {
	models, err := mcp.ListModels(reg, provider)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(models)
}

func runServe(ctx context.Context, c *client.Client, cfg *Config, o options, logger *slog.Logger) error {
	handler := agui.NewHandler(c, agui.CallProps{
		Provider:    o.provider,
		Model:       o.model,
		Parameters:  o.params,
		UserContext: o.user,
	}, logger)

	mux := http.NewServeMux()
	mux.Handle("/api/agent", corsMiddleware(handler))
	mux.HandleFunc("/health", healthHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE needs no write timeout
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", "error", err)
		}
	}()

	logger.Info("AG-UI server starting",
		"addr", server.Addr,
		"endpoint", "POST /api/agent",
		"provider", o.provider,
		"model", o.model,
	)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// corsMiddleware adds CORS headers for cross-origin frontend requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthHandler returns a simple health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
