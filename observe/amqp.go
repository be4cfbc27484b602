package observe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConfig describes where diagnostic events are published.
type AMQPConfig struct {
	URL   string
	Queue string
	// Buffer is the number of events held while the broker is slow
	// (default 256). Events beyond it are dropped.
	Buffer int
	// PublishTimeout bounds each publish (default 5s).
	PublishTimeout time.Duration
	Logger         *slog.Logger
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes events as JSON to a RabbitMQ queue from a background
// goroutine.
type AMQPSink struct {
	pub     publisher
	queue   string
	timeout time.Duration
	logger  *slog.Logger
	closers []func() error

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewAMQPSink connects to the broker and declares the queue.
func NewAMQPSink(cfg AMQPConfig) (*AMQPSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("observe: AMQP URL is empty")
	}
	queue := cfg.Queue
	if queue == "" {
		queue = "llmcore.events"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("observe: connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("observe: open RabbitMQ channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("observe: declare queue %q: %w", queue, err)
	}
	s := newAMQPSink(ch, queue, cfg)
	s.closers = []func() error{ch.Close, conn.Close}
	return s, nil
}

func newAMQPSink(pub publisher, queue string, cfg AMQPConfig) *AMQPSink {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 256
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &AMQPSink{
		pub:     pub,
		queue:   queue,
		timeout: timeout,
		logger:  logger,
		events:  make(chan Event, buffer),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Emit queues ev for publishing. It drops the event when the buffer is full
// or the sink is closed.
func (s *AMQPSink) Emit(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

// Close flushes queued events and closes the broker connection.
func (s *AMQPSink) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
		<-s.done
		for _, c := range s.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func (s *AMQPSink) run() {
	defer close(s.done)
	for ev := range s.events {
		body, err := json.Marshal(toWire(ev))
		if err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err = s.pub.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   ev.Timestamp,
			Type:        string(ev.Type),
			Body:        body,
		})
		cancel()
		if err != nil {
			s.logger.Warn("publish event failed", "event", ev.Type, "call_id", ev.CallID, "error", err)
		}
	}
}

type wireEvent struct {
	Type             EventType `json:"type"`
	CallID           string    `json:"callId,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	Model            string    `json:"model,omitempty"`
	State            string    `json:"state,omitempty"`
	Attempt          int       `json:"attempt,omitempty"`
	DelayMS          int64     `json:"delayMs,omitempty"`
	Parameter        string    `json:"parameter,omitempty"`
	JobID            string    `json:"jobId,omitempty"`
	JobStatus        string    `json:"jobStatus,omitempty"`
	Message          string    `json:"message,omitempty"`
	DurationMS       int64     `json:"durationMs,omitempty"`
	PromptTokens     int       `json:"promptTokens,omitempty"`
	CompletionTokens int       `json:"completionTokens,omitempty"`
	Cost             float64   `json:"cost,omitempty"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

func toWire(ev Event) wireEvent {
	w := wireEvent{
		Type:       ev.Type,
		CallID:     ev.CallID,
		Provider:   ev.Provider,
		Model:      ev.Model,
		State:      ev.State,
		Attempt:    ev.Attempt,
		DelayMS:    ev.Delay.Milliseconds(),
		Parameter:  ev.Parameter,
		JobID:      ev.JobID,
		JobStatus:  string(ev.JobStatus),
		Message:    ev.Message,
		DurationMS: ev.Duration.Milliseconds(),
		Timestamp:  ev.Timestamp,
	}
	if ev.Usage != nil {
		w.PromptTokens = ev.Usage.PromptTokens
		w.CompletionTokens = ev.Usage.CompletionTokens
		w.Cost = ev.Usage.CostEstimate
	}
	if ev.Error != nil {
		w.Error = ev.Error.Error()
	}
	return w
}
