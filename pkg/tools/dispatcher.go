package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KakuleMalambo/voice-assistant/internal/metrics"
	"github.com/KakuleMalambo/voice-assistant/pkg/schema"
)

// Event describes one finished invocation.
type Event struct {
	Tool     string         `json:"tool"`
	Args     map[string]any `json:"args,omitempty"`
	Result   Result         `json:"result"`
	Outcome  string         `json:"outcome"`
	Duration time.Duration  `json:"duration"`
}

// Observer receives every finished invocation. It runs on the invoking
// goroutine and must not block.
type Observer func(Event)

// Dispatcher is the single entry point from a conversation to the tools.
type Dispatcher struct {
	registry  *Registry
	logger    *slog.Logger
	metrics   *metrics.Metrics
	observers []Observer
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics records every invocation in m.
func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithObserver adds an observer.
func WithObserver(fn Observer) DispatcherOption {
	return func(d *Dispatcher) {
		if fn != nil {
			d.observers = append(d.observers, fn)
		}
	}
}

// NewDispatcher creates a Dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "tools")
	return d
}

// Registry returns the registry the dispatcher serves.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Invoke runs the named tool with raw arguments.
//
// An unknown name is returned as an error. Every other outcome, including
// invalid arguments and handler failures, is a Result whose text can be
// handed straight back to the model.
func (d *Dispatcher) Invoke(ctx context.Context, name string, raw map[string]any) (Result, error) {
	start := time.Now()

	tool, ok := d.registry.Get(name)
	if !ok {
		err := &UnknownToolError{Name: name}
		d.logger.Error("unknown tool", "tool", name)
		d.finish(name, raw, Failure(err.Error()), metrics.OutcomeUnknown, start)
		return Result{}, err
	}

	args, err := tool.Schema.Validate(raw)
	if err != nil {
		res := Failure(fmt.Sprintf("Invalid arguments for %s: %v", name, err))
		d.logger.Warn("invalid tool arguments", "tool", name, "error", err)
		d.finish(name, raw, res, metrics.OutcomeInvalid, start)
		return res, nil
	}

	d.logger.Debug("invoking tool", "tool", name, "args", map[string]any(args))

	text, err := d.call(ctx, tool, args)
	if err != nil {
		res := Failure(fmt.Sprintf("Error %s: %v", tool.Action, err))
		d.logger.Warn("tool failed", "tool", name, "error", err)
		d.finish(name, args, res, metrics.OutcomeFailure, start)
		return res, nil
	}

	res := Success(text)
	d.logger.Info("tool succeeded", "tool", name, "duration", time.Since(start))
	d.finish(name, args, res, metrics.OutcomeSuccess, start)
	return res, nil
}

// call runs the handler, turning a panic into an error so that nothing
// escapes into the conversation.
func (d *Dispatcher) call(ctx context.Context, tool Tool, args schema.Args) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", "tool", tool.Name, "panic", r)
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return tool.Handler(ctx, args)
}

func (d *Dispatcher) finish(name string, args map[string]any, res Result, outcome string, start time.Time) {
	elapsed := time.Since(start)
	d.metrics.ObserveTool(name, outcome, elapsed)
	if len(d.observers) == 0 {
		return
	}
	ev := Event{Tool: name, Args: args, Result: res, Outcome: outcome, Duration: elapsed}
	for _, fn := range d.observers {
		fn(ev)
	}
}
