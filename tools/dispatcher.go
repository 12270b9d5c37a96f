package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/petasbytes/aurora-agent/memory"
)

// Outcome is the result of one tool call.
type Outcome struct {
	Content  string
	IsError  bool
	Code     string // ToolError code when IsError
	Duration time.Duration
}

// Result converts the outcome into the block answering call.
func (o Outcome) Result(call memory.ToolCallBlock) memory.ToolResultBlock {
	return memory.ToolResultBlock{ToolCallID: call.ID, Content: o.Content, IsError: o.IsError}
}

// Dispatcher runs tool calls against the fixed catalog. It keeps no state
// between calls.
type Dispatcher struct {
	defs           []ToolDefinition
	timeouts       Timeouts
	maxResultRunes int
	logger         *zap.Logger
}

type Option func(*Dispatcher)

func WithTimeouts(t Timeouts) Option {
	return func(d *Dispatcher) { d.timeouts = t }
}

func WithMaxResultRunes(n int) Option {
	return func(d *Dispatcher) { d.maxResultRunes = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher returns a dispatcher over Registry().
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		defs:           Registry(),
		timeouts:       DefaultTimeouts(),
		maxResultRunes: DefaultMaxResultRunes,
		logger:         zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Catalog returns the specs of every tool this dispatcher can run.
func (d *Dispatcher) Catalog() []Spec {
	out := make([]Spec, 0, len(d.defs))
	for _, def := range d.defs {
		out = append(out, def.Spec())
	}
	return out
}

// Execute runs the named tool and returns its textual result. Failures are
// returned as text prefixed with "Error: ".
func (d *Dispatcher) Execute(ctx context.Context, name string, arguments json.RawMessage) string {
	return d.Invoke(ctx, memory.ToolCallBlock{Name: name, Arguments: arguments}).Content
}

// Invoke runs one tool call under its deadline.
func (d *Dispatcher) Invoke(ctx context.Context, call memory.ToolCallBlock) Outcome {
	start := time.Now()

	def, ok := d.lookup(call.Name)
	if !ok {
		d.logger.Warn("unknown tool", zap.String("tool", call.Name), zap.String("call_id", call.ID))
		return Outcome{
			Content:  "Unknown tool: " + call.Name,
			IsError:  true,
			Code:     CodeUnknownTool,
			Duration: time.Since(start),
		}
	}

	limit := d.timeouts.For(def.Budget)
	out, err := runBounded(ctx, limit, func(ctx context.Context) (string, error) {
		return def.Function(ctx, call.Arguments)
	})
	elapsed := time.Since(start)
	if err != nil {
		te := classify(err, limit)
		d.logger.Debug("tool failed",
			zap.String("tool", call.Name),
			zap.String("call_id", call.ID),
			zap.String("code", te.Code),
			zap.Duration("duration", elapsed),
		)
		return Outcome{
			Content:  bound("Error: "+te.Error(), d.maxResultRunes),
			IsError:  true,
			Code:     te.Code,
			Duration: elapsed,
		}
	}

	d.logger.Debug("tool finished",
		zap.String("tool", call.Name),
		zap.String("call_id", call.ID),
		zap.Int("output_bytes", len(out)),
		zap.Duration("duration", elapsed),
	)
	return Outcome{Content: bound(out, d.maxResultRunes), Duration: elapsed}
}

func (d *Dispatcher) lookup(name string) (ToolDefinition, bool) {
	if !Name(name).Valid() {
		return ToolDefinition{}, false
	}
	for _, def := range d.defs {
		if string(def.Name) == name {
			return def, true
		}
	}
	return ToolDefinition{}, false
}

// runBounded runs fn with a deadline of limit. If fn does not return in time
// the call is reported as timed out even when fn ignores its context. Panics
// in fn become ToolErrors. The file handlers recheck ctx before their final
// read or write, so a timed-out call leaves at most one syscall in flight.
func runBounded(ctx context.Context, limit time.Duration, fn func(context.Context) (string, error)) (string, error) {
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	type result struct {
		out string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: &ToolError{Code: CodePanic, Message: fmt.Sprintf("tool panicked: %v", r)}}
			}
		}()
		out, err := fn(ctx)
		ch <- result{out: out, err: err}
	}()

	select {
	case r := <-ch:
		return r.out, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
