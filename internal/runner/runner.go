package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/petasbytes/aurora-agent/internal/metrics"
	"github.com/petasbytes/aurora-agent/internal/telemetry"
	"github.com/petasbytes/aurora-agent/memory"
	"github.com/petasbytes/aurora-agent/tools"
)

const (
	DefaultMaxTurns       = 10
	DefaultRequestTimeout = 5 * time.Minute
)

// State is the loop state.
type State int

const (
	StateInit State = iota
	StateAwaitingModel
	StateExecutingTools
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingTools:
		return "executing_tools"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Transport performs one request/response exchange with the model.
type Transport interface {
	Send(ctx context.Context, msgs []memory.Message, specs []tools.Spec) (*memory.Response, error)
}

// Dispatcher runs tool calls. Invoke must not panic or return Go errors;
// failures are carried in the Outcome.
type Dispatcher interface {
	Catalog() []tools.Spec
	Invoke(ctx context.Context, call memory.ToolCallBlock) tools.Outcome
}

// Reporter receives progress for display. It has no influence on the loop.
type Reporter interface {
	Text(text string)
	ToolCall(call memory.ToolCallBlock)
	ToolResult(call memory.ToolCallBlock, outcome tools.Outcome)
}

type nopReporter struct{}

func (nopReporter) Text(string) {}
func (nopReporter) ToolCall(memory.ToolCallBlock) {}
func (nopReporter) ToolResult(memory.ToolCallBlock, tools.Outcome) {}

// Result summarises a finished run.
type Result struct {
	State           State
	Turns           int
	TransportCalls  int
	ToolCalls       int
	BudgetExhausted bool // stopped by the turn ceiling, not by the model
	History         []memory.Message
	Tally           *metrics.RunTally
}

type Runner struct {
	Transport Transport
	Tools     Dispatcher

	maxTurns       int
	requestTimeout time.Duration
	reporter       Reporter
	logger         *zap.Logger
	events         *telemetry.Sink
}

type Option func(*Runner)

func WithMaxTurns(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxTurns = n
		}
	}
}

// WithRequestTimeout bounds each transport call. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *Runner) { r.requestTimeout = d }
}

func WithReporter(rep Reporter) Option {
	return func(r *Runner) {
		if rep != nil {
			r.reporter = rep
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithEvents(s *telemetry.Sink) Option {
	return func(r *Runner) {
		if s != nil {
			r.events = s
		}
	}
}

func New(transport Transport, dispatcher Dispatcher, opts ...Option) *Runner {
	r := &Runner{
		Transport:      transport,
		Tools:          dispatcher,
		maxTurns:       DefaultMaxTurns,
		requestTimeout: DefaultRequestTimeout,
		reporter:       nopReporter{},
		logger:         zap.NewNop(),
		events:         telemetry.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes the task prompt to completion. It returns a nil error when
// the model finished or the turn budget ran out (Result.BudgetExhausted).
// A transport failure ends the run in StateAborted and is returned as is.
func (r *Runner) Run(ctx context.Context, prompt string) (*Result, error) {
	if _, ok := telemetry.RunIDFromContext(ctx); !ok {
		ctx = telemetry.WithRunID(ctx, telemetry.NewRunID())
	}

	history := memory.NewHistory(prompt)
	tally := metrics.NewRunTally()
	res := &Result{State: StateInit, Tally: tally}
	catalog := r.Tools.Catalog()

	pf := metrics.CountFeatures(prompt)
	r.events.Emit(ctx, telemetry.EventRunStarted,
		zap.Int("max_turns", r.maxTurns),
		zap.Int("tools", len(catalog)),
		zap.Int("prompt_bytes", pf.Bytes),
		zap.Int("prompt_words", pf.Words),
	)

	finish := func(state State, err error) (*Result, error) {
		res.State = state
		res.TransportCalls = tally.TransportCalls
		res.ToolCalls = tally.ToolCalls
		res.History = history.Messages()
		fields := []zap.Field{
			zap.String("state", state.String()),
			zap.Int("turns", res.Turns),
			zap.Int("transport_calls", res.TransportCalls),
			zap.Int("tool_calls", res.ToolCalls),
			zap.Int("tool_errors", tally.ToolErrors),
			zap.Bool("budget_exhausted", res.BudgetExhausted),
		}
		if err != nil {
			fields = append(fields, zap.String("error", errorKind(err)))
		}
		r.events.Emit(ctx, telemetry.EventRunFinished, fields...)
		r.logger.Debug("run finished", fields...)
		return res, err
	}

	res.State = StateAwaitingModel
	for {
		// The ceiling is checked only between iterations.
		if res.Turns >= r.maxTurns {
			res.BudgetExhausted = true
			r.logger.Info("turn budget exhausted", zap.Int("max_turns", r.maxTurns))
			return finish(StateAborted, nil)
		}
		res.Turns++
		turnCtx := telemetry.WithTurnID(ctx, fmt.Sprintf("turn-%d", res.Turns))

		if err := history.ValidateForSend(); err != nil {
			r.logger.Error("history failed validation", zap.Error(err))
			return finish(StateAborted, fmt.Errorf("runner: refusing to send: %w", err))
		}

		resp, err := r.send(turnCtx, history.Messages(), catalog, tally)
		if err != nil {
			return finish(StateAborted, err)
		}

		for _, text := range resp.Texts() {
			r.reporter.Text(text)
		}

		calls := resp.ToolCalls()
		history.Append(resp.AssistantMessage())
		if resp.StopReason == memory.StopCompleted || len(calls) == 0 {
			return finish(StateDone, nil)
		}

		res.State = StateExecutingTools
		results := make([]memory.ToolResultBlock, 0, len(calls))
		for _, call := range calls {
			r.reporter.ToolCall(call)
			outcome := r.Tools.Invoke(turnCtx, call)
			tally.RecordTool(call.Name, outcome.Duration, outcome.IsError)
			r.emitToolExec(turnCtx, call, outcome)
			r.reporter.ToolResult(call, outcome)
			results = append(results, outcome.Result(call))
		}
		history.Append(memory.NewToolResultMessage(results...))
		res.State = StateAwaitingModel
	}
}

// send performs exactly one transport call under the request deadline.
func (r *Runner) send(ctx context.Context, msgs []memory.Message, catalog []tools.Spec, tally *metrics.RunTally) (*memory.Response, error) {
	callCtx := ctx
	if r.requestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.Transport.Send(callCtx, msgs, catalog)
	elapsed := time.Since(start)
	tally.RecordTransport(elapsed)

	if err == nil && resp == nil {
		err = errors.New("runner: transport returned no response")
	}

	fields := []zap.Field{
		zap.Int("messages", len(msgs)),
		zap.Int("request_size", metrics.EstimateRequest(msgs)),
		telemetry.DurationMS("duration_ms", elapsed),
	}
	if err != nil {
		fields = append(fields, zap.String("error", errorKind(err)))
		r.events.Emit(ctx, telemetry.EventTransportCall, fields...)
		r.logger.Debug("transport call failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}
	fields = append(fields,
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Int("tool_calls", len(resp.ToolCalls())),
	)
	r.events.Emit(ctx, telemetry.EventTransportCall, fields...)
	return resp, nil
}

func (r *Runner) emitToolExec(ctx context.Context, call memory.ToolCallBlock, o tools.Outcome) {
	fields := []zap.Field{
		zap.String("tool_name", call.Name),
		telemetry.DurationMS("duration_ms", o.Duration),
		zap.Int("input_size", len(call.Arguments)),
		zap.Int("output_size", len(o.Content)),
	}
	if o.IsError {
		// Only the code; the message may echo tool input.
		fields = append(fields, zap.String("error", o.Code))
	}
	r.events.Emit(ctx, telemetry.EventToolExec, fields...)
}

// errorKind gives a payload-free label for an error.
func errorKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, memory.ErrInvalidHistory):
		return "invalid_history"
	default:
		return "transport_error"
	}
}
