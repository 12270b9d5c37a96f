package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/aurora-agent/internal/runner"
	"github.com/petasbytes/aurora-agent/memory"
	"github.com/petasbytes/aurora-agent/tools"
)

// scriptedTransport replays responses in order and records every request.
type scriptedTransport struct {
	responses []*memory.Response
	err       error // returned on every call when set
	repeat    *memory.Response
	seen      [][]memory.Message
	calls     int
	log       *[]string
}

func (s *scriptedTransport) Send(ctx context.Context, msgs []memory.Message, _ []tools.Spec) (*memory.Response, error) {
	s.seen = append(s.seen, msgs)
	i := s.calls
	s.calls++
	if s.log != nil {
		*s.log = append(*s.log, "send")
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.repeat != nil {
		return s.repeat, nil
	}
	if i >= len(s.responses) {
		return nil, errors.New("script exhausted")
	}
	return s.responses[i], nil
}

// fakeDispatcher answers every call with "ok:<name>" unless told otherwise.
type fakeDispatcher struct {
	invoked []memory.ToolCallBlock
	fail    map[string]bool
	log     *[]string
}

func (f *fakeDispatcher) Catalog() []tools.Spec { return tools.Catalog() }

func (f *fakeDispatcher) Invoke(_ context.Context, call memory.ToolCallBlock) tools.Outcome {
	f.invoked = append(f.invoked, call)
	if f.log != nil {
		*f.log = append(*f.log, "invoke:"+call.ID)
	}
	if f.fail[call.Name] {
		return tools.Outcome{Content: "Error: boom", IsError: true, Code: tools.CodeIO, Duration: time.Millisecond}
	}
	return tools.Outcome{Content: "ok:" + call.Name, Duration: time.Millisecond}
}

// recordingReporter logs into a shared slice so ordering against tool
// execution can be asserted.
type recordingReporter struct {
	log *[]string
}

func (r recordingReporter) Text(text string) { *r.log = append(*r.log, "text:"+text) }
func (r recordingReporter) ToolCall(call memory.ToolCallBlock) {
	*r.log = append(*r.log, "call:"+call.ID)
}
func (r recordingReporter) ToolResult(call memory.ToolCallBlock, _ tools.Outcome) {
	*r.log = append(*r.log, "result:"+call.ID)
}

func call(id, name, args string) memory.ToolCallBlock {
	return memory.ToolCallBlock{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func toolResponse(calls ...memory.ToolCallBlock) *memory.Response {
	blocks := make([]memory.ContentBlock, 0, len(calls))
	for _, c := range calls {
		blocks = append(blocks, c)
	}
	return &memory.Response{Blocks: blocks, StopReason: memory.StopToolUseRequested}
}

func textResponse(text string, stop memory.StopReason) *memory.Response {
	return &memory.Response{Blocks: []memory.ContentBlock{memory.TextBlock{Text: text}}, StopReason: stop}
}

func TestRun_CompletedFirstResponse(t *testing.T) {
	tr := &scriptedTransport{responses: []*memory.Response{textResponse("4", memory.StopCompleted)}}
	d := &fakeDispatcher{}

	res, err := runner.New(tr, d).Run(context.Background(), "What is 2+2?")
	require.NoError(t, err)

	assert.Equal(t, runner.StateDone, res.State)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, 1, res.Turns)
	assert.Empty(t, d.invoked)
	assert.False(t, res.BudgetExhausted)

	require.Len(t, res.History, 2)
	assert.Equal(t, memory.RoleUser, res.History[0].Role)
	assert.Equal(t, "What is 2+2?", res.History[0].Text())
	assert.Equal(t, memory.RoleAssistant, res.History[1].Role)
	assert.Equal(t, "4", res.History[1].Text())

	require.Len(t, tr.seen, 1)
	require.Len(t, tr.seen[0], 1)
}

func TestRun_NoToolCallsEndsRunWhateverTheStopReason(t *testing.T) {
	tr := &scriptedTransport{responses: []*memory.Response{textResponse("truncated answer", memory.StopOther)}}
	res, err := runner.New(tr, &fakeDispatcher{}).Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, runner.StateDone, res.State)
	assert.Equal(t, 1, tr.calls)
}

func TestRun_CompletedWithToolCallsDoesNotExecute(t *testing.T) {
	resp := toolResponse(call("a", "list-files", `{"pattern":"*"}`))
	resp.StopReason = memory.StopCompleted
	tr := &scriptedTransport{responses: []*memory.Response{resp}}
	d := &fakeDispatcher{}

	res, err := runner.New(tr, d).Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, runner.StateDone, res.State)
	assert.Empty(t, d.invoked)
	require.NoError(t, memory.Validate(res.History))
}

func TestRun_ListThenReadThenComplete(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	mainGo := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(mainGo, []byte("package main\n"), 0o644))

	tr := &scriptedTransport{responses: []*memory.Response{
		toolResponse(
			call("c1", "list-files", fmt.Sprintf(`{"pattern":"*.go","path":%q}`, dir)),
			call("c2", "read-file", fmt.Sprintf(`{"file_path":%q}`, mainGo)),
		),
		textResponse("It is a main package.", memory.StopCompleted),
	}}

	res, err := runner.New(tr, tools.NewDispatcher()).Run(context.Background(), "Read main.go")
	require.NoError(t, err)

	assert.Equal(t, runner.StateDone, res.State)
	assert.Equal(t, 2, tr.calls)
	assert.Equal(t, 2, res.ToolCalls)
	assert.Equal(t, 2, res.Tally.ToolCalls)
	assert.Equal(t, 0, res.Tally.ToolErrors)

	require.Len(t, res.History, 4)
	results := res.History[2].ToolResults()
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ToolCallID)
	assert.Equal(t, mainGo, results[0].Content)
	assert.Equal(t, "c2", results[1].ToolCallID)
	assert.Equal(t, "package main\n", results[1].Content)
	assert.Equal(t, "It is a main package.", res.History[3].Text())

	// The second request carries the full pair.
	require.Len(t, tr.seen[1], 3)
	assert.Equal(t, memory.RoleAssistant, tr.seen[1][1].Role)
	assert.Len(t, tr.seen[1][1].ToolCalls(), 2)
}

func TestRun_TransportErrorAbortsWithoutRetry(t *testing.T) {
	boom := errors.New("API 500: upstream boom")
	tr := &scriptedTransport{err: boom}
	d := &fakeDispatcher{}

	res, err := runner.New(tr, d).Run(context.Background(), "hi")
	require.Error(t, err)
	assert.Same(t, boom, err)
	assert.Equal(t, runner.StateAborted, res.State)
	assert.False(t, res.BudgetExhausted)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, 1, res.TransportCalls)
	assert.Empty(t, d.invoked)
}

func TestRun_TransportErrorMidRunStopsImmediately(t *testing.T) {
	tr := &scriptedTransport{responses: []*memory.Response{
		toolResponse(call("a", "shell-execute", `{"command":"true"}`)),
	}}
	res, err := runner.New(tr, &fakeDispatcher{}).Run(context.Background(), "hi")
	require.EqualError(t, err, "script exhausted")
	assert.Equal(t, runner.StateAborted, res.State)
	assert.Equal(t, 2, tr.calls)
	// user, assistant(tool_use), user(tool_result)
	require.Len(t, res.History, 3)
	require.NoError(t, memory.Validate(res.History))
}

func TestRun_BudgetExhausted(t *testing.T) {
	tr := &scriptedTransport{repeat: toolResponse(call("x", "list-files", `{"pattern":"*"}`))}
	d := &fakeDispatcher{}

	res, err := runner.New(tr, d, runner.WithMaxTurns(3)).Run(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Equal(t, runner.StateAborted, res.State)
	assert.True(t, res.BudgetExhausted)
	assert.Equal(t, 3, tr.calls)
	assert.Equal(t, 3, res.Turns)
	assert.Len(t, d.invoked, 3)
	require.NoError(t, memory.Validate(res.History))
	assert.Equal(t, memory.RoleUser, res.History[len(res.History)-1].Role)
}

func TestRun_DefaultBudgetIsTen(t *testing.T) {
	tr := &scriptedTransport{repeat: toolResponse(call("x", "list-files", `{"pattern":"*"}`))}
	res, err := runner.New(tr, &fakeDispatcher{}).Run(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.True(t, res.BudgetExhausted)
	assert.Equal(t, runner.DefaultMaxTurns, tr.calls)
}

func TestRun_ToolFailureIsFedBack(t *testing.T) {
	tr := &scriptedTransport{responses: []*memory.Response{
		toolResponse(call("a", "read-file", `{"file_path":"/nope"}`)),
		textResponse("The file does not exist.", memory.StopCompleted),
	}}
	d := &fakeDispatcher{fail: map[string]bool{"read-file": true}}

	res, err := runner.New(tr, d).Run(context.Background(), "read it")
	require.NoError(t, err)
	assert.Equal(t, runner.StateDone, res.State)

	results := res.History[2].ToolResults()
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
	assert.True(t, strings.HasPrefix(results[0].Content, "Error: "))
	assert.Equal(t, 1, res.Tally.ToolErrors)
}

func TestRun_ReportsTextBeforeToolsAndExecutesInOrder(t *testing.T) {
	var log []string
	resp := toolResponse(call("a", "list-files", `{}`), call("b", "read-file", `{}`), call("c", "search-files", `{}`))
	resp.Blocks = append([]memory.ContentBlock{memory.TextBlock{Text: "looking"}}, resp.Blocks...)
	tr := &scriptedTransport{log: &log, responses: []*memory.Response{resp, textResponse("done", memory.StopCompleted)}}
	d := &fakeDispatcher{log: &log}

	_, err := runner.New(tr, d, runner.WithReporter(recordingReporter{log: &log})).Run(context.Background(), "go")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"send",
		"text:looking",
		"call:a", "invoke:a", "result:a",
		"call:b", "invoke:b", "result:b",
		"call:c", "invoke:c", "result:c",
		"send",
		"text:done",
	}, log)
}

func TestRun_EveryRequestIsWellPaired(t *testing.T) {
	script := []int{1, 3, 2, 4, 1}
	var responses []*memory.Response
	n := 0
	for _, k := range script {
		var calls []memory.ToolCallBlock
		for i := 0; i < k; i++ {
			n++
			calls = append(calls, call(fmt.Sprintf("id-%d", n), "list-files", `{"pattern":"*"}`))
		}
		responses = append(responses, toolResponse(calls...))
	}
	responses = append(responses, textResponse("finished", memory.StopCompleted))
	tr := &scriptedTransport{responses: responses}

	res, err := runner.New(tr, &fakeDispatcher{}).Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, runner.StateDone, res.State)
	assert.Equal(t, len(script)+1, tr.calls)

	for i, msgs := range tr.seen {
		require.NoErrorf(t, memory.Validate(msgs), "request %d", i)
		assert.Equalf(t, memory.RoleUser, msgs[len(msgs)-1].Role, "request %d", i)
		// Each request is the previous one plus exactly one pair.
		assert.Lenf(t, msgs, 1+2*i, "request %d", i)
	}
	require.NoError(t, memory.Validate(res.History))
}

func TestRun_InvalidHistoryIsNeverSent(t *testing.T) {
	// Duplicate call ids can't be paired; the run must stop before sending.
	tr := &scriptedTransport{repeat: toolResponse(
		call("dup", "list-files", `{}`),
		call("dup", "read-file", `{}`),
	)}
	res, err := runner.New(tr, &fakeDispatcher{}).Run(context.Background(), "go")
	require.Error(t, err)
	assert.ErrorIs(t, err, memory.ErrInvalidHistory)
	assert.Equal(t, runner.StateAborted, res.State)
	assert.Equal(t, 1, tr.calls)
}

type blockingTransport struct{ calls int }

func (b *blockingTransport) Send(ctx context.Context, _ []memory.Message, _ []tools.Spec) (*memory.Response, error) {
	b.calls++
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRun_RequestTimeoutBoundsEachCall(t *testing.T) {
	tr := &blockingTransport{}
	res, err := runner.New(tr, &fakeDispatcher{}, runner.WithRequestTimeout(20*time.Millisecond)).
		Run(context.Background(), "hi")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, runner.StateAborted, res.State)
	assert.Equal(t, 1, tr.calls)
}

func TestRun_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := runner.New(&blockingTransport{}, &fakeDispatcher{}).Run(ctx, "hi")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, runner.StateAborted, res.State)
}

func TestRun_NilResponseIsAnError(t *testing.T) {
	res, err := runner.New(nilTransport{}, &fakeDispatcher{}).Run(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, runner.StateAborted, res.State)
}

type nilTransport struct{}

func (nilTransport) Send(context.Context, []memory.Message, []tools.Spec) (*memory.Response, error) {
	return nil, nil
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "init", runner.StateInit.String())
	assert.Equal(t, "awaiting_model", runner.StateAwaitingModel.String())
	assert.Equal(t, "executing_tools", runner.StateExecutingTools.String())
	assert.Equal(t, "done", runner.StateDone.String())
	assert.Equal(t, "aborted", runner.StateAborted.String())
	assert.Equal(t, "state(42)", runner.State(42).String())
}
