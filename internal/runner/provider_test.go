package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/petasbytes/aurora-agent/internal/provider"
	"github.com/petasbytes/aurora-agent/internal/runner"
	"github.com/petasbytes/aurora-agent/tools"
)

// queuedTransport serves canned HTTP bodies in order and keeps each request body.
type queuedTransport struct {
	bodies   []string
	requests [][]byte
}

func (q *queuedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()
	q.requests = append(q.requests, b)

	i := len(q.requests) - 1
	status, body := http.StatusOK, ""
	if i < len(q.bodies) {
		body = q.bodies[i]
	} else {
		status, body = http.StatusInternalServerError, `{"type":"error","error":{"type":"api_error","message":"no more replies"}}`
	}
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func TestRunner_WithProvider_ToolRoundTrip(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("remember the milk"), 0o644); err != nil {
		t.Fatal(err)
	}

	toolUse, _ := json.Marshal(map[string]any{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "m",
		"stop_reason": "tool_use",
		"content": []any{
			map[string]any{"type": "tool_use", "id": "t1", "name": "read-file", "input": map[string]string{"file_path": notes}},
		},
		"usage": map[string]int{"input_tokens": 1, "output_tokens": 1},
	})
	final := `{"id":"msg_2","type":"message","role":"assistant","model":"m","stop_reason":"end_turn",
		"content":[{"type":"text","text":"It says to remember the milk."}],
		"usage":{"input_tokens":1,"output_tokens":1}}`

	rt := &queuedTransport{bodies: []string{string(toolUse), final}}
	client := provider.NewAnthropicClient(provider.Config{
		APIKey:     "test-key",
		HTTPClient: &http.Client{Transport: rt},
	})

	res, err := runner.New(client, tools.NewDispatcher()).Run(context.Background(), "What do my notes say?")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.State != runner.StateDone || len(rt.requests) != 2 {
		t.Fatalf("state=%v requests=%d", res.State, len(rt.requests))
	}

	var second struct {
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type      string `json:"type"`
				ID        string `json:"id"`
				ToolUseID string `json:"tool_use_id"`
				Content   []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(rt.requests[1], &second); err != nil {
		t.Fatalf("unmarshal body: %v\nbody=%s", err, rt.requests[1])
	}
	if len(second.Messages) != 3 {
		t.Fatalf("expected 3 messages in second request, got %d", len(second.Messages))
	}
	if m := second.Messages[1]; m.Role != "assistant" || m.Content[0].Type != "tool_use" || m.Content[0].ID != "t1" {
		t.Fatalf("unexpected assistant message: %+v", m)
	}
	m := second.Messages[2]
	if m.Role != "user" || m.Content[0].Type != "tool_result" || m.Content[0].ToolUseID != "t1" {
		t.Fatalf("unexpected tool_result message: %+v", m)
	}
	if len(m.Content[0].Content) == 0 || m.Content[0].Content[0].Text != "remember the milk" {
		t.Fatalf("tool_result content not forwarded: %+v", m.Content[0])
	}
}

func TestRunner_WithProvider_APIErrorIsFatal(t *testing.T) {
	rt := &queuedTransport{}
	client := provider.NewAnthropicClient(provider.Config{
		APIKey:     "test-key",
		HTTPClient: &http.Client{Transport: rt},
	})

	res, err := runner.New(client, tools.NewDispatcher()).Run(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if res.State != runner.StateAborted {
		t.Fatalf("state: %v", res.State)
	}
	if len(rt.requests) != 1 {
		t.Fatalf("expected a single request, got %d", len(rt.requests))
	}
}
