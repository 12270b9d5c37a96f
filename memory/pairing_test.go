package memory_test

import (
	"errors"
	"testing"

	"github.com/petasbytes/aurora-agent/memory"
)

func TestValidate_Invariants(t *testing.T) {
	tests := []struct {
		name      string
		msgs      []memory.Message
		wantIdx   int
		wantCause string // empty means valid
	}{
		{
			name: "prompt only",
			msgs: []memory.Message{User(T("task"))},
		},
		{
			name: "valid pair: one tool",
			msgs: []memory.Message{
				User(T("task")),
				Asst(T("looking"), TC("t1")),
				User(TR("t1", false)),
			},
		},
		{
			name: "results in any order with trailing text",
			msgs: []memory.Message{
				User(T("task")),
				Asst(TC("t1"), TC("t2")),
				User(TR("t2", true), TR("t1", false), T("note")),
				Asst(T("done")),
			},
		},
		{
			name: "pending calls at the tail",
			msgs: []memory.Message{
				User(T("task")),
				Asst(TC("t1")),
			},
		},
		{
			name:      "empty",
			msgs:      nil,
			wantIdx:   0,
			wantCause: memory.ReasonEmptyHistory,
		},
		{
			name:      "assistant first",
			msgs:      []memory.Message{Asst(T("hi"))},
			wantIdx:   0,
			wantCause: memory.ReasonRoleSequence,
		},
		{
			name: "text before result",
			msgs: []memory.Message{
				User(T("task")),
				Asst(TC("t1")),
				User(T("oops"), TR("t1", false)),
			},
			wantIdx:   2,
			wantCause: memory.ReasonOrderingInvalid,
		},
		{
			name: "missing result for parallel call",
			msgs: []memory.Message{
				User(T("task")),
				Asst(TC("t1"), TC("t2")),
				User(TR("t1", false)),
			},
			wantIdx:   2,
			wantCause: memory.ReasonMissingResults,
		},
		{
			name: "extra result",
			msgs: []memory.Message{
				User(T("task")),
				Asst(TC("t1")),
				User(TR("t1", false), TR("zz", false)),
			},
			wantIdx:   2,
			wantCause: memory.ReasonExtraResults,
		},
		{
			name: "result answered twice",
			msgs: []memory.Message{
				User(T("task")),
				Asst(TC("t1")),
				User(TR("t1", false), TR("t1", false)),
			},
			wantIdx:   2,
			wantCause: memory.ReasonExtraResults,
		},
		{
			name: "duplicate call id",
			msgs: []memory.Message{
				User(T("task")),
				Asst(TC("t1"), TC("t1")),
			},
			wantIdx:   1,
			wantCause: memory.ReasonDuplicateCallID,
		},
		{
			name: "intervening assistant breaks adjacency",
			msgs: []memory.Message{
				User(T("task")),
				Asst(TC("t1")),
				Asst(T("note")),
				User(TR("t1", false)),
			},
			wantIdx:   1,
			wantCause: memory.ReasonNotFollowedByUser,
		},
		{
			name: "orphan results",
			msgs: []memory.Message{
				User(T("task")),
				Asst(T("no calls")),
				User(TR("t1", false)),
			},
			wantIdx:   2,
			wantCause: memory.ReasonOrphanResults,
		},
		{
			name: "tool call in user message",
			msgs: []memory.Message{
				User(T("task"), TC("t1")),
			},
			wantIdx:   0,
			wantCause: memory.ReasonRoleSequence,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := memory.Validate(tc.msgs)
			if tc.wantCause == "" {
				if err != nil {
					t.Fatalf("expected valid history, got %v", err)
				}
				return
			}
			var pe *memory.PairingError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *PairingError, got %v", err)
			}
			if pe.Reason != tc.wantCause || pe.Index != tc.wantIdx {
				t.Fatalf("got reason=%s idx=%d; want reason=%s idx=%d", pe.Reason, pe.Index, tc.wantCause, tc.wantIdx)
			}
			if !errors.Is(err, memory.ErrInvalidHistory) {
				t.Fatalf("expected errors.Is(err, ErrInvalidHistory)")
			}
		})
	}
}
