package memory

import (
	"errors"
	"fmt"
)

// ErrInvalidHistory is matched by every *PairingError via errors.Is.
var ErrInvalidHistory = errors.New("invalid conversation history")

// Reason codes reported by PairingError.
const (
	ReasonEmptyHistory      = "empty_history"
	ReasonRoleSequence      = "role_sequence"
	ReasonOrderingInvalid   = "ordering_invalid"
	ReasonMissingResults    = "missing_results"
	ReasonExtraResults      = "extra_results"
	ReasonDuplicateCallID   = "duplicate_call_id"
	ReasonNotFollowedByUser = "not_followed_by_user"
	ReasonOrphanResults     = "orphan_results"
)

// PairingError describes the first invariant violation found in a history.
type PairingError struct {
	Index  int // offending message
	Reason string
}

func (e *PairingError) Error() string {
	return fmt.Sprintf("%s: %s at message %d", ErrInvalidHistory, e.Reason, e.Index)
}

func (e *PairingError) Unwrap() error { return ErrInvalidHistory }

// Validate walks msgs oldest to newest and reports the first violation of:
//   - the first message is a user message;
//   - user messages carry no tool calls, assistant messages carry no tool results;
//   - an assistant message with tool calls is immediately followed by a user
//     message whose leading tool_result segment covers exactly those call ids;
//   - tool results appear nowhere else.
//
// Text after the leading tool_result segment is allowed.
func Validate(msgs []Message) error {
	if len(msgs) == 0 {
		return &PairingError{Index: 0, Reason: ReasonEmptyHistory}
	}
	if msgs[0].Role != RoleUser {
		return &PairingError{Index: 0, Reason: ReasonRoleSequence}
	}
	for i := 0; i < len(msgs); i++ {
		m := msgs[i]
		switch m.Role {
		case RoleUser:
			if len(m.ToolCalls()) > 0 {
				return &PairingError{Index: i, Reason: ReasonRoleSequence}
			}
			if len(m.ToolResults()) > 0 {
				return &PairingError{Index: i, Reason: ReasonOrphanResults}
			}
		case RoleAssistant:
			if len(m.ToolResults()) > 0 {
				return &PairingError{Index: i, Reason: ReasonRoleSequence}
			}
			callIDs, dup := collectToolCallIDs(m)
			if dup {
				return &PairingError{Index: i, Reason: ReasonDuplicateCallID}
			}
			if len(callIDs) == 0 {
				continue
			}
			if i+1 == len(msgs) {
				// Calls still pending.
				continue
			}
			next := msgs[i+1]
			if next.Role != RoleUser {
				return &PairingError{Index: i, Reason: ReasonNotFollowedByUser}
			}
			valid, resultIDs, dupResults := leadingToolResultIDs(next)
			switch {
			case !valid:
				return &PairingError{Index: i + 1, Reason: ReasonOrderingInvalid}
			case !coversAll(resultIDs, callIDs):
				return &PairingError{Index: i + 1, Reason: ReasonMissingResults}
			case dupResults || !noExtraResults(resultIDs, callIDs):
				return &PairingError{Index: i + 1, Reason: ReasonExtraResults}
			}
			if len(next.ToolCalls()) > 0 {
				return &PairingError{Index: i + 1, Reason: ReasonRoleSequence}
			}
			// The paired user message has been checked; skip it.
			i++
		default:
			return &PairingError{Index: i, Reason: ReasonRoleSequence}
		}
	}
	return nil
}

// collectToolCallIDs returns the set of call ids in an assistant message and
// whether any id was repeated.
func collectToolCallIDs(m Message) (map[string]struct{}, bool) {
	ids := make(map[string]struct{})
	dup := false
	for _, tc := range m.ToolCalls() {
		if _, seen := ids[tc.ID]; seen {
			dup = true
		}
		ids[tc.ID] = struct{}{}
	}
	return ids, dup
}

// leadingToolResultIDs inspects a user message and returns:
//   - valid=false if a tool result appears after any other block
//   - the ids in the leading tool_result segment
//   - whether an id was answered twice.
func leadingToolResultIDs(m Message) (valid bool, ids map[string]struct{}, dup bool) {
	ids = make(map[string]struct{})
	seenOther := false
	for _, b := range m.Content {
		tr, ok := b.(ToolResultBlock)
		if !ok {
			seenOther = true
			continue
		}
		if seenOther {
			return false, ids, dup
		}
		if _, seen := ids[tr.ToolCallID]; seen {
			dup = true
		}
		ids[tr.ToolCallID] = struct{}{}
	}
	return true, ids, dup
}

// coversAll checks that every id in required is present in have.
func coversAll(have, required map[string]struct{}) bool {
	for id := range required {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

// noExtraResults checks that have holds no id outside allowed.
func noExtraResults(have, allowed map[string]struct{}) bool {
	for id := range have {
		if _, ok := allowed[id]; !ok {
			return false
		}
	}
	return true
}
