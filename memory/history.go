package memory

// History is the ordered, append-only conversation of one run.
// It is owned by a single goroutine and is not safe for concurrent use.
type History struct {
	msgs []Message
}

// NewHistory seeds a history with the user's task prompt.
func NewHistory(prompt string) *History {
	return &History{msgs: []Message{UserText(prompt)}}
}

// Append adds m to the end of the history. The content slice is copied so
// later changes by the caller are not observed.
func (h *History) Append(m Message) {
	h.msgs = append(h.msgs, m.clone())
}

// Messages returns a copy of the messages, oldest first.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.msgs))
	for i, m := range h.msgs {
		out[i] = m.clone()
	}
	return out
}

func (h *History) Len() int { return len(h.msgs) }

// Last returns the newest message, if any.
func (h *History) Last() (Message, bool) {
	if len(h.msgs) == 0 {
		return Message{}, false
	}
	return h.msgs[len(h.msgs)-1].clone(), true
}

// Validate checks the tool call/result pairing invariant. A trailing
// assistant message with unanswered calls is accepted (tools may be running).
func (h *History) Validate() error {
	return Validate(h.msgs)
}

// ValidateForSend is Validate plus the requirement that the newest message is
// a user message, which is what the remote protocol expects on each request.
func (h *History) ValidateForSend() error {
	if err := Validate(h.msgs); err != nil {
		return err
	}
	last := len(h.msgs) - 1
	if h.msgs[last].Role != RoleUser {
		reason := ReasonRoleSequence
		if len(h.msgs[last].ToolCalls()) > 0 {
			reason = ReasonNotFollowedByUser
		}
		return &PairingError{Index: last, Reason: reason}
	}
	return nil
}
