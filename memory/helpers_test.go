package memory_test

import "github.com/petasbytes/aurora-agent/memory"

// Text block constructor
func T(text string) memory.ContentBlock { return memory.TextBlock{Text: text} }

// Tool-call block constructor
func TC(id string) memory.ContentBlock {
	return memory.ToolCallBlock{ID: id, Name: "read-file", Arguments: []byte(`{}`)}
}

// Tool-result block constructor
func TR(id string, isErr bool) memory.ContentBlock {
	return memory.ToolResultBlock{ToolCallID: id, Content: "ok", IsError: isErr}
}

func Asst(blocks ...memory.ContentBlock) memory.Message {
	return memory.Message{Role: memory.RoleAssistant, Content: blocks}
}

func User(blocks ...memory.ContentBlock) memory.Message {
	return memory.Message{Role: memory.RoleUser, Content: blocks}
}
