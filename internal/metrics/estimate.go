package metrics

import (
	"unicode/utf8"

	"github.com/petasbytes/aurora-agent/memory"
)

// blockOverhead is a fixed per-block cost for minimal formatting.
const blockOverhead = 4

// EstimateMessage is a deterministic size estimate for one message:
// runes of text, tool-result content and tool-call name plus arguments,
// with blockOverhead added per block.
func EstimateMessage(m memory.Message) int {
	total := 0
	for _, b := range m.Content {
		total += estimateBlock(b)
	}
	return total
}

// EstimateRequest sums EstimateMessage over msgs.
func EstimateRequest(msgs []memory.Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateMessage(m)
	}
	return total
}

func estimateBlock(b memory.ContentBlock) int {
	switch v := b.(type) {
	case memory.TextBlock:
		return utf8.RuneCountInString(v.Text) + blockOverhead
	case memory.ToolResultBlock:
		return utf8.RuneCountInString(v.Content) + blockOverhead
	case memory.ToolCallBlock:
		return utf8.RuneCountInString(v.Name) + utf8.RuneCount(v.Arguments) + blockOverhead
	}
	return blockOverhead
}
