// Package memory models the in-process conversation of a single run.
//
// A History is append-only and holds Messages whose content is a closed set
// of blocks: TextBlock, ToolCallBlock and ToolResultBlock.
//
// Invariant (checked by Validate / ValidateForSend):
//   - every assistant message carrying tool calls is immediately followed by a
//     user message whose leading blocks are the results for exactly those calls.
//
// Nothing is persisted; the history lives for one process run.
package memory
