// Package runner drives one agent run: it sends the conversation to the
// model, reports text, dispatches tool calls and feeds results back until
// the model is done or the turn budget runs out.
//
// Invariant:
//   - the assistant message is appended before its tool calls execute, and
//     all results for that message are appended as one user message, so
//     tool_use and tool_result stay adjacent. The history is validated
//     before every transport call.
//
// Flow:
//
//	Init -> AwaitingModel -> (ExecutingTools -> AwaitingModel)* -> Done | Aborted
//	user(text) -> assistant(tool_use) -> user(tool_result) -> assistant(text)
package runner
