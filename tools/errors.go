package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/petasbytes/aurora-agent/internal/fsops"
	"github.com/petasbytes/aurora-agent/internal/shell"
)

// Error codes carried by ToolError.
const (
	CodeInvalidArguments = "ERR_INVALID_ARGUMENTS"
	CodeUnknownTool      = "ERR_UNKNOWN_TOOL"
	CodeTimeout          = "ERR_TIMEOUT"
	CodeCommandFailed    = "ERR_COMMAND_FAILED"
	CodeBadPattern       = "ERR_BAD_PATTERN"
	CodeNotAFile         = "ERR_NOT_A_FILE"
	CodeNotFound         = "ERR_NOT_FOUND"
	CodePermission       = "ERR_PERMISSION"
	CodeIO               = "ERR_IO"
	CodePanic            = "ERR_PANIC"
)

// ToolError is a failure inside one tool call. It is rendered into the tool
// result and never escapes the dispatcher.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *ToolError) Error() string { return e.Message }

func (e *ToolError) Unwrap() error { return e.Err }

func invalidArgs(format string, args ...any) *ToolError {
	return &ToolError{Code: CodeInvalidArguments, Message: fmt.Sprintf(format, args...)}
}

// classify maps any handler error onto a ToolError. limit is the deadline
// that applied, used for timeout messages.
func classify(err error, limit time.Duration) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}

	var exitErr *shell.ExitError
	var parseErr *shell.ParseError
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, shell.ErrTimeout):
		return &ToolError{Code: CodeTimeout, Message: fmt.Sprintf("timed out after %s", limit), Err: err}
	case errors.Is(err, context.Canceled):
		return &ToolError{Code: CodeTimeout, Message: "canceled", Err: err}
	case errors.As(err, &exitErr):
		msg := err.Error()
		if out := strings.TrimSpace(exitErr.Result.Stdout); out != "" {
			msg += "\n" + out
		}
		return &ToolError{Code: CodeCommandFailed, Message: msg, Err: err}
	case errors.As(err, &parseErr):
		return &ToolError{Code: CodeInvalidArguments, Message: err.Error(), Err: err}
	case errors.As(err, &typeErr), errors.As(err, &syntaxErr), errors.Is(err, fsops.ErrEmptyPath):
		return &ToolError{Code: CodeInvalidArguments, Message: err.Error(), Err: err}
	case errors.Is(err, fsops.ErrBadPattern):
		return &ToolError{Code: CodeBadPattern, Message: err.Error(), Err: err}
	case errors.Is(err, fsops.ErrNotAFile):
		return &ToolError{Code: CodeNotAFile, Message: err.Error(), Err: err}
	case errors.Is(err, os.ErrNotExist):
		return &ToolError{Code: CodeNotFound, Message: err.Error(), Err: err}
	case errors.Is(err, os.ErrPermission):
		return &ToolError{Code: CodePermission, Message: err.Error(), Err: err}
	default:
		return &ToolError{Code: CodeIO, Message: err.Error(), Err: err}
	}
}
