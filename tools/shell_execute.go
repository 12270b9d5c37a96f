package tools

import (
	"context"
	"encoding/json"

	"github.com/petasbytes/aurora-agent/internal/shell"
)

type ShellExecuteInput struct {
	Command string `json:"command" jsonschema_description:"The shell command to run."`
}

var ShellExecuteDefinition = ToolDefinition{
	Name:        NameShellExecute,
	Description: "Execute a shell command in the current working directory and return its standard output. Non-zero exit status is reported as an error.",
	InputSchema: ShellExecuteInputSchema,
	Budget:      BudgetShell,
	Function:    ShellExecute,
}

var ShellExecuteInputSchema = GenerateSchema[ShellExecuteInput]()

// ShellExecute runs the command through the in-process shell interpreter.
// Credentials are stripped from the environment the command sees.
func ShellExecute(ctx context.Context, input json.RawMessage) (string, error) {
	var in ShellExecuteInput
	if err := decodeArgs(input, &in); err != nil {
		return "", err
	}
	if err := requireString("command", in.Command); err != nil {
		return "", err
	}

	res, err := shell.Run(ctx, in.Command, shell.Options{})
	if err != nil {
		return "", err
	}
	if res.Stdout == "" {
		return noOutput, nil
	}
	return res.Stdout, nil
}
