package tools

import (
	"context"
	"encoding/json"

	"github.com/petasbytes/aurora-agent/internal/fsops"
)

type ReadFileInput struct {
	FilePath string `json:"file_path" jsonschema_description:"Absolute path to the file."`
}

var ReadFileDefinition = ToolDefinition{
	Name:        NameReadFile,
	Description: "Read the full text contents of a file.",
	InputSchema: ReadFileInputSchema,
	Budget:      BudgetFile,
	Function:    ReadFile,
}

var ReadFileInputSchema = GenerateSchema[ReadFileInput]()

// ReadFile returns the file text unchanged; the dispatcher bounds its size.
func ReadFile(ctx context.Context, input json.RawMessage) (string, error) {
	var in ReadFileInput
	if err := decodeArgs(input, &in); err != nil {
		return "", err
	}
	if err := requireString("file_path", in.FilePath); err != nil {
		return "", err
	}
	return fsops.ReadFile(ctx, in.FilePath)
}
