package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petasbytes/aurora-agent/internal/fsops"
)

type WriteFileInput struct {
	FilePath string  `json:"file_path" jsonschema_description:"Absolute path to the file."`
	Content  *string `json:"content" jsonschema_description:"Content to write. Replaces any existing file."`
}

var WriteFileDefinition = ToolDefinition{
	Name:        NameWriteFile,
	Description: "Write content to a file, creating parent directories as needed and overwriting any existing file.",
	InputSchema: WriteFileInputSchema,
	Budget:      BudgetFile,
	Function:    WriteFile,
}

var WriteFileInputSchema = GenerateSchema[WriteFileInput]()

// WriteFile writes the file and confirms with the path as given.
// Empty content is allowed; a missing content field is not.
func WriteFile(ctx context.Context, input json.RawMessage) (string, error) {
	var in WriteFileInput
	if err := decodeArgs(input, &in); err != nil {
		return "", err
	}
	if err := requireString("file_path", in.FilePath); err != nil {
		return "", err
	}
	if in.Content == nil {
		return "", invalidArgs("missing required argument %q", "content")
	}

	if _, err := fsops.WriteFile(ctx, in.FilePath, *in.Content); err != nil {
		return "", err
	}
	return fmt.Sprintf("Written to %s", in.FilePath), nil
}
