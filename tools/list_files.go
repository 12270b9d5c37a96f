package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petasbytes/aurora-agent/internal/fsops"
)

type ListFilesInput struct {
	Pattern string `json:"pattern" jsonschema_description:"Glob pattern, e.g. **/*.go. A pattern without a slash matches file names at any depth."`
	Path    string `json:"path,omitempty" jsonschema_description:"Directory to search in (defaults to the current directory)."`
}

// maxListedFiles caps list-files output.
const maxListedFiles = 1000

var ListFilesDefinition = ToolDefinition{
	Name:        NameListFiles,
	Description: "List files matching a glob pattern, recursively. Returns absolute paths, one per line.",
	InputSchema: ListFilesInputSchema,
	Budget:      BudgetSearch,
	Function:    ListFiles,
}

var ListFilesInputSchema = GenerateSchema[ListFilesInput]()

// ListFiles returns sorted absolute paths joined by newlines, or a
// placeholder when nothing matched.
func ListFiles(ctx context.Context, input json.RawMessage) (string, error) {
	var in ListFilesInput
	if err := decodeArgs(input, &in); err != nil {
		return "", err
	}
	if err := requireString("pattern", in.Pattern); err != nil {
		return "", err
	}

	res, err := fsops.ListFiles(ctx, in.Path, in.Pattern, maxListedFiles)
	if err != nil {
		return "", err
	}
	if len(res.Paths) == 0 {
		return noMatches, nil
	}
	out := strings.Join(res.Paths, "\n")
	if res.Truncated {
		out += fmt.Sprintf("\n-- truncated: showing first %d matches --", maxListedFiles)
	}
	return out, nil
}
