package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petasbytes/aurora-agent/internal/fsops"
)

type SearchFilesInput struct {
	Pattern string `json:"pattern" jsonschema_description:"Regular expression (RE2 syntax) to search for."`
	Path    string `json:"path,omitempty" jsonschema_description:"File or directory to search (defaults to the current directory)."`
	Glob    string `json:"glob,omitempty" jsonschema_description:"Optional file name filter, e.g. *.go."`
}

// maxSearchMatches caps search-files output.
const maxSearchMatches = 500

var SearchFilesDefinition = ToolDefinition{
	Name:        NameSearchFiles,
	Description: "Search file contents with a regular expression. Returns matching lines as path:line:text.",
	InputSchema: SearchFilesInputSchema,
	Budget:      BudgetSearch,
	Function:    SearchFiles,
}

var SearchFilesInputSchema = GenerateSchema[SearchFilesInput]()

// SearchFiles returns one "path:line:text" entry per matching line, or a
// placeholder when nothing matched.
func SearchFiles(ctx context.Context, input json.RawMessage) (string, error) {
	var in SearchFilesInput
	if err := decodeArgs(input, &in); err != nil {
		return "", err
	}
	if err := requireString("pattern", in.Pattern); err != nil {
		return "", err
	}

	res, err := fsops.SearchFiles(ctx, fsops.SearchOptions{
		Pattern:    in.Pattern,
		Path:       in.Path,
		Glob:       in.Glob,
		MaxMatches: maxSearchMatches,
	})
	if err != nil {
		return "", err
	}
	if len(res.Matches) == 0 {
		return noMatches, nil
	}
	lines := make([]string, 0, len(res.Matches))
	for _, m := range res.Matches {
		lines = append(lines, m.String())
	}
	out := strings.Join(lines, "\n")
	if res.Truncated {
		out += fmt.Sprintf("\n-- truncated: showing first %d matches --", maxSearchMatches)
	}
	return out, nil
}
