package tools

import (
	"bytes"
	"encoding/json"
)

// decodeArgs unmarshals raw tool arguments into v. Absent arguments decode as
// an empty object so required-field checks report what is missing.
func decodeArgs(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return &ToolError{Code: CodeInvalidArguments, Message: "invalid arguments: " + err.Error(), Err: err}
	}
	return nil
}

func requireString(field, v string) error {
	if v == "" {
		return invalidArgs("missing required argument %q", field)
	}
	return nil
}
