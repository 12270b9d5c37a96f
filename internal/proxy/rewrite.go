package proxy

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// RewriteBody points a JSON request at target and drops the fields the
// upstream rejects. The model is only replaced when the client set one.
// Bodies that are not JSON objects pass through unchanged.
func RewriteBody(body []byte, target string) []byte {
	if !gjson.ValidBytes(body) {
		return body
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return body
	}

	out := body
	var err error
	if truthy(root.Get("model")) {
		if out, err = sjson.SetBytes(out, "model", target); err != nil {
			return body
		}
	}
	// OpenRouter rejects user ids longer than 128 characters.
	for _, key := range []string{"metadata", "user"} {
		if out, err = sjson.DeleteBytes(out, key); err != nil {
			return body
		}
	}
	return out
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	}
	return r.Exists()
}
