package transport

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/tidwall/sjson"
)

// Overlay sets every key of extra as a top-level field of body, replacing any
// value already there. Keys are applied in sorted order so the result is
// deterministic.
func Overlay(body []byte, extra map[string]any) ([]byte, error) {
	if len(extra) == 0 {
		return body, nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := body
	for _, k := range keys {
		raw, err := json.Marshal(extra[k])
		if err != nil {
			return nil, err
		}
		out, err = sjson.SetRawBytes(out, escapeKey(k), raw)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

var pathEscaper = strings.NewReplacer(`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`)

// escapeKey makes k a literal top-level key in sjson path syntax.
func escapeKey(k string) string { return pathEscaper.Replace(k) }
