package modelclient

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ParseJSONObject extracts a JSON object from model output. It accepts a bare
// object, the first fenced code block, or the outermost {...} span, in that
// order.
func ParseJSONObject(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrNoJSON)
	}
	if m, ok := decodeObject(text); ok {
		return m, nil
	}
	if sm := fencedBlock.FindStringSubmatch(text); sm != nil {
		if m, ok := decodeObject(strings.TrimSpace(sm[1])); ok {
			return m, nil
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if m, ok := decodeObject(text[start : end+1]); ok {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %.80q", ErrNoJSON, text)
}

func decodeObject(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}
