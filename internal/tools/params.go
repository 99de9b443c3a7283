package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/brandon/mcp-imap-search/internal/email"
)

// Accepted date layouts for date arguments, tried in order
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func invalid(field, format string, args ...interface{}) error {
	return &email.ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// stringParam returns an optional string argument
func stringParam(params map[string]interface{}, key string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", invalid(key, "must be a string")
	}
	return strings.TrimSpace(s), nil
}

// intParam returns an optional integer argument. JSON numbers arrive as
// float64; numeric strings are accepted too.
func intParam(params map[string]interface{}, key string) (int, bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false, invalid(key, "must be an integer")
		}
		return int(v), true, nil
	case int:
		return v, true, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false, invalid(key, "must be an integer")
		}
		return n, true, nil
	default:
		return 0, false, invalid(key, "must be an integer")
	}
}

// stringsParam returns an optional array-of-strings argument
func stringsParam(params map[string]interface{}, key string) ([]string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, invalid(fmt.Sprintf("%s[%d]", key, i), "must be a string")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, invalid(key, "must be an array of strings")
	}
}

// dateParam returns an optional date argument
func dateParam(params map[string]interface{}, key string) (*time.Time, error) {
	s, err := stringParam(params, key)
	if err != nil || s == "" {
		return nil, err
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, invalid(key, "expected YYYY-MM-DD or RFC 3339, got %q", s)
}

func arraySchema(itemType, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": itemType},
		"description": description,
	}
}
