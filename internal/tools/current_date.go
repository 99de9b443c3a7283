package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
	_ "time/tzdata" // zone names resolve in minimal containers too
)

var offsetPattern = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)

// date formats understood by get_current_date
var dateFormats = map[string]struct {
	layout      string
	description string
}{
	"iso":       {"2006-01-02T15:04:05.000Z07:00", "ISO 8601"},
	"date":      {"2006-01-02", "date (YYYY-MM-DD)"},
	"datetime":  {"2006-01-02 15:04:05", "date and time (YYYY-MM-DD HH:mm:ss)"},
	"timestamp": {"", "Unix timestamp in milliseconds"},
}

// CurrentDateTool reports the current date so callers can build search ranges
type CurrentDateTool struct {
	now func() time.Time
}

// NewCurrentDateTool creates a new current date tool. now defaults to time.Now.
func NewCurrentDateTool(now func() time.Time) *CurrentDateTool {
	if now == nil {
		now = time.Now
	}
	return &CurrentDateTool{now: now}
}

// Name returns the tool name
func (t *CurrentDateTool) Name() string {
	return "get_current_date"
}

// Description returns the tool description
func (t *CurrentDateTool) Description() string {
	return "Get the current date and time, optionally shifted by a number of days, " +
		"for use as since/before in search_emails"
}

// InputSchema returns the JSON schema for tool inputs
func (t *CurrentDateTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"format": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"iso", "date", "datetime", "timestamp"},
				"description": "Optional: Output format (default: date)",
				"default":     "date",
			},
			"timezone": map[string]interface{}{
				"type":        "string",
				"description": "Optional: IANA zone name such as Europe/Berlin, or an offset such as +08:00 (default: server local time)",
			},
			"daysOffset": map[string]interface{}{
				"type":        "integer",
				"description": "Optional: Days to add; negative values go into the past",
				"default":     0,
			},
		},
	}
}

// Execute executes the tool
func (t *CurrentDateTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	format, err := stringParam(params, "format")
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = "date"
	}
	spec, ok := dateFormats[format]
	if !ok {
		return nil, invalid("format", "must be one of iso, date, datetime, timestamp")
	}

	zone, err := stringParam(params, "timezone")
	if err != nil {
		return nil, err
	}
	loc := time.Local
	if zone != "" {
		if loc, err = parseZone(zone); err != nil {
			return nil, invalid("timezone", "%v", err)
		}
	}

	offset, _, err := intParam(params, "daysOffset")
	if err != nil {
		return nil, err
	}

	now := t.now().In(loc).AddDate(0, 0, offset)

	formatted := strconv.FormatInt(now.UnixMilli(), 10)
	if spec.layout != "" {
		formatted = now.Format(spec.layout)
	}

	if zone == "" {
		zone = "local"
	}
	return map[string]interface{}{
		"current_date": formatted,
		"format":       format,
		"description":  spec.description,
		"timezone":     fmt.Sprintf("%s (%s)", zone, now.Format("2006-01-02 15:04:05 -07:00")),
		"days_offset":  offset,
	}, nil
}

func parseZone(zone string) (*time.Location, error) {
	if m := offsetPattern.FindStringSubmatch(zone); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes, _ := strconv.Atoi(m[3])
		if hours > 14 || minutes > 59 {
			return nil, fmt.Errorf("offset %q out of range", zone)
		}
		seconds := hours*3600 + minutes*60
		if m[1] == "-" {
			seconds = -seconds
		}
		return time.FixedZone(zone, seconds), nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q", zone)
	}
	return loc, nil
}
