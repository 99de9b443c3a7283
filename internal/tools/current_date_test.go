package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mcp-imap-search/internal/email"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 10, 22, 30, 15, 250*int(time.Millisecond), time.UTC)
}

func currentDate(t *testing.T, params map[string]interface{}) map[string]interface{} {
	t.Helper()
	out, err := NewCurrentDateTool(fixedNow).Execute(context.Background(), params)
	require.NoError(t, err)
	return out.(map[string]interface{})
}

func TestCurrentDateTool_Formats(t *testing.T) {
	tests := []struct {
		params map[string]interface{}
		want   string
	}{
		{map[string]interface{}{"timezone": "UTC"}, "2024-03-10"},
		{map[string]interface{}{"timezone": "UTC", "format": "iso"}, "2024-03-10T22:30:15.250Z"},
		{map[string]interface{}{"timezone": "UTC", "format": "datetime"}, "2024-03-10 22:30:15"},
		{map[string]interface{}{"format": "timestamp"}, "1710109815250"},
		{map[string]interface{}{"timezone": "+08:00"}, "2024-03-11"},
		{map[string]interface{}{"timezone": "Asia/Tokyo", "format": "datetime"}, "2024-03-11 07:30:15"},
		{map[string]interface{}{"timezone": "-0500", "format": "iso"}, "2024-03-10T17:30:15.250-05:00"},
		{map[string]interface{}{"timezone": "UTC", "daysOffset": float64(-7)}, "2024-03-03"},
		{map[string]interface{}{"timezone": "UTC", "daysOffset": float64(30)}, "2024-04-09"},
	}

	for _, tt := range tests {
		result := currentDate(t, tt.params)
		assert.Equal(t, tt.want, result["current_date"], "params %v", tt.params)
	}
}

func TestCurrentDateTool_Metadata(t *testing.T) {
	result := currentDate(t, map[string]interface{}{"daysOffset": float64(-1), "timezone": "UTC"})
	assert.Equal(t, "date", result["format"])
	assert.Equal(t, -1, result["days_offset"])
	assert.Equal(t, "UTC (2024-03-09 22:30:15 +00:00)", result["timezone"])
}

func TestCurrentDateTool_InvalidArguments(t *testing.T) {
	tool := NewCurrentDateTool(fixedNow)

	for _, params := range []map[string]interface{}{
		{"format": "rfc822"},
		{"timezone": "Mars/Olympus_Mons"},
		{"timezone": "+25:00"},
		{"daysOffset": "soon"},
	} {
		_, err := tool.Execute(context.Background(), params)
		require.Error(t, err, "params %v", params)
		assert.True(t, email.IsValidationError(err))
	}
}
