package record

import (
	"strings"
	"time"
)

// TimestampLayout is the human-readable local time format used for every
// timestamp field in a metadata document.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the date-only form used in default titles.
const DateLayout = "2006-01-02"

// FormatTimestamp renders t in the metadata timestamp format, in local time.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

var sortLayouts = []string{
	TimestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	DateLayout,
}

// SortKey converts a stored timestamp to unix seconds for ordering. Absent or
// unparsable values sort as the epoch.
func SortKey(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	for _, layout := range sortLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t.Unix()
		}
	}
	return 0
}
