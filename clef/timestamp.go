package clef

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	utcDesignator = "Z"
	utcOffset     = "+00:00"
	dateLayout    = "2006-01-02"
)

var errUnsupportedTimestampFormat = errors.New("not an ISO-8601 timestamp")

// timestampLayouts lists the accepted ISO-8601 shapes. Fractional seconds are accepted after seconds
// by time.Parse even though the layouts do not spell them out.
var timestampLayouts = buildTimestampLayouts()

func buildTimestampLayouts() []string {
	layouts := []string{dateLayout}

	for _, separator := range []string{"T", " "} {
		for _, clock := range []string{"15:04:05", "15:04", "15"} {
			for _, offset := range []string{"", "-07:00", "-0700", "-07"} {
				layouts = append(layouts, dateLayout+separator+clock+offset)
			}
		}
	}

	return layouts
}

// ParseTimestamp parses an ISO-8601 timestamp. A trailing 'Z' means UTC.
// Timestamps without offset are interpreted as UTC, so every parsed value is comparable.
func ParseTimestamp(value string) (time.Time, error) {
	normalized := strings.TrimSpace(value)
	if strings.HasSuffix(normalized, utcDesignator) {
		normalized = strings.TrimSuffix(normalized, utcDesignator) + utcOffset
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, normalized); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", errUnsupportedTimestampFormat, value)
}
