package skillauth

import (
	"fmt"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 request timestamp. Values without a zone are UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format %q", value)
}

// ValidateTimestamp rejects requests older than the configured tolerance.
// Ages are compared in whole seconds; an age equal to the tolerance passes.
// Future timestamps are rejected only when cfg.MaxFutureSkew is set.
func ValidateTimestamp(cfg Config, timestamp string, now time.Time) error {
	cfg = cfg.withDefaults()

	t, err := ParseTimestamp(timestamp)
	if err != nil {
		return &VerificationError{Kind: MalformedTimestamp, Field: "timestamp", Got: timestamp, Err: err}
	}

	age := time.Duration(now.Unix()-t.Unix()) * time.Second
	if age > cfg.TimestampTolerance {
		return &VerificationError{Kind: StaleRequest, Field: "timestamp", Got: timestamp, Delta: age}
	}
	if cfg.MaxFutureSkew > 0 && -age > cfg.MaxFutureSkew {
		return &VerificationError{Kind: StaleRequest, Field: "timestamp", Got: timestamp, Delta: age}
	}
	return nil
}
