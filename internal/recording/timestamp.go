package recording

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// ISOLayout is the canonical createdAt form: UTC with milliseconds.
const ISOLayout = "2006-01-02T15:04:05.000Z"

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999", // no zone, read as UTC
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a point in time that always encodes as ISOLayout and decodes
// leniently. Values that cannot be parsed decode to the zero time.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses any accepted createdAt form.
func ParseTimestamp(s string) (Timestamp, bool) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Timestamp{Time: time.UnixMilli(ms)}, true
	}
	return Timestamp{}, false
}

// String returns the canonical form, or "" for the zero time.
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(ISOLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t, _ = ParseTimestamp(s)
		return nil
	}
	// Epoch milliseconds.
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*t = Timestamp{}
		return nil
	}
	*t = Timestamp{Time: time.UnixMilli(int64(ms))}
	return nil
}
