package decode

import (
	"strconv"
	"time"
)

// Epoch values above this are milliseconds; at or below, seconds.
const epochMillisFloor = 10_000_000_000

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Instant coerces the mixed date encodings found in stored documents
// into a time. It accepts native time values, {seconds,nanos} timestamp
// objects, epoch numbers in seconds or milliseconds, RFC 3339 strings
// and bare yyyy-MM-dd strings. Anything else yields nil; a bad date is
// never a reason to drop the whole record.
func Instant(v any) *time.Time {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return nonZero(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return nonZero(*t)
	case map[string]any:
		return timestampObject(t)
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return nonZero(parsed.UTC())
			}
		}
		return nil
	default:
		if epoch, ok := number(v); ok {
			return fromEpoch(epoch)
		}
		return nil
	}
}

func timestampObject(m map[string]any) *time.Time {
	secs, ok := number(firstKey(m, "seconds", "_seconds"))
	if !ok {
		return nil
	}
	nanos, _ := number(firstKey(m, "nanos", "_nanoseconds"))
	return nonZero(time.Unix(int64(secs), int64(nanos)).UTC())
}

func fromEpoch(epoch float64) *time.Time {
	if epoch == 0 {
		return nil
	}
	if epoch > epochMillisFloor {
		return nonZero(time.UnixMilli(int64(epoch)).UTC())
	}
	return nonZero(time.Unix(int64(epoch), 0).UTC())
}

func firstKey(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func nonZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// number accepts the numeric shapes the driver and raw JSON produce,
// plus numeric strings.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}
