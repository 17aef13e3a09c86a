package webhook

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ToInt64 coerces a loosely typed payload value into an integer. The bool is
// false for anything that is not an integral number or a decimal string;
// callers must treat that as an absent field, not as zero.
func ToInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return uintToInt64(uint64(v))
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return uintToInt64(v)
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case json.Number:
		return stringToInt64(string(v))
	case string:
		return stringToInt64(v)
	default:
		return 0, false
	}
}

func uintToInt64(v uint64) (int64, bool) {
	if v > math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

func floatToInt64(v float64) (int64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	if v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

func stringToInt64(raw string) (int64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n, true
	}
	// JSON numbers such as 12.0 or 1e3 arrive here through json.Number.
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return floatToInt64(f)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ToTime parses RFC 3339 timestamps (fractional seconds optional) and plain
// dates. Absent, empty or invalid input yields false.
func ToTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v.UTC(), true
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return v.UTC(), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				return parsed.UTC(), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// NormalizeReviewState maps GitHub's review vocabulary onto the three local
// states. Unknown values, including non-strings, become COMMENT.
func NormalizeReviewState(value any) ReviewState {
	raw, ok := value.(string)
	if !ok {
		return ReviewComment
	}

	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(ReviewApprove), "APPROVED":
		return ReviewApprove
	case string(ReviewRequestChanges), "CHANGES_REQUESTED":
		return ReviewRequestChanges
	default:
		return ReviewComment
	}
}

// NormalizeCommentSide accepts LEFT or RIGHT in any case and returns
// SideUnset for everything else.
func NormalizeCommentSide(value any) CommentSide {
	raw, ok := value.(string)
	if !ok {
		return SideUnset
	}

	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(SideLeft):
		return SideLeft
	case string(SideRight):
		return SideRight
	default:
		return SideUnset
	}
}
