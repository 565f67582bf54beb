package safety

import "time"

// QuietHours suppresses replies inside a configured hour range. Start and
// end are hours 0-23; end is exclusive. A start greater than end means the
// quiet interval wraps past midnight.
type QuietHours struct {
	start   int
	end     int
	enabled bool
	now     func() time.Time
}

// NewQuietHours creates a checker for the given hour range.
func NewQuietHours(start, end int, enabled bool) *QuietHours {
	return &QuietHours{start: start, end: end, enabled: enabled, now: time.Now}
}

// IsQuietTime reports whether the current hour falls in the quiet range.
func (q *QuietHours) IsQuietTime() bool {
	if !q.enabled {
		return false
	}
	return q.isQuietHour(q.now().Hour())
}

func (q *QuietHours) isQuietHour(hour int) bool {
	if q.start == q.end {
		return false
	}
	if q.start < q.end {
		return hour >= q.start && hour < q.end
	}
	// Wraparound range, e.g. start=22 end=6 covers 22..23 and 0..5.
	return hour >= q.start || hour < q.end
}
