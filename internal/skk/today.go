package skk

import (
	"fmt"
	"time"

	"skkime/internal/jisyo"
)

const todayKey = "today"

var weekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// todayCandidate renders t as 2026年10月17日(土).
func todayCandidate(t time.Time) jisyo.Candidate {
	return jisyo.Candidate{
		Word: fmt.Sprintf("%d年%d月%d日(%s)", t.Year(), int(t.Month()), t.Day(), weekdays[t.Weekday()]),
	}
}
