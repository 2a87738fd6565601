package clock

import (
	"time"
)

const dateLayout = "2006-01-02"

func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// DateKey calendar day of t in UTC, used as the scans-by-date key
func DateKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// DaysAgo start of the analytics window; zero days means no window
func DaysAgo(now time.Time, days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return now.UTC().AddDate(0, 0, -days)
}
