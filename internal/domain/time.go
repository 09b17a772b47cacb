package domain

import "time"

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Timestamp formats t in UTC the way result documents store it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
