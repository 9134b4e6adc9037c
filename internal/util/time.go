package util

import "time"

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// ISOTime formats epoch milliseconds as a UTC ISO-8601 string with millisecond precision.
func ISOTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(isoMillis)
}

func NowISO() string {
	return time.Now().UTC().Format(isoMillis)
}

func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// MinuteFloor truncates epoch milliseconds to the start of their minute.
func MinuteFloor(ms int64) int64 {
	return ms - ((ms%60000)+60000)%60000
}
