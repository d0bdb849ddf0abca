package types

import (
	"math"
	"time"
)

// SerialEpoch is the date whose serial value is 1, matching common
// spreadsheet numbering.
var SerialEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 24 * 60 * 60

// maxSerial bounds serial values to roughly the year 9999.
const maxSerial = 2958466.0

// TimeToSerial converts a timestamp to a fractional date serial value.
// The wall clock of t is used as is, regardless of its location, so a
// local midnight always maps to a whole number.
func TimeToSerial(t time.Time) float64 {
	wall := WallClock(t)
	secs := wall.Unix() - SerialEpoch.Unix()
	return float64(secs)/secondsPerDay + float64(wall.Nanosecond())/(secondsPerDay*1e9) + 1
}

// DateSerial converts the date part of t to a whole date serial value.
func DateSerial(t time.Time) float64 {
	y, m, d := t.Date()
	return TimeToSerial(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// SerialToTime converts a date serial value back to a UTC timestamp.
// It is the inverse of TimeToSerial.
func SerialToTime(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || math.Abs(serial) > maxSerial {
		return time.Time{}, false
	}
	days := serial - 1
	whole, frac := math.Modf(days)
	secs := int64(whole) * secondsPerDay
	nanos := int64(math.Round(frac * secondsPerDay * 1e9))
	return time.Unix(SerialEpoch.Unix()+secs, 0).UTC().Add(time.Duration(nanos)), true
}

// WallClock reinterprets the wall clock of t as UTC.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
