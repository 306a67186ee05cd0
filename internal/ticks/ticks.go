// Package ticks converts between calendar instants and the device's native
// timestamp: a count of 100-nanosecond intervals since 0001-01-01 00:00:00.
package ticks

import "time"

// PerSecond is the number of ticks in one second.
const PerSecond = 10_000_000

// Epoch is tick zero.
var Epoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// epochUnix is Epoch in Unix seconds. time.Duration cannot span the
// distance from year 1, so arithmetic is done in whole seconds.
var epochUnix = Epoch.Unix()

// FromTime encodes the wall-clock fields of t as ticks. The location of t is
// ignored, and precision below one microsecond is truncated. Instants before
// Epoch yield negative ticks.
func FromTime(t time.Time) int64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	secs := wall.Unix() - epochUnix
	micros := int64(wall.Nanosecond() / 1000)
	return secs*PerSecond + micros*10
}

// ToTime decodes n as a UTC instant. The sub-microsecond remainder is
// discarded.
func ToTime(n int64) time.Time {
	secs := n / PerSecond
	rem := n % PerSecond
	if rem < 0 {
		secs--
		rem += PerSecond
	}
	micros := rem / 10
	return time.Unix(secs+epochUnix, micros*1000).UTC()
}
