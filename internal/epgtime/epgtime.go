// Package epgtime converts the timestamp encodings used by the upstream
// platforms into instants in the canonical display zone. Every document this
// service emits renders times in Asia/Shanghai (UTC+8, no DST), regardless of
// where the upstream data came from.
package epgtime

import (
	"fmt"
	"math"
	"time"
)

// Zone is the canonical display zone. A fixed offset is used instead of the
// IANA database entry so the service behaves the same on hosts without tzdata.
var Zone = time.FixedZone("Asia/Shanghai", 8*60*60)

const (
	isoUTCLayout = "2006-01-02T15:04:05.000Z"
	localLayout  = "2006-01-02 15:04:05"
	xmltvLayout  = "20060102150405 -0700"
	dateLayout   = "20060102"
)

// ParseError wraps a timestamp parse failure together with the raw value that
// caused it. Callers drop the offending record and continue.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse timestamp %q: %s", e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseISOUTC parses an ISO-8601 string with a literal Z and millisecond
// precision (e.g. 2025-06-17T07:30:00.000Z) and returns the instant in Zone.
func ParseISOUTC(raw string) (time.Time, error) {
	t, err := time.Parse(isoUTCLayout, raw)
	if err != nil {
		return time.Time{}, &ParseError{Raw: raw, Err: err}
	}
	return t.In(Zone), nil
}

// ParseLocal parses a naive YYYY-MM-DD HH:MM:SS string that is already
// expressed in the display zone.
func ParseLocal(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(localLayout, raw, Zone)
	if err != nil {
		return time.Time{}, &ParseError{Raw: raw, Err: err}
	}
	return t, nil
}

// FromUnix interprets an epoch-second value as UTC and returns it in Zone.
func FromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).In(Zone)
}

// FromUnixMilli interprets an epoch-millisecond value as UTC and returns it
// in Zone. Sub-second precision is discarded, matching upstream behaviour.
func FromUnixMilli(ms int64) time.Time {
	return time.Unix(ms/1000, 0).In(Zone)
}

// ClockOn combines an HH:MM string with the calendar date of day, producing
// an instant in Zone.
func ClockOn(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, &ParseError{Raw: clock, Err: err}
	}
	d := day.In(Zone)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, Zone), nil
}

// ResolveRollover returns the end instant for a start/end pair rendered as
// bare clock times on the same date. An end numerically before the start
// means the programme runs past midnight, so the end lands on the next day.
func ResolveRollover(start, end time.Time) time.Time {
	if end.Before(start) {
		return end.AddDate(0, 0, 1)
	}
	return end
}

// ParseDate parses a YYYYMMDD string into midnight of that day in Zone.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, raw, Zone)
	if err != nil {
		return time.Time{}, &ParseError{Raw: raw, Err: err}
	}
	return t, nil
}

// Format renders t in the XMLTV timestamp format (YYYYMMDDHHMMSS +ZZZZ) in
// the display zone.
func Format(t time.Time) string {
	return t.In(Zone).Format(xmltvLayout)
}

// DateString returns the YYYYMMDD rendering of t in the display zone.
func DateString(t time.Time) string {
	return t.In(Zone).Format(dateLayout)
}

// Today returns midnight of the current day in the display zone.
func Today() time.Time {
	return Midnight(time.Now())
}

// Midnight returns midnight of t's calendar day in the display zone.
func Midnight(t time.Time) time.Time {
	d := t.In(Zone)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, Zone)
}

// DayWindow computes the grid query window for a day dayDelta days from now.
// The window for today starts at now rounded down to the nearest half hour
// and runs to the next local midnight, with the duration rounded up to whole
// hours. Subsequent days are full 24-hour windows starting at local midnight.
func DayWindow(now time.Time, dayDelta int) (time.Time, int) {
	day := now.In(Zone).AddDate(0, 0, dayDelta)
	if dayDelta != 0 {
		return Midnight(day), 24
	}

	rounded := day.Truncate(time.Minute)
	if rounded.Minute() >= 30 {
		rounded = rounded.Add(-time.Duration(rounded.Minute()-30) * time.Minute)
	} else {
		rounded = rounded.Add(-time.Duration(rounded.Minute()) * time.Minute)
	}

	nextMidnight := Midnight(day).AddDate(0, 0, 1)
	hours := int(math.Ceil(nextMidnight.Sub(rounded).Hours()))
	return rounded, hours
}
