package epgtime

import (
	"errors"
	"testing"
	"time"
)

func TestParseISOUTC(t *testing.T) {
	got, err := ParseISOUTC("2025-06-17T07:30:00.000Z")
	if err != nil {
		t.Fatal(err)
	}

	want := time.Date(2025, 6, 17, 15, 30, 0, 0, Zone)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
	if got.Location() != Zone {
		t.Errorf("expected result in display zone, got %s", got.Location())
	}
}

func TestParseISOUTCError(t *testing.T) {
	_, err := ParseISOUTC("not a timestamp")
	if err == nil {
		t.Fatal("expected an error")
	}

	parseErr := &ParseError{}
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected a ParseError, got %T", err)
	}
	if parseErr.Raw != "not a timestamp" {
		t.Errorf("expected raw value to be preserved, got %q", parseErr.Raw)
	}
}

func TestParseLocal(t *testing.T) {
	got, err := ParseLocal("2025-06-17 21:45:00")
	if err != nil {
		t.Fatal(err)
	}

	want := time.Date(2025, 6, 17, 21, 45, 0, 0, Zone)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestFromUnixMilli(t *testing.T) {
	// 2025-06-17 00:00:00 UTC with sub-second precision to discard
	got := FromUnixMilli(1750118400123)
	want := time.Date(2025, 6, 17, 8, 0, 0, 0, Zone)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestClockOnAndRollover(t *testing.T) {
	day := time.Date(2025, 6, 17, 0, 0, 0, 0, Zone)

	start, err := ClockOn(day, "23:30")
	if err != nil {
		t.Fatal(err)
	}
	end, err := ClockOn(day, "00:15")
	if err != nil {
		t.Fatal(err)
	}

	resolved := ResolveRollover(start, end)
	want := time.Date(2025, 6, 18, 0, 15, 0, 0, Zone)
	if !resolved.Equal(want) {
		t.Errorf("expected rollover to %s, got %s", want, resolved)
	}

	// same-day pair must come back unchanged
	if got := ResolveRollover(start, start.Add(time.Hour)); !got.Equal(start.Add(time.Hour)) {
		t.Errorf("expected same-day end to be unchanged, got %s", got)
	}
}

func TestFormat(t *testing.T) {
	instant := time.Date(2025, 6, 17, 15, 30, 5, 0, Zone)
	if got := Format(instant); got != "20250617153005 +0800" {
		t.Errorf("expected XMLTV rendering, got %q", got)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("20250617")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 6, 17, 0, 0, 0, 0, Zone)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}

	if _, err := ParseDate("2025-06-17"); err == nil {
		t.Error("expected an error for a dashed date")
	}
}

func TestDayWindowToday(t *testing.T) {
	now := time.Date(2025, 6, 17, 15, 34, 12, 0, Zone)

	start, hours := DayWindow(now, 0)
	wantStart := time.Date(2025, 6, 17, 15, 30, 0, 0, Zone)
	if !start.Equal(wantStart) {
		t.Errorf("expected window start %s, got %s", wantStart, start)
	}
	if hours != 9 {
		t.Errorf("expected 9 hours to midnight, got %d", hours)
	}
}

func TestDayWindowFutureDay(t *testing.T) {
	now := time.Date(2025, 6, 17, 15, 34, 12, 0, Zone)

	start, hours := DayWindow(now, 2)
	wantStart := time.Date(2025, 6, 19, 0, 0, 0, 0, Zone)
	if !start.Equal(wantStart) {
		t.Errorf("expected window start %s, got %s", wantStart, start)
	}
	if hours != 24 {
		t.Errorf("expected a 24 hour window, got %d", hours)
	}
}
