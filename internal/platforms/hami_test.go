package platforms

import (
	"testing"
	"time"

	"github.com/charmingtv/epg/internal/epgtime"
)

func TestParseHamiTimeRange(t *testing.T) {
	start, stop, err := parseHamiTimeRange("2025-06-17 21:00:00~2025-06-17 22:30:00")
	if err != nil {
		t.Fatal(err)
	}

	if !start.Equal(time.Date(2025, 6, 17, 21, 0, 0, 0, epgtime.Zone)) {
		t.Errorf("unexpected start %s", start)
	}
	if !stop.Equal(time.Date(2025, 6, 17, 22, 30, 0, 0, epgtime.Zone)) {
		t.Errorf("unexpected stop %s", stop)
	}
}

func TestParseHamiTimeRangeMalformed(t *testing.T) {
	if _, _, err := parseHamiTimeRange("2025-06-17 21:00:00"); err == nil {
		t.Error("expected an error for a range without a separator")
	}
	if _, _, err := parseHamiTimeRange("bogus~2025-06-17 22:30:00"); err == nil {
		t.Error("expected an error for an unparsable start")
	}
}
