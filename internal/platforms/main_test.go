package platforms

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/kr/pretty"

	"github.com/charmingtv/epg/internal/epgtime"
)

func TestFillMissingStops(t *testing.T) {
	base := time.Date(2025, 6, 17, 20, 0, 0, 0, epgtime.Zone)

	programs := []Program{
		{ChannelID: "a", Title: "first", Start: base},
		{ChannelID: "b", Title: "other channel", Start: base, Stop: base.Add(time.Hour)},
		{ChannelID: "a", Title: "second", Start: base.Add(30 * time.Minute)},
		{ChannelID: "a", Title: "last", Start: base.Add(90 * time.Minute)},
	}

	FillMissingStops(programs, DefaultProgramDuration)

	want := []Program{
		{ChannelID: "a", Title: "first", Start: base, Stop: base.Add(30 * time.Minute)},
		{ChannelID: "b", Title: "other channel", Start: base, Stop: base.Add(time.Hour)},
		{ChannelID: "a", Title: "second", Start: base.Add(30 * time.Minute), Stop: base.Add(90 * time.Minute)},
		{ChannelID: "a", Title: "last", Start: base.Add(90 * time.Minute), Stop: base.Add(120 * time.Minute)},
	}

	if !reflect.DeepEqual(programs, want) {
		t.Errorf("\texpected: %# v\n\t\tactual:   %# v\n", pretty.Formatter(want), pretty.Formatter(programs))
	}
}

func TestFillMissingStopsKeepsExisting(t *testing.T) {
	base := time.Date(2025, 6, 17, 20, 0, 0, 0, epgtime.Zone)
	explicit := base.Add(25 * time.Minute)

	programs := []Program{
		{ChannelID: "a", Start: base, Stop: explicit},
		{ChannelID: "a", Start: base.Add(30 * time.Minute)},
	}

	FillMissingStops(programs, DefaultProgramDuration)

	if !programs[0].Stop.Equal(explicit) {
		t.Errorf("expected the explicit stop to survive, got %s", programs[0].Stop)
	}
}

func TestEpisodeString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{nil, ""},
		{"", ""},
		{"0", ""},
		{"12", "12"},
		{float64(0), ""},
		{float64(7), "7"},
		{json.Number("0"), ""},
		{json.Number("42"), "42"},
		{true, ""},
	}

	for _, tt := range tests {
		if got := episodeString(tt.input); got != tt.want {
			t.Errorf("episodeString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestJSONInt64(t *testing.T) {
	if got, ok := jsonInt64(float64(1750118400)); !ok || got != 1750118400 {
		t.Errorf("expected 1750118400, got %d (ok=%v)", got, ok)
	}
	if got, ok := jsonInt64("123"); !ok || got != 123 {
		t.Errorf("expected 123, got %d (ok=%v)", got, ok)
	}
	if _, ok := jsonInt64("abc"); ok {
		t.Error("expected failure for a non-numeric string")
	}
	if _, ok := jsonInt64(nil); ok {
		t.Error("expected failure for nil")
	}
}

func TestGetPlatformRegistry(t *testing.T) {
	for _, key := range Keys() {
		cfg := Configuration{Key: key, Enabled: true}
		platform, err := cfg.GetPlatform(nil)
		if err != nil {
			t.Fatalf("GetPlatform(%q): %s", key, err)
		}
		if platform.Key() != key {
			t.Errorf("platform for %q reports key %q", key, platform.Key())
		}
	}

	if _, err := (&Configuration{Key: "bogus"}).GetPlatform(nil); err == nil {
		t.Error("expected an error for an unknown platform key")
	}
}
