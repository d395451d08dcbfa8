package platforms

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/charmingtv/epg/internal/epgtime"
)

func rthkFixture(yesterday, today string) []byte {
	return []byte(fmt.Sprintf(`
<html><body>
  <div class="slideBlock" date="%s">
    <div class="shdBlock">
      <div class="shTimeBlock">
        <p class="timeDis">09:00</p><p class="timeDis">:</p><p class="timeDis">10:00</p>
      </div>
      <div class="shTitle"><a>stale programme</a></div>
    </div>
  </div>
  <div class="slideBlock" date="%s">
    <div class="shdBlock">
      <div class="shTimeBlock">
        <p class="timeDis">08:00</p><p class="timeDis">:</p><p class="timeDis">09:30</p>
      </div>
      <div class="shTitle"><a>晨早新聞天地</a></div>
      <div class="shSubTitle"><a>足本播放</a></div>
    </div>
    <div class="shdBlock">
      <div class="shTimeBlock">
        <p class="timeDis">23:30</p><p class="timeDis">:</p><p class="timeDis">00:15</p>
      </div>
      <div class="shTitle"><a>深宵節目</a></div>
    </div>
    <div class="shdBlock">
      <div class="shTimeBlock">
        <p class="timeDis">12:00</p>
      </div>
      <div class="shTitle"><a>無結束時間</a></div>
    </div>
  </div>
</body></html>`, yesterday, today))
}

func TestParseRTHKTimetable(t *testing.T) {
	now := time.Now()
	today := epgtime.DateString(now)
	yesterday := epgtime.DateString(now.AddDate(0, 0, -1))

	programs, err := parseRTHKTimetable(rthkFixture(yesterday, today), "tv31")
	if err != nil {
		t.Fatal(err)
	}

	if len(programs) != 3 {
		t.Fatalf("expected 3 programmes (stale day dropped), got %d", len(programs))
	}

	day := epgtime.Midnight(now)

	first := programs[0]
	if first.Title != "晨早新聞天地" || first.Description != "足本播放" {
		t.Errorf("unexpected first programme: %+v", first)
	}
	if !first.Start.Equal(day.Add(8 * time.Hour)) {
		t.Errorf("expected first start at 08:00, got %s", first.Start)
	}
	if !first.Stop.Equal(day.Add(9*time.Hour + 30*time.Minute)) {
		t.Errorf("expected first stop at 09:30, got %s", first.Stop)
	}
	if first.ChannelID != "tv31" {
		t.Errorf("expected channel tv31, got %q", first.ChannelID)
	}

	overnight := programs[1]
	if !overnight.Stop.Equal(day.Add(24*time.Hour + 15*time.Minute)) {
		t.Errorf("expected overnight stop past midnight, got %s", overnight.Stop)
	}

	noEnd := programs[2]
	if !noEnd.Stop.Equal(noEnd.Start.Add(DefaultProgramDuration)) {
		t.Errorf("expected default duration for missing end time, got %s", noEnd.Stop)
	}
}

func TestRTHKChannelsAreFixed(t *testing.T) {
	r := newRTHK(nil)
	channels, err := r.Channels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(channels) != 5 {
		t.Fatalf("expected 5 channels, got %d", len(channels))
	}
	if channels[0].ID != "tv31" || channels[0].Name != "RTHK31" {
		t.Errorf("unexpected first channel: %+v", channels[0])
	}

	// callers must be free to mutate the returned slice
	channels[0].Name = "mutated"
	again, _ := r.Channels(context.Background())
	if again[0].Name != "RTHK31" {
		t.Error("channel list mutation leaked into the package fixture")
	}
}
