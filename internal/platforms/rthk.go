package platforms

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/charmingtv/epg/internal/epgtime"
	"github.com/charmingtv/epg/internal/httpclient"

	"golang.org/x/net/html"
)

const rthkTimetableURL = "https://www.rthk.hk/timetable/"

// rthkChannels is the full RTHK lineup. The broadcaster publishes a fixed
// set of five channels, each with its own timetable page.
var rthkChannels = []Channel{
	{ID: "tv31", Name: "RTHK31", Platform: "rthk"},
	{ID: "tv32", Name: "RTHK32", Platform: "rthk"},
	{ID: "tv33", Name: "RTHK33", Platform: "rthk"},
	{ID: "tv34", Name: "RTHK34", Platform: "rthk"},
	{ID: "tv35", Name: "RTHK35", Platform: "rthk"},
}

// RTHK scrapes the public timetable pages of Radio Television Hong Kong.
// There is no API; the schedule lives in dated slide blocks of the HTML.
type RTHK struct {
	client *httpclient.Client
}

func newRTHK(client *httpclient.Client) *RTHK {
	return &RTHK{client: client}
}

// Name returns the human-readable platform name.
func (r *RTHK) Name() string { return "RTHK" }

// Key returns the platform's file-store key.
func (r *RTHK) Key() string { return "rthk" }

// Channels returns the fixed lineup.
func (r *RTHK) Channels(ctx context.Context) ([]Channel, error) {
	channels := make([]Channel, len(rthkChannels))
	copy(channels, rthkChannels)
	return channels, nil
}

// Programs scrapes each channel's timetable page. A channel that fails to
// fetch or parse is logged and skipped.
func (r *RTHK) Programs(ctx context.Context, channels []Channel) ([]Program, error) {
	programs := make([]Program, 0)

	for _, channel := range channels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := r.client.GetBytes(ctx, rthkTimetableURL+channel.ID)
		if err != nil {
			log.WithError(err).Errorf("[rthk] failed to fetch timetable for %s", channel.Name)
			continue
		}

		channelPrograms, parseErr := parseRTHKTimetable(body, channel.ID)
		if parseErr != nil {
			log.WithError(parseErr).Errorf("[rthk] failed to parse timetable for %s", channel.Name)
			continue
		}
		programs = append(programs, channelPrograms...)
	}

	return programs, nil
}

// parseRTHKTimetable extracts programmes from a timetable page. Each day is
// a div.slideBlock carrying the date in its "date" attribute as YYYYMMDD;
// past days are present in the markup and must be dropped.
func parseRTHKTimetable(body []byte, channelID string) ([]Program, error) {
	root, err := parseHTML(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "parsing timetable HTML")
	}

	today := epgtime.DateString(epgtime.Today())
	programs := make([]Program, 0)

	for _, block := range findAllByClass(root, "div", "slideBlock") {
		date := attrValue(block, "date")
		if date == "" || date < today {
			continue
		}

		day, dayErr := epgtime.ParseDate(date)
		if dayErr != nil {
			log.WithError(dayErr).Warnf("[rthk] skipping day block with bad date %q", date)
			continue
		}

		for _, entry := range findAllByClass(block, "div", "shdBlock") {
			program, ok := parseRTHKEntry(entry, day, channelID)
			if !ok {
				continue
			}
			programs = append(programs, program)
		}
	}

	return programs, nil
}

// parseRTHKEntry reads one div.shdBlock. The time block renders several
// p.timeDis elements; index 0 holds the start clock and index 2, when
// present, the end clock. A missing end clock means a 30-minute default.
func parseRTHKEntry(entry *html.Node, day time.Time, channelID string) (Program, bool) {
	timeBlock := findByClass(entry, "div", "shTimeBlock")
	if timeBlock == nil {
		return Program{}, false
	}
	clocks := findAllByClass(timeBlock, "p", "timeDis")
	if len(clocks) == 0 {
		return Program{}, false
	}

	start, startErr := epgtime.ClockOn(day, strings.TrimSpace(nodeText(clocks[0])))
	if startErr != nil {
		log.WithError(startErr).Warnf("[rthk] skipping programme with bad start time on %s", channelID)
		return Program{}, false
	}

	stop := start.Add(DefaultProgramDuration)
	if len(clocks) > 2 {
		end, endErr := epgtime.ClockOn(day, strings.TrimSpace(nodeText(clocks[2])))
		if endErr != nil {
			log.WithError(endErr).Warnf("[rthk] skipping programme with bad end time on %s", channelID)
			return Program{}, false
		}
		stop = epgtime.ResolveRollover(start, end)
	}

	titleBlock := findByClass(entry, "div", "shTitle")
	if titleBlock == nil {
		return Program{}, false
	}
	titleLink := findByTag(titleBlock, "a")
	if titleLink == nil {
		return Program{}, false
	}
	title := strings.TrimSpace(nodeText(titleLink))

	description := ""
	if subTitleBlock := findByClass(entry, "div", "shSubTitle"); subTitleBlock != nil {
		if subTitleLink := findByTag(subTitleBlock, "a"); subTitleLink != nil {
			description = strings.TrimSpace(nodeText(subTitleLink))
		}
	}

	return Program{
		ChannelID:   channelID,
		Title:       title,
		Description: description,
		Start:       start,
		Stop:        stop,
	}, true
}
