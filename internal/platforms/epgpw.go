package platforms

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/charmingtv/epg/internal/httpclient"
	"github.com/charmingtv/epg/internal/xmltv"
)

const epgPWURL = "https://epg.pw/xmltv/epg_CN.xml"

// EPGPW covers mainland Chinese channels through epg.pw, which already
// publishes a complete XMLTV document. The adapter downloads it once per
// cycle and maps it back onto the channel/programme model so the document
// goes through the same normalization as every other platform.
type EPGPW struct {
	client *httpclient.Client

	// transient, set by Channels for the duration of one cycle
	tv *xmltv.TV
}

func newEPGPW(client *httpclient.Client) *EPGPW {
	return &EPGPW{client: client}
}

// Name returns the human-readable platform name.
func (e *EPGPW) Name() string { return "epg.pw CN" }

// Key returns the platform's file-store key.
func (e *EPGPW) Key() string { return "cn" }

func (e *EPGPW) fetch(ctx context.Context) (*xmltv.TV, error) {
	body, err := e.client.GetBytes(ctx, epgPWURL)
	if err != nil {
		return nil, errors.Wrap(err, "fetching epg.pw document")
	}

	tv := &xmltv.TV{}
	if loadErr := tv.LoadXML(bytes.NewReader(body)); loadErr != nil {
		return nil, errors.Wrap(loadErr, "parsing epg.pw document")
	}
	return tv, nil
}

// Channels downloads the upstream document and lists its channels. The
// parsed document is kept for the Programs call of the same cycle.
func (e *EPGPW) Channels(ctx context.Context) ([]Channel, error) {
	tv, err := e.fetch(ctx)
	if err != nil {
		return nil, err
	}
	e.tv = tv

	channels := make([]Channel, 0, len(tv.Channels))
	for _, channel := range tv.Channels {
		name := channel.ID
		if len(channel.DisplayNames) > 0 && channel.DisplayNames[0].Value != "" {
			name = channel.DisplayNames[0].Value
		}

		logo := ""
		if len(channel.Icons) > 0 {
			logo = channel.Icons[0].Source
		}

		channels = append(channels, Channel{
			ID:       channel.ID,
			Name:     name,
			Platform: e.Key(),
			Logo:     logo,
		})
	}

	log.Infof("found %d channels from epg.pw", len(channels))
	return channels, nil
}

// Programs maps the cached document's programmes onto the model, refetching
// if Channels has not run this cycle.
func (e *EPGPW) Programs(ctx context.Context, channels []Channel) ([]Program, error) {
	tv := e.tv
	if tv == nil {
		fetched, err := e.fetch(ctx)
		if err != nil {
			return nil, err
		}
		tv = fetched
	}
	e.tv = nil

	programs := make([]Program, 0, len(tv.Programmes))
	for _, programme := range tv.Programmes {
		if programme.Start == nil || len(programme.Titles) == 0 {
			continue
		}

		stop := time.Time{}
		if programme.Stop != nil {
			stop = programme.Stop.Time
		}

		description := ""
		if len(programme.Descriptions) > 0 {
			description = programme.Descriptions[0].Value
		}

		programs = append(programs, Program{
			ChannelID:   programme.Channel,
			Title:       programme.Titles[0].Value,
			Description: description,
			Start:       programme.Start.Time,
			Stop:        stop,
		})
	}

	FillMissingStops(programs, DefaultProgramDuration)
	return programs, nil
}
