package platforms

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/charmingtv/epg/internal/epgtime"
	"github.com/charmingtv/epg/internal/httpclient"
	"github.com/charmingtv/epg/internal/textnorm"
)

const myTVSuperBaseURL = "https://content-api.mytvsuper.com"

// MyTVSuper serves Hong Kong's TVB lineup. The EPG feed provides start times
// only, so stop times are inferred from each channel's next programme.
type MyTVSuper struct {
	client *httpclient.Client
}

func newMyTVSuper(client *httpclient.Client) *MyTVSuper {
	return &MyTVSuper{client: client}
}

// Name returns the human-readable platform name.
func (m *MyTVSuper) Name() string { return "MyTV Super" }

// Key returns the platform's file-store key.
func (m *MyTVSuper) Key() string { return "tvb" }

type myTVSuperChannelList struct {
	Channels []struct {
		NameTC      string `json:"name_tc"`
		NetworkCode string `json:"network_code"`
	} `json:"channels"`
}

type myTVSuperDay struct {
	Item []struct {
		EPG []struct {
			StartDatetime     string `json:"start_datetime"`
			ProgrammeTitleTC  string `json:"programme_title_tc"`
			EpisodeSynopsisTC string `json:"episode_synopsis_tc"`
		} `json:"epg"`
	} `json:"item"`
}

func (m *MyTVSuper) headers() []httpclient.RequestOption {
	return []httpclient.RequestOption{
		httpclient.WithHeader("Origin", "https://www.mytvsuper.com"),
		httpclient.WithHeader("Referer", "https://www.mytvsuper.com/"),
	}
}

// Channels fetches the channel list. Display names are bracket-stripped, so
// annotations like "(免費)" never reach the output document.
func (m *MyTVSuper) Channels(ctx context.Context) ([]Channel, error) {
	query := url.Values{}
	query.Set("platform", "web")
	query.Set("country_code", "HK")
	query.Set("profile_class", "general")

	list := myTVSuperChannelList{}
	opts := append(m.headers(), httpclient.WithQuery(query))
	if err := m.client.GetJSON(ctx, myTVSuperBaseURL+"/v1/channel/list", &list, opts...); err != nil {
		return nil, errors.Wrap(err, "fetching MyTV Super channel list")
	}

	channels := make([]Channel, 0, len(list.Channels))
	for _, channel := range list.Channels {
		name := textnorm.RemoveBrackets(channel.NameTC)
		if name == "" {
			continue
		}
		channels = append(channels, Channel{
			ID:       channel.NetworkCode,
			Name:     name,
			Platform: m.Key(),
		})
	}

	log.Infof("found %d channels from MyTV Super", len(channels))
	return channels, nil
}

// Programs fetches an 8-day window per channel and infers stop times.
func (m *MyTVSuper) Programs(ctx context.Context, channels []Channel) ([]Program, error) {
	return fetchPerChannel(ctx, m.Key(), channels, func(channel Channel) ([]Program, error) {
		return m.channelProgrammes(ctx, channel)
	})
}

func (m *MyTVSuper) channelProgrammes(ctx context.Context, channel Channel) ([]Program, error) {
	now := time.Now().In(epgtime.Zone)

	query := url.Values{}
	query.Set("epg_platform", "web")
	query.Set("country_code", "HK")
	query.Set("network_code", channel.ID)
	query.Set("from", now.AddDate(0, 0, -1).Format("20060102"))
	query.Set("to", now.AddDate(0, 0, 7).Format("20060102"))

	days := []myTVSuperDay{}
	opts := append(m.headers(), httpclient.WithQuery(query))
	if err := m.client.GetJSON(ctx, myTVSuperBaseURL+"/v1/epg", &days, opts...); err != nil {
		return nil, errors.Wrapf(err, "fetching MyTV Super EPG for %s", channel.Name)
	}

	programs := make([]Program, 0)
	for _, day := range days {
		for _, item := range day.Item {
			for _, entry := range item.EPG {
				if entry.StartDatetime == "" {
					continue
				}
				start, parseErr := epgtime.ParseLocal(entry.StartDatetime)
				if parseErr != nil {
					log.WithError(parseErr).Warnf("[tvb] skipping programme on %s", channel.Name)
					continue
				}
				programs = append(programs, Program{
					ChannelID:   channel.ID,
					Title:       entry.ProgrammeTitleTC,
					Description: entry.EpisodeSynopsisTC,
					Start:       start,
				})
			}
		}
	}

	FillMissingStops(programs, DefaultProgramDuration)

	log.Debugf("found %d programmes for %s", len(programs), channel.Name)
	return programs, nil
}
