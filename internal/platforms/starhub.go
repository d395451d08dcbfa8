package platforms

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/charmingtv/epg/internal/epgtime"
	"github.com/charmingtv/epg/internal/httpclient"
	"github.com/charmingtv/epg/internal/textnorm"
)

const (
	starhubBaseURL      = "https://waf-starhub-metadata-api-p001.ifs.vubiquity.com/v3.1/epg"
	starhubChannelsURL  = starhubBaseURL + "/channels"
	starhubSchedulesURL = starhubBaseURL + "/schedules"

	starhubHorizonDays = 6
)

// Starhub serves StarHub TV+'s Singapore lineup through Vubiquity's metadata
// API. Channels and schedules share one resource envelope distinguished by a
// metatype field, and identifiers arrive as either numbers or strings.
type Starhub struct {
	client *httpclient.Client
}

func newStarhub(client *httpclient.Client) *Starhub {
	return &Starhub{client: client}
}

// Name returns the human-readable platform name.
func (s *Starhub) Name() string { return "StarHub TV+" }

// Key returns the platform's file-store key.
func (s *Starhub) Key() string { return "starhub" }

func starhubBaseQuery() url.Values {
	query := url.Values{}
	query.Set("locale", "zh")
	query.Set("locale_default", "en_US")
	query.Set("device", "1")
	query.Set("page", "1")
	return query
}

type starhubResources struct {
	Resources []struct {
		Metatype      string      `json:"metatype"`
		ID            interface{} `json:"id"`
		Title         string      `json:"title"`
		Description   string      `json:"description"`
		EpisodeNumber interface{} `json:"episode_number"`
		Start         interface{} `json:"start"`
		End           interface{} `json:"end"`
	} `json:"resources"`
}

// Channels lists the lineup, keeping only resources with the Channel
// metatype.
func (s *Starhub) Channels(ctx context.Context) ([]Channel, error) {
	query := starhubBaseQuery()
	query.Set("limit", "150")

	list := starhubResources{}
	if err := s.client.GetJSON(ctx, starhubChannelsURL, &list, httpclient.WithQuery(query)); err != nil {
		return nil, errors.Wrap(err, "fetching StarHub channel list")
	}

	channels := make([]Channel, 0, len(list.Resources))
	for _, resource := range list.Resources {
		if resource.Metatype != "Channel" {
			continue
		}
		channels = append(channels, Channel{
			ID:       jsonString(resource.ID),
			Name:     resource.Title,
			Platform: s.Key(),
		})
	}

	log.Infof("found %d channels from StarHub", len(channels))
	return channels, nil
}

// Programs fetches each channel's schedule for a window from today's local
// midnight to the end of the sixth day out, expressed as epoch seconds.
func (s *Starhub) Programs(ctx context.Context, channels []Channel) ([]Program, error) {
	windowStart := epgtime.Today()
	windowEnd := windowStart.AddDate(0, 0, starhubHorizonDays).
		Add(23*time.Hour + 59*time.Minute + 59*time.Second)

	return fetchPerChannel(ctx, s.Key(), channels, func(channel Channel) ([]Program, error) {
		query := starhubBaseQuery()
		query.Set("limit", "500")
		query.Set("in_channel_id", channel.ID)
		query.Set("gt_end", strconv.FormatInt(windowStart.Unix(), 10))
		query.Set("lt_start", strconv.FormatInt(windowEnd.Unix(), 10))

		list := starhubResources{}
		if err := s.client.GetJSON(ctx, starhubSchedulesURL, &list, httpclient.WithQuery(query)); err != nil {
			return nil, err
		}

		programs := make([]Program, 0, len(list.Resources))
		for _, resource := range list.Resources {
			if resource.Metatype != "Schedule" {
				continue
			}

			start, startOK := jsonInt64(resource.Start)
			end, endOK := jsonInt64(resource.End)
			if !startOK || !endOK {
				log.Warnf("[starhub] skipping programme with bad times on %s", channel.Name)
				continue
			}

			title := textnorm.AnnotateEpisode(resource.Title, resource.Description, episodeString(resource.EpisodeNumber))
			programs = append(programs, Program{
				ChannelID:   channel.ID,
				Title:       title,
				Description: resource.Description,
				Start:       epgtime.FromUnix(start),
				Stop:        epgtime.FromUnix(end),
			})
		}
		return programs, nil
	})
}
