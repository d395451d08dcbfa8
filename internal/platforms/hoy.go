package platforms

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"strconv"

	"github.com/pkg/errors"

	"github.com/charmingtv/epg/internal/epgtime"
	"github.com/charmingtv/epg/internal/httpclient"
)

const hoyChannelURL = "https://api2.hoy.tv/api/v3/a/channel"

// HOY serves HOY TV's free-to-air lineup. The channel API returns, per
// channel, a URL to a standalone schedule XML file on a CDN; those URLs
// rotate daily, so they are captured during Channels and consumed by the
// Programs call of the same cycle.
type HOY struct {
	client *httpclient.Client

	// transient, set by Channels for the duration of one cycle
	epgURLs map[string]string
}

func newHOY(client *httpclient.Client) *HOY {
	return &HOY{client: client}
}

// Name returns the human-readable platform name.
func (h *HOY) Name() string { return "HOY TV" }

// Key returns the platform's file-store key.
func (h *HOY) Key() string { return "hoy" }

type hoyChannelList struct {
	Code int `json:"code"`
	Data []struct {
		ID   json.Number `json:"id"`
		Name struct {
			ZhHK string `json:"zh_hk"`
		} `json:"name"`
		Image string `json:"image"`
		EPG   string `json:"epg"`
	} `json:"data"`
}

// Channels lists the lineup and records each channel's schedule URL.
func (h *HOY) Channels(ctx context.Context) ([]Channel, error) {
	list := hoyChannelList{}
	if err := h.client.GetJSON(ctx, hoyChannelURL, &list); err != nil {
		return nil, errors.Wrap(err, "fetching HOY channel list")
	}
	if list.Code != 200 {
		return nil, errors.Errorf("HOY channel API returned code %d", list.Code)
	}

	h.epgURLs = make(map[string]string, len(list.Data))
	channels := make([]Channel, 0, len(list.Data))
	for _, entry := range list.Data {
		id := entry.ID.String()
		h.epgURLs[id] = entry.EPG
		channels = append(channels, Channel{
			ID:       id,
			Name:     entry.Name.ZhHK,
			Platform: h.Key(),
			Logo:     entry.Image,
		})
	}

	log.Infof("found %d channels from HOY", len(channels))
	return channels, nil
}

type hoySchedule struct {
	Channels []struct {
		Items []struct {
			Start       string `xml:"EpgStartDateTime"`
			End         string `xml:"EpgEndDateTime"`
			EpisodeInfo struct {
				ShortDescription string `xml:"EpisodeShortDescription"`
				Index            int    `xml:"EpisodeIndex"`
			} `xml:"EpisodeInfo"`
		} `xml:"EpgItem"`
	} `xml:"Channel"`
}

// Programs downloads and parses each channel's schedule XML. Entries that
// start before today's local midnight are dropped.
func (h *HOY) Programs(ctx context.Context, channels []Channel) ([]Program, error) {
	if h.epgURLs == nil {
		return nil, errors.New("HOY schedule URLs not initialised; Channels must succeed first")
	}

	today := epgtime.Today()
	programs := make([]Program, 0)

	for _, channel := range channels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		epgURL := h.epgURLs[channel.ID]
		if epgURL == "" {
			log.Warnf("[hoy] no schedule URL for channel %s", channel.Name)
			continue
		}

		body, err := h.client.GetBytes(ctx, epgURL)
		if err != nil {
			log.WithError(err).Errorf("[hoy] failed to fetch schedule for %s", channel.Name)
			continue
		}

		schedule := hoySchedule{}
		if unmarshalErr := xml.Unmarshal(body, &schedule); unmarshalErr != nil {
			log.WithError(unmarshalErr).Errorf("[hoy] failed to parse schedule for %s", channel.Name)
			continue
		}

		for _, scheduleChannel := range schedule.Channels {
			for _, item := range scheduleChannel.Items {
				start, startErr := epgtime.ParseLocal(item.Start)
				if startErr != nil {
					log.WithError(startErr).Warnf("[hoy] skipping programme on %s", channel.Name)
					continue
				}
				stop, stopErr := epgtime.ParseLocal(item.End)
				if stopErr != nil {
					log.WithError(stopErr).Warnf("[hoy] skipping programme on %s", channel.Name)
					continue
				}
				if start.Before(today) {
					continue
				}

				title := item.EpisodeInfo.ShortDescription
				if item.EpisodeInfo.Index > 0 {
					title += " 第" + strconv.Itoa(item.EpisodeInfo.Index) + "集"
				}

				programs = append(programs, Program{
					ChannelID: channel.ID,
					Title:     title,
					Start:     start,
					Stop:      stop,
				})
			}
		}
	}

	return programs, nil
}
