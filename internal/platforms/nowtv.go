package platforms

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/charmingtv/epg/internal/epgtime"
	"github.com/charmingtv/epg/internal/httpclient"
)

const (
	nowTVChannelsURL = "https://nowplayer.now.com/channels"
	nowTVGuideURL    = "https://nowplayer.now.com/tvguide/epglist"
	nowTVHorizonDays = 7
)

// NowTV scrapes the channel directory from HTML and pulls the guide through
// the player's per-day JSON endpoint. Timestamps arrive as epoch millis.
type NowTV struct {
	client *httpclient.Client
}

func newNowTV(client *httpclient.Client) *NowTV {
	return &NowTV{client: client}
}

// Name returns the human-readable platform name.
func (n *NowTV) Name() string { return "NowTV" }

// Key returns the platform's file-store key.
func (n *NowTV) Key() string { return "nowtv" }

// Channels scrapes the channel directory page.
func (n *NowTV) Channels(ctx context.Context) ([]Channel, error) {
	resp, err := n.client.Get(ctx, nowTVChannelsURL,
		httpclient.WithHeader("Referer", nowTVChannelsURL),
		httpclient.WithHeader("Cookie", "LANG=zh"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "fetching NowTV channel directory")
	}
	defer resp.Body.Close()

	root, parseErr := parseHTML(resp.Body)
	if parseErr != nil {
		return nil, errors.Wrap(parseErr, "parsing NowTV channel directory")
	}

	channels := parseNowTVChannels(root)
	log.Infof("found %d channels from NowTV", len(channels))
	return channels, nil
}

// parseNowTVChannels extracts channels from the directory markup: one
// product-item block per channel, the channel number rendered as "CH331".
func parseNowTVChannels(root *html.Node) []Channel {
	channels := make([]Channel, 0)
	for _, item := range findAllByClass(root, "div", "product-item") {
		number := strings.TrimSpace(strings.ReplaceAll(nodeText(findByClass(item, "p", "channel")), "CH", ""))
		name := nodeText(findByClass(item, "p", "img-name"))
		if number == "" || name == "" {
			continue
		}

		logo := ""
		if img := findByTag(item, "img"); img != nil {
			logo = attrValue(img, "src")
		}

		channels = append(channels, Channel{
			ID:       number,
			Name:     name,
			Platform: "nowtv",
			Logo:     logo,
		})
	}
	return channels
}

// nowTVEntry is one programme in the epglist response. The response is a
// list of per-channel lists aligned with the requested channel order.
type nowTVEntry struct {
	Name  string `json:"name"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

// Programs fetches one request per day for the 7-day horizon. A failed day
// is skipped, not fatal.
func (n *NowTV) Programs(ctx context.Context, channels []Channel) ([]Program, error) {
	programs := make([]Program, 0)

	for day := 1; day <= nowTVHorizonDays; day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		query := url.Values{}
		query.Set("day", strconv.Itoa(day))
		for _, channel := range channels {
			query.Add("channelIdList[]", channel.ID)
		}

		perChannel := [][]nowTVEntry{}
		err := n.client.GetJSON(ctx, nowTVGuideURL, &perChannel,
			httpclient.WithQuery(query),
			httpclient.WithHeader("Accept", "text/plain, */*; q=0.01"),
			httpclient.WithHeader("Referer", "https://nowplayer.now.com/tvguide"),
			httpclient.WithHeader("X-Requested-With", "XMLHttpRequest"),
			httpclient.WithHeader("Cookie", "LANG=zh"),
		)
		if err != nil {
			log.WithError(err).Errorf("[nowtv] failed to fetch guide for day %d", day)
			continue
		}

		for i, entries := range perChannel {
			if i >= len(channels) {
				break
			}
			for _, entry := range entries {
				if entry.Start == 0 || entry.End == 0 {
					continue
				}
				programs = append(programs, Program{
					ChannelID: channels[i].ID,
					Title:     entry.Name,
					Start:     epgtime.FromUnixMilli(entry.Start),
					Stop:      epgtime.FromUnixMilli(entry.End),
				})
			}
		}
	}

	return programs, nil
}
