package platforms

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/charmingtv/epg/internal/epgtime"
	"github.com/charmingtv/epg/internal/httpclient"
	"github.com/charmingtv/epg/internal/textnorm"
)

const (
	astroBaseURL     = "https://sg-sg-sg.astro.com.my:9443"
	astroAuthURL     = astroBaseURL + "/oauth2/authorize"
	astroChannelsURL = astroBaseURL + "/ctap/r1.6.0/shared/channels"
	astroGridURL     = astroBaseURL + "/ctap/r1.6.0/shared/grid"

	astroUserAgent   = "Mozilla/5.0"
	astroReferer     = "https://astrogo.astro.com.my/"
	astroClientToken = "v:1!r:80800!ur:GUEST_REGION!community:Malaysia%20Live!t:k!dt:PC!f:Astro_unmanaged!pd:CHROME-FF!pt:Adults"

	astroHorizonDays = 7
)

// Astro serves Astro Go's Malaysian lineup. Access is gated on a guest
// token that the authorize endpoint hands back inside the fragment of a
// redirect Location header, so the handshake must not follow redirects.
// The token and grid shape are scoped to a single fetch cycle.
type Astro struct {
	client *httpclient.Client

	// transient, set by Channels for the duration of one cycle
	token        string
	channelCount int
	firstID      string
}

func newAstro(client *httpclient.Client) *Astro {
	return &Astro{client: client}
}

// Name returns the human-readable platform name.
func (a *Astro) Name() string { return "Astro Go" }

// Key returns the platform's file-store key.
func (a *Astro) Key() string { return "astro" }

// fetchToken performs the guest-login handshake. The access token rides in
// the URL fragment of the Location header, not the response body.
func (a *Astro) fetchToken(ctx context.Context) (string, error) {
	query := url.Values{}
	query.Set("client_id", "browser")
	query.Set("state", "guestUserLogin")
	query.Set("response_type", "token")
	query.Set("redirect_uri", "https://astrogo.astro.com.my")
	query.Set("scope", "urn:synamedia:vcs:ovp:guest-user")
	query.Set("prompt", "none")

	resp, err := a.client.Get(ctx, astroAuthURL,
		httpclient.WithQuery(query),
		httpclient.WithHeader("User-Agent", astroUserAgent),
		httpclient.WithHeader("Referer", astroReferer),
		httpclient.NoRedirect(),
	)
	if err != nil {
		return "", errors.Wrap(err, "Astro authorize request failed")
	}
	resp.Body.Close()

	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.New("Astro authorize response carried no redirect Location")
	}

	token := extractFragmentParams(location)["access_token"]
	if token == "" {
		return "", errors.Errorf("no access_token in authorize redirect: %s", location)
	}
	return token, nil
}

// extractFragmentParams decodes the key=value pairs in a URL's fragment.
func extractFragmentParams(rawURL string) map[string]string {
	params := make(map[string]string)
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return params
	}
	for _, pair := range strings.Split(parsed.Fragment, "&") {
		key, value, found := strings.Cut(pair, "=")
		if found {
			params[key] = value
		}
	}
	return params
}

func (a *Astro) authedOptions(query url.Values) []httpclient.RequestOption {
	return []httpclient.RequestOption{
		httpclient.WithQuery(query),
		httpclient.WithHeader("User-Agent", astroUserAgent),
		httpclient.WithHeader("Referer", astroReferer),
		httpclient.WithHeader("Authorization", "Bearer "+a.token),
		httpclient.WithHeader("Accept-Language", "zh"),
	}
}

type astroChannelList struct {
	Count    int `json:"count"`
	Channels []struct {
		ID    json.Number `json:"id"`
		Name  string      `json:"name"`
		Media []struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"media"`
	} `json:"channels"`
}

// Channels performs the token handshake and then lists the full grid. A
// missing token fails the platform's whole cycle; there are no channels
// without one.
func (a *Astro) Channels(ctx context.Context) ([]Channel, error) {
	token, tokenErr := a.fetchToken(ctx)
	if tokenErr != nil {
		return nil, tokenErr
	}
	a.token = token

	query := url.Values{}
	query.Set("clientToken", astroClientToken)

	list := astroChannelList{}
	if err := a.client.GetJSON(ctx, astroChannelsURL, &list, a.authedOptions(query)...); err != nil {
		return nil, errors.Wrap(err, "fetching Astro channel list")
	}
	if len(list.Channels) == 0 {
		return nil, errors.New("Astro channel list is empty")
	}

	a.channelCount = list.Count
	a.firstID = list.Channels[0].ID.String()

	channels := make([]Channel, 0, len(list.Channels))
	for _, channel := range list.Channels {
		logo := ""
		for _, media := range channel.Media {
			if media.Type == "regular" {
				logo = media.URL
			}
		}
		if logo == "" && len(channel.Media) > 0 {
			logo = channel.Media[0].URL
		}

		channels = append(channels, Channel{
			ID:       channel.ID.String(),
			Name:     strings.TrimSpace(strings.ReplaceAll(channel.Name, " HD", "")),
			Platform: a.Key(),
			Logo:     logo,
		})
	}

	log.Infof("found %d channels from Astro", len(channels))
	return channels, nil
}

type astroGrid struct {
	Channels []struct {
		ID       json.Number `json:"id"`
		Schedule []struct {
			StartDateTime string      `json:"startDateTime"`
			Duration      float64     `json:"duration"`
			Title         string      `json:"title"`
			Synopsis      string      `json:"synopsis"`
			EpisodeNumber interface{} `json:"episodeNumber"`
		} `json:"schedule"`
	} `json:"channels"`
}

// Programs issues one grid request per day over the horizon, merging the
// per-day schedules by channel id before flattening.
func (a *Astro) Programs(ctx context.Context, channels []Channel) ([]Program, error) {
	if a.token == "" {
		return nil, errors.New("Astro token not initialised; Channels must succeed first")
	}

	merged := make(map[string][]Program)
	order := make([]string, 0)

	for day := 0; day < astroHorizonDays; day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Infof("[astro] fetching day %d", day)

		windowStart, hours := epgtime.DayWindow(time.Now(), day)

		query := url.Values{}
		query.Set("startDateTime", windowStart.UTC().Format("2006-01-02T15:04:05.000Z"))
		query.Set("channelId", a.firstID)
		query.Set("limit", strconv.Itoa(a.channelCount))
		query.Set("genreId", "")
		query.Set("isPlayable", "true")
		query.Set("duration", strconv.Itoa(hours))
		query.Set("clientToken", astroClientToken)

		grid := astroGrid{}
		if err := a.client.GetJSON(ctx, astroGridURL, &grid, a.authedOptions(query)...); err != nil {
			log.WithError(err).Errorf("[astro] failed to fetch grid for day %d", day)
			continue
		}

		for _, channel := range grid.Channels {
			id := channel.ID.String()
			if _, ok := merged[id]; !ok {
				order = append(order, id)
			}

			for _, entry := range channel.Schedule {
				if entry.StartDateTime == "" || entry.Duration == 0 {
					continue
				}
				start, parseErr := epgtime.ParseISOUTC(entry.StartDateTime)
				if parseErr != nil {
					log.WithError(parseErr).Warnf("[astro] skipping programme on channel %s", id)
					continue
				}

				title := textnorm.AnnotateEpisode(entry.Title, entry.Synopsis, episodeString(entry.EpisodeNumber))
				merged[id] = append(merged[id], Program{
					ChannelID:   id,
					Title:       title,
					Description: entry.Synopsis,
					Start:       start,
					Stop:        start.Add(time.Duration(entry.Duration) * time.Second),
				})
			}
		}
	}

	programs := make([]Program, 0)
	for _, id := range order {
		programs = append(programs, merged[id]...)
	}

	return programs, nil
}
