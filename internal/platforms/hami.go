package platforms

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/charmingtv/epg/internal/epgtime"
	"github.com/charmingtv/epg/internal/httpclient"
)

const (
	hamiLayoutURL = "https://apl-hamivideo.cdn.hinet.net/HamiVideo/getUILayoutById.php"
	hamiEPGURL    = "https://apl-hamivideo.cdn.hinet.net/HamiVideo/getEpgByContentIdAndDate.php"

	// The API only answers the app's own user agent.
	hamiUserAgent = "HamiVideo/7.12.806(Android 11;GM1910) OKHTTP/3.12.2"

	hamiHorizonDays = 7
	hamiMaxRetries  = 5
	hamiRetryDelay  = 30 * time.Second
)

// Hami serves Chunghwa Telecom's Hami Video lineup. The upstream is flaky,
// so each channel gets a coarse retry loop on top of the transport retries;
// a channel that still fails is skipped rather than aborting the run.
type Hami struct {
	client *httpclient.Client
}

func newHami(client *httpclient.Client) *Hami {
	return &Hami{client: client}
}

// Name returns the human-readable platform name.
func (h *Hami) Name() string { return "Hami" }

// Key returns the platform's file-store key.
func (h *Hami) Key() string { return "hami" }

func (h *Hami) headers() []httpclient.RequestOption {
	return []httpclient.RequestOption{
		httpclient.WithHeader("User-Agent", hamiUserAgent),
		httpclient.WithHeader("X-ClientSupport-UserProfile", "1"),
	}
}

type hamiLayout struct {
	UIInfo []struct {
		Title    string `json:"title"`
		Elements []struct {
			Title     string `json:"title"`
			ContentPk string `json:"contentPk"`
			ProgramInfo []struct {
				ProgramName string `json:"programName"`
				HintSE      string `json:"hintSE"`
			} `json:"programInfo"`
		} `json:"elements"`
	} `json:"UIInfo"`
}

// Channels fetches the UI layout and extracts the channel directory section.
func (h *Hami) Channels(ctx context.Context) ([]Channel, error) {
	query := url.Values{}
	query.Set("appVersion", "7.12.806")
	query.Set("deviceType", "1")
	query.Set("appOS", "android")
	query.Set("menuId", "162")

	layout := hamiLayout{}
	opts := append(h.headers(), httpclient.WithQuery(query))
	if err := h.client.GetJSON(ctx, hamiLayoutURL, &layout, opts...); err != nil {
		return nil, errors.Wrap(err, "fetching Hami UI layout")
	}

	channels := make([]Channel, 0)
	for _, info := range layout.UIInfo {
		// The layout carries many sections; only the channel directory
		// (頻道一覽) lists the lineup.
		if info.Title != "頻道一覽" {
			continue
		}
		for _, element := range info.Elements {
			channels = append(channels, Channel{
				ID:       element.ContentPk,
				Name:     element.Title,
				Platform: h.Key(),
			})
		}
		break
	}

	log.Infof("found %d channels from Hami", len(channels))
	return channels, nil
}

// Programs fetches channels sequentially with the coarse retry loop.
func (h *Hami) Programs(ctx context.Context, channels []Channel) ([]Program, error) {
	programs := make([]Program, 0)
	for _, channel := range channels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		channelPrograms, err := h.channelProgrammesWithRetry(ctx, channel)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).Errorf("[hami] giving up on channel %s", channel.Name)
			continue
		}
		programs = append(programs, channelPrograms...)
	}
	return programs, nil
}

func (h *Hami) channelProgrammesWithRetry(ctx context.Context, channel Channel) ([]Program, error) {
	var lastErr error
	for attempt := 1; attempt <= hamiMaxRetries; attempt++ {
		programs, err := h.channelProgrammes(ctx, channel)
		if err == nil {
			return programs, nil
		}
		lastErr = err

		log.WithError(err).Errorf("[hami] error requesting EPG for %s", channel.Name)
		if attempt == hamiMaxRetries {
			break
		}

		log.Infof("[hami] retry %d/%d for %s after %s", attempt, hamiMaxRetries, channel.Name, hamiRetryDelay)
		select {
		case <-time.After(hamiRetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (h *Hami) channelProgrammes(ctx context.Context, channel Channel) ([]Program, error) {
	log.Infof("[hami] fetching EPG: %s, %s", channel.ID, channel.Name)

	programs := make([]Program, 0)
	now := time.Now().In(epgtime.Zone)

	for day := 0; day < hamiHorizonDays; day++ {
		query := url.Values{}
		query.Set("deviceType", "1")
		query.Set("Date", now.AddDate(0, 0, day).Format("2006-01-02"))
		query.Set("contentPk", channel.ID)

		layout := hamiLayout{}
		opts := append(h.headers(), httpclient.WithQuery(query))
		if err := h.client.GetJSON(ctx, hamiEPGURL, &layout, opts...); err != nil {
			return nil, errors.Wrapf(err, "fetching Hami EPG for %s", channel.Name)
		}

		if len(layout.UIInfo) == 0 {
			continue
		}

		for _, element := range layout.UIInfo[0].Elements {
			if len(element.ProgramInfo) == 0 {
				continue
			}
			info := element.ProgramInfo[0]

			start, stop, parseErr := parseHamiTimeRange(info.HintSE)
			if parseErr != nil {
				log.WithError(parseErr).Warnf("[hami] skipping programme on %s", channel.Name)
				continue
			}

			programs = append(programs, Program{
				ChannelID: channel.ID,
				Title:     info.ProgramName,
				Start:     start,
				Stop:      stop,
			})
		}
	}

	return programs, nil
}

// parseHamiTimeRange splits the "start~end" local timestamp pair the EPG
// endpoint uses for programme boundaries.
func parseHamiTimeRange(timeRange string) (time.Time, time.Time, error) {
	parts := strings.SplitN(timeRange, "~", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, errors.Errorf("malformed time range %q", timeRange)
	}

	start, err := epgtime.ParseLocal(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	stop, err := epgtime.ParseLocal(strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, stop, nil
}
