// Package platforms is an internal package providing electronic program
// guide (EPG) data from the supported streaming platforms. Every platform
// implements the same two-step contract: list channels, then list programmes
// for those channels. The quirks of each upstream (auth handshakes, paging,
// HTML scraping, timestamp encodings) stay inside its adapter.
package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charmingtv/epg/internal/httpclient"
)

var log = &logrus.Logger{
	Out: os.Stderr,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
	Hooks: make(logrus.LevelHooks),
	Level: logrus.InfoLevel,
}

// Channel describes a channel available in a platform's lineup. Identity is
// (platform, ID); the ID is platform-scoped and not globally unique.
type Channel struct {
	ID       string `json:",omitempty"`
	Name     string `json:",omitempty"`
	Platform string `json:",omitempty"`
	Logo     string `json:",omitempty"`
}

// Program is a single scheduled transmission on a channel. It references its
// channel only through ChannelID. A zero Stop means the upstream did not
// provide an end time and it must be inferred downstream.
type Program struct {
	ChannelID   string
	Title       string
	Description string
	Start       time.Time
	Stop        time.Time
}

// Platform is the capability contract shared by all adapters. Both calls are
// independently retryable, and Programs must tolerate a stale or partial
// channel list.
type Platform interface {
	Name() string
	Key() string
	Channels(ctx context.Context) ([]Channel, error)
	Programs(ctx context.Context, channels []Channel) ([]Program, error)
}

// Configuration selects and configures a single platform adapter.
type Configuration struct {
	Key     string
	Enabled bool
}

// GetPlatform returns an initialized Platform for the Configuration.
func (c *Configuration) GetPlatform(client *httpclient.Client) (Platform, error) {
	switch strings.ToLower(c.Key) {
	case "tvb":
		return newMyTVSuper(client), nil
	case "nowtv":
		return newNowTV(client), nil
	case "hami":
		return newHami(client), nil
	case "astro":
		return newAstro(client), nil
	case "rthk":
		return newRTHK(client), nil
	case "hoy":
		return newHOY(client), nil
	case "starhub":
		return newStarhub(client), nil
	case "cn":
		return newEPGPW(client), nil
	default:
		return nil, fmt.Errorf("unknown platform %q", c.Key)
	}
}

// Keys lists every supported platform key in the default priority order used
// by the merge endpoint.
func Keys() []string {
	return []string{"tvb", "nowtv", "hami", "astro", "rthk", "hoy", "starhub", "cn"}
}

// perChannelLimit bounds concurrent per-channel upstream requests so a
// platform with a large lineup does not trip upstream rate limiting.
const perChannelLimit = 4

// DefaultProgramDuration is assumed for the final programme of a channel
// when the upstream provides only start times.
const DefaultProgramDuration = 30 * time.Minute

// FillMissingStops infers a stop time for every programme that lacks one:
// the start of the next programme on the same channel, or start plus
// fallback for the final programme. Programmes must already be in start-time
// order per channel; insertion order is preserved.
func FillMissingStops(programs []Program, fallback time.Duration) {
	byChannel := make(map[string][]int)
	for i, program := range programs {
		byChannel[program.ChannelID] = append(byChannel[program.ChannelID], i)
	}

	for _, indexes := range byChannel {
		for pos, i := range indexes {
			if !programs[i].Stop.IsZero() {
				continue
			}
			if pos < len(indexes)-1 {
				programs[i].Stop = programs[indexes[pos+1]].Start
			} else {
				programs[i].Stop = programs[i].Start.Add(fallback)
			}
		}
	}
}

// fetchPerChannel runs fn for every channel with bounded concurrency and
// returns the programmes flattened in channel order. A failing channel is
// logged and skipped; only context cancellation aborts the whole fetch.
func fetchPerChannel(ctx context.Context, platform string, channels []Channel, fn func(Channel) ([]Program, error)) ([]Program, error) {
	results := make([][]Program, len(channels))
	sem := make(chan struct{}, perChannelLimit)
	wg := sync.WaitGroup{}

	for i, channel := range channels {
		if err := ctx.Err(); err != nil {
			break
		}

		wg.Add(1)
		go func(i int, channel Channel) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			programs, err := fn(channel)
			if err != nil {
				log.WithError(err).Errorf("[%s] failed to fetch programmes for channel %s", platform, channel.Name)
				return
			}
			results[i] = programs
		}(i, channel)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	flattened := make([]Program, 0)
	for _, programs := range results {
		flattened = append(flattened, programs...)
	}
	return flattened, nil
}

// episodeString renders the loosely typed episode numbers found in upstream
// JSON (numbers, numeric strings, or absent) as a plain string. Zero and
// absent values collapse to the empty string.
func episodeString(v interface{}) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		if n == "" || n == "0" {
			return ""
		}
		return n
	case float64:
		if n == 0 {
			return ""
		}
		return strconv.FormatInt(int64(n), 10)
	case json.Number:
		if n.String() == "0" {
			return ""
		}
		return n.String()
	default:
		return ""
	}
}

// jsonString coerces loosely typed JSON scalar values to a plain string.
func jsonString(v interface{}) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatInt(int64(n), 10)
	case json.Number:
		return n.String()
	default:
		return ""
	}
}

// jsonInt64 coerces loosely typed JSON numbers to an int64.
func jsonInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
