// Package merge combines several platforms' serialized XMLTV documents into
// one, deduplicating channels across platforms.
package merge

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charmingtv/epg/internal/xmltv"
)

// ErrNoData is returned when no channel survives across all inputs. The HTTP
// boundary maps it to a 404.
var ErrNoData = errors.New("no EPG data available")

var log = &logrus.Logger{
	Out: os.Stderr,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
	Hooks: make(logrus.LevelHooks),
	Level: logrus.InfoLevel,
}

// Document is one platform's serialized XMLTV content. Order matters: the
// caller-supplied sequence is the deduplication priority.
type Document struct {
	Platform string
	Content  []byte
}

// Options control the merged document's metadata and deduplication keying.
type Options struct {
	GeneratorInfoName string
	GeneratorInfoURL  string

	// StrictKeys scopes channel deduplication to (platform, id) instead of
	// the XMLTV id alone, so same-named channels on different platforms are
	// both kept. Off by default for XMLTV consumer compatibility.
	StrictKeys bool
}

// Result carries the merged document and its totals.
type Result struct {
	XML        []byte
	Platforms  []string
	Channels   int
	Programmes int
}

// Merge walks the documents in order. The first platform to claim a channel
// id wins; its channel element and every programme addressed to that id are
// copied over verbatim, in document order. Missing or unparsable documents
// are skipped with a warning.
func Merge(documents []Document, opts Options) (*Result, error) {
	merged := &xmltv.TV{
		GeneratorInfoName: opts.GeneratorInfoName,
		GeneratorInfoURL:  opts.GeneratorInfoURL,
	}

	seen := make(map[string]struct{})
	result := &Result{}

	for _, document := range documents {
		if len(document.Content) == 0 {
			log.Warnf("no EPG data found for platform: %s", document.Platform)
			continue
		}

		tv := &xmltv.TV{}
		if err := tv.LoadXML(bytes.NewReader(document.Content)); err != nil {
			log.WithError(err).Errorf("failed to parse XML for platform %s", document.Platform)
			continue
		}

		// One pass over the programmes up front; scanning the whole document
		// per channel would be quadratic.
		programmesByChannel := make(map[string][]xmltv.Programme)
		for _, programme := range tv.Programmes {
			programmesByChannel[programme.Channel] = append(programmesByChannel[programme.Channel], programme)
		}

		platformChannels := 0
		platformProgrammes := 0

		for _, channel := range tv.Channels {
			if channel.ID == "" {
				continue
			}

			key := channel.ID
			if opts.StrictKeys {
				key = document.Platform + "/" + channel.ID
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			merged.Channels = append(merged.Channels, channel)
			platformChannels++

			programmes := programmesByChannel[channel.ID]
			merged.Programmes = append(merged.Programmes, programmes...)
			platformProgrammes += len(programmes)
		}

		result.Channels += platformChannels
		result.Programmes += platformProgrammes
		result.Platforms = append(result.Platforms, document.Platform)

		log.Debugf("merged %d channels and %d programmes from %s", platformChannels, platformProgrammes, document.Platform)
	}

	if result.Channels == 0 {
		return nil, ErrNoData
	}

	xmlBytes, marshalErr := merged.Marshal()
	if marshalErr != nil {
		return nil, errors.Wrap(marshalErr, "marshalling merged document")
	}
	result.XML = xmlBytes

	return result, nil
}
