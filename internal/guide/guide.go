// Package guide turns a platform's fetched channels and programmes into a
// serialized XMLTV document.
package guide

import (
	"regexp"

	"github.com/charmingtv/epg/internal/epgtime"
	"github.com/charmingtv/epg/internal/platforms"
	"github.com/charmingtv/epg/internal/xmltv"
)

// GeneratorInfoName is stamped on every per-platform document.
const GeneratorInfoName = "Charming"

// Aggregate merges a platform's channel and programme lists into a single
// XMLTV document. Channels keep their fetch order and are emitted verbatim,
// duplicates included. Programmes are routed to channels through a first-win
// id-to-name map; a programme referencing an unknown channel id is
// unroutable and silently dropped.
//
// The XMLTV channel identifier is the display name itself, not the upstream
// id. Channels sharing a display name therefore coalesce in downstream
// consumers; that quirk is deliberate and kept for compatibility.
func Aggregate(channels []platforms.Channel, programs []platforms.Program) *xmltv.TV {
	tv := &xmltv.TV{GeneratorInfoName: GeneratorInfoName}

	names := make(map[string]string, len(channels))
	for _, channel := range channels {
		if _, ok := names[channel.ID]; !ok {
			names[channel.ID] = channel.Name
		}

		out := xmltv.Channel{
			ID: channel.Name,
			DisplayNames: []xmltv.CommonElement{
				{Lang: "zh", Value: channel.Name},
			},
		}
		if channel.Logo != "" {
			out.Icons = []xmltv.Icon{{Source: channel.Logo}}
		}
		tv.Channels = append(tv.Channels, out)
	}

	for _, program := range programs {
		name, ok := names[program.ChannelID]
		if !ok {
			continue
		}

		start := xmltv.Time{Time: program.Start.In(epgtime.Zone)}
		stop := xmltv.Time{Time: program.Stop.In(epgtime.Zone)}
		out := xmltv.Programme{
			Channel: name,
			Start:   &start,
			Stop:    &stop,
			Titles: []xmltv.CommonElement{
				{Lang: "zh", Value: program.Title},
			},
		}
		if program.Description != "" {
			out.Descriptions = []xmltv.CommonElement{
				{Lang: "zh", Value: CleanInvalidXML(program.Description)},
			}
		}
		tv.Programmes = append(tv.Programmes, out)
	}

	return tv
}

// Serialize renders the aggregated document as XMLTV bytes.
func Serialize(tv *xmltv.TV) ([]byte, error) {
	return tv.Marshal()
}

// Characters outside tab, LF, CR, and the BMP printable range (surrogates
// excluded) are not representable in XML 1.0.
var invalidXMLChars = regexp.MustCompile(`[^\x{09}\x{0A}\x{0D}\x{20}-\x{D7FF}\x{E000}-\x{FFFD}]`)

// CleanInvalidXML strips characters that the XML 1.0 character model forbids.
func CleanInvalidXML(text string) string {
	return invalidXMLChars.ReplaceAllString(text, "")
}
