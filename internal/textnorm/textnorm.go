// Package textnorm cleans up programme titles and channel names coming from
// the upstream platforms.
package textnorm

import (
	"fmt"
	"regexp"
	"strings"
)

// CJK ideograph blocks: the main unified block plus extensions A through F.
var cjkRanges = [][2]rune{
	{0x4E00, 0x9FFF},
	{0x3400, 0x4DBF},
	{0x20000, 0x2A6DF},
	{0x2A700, 0x2B73F},
	{0x2B740, 0x2B81F},
	{0x2B820, 0x2CEAF},
}

// HasCJK reports whether s contains at least one CJK ideograph.
func HasCJK(s string) bool {
	for _, r := range s {
		for _, rng := range cjkRanges {
			if r >= rng[0] && r <= rng[1] {
				return true
			}
		}
	}
	return false
}

// AnnotateEpisode appends an episode-number suffix to title. Titles or
// descriptions containing CJK text get the Chinese form (第N集), everything
// else gets EpN. An empty episode number leaves the title untouched.
func AnnotateEpisode(title, description, episode string) string {
	if episode == "" {
		return title
	}
	if HasCJK(title) || HasCJK(description) {
		return fmt.Sprintf("%s 第%s集", title, episode)
	}
	return fmt.Sprintf("%s Ep%s", title, episode)
}

var bracketGroup = regexp.MustCompile(`\([^()]*\)|（[^（）]*）`)

// RemoveBrackets strips bracketed annotations such as "(HD)" or "（免費）"
// from a display name. Innermost groups are removed repeatedly until none
// remain, so nested brackets collapse completely.
func RemoveBrackets(s string) string {
	for {
		stripped := bracketGroup.ReplaceAllString(s, "")
		if stripped == s {
			return strings.TrimSpace(stripped)
		}
		s = stripped
	}
}
