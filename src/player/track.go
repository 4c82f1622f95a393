package player

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DisplayName decodes a percent-encoded track identifier into a name fit for
// humans.
//
// Identifiers that are not valid percent-encoding are shown as they are,
// except for encoded spaces.
func DisplayName(track string) string {
	track = strings.ReplaceAll(track, "%20", " ")
	name, err := url.PathUnescape(track)
	if err != nil {
		return track
	}
	return norm.NFC.String(name)
}
