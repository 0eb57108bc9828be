package share

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const Hashtag = "#HegGeo"

var nonDigits = regexp.MustCompile(`\D`)

func MapsLink(lat, lon float64) string {
	return "https://www.google.com/maps?q=" + strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}

// WhatsAppURL builds a wa.me handoff link. Non-digits are stripped from
// phone; an empty phone lets the user pick the chat.
func WhatsAppURL(phone, text string) string {
	return "https://wa.me/" + nonDigits.ReplaceAllString(phone, "") + "?text=" + escapeText(text)
}

// MarkerMessage is the body shared for a dropped geo.
func MarkerMessage(locationText string, lat, lon float64, custom, appLink string) string {
	parts := []string{
		"Hi, I am sending my current Geo Location to you as this is where I am:",
		locationText,
	}
	if custom = strings.TrimSpace(custom); custom != "" {
		parts = append(parts, "\n"+custom)
	}
	parts = append(parts,
		"\nHere is a Link to the GeoDrop: "+MapsLink(lat, lon),
		"\n"+Hashtag,
		"Check out HegGeo: "+appLink,
	)
	return strings.Join(parts, "\n")
}

func CoordinatesLabel(lat, lon float64, decimals int) string {
	return fmt.Sprintf("Coordinates: %.*f, %.*f", decimals, lat, decimals, lon)
}

// escapeText matches encodeURIComponent closely enough for chat links:
// spaces become %20 instead of +.
func escapeText(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
