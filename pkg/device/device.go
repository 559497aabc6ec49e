// Package device classifies requesters from their user-agent string and
// extracts coarse location info from free-text addresses. Both are
// best-effort: failures degrade to "unknown" and never block admission.
package device

import (
	"regexp"
	"strings"
)

// Class is the coarse device category.
type Class string

const (
	ClassMobile  Class = "mobile"
	ClassTablet  Class = "tablet"
	ClassDesktop Class = "desktop"
	ClassUnknown Class = "unknown"
)

var (
	mobileRe  = regexp.MustCompile(`(?i)(android|webos|iphone|ipod|blackberry|iemobile|opera mini)`)
	desktopRe = regexp.MustCompile(`(?i)(windows|macintosh|linux|x11)`)
)

// Detect maps a user-agent string to a device class. Mobile wins over tablet
// because most tablet agents also advertise a mobile token.
func Detect(userAgent string) Class {
	if userAgent == "" {
		return ClassUnknown
	}
	ua := strings.ToLower(userAgent)

	if mobileRe.MatchString(ua) {
		return ClassMobile
	}
	if isTablet(ua) {
		return ClassTablet
	}
	if desktopRe.MatchString(ua) {
		return ClassDesktop
	}
	return ClassUnknown
}

// Go's regexp has no lookahead, so the "android without mobile" tablet case
// is checked manually.
func isTablet(ua string) bool {
	for _, marker := range []string{"ipad", "tablet", "playbook", "silk"} {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return strings.Contains(ua, "android") && !strings.Contains(ua, "mobile")
}

// Location is the best-effort city/country pair extracted from an address.
type Location struct {
	City    string
	Country string
}

// ExtractLocation splits a reverse-geocoded address and takes the last two
// comma-separated parts as city and country.
func ExtractLocation(address string) Location {
	parts := strings.Split(address, ",")
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			trimmed = append(trimmed, t)
		}
	}

	if len(trimmed) >= 2 {
		return Location{
			City:    trimmed[len(trimmed)-2],
			Country: trimmed[len(trimmed)-1],
		}
	}
	return Location{City: "Unknown", Country: "Unknown"}
}
