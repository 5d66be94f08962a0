// Package sniffer identifies which bank issued a statement from its
// extracted text.
package sniffer

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// Profile is a bank statement layout convention.
type Profile string

const (
	ProfileCIBC       Profile = "CIBC"
	ProfileTD         Profile = "TD"
	ProfileRBC        Profile = "RBC"
	ProfileScotiabank Profile = "Scotiabank"
	ProfileGeneric    Profile = "Generic"
)

// Profiles lists every known profile, Generic last.
func Profiles() []Profile {
	return []Profile{ProfileCIBC, ProfileTD, ProfileRBC, ProfileScotiabank, ProfileGeneric}
}

// ParseProfile resolves a profile name case-insensitively.
func ParseProfile(name string) (Profile, bool) {
	for _, p := range Profiles() {
		if strings.EqualFold(string(p), strings.TrimSpace(name)) {
			return p, true
		}
	}
	return "", false
}

// Marker ties a text marker to the profile it identifies.
type Marker struct {
	Text    string
	Profile Profile
}

// DefaultMarkers are checked in declaration order; the earliest declared
// marker present anywhere in the text wins.
func DefaultMarkers() []Marker {
	return []Marker{
		{Text: "CIBC", Profile: ProfileCIBC},
		{Text: "TD Canada Trust", Profile: ProfileTD},
		{Text: "RBC", Profile: ProfileRBC},
		{Text: "Scotiabank", Profile: ProfileScotiabank},
	}
}

// Detector classifies statement text with a single Aho-Corasick pass over
// all markers.
type Detector struct {
	markers []Marker
	matcher *ahocorasick.Matcher
	mu      sync.Mutex // Matcher keeps per-call state
}

// NewDetector builds a detector for the given markers. With no markers it
// always returns ProfileGeneric.
func NewDetector(markers []Marker) *Detector {
	d := &Detector{markers: markers}
	if len(markers) == 0 {
		return d
	}
	dict := make([]string, len(markers))
	for i, m := range markers {
		dict[i] = strings.ToLower(m.Text)
	}
	d.matcher = ahocorasick.NewStringMatcher(dict)
	return d
}

var defaultDetector = NewDetector(DefaultMarkers())

// Detect classifies text using DefaultMarkers.
func Detect(text string) Profile {
	return defaultDetector.Detect(text)
}

// Detect returns the profile of the first declared marker found in text
// (case-insensitive), or ProfileGeneric when none is present.
func (d *Detector) Detect(text string) Profile {
	if d.matcher == nil || text == "" {
		return ProfileGeneric
	}

	d.mu.Lock()
	hits := d.matcher.Match([]byte(strings.ToLower(text)))
	d.mu.Unlock()

	best := -1
	for _, idx := range hits {
		if best == -1 || idx < best {
			best = idx
		}
	}
	if best == -1 {
		return ProfileGeneric
	}
	return d.markers[best].Profile
}
