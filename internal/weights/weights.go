// Package weights turns a free-text routing prompt into structured routing
// weights. A keyword parser handles the common phrasings locally; an
// optional LLM refiner covers everything else.
package weights

import (
	"strings"
)

// RouteWeights is the structured routing preference set handed to the
// solver and the debounce controller.
type RouteWeights struct {
	AvoidHighways    bool     `json:"avoid_highways"`
	PreferScenic     bool     `json:"prefer_scenic"`
	PreferShade      bool     `json:"prefer_shade"`
	ShadePenalty     float64  `json:"shade_penalty"`
	MaxElevationGain *float64 `json:"max_elevation_gain"`
}

// flatElevationCapM is applied when the prompt asks for a flat route.
const flatElevationCapM = 50.0

var keywordSets = map[string][]string{
	"avoid_highway": {"no highway", "avoid highway", "no highways"},
	"scenic":        {"scenic", "scenery", "prefer scenic"},
	"flat":          {"flat", "no hills", "flat route"},
	"shade":         {"shade", "shady", "shaded", "avoid sun", "out of the sun", "stay cool"},
	"strong_shade":  {"maximum shade", "as much shade", "lots of shade", "mostly shade"},
}

func containsAny(p string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(p, k) {
			return true
		}
	}
	return false
}

// ParsePrompt extracts routing weights from a free-text prompt with simple
// keyword matching. It never fails; an unrecognized prompt yields the zero
// weight set.
func ParsePrompt(prompt string) RouteWeights {
	p := strings.ToLower(prompt)
	var w RouteWeights

	if containsAny(p, keywordSets["avoid_highway"]) {
		w.AvoidHighways = true
	}
	if containsAny(p, keywordSets["scenic"]) {
		w.PreferScenic = true
	}
	if containsAny(p, keywordSets["flat"]) {
		cap := flatElevationCapM
		w.MaxElevationGain = &cap
	}
	if containsAny(p, keywordSets["shade"]) {
		w.PreferShade = true
		w.ShadePenalty = 1.0
	}
	if containsAny(p, keywordSets["strong_shade"]) {
		w.PreferShade = true
		w.ShadePenalty = 2.0
	}
	return w
}
