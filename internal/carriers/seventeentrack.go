package carriers

import (
	"time"

	"carrier-probe/internal/probe"
	"carrier-probe/internal/selectors"
)

// GenericSelectors returns a broad selector set for tracking pages whose
// markup is unknown.
func GenericSelectors() selectors.Set {
	return selectors.Set{
		{Selector: "[class*='status']", Purpose: "Anything status-like"},
		{Selector: "[class*='track']", Purpose: "Tracking widgets"},
		{Selector: "[class*='result']", Purpose: "Result containers"},
		{Selector: "[class*='event']", Purpose: "Tracking events"},
		{Selector: "[class*='detail']", Purpose: "Detail panels"},
		{Selector: "[class*='info']", Purpose: "Info panels"},
		{Selector: ".carrier", Purpose: "Carrier name"},
		{Selector: ".timeline", Purpose: "Event timeline"},
		{Selector: "h1", Purpose: "Page heading"},
		{Selector: "h2", Purpose: "Section heading"},
		{Selector: "h3", Purpose: "Sub heading"},
	}
}

// SeventeenTrack returns the 17TRACK multi-carrier results page target.
// The site fingerprints automation, so the target runs stealthy and headful,
// and results sometimes only appear after the search button is pressed.
func SeventeenTrack() *Target {
	return &Target{
		Name:           "17track",
		DisplayName:    "17TRACK",
		URLTemplate:    "https://t.17track.net/en#nums=" + TrackingPlaceholder,
		Selectors:      GenericSelectors(),
		SubmitSelector: "button[class*='track'], input[type='submit'], .search-btn, #search-btn",
		Settle:         5 * time.Second,
		SubmitSettle:   5 * time.Second,
		FinalSettle:    5 * time.Second,
		Stealth:        true,
		Headful:        true,
		Preview:        probe.DefaultOptions(),
	}
}
