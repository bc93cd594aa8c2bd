package carriers

import (
	"regexp"
	"time"

	"carrier-probe/internal/probe"
	"carrier-probe/internal/selectors"
)

// FedEx numbers are all digits in a handful of lengths.
var fedexPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d{12}|\d{14}|\d{15}|\d{18}|\d{20}|\d{22})$`),
}

// FedEx returns the FedEx tracking page target. The page is an Angular
// application and needs the full render before anything is in the DOM.
func FedEx() *Target {
	return &Target{
		Name:        "fedex",
		DisplayName: "FedEx",
		URLTemplate: "https://www.fedex.com/wtrk/track/?tracknumbers=" + TrackingPlaceholder,
		Selectors: selectors.Set{
			{Selector: "[data-test-id='tracking-details']", Purpose: "Primary tracking container"},
			{Selector: ".tracking-details", Purpose: "Alternative container"},
			{Selector: "[data-automation-id='trackingEvents']", Purpose: "Events container"},
			{Selector: ".tracking-events", Purpose: "Alternative events"},
			{Selector: ".timeline-container", Purpose: "Timeline view"},
			{Selector: "[role='main'] .tracking", Purpose: "Main tracking section"},
			{Selector: ".shipment-progress", Purpose: "Progress indicator"},
			{Selector: "app-tracking-timeline", Purpose: "Timeline component"},
			{Selector: "[data-test-id='event-status'], .event-status, .timeline-status", Purpose: "Event status"},
			{Selector: "[data-test-id='event-location'], .event-location, .timeline-location", Purpose: "Event location"},
		},
		Settle:   5 * time.Second,
		Stealth:  true,
		Preview:  probe.DefaultOptions(),
		Patterns: fedexPatterns,
	}
}
