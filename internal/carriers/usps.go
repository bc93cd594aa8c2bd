package carriers

import (
	"regexp"
	"time"

	"carrier-probe/internal/probe"
	"carrier-probe/internal/selectors"
)

// USPS tracking number formats
var uspsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^9[1-4]\d{20}$`),    // Priority, Certified, Signature Confirmation
	regexp.MustCompile(`^82\d{8}$`),         // Priority Mail Express International
	regexp.MustCompile(`^7\d{19}$`),         // Certified Mail
	regexp.MustCompile(`^[A-Z]{2}\d{9}US$`), // International: EK, LC, LK, EA, CP, RA..RD
}

// USPS returns the USPS Tracking results page target. The page renders its
// status widgets client-side after the initial document loads.
func USPS() *Target {
	return &Target{
		Name:        "usps",
		DisplayName: "USPS",
		URLTemplate: "https://tools.usps.com/go/TrackConfirmAction?tLabels=" + TrackingPlaceholder,
		Selectors: selectors.Set{
			{Selector: ".tracking-progress-bar-status", Purpose: "Progress bar status label"},
			{Selector: ".tb-status", Purpose: "Status banner"},
			{Selector: ".delivery-status", Purpose: "Delivery status line"},
			{Selector: ".track-bar-container", Purpose: "Progress bar container"},
			{Selector: ".tracking-summary", Purpose: "Summary panel"},
			{Selector: ".status-content", Purpose: "Status detail text"},
			{Selector: ".tb-step", Purpose: "Tracking history step"},
			{Selector: "#trackingHistory", Purpose: "History section"},
			{Selector: ".tracking-history", Purpose: "History list"},
			{Selector: ".product-summary", Purpose: "Product and service summary"},
			{Selector: ".expected-delivery", Purpose: "Expected delivery banner"},
			{Selector: ".delivery-date", Purpose: "Expected delivery date"},
		},
		Settle:   3 * time.Second,
		Preview:  probe.Options{PreviewLimit: 100, PreviewCount: 3},
		Patterns: uspsPatterns,
	}
}
