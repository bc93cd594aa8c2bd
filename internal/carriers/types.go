package carriers

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"carrier-probe/internal/probe"
	"carrier-probe/internal/selectors"
)

// TrackingPlaceholder is replaced by the tracking number in a URL template.
const TrackingPlaceholder = "{tracking}"

// DefaultTrackingNumber is used when a run does not name one.
const DefaultTrackingNumber = "9438340109490000291499"

var (
	// ErrUnknownCarrier is returned for a carrier name that is not registered.
	ErrUnknownCarrier = errors.New("unknown carrier")
	// ErrEmptyTrackingNumber is returned when the tracking number is blank.
	ErrEmptyTrackingNumber = errors.New("tracking number is empty")
	// ErrInvalidTemplate is returned for a URL template that cannot be used.
	ErrInvalidTemplate = errors.New("invalid tracking URL template")
)

// Target describes a carrier tracking page and how to reach a state worth probing.
type Target struct {
	// Name is the registry key
	Name string `json:"name"`
	// DisplayName is shown in listings
	DisplayName string `json:"display_name"`
	// URLTemplate contains TrackingPlaceholder
	URLTemplate string `json:"url_template"`
	// Selectors is the candidate selector set probed after rendering
	Selectors selectors.Set `json:"selectors"`
	// SubmitSelector, when set, is clicked after the first settle in case
	// the page needs the search to be triggered manually
	SubmitSelector string `json:"submit_selector,omitempty"`
	// Settle is the wait after navigation
	Settle time.Duration `json:"settle"`
	// SubmitSettle is the wait after a successful submit click
	SubmitSettle time.Duration `json:"submit_settle,omitempty"`
	// FinalSettle is an extra wait before the page is captured
	FinalSettle time.Duration `json:"final_settle,omitempty"`
	// Stealth enables automation fingerprint masking
	Stealth bool `json:"stealth"`
	// Headful runs a visible browser window
	Headful bool `json:"headful"`
	// Preview holds the per-carrier preview bounds
	Preview probe.Options `json:"preview"`
	// Patterns are known tracking number formats; empty accepts anything
	Patterns []*regexp.Regexp `json:"-"`
}

// URL builds the tracking page URL for a tracking number.
func (t *Target) URL(trackingNumber string) (string, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return "", ErrEmptyTrackingNumber
	}
	return strings.ReplaceAll(t.URLTemplate, TrackingPlaceholder, url.QueryEscape(trackingNumber)), nil
}

// RecognizesTrackingNumber reports whether the tracking number matches one of
// the carrier's known formats. Spaces are ignored and letters compared in
// upper case. Targets without patterns recognize every non-empty number.
func (t *Target) RecognizesTrackingNumber(trackingNumber string) bool {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(trackingNumber), " ", ""))
	if cleaned == "" {
		return false
	}
	if len(t.Patterns) == 0 {
		return true
	}
	for _, p := range t.Patterns {
		if p.MatchString(cleaned) {
			return true
		}
	}
	return false
}

// Validate checks that the target can be used for a run.
func (t *Target) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("carrier name is required")
	}
	return validateTemplate(t.URLTemplate)
}

// Custom returns an ad-hoc target for a URL template, probed with the
// generic selector set.
func Custom(template string) (*Target, error) {
	if err := validateTemplate(template); err != nil {
		return nil, err
	}
	return &Target{
		Name:        "custom",
		DisplayName: "Custom URL",
		URLTemplate: template,
		Selectors:   GenericSelectors(),
		Settle:      3 * time.Second,
		Preview:     probe.DefaultOptions(),
	}, nil
}

func validateTemplate(template string) error {
	if !strings.Contains(template, TrackingPlaceholder) {
		return fmt.Errorf("%w: %q does not contain %s", ErrInvalidTemplate, template, TrackingPlaceholder)
	}
	u, err := url.Parse(strings.ReplaceAll(template, TrackingPlaceholder, "0"))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidTemplate, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidTemplate, template)
	}
	return nil
}
