package artifacts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"carrier-probe/internal/probe"
)

// Report summarizes one discovery run.
type Report struct {
	RunID          string          `json:"run_id"`
	Carrier        string          `json:"carrier"`
	TrackingNumber string          `json:"tracking_number"`
	URL            string          `json:"url"`
	Driver         string          `json:"driver"`
	Stealth        bool            `json:"stealth"`
	Title          string          `json:"title"`
	HTMLLength     int             `json:"html_length"`
	Submitted      bool            `json:"submitted,omitempty"`
	Artifacts      map[Kind]string `json:"artifacts"`
	Results        []probe.Result  `json:"results"`
	Unmatched      []string        `json:"unmatched,omitempty"`
	Failed         []FailedProbe   `json:"failed,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
}

// FailedProbe records a selector whose evaluation failed.
type FailedProbe struct {
	Selector string `json:"selector"`
	Error    string `json:"error"`
}

// NewReport starts a report with a fresh run ID.
func NewReport(carrier, trackingNumber, pageURL string) *Report {
	return &Report{
		RunID:          uuid.NewString(),
		Carrier:        carrier,
		TrackingNumber: trackingNumber,
		URL:            pageURL,
		Artifacts:      make(map[Kind]string),
		Results:        []probe.Result{},
		StartedAt:      time.Now().UTC(),
	}
}

// AddOutcomes records probe outcomes: matched selectors become results,
// the rest are listed as unmatched or failed.
func (r *Report) AddOutcomes(outcomes []probe.Outcome) {
	r.Results = append(r.Results, probe.Matched(outcomes)...)
	for _, o := range outcomes {
		switch o.Status {
		case probe.StatusEmpty:
			r.Unmatched = append(r.Unmatched, o.Selector)
		case probe.StatusFailed:
			msg := ""
			if o.Err != nil {
				msg = o.Err.Error()
			}
			r.Failed = append(r.Failed, FailedProbe{Selector: o.Selector, Error: msg})
		}
	}
}

// WriteReport stamps the finish time, records the report's own path and
// every artifact written so far, and saves the report as indented JSON.
func (w *Writer) WriteReport(r *Report) (string, error) {
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}
	if r.Artifacts == nil {
		r.Artifacts = make(map[Kind]string)
	}
	for kind, path := range w.written {
		r.Artifacts[kind] = path
	}
	r.Artifacts[KindReport] = w.Path(KindReport)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	return w.write(KindReport, append(data, '\n'))
}
