package discover

import (
	"fmt"
	"time"

	"carrier-probe/internal/artifacts"
	"carrier-probe/internal/browser"
	"carrier-probe/internal/carriers"
	"carrier-probe/internal/probe"
	"carrier-probe/internal/selectors"
)

// Replay probes a saved rendered page without a browser. The target supplies
// the default selector set and preview bounds; set overrides its selectors
// when non-nil. The returned run carries a report that is not written to disk.
func (r *Runner) Replay(path string, target *carriers.Target, set selectors.Set) (*Run, error) {
	if target == nil {
		return nil, fmt.Errorf("no carrier target given")
	}
	if set == nil {
		set = target.Selectors
	}

	page, err := browser.LoadStaticPage(path)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	markup, err := page.Markup()
	if err != nil {
		return nil, err
	}
	text, err := page.VisibleText("body")
	if err != nil {
		return nil, err
	}

	r.logger.Info("Probing saved page", "carrier", target.Name, "path", path, "selectors", len(set))

	outcomes, err := probe.Inspect(page, set.Selectors(), r.cfg.ProbeOptions(target.Preview))
	if err != nil {
		return nil, fmt.Errorf("selector probe aborted: %w", err)
	}
	logOutcomes(r.logger, outcomes)

	report := artifacts.NewReport(target.Name, "", path)
	report.Driver = "static"
	report.Title = page.Title()
	report.HTMLLength = len(markup)
	report.AddOutcomes(outcomes)
	report.FinishedAt = time.Now().UTC()

	return &Run{
		Target:     target,
		URL:        path,
		Title:      page.Title(),
		HTMLLength: len(markup),
		Text:       text,
		Selectors:  set,
		Outcomes:   outcomes,
		Report:     report,
	}, nil
}
