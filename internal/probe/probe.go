// Package probe checks candidate CSS selectors against an already rendered
// page and reports which of them match, along with a short preview of the
// text held by the first few matches.
//
// The package only reads through the Page it is given. It never navigates,
// waits or mutates the document, so running it twice against an unchanged
// snapshot yields identical results.
package probe

import (
	"errors"
)

const (
	// DefaultPreviewLimit is the number of characters kept per preview.
	DefaultPreviewLimit = 150
	// DefaultPreviewCount is the number of matched elements previewed per selector.
	DefaultPreviewCount = 2
)

// Page is a read-only view of one rendered document.
//
// Implementations report ErrPageUnavailable (possibly wrapped) from Alive and
// QueryAll once the document can no longer be queried. Any other error
// returned by QueryAll is taken to mean the selector itself could not be
// evaluated.
type Page interface {
	Alive() error
	QueryAll(selector string) ([]Element, error)
}

// Element is a handle to a matched node. Handles are only guaranteed to be
// valid until the next QueryAll on the same page.
type Element interface {
	VisibleText() (string, error)
}

// Options bounds the previews collected for each selector.
type Options struct {
	// PreviewLimit is the maximum number of characters kept per preview.
	PreviewLimit int `json:"preview_limit"`
	// PreviewCount is the maximum number of matched elements previewed.
	PreviewCount int `json:"preview_count"`
}

// DefaultOptions returns the preview bounds used by the discovery scripts.
func DefaultOptions() Options {
	return Options{
		PreviewLimit: DefaultPreviewLimit,
		PreviewCount: DefaultPreviewCount,
	}
}

// Result is a positive finding: a selector that matched at least one element.
type Result struct {
	Selector string   `json:"selector"`
	Count    int      `json:"count"`
	Previews []string `json:"previews"`
}

// Status classifies what happened to a single selector.
type Status string

const (
	StatusMatched Status = "matched"
	StatusEmpty   Status = "empty"
	StatusFailed  Status = "failed"
)

// Outcome is the per-selector record produced by Inspect. Unlike Result it
// also exists for selectors that matched nothing or failed to evaluate.
type Outcome struct {
	Selector string   `json:"selector"`
	Status   Status   `json:"status"`
	Count    int      `json:"count"`
	Previews []string `json:"previews,omitempty"`
	// PreviewIndexes holds the position among the matched elements of the
	// element behind each preview. Elements with no text leave gaps.
	PreviewIndexes []int `json:"preview_indexes,omitempty"`
	// Err is a *SelectorError when Status is StatusFailed.
	Err error `json:"-"`
	// ElementErrors holds one *ElementReadError per preview that could not be read.
	ElementErrors []error `json:"-"`
}

// Result converts a matched outcome into its reportable form.
func (o Outcome) Result() Result {
	previews := o.Previews
	if previews == nil {
		previews = []string{}
	}
	return Result{
		Selector: o.Selector,
		Count:    o.Count,
		Previews: previews,
	}
}

// Probe runs every selector against page in order and returns a Result for
// each one that matched at least one element. Selectors that match nothing
// or cannot be evaluated are left out. The only error returned is one
// wrapping ErrPageUnavailable, in which case no results are returned.
func Probe(page Page, selectors []string, opts Options) ([]Result, error) {
	outcomes, err := Inspect(page, selectors, opts)
	if err != nil {
		return nil, err
	}

	return Matched(outcomes), nil
}

// Matched keeps the matched outcomes, in order, as Results.
func Matched(outcomes []Outcome) []Result {
	results := make([]Result, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status == StatusMatched {
			results = append(results, o.Result())
		}
	}
	return results
}

// PreviewIndex returns the matched-element position of the i-th preview.
func (o Outcome) PreviewIndex(i int) int {
	if i < len(o.PreviewIndexes) {
		return o.PreviewIndexes[i]
	}
	return i
}

// Inspect is Probe without the filtering: it returns exactly one Outcome per
// input selector, in input order, so callers can tell a selector that matched
// nothing from one that failed to evaluate.
func Inspect(page Page, selectors []string, opts Options) ([]Outcome, error) {
	if page == nil {
		return nil, ErrPageUnavailable
	}
	if err := page.Alive(); err != nil {
		return nil, Unavailable(err)
	}

	outcomes := make([]Outcome, 0, len(selectors))
	for _, selector := range selectors {
		outcome, err := inspect(page, selector, opts)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func inspect(page Page, selector string, opts Options) (Outcome, error) {
	elements, err := page.QueryAll(selector)
	if err != nil {
		if errors.Is(err, ErrPageUnavailable) {
			return Outcome{}, err
		}
		return Outcome{
			Selector: selector,
			Status:   StatusFailed,
			Err:      &SelectorError{Selector: selector, Err: err},
		}, nil
	}
	if len(elements) == 0 {
		return Outcome{Selector: selector, Status: StatusEmpty}, nil
	}

	n := min(max(opts.PreviewCount, 0), len(elements))
	outcome := Outcome{
		Selector: selector,
		Status:   StatusMatched,
		Count:    len(elements),
		Previews: make([]string, 0, n),
	}
	if n > 0 {
		outcome.PreviewIndexes = make([]int, 0, n)
	}
	for i, el := range elements[:n] {
		text, err := el.VisibleText()
		if err != nil {
			if errors.Is(err, ErrPageUnavailable) {
				return Outcome{}, err
			}
			outcome.ElementErrors = append(outcome.ElementErrors, &ElementReadError{
				Selector: selector,
				Index:    i,
				Err:      err,
			})
			continue
		}
		if preview := Preview(text, opts.PreviewLimit); preview != "" {
			outcome.Previews = append(outcome.Previews, preview)
			outcome.PreviewIndexes = append(outcome.PreviewIndexes, i)
		}
	}
	return outcome, nil
}
