package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrier-probe/internal/artifacts"
	"carrier-probe/internal/carriers"
	"carrier-probe/internal/discover"
	"carrier-probe/internal/probe"
)

func sampleRun() *discover.Run {
	outcomes := []probe.Outcome{
		{Selector: ".tb-status", Status: probe.StatusMatched, Count: 1, Previews: []string{"Delivered, In/At Mailbox"}},
		{Selector: ".delivery-status", Status: probe.StatusEmpty},
		{Selector: ".tb-step", Status: probe.StatusMatched, Count: 4, Previews: []string{"Delivered", "Out for Delivery"}},
		{Selector: "div[", Status: probe.StatusFailed, Err: &probe.SelectorError{Selector: "div[", Err: errors.New("expected identifier")}},
	}

	report := artifacts.NewReport("usps", "9400111699000367046792", "https://tools.usps.com/go/TrackConfirmAction?tLabels=9400111699000367046792")
	report.Title = "USPS.com - USPS Tracking Results"
	report.Artifacts[artifacts.KindMarkup] = "/tmp/usps_rendered.html"
	report.Artifacts[artifacts.KindReport] = "/tmp/usps_report.json"
	report.AddOutcomes(outcomes)

	return &discover.Run{
		Target:         carriers.USPS(),
		TrackingNumber: report.TrackingNumber,
		URL:            report.URL,
		Title:          report.Title,
		HTMLLength:     48213,
		Text:           "USPS Tracking\nDelivered, In/At Mailbox",
		Outcomes:       outcomes,
		Report:         report,
	}
}

func TestOutputFormatter_PrintRun(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		verbose     bool
		textChars   int
		contains    []string
		notContains []string
	}{
		{
			name:      "text format",
			format:    "text",
			textChars: 2000,
			contains: []string{
				"Loading: https://tools.usps.com/go/TrackConfirmAction?tLabels=9400111699000367046792",
				"HTML length: 48213 characters",
				"Saved rendered HTML: /tmp/usps_rendered.html",
				"Saved report: /tmp/usps_report.json",
				"Page title: USPS.com - USPS Tracking Results",
				"--- First 2000 chars of visible text ---",
				"USPS Tracking\nDelivered, In/At Mailbox",
				"--- Searching for elements ---",
				"FOUND: .tb-status (1 elements)\n    [0]: Delivered, In/At Mailbox",
				"FOUND: .tb-step (4 elements)\n    [0]: Delivered\n    [1]: Out for Delivery",
			},
			notContains: []string{"EMPTY:", "FAILED:", "Saved screenshot"},
		},
		{
			name:      "text format verbose",
			format:    "text",
			verbose:   true,
			textChars: 5,
			contains: []string{
				"--- First 5 chars of visible text ---\nUSPS \n",
				"EMPTY: .delivery-status",
				"FAILED: div[ (",
			},
		},
		{
			name:        "text format without excerpt",
			format:      "text",
			textChars:   0,
			contains:    []string{"--- Searching for elements ---"},
			notContains: []string{"chars of visible text"},
		},
		{
			name:        "table format",
			format:      "table",
			textChars:   2000,
			contains:    []string{"SELECTOR", "STATUS", "COUNT", "PREVIEW", ".tb-status", "matched", "Delivered | Out for Delivery"},
			notContains: []string{".delivery-status"},
		},
		{
			name:      "table format verbose",
			format:    "table",
			verbose:   true,
			textChars: 2000,
			contains:  []string{".delivery-status", "empty", "failed", "expected identifier"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			formatter := NewOutputFormatter(tt.format, true, &out, &errOut)

			require.NoError(t, formatter.PrintRun(sampleRun(), tt.verbose, tt.textChars))

			output := out.String()
			for _, expected := range tt.contains {
				assert.Contains(t, output, expected)
			}
			for _, unexpected := range tt.notContains {
				assert.NotContains(t, output, unexpected)
			}
			assert.Empty(t, errOut.String())
		})
	}
}

func TestOutputFormatter_PrintRunJSON(t *testing.T) {
	var out bytes.Buffer
	formatter := NewOutputFormatter("json", false, &out, &out)

	run := sampleRun()
	require.NoError(t, formatter.PrintRun(run, false, 2000))

	var report artifacts.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, run.Report.RunID, report.RunID)
	assert.Equal(t, run.Results(), report.Results)
	assert.Equal(t, []string{".delivery-status"}, report.Unmatched)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "div[", report.Failed[0].Selector)
}

func TestOutputFormatter_NoMatches(t *testing.T) {
	run := sampleRun()
	run.Outcomes = []probe.Outcome{{Selector: ".missing", Status: probe.StatusEmpty}}
	run.Text = "   "

	for _, format := range []string{"text", "table"} {
		t.Run(format, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, NewOutputFormatter(format, true, &out, &out).PrintRun(run, false, 100))
			assert.Contains(t, out.String(), "(no text found)")
			assert.Contains(t, out.String(), "No selectors matched.")
		})
	}
}

func TestOutputFormatter_PreviewNumbersFollowElements(t *testing.T) {
	run := sampleRun()
	run.Outcomes = []probe.Outcome{{
		Selector:       ".tb-step",
		Status:         probe.StatusMatched,
		Count:          3,
		Previews:       []string{"Delivered", "Out for Delivery"},
		PreviewIndexes: []int{1, 2},
	}}

	var out bytes.Buffer
	require.NoError(t, NewOutputFormatter("text", true, &out, &out).PrintRun(run, false, 0))
	assert.Contains(t, out.String(), "    [1]: Delivered\n    [2]: Out for Delivery\n")
}

func TestOutputFormatter_UnsupportedFormat(t *testing.T) {
	var out bytes.Buffer
	formatter := NewOutputFormatter("yaml", true, &out, &out)

	assert.EqualError(t, formatter.PrintRun(sampleRun(), false, 0), "unsupported format: yaml")
	assert.EqualError(t, formatter.PrintCarriers(nil), "unsupported format: yaml")
}

func TestOutputFormatter_PrintCarriers(t *testing.T) {
	targets := carriers.NewRegistry().Targets()

	t.Run("text", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, NewOutputFormatter("text", true, &out, &out).PrintCarriers(targets))

		output := out.String()
		assert.Contains(t, output, "usps (USPS)")
		assert.Contains(t, output, "URL: https://tools.usps.com/go/TrackConfirmAction?tLabels={tracking}")
		assert.Contains(t, output, "Selectors (12):")
		assert.Contains(t, output, "Status banner")
		assert.Contains(t, output, "17track (17TRACK)")
		assert.Contains(t, output, "Submit: button[class*='track']")
		assert.Contains(t, output, "Stealth: yes  Headful: yes")
	})

	t.Run("table", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, NewOutputFormatter("table", true, &out, &out).PrintCarriers(targets))

		output := out.String()
		for _, expected := range []string{"NAME", "SELECTORS", "usps", "17track", "fedex", "3s", "5s"} {
			assert.Contains(t, output, expected)
		}
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, NewOutputFormatter("json", true, &out, &out).PrintCarriers(targets))

		var views []struct {
			Name      string `json:"name"`
			Settle    string `json:"settle"`
			Stealth   bool   `json:"stealth"`
			Selectors []struct {
				Selector string `json:"selector"`
				Purpose  string `json:"purpose"`
			} `json:"selectors"`
			Preview probe.Options `json:"preview"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &views))
		require.Len(t, views, len(targets))
		assert.Equal(t, "usps", views[0].Name)
		assert.Equal(t, "3s", views[0].Settle)
		assert.Len(t, views[0].Selectors, 12)
		assert.Equal(t, probe.Options{PreviewLimit: 100, PreviewCount: 3}, views[0].Preview)
	})
}

func TestOutputFormatter_Messages(t *testing.T) {
	var out, errOut bytes.Buffer
	formatter := NewOutputFormatter("text", true, &out, &errOut)

	formatter.PrintSuccess("Operation successful")
	formatter.PrintInfo("Probing 12 selectors")
	formatter.PrintDuration(1234567 * time.Microsecond)
	formatter.PrintError(errors.New("page closed"))

	assert.Equal(t, "✓ Operation successful\nℹ Probing 12 selectors\nCompleted in 1.235s\n", out.String())
	assert.Equal(t, "✗ Error: page closed\n", errOut.String())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly ten chars", 17, "exactly ten chars"},
		{"this is a very long string that should be truncated", 20, "this is a very lo..."},
		{"", 5, ""},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"Lieferung zugestellt", 8, "Liefe..."},
		{"配達完了しました", 5, "配達..."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, truncate(tt.input, tt.maxLen), "truncate(%q, %d)", tt.input, tt.maxLen)
	}
}

func TestFirstChars(t *testing.T) {
	assert.Equal(t, "", firstChars("anything", 0))
	assert.Equal(t, "abc", firstChars("abc", 10))
	assert.Equal(t, "zugeste", firstChars("zugestellt", 7))
	assert.Equal(t, "配達", firstChars("配達完了", 2))
	assert.True(t, strings.HasPrefix("Delivered", firstChars("Delivered", 3)))
}
