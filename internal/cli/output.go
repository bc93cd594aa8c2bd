package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"carrier-probe/internal/artifacts"
	"carrier-probe/internal/carriers"
	"carrier-probe/internal/config"
	"carrier-probe/internal/discover"
	"carrier-probe/internal/probe"
	"carrier-probe/internal/selectors"
)

// OutputFormatter handles different output formats
type OutputFormatter struct {
	format string
	out    io.Writer
	errOut io.Writer
	styles styles
}

type styles struct {
	heading lipgloss.Style
	muted   lipgloss.Style
	found   lipgloss.Style
	empty   lipgloss.Style
	failed  lipgloss.Style
	success lipgloss.Style
	info    lipgloss.Style
	border  lipgloss.Style
}

// Order in which artifact paths are listed.
var artifactLabels = []struct {
	kind  artifacts.Kind
	label string
}{
	{artifacts.KindMarkup, "Saved rendered HTML"},
	{artifacts.KindScreenshot, "Saved screenshot"},
	{artifacts.KindText, "Saved visible text"},
	{artifacts.KindMarkdown, "Saved markdown"},
	{artifacts.KindReport, "Saved report"},
}

// NewOutputFormatter creates a formatter writing results to out and
// messages about failures to errOut. Colors are only used when out is a
// terminal and noColor is false.
func NewOutputFormatter(format string, noColor bool, out, errOut io.Writer) *OutputFormatter {
	renderer := lipgloss.NewRenderer(out)
	if noColor || !IsTerminal(out) {
		renderer.SetColorProfile(termenv.Ascii)
	}

	return &OutputFormatter{
		format: format,
		out:    out,
		errOut: errOut,
		styles: styles{
			heading: renderer.NewStyle().Bold(true),
			muted:   renderer.NewStyle().Foreground(lipgloss.Color("244")),
			found:   renderer.NewStyle().Foreground(lipgloss.Color("82")).Bold(true),
			empty:   renderer.NewStyle().Foreground(lipgloss.Color("244")),
			failed:  renderer.NewStyle().Foreground(lipgloss.Color("196")),
			success: renderer.NewStyle().Foreground(lipgloss.Color("82")),
			info:    renderer.NewStyle().Foreground(lipgloss.Color("39")),
			border:  renderer.NewStyle().Foreground(lipgloss.Color("240")),
		},
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PrintRun prints a discovery run. Empty and failed selectors are only
// listed when verbose is set. textChars bounds the visible text excerpt.
func (f *OutputFormatter) PrintRun(run *discover.Run, verbose bool, textChars int) error {
	switch f.format {
	case config.FormatJSON:
		return f.printJSON(run.Report)
	case config.FormatTable:
		f.printPageSummary(run, textChars)
		return f.printRunTable(run.Outcomes, verbose)
	case config.FormatText, "":
		f.printPageSummary(run, textChars)
		f.printRunText(run.Outcomes, verbose)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// printPageSummary prints what was loaded and saved before the probe results.
func (f *OutputFormatter) printPageSummary(run *discover.Run, textChars int) {
	fmt.Fprintf(f.out, "Loading: %s\n", run.URL)
	fmt.Fprintf(f.out, "HTML length: %d characters\n", run.HTMLLength)
	if run.Submitted {
		fmt.Fprintln(f.out, "Clicked submit control")
	}
	if run.Report != nil {
		for _, a := range artifactLabels {
			if path, ok := run.Report.Artifacts[a.kind]; ok {
				fmt.Fprintf(f.out, "%s: %s\n", a.label, path)
			}
		}
	}

	fmt.Fprintf(f.out, "\nPage title: %s\n", run.Title)

	if textChars > 0 {
		fmt.Fprintf(f.out, "\n%s\n", f.styles.heading.Render(fmt.Sprintf("--- First %d chars of visible text ---", textChars)))
		text := firstChars(strings.TrimSpace(run.Text), textChars)
		if text == "" {
			fmt.Fprintln(f.out, f.styles.muted.Render("(no text found)"))
		} else {
			fmt.Fprintln(f.out, text)
		}
	}

	fmt.Fprintf(f.out, "\n%s\n", f.styles.heading.Render("--- Searching for elements ---"))
}

func (f *OutputFormatter) printRunText(outcomes []probe.Outcome, verbose bool) {
	matched := 0
	for _, o := range outcomes {
		switch o.Status {
		case probe.StatusMatched:
			matched++
			fmt.Fprintf(f.out, "%s %s (%d elements)\n", f.styles.found.Render("FOUND:"), o.Selector, o.Count)
			for i, preview := range o.Previews {
				fmt.Fprintf(f.out, "    [%d]: %s\n", o.PreviewIndex(i), preview)
			}
		case probe.StatusEmpty:
			if verbose {
				fmt.Fprintf(f.out, "%s %s\n", f.styles.empty.Render("EMPTY:"), o.Selector)
			}
		case probe.StatusFailed:
			if verbose {
				fmt.Fprintf(f.out, "%s %s (%v)\n", f.styles.failed.Render("FAILED:"), o.Selector, o.Err)
			}
		}
	}

	if matched == 0 {
		fmt.Fprintln(f.out, f.styles.muted.Render("No selectors matched."))
	}
}

// printRunTable prints probe outcomes in table format
func (f *OutputFormatter) printRunTable(outcomes []probe.Outcome, verbose bool) error {
	rows := make([][]string, 0, len(outcomes))
	statuses := make([]probe.Status, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status != probe.StatusMatched && !verbose {
			continue
		}
		preview := strings.Join(o.Previews, " | ")
		if o.Status == probe.StatusFailed && o.Err != nil {
			preview = o.Err.Error()
		}
		rows = append(rows, []string{o.Selector, string(o.Status), strconv.Itoa(o.Count), truncate(preview, 60)})
		statuses = append(statuses, o.Status)
	}

	if len(rows) == 0 {
		fmt.Fprintln(f.out, f.styles.muted.Render("No selectors matched."))
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.styles.border).
		Headers("SELECTOR", "STATUS", "COUNT", "PREVIEW").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return f.styles.heading.Padding(0, 1)
			}
			if col == 1 && row >= 0 && row < len(statuses) {
				return f.statusStyle(statuses[row]).Padding(0, 1)
			}
			return style
		})

	_, err := fmt.Fprintln(f.out, t.Render())
	return err
}

func (f *OutputFormatter) statusStyle(status probe.Status) lipgloss.Style {
	switch status {
	case probe.StatusMatched:
		return f.styles.found
	case probe.StatusFailed:
		return f.styles.failed
	default:
		return f.styles.empty
	}
}

// carrierView is the listing form of a carrier target.
type carrierView struct {
	Name           string         `json:"name"`
	DisplayName    string         `json:"display_name"`
	URLTemplate    string         `json:"url_template"`
	SubmitSelector string         `json:"submit_selector,omitempty"`
	Settle         string         `json:"settle"`
	Stealth        bool           `json:"stealth"`
	Headful        bool           `json:"headful"`
	Selectors      selectors.Set  `json:"selectors"`
	Preview        probe.Options  `json:"preview"`
}

// PrintCarriers prints the registered carrier targets.
func (f *OutputFormatter) PrintCarriers(targets []*carriers.Target) error {
	views := make([]carrierView, len(targets))
	for i, t := range targets {
		views[i] = carrierView{
			Name:           t.Name,
			DisplayName:    t.DisplayName,
			URLTemplate:    t.URLTemplate,
			SubmitSelector: t.SubmitSelector,
			Settle:         t.Settle.String(),
			Stealth:        t.Stealth,
			Headful:        t.Headful,
			Selectors:      t.Selectors,
			Preview:        t.Preview,
		}
	}

	switch f.format {
	case config.FormatJSON:
		return f.printJSON(views)
	case config.FormatTable:
		return f.printCarriersTable(views)
	case config.FormatText, "":
		f.printCarriersText(views)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

func (f *OutputFormatter) printCarriersText(views []carrierView) {
	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(f.out)
		}
		fmt.Fprintf(f.out, "%s (%s)\n", f.styles.heading.Render(v.Name), v.DisplayName)
		fmt.Fprintf(f.out, "  URL: %s\n", v.URLTemplate)
		fmt.Fprintf(f.out, "  Settle: %s  Stealth: %s  Headful: %s\n", v.Settle, yesNo(v.Stealth), yesNo(v.Headful))
		if v.SubmitSelector != "" {
			fmt.Fprintf(f.out, "  Submit: %s\n", v.SubmitSelector)
		}
		fmt.Fprintf(f.out, "  Selectors (%d):\n", len(v.Selectors))
		for _, s := range v.Selectors {
			if s.Purpose == "" {
				fmt.Fprintf(f.out, "    %s\n", s.Selector)
				continue
			}
			fmt.Fprintf(f.out, "    %-32s %s\n", s.Selector, f.styles.muted.Render(s.Purpose))
		}
	}
}

func (f *OutputFormatter) printCarriersTable(views []carrierView) error {
	rows := make([][]string, len(views))
	for i, v := range views {
		rows[i] = []string{v.Name, v.DisplayName, strconv.Itoa(len(v.Selectors)), v.Settle, yesNo(v.Stealth), truncate(v.URLTemplate, 60)}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.styles.border).
		Headers("NAME", "CARRIER", "SELECTORS", "SETTLE", "STEALTH", "URL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return f.styles.heading.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	_, err := fmt.Fprintln(f.out, t.Render())
	return err
}

// PrintSuccess prints a success message
func (f *OutputFormatter) PrintSuccess(message string) {
	fmt.Fprintf(f.out, "%s %s\n", f.styles.success.Render("✓"), message)
}

// PrintError prints an error message
func (f *OutputFormatter) PrintError(err error) {
	fmt.Fprintf(f.errOut, "%s %v\n", f.styles.failed.Render("✗ Error:"), err)
}

// PrintInfo prints an informational message
func (f *OutputFormatter) PrintInfo(message string) {
	fmt.Fprintf(f.out, "%s %s\n", f.styles.info.Render("ℹ"), message)
}

// PrintDuration prints how long a run took.
func (f *OutputFormatter) PrintDuration(d time.Duration) {
	fmt.Fprintln(f.out, f.styles.muted.Render(fmt.Sprintf("Completed in %s", d.Round(time.Millisecond))))
}

func (f *OutputFormatter) printJSON(v any) error {
	encoder := json.NewEncoder(f.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// firstChars returns at most n characters of s.
func firstChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
