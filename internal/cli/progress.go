package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProgressSpinner shows the current step of a long operation. On anything
// but a color terminal it prints the initial message once and stays quiet.
type ProgressSpinner struct {
	spinner spinner.Model
	message string
	out     io.Writer
	enabled bool
	style   lipgloss.Style

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewProgressSpinner creates a new progress spinner writing to out
func NewProgressSpinner(message string, noColor bool, out io.Writer) *ProgressSpinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // Blue

	return &ProgressSpinner{
		spinner: s,
		message: message,
		out:     out,
		enabled: !noColor && os.Getenv("CI") == "" && IsTerminal(out),
		style:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")), // Gray for message
	}
}

// Start begins the spinner in a goroutine
func (p *ProgressSpinner) Start() {
	if !p.enabled {
		fmt.Fprintf(p.out, "%s...\n", p.message)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.program != nil {
		return
	}

	prog := &spinnerProgram{
		spinner: p.spinner,
		message: p.message,
		style:   p.style,
	}
	// Input and signals stay with the command so Ctrl+C cancels its context.
	p.program = tea.NewProgram(prog,
		tea.WithOutput(p.out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler())
	p.done = make(chan struct{})

	go func(program *tea.Program, done chan struct{}) {
		defer close(done)
		_, _ = program.Run()
	}(p.program, p.done)
}

// Update replaces the message shown next to the spinner.
func (p *ProgressSpinner) Update(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.program != nil {
		p.program.Send(stepMsg(message))
	}
}

// Stop stops the spinner and waits for it to exit.
func (p *ProgressSpinner) Stop() {
	p.mu.Lock()
	program, done := p.program, p.done
	p.program = nil
	p.mu.Unlock()

	if program != nil {
		program.Quit()
		<-done
	}
}

// spinnerProgram implements the tea.Model interface for the spinner
type spinnerProgram struct {
	spinner spinner.Model
	message string
	style   lipgloss.Style
}

type stepMsg string

func (s *spinnerProgram) Init() tea.Cmd {
	return s.spinner.Tick
}

func (s *spinnerProgram) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepMsg:
		s.message = string(msg)
		return s, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *spinnerProgram) View() string {
	return fmt.Sprintf("%s %s", s.spinner.View(), s.style.Render(s.message))
}
