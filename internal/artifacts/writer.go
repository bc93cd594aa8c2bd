// Package artifacts persists what a discovery run captured from the page so
// selectors can be refined offline: rendered markup, a screenshot, visible
// text, an optional markdown rendering and a JSON run report.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Kind identifies one artifact of a run.
type Kind string

const (
	KindMarkup     Kind = "html"
	KindScreenshot Kind = "screenshot"
	KindText       Kind = "text"
	KindMarkdown   Kind = "markdown"
	KindReport     Kind = "report"
)

var suffixes = map[Kind]string{
	KindMarkup:     "_rendered.html",
	KindScreenshot: "_screenshot.png",
	KindText:       "_text.txt",
	KindMarkdown:   "_page.md",
	KindReport:     "_report.json",
}

// Writer writes the artifacts of one run into a directory. File names are
// the sanitized prefix followed by a per-kind suffix; existing files are
// overwritten.
type Writer struct {
	dir     string
	prefix  string
	written map[Kind]string
}

// NewWriter creates dir if needed.
func NewWriter(dir, prefix string) (*Writer, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	prefix = sanitize(prefix)
	if prefix == "" {
		prefix = "page"
	}
	return &Writer{dir: dir, prefix: prefix, written: make(map[Kind]string)}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns where an artifact of the given kind is written.
func (w *Writer) Path(kind Kind) string {
	return filepath.Join(w.dir, w.prefix+suffixes[kind])
}

// Written returns the paths written so far, by kind.
func (w *Writer) Written() map[Kind]string {
	out := make(map[Kind]string, len(w.written))
	for k, v := range w.written {
		out[k] = v
	}
	return out
}

// WriteMarkup saves the rendered document.
func (w *Writer) WriteMarkup(markup string) (string, error) {
	return w.write(KindMarkup, []byte(markup))
}

// WriteScreenshot saves a PNG screenshot.
func (w *Writer) WriteScreenshot(png []byte) (string, error) {
	return w.write(KindScreenshot, png)
}

// WriteText saves the page's visible text.
func (w *Writer) WriteText(text string) (string, error) {
	return w.write(KindText, []byte(text))
}

func (w *Writer) write(kind Kind, data []byte) (string, error) {
	path := w.Path(kind)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s artifact: %w", kind, err)
	}
	w.written[kind] = path
	return path, nil
}

// sanitize keeps file names portable.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return unicode.ToLower(r)
		case r == ' ' || r == '.' || r == '/':
			return '_'
		}
		return -1
	}, strings.TrimSpace(s))
}
