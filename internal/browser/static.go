package browser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"carrier-probe/internal/probe"
)

// StaticPage is a probe.Page over a saved HTML snapshot, used to re-run
// selectors against a rendered page dump without a browser.
type StaticPage struct {
	doc *goquery.Document
}

// NewStaticPage parses an HTML document.
func NewStaticPage(r io.Reader) (*StaticPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &StaticPage{doc: doc}, nil
}

// LoadStaticPage parses the HTML file at path.
func LoadStaticPage(path string) (*StaticPage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	return NewStaticPage(f)
}

// Alive reports whether the snapshot is still loaded.
func (p *StaticPage) Alive() error {
	if p == nil || p.doc == nil {
		return probe.ErrPageUnavailable
	}
	return nil
}

// Close discards the parsed document.
func (p *StaticPage) Close() {
	p.doc = nil
}

// QueryAll compiles selector with cascadia so that syntax errors surface as
// errors rather than as an empty match, as goquery's Find would do.
func (p *StaticPage) QueryAll(selector string) ([]probe.Element, error) {
	if err := p.Alive(); err != nil {
		return nil, err
	}

	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, err
	}

	nodes := p.doc.FindMatcher(matcher).Nodes
	elements := make([]probe.Element, len(nodes))
	for i, n := range nodes {
		elements[i] = staticElement{node: n}
	}
	return elements, nil
}

// Markup renders the document back to HTML.
func (p *StaticPage) Markup() (string, error) {
	if err := p.Alive(); err != nil {
		return "", err
	}
	return goquery.OuterHtml(p.doc.Selection)
}

// Title returns the text of the first title element.
func (p *StaticPage) Title() string {
	if p.Alive() != nil {
		return ""
	}
	return strings.TrimSpace(p.doc.Find("title").First().Text())
}

// VisibleText returns the rendered text of the first element matching scope.
func (p *StaticPage) VisibleText(scope string) (string, error) {
	elements, err := p.QueryAll(scope)
	if err != nil || len(elements) == 0 {
		return "", err
	}
	return elements[0].VisibleText()
}

type staticElement struct {
	node *html.Node
}

func (e staticElement) VisibleText() (string, error) {
	return InnerText(e.node), nil
}
