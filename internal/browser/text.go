package browser

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements whose content is never rendered.
var hiddenElements = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Svg:      true,
}

// Elements rendered on their own line.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Body: true, atom.Dd: true, atom.Details: true, atom.Dialog: true, atom.Div: true,
	atom.Dl: true, atom.Dt: true, atom.Fieldset: true, atom.Figcaption: true,
	atom.Figure: true, atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Summary: true,
	atom.Table: true, atom.Tr: true, atom.Ul: true, atom.Caption: true,
}

// InnerText approximates the browser's innerText for a parsed node: hidden
// content is skipped, whitespace runs collapse to one space, block elements
// start new lines and table cells are separated by tabs. Like the browser,
// an element that is itself not rendered yields its raw text content.
func InnerText(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.ElementNode && isHidden(n) {
		return textContent(n)
	}

	var w textWriter
	w.walk(n, false)
	return w.b.String()
}

func isHidden(n *html.Node) bool {
	if hiddenElements[n.DataAtom] {
		return true
	}
	for _, attr := range n.Attr {
		switch attr.Key {
		case "hidden":
			return true
		case "style":
			style := strings.ToLower(strings.ReplaceAll(attr.Val, " ", ""))
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// textWriter defers separators until the next piece of text so the output
// never starts or ends with a break.
type textWriter struct {
	b            strings.Builder
	pendingBreak bool
	pendingSpace bool
	pendingTab   bool
}

func (w *textWriter) walk(n *html.Node, pre bool) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data, pre)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if isHidden(n) {
			return
		}
		switch n.DataAtom {
		case atom.Br:
			w.lineBreak()
			return
		case atom.Pre, atom.Textarea:
			pre = true
		case atom.Td, atom.Th:
			w.cellBreak()
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		w.lineBreak()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, pre)
	}
	if block {
		w.lineBreak()
	}
}

func (w *textWriter) lineBreak() {
	if w.b.Len() > 0 {
		w.pendingBreak = true
	}
}

func (w *textWriter) cellBreak() {
	if w.b.Len() > 0 && !w.pendingBreak {
		w.pendingTab = true
	}
}

func (w *textWriter) flush() {
	switch {
	case w.pendingBreak:
		w.b.WriteByte('\n')
	case w.pendingTab:
		w.b.WriteByte('\t')
	case w.pendingSpace:
		w.b.WriteByte(' ')
	}
	w.pendingBreak, w.pendingTab, w.pendingSpace = false, false, false
}

func (w *textWriter) text(s string, pre bool) {
	if pre {
		if s != "" {
			w.flush()
			w.b.WriteString(s)
		}
		return
	}

	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" && w.b.Len() > 0 {
			w.pendingSpace = true
		}
		return
	}

	if startsWithSpace(s) && w.b.Len() > 0 {
		w.pendingSpace = true
	}
	w.flush()
	w.b.WriteString(strings.Join(fields, " "))
	if endsWithSpace(s) {
		w.pendingSpace = true
	}
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s, " \t\n\r\f") != s
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s, " \t\n\r\f") != s
}
