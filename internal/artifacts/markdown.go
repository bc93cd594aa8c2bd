package artifacts

import (
	"fmt"
	"net/url"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// The base plugin drops script, style, head and similar noise; tables are
// kept since tracking histories are usually rendered as tables.
var markdownConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(
			table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
		),
	),
)

// ToMarkdown converts rendered HTML to markdown. Relative links are resolved
// against the scheme and host of pageURL.
func ToMarkdown(markup, pageURL string) (string, error) {
	domain := ""
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		domain = u.Scheme + "://" + u.Host
	}

	md, err := markdownConverter.ConvertString(markup, converter.WithDomain(domain))
	if err != nil {
		return "", fmt.Errorf("failed to convert page to markdown: %w", err)
	}
	return md, nil
}

// WriteMarkdown saves a markdown rendering of the page.
func (w *Writer) WriteMarkdown(markup, pageURL string) (string, error) {
	md, err := ToMarkdown(markup, pageURL)
	if err != nil {
		return "", err
	}
	return w.write(KindMarkdown, []byte(md))
}
