package cleaner

import (
	nurl "net/url"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// newMarkdownConverter creates a reusable, goroutine-safe Converter:
//
//   - base plugin: strips script, style, iframe, noscript and comments.
//   - commonmark plugin: headings, lists, links, code, emphasis.
//   - table plugin: keeps table structure with minimal cell padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// ToMarkdown converts HTML to Markdown, resolving relative links in <a> and
// <img> against pageURL's origin.
func ToMarkdown(conv *converter.Converter, htmlContent string, pageURL string) (string, error) {
	domain := ""
	if u, err := nurl.Parse(pageURL); err == nil && u.Host != "" {
		domain = u.Scheme + "://" + u.Host
	}
	return conv.ConvertString(htmlContent, converter.WithDomain(domain))
}
