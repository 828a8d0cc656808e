package envelope

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Select runs a CSS selector over the body. A missing response or an
// unparseable document yields an empty selection.
func (e Envelope) Select(selector string) *goquery.Selection {
	if e.response == nil {
		return &goquery.Selection{}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(e.response.Text()))
	if err != nil {
		return &goquery.Selection{}
	}
	return doc.Find(selector)
}

// XPath runs an XPath expression over the body and returns matching nodes
// in document order. Invalid expressions and missing responses yield nil.
func (e Envelope) XPath(expr string) []*html.Node {
	doc := e.htmlNode()
	if doc == nil {
		return nil
	}
	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		return nil
	}
	return nodes
}

// XPathText is XPath returning the inner text of each match.
func (e Envelope) XPathText(expr string) []string {
	nodes := e.XPath(expr)
	if len(nodes) == 0 {
		return nil
	}
	texts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		texts = append(texts, htmlquery.InnerText(n))
	}
	return texts
}

func (e Envelope) htmlNode() *html.Node {
	if e.response == nil {
		return nil
	}
	doc, err := htmlquery.Parse(strings.NewReader(e.response.Text()))
	if err != nil {
		return nil
	}
	return doc
}

// markdownConverter is shared; converter.Converter is safe for concurrent use.
var markdownConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(
			table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
		),
	),
)

// Markdown converts the body from HTML to GitHub-flavored Markdown.
// Relative links resolve against the response URL. Conversion failures
// and missing responses yield "".
func (e Envelope) Markdown() string {
	if e.response == nil {
		return ""
	}
	text := e.response.Text()
	u := e.URL()
	if u == nil || u.Host == "" {
		markdown, err := markdownConverter.ConvertString(text)
		if err != nil {
			return ""
		}
		return markdown
	}
	markdown, err := markdownConverter.ConvertString(text, converter.WithDomain(u.Scheme+"://"+u.Host))
	if err != nil {
		return ""
	}
	return markdown
}
