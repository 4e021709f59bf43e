package scraper

import (
	"strings"

	"golang.org/x/net/html"
)

// SimpleNormalizer turns an HTML fragment into collapsed plain text.
type SimpleNormalizer struct{}

func NewSimpleNormalizer() *SimpleNormalizer {
	return &SimpleNormalizer{}
}

func (n *SimpleNormalizer) Normalize(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}
	return collapseSpace(ExtractText(doc)), nil
}

// ExtractText returns the concatenated text of n, skipping script and style
// elements and separating block-level children with spaces.
func ExtractText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "br", "p", "li", "div", "h1", "h2", "h3", "h4", "tr":
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// adjacentText returns the first non-empty text following n among its
// siblings.
func adjacentText(n *html.Node) string {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		var t string
		switch s.Type {
		case html.TextNode:
			t = s.Data
		case html.ElementNode:
			t = ExtractText(s)
		}
		if t = collapseSpace(t); t != "" {
			return t
		}
	}
	return ""
}
