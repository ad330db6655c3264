package article

import (
	"bytes"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// containerSelectors are tried in order when readability finds too little.
var containerSelectors = []string{"article", "div.article-body", "#article_body", "main"}

const noiseSelector = "script, style, aside, nav, header, footer"

// fallbackText extracts the text of the first known article container,
// with navigation and scripts removed.
func fallbackText(body []byte) (string, bool) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	for _, n := range dom.QuerySelectorAll(doc, noiseSelector) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}

	for _, sel := range containerSelectors {
		node := dom.QuerySelector(doc, sel)
		if node == nil {
			continue
		}
		if text := collapseSpace(dom.TextContent(node)); text != "" {
			return text, true
		}
	}
	return "", false
}
