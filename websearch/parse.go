package websearch

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Result-page classes, in priority order.
var snippetClasses = []string{"hgKElc", "IZ6rdc", "kno-rdesc", "LGOjhe", "wDYxhc"}

const (
	resultClass      = "tF2Cxc"
	descriptionClass = "VwiC3b"
	minTextLen       = 20
	scannedResults   = 3
	combinedResults  = 2
)

// extract picks a direct-answer snippet or, failing that, combines the
// first organic results and reports combined. ok is false when the page has
// nothing usable.
func extract(r io.Reader) (text string, combined, ok bool, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", false, false, err
	}

	for _, class := range snippetClasses {
		n := findFirst(doc, func(n *html.Node) bool { return hasClass(n, class) })
		if n == nil {
			continue
		}
		if info := textContent(n); utf8.RuneCountInString(info) > minTextLen {
			return info, false, true, nil
		}
	}

	var parts []string
	for _, res := range findAll(doc, func(n *html.Node) bool { return hasClass(n, resultClass) }, scannedResults) {
		title := findFirst(res, func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "h3" })
		desc := findFirst(res, func(n *html.Node) bool { return hasClass(n, descriptionClass) })
		if title == nil || desc == nil {
			continue
		}
		if d := textContent(desc); utf8.RuneCountInString(d) > minTextLen {
			parts = append(parts, textContent(title)+": "+d)
		}
	}
	if len(parts) == 0 {
		return "", false, false, nil
	}
	return strings.Join(parts[:min(len(parts), combinedResults)], "\n\n"), true, true, nil
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns up to limit matches in document order, not descending
// into a match.
func findAll(root *html.Node, match func(*html.Node) bool, limit int) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(out) >= limit {
			return
		}
		if match(n) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
