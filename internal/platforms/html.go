package platforms

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Small traversal helpers over golang.org/x/net/html for the adapters that
// scrape semi-structured markup instead of consuming JSON.

func parseHTML(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// findAllByClass returns, in document order, every element with the given
// tag name (any tag when empty) carrying the given class.
func findAllByClass(n *html.Node, tag, class string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && (tag == "" || node.Data == tag) && hasClass(node, class) {
			found = append(found, node)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return found
}

func findByClass(n *html.Node, tag, class string) *html.Node {
	all := findAllByClass(n, tag, class)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

func findByTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findByTag(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// nodeText concatenates the text content below n, trimmed of surrounding
// whitespace.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	sb := strings.Builder{}
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
