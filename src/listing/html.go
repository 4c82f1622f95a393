package listing

import (
	"io"
	"net/url"

	"golang.org/x/net/html"
)

// parseAnchors reads an HTML document and returns the targets of all anchor
// elements resolved against the document URL, in document order.
func parseAnchors(r io.Reader, docURL *url.URL) ([]*url.URL, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var links []*url.URL
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if ref, err := url.Parse(attr.Val); err == nil {
					links = append(links, docURL.ResolveReference(ref))
				}
				break
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}
