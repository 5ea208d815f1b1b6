package monolith

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func removeNode(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// textContent concatenates the text children of n.
func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// findElement returns the first element named name in document order.
func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, name) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

// parseHTML decodes data from the labeled charset and parses it into a DOM.
func parseHTML(data []byte, label string) *html.Node {
	var r io.Reader = bytes.NewReader(data)
	if label != "" {
		r = decodeReader(data, label)
	}
	doc, err := html.Parse(r)
	if err != nil {
		// only reachable through reader errors the decoder surfaces
		doc = &html.Node{Type: html.DocumentNode}
	}
	return doc
}

// documentCharset scans the DOM for a <meta charset> or
// <meta http-equiv="Content-Type"> declaration.
func documentCharset(doc *html.Node) string {
	var found string
	var scan func(*html.Node) bool
	scan = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
			if cs, ok := attrValue(n, "charset"); ok && cs != "" {
				found = cs
				return true
			}
			if equiv, ok := attrValue(n, "http-equiv"); ok && strings.EqualFold(equiv, "content-type") {
				if content, ok := attrValue(n, "content"); ok {
					if _, cs := parseContentType(content); cs != "" {
						found = cs
						return true
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if scan(c) {
				return true
			}
		}
		return false
	}
	scan(doc)
	return found
}

// setDocumentCharset updates the document's charset declaration, inserting
// a <meta charset> when none exists.
func setDocumentCharset(doc *html.Node, label string) {
	var meta *html.Node
	var scan func(*html.Node)
	scan = func(n *html.Node) {
		if meta != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
			if _, ok := attrValue(n, "charset"); ok {
				setAttr(n, "charset", label)
				meta = n
				return
			}
			if equiv, ok := attrValue(n, "http-equiv"); ok && strings.EqualFold(equiv, "content-type") {
				setAttr(n, "content", "text/html; charset="+label)
				meta = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			scan(c)
		}
	}
	scan(doc)
	if meta != nil {
		return
	}
	if head := findElement(doc, "head"); head != nil {
		meta = &html.Node{Type: html.ElementNode, Data: "meta", DataAtom: atom.Meta,
			Attr: []html.Attribute{{Key: "charset", Val: label}}}
		head.InsertBefore(meta, head.FirstChild)
	}
}

// documentBaseHref returns the href of the first <base> element, if any.
func documentBaseHref(doc *html.Node) string {
	if base := findElement(doc, "base"); base != nil {
		if href, ok := attrValue(base, "href"); ok {
			return href
		}
	}
	return ""
}

// setBaseURL updates the document's <base> element, creating one as the
// first child of <head> when missing.
func setBaseURL(doc *html.Node, href string) {
	if base := findElement(doc, "base"); base != nil {
		setAttr(base, "href", href)
		return
	}
	if head := findElement(doc, "head"); head != nil {
		base := &html.Node{Type: html.ElementNode, Data: "base", DataAtom: atom.Base,
			Attr: []html.Attribute{{Key: "href", Val: href}}}
		head.InsertBefore(base, head.FirstChild)
	}
}

// hasFavicon reports whether the document links an icon.
func hasFavicon(doc *html.Node) bool {
	var found bool
	var scan func(*html.Node)
	scan = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Link {
			if rel, ok := attrValue(n, "rel"); ok && isIconRel(rel) {
				found = true
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			scan(c)
		}
	}
	scan(doc)
	return found
}

func isIconRel(rel string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if token == "icon" || token == "apple-touch-icon" {
			return true
		}
	}
	return false
}

// addFavicon appends a <link rel="icon"> to <head>.
func addFavicon(doc *html.Node, href string) {
	head := findElement(doc, "head")
	if head == nil {
		return
	}
	link := &html.Node{Type: html.ElementNode, Data: "link", DataAtom: atom.Link,
		Attr: []html.Attribute{{Key: "rel", Val: "icon"}, {Key: "href", Val: href}}}
	head.AppendChild(link)
}

// injectCSP inserts a Content-Security-Policy meta element as the first
// child of <head>. Empty content is a no-op.
func injectCSP(doc *html.Node, content string) {
	if content == "" {
		return
	}
	head := findElement(doc, "head")
	if head == nil {
		return
	}
	meta := &html.Node{Type: html.ElementNode, Data: "meta", DataAtom: atom.Meta,
		Attr: []html.Attribute{
			{Key: "http-equiv", Val: "Content-Security-Policy"},
			{Key: "content", Val: content},
		}}
	head.InsertBefore(meta, head.FirstChild)
}

// serializeDocument renders the DOM and re-encodes the result in the
// labeled charset.
func serializeDocument(doc *html.Node, label string) ([]byte, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	data := buf.Bytes()
	if label != "" {
		data = encodeBytes(data, label)
	}
	return data, nil
}

// metadataComment is the banner prepended to the output document.
func metadataComment(target *url.URL) string {
	source := "local source"
	switch target.Scheme {
	case "http", "https", "file":
		source = target.String()
	}
	timestamp := time.Now().Format(time.RFC1123Z)
	return fmt.Sprintf("<!-- Saved from %s at %s using monolith v%s -->\n", source, timestamp, Version)
}
