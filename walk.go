package monolith

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// isFatalAsset reports whether an asset retrieval error must abort the
// whole run. Only non-200 statuses qualify; the retriever suppresses those
// when IgnoreErrors is set.
func isFatalAsset(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// walkAndEmbed traverses the DOM in document order, embedding every
// asset-bearing reference. Attribute replacement within an element happens
// left to right; children are snapshotted before recursion so handlers may
// replace or remove the nodes they visit.
func (p *Processor) walkAndEmbed(ctx context.Context, base *url.URL, n *html.Node, depth int) error {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	if n.Type == html.ElementNode {
		recurse, err := p.embedElement(ctx, base, n, depth)
		if err != nil || !recurse {
			return err
		}
	}
	for _, c := range children {
		if err := p.walkAndEmbed(ctx, base, c, depth); err != nil {
			return err
		}
	}
	return nil
}

// embedElement dispatches on the element name. It reports whether the
// walker should descend into the element's children.
func (p *Processor) embedElement(ctx context.Context, base *url.URL, n *html.Node, depth int) (bool, error) {
	// style attributes can appear on any element
	if v, ok := attrValue(n, "style"); ok && strings.TrimSpace(v) != "" {
		if p.opts.NoCSS {
			setAttr(n, "style", "")
		} else {
			rewritten, err := p.rewriteCSS(ctx, []byte(v), base, depth)
			if err != nil {
				return false, err
			}
			setAttr(n, "style", string(rewritten))
		}
	}

	switch strings.ToLower(n.Data) {
	case "link":
		return true, p.embedLink(ctx, base, n, depth)
	case "style":
		if p.opts.NoCSS {
			removeChildren(n)
			return false, nil
		}
		rewritten, err := p.rewriteCSS(ctx, []byte(textContent(n)), base, depth)
		if err != nil {
			return false, err
		}
		removeChildren(n)
		n.AppendChild(&html.Node{Type: html.TextNode, Data: string(rewritten)})
		return false, nil
	case "script":
		return false, p.embedScript(ctx, base, n, depth)
	case "img":
		if p.opts.NoImages {
			blankAttr(n, "src")
			blankAttr(n, "srcset")
			return true, nil
		}
		if err := p.embedAttr(ctx, base, n, "src", depth); err != nil {
			return false, err
		}
		return true, p.embedSrcsetAttr(ctx, base, n, depth)
	case "input":
		if t, ok := attrValue(n, "type"); ok && strings.EqualFold(t, "image") {
			if p.opts.NoImages {
				blankAttr(n, "src")
				return true, nil
			}
			return true, p.embedAttr(ctx, base, n, "src", depth)
		}
		return true, nil
	case "source":
		inPicture := n.Parent != nil && strings.EqualFold(n.Parent.Data, "picture")
		if inPicture && p.opts.NoImages {
			blankAttr(n, "src")
			blankAttr(n, "srcset")
			return true, nil
		}
		if err := p.embedAttr(ctx, base, n, "src", depth); err != nil {
			return false, err
		}
		return true, p.embedSrcsetAttr(ctx, base, n, depth)
	case "image": // SVG raster reference
		if p.opts.NoImages {
			blankSVGRefs(n)
			return true, nil
		}
		return true, p.embedSVGRef(ctx, base, n, depth)
	case "use":
		return true, p.embedSVGRef(ctx, base, n, depth)
	case "video", "audio":
		if err := p.embedAttr(ctx, base, n, "src", depth); err != nil {
			return false, err
		}
		if p.opts.NoImages {
			blankAttr(n, "poster")
			return true, nil
		}
		return true, p.embedAttr(ctx, base, n, "poster", depth)
	case "track":
		return true, p.embedAttr(ctx, base, n, "src", depth)
	case "embed":
		if p.opts.NoFrames {
			blankAttr(n, "src")
			return true, nil
		}
		return true, p.embedAttr(ctx, base, n, "src", depth)
	case "object":
		if p.opts.NoFrames {
			blankAttr(n, "data")
			return true, nil
		}
		return true, p.embedAttr(ctx, base, n, "data", depth)
	case "iframe", "frame":
		return true, p.embedFrame(ctx, base, n, depth)
	case "a", "area":
		absolutizeAttr(n, "href", base)
		return true, nil
	case "form":
		absolutizeAttr(n, "action", base)
		return true, nil
	case "base":
		// captured by the orchestrator before the walk
		removeAttr(n, "href")
		return true, nil
	case "meta":
		if equiv, ok := attrValue(n, "http-equiv"); ok && strings.EqualFold(equiv, "content-security-policy") {
			removeAttr(n, "content")
		}
		return true, nil
	case "noscript":
		if p.opts.NoJS && p.opts.UnwrapNoscript {
			return false, p.unwrapNoscript(ctx, base, n, depth)
		}
		return true, nil
	}
	return true, nil
}

// embedAttr replaces the named attribute with a data URL of the retrieved
// asset. Empty and fragment-only values stay untouched; retrieval failures
// blank the attribute.
func (p *Processor) embedAttr(ctx context.Context, base *url.URL, n *html.Node, attr string, depth int) error {
	val, ok := attrValue(n, attr)
	if !ok {
		return nil
	}
	ref := strings.TrimSpace(val)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return nil
	}
	resolved := resolveURL(base, ref)
	asset, err := p.retrieve(ctx, base, resolved, depth+1)
	if err != nil {
		if isFatalAsset(err) {
			return err
		}
		setAttr(n, attr, "")
		return nil
	}
	setAttr(n, attr, CreateDataURL(asset.MediaType, asset.Charset, asset.Data, asset.FinalURL).String())
	return nil
}

// embedSrcsetAttr rewrites each comma-separated srcset candidate, keeping
// width and density descriptors in place.
func (p *Processor) embedSrcsetAttr(ctx context.Context, base *url.URL, n *html.Node, depth int) error {
	val, ok := attrValue(n, "srcset")
	if !ok || strings.TrimSpace(val) == "" {
		return nil
	}
	candidates := strings.Split(val, ",")
	rewritten := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		resolved := resolveURL(base, fields[0])
		asset, err := p.retrieve(ctx, base, resolved, depth+1)
		if err != nil {
			if isFatalAsset(err) {
				return err
			}
			fields[0] = ""
		} else {
			fields[0] = CreateDataURL(asset.MediaType, asset.Charset, asset.Data, asset.FinalURL).String()
		}
		rewritten = append(rewritten, strings.Join(fields, " "))
	}
	setAttr(n, "srcset", strings.Join(rewritten, ", "))
	return nil
}

func (p *Processor) embedLink(ctx context.Context, base *url.URL, n *html.Node, depth int) error {
	rel, _ := attrValue(n, "rel")
	switch {
	case relContains(rel, "stylesheet"):
		if p.opts.NoCSS {
			removeNode(n)
			return nil
		}
		href, ok := attrValue(n, "href")
		if !ok || strings.TrimSpace(href) == "" {
			return nil
		}
		resolved := resolveURL(base, strings.TrimSpace(href))
		asset, err := p.retrieve(ctx, base, resolved, depth+1)
		if err != nil {
			if isFatalAsset(err) {
				return err
			}
			removeNode(n)
			return nil
		}
		rewritten, err := p.rewriteCSS(ctx, asset.Data, asset.FinalURL, depth+1)
		if err != nil {
			return err
		}
		style := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
		if media, ok := attrValue(n, "media"); ok {
			style.Attr = append(style.Attr, html.Attribute{Key: "media", Val: media})
		}
		style.AppendChild(&html.Node{Type: html.TextNode, Data: string(rewritten)})
		n.Parent.InsertBefore(style, n)
		removeNode(n)
		return nil
	case isIconRel(rel):
		if p.opts.NoImages {
			removeNode(n)
			return nil
		}
		return p.embedAttr(ctx, base, n, "href", depth)
	case relContains(rel, "preload"), relContains(rel, "prefetch"):
		return p.embedAttr(ctx, base, n, "href", depth)
	default:
		absolutizeAttr(n, "href", base)
		return nil
	}
}

func (p *Processor) embedScript(ctx context.Context, base *url.URL, n *html.Node, depth int) error {
	if p.opts.NoJS {
		removeNode(n)
		return nil
	}
	src, ok := attrValue(n, "src")
	if !ok || strings.TrimSpace(src) == "" {
		return nil
	}
	resolved := resolveURL(base, strings.TrimSpace(src))
	asset, err := p.retrieve(ctx, base, resolved, depth+1)
	if err != nil {
		if isFatalAsset(err) {
			return err
		}
		setAttr(n, "src", "")
		return nil
	}
	removeAttr(n, "src")
	// stale once the body is inlined
	removeAttr(n, "integrity")
	removeAttr(n, "crossorigin")
	removeChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: string(asset.Data)})
	return nil
}

// embedFrame retrieves a frame document, runs the full pipeline on it with
// the frame's final URL as base, and inlines the serialized result.
func (p *Processor) embedFrame(ctx context.Context, base *url.URL, n *html.Node, depth int) error {
	if p.opts.NoFrames {
		setAttr(n, "src", "about:blank")
		return nil
	}
	src, ok := attrValue(n, "src")
	if !ok {
		return nil
	}
	ref := strings.TrimSpace(src)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return nil
	}
	resolved := resolveURL(base, ref)
	asset, err := p.retrieve(ctx, base, resolved, depth+1)
	if err != nil {
		if isFatalAsset(err) {
			return err
		}
		setAttr(n, "src", "")
		return nil
	}
	data, label, err := p.embedDocument(ctx, asset.Data, asset.Charset, asset.FinalURL, depth+1)
	if err != nil {
		return err
	}
	setAttr(n, "src", CreateDataURL("text/html", label, data, asset.FinalURL).String())
	return nil
}

// embedSVGRef rewrites href attributes in any namespace, covering both
// plain href and the xlink:href form used by older SVG renderers.
func (p *Processor) embedSVGRef(ctx context.Context, base *url.URL, n *html.Node, depth int) error {
	for i, a := range n.Attr {
		if !strings.EqualFold(a.Key, "href") {
			continue
		}
		ref := strings.TrimSpace(a.Val)
		if ref == "" || strings.HasPrefix(ref, "#") {
			continue
		}
		resolved := resolveURL(base, ref)
		asset, err := p.retrieve(ctx, base, resolved, depth+1)
		if err != nil {
			if isFatalAsset(err) {
				return err
			}
			n.Attr[i].Val = ""
			continue
		}
		n.Attr[i].Val = CreateDataURL(asset.MediaType, asset.Charset, asset.Data, asset.FinalURL).String()
	}
	return nil
}

func blankSVGRefs(n *html.Node) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, "href") {
			n.Attr[i].Val = ""
		}
	}
}

// unwrapNoscript replaces a noscript element with its contents parsed as
// HTML, then walks the inserted nodes.
func (p *Processor) unwrapNoscript(ctx context.Context, base *url.URL, n *html.Node, depth int) error {
	contextNode := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(textContent(n)), contextNode)
	if err != nil {
		return nil
	}
	for _, inserted := range nodes {
		n.Parent.InsertBefore(inserted, n)
	}
	removeNode(n)
	for _, inserted := range nodes {
		if err := p.walkAndEmbed(ctx, base, inserted, depth); err != nil {
			return err
		}
	}
	return nil
}

func blankAttr(n *html.Node, attr string) {
	if _, ok := attrValue(n, attr); ok {
		setAttr(n, attr, "")
	}
}

func absolutizeAttr(n *html.Node, attr string, base *url.URL) {
	val, ok := attrValue(n, attr)
	if !ok {
		return
	}
	ref := strings.TrimSpace(val)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return
	}
	setAttr(n, attr, resolveURL(base, ref).String())
}

func relContains(rel, token string) bool {
	for _, t := range strings.Fields(strings.ToLower(rel)) {
		if t == token {
			return true
		}
	}
	return false
}
