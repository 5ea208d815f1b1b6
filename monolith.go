// Package monolith turns a web page or local HTML file into a single
// self-contained document by recursively retrieving every referenced asset
// (stylesheets, scripts, images, fonts, frames, media) and inlining its
// bytes as data URLs. The resulting file opens offline without any further
// network access.
//
// The pipeline is: retrieve the target, parse it into a DOM, detect the
// document charset, walk the tree embedding every asset-bearing reference
// (recursing into stylesheets, frames and SVG), compose a
// Content-Security-Policy for the active exclusions, and serialize the
// rewritten tree in the chosen charset.
//
// # Security
//
// file: URLs are only retrieved on behalf of documents that were themselves
// loaded from the filesystem; a remote page can never pull local files into
// its snapshot.
package monolith

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/artyom/useragent"
	"golang.org/x/net/html"
)

// Version is reported in the User-Agent string and the metadata comment.
const Version = "1.0.0"

const defaultUserAgent = "Mozilla/5.0 (compatible; monolith/" + Version + ")"

// Processor drives the asset-embedding pipeline. All fields are fixed
// after New returns; the asset cache is the only mutable state and lives
// for one Processor.
type Processor struct {
	opts    Options
	client  *http.Client
	log     Logger
	cache   *assetCache
	cookies []*Cookie
}

// New returns an initialized Processor. Without configuration functions,
// an http.Client is built from the Options (timeout, TLS verification,
// User-Agent) and diagnostics are discarded.
func New(opts Options, conf ...ConfFunc) *Processor {
	p := &Processor{opts: opts, cache: newAssetCache()}
	for _, f := range conf {
		p = f(p)
	}
	if p.log == nil {
		p.log = log.New(io.Discard, "", 0)
	}
	if p.client == nil {
		p.client = newHTTPClient(opts)
	}
	return p
}

func newHTTPClient(opts Options) *http.Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	agent := opts.UserAgent
	if agent == "" {
		agent = defaultUserAgent
	}
	return &http.Client{
		Timeout:   time.Duration(opts.Timeout) * time.Second,
		Transport: useragent.Set(transport, agent),
	}
}

// ResolveTarget maps the target argument to a URL: data/file/http/https
// URLs pass through, an existing filesystem path becomes a file: URL, and
// anything else is tried with an http:// prefix the way browsers do.
func ResolveTarget(target string) (*url.URL, error) {
	if target == "" {
		return nil, fmt.Errorf("no target specified")
	}
	if u, err := url.Parse(target); err == nil {
		switch u.Scheme {
		case "data", "file", "http", "https":
			return u, nil
		}
	}
	if abs, err := filepath.Abs(target); err == nil {
		if fi, err := os.Stat(abs); err == nil {
			if fi.IsDir() {
				return nil, fmt.Errorf("local target is not a file: %s", target)
			}
			return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}, nil
		}
	}
	u, err := url.Parse("http://" + target)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("could not resolve target: %s", target)
	}
	return u, nil
}

// Document runs the full pipeline against target and returns the finished
// output bytes. Targets whose media type is not HTML are returned verbatim.
func (p *Processor) Document(ctx context.Context, target string) ([]byte, error) {
	targetURL, err := ResolveTarget(target)
	if err != nil {
		return nil, err
	}
	asset, err := p.retrieve(ctx, targetURL, targetURL, 0)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve target document: %w", err)
	}
	if !isHTMLMediaType(asset.MediaType) {
		// provide output as-is, the way browsers do
		return asset.Data, nil
	}
	return p.finish(ctx, asset.Data, asset.Charset, targetURL, asset.FinalURL)
}

// DocumentFromBytes runs the pipeline on already-loaded document bytes
// (stdin input), with targetURL as both source and initial base URL.
func (p *Processor) DocumentFromBytes(ctx context.Context, data []byte, targetURL *url.URL) ([]byte, error) {
	return p.finish(ctx, data, "", targetURL, targetURL)
}

func isHTMLMediaType(mediaType string) bool {
	return strings.EqualFold(mediaType, "text/html") ||
		strings.EqualFold(mediaType, "application/xhtml+xml")
}

// finish is the outer-document half of the pipeline: base URL resolution,
// walking, favicon and metadata injection, charset override, serialization.
func (p *Processor) finish(ctx context.Context, data []byte, headerCharset string, targetURL, finalURL *url.URL) ([]byte, error) {
	doc, label := p.parseWithCharset(data, headerCharset)

	base := p.resolveBaseURL(doc, targetURL, finalURL)
	if err := p.walkAndEmbed(ctx, base, doc, 0); err != nil {
		return nil, err
	}
	if p.opts.BaseURL != "" {
		// reroute leftover relative requests and hash-links
		setBaseURL(doc, p.opts.BaseURL)
	}
	if p.opts.hasExclusions() {
		injectCSP(doc, composeCSP(p.opts))
	}

	if !p.opts.NoImages && (targetURL.Scheme == "http" || targetURL.Scheme == "https") && !hasFavicon(doc) {
		faviconURL := resolveURL(base, "/favicon.ico")
		if asset, err := p.retrieve(ctx, targetURL, faviconURL, 0); err == nil {
			addFavicon(doc, CreateDataURL(asset.MediaType, asset.Charset, asset.Data, asset.FinalURL).String())
		} else if !p.opts.Silent {
			p.log.Printf("failed to retrieve %s", faviconURL)
		}
	}

	if p.opts.Charset != "" {
		label = p.opts.Charset
		setDocumentCharset(doc, label)
	}
	out, err := serializeDocument(doc, label)
	if err != nil {
		return nil, err
	}
	if !p.opts.NoMetadata {
		out = append([]byte(metadataComment(targetURL)), out...)
	}
	return out, nil
}

// embedDocument is the re-entrant pipeline used for framed documents:
// parse, walk with the frame's own base, inject CSP, serialize. The shared
// cache makes cross-frame assets fetch once.
func (p *Processor) embedDocument(ctx context.Context, data []byte, headerCharset string, base *url.URL, depth int) ([]byte, string, error) {
	doc, label := p.parseWithCharset(data, headerCharset)
	if docBase := documentBaseHref(doc); docBase != "" {
		base = resolveURL(base, docBase)
	}
	if err := p.walkAndEmbed(ctx, base, doc, depth); err != nil {
		return nil, "", err
	}
	if p.opts.hasExclusions() {
		injectCSP(doc, composeCSP(p.opts))
	}
	out, err := serializeDocument(doc, label)
	if err != nil {
		return nil, "", err
	}
	return out, label, nil
}

// parseWithCharset parses data using the transport charset as the initial
// guess and, when the document declares a different recognized charset in a
// meta element, re-decodes and re-parses with that one. The HTML
// declaration is authoritative over the transport header; Options.Charset
// only affects serialization, never the decode.
func (p *Processor) parseWithCharset(data []byte, headerCharset string) (*html.Node, string) {
	label := headerCharset
	doc := parseHTML(data, label)
	if metaLabel := documentCharset(doc); metaLabel != "" && !strings.EqualFold(metaLabel, label) {
		if _, _, ok := encodingByLabel(metaLabel); ok {
			label = metaLabel
			doc = parseHTML(data, label)
		}
	}
	return doc, label
}

// resolveBaseURL applies the base URL priority: Options.BaseURL, then the
// document's own <base href>, then the final URL of the target document.
func (p *Processor) resolveBaseURL(doc *html.Node, targetURL, finalURL *url.URL) *url.URL {
	if p.opts.BaseURL == "" {
		if docBase := documentBaseHref(doc); docBase != "" {
			return resolveURL(targetURL, docBase)
		}
		c := *finalURL
		return &c
	}
	// an inapplicable or unusable custom base falls back to the target URL
	if u, err := url.Parse(p.opts.BaseURL); err == nil && u.Scheme != "" {
		if u.Scheme != "file" || targetURL.Scheme == "file" {
			// file base URLs only work for documents saved from the filesystem
			return u
		}
		c := *targetURL
		return &c
	}
	if targetURL.Scheme == "file" {
		// relative paths can serve as base for filesystem documents
		if abs, err := filepath.Abs(p.opts.BaseURL); err == nil {
			if _, err := os.Stat(abs); err == nil {
				return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
			}
		}
	}
	c := *targetURL
	return &c
}
