package monolith

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const (
	ansiColorRed   = "\x1b[31m"
	ansiColorReset = "\x1b[0m"
)

// Asset is the result of one retrieval: the payload, the final URL after
// redirects, and the media type and charset as reported (or sniffed).
// Immutable once produced.
type Asset struct {
	Data      []byte
	FinalURL  *url.URL
	MediaType string
	Charset   string
}

// retrieve fetches the asset at u on behalf of the document at parentURL.
// Scheme dispatch: data URLs are decoded inline, file URLs are only served
// to file-scheme parents, http(s) URLs go through the cache and the network.
// depth controls diagnostic indentation only.
func (p *Processor) retrieve(ctx context.Context, parentURL, u *url.URL, depth int) (*Asset, error) {
	switch u.Scheme {
	case "data":
		mediaType, charset, data, err := ParseDataURL(u)
		if err != nil {
			p.logFailure(depth, u, "malformed data URL")
			return nil, err
		}
		p.logProgress(depth, u.String())
		return &Asset{Data: data, FinalURL: u, MediaType: mediaType, Charset: charset}, nil
	case "file":
		return p.retrieveFile(parentURL, u, depth)
	case "http", "https":
		return p.retrieveHTTP(ctx, u, depth)
	default:
		p.logFailure(depth, u, "unsupported scheme "+u.Scheme)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

// retrieveFile reads a local file. The parent document must itself have
// been loaded from a file: URL; the check runs before any filesystem
// access.
func (p *Processor) retrieveFile(parentURL, u *url.URL, depth int) (*Asset, error) {
	if parentURL.Scheme != "file" {
		p.logFailure(depth, u, "security error")
		return nil, fmt.Errorf("%w: refusing to load %s from %s document", ErrSecurity, u, parentURL.Scheme)
	}
	path := u.Path
	fi, err := os.Stat(path)
	if err != nil {
		p.logFailure(depth, u, "not found")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if fi.IsDir() {
		p.logFailure(depth, u, "is a directory")
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		p.logFailure(depth, u, err.Error())
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	p.logProgress(depth, u.String())
	mediaType := detectMediaType(data, u)
	if mediaType == "" {
		mediaType = detectMediaTypeByFileName(path)
	}
	return &Asset{Data: data, FinalURL: u, MediaType: mediaType}, nil
}

// retrieveHTTP consults the cache by cleaned URL and falls back to a GET
// request. Responses are cached under their final URL after redirects.
func (p *Processor) retrieveHTTP(ctx context.Context, u *url.URL, depth int) (*Asset, error) {
	key := cleanURL(u).String()
	if data, ok := p.cache.get(key); ok {
		p.logProgress(depth, u.String()+" (from cache)")
		return &Asset{Data: data, FinalURL: u}, nil
	}
	return p.cache.fetch(key, func() (*Asset, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			p.logFailure(depth, u, err.Error())
			return nil, err
		}
		req.Header.Set("Accept-Language", "en-US,en;q=0.5")
		if header := cookieHeader(p.cookies, u); header != "" {
			req.Header.Set("Cookie", header)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			p.logFailure(depth, u, err.Error())
			return nil, err
		}
		defer resp.Body.Close()

		finalURL := resp.Request.URL
		mediaType, charset := parseContentType(resp.Header.Get("Content-Type"))
		if resp.StatusCode != http.StatusOK {
			if !p.opts.IgnoreErrors {
				p.logFailure(depth, u, resp.Status)
				return nil, &StatusError{URL: u.String(), Code: resp.StatusCode, Status: resp.Status}
			}
			// ignored failures embed as empty payloads
			p.logProgress(depth, u.String()+" ("+resp.Status+")")
			p.cache.set(cleanURL(finalURL).String(), nil)
			return &Asset{FinalURL: finalURL, MediaType: mediaType, Charset: charset}, nil
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			p.logFailure(depth, u, err.Error())
			return nil, err
		}
		if finalURL.String() == u.String() {
			p.logProgress(depth, u.String())
		} else {
			p.logProgress(depth, u.String()+" -> "+finalURL.String())
		}
		p.cache.set(cleanURL(finalURL).String(), data)
		return &Asset{Data: data, FinalURL: finalURL, MediaType: mediaType, Charset: charset}, nil
	})
}

// parseContentType splits a Content-Type header value into media type and
// charset parameter.
func parseContentType(header string) (mediaType, charset string) {
	if header == "" {
		return "", ""
	}
	mt, params, err := mime.ParseMediaType(header)
	if err != nil {
		return "", ""
	}
	return mt, params["charset"]
}

func (p *Processor) logProgress(depth int, msg string) {
	if p.opts.Silent {
		return
	}
	p.log.Printf("%s%s", indent(depth), msg)
}

func (p *Processor) logFailure(depth int, u *url.URL, reason string) {
	if p.opts.Silent {
		return
	}
	if p.opts.NoColor {
		p.log.Printf("%s%s (%s)", indent(depth), u, reason)
		return
	}
	p.log.Printf("%s%s%s (%s)%s", indent(depth), ansiColorRed, u, reason, ansiColorReset)
}

func indent(depth int) string {
	return strings.Repeat(" ", depth)
}
