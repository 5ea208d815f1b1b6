package monolith

import (
	"net/http"

	"github.com/bradfitz/gomemcache/memcache"
)

// Options holds the run configuration. It is built once at startup and
// consumed read-only by every component. Flag tags are used by the command
// line frontend (via autoflags); the zero value embeds everything.
type Options struct {
	NoCSS      bool `flag:"no-css,remove CSS"`
	NoFonts    bool `flag:"no-fonts,remove fonts"`
	NoFrames   bool `flag:"no-frames,remove frames and iframes"`
	NoImages   bool `flag:"no-images,remove images"`
	NoJS       bool `flag:"no-js,remove JavaScript"`
	Isolate    bool `flag:"isolate,cut off document from the Internet"`
	NoMetadata bool `flag:"no-metadata,exclude timestamp and source information"`

	IgnoreErrors   bool `flag:"ignore-errors,ignore network errors"`
	UnwrapNoscript bool `flag:"unwrap-noscript,replace NOSCRIPT elements with their contents"`

	Silent  bool `flag:"silent,suppress verbosity"`
	NoColor bool `flag:"no-color,disable ANSI colors in diagnostics"`

	Insecure  bool   `flag:"insecure,allow invalid X.509 (TLS) certificates"`
	Timeout   uint   `flag:"timeout,adjust network request timeout (seconds)"`
	UserAgent string `flag:"user-agent,set custom User-Agent string"`

	BaseURL    string `flag:"base-url,set custom base URL"`
	Charset    string `flag:"charset,enforce custom charset for output"`
	Output     string `flag:"output,write output to file instead of stdout"`
	CookieFile string `flag:"cookie-file,read cookies from Netscape cookie file"`
}

// hasExclusions reports whether any option contributing a CSP directive is
// set.
func (o Options) hasExclusions() bool {
	return o.Isolate || o.NoCSS || o.NoFonts || o.NoFrames || o.NoJS || o.NoImages
}

// ConfFunc is used to configure a new Processor; such functions should be
// used as arguments to New.
type ConfFunc func(*Processor) *Processor

// WithHTTPClient configures the Processor to use the provided http.Client
// for outgoing requests instead of the one built from Options.
func WithHTTPClient(client *http.Client) ConfFunc {
	return func(p *Processor) *Processor {
		if client != nil {
			p.client = client
		}
		return p
	}
}

// WithMemcache configures the Processor to additionally cache retrieved
// assets in memcached, so repeated runs against the same site skip the
// network.
func WithMemcache(client *memcache.Client) ConfFunc {
	return func(p *Processor) *Processor {
		if client != nil {
			p.cache.mc = client
		}
		return p
	}
}

// WithCookies configures the Processor to attach matching cookies to
// outgoing http(s) requests.
func WithCookies(cookies []*Cookie) ConfFunc {
	return func(p *Processor) *Processor {
		p.cookies = cookies
		return p
	}
}

// WithLogger configures the Processor to emit retrieval progress and
// failure diagnostics through the provided logger.
func WithLogger(l Logger) ConfFunc {
	return func(p *Processor) *Processor {
		if l != nil {
			p.log = l
		}
		return p
	}
}

// Logger describes the set of methods used for diagnostics; the standard
// lib *log.Logger implements this interface.
type Logger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}
