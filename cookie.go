package monolith

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Cookie is a single entry of a Netscape cookie file.
type Cookie struct {
	Domain     string
	Tailmatch  bool
	Path       string
	Secure     bool
	Expiration int64 // unix seconds
	Name       string
	Value      string
}

// Expired reports whether the cookie's expiration time has passed.
func (c *Cookie) Expired() bool {
	return c.Expiration < time.Now().Unix()
}

// MatchesURL reports whether the cookie applies to u: the scheme must be
// http or https (https only for secure cookies), the host must equal Domain
// case-insensitively or, with Tailmatch, be a subdomain of it, the path must
// begin with Path, and the cookie must not be expired.
func (c *Cookie) MatchesURL(u *url.URL) bool {
	switch u.Scheme {
	case "http":
		if c.Secure {
			return false
		}
	case "https":
	default:
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain := strings.ToLower(c.Domain)
	if host != domain && !(c.Tailmatch && strings.HasSuffix(host, "."+domain)) {
		return false
	}
	if !strings.HasPrefix(u.Path, c.Path) {
		return false
	}
	return !c.Expired()
}

// ParseCookies reads a Netscape cookie file: one tab-separated cookie per
// line, with #-prefixed and blank lines ignored. Fields are domain,
// tailmatch, path, secure, expiration, name, value. Surrounding double
// quotes around the value are stripped.
func ParseCookies(r io.Reader) ([]*Cookie, error) {
	var cookies []*Cookie
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 7 {
			return nil, fmt.Errorf("%w: line %d has %d fields, want 7", ErrCookieSyntax, line, len(fields))
		}
		expiration, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad expiration %q", ErrCookieSyntax, line, fields[4])
		}
		value := fields[6]
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}
		cookies = append(cookies, &Cookie{
			Domain:     fields[0],
			Tailmatch:  fields[1] == "TRUE",
			Path:       fields[2],
			Secure:     fields[3] == "TRUE",
			Expiration: expiration,
			Name:       fields[5],
			Value:      value,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cookies, nil
}

// cookieHeader joins the name=value pairs of all cookies applicable to u
// with "; ", suitable for a Cookie request header. Expired cookies are
// filtered out.
func cookieHeader(cookies []*Cookie, u *url.URL) string {
	var pairs []string
	for _, c := range cookies {
		if c.Expired() || !c.MatchesURL(u) {
			continue
		}
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}
