package monolith

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// resolveURL resolves ref against base per RFC 3986. A ref starting with
// "#" yields base with only the fragment replaced. Unparsable refs resolve
// to a copy of base.
func resolveURL(base *url.URL, ref string) *url.URL {
	u, err := url.Parse(ref)
	if err != nil {
		c := *base
		return &c
	}
	return base.ResolveReference(u)
}

// cleanURL returns a copy of u with the fragment removed and an empty query
// stripped. The resulting string is used as cache key.
func cleanURL(u *url.URL) *url.URL {
	c := *u
	c.Fragment = ""
	if c.RawQuery == "" {
		c.ForceQuery = false
	}
	return &c
}

// CreateDataURL encodes data as a base64 data URL. An empty mediaType is
// sniffed from the payload and finalURL first and omitted only if still
// undetectable; charset is carried for plaintext payloads only and omitted
// when empty or US-ASCII.
func CreateDataURL(mediaType, charset string, data []byte, finalURL *url.URL) *url.URL {
	if mediaType == "" {
		mediaType = detectMediaType(data, finalURL)
	}
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(mediaType)
	if charset != "" && !strings.EqualFold(charset, "US-ASCII") && isPlaintextMediaType(mediaType) {
		b.WriteString(";charset=")
		b.WriteString(charset)
	}
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	u, err := url.Parse(b.String())
	if err != nil {
		// base64 payloads always parse; reachable only via a broken
		// mediaType, fall back to an empty document
		u, _ = url.Parse("data:text/html,")
	}
	return u
}

// ParseDataURL decodes a data URL into its media type, charset and payload.
// Both base64 and percent-encoded bodies are accepted. Media type defaults
// to text/plain, charset to US-ASCII.
func ParseDataURL(u *url.URL) (mediaType, charset string, data []byte, err error) {
	mediaType = "text/plain"
	charset = "US-ASCII"
	if u.Scheme != "data" {
		return "", "", nil, fmt.Errorf("%w: not a data URL: %s", ErrDecode, u)
	}
	raw := u.Opaque
	if raw == "" {
		raw = u.Path // some parsers put the body here for "data:,..."
	}
	head, body, found := strings.Cut(raw, ",")
	if !found {
		return "", "", nil, fmt.Errorf("%w: data URL without comma: %s", ErrDecode, u)
	}
	base64Body := false
	for i, param := range strings.Split(head, ";") {
		switch {
		case i == 0:
			if param != "" {
				mediaType = param
			}
		case strings.EqualFold(param, "base64"):
			base64Body = true
		case strings.HasPrefix(strings.ToLower(param), "charset="):
			if v := param[len("charset="):]; v != "" {
				charset = v
			}
		}
	}
	if base64Body {
		data, err = base64.StdEncoding.DecodeString(body)
		if err != nil {
			return "", "", nil, fmt.Errorf("%w: bad base64 payload: %v", ErrDecode, err)
		}
	} else {
		s, err := url.PathUnescape(body)
		if err != nil {
			return "", "", nil, fmt.Errorf("%w: bad percent-encoded payload: %v", ErrDecode, err)
		}
		data = []byte(s)
	}
	return mediaType, charset, data, nil
}
