package monolith

import (
	"bytes"
	"net/url"
	"testing"
)

func mustParse(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", s, err)
	}
	return u
}

func TestCleanURL(t *testing.T) {
	table := []struct{ input, want string }{
		{"https://example.com/page.html#section", "https://example.com/page.html"},
		{"https://example.com/page.html?", "https://example.com/page.html"},
		{"https://example.com/page.html?a=1#x", "https://example.com/page.html?a=1"},
		{"https://example.com/", "https://example.com/"},
	}
	for _, tt := range table {
		got := cleanURL(mustParse(t, tt.input)).String()
		if got != tt.want {
			t.Errorf("cleanURL(%q): want %q, got %q", tt.input, tt.want, got)
		}
		// cleaning is idempotent
		if again := cleanURL(mustParse(t, got)).String(); again != got {
			t.Errorf("cleanURL not idempotent for %q: %q != %q", tt.input, again, got)
		}
	}
}

func TestResolveURL(t *testing.T) {
	base := mustParse(t, "https://example.com/dir/page.html")
	table := []struct{ ref, want string }{
		{"image.png", "https://example.com/dir/image.png"},
		{"/image.png", "https://example.com/image.png"},
		{"//cdn.example.org/lib.js", "https://cdn.example.org/lib.js"},
		{"#anchor", "https://example.com/dir/page.html#anchor"},
		{"https://other.example.com/x", "https://other.example.com/x"},
	}
	for _, tt := range table {
		if got := resolveURL(base, tt.ref).String(); got != tt.want {
			t.Errorf("resolveURL(%q): want %q, got %q", tt.ref, tt.want, got)
		}
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	payload := []byte("target")
	u := CreateDataURL("text/html", "US-ASCII", payload, nil)
	if want := "data:text/html;base64,dGFyZ2V0"; u.String() != want {
		t.Fatalf("unexpected data URL, want %q, got %q", want, u)
	}
	mediaType, charset, data, err := ParseDataURL(u)
	if err != nil {
		t.Fatal(err)
	}
	if mediaType != "text/html" {
		t.Errorf("unexpected media type, want %q, got %q", "text/html", mediaType)
	}
	if charset != "US-ASCII" {
		t.Errorf("unexpected charset, want %q, got %q", "US-ASCII", charset)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("unexpected payload, want %q, got %q", payload, data)
	}
}

func TestCreateDataURLCharset(t *testing.T) {
	u := CreateDataURL("text/css", "utf-8", []byte("p{}"), nil)
	if want := "data:text/css;charset=utf-8;base64,cHt9"; u.String() != want {
		t.Errorf("unexpected data URL, want %q, got %q", want, u)
	}
}

func TestParseDataURLPercentEncoded(t *testing.T) {
	mediaType, charset, data, err := ParseDataURL(mustParse(t, "data:,Hello%2C%20World%21"))
	if err != nil {
		t.Fatal(err)
	}
	if mediaType != "text/plain" {
		t.Errorf("unexpected default media type: %q", mediaType)
	}
	if charset != "US-ASCII" {
		t.Errorf("unexpected default charset: %q", charset)
	}
	if want := "Hello, World!"; string(data) != want {
		t.Errorf("unexpected payload, want %q, got %q", want, data)
	}
}

func TestParseDataURLMalformed(t *testing.T) {
	if _, _, _, err := ParseDataURL(mustParse(t, "data:text/plain;base64")); err == nil {
		t.Error("data URL without comma must not parse")
	}
	if _, _, _, err := ParseDataURL(mustParse(t, "data:text/plain;base64,!!!")); err == nil {
		t.Error("bad base64 payload must not parse")
	}
}
