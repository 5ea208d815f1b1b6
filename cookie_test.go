package monolith

import (
	"strings"
	"testing"
	"time"
)

func TestParseCookies(t *testing.T) {
	input := strings.Join([]string{
		"# Netscape HTTP Cookie File",
		"",
		"example.com\tTRUE\t/\tTRUE\t9999999999\tsid\t\"abc\"",
		"sub.example.com\tFALSE\t/app\tFALSE\t9999999999\ttheme\tdark",
	}, "\n")
	cookies, err := ParseCookies(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(cookies) != 2 {
		t.Fatalf("unexpected cookie count, want 2, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Domain != "example.com" || !c.Tailmatch || c.Path != "/" || !c.Secure ||
		c.Expiration != 9999999999 || c.Name != "sid" || c.Value != "abc" {
		t.Errorf("unexpected cookie: %+v", c)
	}
	// quotes are only stripped when the value is actually quoted
	if got := cookies[1].Value; got != "dark" {
		t.Errorf("unexpected value, want %q, got %q", "dark", got)
	}
}

func TestParseCookiesMalformed(t *testing.T) {
	if _, err := ParseCookies(strings.NewReader("example.com\tTRUE\t/")); err == nil {
		t.Error("short line must not parse")
	}
	if _, err := ParseCookies(strings.NewReader("example.com\tTRUE\t/\tTRUE\tsoon\tsid\tabc")); err == nil {
		t.Error("non-numeric expiration must not parse")
	}
}

func TestCookieMatchesURL(t *testing.T) {
	secure := &Cookie{Domain: "example.com", Tailmatch: true, Path: "/", Secure: true,
		Expiration: 9999999999, Name: "sid", Value: "abc"}
	table := []struct {
		url  string
		want bool
	}{
		{"https://example.com/x", true},
		{"http://example.com/x", false}, // secure cookie, plain http
		{"https://EXAMPLE.com/x", true},
		{"https://www.example.com/x", true}, // tailmatch
		{"ftp://example.com/x", false},
		{"https://example.org/x", false},
	}
	for _, tt := range table {
		if got := secure.MatchesURL(mustParse(t, tt.url)); got != tt.want {
			t.Errorf("MatchesURL(%q): want %v, got %v", tt.url, tt.want, got)
		}
	}

	scoped := &Cookie{Domain: "example.com", Path: "/app", Expiration: 9999999999}
	if scoped.MatchesURL(mustParse(t, "https://example.com/other")) {
		t.Error("cookie must not match outside its path")
	}
	if !scoped.MatchesURL(mustParse(t, "https://example.com/app/page")) {
		t.Error("cookie must match inside its path")
	}
	if scoped.MatchesURL(mustParse(t, "https://sub.example.com/app")) {
		t.Error("cookie without tailmatch must not match subdomains")
	}
}

func TestCookieHeaderFiltersExpired(t *testing.T) {
	u := mustParse(t, "https://example.com/")
	cookies := []*Cookie{
		{Domain: "example.com", Path: "/", Expiration: time.Now().Unix() - 60, Name: "old", Value: "1"},
		{Domain: "example.com", Path: "/", Expiration: 9999999999, Name: "sid", Value: "abc"},
		{Domain: "example.com", Path: "/", Expiration: 9999999999, Name: "theme", Value: "dark"},
	}
	if got, want := cookieHeader(cookies, u), "sid=abc; theme=dark"; got != want {
		t.Errorf("unexpected Cookie header, want %q, got %q", want, got)
	}
}
