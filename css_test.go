package monolith

import (
	"context"
	"strings"
	"testing"
)

// css tests reference data: URLs so rewriting stays off the network

func TestRewriteCSSKeepsQuotingStyle(t *testing.T) {
	base := mustParse(t, "https://example.com/style.css")
	p := New(Options{Silent: true})
	table := []struct{ input, want string }{
		{
			"body { background: url('data:image/png;base64,aWNvbg==') }",
			"body { background: url('data:image/png;base64,aWNvbg==') }",
		},
		{
			`body { background: url("data:image/png;base64,aWNvbg==") }`,
			`body { background: url("data:image/png;base64,aWNvbg==") }`,
		},
		{
			"body { background: url(data:image/png;base64,aWNvbg==) }",
			"body { background: url(data:image/png;base64,aWNvbg==) }",
		},
	}
	for _, tt := range table {
		got, err := p.rewriteCSS(context.Background(), []byte(tt.input), base, 0)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != tt.want {
			t.Errorf("unexpected rewrite,\nwant %q,\n got %q", tt.want, got)
		}
	}
}

func TestRewriteCSSFragmentRefsKept(t *testing.T) {
	base := mustParse(t, "https://example.com/style.css")
	p := New(Options{Silent: true})
	input := "use { fill: url(#gradient) }"
	got, err := p.rewriteCSS(context.Background(), []byte(input), base, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != input {
		t.Errorf("fragment-only reference must stay verbatim, got %q", got)
	}
}

func TestRewriteCSSNoImages(t *testing.T) {
	base := mustParse(t, "https://example.com/style.css")
	p := New(Options{Silent: true, NoImages: true})
	input := "body { background-image: url('photo.jpg'); color: red }"
	got, err := p.rewriteCSS(context.Background(), []byte(input), base, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "url('')") {
		t.Errorf("image reference must collapse to url(''), got %q", got)
	}
	if strings.Contains(string(got), "photo.jpg") {
		t.Errorf("image reference must not survive, got %q", got)
	}
}

func TestRewriteCSSNoFontsDropsFontFace(t *testing.T) {
	base := mustParse(t, "https://example.com/style.css")
	p := New(Options{Silent: true, NoFonts: true})
	input := "@font-face { font-family: X; src: url(font.woff2); } p { color: red; }"
	got, err := p.rewriteCSS(context.Background(), []byte(input), base, 0)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(got), "font-face") || strings.Contains(string(got), "font.woff2") {
		t.Errorf("@font-face block must be dropped whole, got %q", got)
	}
	if !strings.Contains(string(got), "p { color: red; }") {
		t.Errorf("rules after the dropped block must survive, got %q", got)
	}
}

func TestRewriteCSSImport(t *testing.T) {
	base := mustParse(t, "https://example.com/style.css")
	p := New(Options{Silent: true})
	input := "@import 'data:text/css,p%7Bcolor%3Ared%7D' screen;\nbody { color: blue }"
	got, err := p.rewriteCSS(context.Background(), []byte(input), base, 0)
	if err != nil {
		t.Fatal(err)
	}
	out := string(got)
	if !strings.HasPrefix(out, "@import url('data:text/css;base64,") {
		t.Errorf("imported stylesheet must embed as a css data URL, got %q", out)
	}
	if !strings.Contains(out, " screen;") {
		t.Errorf("media query tail must be preserved, got %q", out)
	}
	if !strings.Contains(out, "body { color: blue }") {
		t.Errorf("rules after the import must survive, got %q", out)
	}
}
