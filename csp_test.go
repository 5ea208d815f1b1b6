package monolith

import "testing"

func TestComposeCSP(t *testing.T) {
	table := []struct {
		name string
		opts Options
		want string
	}{
		{"none", Options{}, ""},
		{"isolated", Options{Isolate: true},
			"default-src 'unsafe-eval' 'unsafe-inline' data:;"},
		{"no_css", Options{NoCSS: true}, "style-src 'none';"},
		{"no_fonts", Options{NoFonts: true}, "font-src 'none';"},
		{"no_frames", Options{NoFrames: true}, "frame-src 'none'; child-src 'none';"},
		{"no_js", Options{NoJS: true}, "script-src 'none';"},
		{"no_images", Options{NoImages: true}, "img-src data:;"},
		{"all", Options{Isolate: true, NoCSS: true, NoFonts: true, NoFrames: true, NoJS: true, NoImages: true},
			"default-src 'unsafe-eval' 'unsafe-inline' data:; style-src 'none'; font-src 'none'; frame-src 'none'; child-src 'none'; script-src 'none'; img-src data:;"},
	}
	for _, tt := range table {
		if got := composeCSP(tt.opts); got != tt.want {
			t.Errorf("%s: unexpected CSP, want %q, got %q", tt.name, tt.want, got)
		}
	}
}

func TestComposeCSPEmptyIffNoExclusions(t *testing.T) {
	opts := Options{Silent: true, NoMetadata: true, IgnoreErrors: true, Insecure: true}
	if got := composeCSP(opts); got != "" {
		t.Errorf("options without exclusions must compose empty CSP, got %q", got)
	}
	if opts.hasExclusions() {
		t.Error("hasExclusions must be false without exclusion options")
	}
}
