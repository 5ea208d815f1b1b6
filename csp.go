package monolith

import "strings"

// composeCSP builds the Content-Security-Policy value enforcing the active
// category exclusions. Directive order is fixed; the result is empty when no
// exclusion is set.
func composeCSP(o Options) string {
	var parts []string
	if o.Isolate {
		parts = append(parts, "default-src 'unsafe-eval' 'unsafe-inline' data:;")
	}
	if o.NoCSS {
		parts = append(parts, "style-src 'none';")
	}
	if o.NoFonts {
		parts = append(parts, "font-src 'none';")
	}
	if o.NoFrames {
		parts = append(parts, "frame-src 'none'; child-src 'none';")
	}
	if o.NoJS {
		parts = append(parts, "script-src 'none';")
	}
	if o.NoImages {
		parts = append(parts, "img-src data:;")
	}
	return strings.Join(parts, " ")
}
