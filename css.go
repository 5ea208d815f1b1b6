package monolith

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// rewriteCSS tokenizes a stylesheet and rewrites every url() reference and
// @import rule to point at embedded data URLs, preserving the original
// quoting. Nested stylesheets are rewritten recursively. With NoFonts set,
// @font-face blocks are dropped whole; with NoImages set, image references
// collapse to an empty quoted url().
//
// A reference may arrive from the tokenizer either as a single url token
// (quoted or unquoted) or as a url( function token followed by a string;
// both forms are handled.
func (p *Processor) rewriteCSS(ctx context.Context, data []byte, base *url.URL, depth int) ([]byte, error) {
	var out bytes.Buffer
	l := css.NewLexer(parse.NewInputBytes(data))
	var lastIdent, prop string
	for {
		tt, tok := l.Next()
		switch tt {
		case css.ErrorToken:
			return out.Bytes(), nil
		case css.AtKeywordToken:
			name := strings.ToLower(string(tok[1:]))
			switch {
			case name == "font-face" && p.opts.NoFonts:
				skipAtBlock(l)
			case name == "import":
				if err := p.rewriteImport(ctx, &out, l, base, depth); err != nil {
					return nil, err
				}
			default:
				out.Write(tok)
			}
		case css.IdentToken:
			lastIdent = string(tok)
			out.Write(tok)
		case css.ColonToken:
			prop = lastIdent
			out.Write(tok)
		case css.SemicolonToken, css.LeftBraceToken, css.RightBraceToken:
			prop = ""
			out.Write(tok)
		case css.URLToken:
			quote, ref := splitURLToken(tok)
			rewritten, err := p.embedCSSRef(ctx, base, quote, ref, prop, depth)
			if err != nil {
				return nil, err
			}
			out.WriteString(rewritten)
		case css.FunctionToken:
			if !strings.EqualFold(string(tok), "url(") {
				out.Write(tok)
				continue
			}
			rewritten, err := p.rewriteURLFunction(ctx, l, base, prop, depth)
			if err != nil {
				return nil, err
			}
			out.WriteString(rewritten)
		default:
			out.Write(tok)
		}
	}
}

// rewriteURLFunction consumes the remainder of a url("...") function (the
// url( token is already read) and returns the rewritten reference.
func (p *Processor) rewriteURLFunction(ctx context.Context, l *css.Lexer, base *url.URL, prop string, depth int) (string, error) {
	var quote, ref string
	for {
		tt, tok := l.Next()
		switch tt {
		case css.StringToken:
			quote = string(tok[0])
			ref = string(tok[1 : len(tok)-1])
		case css.RightParenthesisToken, css.ErrorToken:
			return p.embedCSSRef(ctx, base, quote, ref, prop, depth)
		}
	}
}

// embedCSSRef rewrites one css reference into a url(...) pointing at a
// data URL. prop is the declaration property the reference appears under;
// it decides whether the reference counts as an image for NoImages.
func (p *Processor) embedCSSRef(ctx context.Context, base *url.URL, quote, ref, prop string, depth int) (string, error) {
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "url(" + quote + ref + quote + ")", nil
	}
	if p.opts.NoImages && isImageProperty(prop) {
		return "url('')", nil
	}
	resolved := resolveURL(base, ref)
	asset, err := p.retrieve(ctx, base, resolved, depth+1)
	if err != nil {
		if isFatalAsset(err) {
			return "", err
		}
		return "url(" + quote + quote + ")", nil
	}
	data := asset.Data
	if asset.MediaType == "text/css" || strings.HasSuffix(strings.ToLower(resolved.Path), ".css") {
		if data, err = p.rewriteCSS(ctx, data, asset.FinalURL, depth+1); err != nil {
			return "", err
		}
	}
	dataURL := CreateDataURL(asset.MediaType, asset.Charset, data, asset.FinalURL)
	return "url(" + quote + dataURL.String() + quote + ")", nil
}

// skipAtBlock consumes an at-rule together with its block, up to and
// including the matching closing brace (or the terminating semicolon for a
// block-less rule).
func skipAtBlock(l *css.Lexer) {
	braces := 0
	for {
		tt, _ := l.Next()
		switch tt {
		case css.ErrorToken:
			return
		case css.SemicolonToken:
			if braces == 0 {
				return
			}
		case css.LeftBraceToken:
			braces++
		case css.RightBraceToken:
			braces--
			if braces == 0 {
				return
			}
		}
	}
}

// rewriteImport consumes the remainder of an @import rule (the at-keyword
// token is already read) and emits it with the imported stylesheet embedded
// as a data URL. Media query tails are preserved.
func (p *Processor) rewriteImport(ctx context.Context, out *bytes.Buffer, l *css.Lexer, base *url.URL, depth int) error {
	out.WriteString("@import")
	embedded := false
	for {
		tt, tok := l.Next()
		switch tt {
		case css.ErrorToken:
			return nil
		case css.SemicolonToken:
			out.Write(tok)
			return nil
		case css.StringToken:
			if embedded {
				out.Write(tok)
				continue
			}
			quote := string(tok[0])
			ref := string(tok[1 : len(tok)-1])
			target, err := p.embedStylesheet(ctx, base, ref, depth)
			if err != nil {
				return err
			}
			out.WriteString("url(" + quote + target + quote + ")")
			embedded = true
		case css.URLToken:
			if embedded {
				out.Write(tok)
				continue
			}
			quote, ref := splitURLToken(tok)
			target, err := p.embedStylesheet(ctx, base, ref, depth)
			if err != nil {
				return err
			}
			out.WriteString("url(" + quote + target + quote + ")")
			embedded = true
		case css.FunctionToken:
			if embedded || !strings.EqualFold(string(tok), "url(") {
				out.Write(tok)
				continue
			}
			quote, ref := consumeURLFunction(l)
			target, err := p.embedStylesheet(ctx, base, ref, depth)
			if err != nil {
				return err
			}
			out.WriteString("url(" + quote + target + quote + ")")
			embedded = true
		default:
			out.Write(tok)
		}
	}
}

// consumeURLFunction reads through the closing parenthesis of a url(
// function and returns the quote and reference of its string argument.
func consumeURLFunction(l *css.Lexer) (quote, ref string) {
	for {
		tt, tok := l.Next()
		switch tt {
		case css.StringToken:
			quote = string(tok[0])
			ref = string(tok[1 : len(tok)-1])
		case css.RightParenthesisToken, css.ErrorToken:
			return quote, ref
		}
	}
}

// embedStylesheet retrieves and recursively rewrites a stylesheet referenced
// by @import, returning its data URL. Failures resolve to an empty
// reference.
func (p *Processor) embedStylesheet(ctx context.Context, base *url.URL, ref string, depth int) (string, error) {
	resolved := resolveURL(base, strings.TrimSpace(ref))
	asset, err := p.retrieve(ctx, base, resolved, depth+1)
	if err != nil {
		if isFatalAsset(err) {
			return "", err
		}
		return "", nil
	}
	data, err := p.rewriteCSS(ctx, asset.Data, asset.FinalURL, depth+1)
	if err != nil {
		return "", err
	}
	return CreateDataURL("text/css", asset.Charset, data, asset.FinalURL).String(), nil
}

// splitURLToken takes a url(...) token and returns the quote character
// surrounding its reference (empty when unquoted) and the trimmed
// reference without the quotes.
func splitURLToken(tok []byte) (quote, ref string) {
	inner := strings.TrimSpace(string(tok[4 : len(tok)-1]))
	if len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0] {
		return string(inner[0]), inner[1 : len(inner)-1]
	}
	return "", inner
}

// isImageProperty reports whether a CSS property carries image references.
func isImageProperty(prop string) bool {
	prop = strings.ToLower(prop)
	switch prop {
	case "content", "cursor":
		return true
	}
	return strings.Contains(prop, "background") ||
		strings.Contains(prop, "border-image") ||
		strings.Contains(prop, "list-style") ||
		strings.Contains(prop, "mask")
}
