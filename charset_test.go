package monolith

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestKnownEncoding(t *testing.T) {
	for _, label := range []string{"utf-8", "UTF-8", "iso-8859-1", "windows-1251", "shift_jis"} {
		if !KnownEncoding(label) {
			t.Errorf("%q must be a known encoding", label)
		}
	}
	if KnownEncoding("klingon-8") {
		t.Error("bogus labels must not be known encodings")
	}
}

// with no transport charset, the meta declaration triggers a re-decode
func TestMetaCharsetRedetection(t *testing.T) {
	// "café" in latin-1, declared via meta while the header stays silent
	doc := append([]byte(`<html><head><meta charset="iso-8859-1"></head><body>caf`), 0xE9)
	doc = append(doc, []byte(`</body></html>`)...)

	target, _ := url.Parse("data:text/html,")
	p := New(Options{Silent: true, NoMetadata: true})
	out, err := p.DocumentFromBytes(context.Background(), doc, target)
	if err != nil {
		t.Fatal(err)
	}
	// decoded to é, then re-encoded back to latin-1 on output
	if !bytes.Contains(out, []byte{0xE9}) {
		t.Errorf("output must stay in the declared charset, got %q", out)
	}
	if bytes.Contains(out, []byte{0xC3, 0xA9}) {
		t.Errorf("output must not be utf-8 encoded, got %q", out)
	}
}

func TestCharsetOverride(t *testing.T) {
	doc := append([]byte(`<html><head><meta charset="iso-8859-1"></head><body>caf`), 0xE9)
	doc = append(doc, []byte(`</body></html>`)...)

	target, _ := url.Parse("data:text/html,")
	p := New(Options{Silent: true, NoMetadata: true, Charset: "utf-8"})
	out, err := p.DocumentFromBytes(context.Background(), doc, target)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `charset="utf-8"`) {
		t.Errorf("meta declaration must be updated, got %q", out)
	}
	if !bytes.Contains(out, []byte("café")) {
		t.Errorf("output must be re-encoded to utf-8, got %q", out)
	}
}

// the transport header alone must seed the decode; the output charset
// option only affects serialization
func TestHeaderCharsetWithOutputOverride(t *testing.T) {
	// "café" in latin-1, no meta declaration anywhere in the body
	body := append([]byte("<html><body>caf"), 0xE9)
	body = append(body, []byte("</body></html>")...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write(body)
	}))
	defer srv.Close()

	p := New(Options{Silent: true, NoMetadata: true, Charset: "utf-8"})
	out, err := p.Document(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte("café")) {
		t.Errorf("header-decoded text must transcode to the output charset, got %q", out)
	}
	if bytes.Contains(out, []byte{0xE9}) {
		t.Errorf("no latin-1 bytes may survive a utf-8 override, got %q", out)
	}
}

func TestSetDocumentCharsetInserts(t *testing.T) {
	doc := parseHTML([]byte(`<html><head><title>x</title></head><body></body></html>`), "")
	setDocumentCharset(doc, "utf-8")
	out, err := serializeDocument(doc, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `<meta charset="utf-8"/>`) {
		t.Errorf("missing charset meta must be inserted, got %q", out)
	}
}

func TestEncodeBytesReplacesUnsupported(t *testing.T) {
	// ∀ has no latin-1 representation
	out := encodeBytes([]byte("a∀b"), "iso-8859-1")
	if bytes.ContainsRune(out, '∀') {
		t.Errorf("unencodable code points must be substituted, got %q", out)
	}
	if out[0] != 'a' || out[len(out)-1] != 'b' {
		t.Errorf("encodable content must survive, got %q", out)
	}
}
