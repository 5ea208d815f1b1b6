package monolith

import (
	"bytes"
	"io"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// KnownEncoding reports whether label names a recognized charset.
func KnownEncoding(label string) bool {
	_, _, ok := encodingByLabel(label)
	return ok
}

// encodingByLabel maps a charset label to its encoding and canonical name.
func encodingByLabel(label string) (encoding.Encoding, string, bool) {
	e, err := htmlindex.Get(label)
	if err != nil {
		return nil, "", false
	}
	name, err := htmlindex.Name(e)
	if err != nil {
		name = label
	}
	return e, name, true
}

// decodeReader converts data from the labeled charset to UTF-8. Unknown
// labels fall back to the raw bytes.
func decodeReader(data []byte, label string) io.Reader {
	r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return bytes.NewReader(data)
	}
	return r
}

// encodeBytes converts UTF-8 data to the labeled charset, substituting the
// encoding's replacement for unencodable code points.
func encodeBytes(data []byte, label string) []byte {
	e, name, ok := encodingByLabel(label)
	if !ok || name == "utf-8" {
		return data
	}
	encoded, _, err := transform.Bytes(encoding.ReplaceUnsupported(e.NewEncoder()), data)
	if err != nil {
		return data
	}
	return encoded
}
