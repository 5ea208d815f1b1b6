package monolith

import (
	"errors"
	"fmt"
)

// Retrieval failure kinds. The walker absorbs these per asset; the
// orchestrator treats them as fatal for the target document.
var (
	// ErrUnsupportedScheme is returned for URL schemes the retriever
	// cannot handle (anything other than data, file, http and https).
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrSecurity is returned when a file: URL is requested by a document
	// that was not itself loaded from a file: URL.
	ErrSecurity = errors.New("security error")

	// ErrNotFound is returned for file: URLs pointing at paths that do
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrIsDirectory is returned for file: URLs pointing at directories.
	ErrIsDirectory = errors.New("is a directory")

	// ErrDecode is returned for malformed data URLs and unknown charset
	// labels.
	ErrDecode = errors.New("decode error")

	// ErrCookieSyntax is returned for cookie files that cannot be parsed.
	ErrCookieSyntax = errors.New("malformed cookie file")
)

// StatusError is returned for http(s) responses with a non-200 status when
// Options.IgnoreErrors is unset.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.URL, e.Status)
}
