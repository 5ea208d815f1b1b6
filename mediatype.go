package monolith

import (
	"net/url"
	"path"
	"strings"
)

// magicEntry maps a leading byte pattern to a media type. A '.' byte in the
// pattern matches any input byte.
type magicEntry struct {
	pattern   string
	mediaType string
}

var magicTable = []magicEntry{
	// Image
	{"GIF87a", "image/gif"},
	{"GIF89a", "image/gif"},
	{"\xFF\xD8\xFF", "image/jpeg"},
	{"\x89PNG\x0D\x0A\x1A\x0A", "image/png"},
	{"<svg ", "image/svg+xml"},
	{"RIFF....WEBPVP8 ", "image/webp"},
	{"\x00\x00\x01\x00", "image/x-icon"},
	// Audio
	{"ID3", "audio/mpeg"},
	{"\xFF\x0E", "audio/mpeg"},
	{"\xFF\x0F", "audio/mpeg"},
	{"OggS", "audio/ogg"},
	{"RIFF....WAVEfmt ", "audio/wav"},
	{"fLaC", "audio/x-flac"},
	// Video
	{"RIFF....AVI LIST", "video/avi"},
	{"....ftyp", "video/mp4"},
	{"\x00\x00\x01\x0B", "video/mpeg"},
	{"....moov", "video/quicktime"},
	{"\x1A\x45\xDF\xA3", "video/webm"},
}

// detectMediaType sniffs the media type from leading magic bytes, falling
// back to the URL path for SVG documents that start with an XML prolog.
func detectMediaType(data []byte, u *url.URL) string {
	for _, m := range magicTable {
		if magicMatch(data, m.pattern) {
			return m.mediaType
		}
	}
	if u != nil && strings.HasSuffix(strings.ToLower(u.Path), ".svg") {
		return "image/svg+xml"
	}
	return ""
}

func magicMatch(data []byte, pattern string) bool {
	if len(data) < len(pattern) {
		return false
	}
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '.' && data[i] != pattern[i] {
			return false
		}
	}
	return true
}

// mediaTypesByExtension resolves types the magic table cannot, for assets
// loaded from the filesystem where no Content-Type header exists.
var mediaTypesByExtension = map[string]string{
	".css":   "text/css",
	".gif":   "image/gif",
	".htm":   "text/html",
	".html":  "text/html",
	".ico":   "image/x-icon",
	".jpeg":  "image/jpeg",
	".jpg":   "image/jpeg",
	".js":    "application/javascript",
	".json":  "application/json",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".ogg":   "audio/ogg",
	".pdf":   "application/pdf",
	".png":   "image/png",
	".svg":   "image/svg+xml",
	".txt":   "text/plain",
	".wav":   "audio/wav",
	".webp":  "image/webp",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".xml":   "text/xml",
}

func detectMediaTypeByFileName(name string) string {
	return mediaTypesByExtension[strings.ToLower(path.Ext(name))]
}

var plaintextMediaTypes = map[string]bool{
	"application/javascript": true,
	"image/svg+xml":          true,
}

// isPlaintextMediaType reports whether mediaType denotes textual content.
func isPlaintextMediaType(mediaType string) bool {
	mt := strings.ToLower(mediaType)
	return strings.HasPrefix(mt, "text/") || plaintextMediaTypes[mt]
}
