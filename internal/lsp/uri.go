package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
)

// uriToPath maps a file:// URI (or a bare path) to a local path. Other
// schemes such as untitled: have no path and map to "".
func uriToPath(uri string) string {
	if uri == "" {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "":
		return filepath.FromSlash(uri)
	case "file":
	default:
		// A single letter is a Windows drive, not a scheme.
		if len(u.Scheme) != 1 {
			return ""
		}
		return filepath.FromSlash(uri)
	}
	p := u.Path
	// file:///C:/x parses to /C:/x.
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

// PathToURI converts a file path to an absolute file:// URI, the form
// servers expect for textDocument.uri and rootUri.
func PathToURI(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}
