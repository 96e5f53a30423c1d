package session

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/isaacphi/codegraph-lsp/internal/protocol"
)

// toURI converts an absolute filesystem path to a file:// URI using
// RFC-3986 percent-encoding, matching spec.md §4.3. On Windows, drive
// letters produce "file:///C:/...".
func toURI(absPath string) protocol.DocumentUri {
	p := filepath.ToSlash(absPath)
	if runtime.GOOS == "windows" {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return protocol.DocumentUri(u.String())
}

// fromURI decodes a file:// URI back to a native filesystem path.
func fromURI(uri protocol.DocumentUri) (string, error) {
	u, err := url.Parse(string(uri))
	if err != nil {
		return "", err
	}
	p := u.Path
	if runtime.GOOS == "windows" {
		p = strings.TrimPrefix(p, "/")
	}
	return filepath.FromSlash(p), nil
}

// relativePath computes path relative to root using lexical rules only (no
// symlink resolution, per spec.md §4.3). If path lies outside root, the
// absolute path is returned unchanged.
func relativePath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// resolveLocation populates a Location's AbsolutePath/RelativePath from its
// URI, per spec.md §3's Location derivation.
func (s *Session) resolveLocation(loc *protocol.Location) {
	abs, err := fromURI(loc.URI)
	if err != nil {
		s.logger.Warn("malformed uri in server response", "uri", loc.URI, "err", err)
		return
	}
	loc.AbsolutePath = abs
	loc.RelativePath = relativePath(s.root, abs)
}

// absPath resolves a caller-supplied repo-relative path to an absolute
// path and its file:// URI.
func (s *Session) absPath(relPath string) (absPath string, uri protocol.DocumentUri) {
	if filepath.IsAbs(relPath) {
		absPath = relPath
	} else {
		absPath = filepath.Join(s.root, relPath)
	}
	return absPath, toURI(absPath)
}
