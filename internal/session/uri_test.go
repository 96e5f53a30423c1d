package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacphi/codegraph-lsp/internal/logging"
	"github.com/isaacphi/codegraph-lsp/internal/protocol"
)

func TestToURI_FromURI_RoundTrip(t *testing.T) {
	path := "/repo/pkg/file.go"
	uri := toURI(path)
	assert.Equal(t, protocol.DocumentUri("file:///repo/pkg/file.go"), uri)

	back, err := fromURI(uri)
	require.NoError(t, err)
	assert.Equal(t, path, back)
}

func TestToURI_PercentEncodesSpaces(t *testing.T) {
	uri := toURI("/repo/a b/file.go")
	assert.Contains(t, string(uri), "%20")
}

func TestRelativePath_WithinRoot(t *testing.T) {
	assert.Equal(t, "pkg/file.go", relativePath("/repo", "/repo/pkg/file.go"))
}

func TestRelativePath_OutsideRootReturnsAbsoluteUnchanged(t *testing.T) {
	assert.Equal(t, "/other/file.go", relativePath("/repo", "/other/file.go"))
}

func TestAbsPath_ResolvesRelativeAgainstRoot(t *testing.T) {
	s := &Session{root: "/repo"}
	abs, uri := s.absPath("pkg/file.go")
	assert.Equal(t, "/repo/pkg/file.go", abs)
	assert.Equal(t, protocol.DocumentUri("file:///repo/pkg/file.go"), uri)
}

func TestAbsPath_PassesThroughAlreadyAbsolute(t *testing.T) {
	s := &Session{root: "/repo"}
	abs, _ := s.absPath("/elsewhere/file.go")
	assert.Equal(t, "/elsewhere/file.go", abs)
}

func TestResolveLocation_PopulatesDerivedFields(t *testing.T) {
	s := &Session{root: "/repo", logger: logging.Nop}
	loc := &protocol.Location{URI: toURI("/repo/pkg/file.go")}
	s.resolveLocation(loc)
	assert.Equal(t, "/repo/pkg/file.go", loc.AbsolutePath)
	assert.Equal(t, "pkg/file.go", loc.RelativePath)
}
