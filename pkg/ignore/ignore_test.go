package ignore

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatcher(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, ".gitignore", []byte("# build output\n*.tmp\nscratch/\n"), 0o644))
	require.NoError(t, util.WriteFile(fs, FileName, []byte("\n# drafts\ncontent/map/region/draft-*\n"), 0o644))

	m, err := NewMatcher(fs)
	require.NoError(t, err)

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{".git", true, true},
		{"content/waypoint/country/.DS_Store", false, true},
		{"content/waypoint/country/de.cup~", false, true},
		{"content/waypoint/country/de.tmp", false, true},
		{"scratch", true, true},
		{"content/map/region/draft-alps.xcm", false, true},
		{"content/map/region/alps.xcm", false, false},
		{"content/waypoint/country/de.cup", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, m.IsIgnored(tt.path, tt.isDir))
		})
	}
}

func TestNewMatcherWithoutFiles(t *testing.T) {
	m, err := NewMatcher(memfs.New())
	require.NoError(t, err)
	assert.False(t, m.IsIgnored("content/waypoint/country/de.cup", false))
	assert.True(t, m.IsIgnored(".git", true))
}

func TestNegatedPattern(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, FileName, []byte("*.bak\n!keep.bak\n"), 0o644))
	m, err := NewMatcher(fs)
	require.NoError(t, err)
	assert.True(t, m.IsIgnored("a/b.bak", false))
	assert.False(t, m.IsIgnored("keep.bak", false))

	var nilMatcher *Matcher
	assert.False(t, nilMatcher.IsIgnored("a.bak", false))
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitPath("/a//./b"))
	assert.Empty(t, splitPath("."))
}
