package dictionary

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/logsieve/internal/fileops"
	"github.com/atikulmunna/logsieve/internal/parser"
)

var httpDelims = []string{"/", "?", "&", "="}

func newFS(t *testing.T) *fileops.FS {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/work", 0o755))
	return fileops.New(mem, "/work")
}

func TestBuild_StripsMethodAndDropsEmpty(t *testing.T) {
	d := Build([]string{"GET /api/user?id=5"}, httpDelims)

	assert.Equal(t, []string{"api", "user", "id", "5"}, d.Tokens())
	assert.False(t, d.Contains("GET"))
	assert.False(t, d.Contains(""))
	assert.Equal(t, 4, d.MaxTokenLen())
}

func TestBuild_Dedupes(t *testing.T) {
	d := Build([]string{
		"GET /api/user?id=5",
		"POST /api/user?id=7&debug=1",
	}, httpDelims)

	assert.Equal(t, []string{"api", "user", "id", "5", "7", "debug", "1"}, d.Tokens())
}

func TestBuild_Idempotent(t *testing.T) {
	corpus := []string{
		"GET /index.php?page=../../etc/passwd",
		"GET /search?q=<script>alert(1)</script>",
		"POST /login?user=admin'--",
	}
	a := Build(corpus, httpDelims)
	b := Build(corpus, httpDelims)

	assert.Equal(t, a.Tokens(), b.Tokens())
}

func TestBuild_DelimiterOrderMatters(t *testing.T) {
	a := Build([]string{"GET /a//b"}, []string{"/", "//"})
	b := Build([]string{"GET /a//b"}, []string{"//", "/"})
	assert.Equal(t, []string{"a", "b"}, a.Tokens())
	assert.Equal(t, []string{"a", "b"}, b.Tokens())

	c := Build([]string{"GET x/=y"}, []string{"/=", "/"})
	e := Build([]string{"GET x/=y"}, []string{"/", "/="})
	assert.Equal(t, []string{"x", "y"}, c.Tokens())
	assert.Equal(t, []string{"x", "=y"}, e.Tokens())
}

func TestNew_MaxTokenLenCountsRunes(t *testing.T) {
	d := New("日本語", "ab", "", "ab")
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 3, d.MaxTokenLen())
	assert.Equal(t, 0, New().MaxTokenLen())
}

func TestLoadOrBuild_BuildsWhenMissing(t *testing.T) {
	fsys := newFS(t)
	tok := parser.NewTokenizer(httpDelims)

	d, rebuilt, err := LoadOrBuild(fsys, []string{"GET /api/user?id=5"}, tok, false, "dictionary.txt")
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, 4, d.Len())

	lines, err := fsys.ReadLines("dictionary.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "user", "id", "5"}, lines)
}

func TestLoadOrBuild_LoadsVerbatim(t *testing.T) {
	fsys := newFS(t)
	tok := parser.NewTokenizer(httpDelims)
	require.NoError(t, fsys.WriteLines("dictionary.txt", []string{"zeta", "", "alpha"}))

	d, rebuilt, err := LoadOrBuild(fsys, []string{"GET /api/user?id=5"}, tok, false, "dictionary.txt")
	require.NoError(t, err)
	assert.False(t, rebuilt)
	assert.Equal(t, []string{"zeta", "alpha"}, d.Tokens())
}

func TestLoadOrBuild_ForceRebuildOverwrites(t *testing.T) {
	fsys := newFS(t)
	tok := parser.NewTokenizer(httpDelims)
	require.NoError(t, fsys.WriteLines("dictionary.txt", []string{"stale"}))

	d, rebuilt, err := LoadOrBuild(fsys, []string{"GET /fresh"}, tok, true, "dictionary.txt")
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, []string{"fresh"}, d.Tokens())

	lines, err := fsys.ReadLines("dictionary.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, lines)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fsys := newFS(t)
	d := New("a", "b", "日本")

	require.NoError(t, Save(fsys, "out/dict.txt", d))
	got, err := Load(fsys, "out/dict.txt")
	require.NoError(t, err)
	assert.Equal(t, d.Tokens(), got.Tokens())

	_, err = Load(fsys, "missing.txt")
	assert.Error(t, err)
}
