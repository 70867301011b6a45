package engine

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/logsieve/internal/fileops"
	"github.com/atikulmunna/logsieve/internal/model"
)

func setup(t *testing.T) *fileops.FS {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/work", 0o755))
	fsys := fileops.New(mem, "/work")
	require.NoError(t, fsys.WriteLines("special_strings.txt", []string{"/", "?", "", "&", "="}))
	require.NoError(t, fsys.WriteLines("malicious_logs.txt", []string{"GET /api/user?id=5"}))
	return fsys
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Logger = log.New(io.Discard, "", 0)
	return opts
}

func TestPrepare_FirstRunBuildsAndSavesHashes(t *testing.T) {
	fsys := setup(t)

	e, err := Prepare(context.Background(), fsys, testOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "?", "&", "="}, e.Delimiters)
	assert.Equal(t, []string{"malicious_logs.txt"}, e.CorpusFiles)
	assert.True(t, e.Stale)
	assert.True(t, e.Rebuilt)
	assert.Equal(t, []string{"api", "user", "id", "5"}, e.Dictionary.Tokens())
	assert.True(t, fsys.Exists("dictionary.txt"))
	assert.True(t, fsys.Exists("hashes/malicious_logs.txt"))

	assert.Equal(t, model.High, e.Scorer.ScoreLine("GET /api/user?id=5").Criticality)
}

func TestPrepare_SecondRunLoadsExisting(t *testing.T) {
	fsys := setup(t)
	_, err := Prepare(context.Background(), fsys, testOptions())
	require.NoError(t, err)

	// Hand-edit the dictionary: a non-stale run must load it verbatim.
	require.NoError(t, fsys.WriteLines("dictionary.txt", []string{"api", "user"}))

	e, err := Prepare(context.Background(), fsys, testOptions())
	require.NoError(t, err)
	assert.False(t, e.Stale)
	assert.False(t, e.Rebuilt)
	assert.Equal(t, []string{"api", "user"}, e.Dictionary.Tokens())
}

func TestPrepare_CorpusChangeForcesRebuild(t *testing.T) {
	fsys := setup(t)
	_, err := Prepare(context.Background(), fsys, testOptions())
	require.NoError(t, err)

	require.NoError(t, fsys.AppendLines("malicious_logs.txt", []string{"GET /etc/passwd"}))

	e, err := Prepare(context.Background(), fsys, testOptions())
	require.NoError(t, err)
	assert.True(t, e.Stale)
	assert.True(t, e.Rebuilt)
	assert.True(t, e.Dictionary.Contains("passwd"))

	e, err = Prepare(context.Background(), fsys, testOptions())
	require.NoError(t, err)
	assert.False(t, e.Stale)
}

func TestPrepare_ForceRebuild(t *testing.T) {
	fsys := setup(t)
	_, err := Prepare(context.Background(), fsys, testOptions())
	require.NoError(t, err)

	opts := testOptions()
	opts.ForceRebuild = true
	e, err := Prepare(context.Background(), fsys, opts)
	require.NoError(t, err)
	assert.False(t, e.Stale)
	assert.True(t, e.Rebuilt)
}

func TestPrepare_UnknownFormat(t *testing.T) {
	fsys := setup(t)
	opts := testOptions()
	opts.Format = "xml"

	_, err := Prepare(context.Background(), fsys, opts)
	assert.Error(t, err)
}

func TestPrepare_NoCorpusGivesEmptyDictionary(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/work", 0o755))
	fsys := fileops.New(mem, "/work")

	e, err := Prepare(context.Background(), fsys, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, e.Dictionary.Len())
	assert.Equal(t, model.Low, e.Scorer.ScoreLine("GET /anything").Criticality)
}
