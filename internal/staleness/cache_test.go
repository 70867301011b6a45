package staleness

import (
	"io"
	"log"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/logsieve/internal/fileops"
)

func setup(t *testing.T) (*fileops.FS, *Cache, []string) {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/work", 0o755))
	fsys := fileops.New(mem, "/work")

	names := []string{"malicious_logs.txt", "malicious_logs_2.txt"}
	require.NoError(t, fsys.WriteLines(names[0], []string{"GET /api/user?id=5"}))
	require.NoError(t, fsys.WriteLines(names[1], []string{"GET /etc/passwd"}))

	return fsys, New(fsys, "", log.New(io.Discard, "", 0)), names
}

func TestIsStale_NoRecords(t *testing.T) {
	_, c, names := setup(t)

	stale, err := c.IsStale(names)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestIsStale_AfterSaveHashes(t *testing.T) {
	fsys, c, names := setup(t)

	require.NoError(t, c.SaveHashes(names))
	assert.True(t, fsys.Exists("hashes/malicious_logs.txt"))

	stale, err := c.IsStale(names)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestIsStale_OneByteChanged(t *testing.T) {
	fsys, c, names := setup(t)
	require.NoError(t, c.SaveHashes(names))

	require.NoError(t, fsys.WriteLines(names[1], []string{"GET /etc/passwe"}))

	stale, err := c.IsStale(names)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestIsStale_NewCorpusFile(t *testing.T) {
	fsys, c, names := setup(t)
	require.NoError(t, c.SaveHashes(names))

	require.NoError(t, fsys.WriteLines("malicious_logs_3.txt", []string{"GET /x"}))
	stale, err := c.IsStale(append(names, "malicious_logs_3.txt"))
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestIsStale_MalformedRecord(t *testing.T) {
	fsys, c, names := setup(t)
	require.NoError(t, c.SaveHashes(names))

	require.NoError(t, fsys.WriteFileAtomic("hashes/malicious_logs.txt", []byte("12ab")))

	_, ok := c.Record(names[0])
	assert.False(t, ok)

	stale, err := c.IsStale(names)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestIsStale_RecordWithTrailingNewline(t *testing.T) {
	fsys, c, names := setup(t)
	require.NoError(t, c.SaveHashes(names))

	h, ok := c.Record(names[0])
	require.True(t, ok)
	require.NoError(t, fsys.WriteFileAtomic("hashes/malicious_logs.txt", []byte(h+"\n")))

	stale, err := c.IsStale(names)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestIsStale_MissingCorpusFileIsError(t *testing.T) {
	_, c, _ := setup(t)

	_, err := c.IsStale([]string{"gone.txt"})
	assert.Error(t, err)
}

func TestIsStale_EmptyCorpus(t *testing.T) {
	_, c, _ := setup(t)

	stale, err := c.IsStale(nil)
	require.NoError(t, err)
	assert.False(t, stale)
}
