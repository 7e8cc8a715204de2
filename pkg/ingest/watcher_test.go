package ingest

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/domain"
	"github.com/loglens/loglens/pkg/logparse"
	"github.com/loglens/loglens/pkg/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sinkRecorder struct {
	mu      sync.Mutex
	entries []*domain.LogEntry
}

func (s *sinkRecorder) ProcessEntry(e *domain.LogEntry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

func (s *sinkRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func newTestWatcher(t *testing.T, dir string, sink EntrySink) (*Watcher, *store.Store) {
	t.Helper()
	st := store.New(1000, zap.NewNop())
	w := NewWatcher(Config{
		Directory:    dir,
		PollInterval: 10 * time.Millisecond,
	}, logparse.New(zap.NewNop()), st, sink, zap.NewNop())
	return w, st
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestSyncReadsCompleteLines(t *testing.T) {
	dir := t.TempDir()
	w, st := newTestWatcher(t, dir, nil)

	path := filepath.Join(dir, "app.log")
	appendFile(t, path,
		"2026-08-28 10:00:01 [Info] service started\n"+
			"2026-08-28 10:00:02 [Error] query failed\n")

	w.Sync()
	require.Equal(t, 2, st.Len())
	entries := st.Snapshot()
	assert.Equal(t, "service started", entries[0].Message)
	assert.Equal(t, domain.LevelError, entries[1].Level)
	assert.Equal(t, 1, w.TrackedFiles())
}

func TestSyncIsIncrementalAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	w, st := newTestWatcher(t, dir, nil)
	path := filepath.Join(dir, "app.log")

	appendFile(t, path, "2026-08-28 10:00:01 [Info] one\n")
	w.Sync()
	require.Equal(t, 1, st.Len())

	appendFile(t, path, "2026-08-28 10:00:02 [Info] two\n")
	w.Sync()
	require.Equal(t, 2, st.Len())

	// No growth, no re-read.
	w.Sync()
	assert.Equal(t, 2, st.Len())
}

func TestSyncBuffersPartialLines(t *testing.T) {
	dir := t.TempDir()
	w, st := newTestWatcher(t, dir, nil)
	path := filepath.Join(dir, "app.log")

	appendFile(t, path, "2026-08-28 10:00:01 [Info] first\n2026-08-28 10:00:02 [Warning] part")
	w.Sync()
	require.Equal(t, 1, st.Len(), "incomplete trailing line must not be published")

	appendFile(t, path, "ially written\n")
	w.Sync()
	require.Equal(t, 2, st.Len())
	assert.Equal(t, "partially written", st.Snapshot()[1].Message)
}

func TestSyncDeduplicatesIdenticalEntries(t *testing.T) {
	dir := t.TempDir()
	w, st := newTestWatcher(t, dir, nil)
	path := filepath.Join(dir, "app.log")

	line := "2026-08-28 10:00:01 [Error] database connection failed\n"
	appendFile(t, path, line)
	w.Sync()
	appendFile(t, path, line)
	w.Sync()

	assert.Equal(t, 1, st.Len(), "same timestamp, level, source, and message is one entry")
}

func TestSyncHandlesTruncation(t *testing.T) {
	dir := t.TempDir()
	w, st := newTestWatcher(t, dir, nil)
	path := filepath.Join(dir, "app.log")

	appendFile(t, path, "2026-08-28 10:00:01 [Info] before truncate\n")
	w.Sync()
	require.Equal(t, 1, st.Len())

	require.NoError(t, os.WriteFile(path, []byte("2026-08-28 11:00:00 [Info] fresh\n"), 0o644))
	w.Sync()
	require.Equal(t, 2, st.Len())
	assert.Equal(t, "fresh", st.Snapshot()[1].Message)
}

func TestSyncReadsGzipFiles(t *testing.T) {
	dir := t.TempDir()
	w, st := newTestWatcher(t, dir, nil)

	path := filepath.Join(dir, "archived.log.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte("2026-08-28 10:00:01 [Info] from archive\n2026-08-28 10:00:02 [Error] archived failure\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	w.Sync()
	require.Equal(t, 2, st.Len())
	assert.Equal(t, "from archive", st.Snapshot()[0].Message)

	// Unchanged compressed size, no re-read and no duplicates.
	w.Sync()
	assert.Equal(t, 2, st.Len())
}

func TestPatternsFilterDiscovery(t *testing.T) {
	dir := t.TempDir()
	st := store.New(100, zap.NewNop())
	w := NewWatcher(Config{
		Directory: dir,
		Patterns:  []string{"**/*.log"},
	}, logparse.New(zap.NewNop()), st, nil, zap.NewNop())

	appendFile(t, filepath.Join(dir, "keep.log"), "2026-08-28 10:00:01 [Info] kept\n")
	appendFile(t, filepath.Join(dir, "skip.dat"), "2026-08-28 10:00:02 [Info] skipped\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	appendFile(t, filepath.Join(dir, "nested", "deep.log"), "2026-08-28 10:00:03 [Info] nested\n")

	w.Sync()
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, 2, w.TrackedFiles())
}

func TestMoveOffsetCarriesStateAcrossRename(t *testing.T) {
	dir := t.TempDir()
	w, st := newTestWatcher(t, dir, nil)
	oldPath := filepath.Join(dir, "app.log")

	appendFile(t, oldPath, "2026-08-28 10:00:01 [Info] before rotation\n")
	w.Sync()
	require.Equal(t, 1, st.Len())

	newPath := filepath.Join(dir, "app.log.1")
	require.NoError(t, os.Rename(oldPath, newPath))
	w.MoveOffset(oldPath, newPath)

	appendFile(t, newPath, "2026-08-28 10:00:02 [Info] after rotation\n")
	// The rotated name does not match the patterns for discovery, but the
	// carried state keeps tailing it without re-reading consumed bytes.
	require.NoError(t, w.readFile(newPath))
	require.Equal(t, 2, st.Len())
	assert.Equal(t, "after rotation", st.Snapshot()[1].Message)
}

func TestSinkReceivesEveryStoredEntry(t *testing.T) {
	dir := t.TempDir()
	sink := &sinkRecorder{}
	w, st := newTestWatcher(t, dir, sink)

	appendFile(t, filepath.Join(dir, "app.log"),
		"2026-08-28 10:00:01 [Error] boom one\n2026-08-28 10:00:02 [Error] boom two\n")
	w.Sync()

	assert.Equal(t, 2, st.Len())
	assert.Equal(t, 2, sink.count())
}

func TestLoadHistoricalSortsAndSkipsSink(t *testing.T) {
	dir := t.TempDir()
	sink := &sinkRecorder{}
	w, st := newTestWatcher(t, dir, sink)

	appendFile(t, filepath.Join(dir, "b.log"), "2026-08-28 10:00:05 [Info] later\n")
	appendFile(t, filepath.Join(dir, "a.log"), "2026-08-28 10:00:01 [Info] earlier\n")

	w.LoadHistorical(7)

	require.Equal(t, 2, st.Len())
	entries := st.Snapshot()
	assert.Equal(t, "earlier", entries[0].Message, "bulk load orders by entry timestamp")
	assert.Equal(t, "later", entries[1].Message)
	assert.Equal(t, 0, sink.count(), "historical entries must not trigger alerts")

	// Already-consumed files are tracked at their end offset; a subsequent
	// sync republishes nothing.
	w.Sync()
	assert.Equal(t, 2, st.Len())
}

func TestStartStopLifecycle(t *testing.T) {
	dir := t.TempDir()
	st := store.New(100, zap.NewNop())
	w := NewWatcher(Config{
		Directory:      dir,
		PollInterval:   10 * time.Millisecond,
		SignatureCache: filepath.Join(dir, ".sigs.json"),
		Patterns:       []string{"**/*.log"},
	}, logparse.New(zap.NewNop()), st, nil, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	appendFile(t, filepath.Join(dir, "live.log"), "2026-08-28 10:00:01 [Info] live entry\n")

	require.Eventually(t, func() bool { return st.Len() == 1 },
		2*time.Second, 10*time.Millisecond)
	time.Sleep(createSettle + 50*time.Millisecond) // let the settle timer drain
	require.NoError(t, w.Stop())

	// The signature set survived the shutdown.
	_, err := os.Stat(filepath.Join(dir, ".sigs.json"))
	assert.NoError(t, err)
}
