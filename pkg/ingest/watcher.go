// Package ingest discovers log files under a directory, tails them
// incrementally across rotation and rename, deduplicates parsed entries, and
// feeds the store and the alert engine.
//
// Content reads happen only on poll ticks so partial lines mid-write are
// never consumed; the fsnotify fast path exists purely to notice new and
// renamed files between ticks.
package ingest

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/loglens/loglens/pkg/domain"
	"github.com/loglens/loglens/pkg/logparse"
	"github.com/loglens/loglens/pkg/store"
)

// DefaultPatterns match the fixed extension set, recursively.
var DefaultPatterns = []string{"**/*.log", "**/*.jsonl", "**/*.txt", "**/*.gz"}

// renameGrace pairs a rename notification with the create that follows it.
const renameGrace = 2 * time.Second

// createSettle is how long ingestion waits after a create before the first
// full read, so the writer can finish its initial burst.
const createSettle = 250 * time.Millisecond

// Config controls the ingestion watcher.
type Config struct {
	Directory      string
	PollInterval   time.Duration
	Patterns       []string
	RetentionDays  int    // seen-signature horizon
	HistoricalDays int    // bulk-load look-back at startup
	SignatureCache string // JSON cache file path; empty disables persistence
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if len(c.Patterns) == 0 {
		c.Patterns = DefaultPatterns
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
}

// EntrySink receives every stored entry, one at a time, on the ingestion
// goroutine. The alert engine implements it.
type EntrySink interface {
	ProcessEntry(entry *domain.LogEntry)
}

// trackedFile is the per-file tailing state.
type trackedFile struct {
	offset  int64  // bytes consumed (compressed size for .gz)
	partial string // buffered incomplete last line
	lineNo  int
}

// Watcher tails files under a directory and publishes parsed entries.
type Watcher struct {
	cfg    Config
	logger *zap.Logger
	parser *logparse.Parser
	store  *store.Store
	sink   EntrySink

	mu    sync.Mutex
	files map[string]*trackedFile
	seen  *SignatureCache

	pendingRename string
	renamedAt     time.Time

	fsw    *fsnotify.Watcher
	errLog *rate.Limiter
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates an ingestion watcher. sink may be nil.
func NewWatcher(cfg Config, parser *logparse.Parser, st *store.Store, sink EntrySink, logger *zap.Logger) *Watcher {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		cfg:    cfg,
		logger: logger.Named("ingest"),
		parser: parser,
		store:  st,
		sink:   sink,
		files:  make(map[string]*trackedFile),
		seen:   NewSignatureCache(cfg.SignatureCache, cfg.RetentionDays),
		errLog: rate.NewLimiter(rate.Every(5*time.Second), 3),
	}
}

// Start loads the signature cache, bulk-loads history, and begins the poll
// loop plus the fsnotify fast path. It returns quickly; work runs in
// background until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.seen.Load(); err != nil {
		// Degraded dedup memory, never fatal.
		w.logger.Warn("signature cache load failed", zap.Error(err))
	}

	if w.cfg.HistoricalDays > 0 {
		w.LoadHistorical(w.cfg.HistoricalDays)
	} else {
		w.discover()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("fsnotify unavailable, relying on polls only", zap.Error(err))
	} else {
		w.fsw = fsw
		_ = filepath.WalkDir(w.cfg.Directory, func(path string, d os.DirEntry, err error) error {
			if err == nil && d.IsDir() {
				_ = fsw.Add(path)
			}
			return nil
		})
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.pollLoop(ctx)
	if w.fsw != nil {
		w.wg.Add(1)
		go w.notifyLoop(ctx)
	}
	w.logger.Info("monitoring started",
		zap.String("directory", w.cfg.Directory),
		zap.Duration("poll_interval", w.cfg.PollInterval))
	return nil
}

// Stop flushes the seen-signature set and releases file handles, timers,
// and the OS watcher deterministically.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	if err := w.seen.Save(); err != nil {
		w.logger.Error("signature cache save failed", zap.Error(err))
		return err
	}
	w.logger.Info("monitoring stopped")
	return nil
}

// pollLoop runs one Sync per tick.
func (w *Watcher) pollLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sync()
		}
	}
}

// notifyLoop is the fsnotify fast path: it only records new files and
// rename pairs; all content reads happen on poll ticks.
func (w *Watcher) notifyLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Watcher faults are logged and polling continues.
			if w.errLog.Allow() {
				w.logger.Warn("watch channel error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	switch {
	case ev.Op&fsnotify.Create != 0:
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(ev.Name)
			return
		}
		if !w.matches(ev.Name) {
			return
		}
		w.mu.Lock()
		if w.pendingRename != "" && time.Since(w.renamedAt) < renameGrace {
			// Rotation rename: carry the old offset to the new path so
			// already-consumed bytes are not re-read.
			if tf, ok := w.files[w.pendingRename]; ok {
				delete(w.files, w.pendingRename)
				w.files[ev.Name] = tf
			}
			w.pendingRename = ""
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()
		// Fresh file: wait briefly, then a full read from offset 0 on the
		// next tick.
		time.AfterFunc(createSettle, func() { w.track(ev.Name, 0) })

	case ev.Op&fsnotify.Rename != 0:
		w.mu.Lock()
		if _, ok := w.files[ev.Name]; ok {
			w.pendingRename = ev.Name
			w.renamedAt = time.Now()
		}
		w.mu.Unlock()
	}
}

// track registers a file at the given starting offset.
func (w *Watcher) track(path string, offset int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[path]; !ok {
		w.files[path] = &trackedFile{offset: offset}
		filesTracked.Set(float64(len(w.files)))
	}
}

// MoveOffset transfers tailing state from one path to another after a
// rename.
func (w *Watcher) MoveOffset(oldPath, newPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if tf, ok := w.files[oldPath]; ok {
		delete(w.files, oldPath)
		w.files[newPath] = tf
	}
}

// Sync performs one synchronous poll pass: discover new files, then read
// every tracked file that has grown. Per-file errors skip that file for
// this cycle only.
func (w *Watcher) Sync() {
	w.discover()

	w.mu.Lock()
	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	w.mu.Unlock()

	sort.Strings(paths)
	for _, path := range paths {
		if err := w.readFile(path); err != nil {
			readErrors.Inc()
			if w.errLog.Allow() {
				w.logger.Warn("read failed, retrying next cycle",
					zap.String("file", path), zap.Error(err))
			}
		}
	}
}

// discover walks the directory for files matching the patterns and starts
// tracking unknown ones from offset 0.
func (w *Watcher) discover() {
	_ = filepath.WalkDir(w.cfg.Directory, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if w.matches(path) {
			w.track(path, 0)
		}
		return nil
	})
}

// matches tests a path against the configured doublestar patterns, relative
// to the watch directory.
func (w *Watcher) matches(path string) bool {
	rel, err := filepath.Rel(w.cfg.Directory, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(rel)
	for _, pat := range w.cfg.Patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// readFile reads newly appended complete lines from one file and publishes
// the parsed entries.
func (w *Watcher) readFile(path string) error {
	w.mu.Lock()
	tf, ok := w.files[path]
	if !ok {
		w.mu.Unlock()
		return nil
	}
	offset, partial, lineNo := tf.offset, tf.partial, tf.lineNo
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Deleted or renamed away; keep state for renameGrace handling.
			return nil
		}
		return err
	}

	if strings.HasSuffix(path, ".gz") {
		return w.readGzip(path, info.Size(), offset)
	}

	if info.Size() < offset {
		// Truncated in place: start over.
		offset, partial, lineNo = 0, "", 0
	}
	if info.Size() == offset {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	consumed := offset + int64(len(data))

	text := partial + string(data)
	lines := strings.Split(text, "\n")
	partial = lines[len(lines)-1] // incomplete tail, kept for next read
	lines = lines[:len(lines)-1]

	for _, line := range lines {
		lineNo++
		w.publish(strings.TrimSuffix(line, "\r"), path, lineNo)
	}

	w.mu.Lock()
	if tf, ok := w.files[path]; ok {
		tf.offset = consumed
		tf.partial = partial
		tf.lineNo = lineNo
	}
	w.mu.Unlock()
	return nil
}

// readGzip transparently decompresses a .gz file. Compressed archives are
// not appendable, so the whole stream is re-read whenever the compressed
// size changes; the signature set suppresses duplicates.
func (w *Watcher) readGzip(path string, size, lastSize int64) error {
	if size == lastSize {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return err
	}

	lineNo := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		lineNo++
		w.publish(strings.TrimSuffix(string(line), "\r"), path, lineNo)
	}

	w.mu.Lock()
	if tf, ok := w.files[path]; ok {
		tf.offset = size
		tf.lineNo = lineNo
	}
	w.mu.Unlock()
	return nil
}

// publish parses one line, deduplicates it, and hands the entry to the
// store and the alert sink.
func (w *Watcher) publish(line, path string, lineNo int) {
	linesRead.Inc()
	entry := w.parser.Parse(line, path, lineNo)
	if entry == nil {
		return
	}
	sig := entry.Signature()
	if w.seen.Seen(sig) {
		duplicatesSkipped.Inc()
		return
	}
	w.seen.Add(sig)
	w.store.Add(entry)
	entriesStored.Inc()
	if w.sink != nil {
		w.sink.ProcessEntry(entry)
	}
}

// LoadHistorical bulk-loads files modified within the look-back horizon,
// sorted by timestamp; the store's capacity bound keeps only the newest
// entries. Historical entries do not feed the alert sink.
func (w *Watcher) LoadHistorical(horizonDays int) {
	cutoff := time.Now().AddDate(0, 0, -horizonDays)
	var entries []*domain.LogEntry

	_ = filepath.WalkDir(w.cfg.Directory, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !w.matches(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.ModTime().Before(cutoff) {
			return nil
		}
		fileEntries, consumed, err := w.parseWholeFile(path)
		if err != nil {
			readErrors.Inc()
			w.logger.Warn("historical load failed", zap.String("file", path), zap.Error(err))
			return nil
		}
		entries = append(entries, fileEntries...)
		w.track(path, consumed)
		return nil
	})

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	var fresh []*domain.LogEntry
	for _, e := range entries {
		sig := e.Signature()
		if w.seen.Seen(sig) {
			duplicatesSkipped.Inc()
			continue
		}
		w.seen.Add(sig)
		fresh = append(fresh, e)
	}
	w.store.AddBatch(fresh)
	w.logger.Info("historical logs loaded",
		zap.Int("entries", len(fresh)),
		zap.Int("horizon_days", horizonDays))
}

// parseWholeFile reads a complete file (decompressing .gz) and parses every
// line without publishing.
func (w *Watcher) parseWholeFile(path string) ([]*domain.LogEntry, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var reader io.Reader = f
	info, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	consumed := info.Size()
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, 0, err
		}
		defer zr.Close()
		reader = zr
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, 0, err
	}
	var entries []*domain.LogEntry
	for i, line := range strings.Split(string(data), "\n") {
		linesRead.Inc()
		if entry := w.parser.Parse(strings.TrimSuffix(line, "\r"), path, i+1); entry != nil {
			entries = append(entries, entry)
		}
	}
	return entries, consumed, nil
}

// TrackedFiles returns the number of files currently tailed.
func (w *Watcher) TrackedFiles() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.files)
}

// FlushSignatures persists the seen-signature set immediately.
func (w *Watcher) FlushSignatures() error {
	return w.seen.Save()
}
