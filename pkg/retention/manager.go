// Package retention archives, compresses, and purges log files on disk.
// Every file operation is individually fault-isolated: one failing file
// never aborts the batch.
package retention

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/domain"
)

const archiveSuffix = ".archive"

// ErrConfirmationRequired is returned when a destructive manual cleanup is
// attempted without explicit confirmation.
var ErrConfirmationRequired = errors.New("retention: cleanup requires confirmation")

// logExtensions are the active log file extensions retention manages.
var logExtensions = map[string]bool{".log": true, ".jsonl": true, ".txt": true}

// Manager applies a RetentionPolicy to a directory tree.
type Manager struct {
	logger *zap.Logger
	dir    string
	policy domain.RetentionPolicy
	now    func() time.Time
}

// NewManager creates a retention manager for the given directory.
func NewManager(dir string, policy domain.RetentionPolicy, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger: logger.Named("retention"),
		dir:    dir,
		policy: policy,
		now:    time.Now,
	}
}

// Policy returns the active policy.
func (m *Manager) Policy() domain.RetentionPolicy { return m.policy }

// CleanupOptions control one cleanup invocation.
type CleanupOptions struct {
	// Confirmed bypasses the policy's confirmation requirement. Scheduled
	// auto-clean runs always pass it.
	Confirmed bool
	// WipeAll deletes every managed file regardless of age.
	WipeAll bool
}

// CleanupResult reports what one invocation did.
type CleanupResult struct {
	Deleted    int
	Archived   int
	Compressed int
	Purged     int // expired gzip archives removed
	Failed     int
	FreedBytes int64
}

// Cleanup deletes files past the age threshold, archives files past the
// retention window, enforces the size budget, and purges expired archives.
func (m *Manager) Cleanup(opts CleanupOptions) (CleanupResult, error) {
	var res CleanupResult
	if !m.policy.Enabled {
		return res, nil
	}
	if m.policy.RequireConfirmation && !opts.Confirmed {
		return res, ErrConfirmationRequired
	}

	now := m.now()
	deleteCutoff := now.AddDate(0, 0, -m.policy.MaxArchiveAgeDays)
	archiveCutoff := now.AddDate(0, 0, -m.policy.RetentionDays)

	for _, fi := range m.listFiles() {
		switch {
		case opts.WipeAll:
			m.removeFile(fi, &res)
		case strings.HasSuffix(fi.path, archiveSuffix+".gz"):
			if fi.modTime.Before(deleteCutoff) {
				if m.removeFile(fi, &res) {
					res.Purged++
				}
			}
		case isActiveLog(fi.path):
			if fi.modTime.Before(deleteCutoff) {
				m.removeFile(fi, &res)
			} else if fi.modTime.Before(archiveCutoff) {
				m.archive(fi, &res)
			}
		}
	}

	m.enforceSizeBudget(&res)
	m.policy.LastCleanup = now
	m.logger.Info("cleanup finished",
		zap.Int("deleted", res.Deleted),
		zap.Int("archived", res.Archived),
		zap.Int("purged", res.Purged),
		zap.Int("failed", res.Failed),
		zap.Int64("freed_bytes", res.FreedBytes))
	return res, nil
}

// Compress gzips plain .archive files older than the compress-after
// threshold and deletes the uncompressed originals. A threshold of zero
// compresses immediately.
func (m *Manager) Compress() (CleanupResult, error) {
	var res CleanupResult
	compressCutoff := m.now().AddDate(0, 0, -m.policy.CompressAfterDays)
	for _, fi := range m.listFiles() {
		if !strings.HasSuffix(fi.path, archiveSuffix) {
			continue
		}
		if m.policy.CompressAfterDays > 0 && fi.modTime.After(compressCutoff) {
			continue
		}
		if err := gzipFile(fi.path); err != nil {
			res.Failed++
			m.logger.Warn("compress failed", zap.String("file", fi.path), zap.Error(err))
			continue
		}
		if err := os.Remove(fi.path); err != nil {
			res.Failed++
			m.logger.Warn("archive remove failed", zap.String("file", fi.path), zap.Error(err))
			continue
		}
		res.Compressed++
	}
	return res, nil
}

// Stats summarizes the managed directory.
type Stats struct {
	ActiveFiles  int       `json:"active_files"`
	ActiveBytes  int64     `json:"active_bytes"`
	ArchiveFiles int       `json:"archive_files"`
	ArchiveBytes int64     `json:"archive_bytes"`
	OldestFile   time.Time `json:"oldest_file,omitempty"`
}

// Stats reports file counts and sizes for active logs and archives.
func (m *Manager) Stats() Stats {
	var s Stats
	for _, fi := range m.listFiles() {
		if strings.Contains(fi.path, archiveSuffix) {
			s.ArchiveFiles++
			s.ArchiveBytes += fi.size
		} else if isActiveLog(fi.path) {
			s.ActiveFiles++
			s.ActiveBytes += fi.size
		}
		if s.OldestFile.IsZero() || fi.modTime.Before(s.OldestFile) {
			s.OldestFile = fi.modTime
		}
	}
	return s
}

// StartAutoClean runs compress-then-cleanup on a daily schedule, without
// interactive confirmation, until the context is cancelled.
func (m *Manager) StartAutoClean(ctx context.Context) {
	if !m.policy.AutoClean {
		return
	}
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.Compress(); err != nil {
					m.logger.Warn("scheduled compress failed", zap.Error(err))
				}
				if _, err := m.Cleanup(CleanupOptions{Confirmed: true}); err != nil {
					m.logger.Warn("scheduled cleanup failed", zap.Error(err))
				}
			}
		}
	}()
}

// ---------------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------------

type fileInfo struct {
	path    string
	size    int64
	modTime time.Time
}

func (m *Manager) listFiles() []fileInfo {
	var out []fileInfo
	_ = filepath.WalkDir(m.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, fileInfo{path: path, size: info.Size(), modTime: info.ModTime()})
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].modTime.Before(out[j].modTime) })
	return out
}

func isActiveLog(path string) bool {
	return logExtensions[strings.ToLower(filepath.Ext(path))]
}

func (m *Manager) removeFile(fi fileInfo, res *CleanupResult) bool {
	if err := os.Remove(fi.path); err != nil {
		res.Failed++
		m.logger.Warn("delete failed", zap.String("file", fi.path), zap.Error(err))
		return false
	}
	res.Deleted++
	res.FreedBytes += fi.size
	return true
}

// archive renames <name> to <name>.<YYYY-MM-DD>.archive, pending
// compression.
func (m *Manager) archive(fi fileInfo, res *CleanupResult) {
	target := fi.path + "." + m.now().Format("2006-01-02") + archiveSuffix
	if err := os.Rename(fi.path, target); err != nil {
		res.Failed++
		m.logger.Warn("archive failed", zap.String("file", fi.path), zap.Error(err))
		return
	}
	res.Archived++
}

// enforceSizeBudget archives the oldest active files until total active size
// fits the byte budget.
func (m *Manager) enforceSizeBudget(res *CleanupResult) {
	if m.policy.MaxTotalSizeBytes <= 0 {
		return
	}
	files := m.listFiles()
	var total int64
	for _, fi := range files {
		if isActiveLog(fi.path) {
			total += fi.size
		}
	}
	for _, fi := range files { // oldest first
		if total <= m.policy.MaxTotalSizeBytes {
			return
		}
		if !isActiveLog(fi.path) {
			continue
		}
		m.archive(fi, res)
		total -= fi.size
	}
}

// gzipFile writes <path>.gz next to path.
func gzipFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
