package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// seenFile is the on-disk JSON structure for the persisted signature set.
type seenFile struct {
	Signatures map[string]time.Time `json:"signatures"`
}

// SignatureCache is the persisted seen-signature set used to deduplicate
// entries across restarts. Signatures older than the retention horizon are
// pruned on load and save.
type SignatureCache struct {
	mu      sync.Mutex
	path    string
	horizon time.Duration
	sigs    map[string]time.Time
	now     func() time.Time
}

// NewSignatureCache creates a cache persisted at path. retentionDays bounds
// how long a signature is remembered.
func NewSignatureCache(path string, retentionDays int) *SignatureCache {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &SignatureCache{
		path:    path,
		horizon: time.Duration(retentionDays) * 24 * time.Hour,
		sigs:    make(map[string]time.Time),
		now:     time.Now,
	}
}

// Load reads the cache file if present. A missing file is not an error;
// monitoring simply starts without dedup memory.
func (c *SignatureCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read signature cache: %w", err)
	}
	var data seenFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decode signature cache: %w", err)
	}
	c.sigs = data.Signatures
	if c.sigs == nil {
		c.sigs = make(map[string]time.Time)
	}
	c.pruneLocked()
	return nil
}

// Seen reports whether the signature was recorded before.
func (c *SignatureCache) Seen(sig string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sigs[sig]
	return ok
}

// Add records a signature at the current time.
func (c *SignatureCache) Add(sig string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sigs[sig] = c.now()
}

// Len returns the number of remembered signatures.
func (c *SignatureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sigs)
}

// Save prunes expired signatures and writes the cache atomically
// (temp file + rename).
func (c *SignatureCache) Save() error {
	if c.path == "" {
		return nil
	}
	c.mu.Lock()
	c.pruneLocked()
	raw, err := json.MarshalIndent(seenFile{Signatures: c.sigs}, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode signature cache: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write signature cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace signature cache: %w", err)
	}
	return nil
}

func (c *SignatureCache) pruneLocked() {
	cutoff := c.now().Add(-c.horizon)
	for sig, at := range c.sigs {
		if at.Before(cutoff) {
			delete(c.sigs, sig)
		}
	}
}
