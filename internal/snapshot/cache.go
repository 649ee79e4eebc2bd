// Package snapshot caches a built GeneSetDb on disk so that parsing the
// source collections can be skipped when they have not changed. Files are
// stored in the cache directory:
//
//	~/.vibe-gsea/genesetdb.gob       (serialized gene set db)
//	~/.vibe-gsea/genesetdb.gob.meta  (source file fingerprints)
//	~/.vibe-gsea/genesetdb.gob.lock  (advisory lock)
package snapshot

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/inodb/vibe-gsea/internal/gsdb"
)

const (
	lockTimeout    = 3 * time.Second
	lockRetryDelay = 100 * time.Millisecond
)

// Cache manages a gob-serialized GeneSetDb on disk.
type Cache struct {
	dir string
}

// New creates a cache for the given directory.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) gobPath() string {
	return filepath.Join(c.dir, "genesetdb.gob")
}

func (c *Cache) metaPath() string {
	return c.gobPath() + ".meta"
}

func (c *Cache) lockPath() string {
	return c.gobPath() + ".lock"
}

// withLock runs fn holding the cache lock.
func (c *Cache) withLock(fn func() error) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	lock := flock.New(c.lockPath())
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire cache lock: timed out after %s", lockTimeout)
	}
	defer lock.Unlock()
	return fn()
}

// Valid checks whether the cached db was built from exactly these sources.
func (c *Cache) Valid(sources ...FileFingerprint) bool {
	meta, err := c.readMeta()
	if err != nil {
		return false
	}
	want := metaLines(sources)
	for _, line := range want {
		k, v, _ := strings.Cut(line, "=")
		if meta[k] != v {
			return false
		}
	}

	// Verify gob file exists
	if _, err := os.Stat(c.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads the cached db. opts are passed to gsdb.FromSnapshot.
func (c *Cache) Load(opts ...gsdb.Option) (*gsdb.GeneSetDb, error) {
	var snap gsdb.Snapshot
	err := c.withLock(func() error {
		f, err := os.Open(c.gobPath())
		if err != nil {
			return fmt.Errorf("open gene set cache: %w", err)
		}
		defer f.Close()

		if err := gob.NewDecoder(f).Decode(&snap); err != nil {
			return fmt.Errorf("decode gene set cache: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return gsdb.FromSnapshot(snap, opts...)
}

// Write serializes db to disk along with the fingerprints of its sources.
func (c *Cache) Write(db *gsdb.GeneSetDb, sources ...FileFingerprint) error {
	snap := db.Snapshot()
	return c.withLock(func() error {
		f, err := os.Create(c.gobPath())
		if err != nil {
			return fmt.Errorf("create gene set cache: %w", err)
		}

		if err := gob.NewEncoder(f).Encode(snap); err != nil {
			f.Close()
			os.Remove(c.gobPath())
			return fmt.Errorf("encode gene set cache: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close gene set cache: %w", err)
		}

		lines := append(metaLines(sources), "created_at="+time.Now().UTC().Format(time.RFC3339), "")
		return os.WriteFile(c.metaPath(), []byte(strings.Join(lines, "\n")), 0o644)
	})
}

// Clear removes the cached files.
func (c *Cache) Clear() {
	os.Remove(c.gobPath())
	os.Remove(c.metaPath())
}

func metaLines(sources []FileFingerprint) []string {
	lines := []string{"sources=" + strconv.Itoa(len(sources))}
	for i, s := range sources {
		prefix := "source" + strconv.Itoa(i) + "_"
		lines = append(lines,
			prefix+"path="+s.Path,
			prefix+"size="+strconv.FormatInt(s.Size, 10),
			prefix+"modtime="+s.ModTime.UTC().Format(time.RFC3339Nano),
		)
	}
	return lines
}

func (c *Cache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(c.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
