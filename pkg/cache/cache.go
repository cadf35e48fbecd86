// Package cache memoizes parsed import tables by source content.
//
// Entries live in a bounded in-memory LRU and, when a directory is
// configured, in LZ4-compressed gob files that survive between runs.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/minio/highwayhash"

	"github.com/Sumatoshi-tech/pybundle/pkg/persist"
	"github.com/Sumatoshi-tech/pybundle/pkg/pyimport"
)

// DefaultSize is the default number of in-memory entries.
const DefaultSize = 4096

// schemaVersion is mixed into every key; bump it when pyimport.File changes shape.
const schemaVersion = "pyimport/v1"

var hashKey = []byte("pybundle-parse-cache-key-0000001")

// Options configures a Cache.
type Options struct {
	// Size bounds the in-memory LRU. Zero means DefaultSize.
	Size int
	// Dir enables the on-disk layer when non-empty.
	Dir    string
	Logger *slog.Logger
}

// Stats counts cache traffic.
type Stats struct {
	Hits     int64 `json:"hits" yaml:"hits"`
	DiskHits int64 `json:"disk_hits" yaml:"disk_hits"`
	Misses   int64 `json:"misses" yaml:"misses"`
}

// Cache is safe for concurrent use.
type Cache struct {
	mem    *lru.Cache[uint64, *pyimport.File]
	disk   *persist.Store[pyimport.File]
	logger *slog.Logger

	hits     atomic.Int64
	diskHits atomic.Int64
	misses   atomic.Int64
}

// New creates a cache.
func New(opts Options) (*Cache, error) {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}

	mem, err := lru.New[uint64, *pyimport.File](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Cache{mem: mem, logger: logger}

	if opts.Dir != "" {
		c.disk = persist.NewStore[pyimport.File](opts.Dir, persist.NewLZ4Codec(persist.NewGobCodec()))
	}

	return c, nil
}

// Key returns the content hash used to address src.
func Key(src []byte) uint64 {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		// Only reachable with a key that is not 32 bytes long.
		panic(err)
	}

	h.Write([]byte(schemaVersion))
	h.Write(src)

	return h.Sum64()
}

// Get returns the cached parse of src.
func (c *Cache) Get(src []byte) (*pyimport.File, bool) {
	key := Key(src)

	if file, ok := c.mem.Get(key); ok {
		c.hits.Add(1)

		return file, true
	}

	if c.disk != nil {
		file, err := c.disk.Load(entryName(key))
		if err == nil {
			c.diskHits.Add(1)
			c.mem.Add(key, file)

			return file, true
		}

		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("ignoring unreadable cache entry", "key", entryName(key), "error", err)
		}
	}

	c.misses.Add(1)

	return nil, false
}

// Put stores the parse of src. Disk failures are logged, not returned.
func (c *Cache) Put(src []byte, file *pyimport.File) {
	key := Key(src)
	c.mem.Add(key, file)

	if c.disk == nil {
		return
	}

	err := c.disk.Save(entryName(key), file)
	if err != nil {
		c.logger.Warn("failed to write cache entry", "dir", c.disk.Dir(), "error", err)
	}
}

// GetOrParse returns the cached parse of src or calls parse and caches its result.
func (c *Cache) GetOrParse(src []byte, parse func([]byte) (*pyimport.File, error)) (*pyimport.File, error) {
	if file, ok := c.Get(src); ok {
		return file, nil
	}

	file, err := parse(src)
	if err != nil {
		return nil, err
	}

	c.Put(src, file)

	return file, nil
}

// Len returns the number of in-memory entries.
func (c *Cache) Len() int {
	return c.mem.Len()
}

// Stats returns a snapshot of the traffic counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		DiskHits: c.diskHits.Load(),
		Misses:   c.misses.Load(),
	}
}

func entryName(key uint64) string {
	return fmt.Sprintf("%016x", key)
}
