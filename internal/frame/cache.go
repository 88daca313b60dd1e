package frame

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

type fileMetadata struct {
	Hash         string
	LastModified time.Time
}

type cacheEntry struct {
	metadata fileMetadata
	frame    *Frame
}

// Cache keeps loaded frames keyed by file path. An entry is reloaded when
// the file's modification time or content hash changes. Frames returned by
// Get are owned by the cache and must not be released by the caller.
type Cache struct {
	mem     memory.Allocator
	mutex   sync.Mutex
	entries map[string]cacheEntry
	load    func(path string, mem memory.Allocator) (*Frame, error)
}

func NewCache(mem memory.Allocator) *Cache {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Cache{
		mem:     mem,
		entries: make(map[string]cacheEntry),
		load:    Load,
	}
}

// Get returns the frame for path, loading it if needed.
func (c *Cache) Get(path string) (*Frame, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	metadata, err := getFileMetadata(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get file metadata: %w", err)
	}

	if entry, ok := c.entries[path]; ok {
		if !entry.isInvalid(metadata) {
			return entry.frame, nil
		}
		entry.frame.Release()
		delete(c.entries, path)
	}

	f, err := c.load(path, c.mem)
	if err != nil {
		return nil, err
	}
	c.entries[path] = cacheEntry{
		metadata: metadata,
		frame:    f,
	}
	return f, nil
}

// Invalidate drops the entry for path, if any.
func (c *Cache) Invalidate(path string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry, ok := c.entries[path]; ok {
		entry.frame.Release()
		delete(c.entries, path)
	}
}

// Len returns the number of cached frames.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

// Close releases every cached frame.
func (c *Cache) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for path, entry := range c.entries {
		entry.frame.Release()
		delete(c.entries, path)
	}
}

func (e cacheEntry) isInvalid(current fileMetadata) bool {
	return e.metadata.Hash != current.Hash || !e.metadata.LastModified.Equal(current.LastModified)
}

func getFileMetadata(filename string) (fileMetadata, error) {
	file, err := os.Open(filename)
	if err != nil {
		return fileMetadata{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fileMetadata{}, err
	}

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return fileMetadata{}, err
	}

	return fileMetadata{
		Hash:         fmt.Sprintf("%x", hash.Sum(nil)),
		LastModified: info.ModTime(),
	}, nil
}
