package engine

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Cache memoises SMOC and NMI results of a deterministic engine, in memory and
// optionally as JSON files under Dir. SCCC always reaches the wrapped engine
// because its result recolours the host model.
type Cache struct {
	next Engine
	dir  string

	mu  sync.RWMutex
	mem map[string][]byte
}

var _ Engine = (*Cache)(nil)

// NewCache wraps next. An empty dir keeps results in memory only.
func NewCache(next Engine, dir string) (*Cache, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return &Cache{next: next, dir: dir, mem: make(map[string][]byte)}, nil
}

func (c *Cache) SCCC(ctx context.Context, in SCCCInput) (SCCCResult, error) {
	return c.next.SCCC(ctx, in)
}

// SMOC keys on the rigid-body file's content as well as its path, so an
// edited file is scored again. An unreadable file bypasses the cache.
func (c *Cache) SMOC(ctx context.Context, in SMOCInput) ([]ModelScores, error) {
	var rigid string
	if in.RigidBodyFile != "" {
		sum, err := fileDigest(in.RigidBodyFile)
		if err != nil {
			return c.next.SMOC(ctx, in)
		}
		rigid = sum
	}
	key, err := cacheKey("smoc", struct {
		SMOCInput
		RigidBodyDigest string `json:"rigidBodyDigest,omitempty"`
	}{in, rigid})
	if err != nil {
		return nil, err
	}
	var scores []ModelScores
	if c.lookup(key, &scores) {
		return scores, nil
	}
	scores, err = c.next.SMOC(ctx, in)
	if err != nil {
		return nil, err
	}
	c.store(key, scores)
	return scores, nil
}

func (c *Cache) NMI(ctx context.Context, in NMIInput) (float64, error) {
	key, err := cacheKey("nmi", in)
	if err != nil {
		return 0, err
	}
	var score float64
	if c.lookup(key, &score) {
		return score, nil
	}
	score, err = c.next.NMI(ctx, in)
	if err != nil {
		return 0, err
	}
	c.store(key, score)
	return score, nil
}

func cacheKey(op string, in any) (string, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("%s: encode cache key: %w", op, err)
	}
	h := sha1.New()
	_, _ = io.WriteString(h, op)
	_, _ = io.WriteString(h, "|")
	_, _ = h.Write(raw)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c *Cache) lookup(key string, out any) bool {
	c.mu.RLock()
	data, ok := c.mem[key]
	c.mu.RUnlock()
	if !ok {
		var err error
		if data, err = c.loadFromDisk(key); err != nil {
			return false
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false
	}
	if !ok {
		c.mu.Lock()
		c.mem[key] = data
		c.mu.Unlock()
	}
	return true
}

func (c *Cache) store(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.mem[key] = data
	c.mu.Unlock()
	_ = c.saveToDisk(key, data)
}

func (c *Cache) loadFromDisk(key string) ([]byte, error) {
	if c.dir == "" {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(filepath.Join(c.dir, key+".json"))
}

func (c *Cache) saveToDisk(key string, data []byte) error {
	if c.dir == "" {
		return nil
	}
	path := filepath.Join(c.dir, key+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
