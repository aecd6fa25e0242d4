// Package datasource defines the row-producing interface Data Analysis
// Agents pull from (spec.md §6: `get_data(triggerTime) → rows{title,
// content, pub_time, url}`) and a filesystem-backed caching decorator so a
// re-run for the same (sourceName, triggerTime) doesn't refetch.
//
// Grounded on original_source/contest_trade/data_source/*.py's
// get_data_cached/save_data_cached pattern (each concrete source checks its
// own cache before fetching, and writes what it fetched back).
package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Row is one item a data source contributes for a trigger time.
type Row struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	PubTime string `json:"pub_time"`
	URL     string `json:"url,omitempty"`
}

// Source produces rows for a trigger time. Name identifies the source for
// caching and for the per-data-agent `dataSourceList` configuration
// (spec.md §6).
type Source interface {
	Name() string
	GetData(ctx context.Context, triggerTime string) ([]Row, error)
}

// Cache persists and retrieves a source's rows for a given trigger time, so
// a process restart or a second agent using the same source doesn't refetch
// within the same run.
type Cache struct {
	dir string
}

// NewCache roots a Cache at dir, creating it if necessary.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create datasource cache dir %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) path(sourceName, triggerTime string) string {
	key := strings.NewReplacer(" ", "_", ":", "-").Replace(triggerTime)
	return filepath.Join(c.dir, sourceName, key+".json")
}

// Load returns the cached rows for (sourceName, triggerTime), or found=false
// if nothing has been cached yet.
func (c *Cache) Load(sourceName, triggerTime string) (rows []Row, found bool, err error) {
	data, err := os.ReadFile(c.path(sourceName, triggerTime))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read datasource cache %s/%s: %w", sourceName, triggerTime, err)
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false, fmt.Errorf("parse datasource cache %s/%s: %w", sourceName, triggerTime, err)
	}
	return rows, true, nil
}

// Save persists rows for (sourceName, triggerTime).
func (c *Cache) Save(sourceName, triggerTime string, rows []Row) error {
	path := c.path(sourceName, triggerTime)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create datasource cache dir for %s: %w", sourceName, err)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal datasource cache %s/%s: %w", sourceName, triggerTime, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write datasource cache %s/%s: %w", sourceName, triggerTime, err)
	}
	return os.Rename(tmp, path)
}

// CachingSource wraps a Source so repeated calls for the same trigger time
// read from Cache instead of re-fetching.
type CachingSource struct {
	inner Source
	cache *Cache
}

// NewCachingSource decorates inner with cache.
func NewCachingSource(inner Source, cache *Cache) *CachingSource {
	return &CachingSource{inner: inner, cache: cache}
}

func (s *CachingSource) Name() string { return s.inner.Name() }

// GetData serves from cache when present; otherwise delegates to inner and
// caches the result for next time. A fetch error is never cached.
func (s *CachingSource) GetData(ctx context.Context, triggerTime string) ([]Row, error) {
	if rows, found, err := s.cache.Load(s.inner.Name(), triggerTime); err != nil {
		return nil, err
	} else if found {
		return rows, nil
	}

	rows, err := s.inner.GetData(ctx, triggerTime)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Save(s.inner.Name(), triggerTime, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Registry resolves configured data-source names (spec.md §6's
// `dataAgents[].dataSourceList`) to Source implementations.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds src under its own Name(), wrapped in a CachingSource if
// cache is non-nil.
func (r *Registry) Register(src Source, cache *Cache) {
	if cache != nil {
		src = NewCachingSource(src, cache)
	}
	r.sources[src.Name()] = src
}

// Get resolves a data-source name to its Source, as referenced by a Data
// Analysis Agent's dataSourceList.
func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// Names returns every registered source name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}
