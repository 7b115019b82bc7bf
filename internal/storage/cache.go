package storage

import (
	"fmt"

	"clrecon/internal"
)

// Cache memoizes standardized tables across process runs. It is handed
// to the pipeline explicitly; nothing consults it implicitly, and Reset
// is the only invalidation path.
type Cache struct {
	DB *DB
}

func cacheKey(source internal.SourceSystem) string {
	return "cached:" + string(source)
}

// Get returns the cached table for a source, standardizing and caching
// on first use. A cached empty table is a hit, not a miss.
func (c *Cache) Get(source internal.SourceSystem, load func() ([]internal.ContractLine, error)) ([]internal.ContractLine, error) {
	marker, err := c.DB.GetMetadata(cacheKey(source))
	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", source, err)
	}
	if marker != nil {
		lines, err := c.DB.LoadLines(source)
		if err != nil {
			return nil, fmt.Errorf("cache %s: %w", source, err)
		}
		return lines, nil
	}

	lines, err := load()
	if err != nil {
		return nil, err
	}
	if err := c.DB.SaveLines(source, lines); err != nil {
		return nil, fmt.Errorf("cache %s: %w", source, err)
	}
	if err := c.DB.SetMetadata(cacheKey(source), "1"); err != nil {
		return nil, fmt.Errorf("cache %s: %w", source, err)
	}
	return lines, nil
}

// Reset drops every cached table and its markers.
func (c *Cache) Reset() error {
	return c.DB.ResetCache()
}
