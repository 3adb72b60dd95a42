package sqlite

import (
	"net/url"
	"strings"
)

// FileConfig describes the database file of a [Store].
type FileConfig struct {
	path    string
	durable bool
}

// File returns a config of the database at path.
func File(path string) *FileConfig {
	path = strings.TrimSpace(path)
	if path == "" {
		panic("file can't be blank")
	}
	if strings.Contains(path, "?") {
		panic("file can't contain ?")
	}
	return &FileConfig{path: path}
}

// Durable makes every write synced to disk before it's acknowledged.
func (c *FileConfig) Durable(durable bool) *FileConfig {
	c.durable = durable
	return c
}

func (c *FileConfig) uri() string {
	if c == nil {
		return ":memory:"
	}

	query := url.Values{}
	if c.durable {
		query.Set("_sync", "full")
	}
	if len(query) == 0 {
		return c.path
	}

	return c.path + "?" + query.Encode()
}
