package sqlite

import (
	"strings"
)

type Config struct {
	uri   string
	conns int
}

type ConfigFunc = func(c *Config)

// URI sets the database file, optionally followed by "?" and driver parameters. The special
// value ":memory:" opens a private in-memory database.
func (c *Config) URI(uri string) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		panic("URI can't be blank")
	}
	c.uri = uri
}

// Conns sets the maximum number of open connections to a file database. In-memory databases
// always use a single connection.
func (c *Config) Conns(conns int) {
	if conns < 1 {
		panic("conns can't be < 1")
	}
	c.conns = conns
}

func WithURI(uri string) ConfigFunc {
	return func(c *Config) { c.URI(uri) }
}

func WithConns(conns int) ConfigFunc {
	return func(c *Config) { c.Conns(conns) }
}
