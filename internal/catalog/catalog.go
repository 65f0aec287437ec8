// Package catalog holds the fixed, ordered list of radio stations.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownSource is returned when a station index is out of range.
var ErrUnknownSource = errors.New("unknown source")

// Source is a named stream endpoint.
type Source struct {
	Name string
	URI  string
}

// defaults are the stations used when no configuration provides any.
var defaults = []Source{
	{Name: "Deepinradio", URI: "http://s3.viastreaming.net:8525"},
	{Name: "KCSM", URI: "http://ice5.securenetsystems.net/KCSM"},
	{Name: "KZSC", URI: "https://kzscfms1-geckohost.radioca.st/kzschigh?type=.mp3"},
	{Name: "KALX", URI: "http://stream.kalx.berkeley.edu:8000/kalx-320.aac"},
}

// Defaults returns a copy of the built-in stations.
func Defaults() []Source {
	return slices.Clone(defaults)
}

// Catalog is an immutable ordered list of sources. Selection is by index.
type Catalog struct {
	sources []Source
}

// New creates a catalog from the given sources.
// Entries with an empty URI are rejected; an empty name falls back to the URI.
func New(sources ...Source) (*Catalog, error) {
	c := &Catalog{sources: make([]Source, 0, len(sources))}
	for i, s := range sources {
		s.URI = strings.TrimSpace(s.URI)
		if s.URI == "" {
			return nil, fmt.Errorf("source %d: empty uri", i)
		}
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			s.Name = s.URI
		}
		c.sources = append(c.sources, s)
	}
	return c, nil
}

// Default returns a catalog of the compiled-in stations.
func Default() *Catalog {
	c, _ := New(defaults...)
	return c
}

// Len returns the number of sources.
func (c *Catalog) Len() int {
	return len(c.sources)
}

// At returns the source at index i.
func (c *Catalog) At(i int) (Source, error) {
	if i < 0 || i >= len(c.sources) {
		return Source{}, fmt.Errorf("%w: index %d of %d", ErrUnknownSource, i, len(c.sources))
	}
	return c.sources[i], nil
}

// All returns a copy of every source in order.
func (c *Catalog) All() []Source {
	out := make([]Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// Names returns the display names in order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name
	}
	return names
}

// Clamp returns i bounded to a valid index, or 0 for an empty catalog.
func (c *Catalog) Clamp(i int) int {
	if len(c.sources) == 0 || i < 0 {
		return 0
	}
	if i >= len(c.sources) {
		return len(c.sources) - 1
	}
	return i
}
