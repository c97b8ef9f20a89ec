// Package catalog loads the static description of models the UI may offer.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// ModelParams holds the default sampling parameters for a model.
type ModelParams struct {
	MaxTokens   uint32  `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
}

// ModelInfo describes one offered model.
type ModelInfo struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	Provider    string      `json:"provider"`
	Tags        []string    `json:"tags"`
	Params      ModelParams `json:"params"`
}

type document struct {
	Models []ModelInfo `json:"models"`
}

// Catalog is the parsed catalog file. It is read-only after Load.
type Catalog struct {
	path   string
	models []ModelInfo
}

// IOError reports that the catalog file could not be read.
type IOError struct {
	Path  string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read catalog %q: %v", e.Path, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }

func (e *IOError) Stage() string { return "catalog" }

// ParseError reports that the catalog file is not valid JSON of the expected shape.
type ParseError struct {
	Path   string
	Detail string
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse catalog %q: %s", e.Path, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func (e *ParseError) Stage() string { return "catalog" }

// Load reads and parses the catalog at path. Entries are trusted and kept in file order.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Cause: err}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Detail: err.Error(), Cause: err}
	}
	if doc.Models == nil {
		doc.Models = []ModelInfo{}
	}

	return &Catalog{path: path, models: doc.Models}, nil
}

// Models returns the catalog entries in file order. The slice is a copy.
func (c *Catalog) Models() []ModelInfo {
	result := make([]ModelInfo, len(c.models))
	copy(result, c.models)
	return result
}

// Path returns the file the catalog was loaded from.
func (c *Catalog) Path() string {
	return c.path
}

// Loader loads a catalog on first use and keeps it for the process lifetime.
// Failed loads are not cached, so a fixed file is picked up on the next call.
type Loader struct {
	path string

	mu      sync.Mutex
	catalog *Catalog
}

// NewLoader returns a Loader for the catalog at path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Get returns the cached catalog, loading it if this is the first successful call.
func (l *Loader) Get() (*Catalog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.catalog != nil {
		return l.catalog, nil
	}
	c, err := Load(l.path)
	if err != nil {
		return nil, err
	}
	l.catalog = c
	return c, nil
}
