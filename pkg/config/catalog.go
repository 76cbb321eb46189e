package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog is the tag/priority vocabulary used by downstream classification.
// It is injected explicitly into the components that need it instead of
// living in package-level state, and can be reloaded from disk at runtime.
type Catalog struct {
	mu   sync.RWMutex
	path string

	tags       []string
	priorities []string
}

type catalogFile struct {
	Tags       []string `yaml:"tags"`
	Priorities []string `yaml:"priorities"`
}

// LoadCatalog reads the vocabulary from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewCatalog builds an in-memory catalog, mainly for tests and embedded use.
func NewCatalog(tags, priorities []string) *Catalog {
	return &Catalog{tags: tags, priorities: priorities}
}

// Reload re-reads the vocabulary file. On error the previous vocabulary is
// kept intact.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}

	var parsed catalogFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse catalog file: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = parsed.Tags
	c.priorities = parsed.Priorities
	return nil
}

// Tags returns a copy of the known tag vocabulary.
func (c *Catalog) Tags() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.tags...)
}

// Priorities returns a copy of the known priority vocabulary.
func (c *Catalog) Priorities() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.priorities...)
}
