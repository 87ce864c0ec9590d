package services

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is used when no catalog path is configured.
const DefaultPath = "services.toml"

// file represents the complete catalog file for TOML unmarshaling.
type file struct {
	Version  int       `toml:"version"`
	Services []Service `toml:"services"`
}

// tomlCatalog implements Catalog on top of a TOML file.
type tomlCatalog struct {
	path string

	mu       sync.RWMutex
	services map[int64]Service
}

// NewTOML creates a TOML-backed catalog. Call Load before use.
func NewTOML(path string) Catalog {
	if path == "" {
		path = DefaultPath
	}
	return &tomlCatalog{
		path:     path,
		services: make(map[int64]Service),
	}
}

func (c *tomlCatalog) Path() string {
	return c.path
}

// Load reads the catalog file. A missing file is an empty catalog.
func (c *tomlCatalog) Load() error {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		c.replace(make(map[int64]Service))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read services catalog: %w", err)
	}

	services, err := parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse services catalog %s: %w", c.path, err)
	}

	c.replace(services)
	return nil
}

func (c *tomlCatalog) replace(services map[int64]Service) {
	c.mu.Lock()
	c.services = services
	c.mu.Unlock()
}

// parse decodes and checks catalog data. Ids must be positive and unique.
func parse(data []byte) (map[int64]Service, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Version > 1 {
		return nil, fmt.Errorf("unsupported catalog version %d", f.Version)
	}

	services := make(map[int64]Service, len(f.Services))
	for i, svc := range f.Services {
		if svc.ID <= 0 {
			return nil, fmt.Errorf("service #%d (%q): id must be positive", i+1, svc.Name)
		}
		if _, dup := services[svc.ID]; dup {
			return nil, fmt.Errorf("duplicate service id %d", svc.ID)
		}
		services[svc.ID] = svc
	}
	return services, nil
}

func (c *tomlCatalog) Get(id int64) (Service, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	svc, exists := c.services[id]
	return svc, exists
}

func (c *tomlCatalog) All() []Service {
	c.mu.RLock()
	all := make([]Service, 0, len(c.services))
	for _, svc := range c.services {
		all = append(all, svc)
	}
	c.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}
