package route

import (
	"sort"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/yshengliao/routekit/validation"
)

// Catalog maps the names used in route files to handlers and schemas.
type Catalog struct {
	mu       sync.RWMutex
	handlers map[string]echo.HandlerFunc
	schemas  map[string]validation.Schema
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		handlers: make(map[string]echo.HandlerFunc),
		schemas:  make(map[string]validation.Schema),
	}
}

// AddHandler registers h under name, replacing any previous handler.
func (c *Catalog) AddHandler(name string, h echo.HandlerFunc) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = h
	return c
}

// AddSchema registers s under name, replacing any previous schema.
func (c *Catalog) AddSchema(name string, s validation.Schema) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[name] = s
	return c
}

// AddJSONSchemaDir registers every JSON schema of dir under its file name
// without extension.
func (c *Catalog) AddJSONSchemaDir(dir string) error {
	schemas, err := validation.LoadJSONSchemaDir(dir)
	if err != nil {
		return err
	}
	for name, s := range schemas {
		c.AddSchema(name, s)
	}
	return nil
}

// Handler returns the handler registered under name.
func (c *Catalog) Handler(name string) (echo.HandlerFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[name]
	return h, ok
}

// Schema returns the schema registered under name.
func (c *Catalog) Schema(name string) (validation.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.schemas[name]
	return s, ok
}

// HandlerNames returns the registered handler names, sorted.
func (c *Catalog) HandlerNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
