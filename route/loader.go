package route

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yshengliao/routekit/validation"
	"gopkg.in/yaml.v3"
)

// DefaultExtensions are the route file extensions recognized by NewLoader.
var DefaultExtensions = []string{".yaml", ".yml", ".json"}

// Loader discovers route definitions from a directory of route files.
//
// Each file holds either one route mapping or a sequence of them. Handler
// and schema names are resolved against the catalog.
type Loader struct {
	catalog *Catalog
	exts    map[string]bool
}

// NewLoader creates a loader resolving names against catalog. Without exts,
// DefaultExtensions are used.
func NewLoader(catalog *Catalog, exts ...string) *Loader {
	if catalog == nil {
		catalog = NewCatalog()
	}
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	l := &Loader{catalog: catalog, exts: make(map[string]bool, len(exts))}
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		l.exts[strings.ToLower(ext)] = true
	}
	return l
}

// Load reads the route files of dir. A missing dir is a *ConfigurationError.
func (l *Loader) Load(ctx context.Context, dir string) ([]Definition, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &ConfigurationError{Dir: dir, Reason: "cannot resolve routes directory", Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigurationError{Dir: abs, Reason: "routes directory does not exist"}
		}
		return nil, &ConfigurationError{Dir: abs, Reason: "cannot access routes directory", Err: err}
	}
	if !info.IsDir() {
		return nil, &ConfigurationError{Dir: abs, Reason: "routes path is not a directory"}
	}

	defs, err := l.LoadFS(ctx, os.DirFS(abs), ".")
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.Dir = abs
			if cfgErr.File != "" {
				cfgErr.File = filepath.Join(abs, filepath.FromSlash(cfgErr.File))
			}
		}
		return nil, err
	}
	return defs, nil
}

// LoadFS reads the route files directly under root in fsys. Files are
// processed in file name order and parsed concurrently.
func (l *Loader) LoadFS(ctx context.Context, fsys fs.FS, root string) ([]Definition, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigurationError{Dir: root, Reason: "routes directory does not exist"}
		}
		return nil, &ConfigurationError{Dir: root, Reason: "cannot read routes directory", Err: err}
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !l.exts[strings.ToLower(path.Ext(entry.Name()))] {
			continue
		}
		files = append(files, path.Join(root, entry.Name()))
	}

	results := make([][]Definition, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(i int, file string) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = l.loadFile(fsys, file)
		}(i, file)
	}
	wg.Wait()

	var defs []Definition
	for i := range files {
		if errs[i] != nil {
			return nil, errs[i]
		}
		defs = append(defs, results[i]...)
	}
	return defs, nil
}

func (l *Loader) loadFile(fsys fs.FS, file string) ([]Definition, error) {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, &ConfigurationError{File: file, Reason: "cannot read route file", Err: err}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigurationError{File: file, Reason: "cannot parse route file", Err: err}
	}

	node := &doc
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil, nil
		}
		node = node.Content[0]
	}
	node = resolveAlias(node)

	var nodes []*yaml.Node
	switch node.Kind {
	case yaml.MappingNode:
		nodes = []*yaml.Node{node}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item = resolveAlias(item); item.Kind == yaml.MappingNode {
				nodes = append(nodes, item)
			}
		}
	default:
		// empty, null and scalar documents declare no routes
		return nil, nil
	}

	defs := make([]Definition, 0, len(nodes))
	for _, n := range nodes {
		def, err := l.resolve(file, n)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// fileRoute is the shape of one route in a route file.
type fileRoute struct {
	Method   string `yaml:"method"`
	Path     string `yaml:"path"`
	Auth     bool   `yaml:"auth"`
	Handler  string `yaml:"handler"`
	Validate struct {
		Params string `yaml:"params"`
		Query  string `yaml:"query"`
		Body   string `yaml:"body"`
	} `yaml:"validate"`
}

func (l *Loader) resolve(file string, n *yaml.Node) (Definition, error) {
	fail := func(reason string, err error) (Definition, error) {
		return Definition{}, &ConfigurationError{
			File:   file,
			Reason: fmt.Sprintf("line %d: %s", n.Line, reason),
			Err:    err,
		}
	}

	var fr fileRoute
	if err := n.Decode(&fr); err != nil {
		return fail("invalid route", err)
	}

	if fr.Method == "" {
		return fail("method is required", nil)
	}
	method, err := ParseMethod(fr.Method)
	if err != nil {
		return fail("invalid method", err)
	}
	if fr.Path == "" {
		return fail("path is required", nil)
	}
	if fr.Handler == "" {
		return fail("handler is required", nil)
	}
	handler, ok := l.catalog.Handler(fr.Handler)
	if !ok {
		return fail(fmt.Sprintf("unknown handler %q", fr.Handler), nil)
	}

	def := Definition{
		Method:  method,
		Path:    fr.Path,
		Auth:    fr.Auth,
		Handler: handler,
		Name:    fr.Handler,
		Source:  file,
	}

	slots := []struct {
		name string
		dst  *validation.Schema
	}{
		{fr.Validate.Params, &def.Validate.Params},
		{fr.Validate.Query, &def.Validate.Query},
		{fr.Validate.Body, &def.Validate.Body},
	}
	for _, slot := range slots {
		if slot.name == "" {
			continue
		}
		schema, ok := l.catalog.Schema(slot.name)
		if !ok {
			return fail(fmt.Sprintf("unknown schema %q", slot.name), nil)
		}
		*slot.dst = schema
	}

	if err := def.Check(); err != nil {
		return fail("invalid route", err)
	}
	return def, nil
}
