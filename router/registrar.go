package router

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/yshengliao/routekit/route"
	"go.uber.org/zap"
)

// DefaultRoutesDir is the routes directory used when Options.RoutesDir is empty.
const DefaultRoutesDir = "routes"

// Mounter is the part of a server the registrar mounts routes on.
// *echo.Echo and *echo.Group both satisfy it.
type Mounter interface {
	Add(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route
}

// Options configures one registration.
type Options struct {
	// Prefix is prepended to every route path.
	Prefix string
	// GlobalMiddleware runs first on every route, in order.
	GlobalMiddleware []echo.MiddlewareFunc
	// AuthMiddleware guards the routes declaring auth.
	AuthMiddleware echo.MiddlewareFunc

	// RoutesDir is scanned for route files, DefaultRoutesDir when empty.
	RoutesDir string
	// RoutesFS, when set, is scanned at its root instead of RoutesDir.
	RoutesFS fs.FS
	// DisableDiscovery skips route files and registers only Routes.
	DisableDiscovery bool
	// Catalog resolves handler and schema names used in route files.
	Catalog *route.Catalog

	// Routes are registered after the discovered ones, in order.
	Routes []route.Definition

	Logger *zap.Logger
}

// Entry is a composed route ready to mount.
type Entry struct {
	Method     route.Method
	Path       string
	Definition route.Definition
	Chain      Chain
}

// Table holds the composed routes of one registration.
type Table struct {
	entries    []Entry
	duplicates []Entry
}

// Routes returns the entries in registration order.
func (t *Table) Routes() []Entry {
	return t.entries
}

// Duplicates returns every entry whose method and path were already taken by
// an earlier entry. The server keeps the last one.
func (t *Table) Duplicates() []Entry {
	return t.duplicates
}

// Mount adds every entry to server.
func (t *Table) Mount(server Mounter) []*echo.Route {
	routes := make([]*echo.Route, 0, len(t.entries))
	for _, e := range t.entries {
		routes = append(routes, server.Add(string(e.Method), e.Path, e.Chain.Handler, e.Chain.Middleware()...))
	}
	return routes
}

// Registrar discovers, composes and mounts routes.
type Registrar struct {
	opts   Options
	logger *zap.Logger
}

// NewRegistrar creates a registrar for opts.
func NewRegistrar(opts Options) *Registrar {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Catalog == nil {
		opts.Catalog = route.NewCatalog()
	}
	return &Registrar{opts: opts, logger: logger}
}

// Register loads the route files, composes every definition and mounts the
// result on server. Nothing is mounted when discovery or composition fails.
func (r *Registrar) Register(ctx context.Context, server Mounter) (*Table, error) {
	source, defs, err := r.discover(ctx)
	if err != nil {
		return nil, err
	}
	defs = append(defs, r.opts.Routes...)

	composer := NewComposer(r.opts.GlobalMiddleware, r.opts.AuthMiddleware)
	table := &Table{entries: make([]Entry, 0, len(defs))}
	seen := make(map[string]bool, len(defs))

	for _, def := range defs {
		chain, err := composer.Compose(def)
		if err != nil {
			return nil, err
		}

		entry := Entry{
			Method:     def.Method,
			Path:       JoinPath(r.opts.Prefix, def.Path),
			Definition: def,
			Chain:      chain,
		}

		key := string(entry.Method) + " " + entry.Path
		if seen[key] {
			table.duplicates = append(table.duplicates, entry)
			r.logger.Warn("Duplicate route, the last registration wins",
				zap.String("method", string(entry.Method)),
				zap.String("path", entry.Path),
				zap.String("source", def.Source))
		}
		seen[key] = true

		table.entries = append(table.entries, entry)
	}

	r.logger.Info("Registering routes",
		zap.String("dir", source),
		zap.String("prefix", r.opts.Prefix),
		zap.Int("routes", len(table.entries)))

	table.Mount(server)
	for _, e := range table.entries {
		r.logger.Info("Registered route",
			zap.String("method", string(e.Method)),
			zap.String("path", e.Path),
			zap.String("handler", e.Definition.Name),
			zap.Strings("chain", e.Chain.Names()))
	}

	return table, nil
}

func (r *Registrar) discover(ctx context.Context) (string, []route.Definition, error) {
	if r.opts.DisableDiscovery {
		return "", nil, nil
	}

	loader := route.NewLoader(r.opts.Catalog)
	if r.opts.RoutesFS != nil {
		defs, err := loader.LoadFS(ctx, r.opts.RoutesFS, ".")
		return "fs", defs, err
	}

	dir := r.opts.RoutesDir
	if dir == "" {
		dir = DefaultRoutesDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, &route.ConfigurationError{Dir: dir, Reason: "cannot resolve routes directory", Err: err}
	}
	defs, err := loader.Load(ctx, abs)
	return abs, defs, err
}

// RegisterRoutes registers the routes described by opts on server.
func RegisterRoutes(ctx context.Context, server Mounter, opts Options) (*Table, error) {
	return NewRegistrar(opts).Register(ctx, server)
}

// JoinPath prepends prefix to path. A trailing slash of prefix is dropped and
// the root path maps to the prefix itself.
func JoinPath(prefix, path string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return path
	}
	if path == "/" || path == "" {
		return prefix
	}
	return prefix + path
}
