package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/yshengliao/routekit/app"
	"github.com/yshengliao/routekit/auth"
	"github.com/yshengliao/routekit/config"
	"github.com/yshengliao/routekit/health"
	"github.com/yshengliao/routekit/places"
	"github.com/yshengliao/routekit/route"
	"github.com/yshengliao/routekit/router"
	"github.com/yshengliao/routekit/validation"
	"go.uber.org/zap"
)

// openStore opens the places store selected by cfg.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (places.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return places.OpenSQLiteStore(ctx, cfg.DSN)
	case "memory", "":
		return places.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// newCatalog names everything the route files of a routekit project may use.
// JSON schemas of schemasDir replace built-in schemas of the same name.
func newCatalog(jwt *auth.JWTService, store places.Store, schemasDir string) (*route.Catalog, error) {
	cat := route.NewCatalog()
	places.Register(cat, places.NewService(store))
	cat.AddHandler("auth.issueToken", auth.IssueHandler(jwt)).
		AddSchema("auth.tokenRequest", validation.Struct[auth.TokenRequest]()).
		AddHandler("hello", helloHandler).
		AddHandler("health", health.Handler(newHealthChecker(store)))

	if schemasDir != "" {
		if info, err := os.Stat(schemasDir); err == nil && info.IsDir() {
			if err := cat.AddJSONSchemaDir(schemasDir); err != nil {
				return nil, err
			}
		}
	}
	return cat, nil
}

// newHealthChecker reports the reachability of the places store.
func newHealthChecker(store places.Store) *health.Checker {
	checker := health.NewChecker(health.DefaultTimeout)
	checker.Register("places.store", health.Probe(func(ctx context.Context) error {
		_, err := store.Count(ctx)
		return err
	}))
	return checker
}

func helloHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Hello from routekit!"})
}

// newServer builds an app serving the route directory of cfg over store.
func newServer(ctx context.Context, cfg *config.Config, store places.Store, logger *zap.Logger) (*app.App, error) {
	a, err := app.NewApp(app.WithConfig(cfg), app.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	cat, err := newCatalog(a.JWTService(), store, cfg.Routes.SchemasDir)
	if err != nil {
		return nil, err
	}

	if _, err := a.RegisterRoutes(ctx, router.Options{
		Prefix:    cfg.Routes.Prefix,
		RoutesDir: cfg.Routes.Dir,
		Catalog:   cat,
	}); err != nil {
		return nil, err
	}
	return a, nil
}
