package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/yshengliao/routekit/app"
	"github.com/yshengliao/routekit/config"
	"github.com/yshengliao/routekit/middleware"
	"github.com/yshengliao/routekit/validation"
	"go.uber.org/zap"
)

type mockOptions struct {
	entity string
	schema string
	export string
	count  int
	port   int
}

// fabricateAttempts bounds the retries for one record that fails validation.
const fabricateAttempts = 25

// mockSource fabricates records that validate against one JSON schema.
type mockSource struct {
	mu     sync.Mutex
	fab    *fabricator
	target any
	schema *validation.JSONSchema
	count  int
}

func readSchemaDocument(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	return raw, nil
}

func newMockSource(path, export string, count int, fake *gofakeit.Faker) (*mockSource, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", count)
	}

	raw, err := readSchemaDocument(path)
	if err != nil {
		return nil, err
	}
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("invalid schema JSON %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	schema, err := validation.CompileJSONSchemaDef(abs, raw, export)
	if err != nil {
		return nil, err
	}

	fab := newFabricator(root, fake)
	var target any = root
	if export != "" {
		pointer, _ := validation.DefinitionPointer(root, export)
		target, _ = fab.resolve("#" + pointer)
	}
	return &mockSource{fab: fab, target: target, schema: schema, count: count}, nil
}

// records fabricates count records, each checked against the schema.
func (m *mockSource) records() ([]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]any, 0, m.count)
	for i := 0; i < m.count; i++ {
		record, err := m.record()
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (m *mockSource) record() (any, error) {
	var lastErr error
	for attempt := 0; attempt < fabricateAttempts; attempt++ {
		v := m.fab.value(m.target, "", 0)
		if _, err := m.schema.Validate(v); err != nil {
			lastErr = err
			continue
		}
		return v, nil
	}
	return nil, fmt.Errorf("could not fabricate a record matching %s: %w", m.schema.ID(), lastErr)
}

// newMockServer serves fresh records of src at GET /api/mock/<entity>.
func newMockServer(entity string, src *mockSource, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(echomw.CORS())

	e.GET("/api/mock/"+entity, func(c echo.Context) error {
		records, err := src.records()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, records)
	})
	return e
}

func runMock(ctx context.Context, opts mockOptions) error {
	src, err := newMockSource(opts.schema, opts.export, opts.count, nil)
	if err != nil {
		return err
	}

	logger, err := app.NewLogger(config.DefaultConfig().Logger)
	if err != nil {
		return err
	}
	defer logger.Sync()

	e := newMockServer(opts.entity, src, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(fmt.Sprintf(":%d", opts.port))
	}()
	fmt.Printf("🧪 Mock API for %q ready at http://localhost:%d/api/mock/%s\n", opts.entity, opts.port, opts.entity)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
