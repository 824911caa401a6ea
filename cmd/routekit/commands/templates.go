package commands

const helloRouteTemplate = `# Example route. The "hello" handler is built into routekit serve.
method: GET
path: /hello
handler: hello
`

const configTemplate = `mode: development

server:
  address: ":8080"
  handler_timeout: 30s
  body_limit: 2M
  cors: true
  recovery: true

logger:
  level: debug
  encoding: console

jwt:
  # Leave empty in development to use the built-in insecure secret.
  # Set ROUTEKIT_JWT_SECRET_KEY or JWT_SECRET in production.
  secret_key: ""
  token_ttl: 1h

routes:
  dir: routes
  prefix: /api/v1
  schemas_dir: schemas

database:
  driver: memory
  dsn: routekit.db

rate_limit:
  rate: 0
  burst: 20
`

const crudRouteTemplate = `# {{.Name}} CRUD, handlers are registered by handlers.Register{{.Name}}.
- method: GET
  path: {{.Path}}
  handler: {{.Slug}}.findAll

- method: GET
  path: {{.Path}}/:id
  handler: {{.Slug}}.findById

- method: POST
  path: {{.Path}}
  handler: {{.Slug}}.create
{{- if .BodySchema}}
  validate:
    body: "{{.BodySchema}}"
{{- end}}

- method: PUT
  path: {{.Path}}/:id
  handler: {{.Slug}}.update
{{- if .BodySchema}}
  validate:
    body: "{{.BodySchema}}"
{{- end}}

- method: DELETE
  path: {{.Path}}/:id
  auth: true
  handler: {{.Slug}}.delete
`

const crudHandlerTemplate = `package handlers

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/yshengliao/routekit/response"
	"github.com/yshengliao/routekit/route"
	"github.com/yshengliao/routekit/validation"

	"{{.ModuleName}}/services"
)

// {{.Name}}Handler serves the routes of routes/{{.Slug}}.yaml.
type {{.Name}}Handler struct {
	svc *services.{{.Name}}Service
}

// Register{{.Name}} adds the {{.Slug}} handlers to cat.
func Register{{.Name}}(cat *route.Catalog, svc *services.{{.Name}}Service) *{{.Name}}Handler {
	h := &{{.Name}}Handler{svc: svc}
	cat.AddHandler("{{.Slug}}.findAll", h.FindAll).
		AddHandler("{{.Slug}}.findById", h.FindByID).
		AddHandler("{{.Slug}}.create", h.Create).
		AddHandler("{{.Slug}}.update", h.Update).
		AddHandler("{{.Slug}}.delete", h.Delete)
{{- if .DefaultSchema}}
	cat.AddSchema("{{.DefaultSchema}}", validation.Func(require{{.Name}}Object))
{{- end}}
	return h
}

func (h *{{.Name}}Handler) FindAll(c echo.Context) error {
	items, err := h.svc.FindAll(c.Request().Context())
	if err != nil {
		return err
	}
	return response.OK(c, items)
}

func (h *{{.Name}}Handler) FindByID(c echo.Context) error {
	item, err := h.svc.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return notFound{{.Name}}Or(c, err)
	}
	return response.OK(c, item)
}

func (h *{{.Name}}Handler) Create(c echo.Context) error {
	in, err := bodyOf{{.Name}}(c)
	if err != nil {
		return err
	}
	item, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return response.Created(c, item)
}

func (h *{{.Name}}Handler) Update(c echo.Context) error {
	in, err := bodyOf{{.Name}}(c)
	if err != nil {
		return err
	}
	item, err := h.svc.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return notFound{{.Name}}Or(c, err)
	}
	return response.OK(c, item)
}

func (h *{{.Name}}Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return notFound{{.Name}}Or(c, err)
	}
	return response.NoContent(c)
}

func bodyOf{{.Name}}(c echo.Context) (map[string]any, error) {
	if v, ok := validation.ValueOf[map[string]any](c, validation.Body); ok {
		return v, nil
	}
	var in map[string]any
	if err := c.Bind(&in); err != nil {
		return nil, err
	}
	return in, nil
}
{{if .DefaultSchema}}
func require{{.Name}}Object(v any) (any, error) {
	if _, ok := v.(map[string]any); !ok {
		return nil, validation.NewFailure(validation.FieldIssue{Message: "body must be a JSON object"})
	}
	return v, nil
}
{{end}}
func notFound{{.Name}}Or(c echo.Context, err error) error {
	if errors.Is(err, services.Err{{.Name}}NotFound) {
		return response.NotFound(c, "{{.Name}}")
	}
	return err
}
`

const crudServiceTemplate = `package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Err{{.Name}}NotFound reports a missing {{.Slug}} record.
var Err{{.Name}}NotFound = errors.New("{{.Slug}} not found")

// {{.Name}}Service keeps {{.Slug}} records in memory.
type {{.Name}}Service struct {
	mu    sync.RWMutex
	items map[string]map[string]any
	order []string
}

func New{{.Name}}Service() *{{.Name}}Service {
	return &{{.Name}}Service{items: make(map[string]map[string]any)}
}

func (s *{{.Name}}Service) FindAll(ctx context.Context) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]map[string]any, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out, ctx.Err()
}

func (s *{{.Name}}Service) FindByID(ctx context.Context, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, Err{{.Name}}NotFound
	}
	return item, ctx.Err()
}

func (s *{{.Name}}Service) Create(ctx context.Context, data map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	item := make(map[string]any, len(data)+1)
	for k, v := range data {
		item[k] = v
	}
	id := uuid.NewString()
	item["id"] = id
	s.items[id] = item
	s.order = append(s.order, id)
	return item, nil
}

func (s *{{.Name}}Service) Update(ctx context.Context, id string, data map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, Err{{.Name}}NotFound
	}
	for k, v := range data {
		item[k] = v
	}
	item["id"] = id
	return item, nil
}

func (s *{{.Name}}Service) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return Err{{.Name}}NotFound
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
`
