package places

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/yshengliao/routekit/response"
	"github.com/yshengliao/routekit/route"
	"github.com/yshengliao/routekit/validation"
)

// entity names the resource in 404 responses.
const entity = "Place"

// Handler serves the place routes.
type Handler struct {
	svc *Service
}

// NewHandler creates the handlers for svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register adds the place handlers and schemas to cat under the names used
// by routes/places.yaml.
func Register(cat *route.Catalog, svc *Service) *Handler {
	h := NewHandler(svc)
	cat.AddHandler("places.findAll", h.FindAll).
		AddHandler("places.findById", h.FindByID).
		AddHandler("places.create", h.Create).
		AddHandler("places.update", h.Update).
		AddHandler("places.delete", h.Delete).
		AddSchema("places.idParams", validation.Struct[IDParams]()).
		AddSchema("places.list", ListQuerySchema()).
		AddSchema("places.create", validation.Struct[CreatePlace]()).
		AddSchema("places.update", validation.Struct[UpdatePlace]())
	return h
}

// FindAll handles GET /places.
func (h *Handler) FindAll(c echo.Context) error {
	q, ok := validation.ValueOf[ListQuery](c, validation.Query)
	if !ok {
		q = parseListQuery(c.QueryParam("page"), c.QueryParam("limit"))
	}

	page, err := h.svc.FindAll(c.Request().Context(), q.Page, q.Limit)
	if err != nil {
		return err
	}
	return response.OK(c, page)
}

// FindByID handles GET /places/:id.
func (h *Handler) FindByID(c echo.Context) error {
	p, err := h.svc.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return notFoundOr(c, err)
	}
	return response.OK(c, p)
}

// Create handles POST /places.
func (h *Handler) Create(c echo.Context) error {
	in, err := body[CreatePlace](c)
	if err != nil {
		return invalidOr(c, err)
	}

	p, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return response.Created(c, p)
}

// Update handles PUT /places/:id.
func (h *Handler) Update(c echo.Context) error {
	in, err := body[UpdatePlace](c)
	if err != nil {
		return invalidOr(c, err)
	}

	p, err := h.svc.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return notFoundOr(c, err)
	}
	return response.OK(c, p)
}

// Delete handles DELETE /places/:id.
func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return notFoundOr(c, err)
	}
	return response.NoContent(c)
}

// ListQuerySchema normalizes the page and limit query values. It never fails,
// values that are not numbers fall back to the defaults.
func ListQuerySchema() validation.Schema {
	return validation.Func(func(v any) (any, error) {
		bag, _ := v.(map[string]any)
		return parseListQuery(first(bag["page"]), first(bag["limit"])), nil
	})
}

func first(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			s, _ := t[0].(string)
			return s
		}
	}
	return ""
}

func parseListQuery(page, limit string) ListQuery {
	p, _ := strconv.Atoi(page)
	l, _ := strconv.Atoi(limit)
	return NormalizeListQuery(p, l)
}

// body returns the validated body of the route, validating it here when the
// route declares no body schema of type T.
func body[T any](c echo.Context) (T, error) {
	if v, ok := validation.ValueOf[T](c, validation.Body); ok {
		return v, nil
	}
	var zero T
	out, err := validation.Apply(c, validation.Body, validation.Struct[T]())
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}

func invalidOr(c echo.Context, err error) error {
	if failure, ok := validation.AsFailure(err); ok {
		return response.ValidationFailed(c, failure.Issues)
	}
	return err
}

func notFoundOr(c echo.Context, err error) error {
	if errors.Is(err, ErrNotFound) {
		return response.NotFound(c, entity)
	}
	return err
}
