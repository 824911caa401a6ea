package places_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yshengliao/routekit/middleware"
	"github.com/yshengliao/routekit/places"
	"github.com/yshengliao/routekit/route"
	"github.com/yshengliao/routekit/router"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("place-%d", n)
	}
}

func openStores(t *testing.T) map[string]places.Store {
	t.Helper()
	sqlite, err := places.OpenSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]places.Store{
		"Memory": places.NewMemoryStore(),
		"SQLite": sqlite,
	}
}

func samplePlace(id, name string) places.Place {
	return places.Place{
		ID:        id,
		Name:      name,
		City:      "Paris",
		Country:   "FR",
		Latitude:  48.86,
		Longitude: 2.33,
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
}

func TestStores(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := 1; i <= 3; i++ {
				require.NoError(t, store.Create(ctx, samplePlace(fmt.Sprintf("p%d", i), fmt.Sprintf("Place %d", i))))
			}

			total, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, total)

			page, err := store.List(ctx, 1, 5)
			require.NoError(t, err)
			require.Len(t, page, 2)
			assert.Equal(t, "p2", page[0].ID)
			assert.Equal(t, "p3", page[1].ID)

			beyond, err := store.List(ctx, 10, 5)
			require.NoError(t, err)
			assert.NotNil(t, beyond)
			assert.Empty(t, beyond)

			got, err := store.Get(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, "Place 1", got.Name)
			assert.True(t, fixedNow.Equal(got.CreatedAt))

			got.Name = "Renamed"
			require.NoError(t, store.Update(ctx, got))
			got, err = store.Get(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, "Renamed", got.Name)

			require.NoError(t, store.Delete(ctx, "p2"))
			_, err = store.Get(ctx, "p2")
			assert.ErrorIs(t, err, places.ErrNotFound)
			assert.ErrorIs(t, store.Delete(ctx, "p2"), places.ErrNotFound)
			assert.ErrorIs(t, store.Update(ctx, samplePlace("missing", "x")), places.ErrNotFound)

			total, err = store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, total)
		})
	}
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := places.NewMemoryStore().List(ctx, 0, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeListQuery(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, 10},
		{2, 5, 2, 5},
		{-1, -5, 1, 10},
		{3, 1000, 3, places.MaxLimit},
	}
	for _, tt := range tests {
		q := places.NormalizeListQuery(tt.page, tt.limit)
		assert.Equal(t, tt.wantPage, q.Page)
		assert.Equal(t, tt.wantLimit, q.Limit)
	}
}

func TestListQuerySchema(t *testing.T) {
	schema := places.ListQuerySchema()

	out, err := schema.Validate(map[string]any{"page": "2", "limit": "5"})
	require.NoError(t, err)
	assert.Equal(t, places.ListQuery{Page: 2, Limit: 5}, out)

	out, err = schema.Validate(map[string]any{"page": "abc", "limit": []any{"7", "9"}})
	require.NoError(t, err)
	assert.Equal(t, places.ListQuery{Page: 1, Limit: 7}, out)

	out, err = schema.Validate(nil)
	require.NoError(t, err)
	assert.Equal(t, places.ListQuery{Page: 1, Limit: 10}, out)
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := places.NewService(places.NewMemoryStore(),
		places.WithClock(func() time.Time { return fixedNow }),
		places.WithIDGenerator(sequentialIDs()))

	created, err := svc.Create(ctx, places.CreatePlace{Name: "Louvre", City: "Paris", Country: "FR"})
	require.NoError(t, err)
	assert.Equal(t, "place-1", created.ID)
	assert.Equal(t, fixedNow, created.CreatedAt)

	city := "Lyon"
	updated, err := svc.Update(ctx, created.ID, places.UpdatePlace{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Louvre", updated.Name)
	assert.Equal(t, "Lyon", updated.City)

	_, err = svc.Update(ctx, "missing", places.UpdatePlace{})
	assert.ErrorIs(t, err, places.ErrNotFound)

	page, err := svc.FindAll(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Len(t, page.Data, 1)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), places.ErrNotFound)
}

// failingStore fails every operation.
type failingStore struct{ places.Store }

func (failingStore) List(context.Context, int, int) ([]places.Place, error) {
	return nil, errors.New("disk I/O error")
}

func (failingStore) Get(context.Context, string) (places.Place, error) {
	return places.Place{}, errors.New("disk I/O error")
}

func placeRoutes(t *testing.T, store places.Store) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(nil)

	cat := route.NewCatalog()
	places.Register(cat, places.NewService(store,
		places.WithClock(func() time.Time { return fixedNow }),
		places.WithIDGenerator(sequentialIDs())))

	handler := func(name string) echo.HandlerFunc {
		h, ok := cat.Handler(name)
		require.True(t, ok, name)
		return h
	}
	schema := func(name string) route.Option {
		s, ok := cat.Schema(name)
		require.True(t, ok, name)
		switch name {
		case "places.list":
			return route.WithQuery(s)
		case "places.idParams":
			return route.WithParams(s)
		default:
			return route.WithBody(s)
		}
	}

	_, err := router.RegisterRoutes(context.Background(), e, router.Options{
		Prefix:           "/api/v1",
		DisableDiscovery: true,
		Routes: []route.Definition{
			route.Define(route.MethodGet, "/places", handler("places.findAll"), schema("places.list")),
			route.Define(route.MethodGet, "/places/:id", handler("places.findById"), schema("places.idParams")),
			route.Define(route.MethodPost, "/places", handler("places.create"), schema("places.create")),
			route.Define(route.MethodPut, "/places/:id", handler("places.update"), schema("places.idParams"), schema("places.update")),
			route.Define(route.MethodDelete, "/places/:id", handler("places.delete"), schema("places.idParams")),
			// no schema, the handler validates by itself
			route.Define(route.MethodPost, "/raw/places", handler("places.create")),
		},
	})
	require.NoError(t, err)
	return e
}

func send(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlers(t *testing.T) {
	e := placeRoutes(t, places.NewMemoryStore())

	rec := send(e, http.MethodPost, "/api/v1/places", `{"name":"Louvre","city":"Paris","country":"FR","latitude":48.86,"longitude":2.33}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{
		"id":"place-1","name":"Louvre","description":"","address":"","city":"Paris","country":"FR",
		"latitude":48.86,"longitude":2.33,
		"createdAt":"2025-03-01T12:00:00Z","updatedAt":"2025-03-01T12:00:00Z"
	}`, rec.Body.String())

	t.Run("FindAll", func(t *testing.T) {
		rec := send(e, http.MethodGet, "/api/v1/places?page=abc&limit=", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"total":1,"page":1,"limit":10`)

		rec = send(e, http.MethodGet, "/api/v1/places?page=2&limit=5", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":[],"total":1,"page":2,"limit":5}`, rec.Body.String())
	})

	t.Run("FindByID", func(t *testing.T) {
		rec := send(e, http.MethodGet, "/api/v1/places/place-1", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"name":"Louvre"`)

		rec = send(e, http.MethodGet, "/api/v1/places/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Place not found"}`, rec.Body.String())
	})

	t.Run("CreateInvalid", func(t *testing.T) {
		rec := send(e, http.MethodPost, "/api/v1/places", `{"name":"  ","country":"France","latitude":120}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"message":"Validation failed","errors":[
			{"field":"name","message":"name must not be blank"},
			{"field":"city","message":"city is required"},
			{"field":"country","message":"country must be an ISO 3166-1 alpha-2 country code"},
			{"field":"latitude","message":"latitude must be at most 90"}
		]}`, rec.Body.String())
	})

	t.Run("CreateWithoutRouteSchema", func(t *testing.T) {
		rec := send(e, http.MethodPost, "/api/v1/raw/places", `{"name":"Orsay"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"field":"city"`)

		rec = send(e, http.MethodPost, "/api/v1/raw/places", `{"name":"Orsay","city":"Paris","country":"FR"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("Update", func(t *testing.T) {
		rec := send(e, http.MethodPut, "/api/v1/places/place-1", `{"description":"Museum"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"description":"Museum"`)
		assert.Contains(t, rec.Body.String(), `"name":"Louvre"`)

		rec = send(e, http.MethodPut, "/api/v1/places/place-1", `{"name":""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = send(e, http.MethodPut, "/api/v1/places/nope", `{"description":"x"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Place not found"}`, rec.Body.String())
	})

	t.Run("Delete", func(t *testing.T) {
		rec := send(e, http.MethodDelete, "/api/v1/places/place-1", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Zero(t, rec.Body.Len())

		rec = send(e, http.MethodDelete, "/api/v1/places/place-1", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Place not found"}`, rec.Body.String())
	})
}

func TestHandlersStoreFailure(t *testing.T) {
	e := placeRoutes(t, failingStore{})

	rec := send(e, http.MethodGet, "/api/v1/places", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())

	rec = send(e, http.MethodGet, "/api/v1/places/p1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk")
}
