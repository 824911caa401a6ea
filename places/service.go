package places

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service implements the place operations on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
	newID func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock sets the time source of created and updated timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator sets the generator of place ids.
func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a service over store.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindAll returns one page of places. page and limit are normalized first.
func (s *Service) FindAll(ctx context.Context, page, limit int) (Page, error) {
	q := NormalizeListQuery(page, limit)

	data, err := s.store.List(ctx, (q.Page-1)*q.Limit, q.Limit)
	if err != nil {
		return Page{}, fmt.Errorf("list places: %w", err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("count places: %w", err)
	}
	return Page{Data: data, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// FindByID returns the place with id or ErrNotFound.
func (s *Service) FindByID(ctx context.Context, id string) (Place, error) {
	return s.store.Get(ctx, id)
}

// Create stores a new place.
func (s *Service) Create(ctx context.Context, in CreatePlace) (Place, error) {
	now := s.now().UTC()
	p := Place{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		Address:     in.Address,
		City:        in.City,
		Country:     in.Country,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return Place{}, fmt.Errorf("create place: %w", err)
	}
	return p, nil
}

// Update applies in to the place with id.
func (s *Service) Update(ctx context.Context, id string, in UpdatePlace) (Place, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Place{}, err
	}
	in.Apply(&p)
	p.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, p); err != nil {
		return Place{}, err
	}
	return p, nil
}

// Delete removes the place with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// NormalizeListQuery falls back to the defaults for values below one and caps
// the limit at MaxLimit.
func NormalizeListQuery(page, limit int) ListQuery {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return ListQuery{Page: page, Limit: limit}
}
