// Package places is the sample business module served by routekit: a small
// CRUD resource with memory and SQLite stores.
package places

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores and the service for unknown ids.
var ErrNotFound = errors.New("place not found")

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Place is a stored place.
type Place struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Country     string    `json:"country"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreatePlace is the body of POST /places.
type CreatePlace struct {
	Name        string  `json:"name" validate:"required,notblank,max=120"`
	Description string  `json:"description" validate:"max=1000"`
	Address     string  `json:"address" validate:"max=200"`
	City        string  `json:"city" validate:"required,notblank,max=100"`
	Country     string  `json:"country" validate:"required,iso3166_1_alpha2"`
	Latitude    float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude   float64 `json:"longitude" validate:"min=-180,max=180"`
}

// UpdatePlace is the body of PUT /places/:id. Absent fields keep their value.
type UpdatePlace struct {
	Name        *string  `json:"name" validate:"omitnil,notblank,max=120"`
	Description *string  `json:"description" validate:"omitnil,max=1000"`
	Address     *string  `json:"address" validate:"omitnil,max=200"`
	City        *string  `json:"city" validate:"omitnil,notblank,max=100"`
	Country     *string  `json:"country" validate:"omitnil,iso3166_1_alpha2"`
	Latitude    *float64 `json:"latitude" validate:"omitnil,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" validate:"omitnil,min=-180,max=180"`
}

// Apply copies the present fields of u onto p.
func (u UpdatePlace) Apply(p *Place) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Address != nil {
		p.Address = *u.Address
	}
	if u.City != nil {
		p.City = *u.City
	}
	if u.Country != nil {
		p.Country = *u.Country
	}
	if u.Latitude != nil {
		p.Latitude = *u.Latitude
	}
	if u.Longitude != nil {
		p.Longitude = *u.Longitude
	}
}

// IDParams are the path parameters of the /places/:id routes.
type IDParams struct {
	ID string `json:"id" validate:"required,notblank,max=64"`
}

// ListQuery is the normalized query of GET /places.
type ListQuery struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Page is one page of places.
type Page struct {
	Data  []Place `json:"data"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}

// Store persists places. Implementations return ErrNotFound for unknown ids
// and honour ctx cancellation.
type Store interface {
	List(ctx context.Context, offset, limit int) ([]Place, error)
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id string) (Place, error)
	Create(ctx context.Context, p Place) error
	Update(ctx context.Context, p Place) error
	Delete(ctx context.Context, id string) error
	Close() error
}
