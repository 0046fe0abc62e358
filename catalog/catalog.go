// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package catalog

import (
	"context"

	"github.com/danielhkuo/movienight/models"
)

// MinQueryLength is the shortest query sent to a media service.
const MinQueryLength = 2

// Item is a search hit from the library or the external catalog. Its fields
// map one-to-one onto a nomination candidate.
type Item struct {
	Title          string  `json:"title"`
	Year           *int    `json:"year"`
	RuntimeMinutes *int    `json:"runtime_minutes"`
	Synopsis       *string `json:"synopsis"`
	PosterURL      *string `json:"poster_url"`
	Source         string  `json:"source"`
	LibraryID      *string `json:"library_id"`
	CatalogID      *string `json:"catalog_id"`
	Status         string  `json:"status"`
}

// Library is the local media server.
type Library interface {
	Search(ctx context.Context, query string) ([]Item, error)
	Recent(ctx context.Context) ([]Item, error)
}

// Catalog is the external movie database.
type Catalog interface {
	Search(ctx context.Context, query string) ([]Item, error)
}

// Requester asks the request service to acquire a movie and returns the
// request id.
type Requester interface {
	SubmitRequest(ctx context.Context, catalogID string) (string, error)
}

// availability maps a request-service media status onto a movie status.
func availability(status int) string {
	switch status {
	case 5:
		return models.MovieInLibrary
	case 2, 3, 4:
		return models.MovieRequested
	default:
		return models.MovieNominatedOnly
	}
}

func ptr[T any](v T) *T {
	return &v
}
