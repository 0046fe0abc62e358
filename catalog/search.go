// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/movienight/apperr"
)

// Results is a combined search, library hits first.
type Results struct {
	Library []Item `json:"library"`
	Catalog []Item `json:"catalog"`
}

// FailureRecorder counts failed calls per service.
type FailureRecorder interface {
	ExternalFailure(service string)
}

// Searcher queries the library and the catalog concurrently. Either may be
// nil when the service is not configured.
type Searcher struct {
	Library  Library
	Catalog  Catalog
	Failures FailureRecorder
}

// Search returns empty results for queries shorter than MinQueryLength. One
// failing side is logged and skipped; both failing is an external failure.
func (s *Searcher) Search(ctx context.Context, query string) (Results, error) {
	res := Results{Library: []Item{}, Catalog: []Item{}}
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return res, nil
	}

	var libErr, catErr error
	g, gctx := errgroup.WithContext(ctx)
	if s.Library != nil {
		g.Go(func() error {
			items, err := s.Library.Search(gctx, query)
			if err != nil {
				libErr = err
				return nil
			}
			res.Library = items
			return nil
		})
	}
	if s.Catalog != nil {
		g.Go(func() error {
			items, err := s.Catalog.Search(gctx, query)
			if err != nil {
				catErr = err
				return nil
			}
			res.Catalog = items
			return nil
		})
	}
	_ = g.Wait()

	if libErr != nil {
		slog.Warn("library search failed", "query", query, "error", libErr)
		s.failure("library")
	}
	if catErr != nil {
		slog.Warn("catalog search failed", "query", query, "error", catErr)
		s.failure("catalog")
	}
	if libErr != nil && catErr != nil {
		return res, apperr.External("Search is unavailable right now", errors.Join(libErr, catErr))
	}

	res.Catalog = withoutLibraryDuplicates(res.Library, res.Catalog)
	return res, nil
}

// Recent lists the library's newest films, or nothing without a library.
func (s *Searcher) Recent(ctx context.Context) ([]Item, error) {
	if s.Library == nil {
		return []Item{}, nil
	}
	items, err := s.Library.Recent(ctx)
	if err != nil {
		s.failure("library")
		return nil, apperr.External("Library is unavailable right now", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

func (s *Searcher) failure(service string) {
	if s.Failures != nil {
		s.Failures.ExternalFailure(service)
	}
}

func withoutLibraryDuplicates(library, catalog []Item) []Item {
	owned := make(map[string]bool, len(library))
	for _, it := range library {
		if it.CatalogID != nil {
			owned[*it.CatalogID] = true
		}
	}
	out := make([]Item, 0, len(catalog))
	for _, it := range catalog {
		if it.CatalogID != nil && owned[*it.CatalogID] {
			continue
		}
		out = append(out, it)
	}
	return out
}
