// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package catalog

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/danielhkuo/movienight/models"
)

// MockLibrary serves a fixed set of films for development and tests. It
// stands in for the library, the catalog, and the request service at once.
type MockLibrary struct {
	items []Item
}

func NewMockLibrary() *MockLibrary {
	return &MockLibrary{items: mockItems()}
}

func mockItems() []Item {
	lib := func(id, tmdb, title string, year, runtime int, synopsis string) Item {
		return Item{
			Title: title, Year: ptr(year), RuntimeMinutes: ptr(runtime), Synopsis: ptr(synopsis),
			Source: models.SourceLibrary, LibraryID: ptr(id), CatalogID: ptr(tmdb), Status: models.MovieInLibrary,
		}
	}
	ext := func(tmdb, title string, year, runtime int, synopsis, status string) Item {
		return Item{
			Title: title, Year: ptr(year), RuntimeMinutes: ptr(runtime), Synopsis: ptr(synopsis),
			Source: models.SourceExternalCatalog, CatalogID: ptr(tmdb), Status: status,
		}
	}
	return []Item{
		lib("mock-001", "238", "The Godfather", 1972, 175, "The aging patriarch of an organized crime dynasty transfers control of his empire to his reluctant son."),
		lib("mock-002", "278", "The Shawshank Redemption", 1994, 142, "Two imprisoned men bond over a number of years, finding solace and eventual redemption."),
		lib("mock-003", "155", "The Dark Knight", 2008, 152, "Batman faces the Joker, a criminal mastermind who plunges Gotham into anarchy."),
		lib("mock-004", "680", "Pulp Fiction", 1994, 154, "The lives of two mob hitmen, a boxer, and a pair of diner bandits intertwine."),
		lib("mock-005", "27205", "Inception", 2010, 148, "A thief who steals secrets through dream-sharing is asked to plant an idea instead."),
		lib("mock-006", "603", "The Matrix", 1999, 136, "A hacker learns the true nature of his reality and his role in the war against its controllers."),
		lib("mock-007", "157336", "Interstellar", 2014, 169, "Explorers travel through a wormhole in an attempt to ensure humanity's survival."),
		ext("11216", "Cinema Paradiso", 1988, 155, "A filmmaker recalls his childhood friendship with a cinema projectionist.", models.MovieNominatedOnly),
		ext("496243", "Parasite", 2019, 132, "Greed and class discrimination threaten a newly formed relationship between two families.", models.MovieRequested),
		ext("129", "Spirited Away", 2001, 125, "A girl wanders into a world ruled by gods, witches, and spirits.", models.MovieNominatedOnly),
	}
}

// Search ranks titles by fuzzy distance, then appends films whose year
// contains the query.
func (m *MockLibrary) Search(_ context.Context, query string) ([]Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Item{}, nil
	}

	titles := make([]string, len(m.items))
	for i, it := range m.items {
		titles[i] = it.Title
	}
	ranks := fuzzy.RankFindFold(query, titles)
	sort.Sort(ranks)

	seen := make(map[int]bool, len(ranks))
	out := make([]Item, 0, len(ranks))
	for _, r := range ranks {
		seen[r.OriginalIndex] = true
		out = append(out, m.items[r.OriginalIndex])
	}
	for i, it := range m.items {
		if !seen[i] && it.Year != nil && strings.Contains(strconv.Itoa(*it.Year), query) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Recent returns the library films in reverse catalogue order.
func (m *MockLibrary) Recent(context.Context) ([]Item, error) {
	var out []Item
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].Source == models.SourceLibrary {
			out = append(out, m.items[i])
		}
	}
	return out, nil
}

func (m *MockLibrary) SubmitRequest(_ context.Context, catalogID string) (string, error) {
	return "mock-" + catalogID, nil
}

// Shelf returns the library side of the mock: only films marked as in the
// library, for use as a Searcher's Library next to m as its Catalog.
func (m *MockLibrary) Shelf() Library {
	return mockShelf{m}
}

type mockShelf struct {
	m *MockLibrary
}

func (s mockShelf) Search(ctx context.Context, query string) ([]Item, error) {
	items, err := s.m.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, it := range items {
		if it.Source == models.SourceLibrary {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s mockShelf) Recent(ctx context.Context) ([]Item, error) {
	return s.m.Recent(ctx)
}
