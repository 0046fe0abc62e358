// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package catalog

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/danielhkuo/movienight/models"
)

const (
	jellyfinFields = "Overview,RunTimeTicks,ProductionYear,PrimaryImageAspectRatio,ProviderIds"
	jellyfinLimit  = "20"
	ticksPerMinute = 600000000
)

// JellyfinClient searches a Jellyfin server's movie library.
type JellyfinClient struct {
	baseURL string
	apiKey  string
	client  *resty.Client
}

func NewJellyfinClient(baseURL, apiKey string, timeout time.Duration) *JellyfinClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &JellyfinClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

type jellyfinItems struct {
	Items []jellyfinItem `json:"Items"`
}

type jellyfinItem struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	ProductionYear *int              `json:"ProductionYear"`
	RunTimeTicks   *int64            `json:"RunTimeTicks"`
	Overview       *string           `json:"Overview"`
	ProviderIDs    map[string]string `json:"ProviderIds"`
}

func (c *JellyfinClient) Search(ctx context.Context, query string) ([]Item, error) {
	return c.items(ctx, map[string]string{"searchTerm": query})
}

// Recent lists the most recently added movies.
func (c *JellyfinClient) Recent(ctx context.Context) ([]Item, error) {
	return c.items(ctx, map[string]string{
		"SortBy":    "DateCreated",
		"SortOrder": "Descending",
	})
}

func (c *JellyfinClient) items(ctx context.Context, params map[string]string) ([]Item, error) {
	var out jellyfinItems
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"IncludeItemTypes": "Movie",
			"Recursive":        "true",
			"Fields":           jellyfinFields,
			"Limit":            jellyfinLimit,
			"api_key":          c.apiKey,
		}).
		SetQueryParams(params).
		SetResult(&out).
		Get("/Items")
	if err != nil {
		return nil, fmt.Errorf("jellyfin request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("jellyfin returned %d", resp.StatusCode())
	}

	items := make([]Item, 0, len(out.Items))
	for _, it := range out.Items {
		items = append(items, c.toItem(it))
	}
	return items, nil
}

func (c *JellyfinClient) toItem(it jellyfinItem) Item {
	item := Item{
		Title:     it.Name,
		Year:      it.ProductionYear,
		Synopsis:  it.Overview,
		PosterURL: ptr(c.baseURL + "/Items/" + it.ID + "/Images/Primary"),
		Source:    models.SourceLibrary,
		LibraryID: ptr(it.ID),
		Status:    models.MovieInLibrary,
	}
	if it.RunTimeTicks != nil && *it.RunTimeTicks > 0 {
		item.RuntimeMinutes = ptr(int(math.Round(float64(*it.RunTimeTicks) / ticksPerMinute)))
	}
	if tmdb := it.ProviderIDs["Tmdb"]; tmdb != "" {
		item.CatalogID = ptr(tmdb)
	}
	return item
}
