// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/danielhkuo/movienight/models"
)

const tmdbImageBase = "https://image.tmdb.org/t/p/w500"

// JellyseerrClient searches TMDb through Jellyseerr and submits requests.
type JellyseerrClient struct {
	client *resty.Client
}

func NewJellyseerrClient(baseURL, apiKey string, timeout time.Duration) *JellyseerrClient {
	return &JellyseerrClient{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("X-Api-Key", apiKey).
			SetHeader("Accept", "application/json"),
	}
}

type seerrSearch struct {
	Results []seerrResult `json:"results"`
}

type seerrResult struct {
	ID            int     `json:"id"`
	MediaType     string  `json:"mediaType"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"originalTitle"`
	ReleaseDate   string  `json:"releaseDate"`
	Overview      *string `json:"overview"`
	PosterPath    *string `json:"posterPath"`
	MediaInfo     *struct {
		Status int `json:"status"`
	} `json:"mediaInfo"`
}

func (c *JellyseerrClient) Search(ctx context.Context, query string) ([]Item, error) {
	var out seerrSearch
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":    query,
			"page":     "1",
			"language": "en",
		}).
		SetResult(&out).
		Get("/api/v1/search")
	if err != nil {
		return nil, fmt.Errorf("jellyseerr request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("jellyseerr returned %d", resp.StatusCode())
	}

	items := make([]Item, 0, len(out.Results))
	for _, r := range out.Results {
		if r.MediaType != "movie" {
			continue
		}
		items = append(items, r.toItem())
	}
	return items, nil
}

func (r seerrResult) toItem() Item {
	title := r.Title
	if title == "" {
		title = r.OriginalTitle
	}
	item := Item{
		Title:     title,
		Synopsis:  r.Overview,
		Source:    models.SourceExternalCatalog,
		CatalogID: ptr(strconv.Itoa(r.ID)),
		Status:    models.MovieNominatedOnly,
	}
	if len(r.ReleaseDate) >= 4 {
		if y, err := strconv.Atoi(r.ReleaseDate[:4]); err == nil {
			item.Year = &y
		}
	}
	if r.PosterPath != nil && *r.PosterPath != "" {
		item.PosterURL = ptr(tmdbImageBase + *r.PosterPath)
	}
	if r.MediaInfo != nil {
		item.Status = availability(r.MediaInfo.Status)
	}
	return item
}

type seerrRequest struct {
	MediaType string `json:"mediaType"`
	MediaID   int    `json:"mediaId"`
}

type seerrRequestResult struct {
	ID int `json:"id"`
}

// SubmitRequest asks Jellyseerr to acquire the movie with TMDb id catalogID.
func (c *JellyseerrClient) SubmitRequest(ctx context.Context, catalogID string) (string, error) {
	mediaID, err := strconv.Atoi(catalogID)
	if err != nil {
		return "", fmt.Errorf("invalid catalog id %q: %w", catalogID, err)
	}

	var out seerrRequestResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(seerrRequest{MediaType: "movie", MediaID: mediaID}).
		SetResult(&out).
		Post("/api/v1/request")
	if err != nil {
		return "", fmt.Errorf("jellyseerr request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("jellyseerr returned %d: %s", resp.StatusCode(), resp.String())
	}
	return strconv.Itoa(out.ID), nil
}
