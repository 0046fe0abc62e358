// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"

	"github.com/danielhkuo/movienight/models"
)

const movieColumns = `id, session_id, title, year, runtime_minutes, synopsis, poster_url, source,
	library_id, catalog_id, request_id, status, nominated_by, created_at`

func (s *Store) CreateMovie(ctx context.Context, m models.Movie) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO movies (`+movieColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, m.ID, m.SessionID, m.Title, m.Year, m.RuntimeMinutes, m.Synopsis, m.PosterURL, m.Source,
		m.LibraryID, m.CatalogID, m.RequestID, m.Status, m.NominatedBy, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert movie: %w", err)
	}
	return nil
}

func (s *Store) GetMovie(ctx context.Context, id string) (models.Movie, error) {
	var m models.Movie
	err := s.get(ctx, &m, `SELECT `+movieColumns+` FROM movies WHERE id = $1`, id)
	return m, err
}

// GetMovieInSession returns ErrNotFound for a movie of another session.
func (s *Store) GetMovieInSession(ctx context.Context, id, sessionID string) (models.Movie, error) {
	var m models.Movie
	err := s.get(ctx, &m, `SELECT `+movieColumns+` FROM movies WHERE id = $1 AND session_id = $2`, id, sessionID)
	return m, err
}

// ListMovies returns the session's movies in nomination order.
func (s *Store) ListMovies(ctx context.Context, sessionID string) ([]models.Movie, error) {
	var out []models.Movie
	err := s.selectAll(ctx, &out, `
		SELECT `+movieColumns+` FROM movies WHERE session_id = $1 ORDER BY created_at, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	return out, nil
}

// FindDuplicateMovie looks for an existing nomination with the same library
// id or catalog id; with neither id set it compares title (case-insensitive)
// and source.
func (s *Store) FindDuplicateMovie(ctx context.Context, sessionID string, libraryID, catalogID *string, title, source string) (models.Movie, error) {
	var m models.Movie
	if libraryID != nil || catalogID != nil {
		err := s.get(ctx, &m, `
			SELECT `+movieColumns+` FROM movies
			WHERE session_id = $1 AND (library_id = $2 OR catalog_id = $3)
			ORDER BY created_at
			LIMIT 1
		`, sessionID, libraryID, catalogID)
		return m, err
	}

	err := s.get(ctx, &m, `
		SELECT `+movieColumns+` FROM movies
		WHERE session_id = $1 AND library_id IS NULL AND catalog_id IS NULL
			AND lower(title) = lower(CAST($2 AS TEXT)) AND source = $3
		ORDER BY created_at
		LIMIT 1
	`, sessionID, title, source)
	return m, err
}

// DeleteMovieCascade removes the movie and its votes. Callers run it inside InTx.
func (s *Store) DeleteMovieCascade(ctx context.Context, id string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM votes WHERE movie_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete movie votes: %w", err)
	}
	n, err := s.execAffected(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
