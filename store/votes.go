// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"

	"github.com/danielhkuo/movienight/models"
)

func (s *Store) CreateVote(ctx context.Context, v models.Vote) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO votes (id, session_id, voter_id, movie_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, v.ID, v.SessionID, v.VoterID, v.MovieID, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

// CountVotesByVoter is the number of budget units the voter has spent.
func (s *Store) CountVotesByVoter(ctx context.Context, sessionID, voterID string) (int, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM votes WHERE session_id = $1 AND voter_id = $2`, sessionID, voterID)
	if err != nil {
		return 0, fmt.Errorf("failed to count voter votes: %w", err)
	}
	return n, nil
}

func (s *Store) CountVotesOnMovie(ctx context.Context, movieID string) (int, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM votes WHERE movie_id = $1`, movieID)
	if err != nil {
		return 0, fmt.Errorf("failed to count movie votes: %w", err)
	}
	return n, nil
}

func (s *Store) CountVoterVotesOnMovie(ctx context.Context, voterID, movieID string) (int, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM votes WHERE voter_id = $1 AND movie_id = $2`, voterID, movieID)
	if err != nil {
		return 0, fmt.Errorf("failed to count voter movie votes: %w", err)
	}
	return n, nil
}

// LatestVoterVoteOnMovie returns the newest vote the voter cast on the movie.
func (s *Store) LatestVoterVoteOnMovie(ctx context.Context, sessionID, voterID, movieID string) (models.Vote, error) {
	var v models.Vote
	err := s.get(ctx, &v, `
		SELECT id, session_id, voter_id, movie_id, created_at FROM votes
		WHERE session_id = $1 AND voter_id = $2 AND movie_id = $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, sessionID, voterID, movieID)
	return v, err
}

func (s *Store) DeleteVote(ctx context.Context, id string) error {
	n, err := s.execAffected(ctx, `DELETE FROM votes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteVotesByVoter(ctx context.Context, voterID string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM votes WHERE voter_id = $1`, voterID); err != nil {
		return fmt.Errorf("failed to delete voter votes: %w", err)
	}
	return nil
}

// Tally lists every movie of the session with its vote count, ordered by
// count descending, then nomination time, then id.
func (s *Store) Tally(ctx context.Context, sessionID string) ([]models.TallyEntry, error) {
	var out []models.TallyEntry
	err := s.selectAll(ctx, &out, `
		SELECT m.id AS movie_id, m.title AS title, COUNT(v.id) AS vote_count
		FROM movies m
		LEFT JOIN votes v ON v.movie_id = m.id
		WHERE m.session_id = $1
		GROUP BY m.id, m.title, m.created_at
		ORDER BY COUNT(v.id) DESC, m.created_at ASC, m.id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}
	return out, nil
}

// VoteCountsByMovie maps movie id to its total votes for the session.
func (s *Store) VoteCountsByMovie(ctx context.Context, sessionID string) (map[string]int, error) {
	return s.countsByMovie(ctx, `
		SELECT movie_id, COUNT(*) AS n FROM votes WHERE session_id = $1 GROUP BY movie_id
	`, sessionID)
}

// VoterCountsByMovie maps movie id to the votes one voter cast on it.
func (s *Store) VoterCountsByMovie(ctx context.Context, sessionID, voterID string) (map[string]int, error) {
	return s.countsByMovie(ctx, `
		SELECT movie_id, COUNT(*) AS n FROM votes WHERE session_id = $1 AND voter_id = $2 GROUP BY movie_id
	`, sessionID, voterID)
}

func (s *Store) countsByMovie(ctx context.Context, query string, args ...any) (map[string]int, error) {
	var rows []struct {
		MovieID string `db:"movie_id"`
		N       int    `db:"n"`
	}
	if err := s.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count votes by movie: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.MovieID] = r.N
	}
	return out, nil
}
