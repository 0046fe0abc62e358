// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/danielhkuo/movienight/models"
)

const sessionColumns = `id, slug, name, status, votes_per_voter, max_invite_depth, guest_invite_slots,
	allow_external_requests, vote_stacking, expires_at, winner_movie_id, created_at`

func (s *Store) CreateSession(ctx context.Context, sess models.Session) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, sess.ID, sess.Slug, sess.Name, sess.Status, sess.VotesPerVoter, sess.MaxInviteDepth,
		sess.GuestInviteSlots, sess.AllowExternalRequests, sess.VoteStacking, sess.ExpiresAt,
		sess.WinnerMovieID, sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (models.Session, error) {
	var sess models.Session
	err := s.get(ctx, &sess, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return sess, err
}

// LockSession reads a session inside a transaction. On PostgreSQL the row is
// share-locked until commit, so a concurrent CloseSession waits for the
// caller and the caller never writes into a session closed after this read.
// SQLite runs one transaction at a time and needs no lock.
func (s *Store) LockSession(ctx context.Context, id string) (models.Session, error) {
	var sess models.Session
	err := s.get(ctx, &sess, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`+s.shareLock, id)
	return sess, err
}

func (s *Store) GetSessionBySlug(ctx context.Context, slug string) (models.Session, error) {
	var sess models.Session
	err := s.get(ctx, &sess, `SELECT `+sessionColumns+` FROM sessions WHERE slug = $1`, slug)
	return sess, err
}

// UpdateSession writes every mutable column. The slug is immutable.
func (s *Store) UpdateSession(ctx context.Context, sess models.Session) error {
	n, err := s.execAffected(ctx, `
		UPDATE sessions
		SET name = $1, status = $2, votes_per_voter = $3, max_invite_depth = $4,
			guest_invite_slots = $5, allow_external_requests = $6, vote_stacking = $7,
			expires_at = $8, winner_movie_id = $9
		WHERE id = $10
	`, sess.Name, sess.Status, sess.VotesPerVoter, sess.MaxInviteDepth, sess.GuestInviteSlots,
		sess.AllowExternalRequests, sess.VoteStacking, sess.ExpiresAt, sess.WinnerMovieID, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseSession marks the session closed with the given winner (nil for none).
func (s *Store) CloseSession(ctx context.Context, id string, winnerMovieID *string) error {
	n, err := s.execAffected(ctx, `
		UPDATE sessions SET status = $1, winner_movie_id = $2 WHERE id = $3
	`, models.StatusClosed, winnerMovieID, id)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessionSummaries returns every session, newest first, with row counts.
func (s *Store) ListSessionSummaries(ctx context.Context) ([]models.SessionSummary, error) {
	var out []models.SessionSummary
	err := s.selectAll(ctx, &out, `
		SELECT s.id, s.slug, s.name, s.status, s.votes_per_voter, s.max_invite_depth,
			s.guest_invite_slots, s.allow_external_requests, s.vote_stacking, s.expires_at,
			s.winner_movie_id, s.created_at,
			(SELECT COUNT(*) FROM voters v WHERE v.session_id = s.id) AS voter_count,
			(SELECT COUNT(*) FROM movies m WHERE m.session_id = s.id) AS movie_count,
			(SELECT COUNT(*) FROM votes vt WHERE vt.session_id = s.id) AS vote_count
		FROM sessions s
		ORDER BY s.created_at DESC, s.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return out, nil
}

// ListExpiredOpenSessions returns open sessions whose expiry is at or before now.
func (s *Store) ListExpiredOpenSessions(ctx context.Context, now time.Time) ([]models.Session, error) {
	var out []models.Session
	err := s.selectAll(ctx, &out, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE status = $1 AND expires_at IS NOT NULL AND expires_at <= $2
		ORDER BY expires_at
	`, models.StatusOpen, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}
	return out, nil
}

// DeleteSessionCascade removes the session and every row that references it.
// Callers run it inside InTx.
func (s *Store) DeleteSessionCascade(ctx context.Context, id string) error {
	for _, stmt := range []string{
		`DELETE FROM votes WHERE session_id = $1`,
		`DELETE FROM movies WHERE session_id = $1`,
		`DELETE FROM invite_codes WHERE session_id = $1`,
		`DELETE FROM voters WHERE session_id = $1`,
	} {
		if _, err := s.q.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete session rows: %w", err)
		}
	}

	n, err := s.execAffected(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
