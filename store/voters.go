// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/danielhkuo/movienight/models"
)

const voterColumns = `id, session_id, display_name, invited_by, invite_depth, invite_slots_remaining,
	fingerprint, joined_via_code, joined_at, last_active_at`

func (s *Store) CreateVoter(ctx context.Context, v models.Voter) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO voters (`+voterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, v.ID, v.SessionID, v.DisplayName, v.InvitedBy, v.InviteDepth, v.InviteSlotsRemaining,
		v.Fingerprint, v.JoinedViaCode, v.JoinedAt, v.LastActiveAt)
	if err != nil {
		return fmt.Errorf("failed to insert voter: %w", err)
	}
	return nil
}

func (s *Store) GetVoter(ctx context.Context, id string) (models.Voter, error) {
	var v models.Voter
	err := s.get(ctx, &v, `SELECT `+voterColumns+` FROM voters WHERE id = $1`, id)
	return v, err
}

// GetVoterInSession returns ErrNotFound when the voter exists in another session.
func (s *Store) GetVoterInSession(ctx context.Context, id, sessionID string) (models.Voter, error) {
	var v models.Voter
	err := s.get(ctx, &v, `SELECT `+voterColumns+` FROM voters WHERE id = $1 AND session_id = $2`, id, sessionID)
	return v, err
}

// ListVoters returns the session's voters in join order.
func (s *Store) ListVoters(ctx context.Context, sessionID string) ([]models.Voter, error) {
	var out []models.Voter
	err := s.selectAll(ctx, &out, `
		SELECT `+voterColumns+` FROM voters WHERE session_id = $1 ORDER BY joined_at, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	return out, nil
}

// TouchVoter stamps last_active_at and reports whether the voter belongs to
// the session. Inside a transaction the write locks the voter row, so
// per-voter check-and-insert sequences run one at a time.
func (s *Store) TouchVoter(ctx context.Context, id, sessionID string, now time.Time) (bool, error) {
	n, err := s.execAffected(ctx, `
		UPDATE voters SET last_active_at = $1 WHERE id = $2 AND session_id = $3
	`, now, id, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to touch voter: %w", err)
	}
	return n > 0, nil
}

func (s *Store) SetVoterDisplayName(ctx context.Context, id string, name *string) error {
	n, err := s.execAffected(ctx, `UPDATE voters SET display_name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetVoterSlots(ctx context.Context, id string, slots int) error {
	n, err := s.execAffected(ctx, `UPDATE voters SET invite_slots_remaining = $1 WHERE id = $2`, slots, id)
	if err != nil {
		return fmt.Errorf("failed to update invite slots: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteVoter removes only the voter row; votes and codes are left to the caller.
func (s *Store) DeleteVoter(ctx context.Context, id string) error {
	n, err := s.execAffected(ctx, `DELETE FROM voters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete voter: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListVoterIDsByJoinCode returns the voters admitted by code.
func (s *Store) ListVoterIDsByJoinCode(ctx context.Context, code string) ([]string, error) {
	var ids []string
	err := s.selectAll(ctx, &ids, `SELECT id FROM voters WHERE joined_via_code = $1`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters by code: %w", err)
	}
	return ids, nil
}
