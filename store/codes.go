// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/danielhkuo/movienight/models"
)

const codeColumns = `code, session_id, created_by_voter_id, status, label, max_uses, use_count,
	used_by_voter_id, created_at, used_at`

func (s *Store) CreateCode(ctx context.Context, c models.InviteCode) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO invite_codes (`+codeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.Code, c.SessionID, c.CreatedByVoterID, c.Status, c.Label, c.MaxUses, c.UseCount,
		c.UsedByVoterID, c.CreatedAt, c.UsedAt)
	if err != nil {
		return fmt.Errorf("failed to insert invite code: %w", err)
	}
	return nil
}

func (s *Store) GetCode(ctx context.Context, code string) (models.InviteCode, error) {
	var c models.InviteCode
	err := s.get(ctx, &c, `SELECT `+codeColumns+` FROM invite_codes WHERE code = $1`, code)
	return c, err
}

// CodeExists is used to skip the rare generated collision.
func (s *Store) CodeExists(ctx context.Context, code string) (bool, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM invite_codes WHERE code = $1`, code)
	if err != nil {
		return false, fmt.Errorf("failed to check invite code: %w", err)
	}
	return n > 0, nil
}

// ListCodes returns every code of the session in creation order.
func (s *Store) ListCodes(ctx context.Context, sessionID string) ([]models.InviteCode, error) {
	var out []models.InviteCode
	err := s.selectAll(ctx, &out, `
		SELECT `+codeColumns+` FROM invite_codes WHERE session_id = $1 ORDER BY created_at, code
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invite codes: %w", err)
	}
	return out, nil
}

func (s *Store) ListCodesByCreator(ctx context.Context, voterID string) ([]models.InviteCode, error) {
	var out []models.InviteCode
	err := s.selectAll(ctx, &out, `
		SELECT `+codeColumns+` FROM invite_codes WHERE created_by_voter_id = $1 ORDER BY created_at, code
	`, voterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list voter codes: %w", err)
	}
	return out, nil
}

func (s *Store) CountCodesByCreator(ctx context.Context, voterID string) (int, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM invite_codes WHERE created_by_voter_id = $1`, voterID)
	if err != nil {
		return 0, fmt.Errorf("failed to count voter codes: %w", err)
	}
	return n, nil
}

// ConsumeCode takes one use of a claimable code and reports whether it did.
// The status and use_count guards make concurrent claims race on the row,
// not on a prior read; the code flips to used when its last use is taken.
func (s *Store) ConsumeCode(ctx context.Context, code string, now time.Time) (bool, error) {
	n, err := s.execAffected(ctx, `
		UPDATE invite_codes
		SET use_count = use_count + 1,
			used_at = $1,
			status = CASE WHEN use_count + 1 >= max_uses THEN 'used' ELSE status END
		WHERE code = $2 AND status = 'unused' AND use_count < max_uses
	`, now, code)
	if err != nil {
		return false, fmt.Errorf("failed to consume invite code: %w", err)
	}
	return n > 0, nil
}

func (s *Store) SetCodeClaimant(ctx context.Context, code, voterID string) error {
	_, err := s.execAffected(ctx, `UPDATE invite_codes SET used_by_voter_id = $1 WHERE code = $2`, voterID, code)
	if err != nil {
		return fmt.Errorf("failed to record claimant: %w", err)
	}
	return nil
}

// RevokeCode flips an unused code to revoked and reports whether it did.
func (s *Store) RevokeCode(ctx context.Context, code string) (bool, error) {
	n, err := s.execAffected(ctx, `
		UPDATE invite_codes SET status = 'revoked' WHERE code = $1 AND status = 'unused'
	`, code)
	if err != nil {
		return false, fmt.Errorf("failed to revoke invite code: %w", err)
	}
	return n > 0, nil
}

// RevokeUnusedCodesByCreator revokes every still-unused code minted by voterID.
func (s *Store) RevokeUnusedCodesByCreator(ctx context.Context, voterID string) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE invite_codes SET status = 'revoked' WHERE created_by_voter_id = $1 AND status = 'unused'
	`, voterID)
	if err != nil {
		return fmt.Errorf("failed to revoke voter codes: %w", err)
	}
	return nil
}

// ReopenCode sets the code back to unused with room for maxUses claims.
func (s *Store) ReopenCode(ctx context.Context, code string, maxUses int) error {
	n, err := s.execAffected(ctx, `
		UPDATE invite_codes SET status = 'unused', max_uses = $1 WHERE code = $2
	`, maxUses, code)
	if err != nil {
		return fmt.Errorf("failed to reopen invite code: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetCodeLabel(ctx context.Context, code string, label *string) error {
	n, err := s.execAffected(ctx, `UPDATE invite_codes SET label = $1 WHERE code = $2`, label, code)
	if err != nil {
		return fmt.Errorf("failed to update code label: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCode(ctx context.Context, code string) error {
	n, err := s.execAffected(ctx, `DELETE FROM invite_codes WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to delete invite code: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
