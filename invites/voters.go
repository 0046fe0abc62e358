// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package invites

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielhkuo/movienight/apperr"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/store"
)

// AdjustSlots sets the voter's invite budget. Codes already minted are kept
// even when the new budget is below their count.
func (s *Service) AdjustSlots(ctx context.Context, voterID string, slots int) (models.Voter, error) {
	slots = max(0, slots)
	if err := s.store.SetVoterSlots(ctx, voterID, slots); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Voter{}, apperr.NotFound(apperr.CodeVoterNotFound, "Voter not found")
		}
		return models.Voter{}, err
	}
	return s.store.GetVoter(ctx, voterID)
}

// RemoveVoter deletes the voter. Their votes stay in the tally and their
// unused codes are revoked; voters they invited become orphans in the tree.
func (s *Service) RemoveVoter(ctx context.Context, voterID string) error {
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		if _, err := tx.GetVoter(ctx, voterID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound(apperr.CodeVoterNotFound, "Voter not found")
			}
			return err
		}
		if err := tx.RevokeUnusedCodesByCreator(ctx, voterID); err != nil {
			return err
		}
		return tx.DeleteVoter(ctx, voterID)
	})
	if err != nil {
		return err
	}
	slog.Info("Voter removed", "voter", voterID)
	return nil
}
