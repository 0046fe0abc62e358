// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package invites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/movienight/apperr"
	"github.com/danielhkuo/movienight/auth"
	"github.com/danielhkuo/movienight/events"
	"github.com/danielhkuo/movienight/metrics"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/store"
)

// maxCodeAttempts bounds regeneration after a collision with an existing code.
const maxCodeAttempts = 5

type Service struct {
	store   *store.Store
	tokens  *auth.TokenIssuer
	events  events.Publisher
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(st *store.Store, tokens *auth.TokenIssuer, pub events.Publisher, m *metrics.Metrics) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store:   st,
		tokens:  tokens,
		events:  pub,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type ClaimRequest struct {
	Code        string
	Fingerprint string
	// CurrentVoterID is the voter the caller's token resolved to, if any.
	CurrentVoterID string
}

type ClaimResult struct {
	Voter         models.Voter
	Session       models.Session
	Token         string
	AlreadyJoined bool
}

// Claim admits the caller to the code's session. A caller already holding an
// identity in that session gets it back without the code being touched.
func (s *Service) Claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	res, err := s.claim(ctx, req)
	s.metrics.Claim(metrics.ResultOf(err))
	return res, err
}

func (s *Service) claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	code := auth.NormalizeCode(req.Code)
	if !auth.ValidInviteCode(code) {
		return nil, apperr.NotFound(apperr.CodeCodeNotFound, "Invite code not found")
	}

	c, err := s.store.GetCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(apperr.CodeCodeNotFound, "Invite code not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invite code: %w", err)
	}
	sess, err := s.store.GetSession(ctx, c.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(apperr.CodeCodeNotFound, "Invite code not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	now := s.now()
	if !sess.IsOpen(now) {
		return nil, sessionClosed(sess)
	}

	if req.CurrentVoterID != "" {
		existing, err := s.store.GetVoterInSession(ctx, req.CurrentVoterID, sess.ID)
		switch {
		case err == nil:
			token, err := s.tokens.Issue(existing.ID, sess.ID)
			if err != nil {
				return nil, err
			}
			return &ClaimResult{Voter: existing, Session: sess, Token: token, AlreadyJoined: true}, nil
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("failed to load current voter: %w", err)
		}
	}

	if err := claimable(c); err != nil {
		return nil, err
	}

	var voter models.Voter
	err = s.store.InTx(ctx, func(tx *store.Store) error {
		ok, err := tx.ConsumeCode(ctx, code, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := tx.GetCode(ctx, code)
			if err != nil {
				return fmt.Errorf("failed to reload invite code: %w", err)
			}
			if err := claimable(current); err != nil {
				return err
			}
			return apperr.Conflict(apperr.CodeFullyClaimed, "This invite has already been claimed").
				With("max_uses", current.MaxUses)
		}

		// Settings may have changed since the read above.
		sess, err = tx.GetSession(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("failed to reload session: %w", err)
		}
		if !sess.IsOpen(now) {
			return sessionClosed(sess)
		}

		depth := 0
		var invitedBy *string
		if c.CreatedByVoterID != nil {
			inviter, err := tx.GetVoterInSession(ctx, *c.CreatedByVoterID, sess.ID)
			if errors.Is(err, store.ErrNotFound) {
				return apperr.Forbidden(apperr.CodeRevoked, "The person who shared this invite has left the session")
			}
			if err != nil {
				return fmt.Errorf("failed to load inviter: %w", err)
			}
			depth = inviter.InviteDepth + 1
			invitedBy = &inviter.ID
		}
		if sess.MaxInviteDepth != nil && depth > *sess.MaxInviteDepth {
			return apperr.Forbidden(apperr.CodeDepthExceeded, "This invite chain has reached its limit").
				With("max_invite_depth", *sess.MaxInviteDepth)
		}

		voter = models.Voter{
			ID:                   uuid.NewString(),
			SessionID:            sess.ID,
			InvitedBy:            invitedBy,
			InviteDepth:          depth,
			InviteSlotsRemaining: sess.GuestInviteSlots,
			Fingerprint:          optionalText(req.Fingerprint, 128),
			JoinedViaCode:        &code,
			JoinedAt:             now,
			LastActiveAt:         now,
		}
		if err := tx.CreateVoter(ctx, voter); err != nil {
			return err
		}
		return tx.SetCodeClaimant(ctx, code, voter.ID)
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(voter.ID, sess.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("Invite claimed", "session", sess.Slug, "voter", voter.ID, "depth", voter.InviteDepth)
	events.Emit(ctx, s.events, events.SubjectInviteClaimed, events.InviteClaimed{
		SessionID: sess.ID,
		VoterID:   voter.ID,
		Code:      code,
		InvitedBy: voter.InvitedBy,
		Depth:     voter.InviteDepth,
		At:        now,
	})
	return &ClaimResult{Voter: voter, Session: sess, Token: token}, nil
}

// claimable maps a code that cannot admit anyone to REVOKED or FULLY_CLAIMED.
func claimable(c models.InviteCode) error {
	switch {
	case c.Status == models.CodeRevoked:
		return apperr.Forbidden(apperr.CodeRevoked, "This invite has been revoked")
	case !c.Claimable():
		return apperr.Conflict(apperr.CodeFullyClaimed, "This invite has already been claimed").
			With("max_uses", c.MaxUses)
	}
	return nil
}

func sessionClosed(sess models.Session) *apperr.Error {
	return apperr.Forbidden(apperr.CodeSessionClosed, "This movie night is closed").
		With("session_name", sess.Name).
		With("session_slug", sess.Slug)
}

// IssueRootCodes inserts count admin codes for the session through st,
// which is normally a transaction store. count is clamped to 1..MaxCodesPerBatch
// and maxUses defaults to 1.
func IssueRootCodes(ctx context.Context, st *store.Store, sessionID string, count int, label *string, maxUses int, now time.Time) ([]models.InviteCode, error) {
	count = max(1, min(count, models.MaxCodesPerBatch))
	if maxUses <= 0 {
		maxUses = 1
	}
	if label != nil {
		label = optionalText(*label, models.MaxLabelLength)
	}

	codes := make([]models.InviteCode, 0, count)
	for i := 0; i < count; i++ {
		c, err := insertCode(ctx, st, models.InviteCode{
			SessionID: sessionID,
			Status:    models.CodeUnused,
			Label:     label,
			MaxUses:   maxUses,
			CreatedAt: now,
		})
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, nil
}

// insertCode fills in a fresh code and inserts c.
func insertCode(ctx context.Context, st *store.Store, c models.InviteCode) (models.InviteCode, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := auth.GenerateInviteCode(auth.DefaultCodeLength)
		if err != nil {
			return c, err
		}
		exists, err := st.CodeExists(ctx, code)
		if err != nil {
			return c, err
		}
		if exists {
			continue
		}
		c.Code = code
		if err := st.CreateCode(ctx, c); err != nil {
			return c, err
		}
		return c, nil
	}
	return c, errors.New("failed to generate a unique invite code")
}

// GenerateRootCodes mints admin-issued codes whose claimants start at depth 0.
func (s *Service) GenerateRootCodes(ctx context.Context, sessionID string, count int, label *string, maxUses int) ([]models.InviteCode, error) {
	var codes []models.InviteCode
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		if _, err := tx.GetSession(ctx, sessionID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound(apperr.CodeSessionNotFound, "Session not found")
			}
			return fmt.Errorf("failed to load session: %w", err)
		}
		var err error
		codes, err = IssueRootCodes(ctx, tx, sessionID, count, label, maxUses, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Root codes generated", "session", sessionID, "count", len(codes))
	return codes, nil
}

// MintVoterCode creates a single-use code for the voter to share, counted
// against the voter's invite slots.
func (s *Service) MintVoterCode(ctx context.Context, slug, voterID, label string) (models.InviteCode, error) {
	sess, err := s.openSession(ctx, slug)
	if err != nil {
		return models.InviteCode{}, err
	}
	lbl := optionalText(label, models.MaxLabelLength)
	if lbl == nil {
		return models.InviteCode{}, apperr.Validation("Label is required")
	}

	var code models.InviteCode
	err = s.store.InTx(ctx, func(tx *store.Store) error {
		now := s.now()
		ok, err := tx.TouchVoter(ctx, voterID, sess.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Unauthorized("Join this movie night first")
		}
		voter, err := tx.GetVoter(ctx, voterID)
		if err != nil {
			return fmt.Errorf("failed to load voter: %w", err)
		}
		used, err := tx.CountCodesByCreator(ctx, voterID)
		if err != nil {
			return err
		}
		if used >= voter.InviteSlotsRemaining {
			return apperr.Forbidden(apperr.CodeSlotsExhausted, "You have no invites left to share").
				With("limit", voter.InviteSlotsRemaining)
		}

		code, err = insertCode(ctx, tx, models.InviteCode{
			SessionID:        sess.ID,
			CreatedByVoterID: &voter.ID,
			Status:           models.CodeUnused,
			Label:            lbl,
			MaxUses:          1,
			CreatedAt:        now,
		})
		return err
	})
	if err != nil {
		return models.InviteCode{}, err
	}
	return code, nil
}

// VoterCodes is a voter's own codes and invite slot budget.
type VoterCodes struct {
	Codes          []models.InviteCode `json:"codes"`
	SlotBudget     int                 `json:"slot_budget"`
	SlotsUsed      int                 `json:"slots_used"`
	SlotsRemaining int                 `json:"slots_remaining"`
}

func (s *Service) ListVoterCodes(ctx context.Context, slug, voterID string) (*VoterCodes, error) {
	sess, err := s.sessionBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	voter, err := s.voterInSession(ctx, voterID, sess.ID)
	if err != nil {
		return nil, err
	}
	codes, err := s.store.ListCodesByCreator(ctx, voter.ID)
	if err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []models.InviteCode{}
	}
	return &VoterCodes{
		Codes:          codes,
		SlotBudget:     voter.InviteSlotsRemaining,
		SlotsUsed:      len(codes),
		SlotsRemaining: max(0, voter.InviteSlotsRemaining-len(codes)),
	}, nil
}

// SetCodeLabel renames a code the voter minted.
func (s *Service) SetCodeLabel(ctx context.Context, slug, voterID, code, label string) (models.InviteCode, error) {
	sess, err := s.sessionBySlug(ctx, slug)
	if err != nil {
		return models.InviteCode{}, err
	}
	if _, err := s.voterInSession(ctx, voterID, sess.ID); err != nil {
		return models.InviteCode{}, err
	}
	lbl := optionalText(label, models.MaxLabelLength)
	if lbl == nil {
		return models.InviteCode{}, apperr.Validation("Label is required")
	}

	c, err := s.getCode(ctx, code)
	if err != nil {
		return models.InviteCode{}, err
	}
	if c.SessionID != sess.ID {
		return models.InviteCode{}, apperr.NotFound(apperr.CodeCodeNotFound, "Invite code not found")
	}
	if c.CreatedByVoterID == nil || *c.CreatedByVoterID != voterID {
		return models.InviteCode{}, apperr.Forbidden(apperr.CodeNotOwner, "You can only rename your own invites")
	}
	if err := s.store.SetCodeLabel(ctx, c.Code, lbl); err != nil {
		return models.InviteCode{}, err
	}
	c.Label = lbl
	return c, nil
}

// RevokeCode stops an unused code from admitting anyone. Revoking a revoked
// code is a no-op; a spent code cannot be revoked.
func (s *Service) RevokeCode(ctx context.Context, code string) (models.InviteCode, error) {
	code = auth.NormalizeCode(code)
	revoked, err := s.store.RevokeCode(ctx, code)
	if err != nil {
		return models.InviteCode{}, err
	}
	c, err := s.getCode(ctx, code)
	if err != nil {
		return models.InviteCode{}, err
	}
	if !revoked && c.Status == models.CodeUsed {
		return models.InviteCode{}, apperr.Conflict(apperr.CodeAlreadyUsed, "This invite has already been used")
	}
	if revoked {
		slog.Info("Invite code revoked", "code", code, "session", c.SessionID)
	}
	return c, nil
}

// ReopenCode puts a used or revoked code back to unused, raising max_uses
// when needed so at least one more claim fits.
func (s *Service) ReopenCode(ctx context.Context, code string) (models.InviteCode, error) {
	var c models.InviteCode
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		var err error
		c, err = tx.GetCode(ctx, auth.NormalizeCode(code))
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(apperr.CodeCodeNotFound, "Invite code not found")
		}
		if err != nil {
			return err
		}
		if c.Status == models.CodeUnused {
			return nil
		}
		maxUses := c.MaxUses
		if c.UseCount >= maxUses {
			maxUses = c.UseCount + 1
		}
		if err := tx.ReopenCode(ctx, c.Code, maxUses); err != nil {
			return err
		}
		c.Status = models.CodeUnused
		c.MaxUses = maxUses
		return nil
	})
	if err != nil {
		return models.InviteCode{}, err
	}
	return c, nil
}

// DeleteCode removes the code along with the voters it admitted and their votes.
func (s *Service) DeleteCode(ctx context.Context, code string) error {
	code = auth.NormalizeCode(code)
	var removed int
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		if _, err := tx.GetCode(ctx, code); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound(apperr.CodeCodeNotFound, "Invite code not found")
			}
			return err
		}
		ids, err := tx.ListVoterIDsByJoinCode(ctx, code)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := tx.DeleteVotesByVoter(ctx, id); err != nil {
				return err
			}
			if err := tx.RevokeUnusedCodesByCreator(ctx, id); err != nil {
				return err
			}
			if err := tx.DeleteVoter(ctx, id); err != nil {
				return err
			}
		}
		removed = len(ids)
		return tx.DeleteCode(ctx, code)
	})
	if err != nil {
		return err
	}
	slog.Info("Invite code deleted", "code", code, "voters_removed", removed)
	return nil
}

func (s *Service) sessionBySlug(ctx context.Context, slug string) (models.Session, error) {
	sess, err := s.store.GetSessionBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return sess, apperr.NotFound(apperr.CodeSessionNotFound, "Session not found")
	}
	if err != nil {
		return sess, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

func (s *Service) openSession(ctx context.Context, slug string) (models.Session, error) {
	sess, err := s.sessionBySlug(ctx, slug)
	if err != nil {
		return sess, err
	}
	if !sess.IsOpen(s.now()) {
		return sess, sessionClosed(sess)
	}
	return sess, nil
}

func (s *Service) voterInSession(ctx context.Context, voterID, sessionID string) (models.Voter, error) {
	v, err := s.store.GetVoterInSession(ctx, voterID, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return v, apperr.Unauthorized("Join this movie night first")
	}
	if err != nil {
		return v, fmt.Errorf("failed to load voter: %w", err)
	}
	return v, nil
}

func (s *Service) getCode(ctx context.Context, code string) (models.InviteCode, error) {
	c, err := s.store.GetCode(ctx, auth.NormalizeCode(code))
	if errors.Is(err, store.ErrNotFound) {
		return c, apperr.NotFound(apperr.CodeCodeNotFound, "Invite code not found")
	}
	if err != nil {
		return c, fmt.Errorf("failed to load invite code: %w", err)
	}
	return c, nil
}

// optionalText trims s and cuts it to limit runes; blank input is nil.
func optionalText(s string, limit int) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if r := []rune(s); len(r) > limit {
		s = strings.TrimSpace(string(r[:limit]))
	}
	return &s
}
