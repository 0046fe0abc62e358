// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/movienight/apperr"
	"github.com/danielhkuo/movienight/db"
	"github.com/danielhkuo/movienight/events"
	"github.com/danielhkuo/movienight/invites"
	"github.com/danielhkuo/movienight/ledger"
	"github.com/danielhkuo/movienight/metrics"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/store"
)

const (
	maxSlugLength = 64
	maxNameLength = 100
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Close triggers, used as the metrics label.
const (
	TriggerAdmin   = "admin"
	TriggerExpired = "expired"
)

type Service struct {
	store   *store.Store
	ledger  *ledger.Ledger
	events  events.Publisher
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(st *store.Store, l *ledger.Ledger, pub events.Publisher, m *metrics.Metrics) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store:   st,
		ledger:  l,
		events:  pub,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a new movie night and issues its root invite codes in the
// same transaction.
func (s *Service) Create(ctx context.Context, req models.CreateSessionRequest) (*models.CreateSessionResponse, error) {
	now := s.now()
	sess, err := newSession(req, now)
	if err != nil {
		return nil, err
	}
	rootCodes := models.DefaultRootInviteCodes
	if req.RootInviteCodes != nil {
		rootCodes = max(0, min(*req.RootInviteCodes, models.MaxCodesPerBatch))
	}

	codes := []models.InviteCode{}
	err = s.store.InTx(ctx, func(tx *store.Store) error {
		if _, err := tx.GetSessionBySlug(ctx, sess.Slug); err == nil {
			return slugTaken(sess.Slug)
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to check slug: %w", err)
		}
		if err := tx.CreateSession(ctx, sess); err != nil {
			if db.IsUniqueViolation(err) {
				return slugTaken(sess.Slug)
			}
			return err
		}
		if rootCodes == 0 {
			return nil
		}
		issued, err := invites.IssueRootCodes(ctx, tx, sess.ID, rootCodes, nil, 1, now)
		if err != nil {
			return err
		}
		codes = issued
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Session created", "session", sess.Slug, "id", sess.ID, "root_codes", len(codes))
	return &models.CreateSessionResponse{Session: sess, Codes: codes}, nil
}

func newSession(req models.CreateSessionRequest, now time.Time) (models.Session, error) {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if err := validateSlug(slug); err != nil {
		return models.Session{}, err
	}
	name, err := validateName(req.Name)
	if err != nil {
		return models.Session{}, err
	}

	sess := models.Session{
		ID:                    uuid.NewString(),
		Slug:                  slug,
		Name:                  name,
		Status:                models.StatusOpen,
		VotesPerVoter:         models.DefaultVotesPerVoter,
		MaxInviteDepth:        req.MaxInviteDepth,
		GuestInviteSlots:      models.DefaultGuestInviteSlots,
		AllowExternalRequests: true,
		ExpiresAt:             req.ExpiresAt,
		CreatedAt:             now,
	}
	if req.VotesPerVoter != nil {
		sess.VotesPerVoter = *req.VotesPerVoter
	}
	if req.GuestInviteSlots != nil {
		sess.GuestInviteSlots = *req.GuestInviteSlots
	}
	if req.AllowExternalRequests != nil {
		sess.AllowExternalRequests = *req.AllowExternalRequests
	}
	if req.VoteStacking != nil {
		sess.VoteStacking = *req.VoteStacking
	}
	if sess.ExpiresAt != nil {
		t := sess.ExpiresAt.UTC()
		sess.ExpiresAt = &t
	}
	return sess, validateLimits(sess)
}

func validateSlug(slug string) error {
	if slug == "" || len(slug) > maxSlugLength || !slugPattern.MatchString(slug) {
		return apperr.Validation("Slug must be 1-64 characters of lowercase letters, digits and hyphens")
	}
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("Name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return "", apperr.Validationf("Name must be at most %d characters", maxNameLength)
	}
	return name, nil
}

func validateLimits(sess models.Session) error {
	if sess.VotesPerVoter < 0 {
		return apperr.Validation("votes_per_voter cannot be negative")
	}
	if sess.GuestInviteSlots < 0 {
		return apperr.Validation("guest_invite_slots cannot be negative")
	}
	if sess.MaxInviteDepth != nil && *sess.MaxInviteDepth < 0 {
		return apperr.Validation("max_invite_depth cannot be negative")
	}
	return nil
}

func slugTaken(slug string) error {
	return apperr.Conflict(apperr.CodeSlugTaken, fmt.Sprintf("Slug %q is already in use", slug)).
		With("slug", slug)
}

// Update applies the fields present in patch. Reopening a closed session
// clears its winner; closing one through Update picks a winner as Close does.
func (s *Service) Update(ctx context.Context, id string, patch models.UpdateSessionRequest) (models.Session, error) {
	var (
		updated models.Session
		closed  bool
	)
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		sess, err := getSession(ctx, tx, id)
		if err != nil {
			return err
		}
		wasOpen := sess.Status == models.StatusOpen

		changed := 0
		if patch.Name != nil {
			name, err := validateName(*patch.Name)
			if err != nil {
				return err
			}
			sess.Name = name
			changed++
		}
		if patch.Status != nil {
			switch *patch.Status {
			case models.StatusOpen, models.StatusClosed:
				sess.Status = *patch.Status
			default:
				return apperr.Validationf("Unknown status %q", *patch.Status)
			}
			changed++
		}
		if patch.VotesPerVoter != nil {
			sess.VotesPerVoter = *patch.VotesPerVoter
			changed++
		}
		if patch.MaxInviteDepth.Set {
			sess.MaxInviteDepth = patch.MaxInviteDepth.Value
			changed++
		}
		if patch.GuestInviteSlots != nil {
			sess.GuestInviteSlots = *patch.GuestInviteSlots
			changed++
		}
		if patch.AllowExternalRequests != nil {
			sess.AllowExternalRequests = *patch.AllowExternalRequests
			changed++
		}
		if patch.VoteStacking != nil {
			sess.VoteStacking = *patch.VoteStacking
			changed++
		}
		if patch.ExpiresAt.Set {
			sess.ExpiresAt = patch.ExpiresAt.Value
			if sess.ExpiresAt != nil {
				t := sess.ExpiresAt.UTC()
				sess.ExpiresAt = &t
			}
			changed++
		}
		if changed == 0 {
			return apperr.Validation("No valid fields to update")
		}
		if err := validateLimits(sess); err != nil {
			return err
		}

		switch {
		case sess.Status == models.StatusOpen:
			sess.WinnerMovieID = nil
		case wasOpen:
			if err := tx.CloseSession(ctx, sess.ID, nil); err != nil {
				return err
			}
			winner, err := ledger.DetermineWinner(ctx, tx, sess.ID, nil)
			if err != nil {
				return err
			}
			sess.WinnerMovieID = winner
			closed = true
		}
		if err := tx.UpdateSession(ctx, sess); err != nil {
			return err
		}
		updated = sess
		return nil
	})
	if err != nil {
		return models.Session{}, err
	}

	slog.Info("Session updated", "session", updated.Slug, "status", updated.Status)
	if closed {
		s.closed(ctx, updated, TriggerAdmin)
	}
	return updated, nil
}

// Close ends voting and records the winner: explicitWinner when given,
// otherwise the top of the tally. Closing a closed session picks the winner again.
func (s *Service) Close(ctx context.Context, id string, explicitWinner *string) (models.Session, error) {
	sess, _, err := s.close(ctx, id, explicitWinner, false)
	if err != nil {
		return models.Session{}, err
	}
	s.closed(ctx, sess, TriggerAdmin)
	return sess, nil
}

// close marks the session closed before reading the tally. Votes and
// nominations hold a share lock on the session row (store.LockSession), so
// the update waits for any of them in flight and the tally counts them;
// later ones read the closed status and fail. With onlyOpen set a session
// that is already closed is left alone and reported as not closed.
func (s *Service) close(ctx context.Context, id string, explicitWinner *string, onlyOpen bool) (models.Session, bool, error) {
	var (
		out  models.Session
		done bool
	)
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		sess, err := getSession(ctx, tx, id)
		if err != nil {
			return err
		}
		if onlyOpen && sess.Status != models.StatusOpen {
			return nil
		}
		if err := tx.CloseSession(ctx, id, sess.WinnerMovieID); err != nil {
			return err
		}
		winner, err := ledger.DetermineWinner(ctx, tx, id, explicitWinner)
		if err != nil {
			return err
		}
		if err := tx.CloseSession(ctx, id, winner); err != nil {
			return err
		}
		sess.Status = models.StatusClosed
		sess.WinnerMovieID = winner
		out = sess
		done = true
		return nil
	})
	return out, done, err
}

func (s *Service) closed(ctx context.Context, sess models.Session, trigger string) {
	winner := ""
	if sess.WinnerMovieID != nil {
		winner = *sess.WinnerMovieID
	}
	slog.Info("Session closed", "session", sess.Slug, "winner", winner, "trigger", trigger)
	s.metrics.SessionClosed(trigger)
	events.Emit(ctx, s.events, events.SubjectSessionClosed, events.SessionClosed{
		SessionID:     sess.ID,
		WinnerMovieID: sess.WinnerMovieID,
		Automatic:     trigger == TriggerExpired,
		At:            s.now(),
	})
}

// CloseExpired closes every open session whose expiry has passed and returns
// how many it closed. A failure on one session does not stop the others.
func (s *Service) CloseExpired(ctx context.Context) (int, error) {
	expired, err := s.store.ListExpiredOpenSessions(ctx, s.now())
	if err != nil {
		return 0, err
	}

	var errs []error
	n := 0
	for _, sess := range expired {
		closed, done, err := s.close(ctx, sess.ID, nil, true)
		if err != nil {
			slog.Error("Failed to close expired session", "session", sess.Slug, "error", err)
			errs = append(errs, err)
			continue
		}
		if done {
			s.closed(ctx, closed, TriggerExpired)
			n++
		}
	}
	return n, errors.Join(errs...)
}

// Delete removes the session with all of its voters, codes, movies and votes.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		return tx.DeleteSessionCascade(ctx, id)
	})
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(apperr.CodeSessionNotFound, "Session not found")
	}
	if err != nil {
		return err
	}
	slog.Info("Session deleted", "id", id)
	return nil
}

// UpdateDisplayName sets the voter's name in the session. A blank name
// clears it.
func (s *Service) UpdateDisplayName(ctx context.Context, slug, voterID, name string) (models.Voter, error) {
	sess, err := s.sessionBySlug(ctx, slug)
	if err != nil {
		return models.Voter{}, err
	}
	v, err := s.store.GetVoterInSession(ctx, voterID, sess.ID)
	if errors.Is(err, store.ErrNotFound) {
		return v, apperr.Unauthorized("Join this movie night first")
	}
	if err != nil {
		return v, fmt.Errorf("failed to load voter: %w", err)
	}

	v.DisplayName = displayName(name)
	if err := s.store.SetVoterDisplayName(ctx, v.ID, v.DisplayName); err != nil {
		return v, err
	}
	return v, nil
}

func displayName(name string) *string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if r := []rune(name); len(r) > models.MaxDisplayNameLength {
		name = strings.TrimSpace(string(r[:models.MaxDisplayNameLength]))
	}
	return &name
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

func getSession(ctx context.Context, st *store.Store, id string) (models.Session, error) {
	sess, err := st.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return sess, apperr.NotFound(apperr.CodeSessionNotFound, "Session not found")
	}
	if err != nil {
		return sess, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}
