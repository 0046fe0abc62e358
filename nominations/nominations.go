// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package nominations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/movienight/apperr"
	"github.com/danielhkuo/movienight/catalog"
	"github.com/danielhkuo/movienight/db"
	"github.com/danielhkuo/movienight/events"
	"github.com/danielhkuo/movienight/metrics"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/store"
)

const maxTitleLength = 200

// Candidate is a movie proposed for a session.
type Candidate struct {
	Title          string
	Year           *int
	RuntimeMinutes *int
	Synopsis       *string
	PosterURL      *string
	Source         string
	LibraryID      *string
	CatalogID      *string
	Status         string
}

func CandidateFromRequest(req models.NominateRequest) Candidate {
	return Candidate{
		Title:          req.Title,
		Year:           req.Year,
		RuntimeMinutes: req.RuntimeMinutes,
		Synopsis:       req.Synopsis,
		PosterURL:      req.PosterURL,
		Source:         req.Source,
		LibraryID:      req.LibraryID,
		CatalogID:      req.CatalogID,
		Status:         req.Status,
	}
}

type Guard struct {
	store     *store.Store
	requester catalog.Requester
	timeout   time.Duration
	events    events.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewGuard builds a Guard. requester may be nil, in which case requested
// movies are stored without a request id.
func NewGuard(st *store.Store, requester catalog.Requester, timeout time.Duration, pub events.Publisher, m *metrics.Metrics) *Guard {
	if pub == nil {
		pub = events.Nop{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Guard{
		store:     st,
		requester: requester,
		timeout:   timeout,
		events:    pub,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Nominate adds a library or catalog movie to the session.
func (g *Guard) Nominate(ctx context.Context, slug, voterID string, c Candidate) (models.Movie, error) {
	m, err := g.nominate(ctx, slug, voterID, c)
	g.metrics.Nomination(c.Source, metrics.ResultOf(err))
	return m, err
}

func (g *Guard) nominate(ctx context.Context, slug, voterID string, c Candidate) (models.Movie, error) {
	c, err := normalize(c)
	if err != nil {
		return models.Movie{}, err
	}
	if c.Source == models.SourceExternalRequest {
		return models.Movie{}, apperr.Validation("Requested movies go through the request endpoint")
	}
	sess, err := g.admit(ctx, slug, voterID)
	if err != nil {
		return models.Movie{}, err
	}
	return g.insert(ctx, sess, voterID, c, nil)
}

// RequestAndNominate asks the request service for the movie, then nominates
// it. A failed request is logged and the nomination is kept without a
// request id.
func (g *Guard) RequestAndNominate(ctx context.Context, slug, voterID string, c Candidate) (models.Movie, error) {
	m, err := g.requestAndNominate(ctx, slug, voterID, c)
	g.metrics.Nomination(models.SourceExternalRequest, metrics.ResultOf(err))
	return m, err
}

func (g *Guard) requestAndNominate(ctx context.Context, slug, voterID string, c Candidate) (models.Movie, error) {
	c.Source = models.SourceExternalRequest
	c.Status = models.MovieRequested
	c.LibraryID = nil
	c, err := normalize(c)
	if err != nil {
		return models.Movie{}, err
	}
	if c.CatalogID == nil {
		return models.Movie{}, apperr.Validation("catalog_id is required to request a movie")
	}

	sess, err := g.admit(ctx, slug, voterID)
	if err != nil {
		return models.Movie{}, err
	}
	if !sess.AllowExternalRequests {
		return models.Movie{}, apperr.Forbidden(apperr.CodeRequestsDisabled, "Requests are turned off for this movie night")
	}
	// Checked before the request so a duplicate never reaches the service.
	if err := checkDuplicate(ctx, g.store, sess.ID, c); err != nil {
		return models.Movie{}, err
	}

	return g.insert(ctx, sess, voterID, c, g.submit(ctx, *c.CatalogID))
}

// submit calls the request service under the guard's timeout. It runs
// outside any transaction.
func (g *Guard) submit(ctx context.Context, catalogID string) *string {
	if g.requester == nil {
		slog.Warn("No request service configured; storing nomination only", "catalog_id", catalogID)
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	id, err := g.requester.SubmitRequest(ctx, catalogID)
	if err != nil {
		slog.Warn("Movie request failed", "catalog_id", catalogID, "error", err)
		g.metrics.ExternalFailure("requests")
		return nil
	}
	if id == "" {
		return nil
	}
	return &id
}

// RemoveNomination deletes the voter's own nomination and every vote on it.
func (g *Guard) RemoveNomination(ctx context.Context, slug, voterID, movieID string) error {
	sess, err := g.admit(ctx, slug, voterID)
	if err != nil {
		return err
	}
	return g.store.InTx(ctx, func(tx *store.Store) error {
		if err := lockOpen(ctx, tx, sess.ID, g.now()); err != nil {
			return err
		}
		m, err := tx.GetMovieInSession(ctx, movieID, sess.ID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(apperr.CodeMovieNotFound, "Movie not found")
		}
		if err != nil {
			return err
		}
		if m.NominatedBy != voterID {
			return apperr.Forbidden(apperr.CodeNotNominator, "Only the person who nominated this movie can remove it")
		}
		return tx.DeleteMovieCascade(ctx, m.ID)
	})
}

// admit resolves an open session and checks the voter belongs to it. Writes
// repeat the open check under lockOpen.
func (g *Guard) admit(ctx context.Context, slug, voterID string) (models.Session, error) {
	sess, err := g.store.GetSessionBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return sess, apperr.NotFound(apperr.CodeSessionNotFound, "Session not found")
	}
	if err != nil {
		return sess, fmt.Errorf("failed to load session: %w", err)
	}
	if !sess.IsOpen(g.now()) {
		return sess, apperr.Forbidden(apperr.CodeSessionClosed, "This movie night is closed")
	}
	if _, err := g.store.GetVoterInSession(ctx, voterID, sess.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return sess, apperr.Unauthorized("Join this movie night first")
		}
		return sess, fmt.Errorf("failed to load voter: %w", err)
	}
	return sess, nil
}

// lockOpen re-reads the session under a share lock. A close that commits first
// is reported as SESSION_CLOSED; a later one waits for the caller's commit.
func lockOpen(ctx context.Context, tx *store.Store, sessionID string, now time.Time) error {
	sess, err := tx.LockSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(apperr.CodeSessionNotFound, "Session not found")
	}
	if err != nil {
		return fmt.Errorf("failed to lock session: %w", err)
	}
	if !sess.IsOpen(now) {
		return apperr.Forbidden(apperr.CodeSessionClosed, "This movie night is closed")
	}
	return nil
}

func checkDuplicate(ctx context.Context, st *store.Store, sessionID string, c Candidate) error {
	existing, err := st.FindDuplicateMovie(ctx, sessionID, c.LibraryID, c.CatalogID, c.Title, c.Source)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check duplicates: %w", err)
	}
	return apperr.Duplicate(existing.ID)
}

func (g *Guard) insert(ctx context.Context, sess models.Session, voterID string, c Candidate, requestID *string) (models.Movie, error) {
	m := models.Movie{
		ID:             uuid.NewString(),
		SessionID:      sess.ID,
		Title:          c.Title,
		Year:           c.Year,
		RuntimeMinutes: c.RuntimeMinutes,
		Synopsis:       c.Synopsis,
		PosterURL:      c.PosterURL,
		Source:         c.Source,
		LibraryID:      c.LibraryID,
		CatalogID:      c.CatalogID,
		RequestID:      requestID,
		Status:         c.Status,
		NominatedBy:    voterID,
		CreatedAt:      g.now(),
	}
	err := g.store.InTx(ctx, func(tx *store.Store) error {
		if err := lockOpen(ctx, tx, sess.ID, m.CreatedAt); err != nil {
			return err
		}
		if err := checkDuplicate(ctx, tx, sess.ID, c); err != nil {
			return err
		}
		return tx.CreateMovie(ctx, m)
	})
	if err != nil {
		// A concurrent nomination of the same movie won the unique index.
		// PostgreSQL aborts the transaction, so look the winner up on the pool.
		if db.IsUniqueViolation(err) {
			if dupErr := checkDuplicate(ctx, g.store, sess.ID, c); dupErr != nil {
				return models.Movie{}, dupErr
			}
		}
		return models.Movie{}, err
	}

	slog.Info("Movie nominated", "session", sess.Slug, "movie", m.ID, "title", m.Title, "source", m.Source)
	events.Emit(ctx, g.events, events.SubjectMovieNominated, events.MovieNominated{
		SessionID: sess.ID,
		MovieID:   m.ID,
		Title:     m.Title,
		Source:    m.Source,
		VoterID:   voterID,
		At:        m.CreatedAt,
	})
	return m, nil
}

// normalize trims text fields, fills in source and status defaults, and
// rejects what cannot be stored.
func normalize(c Candidate) (Candidate, error) {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return c, apperr.Validation("Title is required")
	}
	if r := []rune(c.Title); len(r) > maxTitleLength {
		c.Title = string(r[:maxTitleLength])
	}
	c.LibraryID = blankToNil(c.LibraryID)
	c.CatalogID = blankToNil(c.CatalogID)
	c.Synopsis = blankToNil(c.Synopsis)
	c.PosterURL = blankToNil(c.PosterURL)
	if c.Year != nil && (*c.Year < 1870 || *c.Year > 3000) {
		return c, apperr.Validationf("Year %d is out of range", *c.Year)
	}
	if c.RuntimeMinutes != nil && *c.RuntimeMinutes < 0 {
		return c, apperr.Validation("Runtime cannot be negative")
	}

	if c.Source == "" {
		if c.LibraryID != nil {
			c.Source = models.SourceLibrary
		} else {
			c.Source = models.SourceExternalCatalog
		}
	}

	switch c.Source {
	case models.SourceLibrary:
		if c.LibraryID == nil {
			return c, apperr.Validation("library_id is required for library movies")
		}
		c.Status = models.MovieInLibrary
	case models.SourceExternalCatalog:
		c.LibraryID = nil
		switch c.Status {
		case models.MovieInLibrary, models.MovieRequested:
		default:
			c.Status = models.MovieNominatedOnly
		}
	case models.SourceExternalRequest:
		c.LibraryID = nil
		c.Status = models.MovieRequested
	default:
		return c, apperr.Validationf("Unknown source %q", c.Source)
	}
	return c, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
