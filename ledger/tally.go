// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"errors"

	"github.com/danielhkuo/movienight/apperr"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/store"
)

// Tally lists every movie of the session with its count, highest first.
// Ties go to the earlier nomination.
func (l *Ledger) Tally(ctx context.Context, sessionID string) ([]models.TallyEntry, error) {
	tally, err := l.store.Tally(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if tally == nil {
		tally = []models.TallyEntry{}
	}
	return tally, nil
}

// Winner is the top entry of a tally, or nil when nobody has voted.
func Winner(tally []models.TallyEntry) *string {
	if len(tally) == 0 || tally[0].VoteCount == 0 {
		return nil
	}
	id := tally[0].MovieID
	return &id
}

// DetermineWinner resolves the winner through st, which may be a transaction.
// An explicit winner must be a movie of the session.
func DetermineWinner(ctx context.Context, st *store.Store, sessionID string, explicit *string) (*string, error) {
	if explicit != nil && *explicit != "" {
		m, err := st.GetMovieInSession(ctx, *explicit, sessionID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(apperr.CodeMovieNotFound, "Winner must be a movie of this session")
		}
		if err != nil {
			return nil, err
		}
		return &m.ID, nil
	}
	tally, err := st.Tally(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return Winner(tally), nil
}

func (l *Ledger) DetermineWinner(ctx context.Context, sessionID string, explicit *string) (*string, error) {
	return DetermineWinner(ctx, l.store, sessionID, explicit)
}

// Summary is one voter's spending in a session.
type Summary struct {
	VotesUsed      int            `json:"votes_used"`
	VotesRemaining int            `json:"votes_remaining"`
	ByMovie        map[string]int `json:"by_movie"`
}

func (l *Ledger) Summary(ctx context.Context, sess models.Session, voterID string) (*Summary, error) {
	byMovie, err := l.store.VoterCountsByMovie(ctx, sess.ID, voterID)
	if err != nil {
		return nil, err
	}
	used := 0
	for _, n := range byMovie {
		used += n
	}
	return &Summary{
		VotesUsed:      used,
		VotesRemaining: max(0, sess.VotesPerVoter-used),
		ByMovie:        byMovie,
	}, nil
}
