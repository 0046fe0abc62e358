// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/movienight/apperr"
	"github.com/danielhkuo/movienight/events"
	"github.com/danielhkuo/movienight/metrics"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/store"
)

type Ledger struct {
	store   *store.Store
	events  events.Publisher
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(st *store.Store, pub events.Publisher, m *metrics.Metrics) *Ledger {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Ledger{
		store:   st,
		events:  pub,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// VoteResult is the voter's budget and the movie's count after a cast or retract.
type VoteResult struct {
	MovieID        string `json:"movie_id"`
	VotesUsed      int    `json:"votes_used"`
	VotesRemaining int    `json:"votes_remaining"`
	MovieVoteCount int    `json:"movie_vote_count"`
	MyVotesOnMovie int    `json:"my_votes_on_movie"`
}

// CastVote spends one unit of the voter's budget on movieID.
func (l *Ledger) CastVote(ctx context.Context, slug, voterID, movieID string) (*VoteResult, error) {
	res, err := l.castVote(ctx, slug, voterID, strings.TrimSpace(movieID))
	l.metrics.Vote("cast", metrics.ResultOf(err))
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, l.events, events.SubjectVoteCast, events.VoteChanged{
		SessionID: res.sessionID,
		VoterID:   voterID,
		MovieID:   res.MovieID,
		VoteCount: res.MovieVoteCount,
		At:        l.now(),
	})
	return &res.VoteResult, nil
}

type voteOutcome struct {
	VoteResult
	sessionID string
}

func (l *Ledger) castVote(ctx context.Context, slug, voterID, movieID string) (*voteOutcome, error) {
	if movieID == "" {
		return nil, apperr.Validation("movie_id is required")
	}
	sess, err := l.openSession(ctx, slug)
	if err != nil {
		return nil, err
	}

	var out *voteOutcome
	err = l.store.InTx(ctx, func(tx *store.Store) error {
		now := l.now()
		sess, err := lockVoter(ctx, tx, sess.ID, voterID, now)
		if err != nil {
			return err
		}
		if _, err := tx.GetMovieInSession(ctx, movieID, sess.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound(apperr.CodeMovieNotFound, "Movie not found")
			}
			return err
		}

		used, err := tx.CountVotesByVoter(ctx, sess.ID, voterID)
		if err != nil {
			return err
		}
		if used >= sess.VotesPerVoter {
			return apperr.Forbidden(apperr.CodeBudgetExhausted, fmt.Sprintf("You have used all %d votes", sess.VotesPerVoter)).
				With("limit", sess.VotesPerVoter)
		}
		if !sess.VoteStacking {
			mine, err := tx.CountVoterVotesOnMovie(ctx, voterID, movieID)
			if err != nil {
				return err
			}
			if mine > 0 {
				return apperr.Conflict(apperr.CodeAlreadyVoted, "You already voted for this movie")
			}
		}

		err = tx.CreateVote(ctx, models.Vote{
			ID:        uuid.NewString(),
			SessionID: sess.ID,
			VoterID:   voterID,
			MovieID:   movieID,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		out, err = result(ctx, tx, sess, voterID, movieID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RetractVote gives back one vote the voter cast on movieID, the newest one
// when the session allows stacking.
func (l *Ledger) RetractVote(ctx context.Context, slug, voterID, movieID string) (*VoteResult, error) {
	res, err := l.retractVote(ctx, slug, voterID, strings.TrimSpace(movieID))
	l.metrics.Vote("retract", metrics.ResultOf(err))
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, l.events, events.SubjectVoteRetracted, events.VoteChanged{
		SessionID: res.sessionID,
		VoterID:   voterID,
		MovieID:   res.MovieID,
		VoteCount: res.MovieVoteCount,
		At:        l.now(),
	})
	return &res.VoteResult, nil
}

func (l *Ledger) retractVote(ctx context.Context, slug, voterID, movieID string) (*voteOutcome, error) {
	sess, err := l.openSession(ctx, slug)
	if err != nil {
		return nil, err
	}

	var out *voteOutcome
	err = l.store.InTx(ctx, func(tx *store.Store) error {
		sess, err := lockVoter(ctx, tx, sess.ID, voterID, l.now())
		if err != nil {
			return err
		}
		vote, err := tx.LatestVoterVoteOnMovie(ctx, sess.ID, voterID, movieID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(apperr.CodeNoVote, "You have not voted for this movie")
		}
		if err != nil {
			return err
		}
		if err := tx.DeleteVote(ctx, vote.ID); err != nil {
			return err
		}
		out, err = result(ctx, tx, sess, voterID, movieID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockVoter writes the voter row first so the rest of the transaction runs
// alone for this voter, then re-reads the session under a share lock: a close
// either commits before the read and is seen here, or waits for this
// transaction and tallies its vote.
func lockVoter(ctx context.Context, tx *store.Store, sessionID, voterID string, now time.Time) (models.Session, error) {
	ok, err := tx.TouchVoter(ctx, voterID, sessionID, now)
	if err != nil {
		return models.Session{}, err
	}
	if !ok {
		return models.Session{}, apperr.Unauthorized("Join this movie night first")
	}
	sess, err := tx.LockSession(ctx, sessionID)
	if err != nil {
		return sess, fmt.Errorf("failed to reload session: %w", err)
	}
	if !sess.IsOpen(now) {
		return sess, apperr.Forbidden(apperr.CodeSessionClosed, "This movie night is closed")
	}
	return sess, nil
}

func result(ctx context.Context, tx *store.Store, sess models.Session, voterID, movieID string) (*voteOutcome, error) {
	used, err := tx.CountVotesByVoter(ctx, sess.ID, voterID)
	if err != nil {
		return nil, err
	}
	total, err := tx.CountVotesOnMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	mine, err := tx.CountVoterVotesOnMovie(ctx, voterID, movieID)
	if err != nil {
		return nil, err
	}
	return &voteOutcome{
		VoteResult: VoteResult{
			MovieID:        movieID,
			VotesUsed:      used,
			VotesRemaining: max(0, sess.VotesPerVoter-used),
			MovieVoteCount: total,
			MyVotesOnMovie: mine,
		},
		sessionID: sess.ID,
	}, nil
}

func (l *Ledger) openSession(ctx context.Context, slug string) (models.Session, error) {
	sess, err := l.store.GetSessionBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return sess, apperr.NotFound(apperr.CodeSessionNotFound, "Session not found")
	}
	if err != nil {
		return sess, fmt.Errorf("failed to load session: %w", err)
	}
	if !sess.IsOpen(l.now()) {
		return sess, apperr.Forbidden(apperr.CodeSessionClosed, "This movie night is closed")
	}
	return sess, nil
}
