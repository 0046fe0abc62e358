// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sessions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/danielhkuo/movienight/ledger"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/store"
)

// MovieView is a nominated movie with its standing.
type MovieView struct {
	models.Movie
	NominatedByName string `json:"nominated_by_name"`
	VoteCount       int    `json:"vote_count"`
	MyVotes         int    `json:"my_votes"`
}

// View is what a voter (or an anonymous visitor) sees of a session.
type View struct {
	Session        models.Session `json:"session"`
	Me             *models.Voter  `json:"me"`
	Movies         []MovieView    `json:"movies"`
	Winner         *MovieView     `json:"winner,omitempty"`
	VotesUsed      int            `json:"votes_used"`
	VotesRemaining int            `json:"votes_remaining"`
	VoterCount     int            `json:"voter_count"`
}

// View assembles the session page. voterID may be empty or belong to another
// session, in which case Me is nil and the per-voter fields are zero.
func (s *Service) View(ctx context.Context, slug, voterID string) (*View, error) {
	sess, err := s.sessionBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	view := &View{Session: sess}
	mine := map[string]int{}
	if voterID != "" {
		v, err := s.store.GetVoterInSession(ctx, voterID, sess.ID)
		switch {
		case err == nil:
			view.Me = &v
			summary, err := s.ledger.Summary(ctx, sess, v.ID)
			if err != nil {
				return nil, err
			}
			view.VotesUsed = summary.VotesUsed
			view.VotesRemaining = summary.VotesRemaining
			mine = summary.ByMovie
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("failed to load voter: %w", err)
		}
	}

	voters, err := s.store.ListVoters(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	view.VoterCount = len(voters)

	view.Movies, err = s.movieViews(ctx, sess.ID, voters, mine)
	if err != nil {
		return nil, err
	}
	if sess.WinnerMovieID != nil {
		for i := range view.Movies {
			if view.Movies[i].ID == *sess.WinnerMovieID {
				w := view.Movies[i]
				view.Winner = &w
				break
			}
		}
	}
	return view, nil
}

// movieViews lists the session's movies by vote count, highest first, then
// by nomination time.
func (s *Service) movieViews(ctx context.Context, sessionID string, voters []models.Voter, mine map[string]int) ([]MovieView, error) {
	movies, err := s.store.ListMovies(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.VoteCountsByMovie(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(voters))
	for _, v := range voters {
		names[v.ID] = v.Name()
	}

	out := make([]MovieView, 0, len(movies))
	for _, m := range movies {
		out = append(out, MovieView{
			Movie:           m,
			NominatedByName: names[m.NominatedBy],
			VoteCount:       counts[m.ID],
			MyVotes:         mine[m.ID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].VoteCount > out[j].VoteCount
	})
	return out, nil
}

// Detail is the admin view of a session.
type Detail struct {
	Session models.Session      `json:"session"`
	Voters  []models.Voter      `json:"voters"`
	Codes   []models.InviteCode `json:"codes"`
	Movies  []MovieView         `json:"movies"`
	Tally   []models.TallyEntry `json:"tally"`
}

func (s *Service) Detail(ctx context.Context, id string) (*Detail, error) {
	sess, err := getSession(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	voters, err := s.store.ListVoters(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	codes, err := s.store.ListCodes(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	movies, err := s.movieViews(ctx, sess.ID, voters, nil)
	if err != nil {
		return nil, err
	}
	tally, err := s.ledger.Tally(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	if voters == nil {
		voters = []models.Voter{}
	}
	if codes == nil {
		codes = []models.InviteCode{}
	}
	return &Detail{Session: sess, Voters: voters, Codes: codes, Movies: movies, Tally: tally}, nil
}

// List returns every session with its voter, movie and vote counts.
func (s *Service) List(ctx context.Context) ([]models.SessionSummary, error) {
	out, err := s.store.ListSessionSummaries(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.SessionSummary{}
	}
	return out, nil
}

// Standings is the public tally of a session.
type Standings struct {
	SessionID     string              `json:"session_id"`
	Status        string              `json:"status"`
	Tally         []models.TallyEntry `json:"tally"`
	WinnerMovieID *string             `json:"winner_movie_id"`
}

// Standings returns the tally of the session. The winner is the recorded
// one once the session is closed, else the current leader.
func (s *Service) Standings(ctx context.Context, slug string) (*Standings, error) {
	sess, err := s.sessionBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	tally, err := s.ledger.Tally(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	winner := ledger.Winner(tally)
	if sess.Status == models.StatusClosed {
		winner = sess.WinnerMovieID
	}
	return &Standings{SessionID: sess.ID, Status: sess.Status, Tally: tally, WinnerMovieID: winner}, nil
}
