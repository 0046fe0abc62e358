// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sessions

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/movienight/apperr"
	"github.com/danielhkuo/movienight/events"
	"github.com/danielhkuo/movienight/ledger"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/store"
	"github.com/danielhkuo/movienight/testutil"
)

func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func newTestService(t *testing.T) (*Service, *store.Store, *events.Recorder) {
	t.Helper()
	st := testutil.SetupTestStore(t)
	rec := &events.Recorder{}
	return NewService(st, ledger.New(st, nil, nil), rec, nil), st, rec
}

func TestCreate(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Create(ctx, models.CreateSessionRequest{Slug: " Friday-Night ", Name: "  Friday  "})
	require.NoError(t, err)
	assert.Equal(t, "friday-night", res.Session.Slug)
	assert.Equal(t, "Friday", res.Session.Name)
	assert.Equal(t, models.StatusOpen, res.Session.Status)
	assert.Equal(t, models.DefaultVotesPerVoter, res.Session.VotesPerVoter)
	assert.Equal(t, models.DefaultGuestInviteSlots, res.Session.GuestInviteSlots)
	assert.True(t, res.Session.AllowExternalRequests)
	assert.False(t, res.Session.VoteStacking)
	assert.Nil(t, res.Session.MaxInviteDepth)
	require.Len(t, res.Codes, 1)
	assert.Nil(t, res.Codes[0].CreatedByVoterID)
	assert.Equal(t, 1, res.Codes[0].MaxUses)

	stored, err := st.GetSessionBySlug(ctx, "friday-night")
	require.NoError(t, err)
	assert.Equal(t, res.Session.ID, stored.ID)
	assert.Equal(t, 1, testutil.CountRows(t, st.DB(), "invite_codes", "session_id = $1", stored.ID))

	_, err = svc.Create(ctx, models.CreateSessionRequest{Slug: "friday-night", Name: "Again"})
	assert.Equal(t, apperr.CodeSlugTaken, apperr.CodeOf(err))
}

func TestCreate_Options(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	expiry := time.Now().Add(48 * time.Hour)

	res, err := svc.Create(ctx, models.CreateSessionRequest{
		Slug:                  "custom",
		Name:                  "Custom",
		VotesPerVoter:         intPtr(0),
		MaxInviteDepth:        intPtr(2),
		GuestInviteSlots:      intPtr(3),
		AllowExternalRequests: boolPtr(false),
		VoteStacking:          boolPtr(true),
		ExpiresAt:             &expiry,
		RootInviteCodes:       intPtr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Session.VotesPerVoter)
	require.NotNil(t, res.Session.MaxInviteDepth)
	assert.Equal(t, 2, *res.Session.MaxInviteDepth)
	assert.Equal(t, 3, res.Session.GuestInviteSlots)
	assert.False(t, res.Session.AllowExternalRequests)
	assert.True(t, res.Session.VoteStacking)
	require.NotNil(t, res.Session.ExpiresAt)
	assert.Len(t, res.Codes, 4)
}

func TestCreate_RootCodeClamp(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name string
		n    int
		want int
	}{
		{"too many", 50, models.MaxCodesPerBatch},
		{"none", 0, 0},
		{"negative", -2, 0},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Create(context.Background(), models.CreateSessionRequest{
				Slug:            "clamp-" + string(rune('a'+i)),
				Name:            "Clamp",
				RootInviteCodes: intPtr(tt.n),
			})
			require.NoError(t, err)
			assert.Len(t, res.Codes, tt.want)
			assert.NotNil(t, res.Codes)
		})
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name string
		req  models.CreateSessionRequest
	}{
		{"empty slug", models.CreateSessionRequest{Name: "x"}},
		{"bad characters", models.CreateSessionRequest{Slug: "movie night!", Name: "x"}},
		{"slug too long", models.CreateSessionRequest{Slug: strings.Repeat("a", 65), Name: "x"}},
		{"empty name", models.CreateSessionRequest{Slug: "ok", Name: "   "}},
		{"name too long", models.CreateSessionRequest{Slug: "ok", Name: strings.Repeat("n", 101)}},
		{"negative votes", models.CreateSessionRequest{Slug: "ok", Name: "x", VotesPerVoter: intPtr(-1)}},
		{"negative slots", models.CreateSessionRequest{Slug: "ok", Name: "x", GuestInviteSlots: intPtr(-1)}},
		{"negative depth", models.CreateSessionRequest{Slug: "ok", Name: "x", MaxInviteDepth: intPtr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
		})
	}
}

func TestUpdate(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "upd", testutil.WithMaxDepth(2))

	var patch models.UpdateSessionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Renamed","votes_per_voter":3,"max_invite_depth":null,"vote_stacking":true}`), &patch))
	updated, err := svc.Update(ctx, sess.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 3, updated.VotesPerVoter)
	assert.Nil(t, updated.MaxInviteDepth)
	assert.True(t, updated.VoteStacking)

	stored, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
	assert.Nil(t, stored.MaxInviteDepth)

	_, err = svc.Update(ctx, sess.ID, models.UpdateSessionRequest{})
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, err = svc.Update(ctx, sess.ID, models.UpdateSessionRequest{VotesPerVoter: intPtr(-1)})
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, err = svc.Update(ctx, sess.ID, models.UpdateSessionRequest{Status: strPtr("paused")})
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, err = svc.Update(ctx, "missing", models.UpdateSessionRequest{Name: strPtr("x")})
	assert.Equal(t, apperr.CodeSessionNotFound, apperr.CodeOf(err))
}

func TestUpdate_StatusChanges(t *testing.T) {
	svc, st, rec := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "status")
	voter := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	movie := testutil.CreateTestMovie(t, st, sess.ID, voter.ID, "Heat", time.Now())
	testutil.CreateTestVotes(t, st, sess.ID, voter.ID, movie.ID, 1)

	closed, err := svc.Update(ctx, sess.ID, models.UpdateSessionRequest{Status: strPtr(models.StatusClosed)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, closed.Status)
	require.NotNil(t, closed.WinnerMovieID)
	assert.Equal(t, movie.ID, *closed.WinnerMovieID)
	assert.Equal(t, []string{events.SubjectSessionClosed}, rec.Subjects())

	reopened, err := svc.Update(ctx, sess.ID, models.UpdateSessionRequest{Status: strPtr(models.StatusOpen)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, reopened.Status)
	assert.Nil(t, reopened.WinnerMovieID)

	stored, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.WinnerMovieID)
}

func TestClose(t *testing.T) {
	svc, st, rec := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "close")
	a := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	b := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	base := time.Now().Add(-time.Hour)
	first := testutil.CreateTestMovie(t, st, sess.ID, a.ID, "First", base)
	second := testutil.CreateTestMovie(t, st, sess.ID, a.ID, "Second", base.Add(time.Minute))
	testutil.CreateTestVotes(t, st, sess.ID, a.ID, second.ID, 1)
	testutil.CreateTestVotes(t, st, sess.ID, b.ID, second.ID, 1)
	testutil.CreateTestVotes(t, st, sess.ID, b.ID, first.ID, 1)

	closed, err := svc.Close(ctx, sess.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, closed.Status)
	require.NotNil(t, closed.WinnerMovieID)
	assert.Equal(t, second.ID, *closed.WinnerMovieID)

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	var payload events.SessionClosed
	require.NoError(t, json.Unmarshal(msgs[0].Data, &payload))
	assert.Equal(t, sess.ID, payload.SessionID)
	assert.False(t, payload.Automatic)

	// Closing again with an explicit pick replaces the winner.
	closed, err = svc.Close(ctx, sess.ID, &first.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.WinnerMovieID)
	assert.Equal(t, first.ID, *closed.WinnerMovieID)

	stored, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, *stored.WinnerMovieID)
}

// The test database has one connection, so transactions run one at a time;
// on PostgreSQL the same ordering comes from store.LockSession.
func TestClose_WaitsForOpenVoteTransaction(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "in-flight")
	a := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	b := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	base := time.Now().Add(-time.Hour)
	first := testutil.CreateTestMovie(t, st, sess.ID, a.ID, "First", base)
	second := testutil.CreateTestMovie(t, st, sess.ID, a.ID, "Second", base.Add(time.Minute))
	testutil.CreateTestVotes(t, st, sess.ID, a.ID, first.ID, 1)

	type closeResult struct {
		sess models.Session
		err  error
	}
	done := make(chan closeResult, 1)

	err := st.InTx(ctx, func(tx *store.Store) error {
		locked, err := tx.LockSession(ctx, sess.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusOpen, locked.Status)

		go func() {
			closed, err := svc.Close(ctx, sess.ID, nil)
			done <- closeResult{closed, err}
		}()
		select {
		case res := <-done:
			t.Fatalf("close finished while a vote transaction was open: %+v", res)
		case <-time.After(100 * time.Millisecond):
		}

		for i := 0; i < 2; i++ {
			if err := tx.CreateVote(ctx, models.Vote{
				ID:        uuid.NewString(),
				SessionID: sess.ID,
				VoterID:   b.ID,
				MovieID:   second.ID,
				CreatedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, models.StatusClosed, res.sess.Status)
	require.NotNil(t, res.sess.WinnerMovieID)
	assert.Equal(t, second.ID, *res.sess.WinnerMovieID, "votes committed by the open transaction must be tallied")
}

func TestClose_ConcurrentCasts(t *testing.T) {
	svc, st, _ := newTestService(t)
	l := ledger.New(st, nil, nil)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "last-call", testutil.WithVotesPerVoter(1))
	seed := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	base := time.Now().Add(-time.Hour)
	first := testutil.CreateTestMovie(t, st, sess.ID, seed.ID, "First", base)
	second := testutil.CreateTestMovie(t, st, sess.ID, seed.ID, "Second", base.Add(time.Minute))
	testutil.CreateTestVotes(t, st, sess.ID, seed.ID, first.ID, 1)

	const numVoters = 8
	voters := make([]models.Voter, numVoters)
	for i := range voters {
		voters[i] = testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	}

	var successCount, closedCount atomic.Int32
	var closed models.Session
	var wg sync.WaitGroup
	for i, v := range voters {
		wg.Add(1)
		go func(voterID string) {
			defer wg.Done()
			_, err := l.CastVote(ctx, sess.Slug, voterID, second.ID)
			switch {
			case err == nil:
				successCount.Add(1)
			case apperr.CodeOf(err) == apperr.CodeSessionClosed:
				closedCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(v.ID)

		if i == numVoters/2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				var err error
				closed, err = svc.Close(ctx, sess.ID, nil)
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	assert.Equal(t, int32(numVoters), successCount.Load()+closedCount.Load())
	assert.Equal(t, int(successCount.Load())+1, testutil.CountRows(t, st.DB(), "votes", "session_id = $1", sess.ID))

	// Every vote that committed was counted by the close.
	tally, err := st.Tally(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Winner(tally), closed.WinnerMovieID)

	_, err = l.CastVote(ctx, sess.Slug, seed.ID, second.ID)
	assert.Equal(t, apperr.CodeSessionClosed, apperr.CodeOf(err))
}

func TestClose_NoVotes(t *testing.T) {
	svc, st, _ := newTestService(t)
	sess := testutil.CreateTestSession(t, st, "quiet")
	voter := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	testutil.CreateTestMovie(t, st, sess.ID, voter.ID, "Unloved", time.Now())

	closed, err := svc.Close(context.Background(), sess.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, closed.Status)
	assert.Nil(t, closed.WinnerMovieID)
}

func TestClose_ForeignWinner(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "mine")
	other := testutil.CreateTestSession(t, st, "theirs")
	voter := testutil.CreateTestVoter(t, st, other.ID, nil, 1)
	foreign := testutil.CreateTestMovie(t, st, other.ID, voter.ID, "Elsewhere", time.Now())

	_, err := svc.Close(ctx, sess.ID, &foreign.ID)
	assert.Equal(t, apperr.CodeMovieNotFound, apperr.CodeOf(err))

	stored, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, stored.Status)

	_, err = svc.Close(ctx, "missing", nil)
	assert.Equal(t, apperr.CodeSessionNotFound, apperr.CodeOf(err))
}

func TestCloseExpired(t *testing.T) {
	svc, st, rec := newTestService(t)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Minute)
	expired := testutil.CreateTestSession(t, st, "expired", testutil.WithExpiry(past))
	live := testutil.CreateTestSession(t, st, "live", testutil.WithExpiry(time.Now().UTC().Add(time.Hour)))
	testutil.CreateTestSession(t, st, "done", testutil.WithExpiry(past), testutil.WithStatus(models.StatusClosed))

	voter := testutil.CreateTestVoter(t, st, expired.ID, nil, 1)
	movie := testutil.CreateTestMovie(t, st, expired.ID, voter.ID, "Heat", time.Now())
	testutil.CreateTestVotes(t, st, expired.ID, voter.ID, movie.ID, 1)

	n, err := svc.CloseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := st.GetSession(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, stored.Status)
	require.NotNil(t, stored.WinnerMovieID)
	assert.Equal(t, movie.ID, *stored.WinnerMovieID)

	stillOpen, err := st.GetSession(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, stillOpen.Status)

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	var payload events.SessionClosed
	require.NoError(t, json.Unmarshal(msgs[0].Data, &payload))
	assert.True(t, payload.Automatic)

	n, err = svc.CloseExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweeper(t *testing.T) {
	svc, st, _ := newTestService(t)

	_, err := NewSweeper(svc, "not a schedule", nil)
	assert.Error(t, err)

	sweeper, err := NewSweeper(svc, "", nil)
	require.NoError(t, err)

	sess := testutil.CreateTestSession(t, st, "sweep", testutil.WithExpiry(time.Now().UTC().Add(-time.Second)))
	sweeper.Run()

	stored, err := st.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, stored.Status)
}

func TestDelete(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "gone")
	voter := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	testutil.CreateTestCode(t, st, sess.ID, &voter, 1)
	movie := testutil.CreateTestMovie(t, st, sess.ID, voter.ID, "Heat", time.Now())
	testutil.CreateTestVotes(t, st, sess.ID, voter.ID, movie.ID, 1)
	keep := testutil.CreateTestSession(t, st, "kept")

	require.NoError(t, svc.Delete(ctx, sess.ID))
	for _, table := range []string{"votes", "movies", "invite_codes", "voters"} {
		assert.Zero(t, testutil.CountRows(t, st.DB(), table, "session_id = $1", sess.ID), table)
	}
	assert.Zero(t, testutil.CountRows(t, st.DB(), "sessions", "id = $1", sess.ID))
	assert.Equal(t, 1, testutil.CountRows(t, st.DB(), "sessions", "id = $1", keep.ID))

	err := svc.Delete(ctx, sess.ID)
	assert.Equal(t, apperr.CodeSessionNotFound, apperr.CodeOf(err))
}

func TestView(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "view", testutil.WithVotesPerVoter(3), testutil.WithStacking())
	me := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	other := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	require.NoError(t, st.SetVoterDisplayName(ctx, other.ID, strPtr("Sam")))

	base := time.Now().Add(-time.Hour)
	early := testutil.CreateTestMovie(t, st, sess.ID, other.ID, "Early", base)
	late := testutil.CreateTestMovie(t, st, sess.ID, me.ID, "Late", base.Add(time.Minute))
	popular := testutil.CreateTestMovie(t, st, sess.ID, other.ID, "Popular", base.Add(2*time.Minute))
	testutil.CreateTestVotes(t, st, sess.ID, me.ID, popular.ID, 2)
	testutil.CreateTestVotes(t, st, sess.ID, other.ID, popular.ID, 1)

	view, err := svc.View(ctx, "view", me.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Me)
	assert.Equal(t, me.ID, view.Me.ID)
	assert.Equal(t, 2, view.VotesUsed)
	assert.Equal(t, 1, view.VotesRemaining)
	assert.Equal(t, 2, view.VoterCount)
	assert.Nil(t, view.Winner)

	require.Len(t, view.Movies, 3)
	assert.Equal(t, popular.ID, view.Movies[0].ID)
	assert.Equal(t, 3, view.Movies[0].VoteCount)
	assert.Equal(t, 2, view.Movies[0].MyVotes)
	assert.Equal(t, "Sam", view.Movies[0].NominatedByName)
	assert.Equal(t, early.ID, view.Movies[1].ID)
	assert.Equal(t, late.ID, view.Movies[2].ID)
	assert.Zero(t, view.Movies[2].VoteCount)

	anon, err := svc.View(ctx, "view", "")
	require.NoError(t, err)
	assert.Nil(t, anon.Me)
	assert.Zero(t, anon.VotesUsed)
	assert.Zero(t, anon.Movies[0].MyVotes)

	_, err = svc.Close(ctx, sess.ID, nil)
	require.NoError(t, err)
	closed, err := svc.View(ctx, "view", me.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.Winner)
	assert.Equal(t, popular.ID, closed.Winner.ID)

	_, err = svc.View(ctx, "nope", "")
	assert.Equal(t, apperr.CodeSessionNotFound, apperr.CodeOf(err))
}

func TestUpdateDisplayName(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "names")
	voter := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	other := testutil.CreateTestSession(t, st, "other")
	outsider := testutil.CreateTestVoter(t, st, other.ID, nil, 1)

	v, err := svc.UpdateDisplayName(ctx, "names", voter.ID, "  Dana  ")
	require.NoError(t, err)
	require.NotNil(t, v.DisplayName)
	assert.Equal(t, "Dana", *v.DisplayName)

	v, err = svc.UpdateDisplayName(ctx, "names", voter.ID, strings.Repeat("x", 80))
	require.NoError(t, err)
	assert.Len(t, *v.DisplayName, models.MaxDisplayNameLength)

	v, err = svc.UpdateDisplayName(ctx, "names", voter.ID, "   ")
	require.NoError(t, err)
	assert.Nil(t, v.DisplayName)
	stored, err := st.GetVoter(ctx, voter.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.DisplayName)

	_, err = svc.UpdateDisplayName(ctx, "names", outsider.ID, "Eve")
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
}

func TestListAndDetail(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	sess := testutil.CreateTestSession(t, st, "listed")
	voter := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	testutil.CreateTestCode(t, st, sess.ID, nil, 1)
	movie := testutil.CreateTestMovie(t, st, sess.ID, voter.ID, "Heat", time.Now())
	testutil.CreateTestVotes(t, st, sess.ID, voter.ID, movie.ID, 2)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].VoterCount)
	assert.Equal(t, 1, list[0].MovieCount)
	assert.Equal(t, 2, list[0].VoteCount)

	detail, err := svc.Detail(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Voters, 1)
	assert.Len(t, detail.Codes, 1)
	require.Len(t, detail.Movies, 1)
	assert.Equal(t, 2, detail.Movies[0].VoteCount)
	require.Len(t, detail.Tally, 1)
	assert.Equal(t, 2, detail.Tally[0].VoteCount)

	_, err = svc.Detail(ctx, "missing")
	assert.Equal(t, apperr.CodeSessionNotFound, apperr.CodeOf(err))
}

func TestStandings(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "standings")
	voter := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	base := time.Now().Add(-time.Hour)
	a := testutil.CreateTestMovie(t, st, sess.ID, voter.ID, "A", base)
	b := testutil.CreateTestMovie(t, st, sess.ID, voter.ID, "B", base.Add(time.Minute))
	testutil.CreateTestVotes(t, st, sess.ID, voter.ID, b.ID, 1)

	res, err := svc.Standings(ctx, "standings")
	require.NoError(t, err)
	require.Len(t, res.Tally, 2)
	assert.Equal(t, b.ID, res.Tally[0].MovieID)
	require.NotNil(t, res.WinnerMovieID)
	assert.Equal(t, b.ID, *res.WinnerMovieID)

	_, err = svc.Close(ctx, sess.ID, &a.ID)
	require.NoError(t, err)
	res, err = svc.Standings(ctx, "standings")
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, res.Status)
	assert.Equal(t, a.ID, *res.WinnerMovieID)
}
