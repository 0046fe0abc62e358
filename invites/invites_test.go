// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package invites

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/movienight/apperr"
	"github.com/danielhkuo/movienight/events"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/store"
	"github.com/danielhkuo/movienight/testutil"
)

func newTestService(t *testing.T) (*Service, *store.Store, *events.Recorder) {
	t.Helper()
	st := testutil.SetupTestStore(t)
	rec := &events.Recorder{}
	return NewService(st, testutil.GetTestTokens(), rec, nil), st, rec
}

func claim(t *testing.T, svc *Service, code string) *ClaimResult {
	t.Helper()
	res, err := svc.Claim(context.Background(), ClaimRequest{Code: code})
	require.NoError(t, err)
	return res
}

func TestClaim_RootCode(t *testing.T) {
	svc, st, rec := newTestService(t)
	sess := testutil.CreateTestSession(t, st, "friday", testutil.WithGuestSlots(3))
	code := testutil.CreateTestCode(t, st, sess.ID, nil, 1)

	res, err := svc.Claim(context.Background(), ClaimRequest{Code: " " + code.Code + " ", Fingerprint: "fp-1"})
	require.NoError(t, err)

	assert.False(t, res.AlreadyJoined)
	assert.Equal(t, sess.ID, res.Voter.SessionID)
	assert.Equal(t, 0, res.Voter.InviteDepth)
	assert.Nil(t, res.Voter.InvitedBy)
	assert.Equal(t, 3, res.Voter.InviteSlotsRemaining)
	require.NotNil(t, res.Voter.JoinedViaCode)
	assert.Equal(t, code.Code, *res.Voter.JoinedViaCode)

	claims, err := testutil.GetTestTokens().Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Voter.ID, claims.VoterID())
	assert.Equal(t, sess.ID, claims.SessionID)

	got, err := st.GetCode(context.Background(), code.Code)
	require.NoError(t, err)
	assert.Equal(t, models.CodeUsed, got.Status)
	require.NotNil(t, got.UsedByVoterID)
	assert.Equal(t, res.Voter.ID, *got.UsedByVoterID)

	assert.Equal(t, []string{events.SubjectInviteClaimed}, rec.Subjects())
}

func TestClaim_Rejections(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	open := testutil.CreateTestSession(t, st, "open")
	closed := testutil.CreateTestSession(t, st, "closed", testutil.WithStatus(models.StatusClosed))
	expired := testutil.CreateTestSession(t, st, "expired", testutil.WithExpiry(time.Now().Add(-time.Minute)))

	revoked := testutil.CreateTestCode(t, st, open.ID, nil, 1)
	_, err := st.RevokeCode(ctx, revoked.Code)
	require.NoError(t, err)

	spent := testutil.CreateTestCode(t, st, open.ID, nil, 1)
	claim(t, svc, spent.Code)

	tests := []struct {
		name string
		code string
		want apperr.Code
	}{
		{"malformed", "nope", apperr.CodeCodeNotFound},
		{"unknown", "ABCDEFGHJK", apperr.CodeCodeNotFound},
		{"closed session", testutil.CreateTestCode(t, st, closed.ID, nil, 1).Code, apperr.CodeSessionClosed},
		{"expired session", testutil.CreateTestCode(t, st, expired.ID, nil, 1).Code, apperr.CodeSessionClosed},
		{"revoked", revoked.Code, apperr.CodeRevoked},
		{"used", spent.Code, apperr.CodeFullyClaimed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Claim(ctx, ClaimRequest{Code: tt.code})
			require.Error(t, err)
			assert.Equal(t, tt.want, apperr.CodeOf(err))
		})
	}

	t.Run("closed carries session details", func(t *testing.T) {
		_, err := svc.Claim(ctx, ClaimRequest{Code: testutil.CreateTestCode(t, st, closed.ID, nil, 1).Code})
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, closed.Slug, e.Details["session_slug"])
		assert.Equal(t, closed.Name, e.Details["session_name"])
	})
}

func TestClaim_AlreadyJoined(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "again")

	first := claim(t, svc, testutil.CreateTestCode(t, st, sess.ID, nil, 1).Code)

	// A fresh code presented by someone who already joined is left unused.
	fresh := testutil.CreateTestCode(t, st, sess.ID, nil, 1)
	res, err := svc.Claim(ctx, ClaimRequest{Code: fresh.Code, CurrentVoterID: first.Voter.ID})
	require.NoError(t, err)
	assert.True(t, res.AlreadyJoined)
	assert.Equal(t, first.Voter.ID, res.Voter.ID)
	assert.NotEmpty(t, res.Token)

	got, err := st.GetCode(ctx, fresh.Code)
	require.NoError(t, err)
	assert.Equal(t, models.CodeUnused, got.Status)
	assert.Equal(t, 0, got.UseCount)

	// Re-visiting one's own spent link is safe too.
	res, err = svc.Claim(ctx, ClaimRequest{Code: *first.Voter.JoinedViaCode, CurrentVoterID: first.Voter.ID})
	require.NoError(t, err)
	assert.True(t, res.AlreadyJoined)

	// An identity from another session does not count.
	other := testutil.CreateTestSession(t, st, "other")
	res, err = svc.Claim(ctx, ClaimRequest{Code: testutil.CreateTestCode(t, st, other.ID, nil, 1).Code, CurrentVoterID: first.Voter.ID})
	require.NoError(t, err)
	assert.False(t, res.AlreadyJoined)
	assert.NotEqual(t, first.Voter.ID, res.Voter.ID)
}

func TestClaim_DepthLimit(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "depth", testutil.WithMaxDepth(1), testutil.WithGuestSlots(2))

	a := claim(t, svc, testutil.CreateTestCode(t, st, sess.ID, nil, 1).Code)
	assert.Equal(t, 0, a.Voter.InviteDepth)

	codeA, err := svc.MintVoterCode(ctx, sess.Slug, a.Voter.ID, "for B")
	require.NoError(t, err)
	b := claim(t, svc, codeA.Code)
	assert.Equal(t, 1, b.Voter.InviteDepth)
	require.NotNil(t, b.Voter.InvitedBy)
	assert.Equal(t, a.Voter.ID, *b.Voter.InvitedBy)

	codeB, err := svc.MintVoterCode(ctx, sess.Slug, b.Voter.ID, "for C")
	require.NoError(t, err)
	_, err = svc.Claim(ctx, ClaimRequest{Code: codeB.Code})
	assert.Equal(t, apperr.CodeDepthExceeded, apperr.CodeOf(err))

	got, err := st.GetCode(ctx, codeB.Code)
	require.NoError(t, err)
	assert.Equal(t, models.CodeUnused, got.Status)
	assert.Equal(t, 0, got.UseCount)

	voters, err := st.ListVoters(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, voters, 2)
}

func TestClaim_InviterRemoved(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "gone")
	inviter := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)
	code := testutil.CreateTestCode(t, st, sess.ID, &inviter, 1)
	require.NoError(t, st.DeleteVoter(ctx, inviter.ID))

	_, err := svc.Claim(ctx, ClaimRequest{Code: code.Code})
	assert.Equal(t, apperr.CodeRevoked, apperr.CodeOf(err))
}

func TestClaim_ConcurrentSingleUse(t *testing.T) {
	svc, st, _ := newTestService(t)
	sess := testutil.CreateTestSession(t, st, "race")
	code := testutil.CreateTestCode(t, st, sess.ID, nil, 1)

	const attempts = 10
	var successCount, fullCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Claim(context.Background(), ClaimRequest{Code: code.Code})
			switch apperr.CodeOf(err) {
			case apperr.CodeFullyClaimed:
				fullCount.Add(1)
			default:
				if err == nil {
					successCount.Add(1)
				} else {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load())
	assert.Equal(t, int32(attempts-1), fullCount.Load())

	voters, err := st.ListVoters(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Len(t, voters, 1)
}

func TestClaim_ConcurrentMultiUse(t *testing.T) {
	svc, st, _ := newTestService(t)
	sess := testutil.CreateTestSession(t, st, "party")
	code := testutil.CreateTestCode(t, st, sess.ID, nil, 3)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Claim(context.Background(), ClaimRequest{Code: code.Code}); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), successCount.Load())
	got, err := st.GetCode(context.Background(), code.Code)
	require.NoError(t, err)
	assert.Equal(t, 3, got.UseCount)
	assert.Equal(t, models.CodeUsed, got.Status)
}

func TestGenerateRootCodes(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "roots")

	label := "  table two  "
	codes, err := svc.GenerateRootCodes(ctx, sess.ID, 50, &label, 0)
	require.NoError(t, err)
	assert.Len(t, codes, models.MaxCodesPerBatch)

	seen := map[string]bool{}
	for _, c := range codes {
		assert.Nil(t, c.CreatedByVoterID)
		assert.Equal(t, 1, c.MaxUses)
		require.NotNil(t, c.Label)
		assert.Equal(t, "table two", *c.Label)
		assert.False(t, seen[c.Code])
		seen[c.Code] = true
	}

	codes, err = svc.GenerateRootCodes(ctx, sess.ID, 0, nil, 4)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, 4, codes[0].MaxUses)

	_, err = svc.GenerateRootCodes(ctx, "missing", 1, nil, 1)
	assert.Equal(t, apperr.CodeSessionNotFound, apperr.CodeOf(err))
}

func TestMintVoterCode(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "mint")
	voter := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)

	_, err := svc.MintVoterCode(ctx, sess.Slug, voter.ID, "   ")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	code, err := svc.MintVoterCode(ctx, sess.Slug, voter.ID, "for Sam")
	require.NoError(t, err)
	assert.Equal(t, voter.ID, *code.CreatedByVoterID)
	assert.Equal(t, 1, code.MaxUses)
	assert.Equal(t, "for Sam", *code.Label)

	_, err = svc.MintVoterCode(ctx, sess.Slug, voter.ID, "one more")
	assert.Equal(t, apperr.CodeSlotsExhausted, apperr.CodeOf(err))

	// Slot budgets count created codes, so claiming one does not free a slot.
	claim(t, svc, code.Code)
	_, err = svc.MintVoterCode(ctx, sess.Slug, voter.ID, "one more")
	assert.Equal(t, apperr.CodeSlotsExhausted, apperr.CodeOf(err))

	other := testutil.CreateTestSession(t, st, "elsewhere")
	_, err = svc.MintVoterCode(ctx, other.Slug, voter.ID, "sneaky")
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	_, err = svc.MintVoterCode(ctx, "missing", voter.ID, "x")
	assert.Equal(t, apperr.CodeSessionNotFound, apperr.CodeOf(err))
}

func TestMintVoterCode_Concurrent(t *testing.T) {
	svc, st, _ := newTestService(t)
	sess := testutil.CreateTestSession(t, st, "mint-race")
	voter := testutil.CreateTestVoter(t, st, sess.ID, nil, 2)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.MintVoterCode(context.Background(), sess.Slug, voter.ID, "friend"); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), successCount.Load())
	n, err := st.CountCodesByCreator(context.Background(), voter.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestListVoterCodesAndLabel(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "labels")
	owner := testutil.CreateTestVoter(t, st, sess.ID, nil, 3)
	stranger := testutil.CreateTestVoter(t, st, sess.ID, nil, 3)

	code, err := svc.MintVoterCode(ctx, sess.Slug, owner.ID, "for Ana")
	require.NoError(t, err)

	list, err := svc.ListVoterCodes(ctx, sess.Slug, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list.Codes, 1)
	assert.Equal(t, 3, list.SlotBudget)
	assert.Equal(t, 1, list.SlotsUsed)
	assert.Equal(t, 2, list.SlotsRemaining)

	updated, err := svc.SetCodeLabel(ctx, sess.Slug, owner.ID, code.Code, "for Ana and Bo")
	require.NoError(t, err)
	assert.Equal(t, "for Ana and Bo", *updated.Label)

	_, err = svc.SetCodeLabel(ctx, sess.Slug, stranger.ID, code.Code, "mine now")
	assert.Equal(t, apperr.CodeNotOwner, apperr.CodeOf(err))

	_, err = svc.SetCodeLabel(ctx, sess.Slug, owner.ID, "ABCDEFGHJK", "x")
	assert.Equal(t, apperr.CodeCodeNotFound, apperr.CodeOf(err))
}

func TestRevokeAndReopen(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "lifecycle")

	t.Run("revoke unused then no-op", func(t *testing.T) {
		code := testutil.CreateTestCode(t, st, sess.ID, nil, 1)
		c, err := svc.RevokeCode(ctx, code.Code)
		require.NoError(t, err)
		assert.Equal(t, models.CodeRevoked, c.Status)

		c, err = svc.RevokeCode(ctx, code.Code)
		require.NoError(t, err)
		assert.Equal(t, models.CodeRevoked, c.Status)
	})

	t.Run("revoke used fails", func(t *testing.T) {
		code := testutil.CreateTestCode(t, st, sess.ID, nil, 1)
		claim(t, svc, code.Code)
		_, err := svc.RevokeCode(ctx, code.Code)
		assert.Equal(t, apperr.CodeAlreadyUsed, apperr.CodeOf(err))
	})

	t.Run("revoke missing", func(t *testing.T) {
		_, err := svc.RevokeCode(ctx, "ABCDEFGHJK")
		assert.Equal(t, apperr.CodeCodeNotFound, apperr.CodeOf(err))
	})

	t.Run("reopen used raises max uses", func(t *testing.T) {
		code := testutil.CreateTestCode(t, st, sess.ID, nil, 1)
		claim(t, svc, code.Code)

		c, err := svc.ReopenCode(ctx, code.Code)
		require.NoError(t, err)
		assert.Equal(t, models.CodeUnused, c.Status)
		assert.Equal(t, 2, c.MaxUses)

		claim(t, svc, code.Code)
		got, err := st.GetCode(ctx, code.Code)
		require.NoError(t, err)
		assert.Equal(t, 2, got.UseCount)
		assert.Equal(t, models.CodeUsed, got.Status)
	})

	t.Run("reopen revoked", func(t *testing.T) {
		code := testutil.CreateTestCode(t, st, sess.ID, nil, 1)
		_, err := svc.RevokeCode(ctx, code.Code)
		require.NoError(t, err)

		c, err := svc.ReopenCode(ctx, code.Code)
		require.NoError(t, err)
		assert.Equal(t, models.CodeUnused, c.Status)
		assert.Equal(t, 1, c.MaxUses)
		claim(t, svc, code.Code)
	})
}

func TestDeleteCode(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	conn := st.DB()
	sess := testutil.CreateTestSession(t, st, "delete")
	code := testutil.CreateTestCode(t, st, sess.ID, nil, 2)

	a := claim(t, svc, code.Code)
	b := claim(t, svc, code.Code)
	keep := claim(t, svc, testutil.CreateTestCode(t, st, sess.ID, nil, 1).Code)

	movie := testutil.CreateTestMovie(t, st, sess.ID, keep.Voter.ID, "Heat", time.Now())
	testutil.CreateTestVotes(t, st, sess.ID, a.Voter.ID, movie.ID, 2)
	testutil.CreateTestVotes(t, st, sess.ID, keep.Voter.ID, movie.ID, 1)

	require.NoError(t, svc.DeleteCode(ctx, code.Code))

	assert.Zero(t, testutil.CountRows(t, conn, "voters", "id IN ($1, $2)", a.Voter.ID, b.Voter.ID))
	assert.Equal(t, 1, testutil.CountRows(t, conn, "votes", "session_id = $1", sess.ID))
	assert.Zero(t, testutil.CountRows(t, conn, "invite_codes", "code = $1", code.Code))

	err := svc.DeleteCode(ctx, code.Code)
	assert.Equal(t, apperr.CodeCodeNotFound, apperr.CodeOf(err))
}

func TestAdjustSlotsAndRemoveVoter(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	conn := st.DB()
	sess := testutil.CreateTestSession(t, st, "admin")
	voter := testutil.CreateTestVoter(t, st, sess.ID, nil, 1)

	v, err := svc.AdjustSlots(ctx, voter.ID, -4)
	require.NoError(t, err)
	assert.Equal(t, 0, v.InviteSlotsRemaining)

	v, err = svc.AdjustSlots(ctx, voter.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, v.InviteSlotsRemaining)

	_, err = svc.AdjustSlots(ctx, "missing", 1)
	assert.Equal(t, apperr.CodeVoterNotFound, apperr.CodeOf(err))

	code, err := svc.MintVoterCode(ctx, sess.Slug, voter.ID, "pal")
	require.NoError(t, err)
	movie := testutil.CreateTestMovie(t, st, sess.ID, voter.ID, "Heat", time.Now())
	testutil.CreateTestVotes(t, st, sess.ID, voter.ID, movie.ID, 2)

	require.NoError(t, svc.RemoveVoter(ctx, voter.ID))

	assert.Zero(t, testutil.CountRows(t, conn, "voters", "id = $1", voter.ID))
	assert.Equal(t, 2, testutil.CountRows(t, conn, "votes", "voter_id = $1", voter.ID))
	got, err := st.GetCode(ctx, code.Code)
	require.NoError(t, err)
	assert.Equal(t, models.CodeRevoked, got.Status)

	err = svc.RemoveVoter(ctx, voter.ID)
	assert.Equal(t, apperr.CodeVoterNotFound, apperr.CodeOf(err))
}

func TestBuildTree(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	sess := testutil.CreateTestSession(t, st, "tree", testutil.WithGuestSlots(2))

	root := testutil.CreateTestCode(t, st, sess.ID, nil, 1)
	a := claim(t, svc, root.Code)

	codeB, err := svc.MintVoterCode(ctx, sess.Slug, a.Voter.ID, "B")
	require.NoError(t, err)
	b := claim(t, svc, codeB.Code)
	_, err = svc.MintVoterCode(ctx, sess.Slug, a.Voter.ID, "spare")
	require.NoError(t, err)

	codeC, err := svc.MintVoterCode(ctx, sess.Slug, b.Voter.ID, "C")
	require.NoError(t, err)
	c := claim(t, svc, codeC.Code)

	tree, err := svc.BuildTree(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, tree.VoterCount)
	require.Len(t, tree.RootCodes, 1)
	assert.Equal(t, a.Voter.ID, *tree.RootCodes[0].UsedByVoterID)

	require.Len(t, tree.Roots, 1)
	nodeA := tree.Roots[0]
	assert.Equal(t, a.Voter.ID, nodeA.Voter.ID)
	assert.Len(t, nodeA.Codes, 2)
	require.Len(t, nodeA.Children, 1)
	assert.Equal(t, b.Voter.ID, nodeA.Children[0].Voter.ID)
	require.Len(t, nodeA.Children[0].Children, 1)
	assert.Equal(t, c.Voter.ID, nodeA.Children[0].Children[0].Voter.ID)
	assert.Empty(t, tree.Orphans)

	// Removing B leaves C without a parent.
	require.NoError(t, svc.RemoveVoter(ctx, b.Voter.ID))
	tree, err = svc.BuildTree(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, tree.Roots[0].Children)
	require.Len(t, tree.Orphans, 1)
	assert.Equal(t, c.Voter.ID, tree.Orphans[0].Voter.ID)

	_, err = svc.BuildTree(ctx, "missing")
	assert.Equal(t, apperr.CodeSessionNotFound, apperr.CodeOf(err))
}

func TestBuildTree_DisplayNames(t *testing.T) {
	name := "Dana"
	voters := []models.Voter{
		{ID: "abcdef123456", DisplayName: &name},
		{ID: "0123456789ab"},
	}
	tree := buildTree("s", voters, nil)

	require.Len(t, tree.Roots, 2)
	assert.Equal(t, "Dana", tree.Roots[0].DisplayName)
	assert.Equal(t, "Guest #012345", tree.Roots[1].DisplayName)
	assert.NotNil(t, tree.RootCodes)
	assert.NotNil(t, tree.Roots[1].Children)
}
