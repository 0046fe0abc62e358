// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/movienight/catalog"
	"github.com/danielhkuo/movienight/cliparse"
	"github.com/danielhkuo/movienight/invites"
	"github.com/danielhkuo/movienight/ledger"
	"github.com/danielhkuo/movienight/middleware"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/nominations"
	"github.com/danielhkuo/movienight/sessions"
	"github.com/danielhkuo/movienight/store"
	"github.com/danielhkuo/movienight/testutil"
)

type testEnv struct {
	store    *store.Store
	cfg      cliparse.Config
	invites  *InviteHandler
	voting   *VotingHandler
	sessions *SessionHandler
	movies   *MovieHandler
	admin    *AdminHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := testutil.SetupTestStore(t)
	cfg := testutil.GetTestConfig()
	mock := catalog.NewMockLibrary()

	l := ledger.New(st, nil, nil)
	inv := invites.NewService(st, testutil.GetTestTokens(), nil, nil)
	sess := sessions.NewService(st, l, nil, nil)
	guard := nominations.NewGuard(st, mock, cfg.ExternalTimeout, nil, nil)
	searcher := &catalog.Searcher{Library: mock.Shelf(), Catalog: mock}

	return &testEnv{
		store:    st,
		cfg:      cfg,
		invites:  NewInviteHandler(inv, cfg),
		voting:   NewVotingHandler(l),
		sessions: NewSessionHandler(sess),
		movies:   NewMovieHandler(guard, searcher),
		admin:    NewAdminHandler(sess, inv),
	}
}

// call runs h with chi URL params and, when voterID is set, an identified voter.
func call(h http.HandlerFunc, method, path string, body interface{}, voterID string, params map[string]string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest(method, path, body, nil)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if voterID != "" {
		ctx = middleware.WithVoterID(ctx, voterID)
	}
	w := httptest.NewRecorder()
	h(w, req.WithContext(ctx))
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp.Code
}
