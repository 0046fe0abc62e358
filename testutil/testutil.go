// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/danielhkuo/movienight/auth"
	"github.com/danielhkuo/movienight/cliparse"
	"github.com/danielhkuo/movienight/db"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/store"
)

const (
	TestAdminSecret = "test-admin-secret"
	TestTokenSecret = "test-token-secret"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema.
// The database is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := fmt.Sprintf("file:testdb_%s?mode=memory&cache=shared&_time_format=sqlite", ulid.Make().String())
	conn, err := db.Open(context.Background(), db.TypeSQLite, url)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.Migrate(context.Background(), conn, db.TypeSQLite); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return conn
}

// SetupTestStore is SetupTestDB wrapped in a store.
func SetupTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(SetupTestDB(t))
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:               3318,
		DatabaseURL:        "file::memory:",
		DatabaseType:       db.TypeSQLite,
		AdminSecret:        TestAdminSecret,
		VoterTokenSecret:   TestTokenSecret,
		VoterTokenTTL:      time.Hour,
		RateLimitPerMinute: 10000,
		MockMedia:          true,
		ExternalTimeout:    time.Second,
		SweepSchedule:      "@every 1m",
	}
}

// GetTestTokens returns the token issuer matching GetTestConfig.
func GetTestTokens() *auth.TokenIssuer {
	return auth.NewTokenIssuer(TestTokenSecret, time.Hour)
}

// SessionOption adjusts a session before CreateTestSession inserts it.
type SessionOption func(*models.Session)

func WithVotesPerVoter(n int) SessionOption {
	return func(s *models.Session) { s.VotesPerVoter = n }
}

func WithMaxDepth(n int) SessionOption {
	return func(s *models.Session) { s.MaxInviteDepth = &n }
}

func WithGuestSlots(n int) SessionOption {
	return func(s *models.Session) { s.GuestInviteSlots = n }
}

func WithStatus(status string) SessionOption {
	return func(s *models.Session) { s.Status = status }
}

func WithStacking() SessionOption {
	return func(s *models.Session) { s.VoteStacking = true }
}

func WithRequestsDisabled() SessionOption {
	return func(s *models.Session) { s.AllowExternalRequests = false }
}

func WithExpiry(at time.Time) SessionOption {
	return func(s *models.Session) { s.ExpiresAt = &at }
}

// CreateTestSession inserts an open session with default settings.
func CreateTestSession(t *testing.T, st *store.Store, slug string, opts ...SessionOption) models.Session {
	t.Helper()

	sess := models.Session{
		ID:                    uuid.NewString(),
		Slug:                  slug,
		Name:                  "Movie Night " + slug,
		Status:                models.StatusOpen,
		VotesPerVoter:         models.DefaultVotesPerVoter,
		GuestInviteSlots:      models.DefaultGuestInviteSlots,
		AllowExternalRequests: true,
		CreatedAt:             time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&sess)
	}

	if err := st.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}
	return sess
}

// CreateTestVoter inserts a voter directly. invitedBy may be nil for a root voter.
func CreateTestVoter(t *testing.T, st *store.Store, sessionID string, invitedBy *models.Voter, slots int) models.Voter {
	t.Helper()

	now := time.Now().UTC()
	v := models.Voter{
		ID:                   uuid.NewString(),
		SessionID:            sessionID,
		InviteSlotsRemaining: slots,
		JoinedAt:             now,
		LastActiveAt:         now,
	}
	if invitedBy != nil {
		v.InvitedBy = &invitedBy.ID
		v.InviteDepth = invitedBy.InviteDepth + 1
	}

	if err := st.CreateVoter(context.Background(), v); err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}
	return v
}

// CreateTestCode inserts an unused code. createdBy may be nil for a root code.
func CreateTestCode(t *testing.T, st *store.Store, sessionID string, createdBy *models.Voter, maxUses int) models.InviteCode {
	t.Helper()

	code, err := auth.GenerateInviteCode(auth.DefaultCodeLength)
	if err != nil {
		t.Fatalf("Failed to generate code: %v", err)
	}
	c := models.InviteCode{
		Code:      code,
		SessionID: sessionID,
		Status:    models.CodeUnused,
		MaxUses:   maxUses,
		CreatedAt: time.Now().UTC(),
	}
	if createdBy != nil {
		c.CreatedByVoterID = &createdBy.ID
		label := "for a friend"
		c.Label = &label
	}

	if err := st.CreateCode(context.Background(), c); err != nil {
		t.Fatalf("Failed to create test code: %v", err)
	}
	return c
}

// CreateTestMovie inserts a library-less nomination created at createdAt.
func CreateTestMovie(t *testing.T, st *store.Store, sessionID, nominatedBy, title string, createdAt time.Time) models.Movie {
	t.Helper()

	m := models.Movie{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Title:       title,
		Source:      models.SourceExternalCatalog,
		Status:      models.MovieNominatedOnly,
		NominatedBy: nominatedBy,
		CreatedAt:   createdAt.UTC(),
	}
	if err := st.CreateMovie(context.Background(), m); err != nil {
		t.Fatalf("Failed to create test movie: %v", err)
	}
	return m
}

// CreateTestVotes inserts n votes by voterID on movieID.
func CreateTestVotes(t *testing.T, st *store.Store, sessionID, voterID, movieID string, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		err := st.CreateVote(context.Background(), models.Vote{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			VoterID:   voterID,
			MovieID:   movieID,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("Failed to create test vote: %v", err)
		}
	}
}

// CountRows counts rows of table matching an optional WHERE clause.
func CountRows(t *testing.T, conn *sql.DB, table, where string, args ...any) int {
	t.Helper()

	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := conn.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
