package models

import (
	"encoding/json"
	"time"
)

// Session status constants
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Invite code status constants
const (
	CodeUnused  = "unused"
	CodeUsed    = "used"
	CodeRevoked = "revoked"
)

// Movie source constants
const (
	SourceLibrary         = "library"
	SourceExternalCatalog = "external-catalog"
	SourceExternalRequest = "external-request"
)

// Movie availability constants
const (
	MovieInLibrary     = "in_library"
	MovieRequested     = "requested"
	MovieNominatedOnly = "nominated_only"
)

// Session defaults
const (
	DefaultVotesPerVoter    = 5
	DefaultGuestInviteSlots = 1
	DefaultRootInviteCodes  = 1
	MaxCodesPerBatch        = 20
	MaxDisplayNameLength    = 50
	MaxLabelLength          = 50
)

// Domain types

type Session struct {
	ID                    string     `json:"id" db:"id"`
	Slug                  string     `json:"slug" db:"slug"`
	Name                  string     `json:"name" db:"name"`
	Status                string     `json:"status" db:"status"`
	VotesPerVoter         int        `json:"votes_per_voter" db:"votes_per_voter"`
	MaxInviteDepth        *int       `json:"max_invite_depth" db:"max_invite_depth"`
	GuestInviteSlots      int        `json:"guest_invite_slots" db:"guest_invite_slots"`
	AllowExternalRequests bool       `json:"allow_external_requests" db:"allow_external_requests"`
	VoteStacking          bool       `json:"vote_stacking" db:"vote_stacking"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	WinnerMovieID         *string    `json:"winner_movie_id,omitempty" db:"winner_movie_id"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
}

// IsOpen reports whether the session accepts claims, votes and nominations at now.
// An open session past its expiry counts as closed.
func (s Session) IsOpen(now time.Time) bool {
	if s.Status != StatusOpen {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

type Voter struct {
	ID                   string    `json:"id" db:"id"`
	SessionID            string    `json:"session_id" db:"session_id"`
	DisplayName          *string   `json:"display_name" db:"display_name"`
	InvitedBy            *string   `json:"invited_by" db:"invited_by"`
	InviteDepth          int       `json:"invite_depth" db:"invite_depth"`
	InviteSlotsRemaining int       `json:"invite_slots_remaining" db:"invite_slots_remaining"`
	Fingerprint          *string   `json:"fingerprint,omitempty" db:"fingerprint"`
	JoinedViaCode        *string   `json:"joined_via_code,omitempty" db:"joined_via_code"`
	JoinedAt             time.Time `json:"joined_at" db:"joined_at"`
	LastActiveAt         time.Time `json:"last_active_at" db:"last_active_at"`
}

// Name returns the display name, or a stable placeholder derived from the id.
func (v Voter) Name() string {
	if v.DisplayName != nil && *v.DisplayName != "" {
		return *v.DisplayName
	}
	id := v.ID
	if len(id) > 6 {
		id = id[:6]
	}
	return "Guest #" + id
}

type InviteCode struct {
	Code             string     `json:"code" db:"code"`
	SessionID        string     `json:"session_id" db:"session_id"`
	CreatedByVoterID *string    `json:"created_by_voter_id" db:"created_by_voter_id"`
	Status           string     `json:"status" db:"status"`
	Label            *string    `json:"label" db:"label"`
	MaxUses          int        `json:"max_uses" db:"max_uses"`
	UseCount         int        `json:"use_count" db:"use_count"`
	UsedByVoterID    *string    `json:"used_by_voter_id" db:"used_by_voter_id"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UsedAt           *time.Time `json:"used_at,omitempty" db:"used_at"`
}

// Claimable reports whether the code can admit another voter.
func (c InviteCode) Claimable() bool {
	return c.Status == CodeUnused && c.UseCount < c.MaxUses
}

type Movie struct {
	ID             string    `json:"id" db:"id"`
	SessionID      string    `json:"session_id" db:"session_id"`
	Title          string    `json:"title" db:"title"`
	Year           *int      `json:"year" db:"year"`
	RuntimeMinutes *int      `json:"runtime_minutes" db:"runtime_minutes"`
	Synopsis       *string   `json:"synopsis" db:"synopsis"`
	PosterURL      *string   `json:"poster_url" db:"poster_url"`
	Source         string    `json:"source" db:"source"`
	LibraryID      *string   `json:"library_id" db:"library_id"`
	CatalogID      *string   `json:"catalog_id" db:"catalog_id"`
	RequestID      *string   `json:"request_id" db:"request_id"`
	Status         string    `json:"status" db:"status"`
	NominatedBy    string    `json:"nominated_by" db:"nominated_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type Vote struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	VoterID   string    `json:"voter_id" db:"voter_id"`
	MovieID   string    `json:"movie_id" db:"movie_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TallyEntry is one row of the standings, in tally order.
type TallyEntry struct {
	MovieID   string `json:"movie_id" db:"movie_id"`
	Title     string `json:"title" db:"title"`
	VoteCount int    `json:"vote_count" db:"vote_count"`
}

type SessionSummary struct {
	Session
	VoterCount int `json:"voter_count" db:"voter_count"`
	MovieCount int `json:"movie_count" db:"movie_count"`
	VoteCount  int `json:"vote_count" db:"vote_count"`
}

// Optional distinguishes an absent JSON field from an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Request types

type JoinRequest struct {
	Fingerprint string `json:"fingerprint"`
}

type UpdateDisplayNameRequest struct {
	DisplayName string `json:"display_name"`
}

type MintCodeRequest struct {
	Label string `json:"label"`
}

type SetLabelRequest struct {
	Label string `json:"label"`
}

type CastVoteRequest struct {
	MovieID string `json:"movie_id"`
}

type NominateRequest struct {
	Title          string  `json:"title"`
	Year           *int    `json:"year"`
	RuntimeMinutes *int    `json:"runtime_minutes"`
	Synopsis       *string `json:"synopsis"`
	PosterURL      *string `json:"poster_url"`
	Source         string  `json:"source"`
	LibraryID      *string `json:"library_id"`
	CatalogID      *string `json:"catalog_id"`
	Status         string  `json:"status"`
}

type CreateSessionRequest struct {
	Slug                  string     `json:"slug"`
	Name                  string     `json:"name"`
	VotesPerVoter         *int       `json:"votes_per_voter"`
	MaxInviteDepth        *int       `json:"max_invite_depth"`
	GuestInviteSlots      *int       `json:"guest_invite_slots"`
	AllowExternalRequests *bool      `json:"allow_external_requests"`
	VoteStacking          *bool      `json:"vote_stacking"`
	ExpiresAt             *time.Time `json:"expires_at"`
	RootInviteCodes       *int       `json:"root_invite_codes"`
}

type UpdateSessionRequest struct {
	Name                  *string             `json:"name"`
	Status                *string             `json:"status"`
	VotesPerVoter         *int                `json:"votes_per_voter"`
	MaxInviteDepth        Optional[int]       `json:"max_invite_depth"`
	GuestInviteSlots      *int                `json:"guest_invite_slots"`
	AllowExternalRequests *bool               `json:"allow_external_requests"`
	VoteStacking          *bool               `json:"vote_stacking"`
	ExpiresAt             Optional[time.Time] `json:"expires_at"`
}

type CloseSessionRequest struct {
	WinnerMovieID *string `json:"winner_movie_id"`
}

type GenerateCodesRequest struct {
	Count   int     `json:"count"`
	Label   *string `json:"label"`
	MaxUses int     `json:"max_uses"`
}

type AdjustSlotsRequest struct {
	Slots int `json:"slots"`
}

// Response types

type JoinResponse struct {
	Voter         Voter   `json:"voter"`
	Session       Session `json:"session"`
	Token         string  `json:"token"`
	AlreadyJoined bool    `json:"already_joined"`
}

type CreateSessionResponse struct {
	Session Session      `json:"session"`
	Codes   []InviteCode `json:"codes"`
}

type CodesResponse struct {
	Codes []InviteCode `json:"codes"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Error response

type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
