// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects published after a state change commits.
const (
	SubjectInviteClaimed  = "movienight.invites.claimed"
	SubjectVoteCast       = "movienight.votes.cast"
	SubjectVoteRetracted  = "movienight.votes.retracted"
	SubjectMovieNominated = "movienight.movies.nominated"
	SubjectSessionClosed  = "movienight.sessions.closed"
)

// Publisher sends v, encoded as JSON, to subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

type InviteClaimed struct {
	SessionID string    `json:"session_id"`
	VoterID   string    `json:"voter_id"`
	Code      string    `json:"code"`
	InvitedBy *string   `json:"invited_by,omitempty"`
	Depth     int       `json:"depth"`
	At        time.Time `json:"at"`
}

type VoteChanged struct {
	SessionID string    `json:"session_id"`
	VoterID   string    `json:"voter_id"`
	MovieID   string    `json:"movie_id"`
	VoteCount int       `json:"vote_count"`
	At        time.Time `json:"at"`
}

type MovieNominated struct {
	SessionID string    `json:"session_id"`
	MovieID   string    `json:"movie_id"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	VoterID   string    `json:"voter_id"`
	At        time.Time `json:"at"`
}

type SessionClosed struct {
	SessionID     string    `json:"session_id"`
	WinnerMovieID *string   `json:"winner_movie_id,omitempty"`
	Automatic     bool      `json:"automatic"`
	At            time.Time `json:"at"`
}

// Emit publishes v and logs a failure instead of returning it. Events are
// side effects of a committed change and never undo it.
func Emit(ctx context.Context, p Publisher, subject string, v any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, subject, v); err != nil {
		slog.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// Bus publishes events on a core NATS connection.
type Bus struct {
	conn *nats.Conn
}

// Connect dials the NATS server at url.
func Connect(url string, opts ...nats.Option) (*Bus, error) {
	opts = append([]nats.Option{nats.Name("movienight")}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &Bus{conn: nc}, nil
}

// Close drains pending publishes and shuts the connection down.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

func (b *Bus) Publish(ctx context.Context, subject string, v any) error {
	if b == nil {
		return errors.New("nil bus")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.conn.Publish(subject, data)
}

// Message is one event captured by a Recorder.
type Message struct {
	Subject string
	Data    []byte
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (r *Recorder) Publish(_ context.Context, subject string, v any) error {
	if r.Err != nil {
		return r.Err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.messages = append(r.messages, Message{Subject: subject, Data: data})
	r.mu.Unlock()
	return nil
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Subjects lists recorded subjects in publish order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	for i, m := range r.messages {
		out[i] = m.Subject
	}
	return out
}
