// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger is the voting ledger: vote budgets, the per-movie cap, the
live tally, and winner determination.

Each voter has votes_per_voter votes per session. Unless the session turns
on vote_stacking, a voter may put at most one vote on a movie.

CastVote and RetractVote run in a transaction that starts by writing the
voter row (store.TouchVoter). Two requests from the same voter therefore
never check the budget against the same count, so the budget holds under
concurrent clicks.

The tally is ordered by count, then by nomination time, then by id; the
winner is its first entry with at least one vote.
*/
package ledger
