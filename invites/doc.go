// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package invites is the invite engine: code claims, voter-minted codes, the
code lifecycle, and the invite tree.

# Code lifecycle

	unused --claim--> used      (last use taken)
	unused --claim--> unused    (multi-use code with uses left)
	unused --revoke--> revoked
	used/revoked --reopen--> unused   (admin override)

# Claims

Claim consumes one use with a conditional update on the code row inside a
transaction, so two claims of a single-use code cannot both win. The
inviter's depth is read in the same transaction; a claim that would exceed
the session's max_invite_depth rolls back without using the code.

A caller whose token already names a voter of the session gets that voter
back with AlreadyJoined set, and the code is left alone.

# Invite slots

A voter may mint as many codes as their invite_slots_remaining budget.
Minting runs in a transaction that first writes the voter row, which
serializes concurrent mints by the same voter.
*/
package invites
