// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, request, and response types for the API.

# Domain Types

Rows of the five tables, scanned with `db` tags and served with `json` tags:

  - Session: one voting round and its configuration
  - Voter: a participant scoped to one session
  - InviteCode: a bearer capability admitting up to max_uses voters
  - Movie: a nomination on the session's ballot
  - Vote: one unit of support for a movie
  - TallyEntry: a movie's position in the standings
  - SessionSummary: a session with voter, movie, and vote counts

# Request Types

Types for parsing incoming JSON:

  - JoinRequest: fingerprint
  - CastVoteRequest: movie_id
  - NominateRequest: title and optional metadata/identifiers
  - MintCodeRequest, SetLabelRequest: label
  - CreateSessionRequest, UpdateSessionRequest, CloseSessionRequest
  - GenerateCodesRequest, AdjustSlotsRequest

UpdateSessionRequest uses Optional[T] for fields where an explicit null
clears the stored value.

# Constants

Session status:

	StatusOpen   = "open"
	StatusClosed = "closed"

Invite code status:

	CodeUnused  = "unused"
	CodeUsed    = "used"
	CodeRevoked = "revoked"

Movie source and availability:

	SourceLibrary, SourceExternalCatalog, SourceExternalRequest
	MovieInLibrary, MovieRequested, MovieNominatedOnly
*/
package models
