// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides invite code generation, admin secret checks, and
voter identity tokens.

# Invite Codes

Codes are bearer capabilities, so every character comes from crypto/rand:

	code, err := auth.GenerateInviteCode(auth.DefaultCodeLength)

The alphabet is upper-case letters and digits without 0/O and 1/I/L, so a
code read aloud or copied from a screenshot stays unambiguous. Incoming
codes are passed through NormalizeCode before lookup.

# Admin Secret

Admin routes carry the shared secret in X-Admin-Secret:

	err := auth.ValidateAdminSecret(r.Header.Get("X-Admin-Secret"), cfg.AdminSecret)

The comparison is constant time and an empty configured secret never
matches.

# Voter Tokens

Voter tokens are HS256 JWTs whose subject is the voter id and whose sid
claim is the session id:

	issuer := auth.NewTokenIssuer(cfg.VoterTokenSecret, cfg.VoterTokenTTL)
	token, err := issuer.Issue(voter.ID, session.ID)
	claims, err := issuer.Parse(token)

Tokens default to a 365 day lifetime, matching the voter cookie.
*/
package auth
