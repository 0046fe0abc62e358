// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the Prometheus counters for claims, votes,
// nominations, session closes, and media-service failures. Result labels
// carry the apperr code of a rejection ("ok" on success).
package metrics
