// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package events announces committed state changes to other processes.

Services hold a Publisher and call Emit after their transaction commits.
A failed publish is logged and otherwise ignored.

# Implementations

  - Bus: core NATS publish of the JSON-encoded payload (NATS_URL set)
  - Nop: used when no NATS server is configured
  - Recorder: in-memory capture for tests
*/
package events
