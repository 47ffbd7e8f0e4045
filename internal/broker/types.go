// Package broker implements the LSP broker's single-writer-per-document
// text-sync gating of spec.md §4.8/§4.9, ported 1:1 from
// _examples/original_source/crates/broker/broker/src/core/text_sync.rs. The
// broker lets multiple editor sessions (e.g. two tome windows on the same
// file, or an editor plus a headless script runner) share one language
// server connection per project, forwarding only one session's edits at a
// time so the server never sees two writers race on the same URI.
package broker

import "github.com/google/uuid"

// SessionId identifies one connected editor session, grounded on the
// original's xeno_broker_proto::types::SessionId — generated fresh per
// connection via google/uuid rather than assigned by the caller, since
// sessions in this Go port connect over the ipc package's listener rather
// than being constructed in-process by a test harness.
type SessionId uuid.UUID

// NewSessionId generates a fresh random session id.
func NewSessionId() SessionId { return SessionId(uuid.New()) }

func (s SessionId) String() string { return uuid.UUID(s).String() }

// ServerId identifies one running language server process the broker
// manages on behalf of its attached sessions.
type ServerId uint64

// DocId identifies one open document URI within a single server's scope.
type DocId uint64
