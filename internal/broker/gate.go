package broker

import "sort"

// GateDecision is the result of gating one text-sync notification.
type GateDecision int

const (
	// Forward: relay the notification to the language server.
	Forward GateDecision = iota
	// DropSilently: the session is a non-owning follower; swallow it.
	DropSilently
	// RejectNotOwner: the session is not permitted to sync this document.
	RejectNotOwner
)

func (d GateDecision) String() string {
	switch d {
	case Forward:
		return "forward"
	case DropSilently:
		return "drop_silently"
	case RejectNotOwner:
		return "reject_not_owner"
	default:
		return "unknown"
	}
}

// docOwnerState tracks single-writer ownership of one document URI within
// one server's scope, ported from the original's DocOwnerState.
type docOwnerState struct {
	owner         SessionId
	openRefcounts map[SessionId]uint32
	lastVersion   uint32
}

// docOwnerRegistry maps URI to its current owner state.
type docOwnerRegistry struct {
	byURI map[string]*docOwnerState
}

func newDocOwnerRegistry() *docOwnerRegistry {
	return &docOwnerRegistry{byURI: map[string]*docOwnerState{}}
}

// server holds one language server's per-session attachment set plus its
// document and ownership registries.
type server struct {
	attached  map[SessionId]bool
	docs      *DocRegistry
	docOwners *docOwnerRegistry
}

func newServer() *server {
	return &server{
		attached:  map[SessionId]bool{},
		docs:      newDocRegistry(),
		docOwners: newDocOwnerRegistry(),
	}
}

// GateTextSync enforces single-writer ownership per URI for one of the
// three textDocument/{didOpen,didChange,didClose} notifications, ported
// 1:1 from the original's BrokerCore::gate_text_sync. method is the LSP
// notification method name; uri/version are read from its
// textDocument param by the caller (component L's wire decoder) before
// calling in, since this package has no JSON-RPC dependency of its own.
func (c *Core) GateTextSync(session SessionId, serverID ServerId, method, uri string, version uint32) GateDecision {
	c.mu.Lock()
	defer c.mu.Unlock()

	srv, ok := c.servers[serverID]
	if !ok {
		return RejectNotOwner
	}

	switch method {
	case "textDocument/didOpen":
		return srv.gateDidOpen(session, uri, version)
	case "textDocument/didChange":
		return srv.gateDidChange(session, uri, version)
	case "textDocument/didClose":
		return srv.gateDidClose(session, uri)
	default:
		return Forward
	}
}

func (s *server) gateDidOpen(session SessionId, uri string, version uint32) GateDecision {
	owner, ok := s.docOwners.byURI[uri]
	if !ok {
		s.docOwners.byURI[uri] = &docOwnerState{
			owner:         session,
			openRefcounts: map[SessionId]uint32{session: 1},
			lastVersion:   version,
		}
		return Forward
	}

	owner.openRefcounts[session]++

	_, stillOpen := owner.openRefcounts[owner.owner]
	if !s.attached[owner.owner] || !stillOpen {
		owner.owner = session
	}
	return DropSilently
}

func (s *server) gateDidChange(session SessionId, uri string, version uint32) GateDecision {
	owner, ok := s.docOwners.byURI[uri]
	if !ok {
		return RejectNotOwner
	}
	switch {
	case session == owner.owner:
		owner.lastVersion = version
		return Forward
	case !s.attached[owner.owner]:
		owner.owner = session
		owner.lastVersion = version
		return Forward
	default:
		return RejectNotOwner
	}
}

func (s *server) gateDidClose(session SessionId, uri string) GateDecision {
	owner, ok := s.docOwners.byURI[uri]
	if !ok {
		return RejectNotOwner
	}

	if count, ok := owner.openRefcounts[session]; ok {
		if count > 0 {
			count--
		}
		if count == 0 {
			delete(owner.openRefcounts, session)
		} else {
			owner.openRefcounts[session] = count
		}
	}

	if session == owner.owner && len(owner.openRefcounts) > 0 {
		owner.owner = minSessionId(owner.openRefcounts)
	}

	var globalCount uint32
	for _, c := range owner.openRefcounts {
		globalCount += c
	}
	if globalCount == 0 {
		delete(s.docOwners.byURI, uri)
		s.docs.remove(uri)
		return Forward
	}
	return DropSilently
}

// minSessionId returns the lexicographically smallest key, matching the
// original's BTreeMap-derived `.keys().min()` tie-break for electing a
// successor owner deterministically.
func minSessionId(refcounts map[SessionId]uint32) SessionId {
	ids := make([]string, 0, len(refcounts))
	byString := make(map[string]SessionId, len(refcounts))
	for id := range refcounts {
		s := id.String()
		ids = append(ids, s)
		byString[s] = id
	}
	sort.Strings(ids)
	return byString[ids[0]]
}
