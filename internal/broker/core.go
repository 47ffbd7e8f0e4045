package broker

import "sync"

// Core is the broker's shared state: every language server it manages and
// which sessions are currently attached to each, guarded by a single mutex
// exactly as the original's BrokerCore guards its `routing` field. A real
// deployment runs one Core per project root inside the cmd/tome-broker
// daemon process, reached over internal/ipc by every editor session
// pointed at that project.
type Core struct {
	mu      sync.Mutex
	servers map[ServerId]*server
	nameIDs map[string]ServerId
	nextID  uint64
}

// NewCore returns an empty broker core.
func NewCore() *Core {
	return &Core{servers: map[ServerId]*server{}, nameIDs: map[string]ServerId{}}
}

// EnsureServer returns the ServerId for name, creating a fresh server
// record on first use within this Core (typically one per language-server
// binary per project root).
func (c *Core) EnsureServer(name string) ServerId {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.nameIDs[name]; ok {
		return id
	}
	id := ServerId(c.nextID)
	c.nextID++
	c.nameIDs[name] = id
	c.servers[id] = newServer()
	return id
}

// Attach marks session as attached to serverID, making it eligible to own
// documents and to receive forwarded notifications/responses.
func (c *Core) Attach(session SessionId, serverID ServerId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if srv, ok := c.servers[serverID]; ok {
		srv.attached[session] = true
	}
}

// Detach removes session from serverID's attached set. Ownership is left
// untouched here: the next didChange or didOpen from another session
// re-elects an owner per GateTextSync's rules, matching the
// original's design of only checking attachment lazily at gate time.
func (c *Core) Detach(session SessionId, serverID ServerId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if srv, ok := c.servers[serverID]; ok {
		delete(srv.attached, session)
	}
}

// DocByURI returns the DocId and last known version for uri under
// serverID, mirroring the original's get_doc_by_uri.
func (c *Core) DocByURI(serverID ServerId, uri string) (DocId, uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	srv, ok := c.servers[serverID]
	if !ok {
		return 0, 0, false
	}
	return srv.docs.Get(uri)
}

// RecordDocVersion updates a server's DocRegistry after a Forward decision,
// so subsequent DocByURI calls see the new version.
func (c *Core) RecordDocVersion(serverID ServerId, uri string, version uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if srv, ok := c.servers[serverID]; ok {
		srv.docs.Update(uri, version)
	}
}
