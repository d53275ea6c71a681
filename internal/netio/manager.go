package netio

import (
	"sync"

	"github.com/wydtm/tmsrv/internal/netio/packet"
)

// SessionTable is the world tick's registry of live sessions, keyed by
// the ID Server assigns at accept time. It is the concrete type behind
// the handler package's Sessions interface, kept here rather than in
// handler to avoid handler depending on anything beyond *Session itself.
type SessionTable struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
}

func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[uint64]*Session)}
}

// Add registers a newly accepted session.
func (t *SessionTable) Add(sess *Session) {
	t.mu.Lock()
	t.sessions[sess.ID] = sess
	t.mu.Unlock()
}

// Remove drops a session, called once its readLoop/writeLoop has torn
// down (Server.DeadSessions()).
func (t *SessionTable) Remove(id uint64) {
	t.mu.Lock()
	delete(t.sessions, id)
	t.mu.Unlock()
}

// Get returns the live session for id, if any.
func (t *SessionTable) Get(id uint64) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[id]
	return s, ok
}

// Broadcast fans a packet out to every listed session, skipping any that
// has since disconnected.
func (t *SessionTable) Broadcast(ids []uint64, opcode packet.Opcode, payload []byte) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, id := range ids {
		if s, ok := t.sessions[id]; ok {
			s.Send(opcode, payload)
		}
	}
}

// Len reports the number of tracked sessions (admin /stats surface).
func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// All returns a snapshot of every live session, used by the input
// system's per-tick InQueue drain.
func (t *SessionTable) All() []*Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, s)
	}
	return out
}
