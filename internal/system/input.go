package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/wydtm/tmsrv/internal/core/system"
	"github.com/wydtm/tmsrv/internal/handler"
	"github.com/wydtm/tmsrv/internal/netio"
	"github.com/wydtm/tmsrv/internal/netio/packet"
)

// InputSystem absorbs newly accepted and newly dead connections into the
// session table, then drains each live session's InQueue through the
// packet registry, all ahead of any game-logic system this tick
// (§4.1 steps 1-5, §4.2 phase 0).
type InputSystem struct {
	server *netio.Server
	table  *netio.SessionTable
	reg    *packet.Registry
	deps   *handler.Deps
	log    *zap.Logger

	maxPacketsPerSession int
}

func NewInputSystem(server *netio.Server, table *netio.SessionTable, reg *packet.Registry, deps *handler.Deps, maxPacketsPerSession int, log *zap.Logger) *InputSystem {
	return &InputSystem{
		server: server, table: table, reg: reg, deps: deps,
		maxPacketsPerSession: maxPacketsPerSession, log: log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(dt time.Duration) {
	s.absorbNewSessions()
	s.absorbDeadSessions()
	s.drainInboxes()
}

func (s *InputSystem) absorbNewSessions() {
	for {
		select {
		case sess := <-s.server.NewSessions():
			s.table.Add(sess)
		default:
			return
		}
	}
}

func (s *InputSystem) absorbDeadSessions() {
	for {
		select {
		case id := <-s.server.DeadSessions():
			s.table.Remove(id)
			s.deps.HandleDisconnect(id)
		default:
			return
		}
	}
}

// drainInboxes walks every live session and dispatches up to
// maxPacketsPerSession queued packets through the registry, bounding how
// much one flooding connection can starve the rest of the tick.
func (s *InputSystem) drainInboxes() {
	for _, sess := range s.table.All() {
		if sess.IsClosed() {
			s.table.Remove(sess.ID)
			s.deps.HandleDisconnect(sess.ID)
			continue
		}
		for i := 0; i < s.maxPacketsPerSession; i++ {
			select {
			case pkt := <-sess.InQueue:
				if err := s.reg.Dispatch(sess, sess.State(), pkt.Type, pkt.Payload); err != nil {
					s.log.Debug("dispatch error", zap.Error(err), zap.Uint64("session", sess.ID))
				}
			default:
				i = s.maxPacketsPerSession
			}
		}
	}
}
