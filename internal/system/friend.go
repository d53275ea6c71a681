package system

import (
	"time"

	coresys "github.com/wydtm/tmsrv/internal/core/system"
	"github.com/wydtm/tmsrv/internal/handler"
)

// FriendSystem flushes the per-tick coalesced friend online/offline
// notice queue, so a mass reconnect produces one batched packet per
// recipient instead of one packet per login (§C.5). Phase 3
// (PostUpdate), alongside the other "world reacts to the clock" work.
type FriendSystem struct {
	deps *handler.Deps
}

func NewFriendSystem(deps *handler.Deps) *FriendSystem {
	return &FriendSystem{deps: deps}
}

func (s *FriendSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *FriendSystem) Update(_ time.Duration) {
	s.deps.FlushFriendNotices()
}
