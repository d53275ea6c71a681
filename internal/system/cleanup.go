package system

import (
	"time"

	coresys "github.com/wydtm/tmsrv/internal/core/system"
	"github.com/wydtm/tmsrv/internal/handler"
	"github.com/wydtm/tmsrv/internal/world"
)

// CleanupSystem sweeps ground items past their despawn TTL at the end of
// each tick, broadcasting their removal to anyone who could still see
// them (§4.6 step 5). Phase 6 (Cleanup).
type CleanupSystem struct {
	world *world.State
	deps  *handler.Deps
}

func NewCleanupSystem(ws *world.State, deps *handler.Deps) *CleanupSystem {
	return &CleanupSystem{world: ws, deps: deps}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	nowMs := s.deps.Now()
	expired := s.world.ExpireGroundItems(nowMs)
	if len(expired) == 0 {
		return
	}
	const despawnRadius = 20
	for _, g := range expired {
		for _, c := range s.world.NearbyCharacters(g.Pos, despawnRadius) {
			s.deps.SendGroundItemDespawn(c, g.ID)
		}
	}
}
