package system

import (
	"time"

	coresys "github.com/wydtm/tmsrv/internal/core/system"
	"github.com/wydtm/tmsrv/internal/handler"
)

// PersistenceSystem periodically flushes every in-world character's
// mutable row and containers to storage, independent of the per-session
// save on logout/disconnect, so a crash mid-session loses at most one
// interval of progress. Phase 5 (Persist).
type PersistenceSystem struct {
	deps          *handler.Deps
	intervalTicks int
	tickCount     int
}

func NewPersistenceSystem(deps *handler.Deps, intervalTicks int) *PersistenceSystem {
	return &PersistenceSystem{deps: deps, intervalTicks: intervalTicks}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.intervalTicks {
		return
	}
	s.tickCount = 0
	s.deps.AutosaveAll()
}
