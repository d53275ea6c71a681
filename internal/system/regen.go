package system

import (
	coresys "github.com/wydtm/tmsrv/internal/core/system"
	"github.com/wydtm/tmsrv/internal/world"
	"time"
)

// hpRegenIntervalTicks and mpRegenIntervalTicks mirror the teacher's
// fixed-threshold accumulator approach: rather than a per-character
// accumulator field, a system-wide tick counter gates how often the
// (cheaper, coarser) pass over every live character runs.
const (
	hpRegenIntervalTicks = 5  // ~1s at a 200ms tick rate
	mpRegenIntervalTicks = 80 // ~16s at a 200ms tick rate
)

// RegenSystem applies passive HP/MP regeneration to every live,
// non-dead character (§4.5 passive recovery). Phase 3 (PostUpdate).
type RegenSystem struct {
	world     *world.State
	tickCount int
}

func NewRegenSystem(ws *world.State) *RegenSystem {
	return &RegenSystem{world: ws}
}

func (s *RegenSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *RegenSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount%hpRegenIntervalTicks == 0 {
		for _, c := range s.world.AllCharacters() {
			tickHPRegen(c)
		}
	}
	if s.tickCount%mpRegenIntervalTicks == 0 {
		for _, c := range s.world.AllCharacters() {
			tickMPRegen(c)
		}
	}
}

func tickHPRegen(c *world.Character) {
	if c.Dead || c.HP <= 0 || c.HP >= c.MaxHP {
		return
	}
	bonus := int32(1)
	if c.Level > 11 && c.Stats.CON >= 14 {
		bonus = int32(c.Stats.CON-12) / 2
		if bonus < 1 {
			bonus = 1
		}
	}
	c.HP += bonus
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
}

func tickMPRegen(c *world.Character) {
	if c.Dead || c.MP >= c.MaxMP {
		return
	}
	c.MP++
	if c.MP > c.MaxMP {
		c.MP = c.MaxMP
	}
}
