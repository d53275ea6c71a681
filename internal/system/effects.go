package system

import (
	"time"

	coresys "github.com/wydtm/tmsrv/internal/core/system"
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/world"
)

// EffectSystem advances every active status effect on live characters by
// one tick's elapsed time, applying periodic damage/heal ticks and
// dropping expired entries (§4.5, §9 status effect lifecycle).
// Phase 3 (PostUpdate).
type EffectSystem struct {
	world *world.State
}

func NewEffectSystem(ws *world.State) *EffectSystem {
	return &EffectSystem{world: ws}
}

func (s *EffectSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *EffectSystem) Update(dt time.Duration) {
	dtMs := dt.Milliseconds()
	for _, c := range s.world.AllCharacters() {
		if c.Dead {
			continue
		}
		c.Effects = model.TickEffects(c.Effects, dtMs, func(e *model.StatusEffect) {
			applyEffectTick(c, e)
		})
	}
}

// applyEffectTick applies one periodic tick of a damage/heal-over-time
// effect directly to HP, clamped to [0, MaxHP]. Stat buffs/debuffs and
// crowd-control kinds have no per-tick action; their effect is the
// ai/combat packages reading the active-effect slice directly.
func applyEffectTick(c *world.Character, e *model.StatusEffect) {
	switch e.Kind {
	case model.EffectPoison, model.EffectBleed:
		c.HP -= e.Magnitude * int32(e.Stacks)
		if c.HP < 0 {
			c.HP = 0
		}
	case model.EffectRegenHP:
		c.HP += e.Magnitude * int32(e.Stacks)
		if c.HP > c.MaxHP {
			c.HP = c.MaxHP
		}
	case model.EffectRegenMP:
		c.MP += e.Magnitude * int32(e.Stacks)
		if c.MP > c.MaxMP {
			c.MP = c.MaxMP
		}
	}
}
