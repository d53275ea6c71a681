package system

import (
	"time"

	"github.com/wydtm/tmsrv/internal/ai"
	coresys "github.com/wydtm/tmsrv/internal/core/system"
	"github.com/wydtm/tmsrv/internal/handler"
	"github.com/wydtm/tmsrv/internal/world"
)

// aoiScanRadius bounds how far a mob looks for targets/obstacles; kept
// generous relative to AggroRadius so a brain can still see a target it
// is actively chasing once it closes past aggro range.
const aoiScanRadius = 30

// AISystem drives every live mob's controller one step per tick: detect
// targets, consult the Brain, and execute the resulting Command against
// world state (§4.10). Phase 2 (Update), after movement/collision.
type AISystem struct {
	world *world.State
	deps  *handler.Deps
	brain ai.Brain
}

func NewAISystem(ws *world.State, deps *handler.Deps, brain ai.Brain) *AISystem {
	if brain == nil {
		brain = ai.NewDefaultBrain()
	}
	return &AISystem{world: ws, deps: deps, brain: brain}
}

func (s *AISystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *AISystem) Update(dt time.Duration) {
	dtMs := dt.Milliseconds()
	for _, mob := range s.world.AllMobs() {
		if mob.HP <= 0 {
			continue
		}
		candidates := s.candidatesNear(mob)
		cmd := ai.Tick(&mob.Mob, dtMs, s.brain, candidates)
		s.execute(mob, cmd)
	}
}

func (s *AISystem) candidatesNear(mob *world.Mob) []ai.Candidate {
	pos := world.Position{X: mob.Pos.X, Y: mob.Pos.Y, MapID: mob.Pos.MapID}
	nearby := s.world.NearbyCharacters(pos, aoiScanRadius)
	out := make([]ai.Candidate, 0, len(nearby))
	for _, c := range nearby {
		out = append(out, ai.Candidate{
			CharacterID: c.ID,
			Pos:         ai.Position{X: c.Pos.X, Y: c.Pos.Y, MapID: c.Pos.MapID},
			Dead:        c.Dead,
		})
	}
	return out
}

func (s *AISystem) execute(mob *world.Mob, cmd ai.Command) {
	switch cmd.Kind {
	case ai.CmdAttack:
		s.deps.ResolveMobAttack(mob, cmd.TargetID)
	case ai.CmdMoveToward, ai.CmdReturnHome:
		s.stepToward(mob, world.Position{X: cmd.Dest.X, Y: cmd.Dest.Y, MapID: cmd.Dest.MapID})
	case ai.CmdFlee:
		s.stepAway(mob)
	case ai.CmdPatrolStep, ai.CmdUseSkill, ai.CmdLoseTarget, ai.CmdNone:
		// Patrol/skill-cast/target-loss have no movement side effect here;
		// patrol waypoints and scripted skill casts belong to content data
		// this controller doesn't yet consume.
	}
}

// stepToward advances mob one tile along each axis toward dest, matching
// the single-tile-per-tick cadence HandleMove enforces for players.
func (s *AISystem) stepToward(mob *world.Mob, dest world.Position) {
	cur := world.Position{X: mob.Pos.X, Y: mob.Pos.Y, MapID: mob.Pos.MapID}
	if cur == dest {
		return
	}
	next := stepOneTile(cur, dest)
	s.world.MoveMob(mob, next)
}

// stepAway retreats one tile directly away from the mob's current
// target, or toward its spawn point if it has lost its target entirely.
func (s *AISystem) stepAway(mob *world.Mob) {
	cur := world.Position{X: mob.Pos.X, Y: mob.Pos.Y, MapID: mob.Pos.MapID}
	from := world.Position{X: mob.SpawnPos.X, Y: mob.SpawnPos.Y, MapID: mob.SpawnPos.MapID}
	if mob.Target != 0 {
		if c := s.world.Character(mob.Target); c != nil {
			from = c.Pos
		}
	}
	dx, dy := sign(cur.X-from.X), sign(cur.Y-from.Y)
	if dx == 0 && dy == 0 {
		dx = 1
	}
	s.world.MoveMob(mob, world.Position{X: cur.X + dx, Y: cur.Y + dy, MapID: cur.MapID})
}

func stepOneTile(cur, dest world.Position) world.Position {
	return world.Position{X: cur.X + sign(dest.X-cur.X), Y: cur.Y + sign(dest.Y-cur.Y), MapID: cur.MapID}
}

func sign(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
