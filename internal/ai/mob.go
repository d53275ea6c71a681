// Package ai implements the mob controller's finite state machine,
// threat-driven target selection, and leash behavior (§4.10): Go owns
// target detection and command execution, a pluggable Brain owns the
// decision logic so a deployment can swap in a scripted response table
// without touching the state machine itself.
package ai

import "github.com/wydtm/tmsrv/internal/model"

// MobState is the FSM state of one mob (§4.10).
type MobState int

const (
	StateIdle MobState = iota
	StateAlert
	StateChase
	StateAttack
	StateFlee
	StateHeal
	StatePatrol
	StateReturn
	StateDead
	StateStunned
	StateFeared
)

func (s MobState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAlert:
		return "alert"
	case StateChase:
		return "chase"
	case StateAttack:
		return "attack"
	case StateFlee:
		return "flee"
	case StateHeal:
		return "heal"
	case StatePatrol:
		return "patrol"
	case StateReturn:
		return "return"
	case StateDead:
		return "dead"
	case StateStunned:
		return "stunned"
	case StateFeared:
		return "feared"
	default:
		return "unknown"
	}
}

// Event is a stimulus the FSM reacts to, fed in by the owning tick
// system as it observes the world each frame (§4.10).
type Event int

const (
	EventTargetFound Event = iota
	EventTargetLost
	EventDamaged
	EventHealthLow
	EventAllyKilled
	EventReinforcementArrived
	EventLeashExceeded
	EventReachedTarget
	EventCrowdControlled
	EventCrowdControlCleared
)

// Position is a 2D world coordinate on one map.
type Position struct {
	X, Y  int32
	MapID int32
}

func chebyshev(a, b Position) int32 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dy > dx {
		return dy
	}
	return dx
}

// Mob is the AI-relevant slice of a live monster's state; the owning
// world package embeds or references this alongside its own render/combat
// fields.
type Mob struct {
	ID          int32
	TemplateID  int32
	State       MobState
	Pos         Position
	SpawnPos    Position
	LeashRadius int32
	AggroRadius int32
	IsAggro     bool // passive mobs only fight back, never scan for targets
	HP, MaxHP   int32

	Target     int32 // character id, 0 if none
	Threat     *model.ThreatTable
	StunMs     int64
	FearMs     int64
	FleeHPPct  int // flee if HP% drops below this, 0 disables
	HealHPPct  int // self-heal if HP% drops below this and the mob can heal, 0 disables
}

// NewMob constructs a mob in StateIdle at its spawn point with an empty
// threat table.
func NewMob(id, templateID int32, spawn Position, leashRadius, aggroRadius int32, maxHP int32) *Mob {
	return &Mob{
		ID: id, TemplateID: templateID,
		State: StateIdle, Pos: spawn, SpawnPos: spawn,
		LeashRadius: leashRadius, AggroRadius: aggroRadius,
		HP: maxHP, MaxHP: maxHP,
		Threat: model.NewThreatTable(),
	}
}

// Candidate is a nearby potential target as observed by the tick system;
// the FSM doesn't know anything about player structs, only this shape.
type Candidate struct {
	CharacterID int32
	Pos         Position
	Dead        bool
	Invisible   bool
	InSafeZone  bool
}

// Brain decides what a mob in a given state, facing a given event, should
// do next. DefaultBrain implements the stock aggro/chase/attack/flee
// policy; a Lua-scripted brain can satisfy the same interface.
type Brain interface {
	Decide(m *Mob, ev Event, nearby []Candidate) Command
}

// CommandKind is the action the tick system should carry out after a
// Decide call.
type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdMoveToward
	CmdAttack
	CmdUseSkill
	CmdFlee
	CmdReturnHome
	CmdPatrolStep
	CmdLoseTarget
)

type Command struct {
	Kind     CommandKind
	TargetID int32
	SkillID  int32
	Dest     Position
}

// DefaultBrain is the stock Go decision policy ported from the teacher's
// guard/monster AI texture: scan within AggroRadius for the closest valid
// candidate, chase until in melee range, flee below FleeHPPct, return home
// once the target is lost or leash exceeded.
type DefaultBrain struct {
	MeleeRange int32
}

func NewDefaultBrain() *DefaultBrain {
	return &DefaultBrain{MeleeRange: 1}
}

func (b *DefaultBrain) Decide(m *Mob, ev Event, nearby []Candidate) Command {
	switch m.State {
	case StateDead, StateStunned, StateFeared:
		return Command{Kind: CmdNone}
	}

	if m.FleeHPPct > 0 && m.MaxHP > 0 && int(m.HP)*100/int(m.MaxHP) < m.FleeHPPct {
		return Command{Kind: CmdFlee}
	}

	if m.Target == 0 && m.IsAggro {
		if c, ok := closest(m, nearby); ok {
			m.Target = c.CharacterID
		}
	}

	if m.Target == 0 {
		if chebyshev(m.Pos, m.SpawnPos) > 0 {
			return Command{Kind: CmdReturnHome, Dest: m.SpawnPos}
		}
		return Command{Kind: CmdPatrolStep}
	}

	if chebyshev(m.Pos, m.SpawnPos) > m.LeashRadius {
		m.Target = 0
		m.Threat.Clear()
		return Command{Kind: CmdLoseTarget}
	}

	target, found := findCandidate(nearby, m.Target)
	if !found || target.Dead {
		m.Target = 0
		return Command{Kind: CmdLoseTarget}
	}

	dist := chebyshev(m.Pos, target.Pos)
	if dist <= b.MeleeRange {
		return Command{Kind: CmdAttack, TargetID: m.Target}
	}
	return Command{Kind: CmdMoveToward, TargetID: m.Target, Dest: target.Pos}
}

func closest(m *Mob, nearby []Candidate) (Candidate, bool) {
	var best Candidate
	bestDist := m.AggroRadius + 1
	found := false
	for _, c := range nearby {
		if c.Dead || c.Invisible || c.InSafeZone {
			continue
		}
		d := chebyshev(m.Pos, c.Pos)
		if d <= m.AggroRadius && d < bestDist {
			best, bestDist, found = c, d, true
		}
	}
	return best, found
}

func findCandidate(nearby []Candidate, charID int32) (Candidate, bool) {
	for _, c := range nearby {
		if c.CharacterID == charID {
			return c, true
		}
	}
	return Candidate{}, false
}

// Tick advances one mob one frame: applies crowd-control timers, consults
// the Brain, and transitions State to match the resulting Command.
func Tick(m *Mob, dtMs int64, brain Brain, nearby []Candidate) Command {
	if m.State == StateDead {
		return Command{Kind: CmdNone}
	}
	if m.StunMs > 0 {
		m.StunMs -= dtMs
		if m.StunMs <= 0 {
			m.State = StateIdle
		} else {
			m.State = StateStunned
			return Command{Kind: CmdNone}
		}
	}
	if m.FearMs > 0 {
		m.FearMs -= dtMs
		if m.FearMs <= 0 {
			m.State = StateIdle
		} else {
			m.State = StateFeared
			return Command{Kind: CmdFlee}
		}
	}

	cmd := brain.Decide(m, EventTargetFound, nearby)
	switch cmd.Kind {
	case CmdAttack, CmdUseSkill:
		m.State = StateAttack
	case CmdMoveToward:
		m.State = StateChase
	case CmdFlee:
		m.State = StateFlee
	case CmdReturnHome:
		m.State = StateReturn
	case CmdPatrolStep:
		m.State = StatePatrol
	case CmdLoseTarget:
		m.State = StateIdle
	}
	return cmd
}

// OnDamaged folds attacker threat into the mob's threat table and, if the
// mob is untargeted or the attacker now leads, switches target to the
// highest-threat attacker (§4.10 reinforcement / aggro-switch behavior).
func OnDamaged(m *Mob, attackerID int32, amount int64) {
	m.Threat.Add(attackerID, amount)
	if m.Target == 0 {
		m.Target = attackerID
		return
	}
	if top := m.Threat.Highest(); top != 0 && top != m.Target {
		m.Target = top
	}
}
