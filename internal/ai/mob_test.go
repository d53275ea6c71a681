package ai

import "testing"

func TestDefaultBrainAcquiresClosestValidTarget(t *testing.T) {
	m := NewMob(1, 100, Position{X: 0, Y: 0, MapID: 4}, 10, 8, 100)
	m.IsAggro = true
	brain := NewDefaultBrain()

	nearby := []Candidate{
		{CharacterID: 5, Pos: Position{X: 6, Y: 0, MapID: 4}},
		{CharacterID: 6, Pos: Position{X: 3, Y: 0, MapID: 4}},
		{CharacterID: 7, Pos: Position{X: 1, Y: 0, MapID: 4}, InSafeZone: true},
	}

	cmd := Tick(m, 100, brain, nearby)
	if m.Target != 6 {
		t.Fatalf("expected closest non-safe-zone candidate 6 acquired, got target %d", m.Target)
	}
	if cmd.Kind != CmdMoveToward {
		t.Fatalf("expected CmdMoveToward toward distant target, got %v", cmd.Kind)
	}
}

func TestDefaultBrainAttacksInMeleeRange(t *testing.T) {
	m := NewMob(1, 100, Position{X: 0, Y: 0, MapID: 4}, 10, 8, 100)
	m.Target = 5
	brain := NewDefaultBrain()
	nearby := []Candidate{{CharacterID: 5, Pos: Position{X: 1, Y: 0, MapID: 4}}}

	cmd := Tick(m, 100, brain, nearby)
	if cmd.Kind != CmdAttack {
		t.Fatalf("expected CmdAttack in melee range, got %v", cmd.Kind)
	}
	if m.State != StateAttack {
		t.Fatalf("expected StateAttack, got %v", m.State)
	}
}

func TestDefaultBrainFleesBelowThreshold(t *testing.T) {
	m := NewMob(1, 100, Position{}, 10, 8, 100)
	m.HP = 10
	m.FleeHPPct = 20
	m.Target = 5

	cmd := Tick(m, 100, NewDefaultBrain(), nil)
	if cmd.Kind != CmdFlee {
		t.Fatalf("expected CmdFlee below HP threshold, got %v", cmd.Kind)
	}
}

func TestLeashExceededDropsTargetAndClearsThreat(t *testing.T) {
	m := NewMob(1, 100, Position{X: 0, Y: 0}, 5, 8, 100)
	m.Target = 5
	m.Threat.Add(5, 100)
	m.Pos = Position{X: 20, Y: 0}

	cmd := Tick(m, 100, NewDefaultBrain(), []Candidate{{CharacterID: 5, Pos: Position{X: 21, Y: 0}}})
	if cmd.Kind != CmdLoseTarget {
		t.Fatalf("expected CmdLoseTarget once leash radius exceeded, got %v", cmd.Kind)
	}
	if m.Target != 0 {
		t.Fatalf("expected target cleared, got %d", m.Target)
	}
	if m.Threat.Total() != 0 {
		t.Fatalf("expected threat table cleared on leash break, got total %d", m.Threat.Total())
	}
}

func TestReturnHomeWhenNoTargetAndAwayFromSpawn(t *testing.T) {
	m := NewMob(1, 100, Position{X: 0, Y: 0}, 10, 8, 100)
	m.Pos = Position{X: 3, Y: 0}

	cmd := Tick(m, 100, NewDefaultBrain(), nil)
	if cmd.Kind != CmdReturnHome {
		t.Fatalf("expected CmdReturnHome, got %v", cmd.Kind)
	}
	if m.State != StateReturn {
		t.Fatalf("expected StateReturn, got %v", m.State)
	}
}

func TestStunBlocksDecisionUntilExpired(t *testing.T) {
	m := NewMob(1, 100, Position{}, 10, 8, 100)
	m.StunMs = 150

	cmd := Tick(m, 100, NewDefaultBrain(), nil)
	if cmd.Kind != CmdNone || m.State != StateStunned {
		t.Fatalf("expected no-op while stunned, got %v / %v", cmd.Kind, m.State)
	}

	cmd = Tick(m, 100, NewDefaultBrain(), nil)
	if m.State == StateStunned {
		t.Fatalf("expected stun to expire and state to resume")
	}
}

func TestOnDamagedSwitchesTargetToHighestThreat(t *testing.T) {
	m := NewMob(1, 100, Position{}, 10, 8, 100)
	OnDamaged(m, 5, 10)
	if m.Target != 5 {
		t.Fatalf("expected first attacker to become target, got %d", m.Target)
	}
	OnDamaged(m, 6, 100)
	if m.Target != 6 {
		t.Fatalf("expected aggro to switch to higher-threat attacker 6, got %d", m.Target)
	}
}

func TestDeadMobNeverActs(t *testing.T) {
	m := NewMob(1, 100, Position{}, 10, 8, 100)
	m.State = StateDead
	cmd := Tick(m, 100, NewDefaultBrain(), []Candidate{{CharacterID: 1, Pos: Position{X: 1}}})
	if cmd.Kind != CmdNone {
		t.Fatalf("expected dead mob to never act, got %v", cmd.Kind)
	}
}
