package combat

import (
	"testing"

	"github.com/wydtm/tmsrv/internal/model"
)

func rngSeq(vals ...int) Rng {
	i := 0
	return func(n int) int {
		v := vals[i%len(vals)]
		i++
		return v
	}
}

func newCombatant(id int32, hp int32) *Combatant {
	return &Combatant{ID: id, HP: hp, MaxHP: hp, Defense: model.DefenderStats{Resistances: map[model.DamageType]int{}}}
}

func TestResolveMissReturnsNoDamage(t *testing.T) {
	f := model.NewDefaultCombatFormula()
	attacker := newCombatant(1, 100)
	defender := newCombatant(2, 100)
	out := Resolve(f, attacker, defender, model.DamagePhysical, ZoneOpen, rngSeq(99))
	if out.Hit {
		t.Fatalf("expected miss with a high roll against low hit chance")
	}
	if out.Damage != 0 {
		t.Fatalf("expected zero damage on miss, got %d", out.Damage)
	}
}

func TestResolveParryPreventsDamage(t *testing.T) {
	f := model.NewDefaultCombatFormula()
	attacker := newCombatant(1, 100)
	defender := newCombatant(2, 100)
	defender.ParryChance = 100
	out := Resolve(f, attacker, defender, model.DamagePhysical, ZoneOpen, rngSeq(0))
	if !out.Hit || !out.Parried {
		t.Fatalf("expected a hit that gets parried, got %+v", out)
	}
	if defender.HP != 100 {
		t.Fatalf("expected no HP loss on parry, got %d", defender.HP)
	}
}

func TestResolveAbsorbShieldConsumesBeforeHP(t *testing.T) {
	f := model.NewDefaultCombatFormula()
	attacker := newCombatant(1, 100)
	attacker.Stats = model.CombatantStats{WeaponDamage: 50, STR: 20}
	defender := newCombatant(2, 100)
	defender.AbsorbShield = 10
	out := Resolve(f, attacker, defender, model.DamagePhysical, ZoneOpen, rngSeq(0))
	if !out.Hit {
		t.Fatalf("expected a hit")
	}
	if out.Absorbed != 10 {
		t.Fatalf("expected 10 damage absorbed, got %d", out.Absorbed)
	}
	if defender.AbsorbShield != 0 {
		t.Fatalf("expected shield consumed, got %d remaining", defender.AbsorbShield)
	}
}

func TestResolveReflectDamagesAttacker(t *testing.T) {
	f := model.NewDefaultCombatFormula()
	attacker := newCombatant(1, 100)
	attacker.Stats = model.CombatantStats{WeaponDamage: 50, STR: 20}
	defender := newCombatant(2, 100)
	defender.ReflectPct = 50
	out := Resolve(f, attacker, defender, model.DamagePhysical, ZoneOpen, rngSeq(0))
	if out.Reflected <= 0 {
		t.Fatalf("expected nonzero reflected damage, got %d", out.Reflected)
	}
	if attacker.HP != 100-out.Reflected {
		t.Fatalf("expected attacker HP reduced by reflected amount, got %d", attacker.HP)
	}
}

func TestResolveKillSetsDeadAndKilled(t *testing.T) {
	f := model.NewDefaultCombatFormula()
	attacker := newCombatant(1, 100)
	attacker.Stats = model.CombatantStats{WeaponDamage: 500, STR: 50}
	defender := newCombatant(2, 5)
	out := Resolve(f, attacker, defender, model.DamagePhysical, ZoneOpen, rngSeq(0))
	if !out.Killed || !defender.Dead {
		t.Fatalf("expected defender killed, got %+v dead=%v", out, defender.Dead)
	}
	if defender.HP != 0 {
		t.Fatalf("expected HP clamped to 0, got %d", defender.HP)
	}
}

func TestResolveBlocksPvPInSanctuary(t *testing.T) {
	f := model.NewDefaultCombatFormula()
	attacker := newCombatant(1, 100)
	attacker.IsPlayer = true
	defender := newCombatant(2, 100)
	defender.IsPlayer = true
	out := Resolve(f, attacker, defender, model.DamagePhysical, ZoneSanctuary, rngSeq(0))
	if out.Hit || out.Damage != 0 {
		t.Fatalf("expected sanctuary to block PvP entirely, got %+v", out)
	}
}

func TestResolveIncapacitatedAttackerCannotAct(t *testing.T) {
	f := model.NewDefaultCombatFormula()
	attacker := newCombatant(1, 100)
	attacker.Effects = []model.StatusEffect{{Kind: model.EffectStun}}
	defender := newCombatant(2, 100)
	out := Resolve(f, attacker, defender, model.DamagePhysical, ZoneOpen, rngSeq(0))
	if out.Hit {
		t.Fatalf("expected stunned attacker to never land a hit")
	}
}

func TestComputeDeathPenaltyByAlignment(t *testing.T) {
	lawful := newCombatant(1, 0)
	lawful.Alignment = 100
	chaotic := newCombatant(2, 0)
	chaotic.Alignment = -50

	lp := ComputeDeathPenalty(lawful)
	cp := ComputeDeathPenalty(chaotic)
	if lp.ItemDropRoll {
		t.Fatalf("expected lawful death to never roll an item drop")
	}
	if !cp.ItemDropRoll {
		t.Fatalf("expected chaotic death to roll an item drop")
	}
	if cp.ExpLossFraction <= lp.ExpLossFraction {
		t.Fatalf("expected chaotic exp loss fraction to exceed lawful's")
	}
}

func TestKillCreditMatchesLevelWeightedScenario(t *testing.T) {
	shares := KillCredit(100, map[int32]int{10: 10, 20: 20}, 20)
	if shares[10] != 33 || shares[20] != 67 {
		t.Fatalf("expected {10:33, 20:67}, got %+v", shares)
	}
}

func TestEqualKillCreditSplitsEvenlyWithRemainderToFirst(t *testing.T) {
	shares := EqualKillCredit(10, []int32{1, 2, 3})
	if shares[1] != 4 || shares[2] != 3 || shares[3] != 3 {
		t.Fatalf("expected remainder credited to first id, got %+v", shares)
	}
}
