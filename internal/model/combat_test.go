package model

import "testing"

func TestApplyEffectStackNoneRejectsSecond(t *testing.T) {
	active := ApplyEffect(nil, StatusEffect{Kind: EffectPoison, SourceCharID: 1, DurationMs: 1000, StackPolicy: StackNone})
	active = ApplyEffect(active, StatusEffect{Kind: EffectPoison, SourceCharID: 1, DurationMs: 5000, StackPolicy: StackNone})

	if len(active) != 1 {
		t.Fatalf("expected exactly one effect, got %d", len(active))
	}
	if active[0].RemainingMs != 1000 {
		t.Fatalf("StackNone should keep the original duration, got %d", active[0].RemainingMs)
	}
}

func TestApplyEffectStackRefreshExtendsDuration(t *testing.T) {
	active := ApplyEffect(nil, StatusEffect{Kind: EffectRegenHP, SourceCharID: 1, DurationMs: 1000, StackPolicy: StackRefresh})
	active = ApplyEffect(active, StatusEffect{Kind: EffectRegenHP, SourceCharID: 1, DurationMs: 5000, StackPolicy: StackRefresh})

	if len(active) != 1 {
		t.Fatalf("expected exactly one effect, got %d", len(active))
	}
	if active[0].RemainingMs != 5000 {
		t.Fatalf("StackRefresh should take the new duration, got %d", active[0].RemainingMs)
	}
}

func TestApplyEffectStackableIncrementsUpToMax(t *testing.T) {
	e := StatusEffect{Kind: EffectBleed, SourceCharID: 1, DurationMs: 1000, StackPolicy: StackStackable, MaxStacks: 3}
	active := ApplyEffect(nil, e)
	active = ApplyEffect(active, e)
	active = ApplyEffect(active, e)
	active = ApplyEffect(active, e)

	if len(active) != 1 {
		t.Fatalf("expected one effect entry, got %d", len(active))
	}
	if active[0].Stacks != 3 {
		t.Fatalf("expected stacks capped at MaxStacks=3, got %d", active[0].Stacks)
	}
}

func TestTickEffectsFiresOnTickAndExpires(t *testing.T) {
	active := []StatusEffect{
		{Kind: EffectPoison, DurationMs: 2500, TickIntervalMs: 1000, RemainingMs: 2500},
	}

	var ticks int
	active = TickEffects(active, 1000, func(e *StatusEffect) { ticks++ })
	if len(active) != 1 {
		t.Fatalf("expected effect to survive first tick, got %d entries", len(active))
	}
	if ticks != 1 {
		t.Fatalf("expected 1 tick fired, got %d", ticks)
	}

	active = TickEffects(active, 1000, func(e *StatusEffect) { ticks++ })
	if ticks != 2 {
		t.Fatalf("expected 2 total ticks fired, got %d", ticks)
	}

	active = TickEffects(active, 1000, func(e *StatusEffect) { ticks++ })
	if len(active) != 0 {
		t.Fatalf("expected effect expired after exceeding duration, got %d entries", len(active))
	}
}

func TestThreatTableHighest(t *testing.T) {
	tt := NewThreatTable()
	tt.Add(1, 50)
	tt.Add(2, 100)
	tt.Add(3, 75)

	if got := tt.Highest(); got != 2 {
		t.Fatalf("expected highest threat charID 2, got %d", got)
	}
	if got := tt.Total(); got != 225 {
		t.Fatalf("expected total threat 225, got %d", got)
	}
}

// TestKillCreditLevelWeightedMatchesScenario mirrors §8 scenario 4: party
// of two, level-weighted exp policy, kills mob granting 100 xp; levels 10
// and 20 -> shares floor(100*10/30)=33 and floor(100*20/30)=66, remainder
// 1 distributed to highest-damage dealer.
func TestKillCreditLevelWeightedMatchesScenario(t *testing.T) {
	levels := map[int32]int{10: 10, 20: 20}
	totalLevel := levels[10] + levels[20]
	expReward := int64(100)

	shares := make(map[int32]int64)
	var distributed int64
	for charID, level := range levels {
		share := expReward * int64(level) / int64(totalLevel)
		shares[charID] = share
		distributed += share
	}
	remainder := expReward - distributed

	if shares[10] != 33 {
		t.Fatalf("expected level-10 share 33, got %d", shares[10])
	}
	if shares[20] != 66 {
		t.Fatalf("expected level-20 share 66, got %d", shares[20])
	}
	if remainder != 1 {
		t.Fatalf("expected remainder 1, got %d", remainder)
	}

	highestDamageDealer := int32(20) // given by combat's damage tracking
	shares[highestDamageDealer] += remainder

	if shares[20] != 67 {
		t.Fatalf("expected remainder credited to highest damage dealer, got %d", shares[20])
	}
}

func TestDefaultCombatFormulaDamageIsAtLeastOne(t *testing.T) {
	f := NewDefaultCombatFormula()
	attacker := CombatantStats{WeaponDamage: 1, STR: 1}
	defender := DefenderStats{AC: 10000, Resistances: map[DamageType]int{}}

	dmg := f.Damage(attacker, defender, DamagePhysical, false)
	if dmg < 1 {
		t.Fatalf("damage must be clamped to at least 1, got %d", dmg)
	}
}

func TestDefaultCombatFormulaCriticalMultipliesDamage(t *testing.T) {
	f := NewDefaultCombatFormula()
	attacker := CombatantStats{WeaponDamage: 50, STR: 20}
	defender := DefenderStats{AC: 0, Resistances: map[DamageType]int{}}

	normal := f.Damage(attacker, defender, DamagePhysical, false)
	crit := f.Damage(attacker, defender, DamagePhysical, true)
	if crit <= normal {
		t.Fatalf("expected critical damage %d to exceed normal damage %d", crit, normal)
	}
}
