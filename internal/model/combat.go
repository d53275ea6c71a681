package model

// StackPolicy controls how a new application of a status effect interacts
// with an existing one of the same kind (§4.5, §9 Open Question: "the
// stacking policy for buffs... is indicated as stackable/refresh per
// effect but not enumerated" — resolved here as an explicit per-effect
// field rather than an implicit default).
type StackPolicy int

const (
	StackNone      StackPolicy = iota // reject if present
	StackRefresh                      // extend duration
	StackStackable                    // increment count up to MaxStacks
)

// EffectKind enumerates status effect categories; damage/heal-over-time
// effects use Magnitude per tick, stat buffs/debuffs apply Magnitude as a
// flat stat delta for their duration.
type EffectKind int

const (
	EffectPoison EffectKind = iota
	EffectBleed
	EffectRegenHP
	EffectRegenMP
	EffectStatBuff
	EffectStatDebuff
	EffectStun
	EffectParalyze
	EffectSleep
	EffectSilence
	EffectFear
	EffectRoot
)

// StatusEffect is `{kind, magnitude, durationMs, tickIntervalMs,
// stackPolicy}` (§4.5).
type StatusEffect struct {
	SourceCharID   int32
	Kind           EffectKind
	Magnitude      int32
	DurationMs     int64
	TickIntervalMs int64
	StackPolicy    StackPolicy
	MaxStacks      int

	Stacks       int
	RemainingMs  int64
	sinceLastTickMs int64
}

// ApplyEffect folds a newly-rolled effect into an existing slice of active
// effects of the same kind, honoring StackPolicy. Returns the updated
// slice.
func ApplyEffect(active []StatusEffect, incoming StatusEffect) []StatusEffect {
	for i := range active {
		if active[i].Kind != incoming.Kind || active[i].SourceCharID != incoming.SourceCharID {
			continue
		}
		switch incoming.StackPolicy {
		case StackNone:
			return active // reject; existing instance wins
		case StackRefresh:
			active[i].RemainingMs = incoming.DurationMs
			return active
		case StackStackable:
			if active[i].Stacks < incoming.MaxStacks {
				active[i].Stacks++
			}
			active[i].RemainingMs = incoming.DurationMs
			return active
		}
	}
	incoming.Stacks = 1
	incoming.RemainingMs = incoming.DurationMs
	return append(active, incoming)
}

// TickEffects advances every active effect by dtMs, firing onTick for
// each effect whose accumulated time crosses a tick boundary, and drops
// expired effects. Returns the surviving slice.
func TickEffects(active []StatusEffect, dtMs int64, onTick func(e *StatusEffect)) []StatusEffect {
	survivors := active[:0]
	for i := range active {
		e := &active[i]
		e.RemainingMs -= dtMs
		if e.RemainingMs <= 0 {
			continue
		}
		if e.TickIntervalMs > 0 {
			e.sinceLastTickMs += dtMs
			for e.sinceLastTickMs >= e.TickIntervalMs {
				e.sinceLastTickMs -= e.TickIntervalMs
				if onTick != nil {
					onTick(e)
				}
			}
		}
		survivors = append(survivors, *e)
	}
	return survivors
}

// ThreatTable is a mob's per-attacker hate/threat accumulator (§4.5 step
// 9, §4.10). Highest entry is the mob's current target.
type ThreatTable struct {
	entries map[int32]int64
}

func NewThreatTable() *ThreatTable {
	return &ThreatTable{entries: make(map[int32]int64)}
}

func (t *ThreatTable) Add(charID int32, amount int64) {
	t.entries[charID] += amount
}

func (t *ThreatTable) Total() int64 {
	var sum int64
	for _, v := range t.entries {
		sum += v
	}
	return sum
}

func (t *ThreatTable) Share(charID int32) int64 {
	return t.entries[charID]
}

// Highest returns the charID with the most accumulated threat, or 0 if
// the table is empty.
func (t *ThreatTable) Highest() int32 {
	var best int32
	var bestAmount int64 = -1
	for id, amount := range t.entries {
		if amount > bestAmount {
			best, bestAmount = id, amount
		}
	}
	return best
}

func (t *ThreatTable) Clear() {
	t.entries = make(map[int32]int64)
}

// CombatantStats is the subset of a character's or mob's derived stats
// the damage formula needs (§4.5 step 6).
type CombatantStats struct {
	Level          int
	STR, DEX, CON  int
	WeaponDamage   int
	SkillID        int32
	SkillLevel     int
	HitMod, DmgMod int
}

type DefenderStats struct {
	AC          int
	Level       int
	Resistances map[DamageType]int
}

// DamageType distinguishes resistance buckets the damage formula
// consults (raw = f(attacker) - g(defense, resistance[damageType])).
type DamageType int

const (
	DamagePhysical DamageType = iota
	DamageFire
	DamageCold
	DamageLightning
	DamageHoly
	DamageDark
)

// CombatFormula is the pluggable damage-calculation strategy (§9 Open
// Question: "the precise damage formula coefficients are not present in
// headers; treat as a pluggable strategy"). The default implementation
// is DefaultCombatFormula; internal/scripting provides no implementation
// of it.
type CombatFormula interface {
	RollHit(attacker CombatantStats, defenderDodge int, rng func(int) int) bool
	RollCritical(attacker CombatantStats, rng func(int) int) bool
	Damage(attacker CombatantStats, defender DefenderStats, damageType DamageType, critical bool) int32
}

// DefaultCombatFormula is the stock Go implementation, a straightforward
// STR/weapon/skill-scaled roll against AC and resistance, in the teacher's
// "table-driven coefficients" idiom rather than hidden constants.
type DefaultCombatFormula struct {
	BaseHitChance     float64
	CriticalChance    float64
	CriticalMultiplier float64
}

func (f DefaultCombatFormula) RollHit(attacker CombatantStats, defenderDodge int, rng func(int) int) bool {
	chance := f.BaseHitChance*100 + float64(attacker.HitMod) - float64(defenderDodge)
	if chance < 5 {
		chance = 5
	}
	if chance > 95 {
		chance = 95
	}
	return rng(100) < int(chance)
}

func (f DefaultCombatFormula) RollCritical(attacker CombatantStats, rng func(int) int) bool {
	return rng(100) < int(f.CriticalChance*100)
}

func (f DefaultCombatFormula) Damage(attacker CombatantStats, defender DefenderStats, damageType DamageType, critical bool) int32 {
	raw := float64(attacker.WeaponDamage) + float64(attacker.STR)*0.5 + float64(attacker.DmgMod)
	if attacker.SkillLevel > 0 {
		raw += float64(attacker.SkillLevel) * 1.5
	}
	defense := float64(defender.AC) + float64(defender.Resistances[damageType])
	dmg := raw - defense*0.5
	if critical {
		dmg *= f.CriticalMultiplier
	}
	if dmg < 1 {
		dmg = 1
	}
	return int32(dmg)
}

func NewDefaultCombatFormula() DefaultCombatFormula {
	return DefaultCombatFormula{BaseHitChance: 0.75, CriticalChance: 0.05, CriticalMultiplier: 2.0}
}
