// Package combat drives the attack-resolution order of §4.5 on top of
// internal/model's pluggable CombatFormula, StatusEffect, and
// ThreatTable: target validity, hit roll, parry/block, critical,
// damage, reflect/absorb, HP delta, and death check. Threat updates are
// left to the caller; Resolve does not touch a ThreatTable.
package combat

import (
	"math/rand"

	"github.com/wydtm/tmsrv/internal/model"
)

// ZoneFlag restricts what kind of combat a map tile permits (§4.5, §4.10
// safety-zone carve-out inherited from the teacher's agro-scan check).
type ZoneFlag int

const (
	ZoneOpen ZoneFlag = iota
	ZonePvE
	ZonePvP
	ZoneSanctuary
)

// Combatant is the subset of a character's or mob's live state the
// engine reads and mutates during one attack resolution.
type Combatant struct {
	ID          int32
	IsPlayer    bool
	Alignment   int32 // negative = chaotic/PK-flagged, per §9 death-penalty resolution
	HP, MaxHP   int32
	Stats       model.CombatantStats
	Defense     model.DefenderStats
	Effects     []model.StatusEffect
	ReflectPct  int // percent of incoming damage reflected to attacker
	AbsorbShield int32 // flat damage absorbed before HP loss, consumed on use
	Dead        bool

	ParryChance int // percent
	BlockChance int // percent
}

// HasEffect reports whether the combatant currently carries a status
// effect of the given kind.
func (c *Combatant) HasEffect(kind model.EffectKind) bool {
	for _, e := range c.Effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func (c *Combatant) isIncapacitated() bool {
	return c.HasEffect(model.EffectStun) || c.HasEffect(model.EffectParalyze) ||
		c.HasEffect(model.EffectSleep)
}

// Outcome records what happened in one attack resolution, enough for a
// caller to build wire packets and audit/exp bookkeeping from.
type Outcome struct {
	Hit       bool
	Parried   bool
	Blocked   bool
	Critical  bool
	Damage    int32
	Reflected int32
	Absorbed  int32
	Killed    bool
}

// Rng is the source of randomness the engine consults; tests inject a
// deterministic one instead of math/rand's global source.
type Rng func(n int) int

func DefaultRng() Rng { return rand.Intn }

// Resolve runs one attack of attacker against defender through the full
// §4.5 order: validity -> hit -> parry -> block -> critical -> damage ->
// reflect/absorb -> HP delta -> death check (threat is updated by the
// caller from the returned Outcome). zone gates PvP; attacking another
// player outside ZonePvP/ZoneOpen is rejected.
func Resolve(formula model.CombatFormula, attacker, defender *Combatant, damageType model.DamageType, zone ZoneFlag, rng Rng) Outcome {
	var out Outcome
	if attacker.Dead || defender.Dead {
		return out
	}
	if attacker.isIncapacitated() {
		return out
	}
	if defender.IsPlayer && attacker.IsPlayer && zone != ZonePvP && zone != ZoneOpen {
		return out // PvP allowed only in ZonePvP/ZoneOpen
	}

	out.Hit = formula.RollHit(attacker.Stats, defender.Defense.AC, rng)
	if !out.Hit {
		return out
	}

	if defender.ParryChance > 0 && rng(100) < defender.ParryChance {
		out.Parried = true
		return out
	}
	if defender.BlockChance > 0 && rng(100) < defender.BlockChance {
		out.Blocked = true
		return out
	}

	out.Critical = formula.RollCritical(attacker.Stats, rng)
	dmg := formula.Damage(attacker.Stats, defender.Defense, damageType, out.Critical)

	if defender.AbsorbShield > 0 {
		absorbed := dmg
		if absorbed > defender.AbsorbShield {
			absorbed = defender.AbsorbShield
		}
		defender.AbsorbShield -= absorbed
		dmg -= absorbed
		out.Absorbed = absorbed
	}

	if defender.ReflectPct > 0 && dmg > 0 {
		reflected := dmg * int32(defender.ReflectPct) / 100
		out.Reflected = reflected
		attacker.HP -= reflected
		if attacker.HP <= 0 {
			attacker.HP = 0
			attacker.Dead = true
		}
	}

	out.Damage = dmg
	if dmg > 0 {
		defender.HP -= dmg
		if defender.HP <= 0 {
			defender.HP = 0
			defender.Dead = true
			out.Killed = true
		}
	}

	return out
}

// DeathPenalty computes the exp-loss fraction and whether an item drop
// roll should occur on death (§9 Open Question: "the exact exp-loss
// fraction and item-drop-on-death conditions are unspecified" — resolved
// here as alignment-gated: chaotic/PK-flagged characters lose more exp
// and risk an item drop, lawful characters only lose exp).
type DeathPenalty struct {
	ExpLossFraction float64
	ItemDropRoll    bool
}

func ComputeDeathPenalty(victim *Combatant) DeathPenalty {
	if victim.Alignment < 0 {
		return DeathPenalty{ExpLossFraction: 0.10, ItemDropRoll: true}
	}
	return DeathPenalty{ExpLossFraction: 0.03, ItemDropRoll: false}
}

// KillCredit splits exp reward among a party under the level-weighted
// policy (§8 scenario 4): share = floor(exp*level/totalLevel), remainder
// goes to the highest damage dealer.
func KillCredit(expReward int64, levels map[int32]int, highestDamageDealer int32) map[int32]int64 {
	var totalLevel int
	for _, lvl := range levels {
		totalLevel += lvl
	}
	shares := make(map[int32]int64, len(levels))
	if totalLevel == 0 {
		return shares
	}
	var distributed int64
	for charID, lvl := range levels {
		share := expReward * int64(lvl) / int64(totalLevel)
		shares[charID] = share
		distributed += share
	}
	if remainder := expReward - distributed; remainder > 0 {
		shares[highestDamageDealer] += remainder
	}
	return shares
}

// EqualKillCredit splits exp reward evenly, remainder to the first
// member in iteration order of ids (stable because ids is sorted by the
// caller).
func EqualKillCredit(expReward int64, ids []int32) map[int32]int64 {
	shares := make(map[int32]int64, len(ids))
	if len(ids) == 0 {
		return shares
	}
	share := expReward / int64(len(ids))
	for _, id := range ids {
		shares[id] = share
	}
	shares[ids[0]] += expReward - share*int64(len(ids))
	return shares
}
