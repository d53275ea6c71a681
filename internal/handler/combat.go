package handler

import (
	"fmt"
	"math/rand"

	"github.com/wydtm/tmsrv/internal/ai"
	"github.com/wydtm/tmsrv/internal/combat"
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/world"
)

func rngIntn(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.Intn(n)
}

const meleeRange = 1

// HandleAttack resolves one melee swing through combat.Resolve, applying
// the zone gate, HP delta, threat update, and death handling in one pass
// (§4.5).
func (d *Deps) HandleAttack(sess any, r *packet.Reader) {
	attacker := d.characterFor(sess)
	if attacker == nil || attacker.Lifecycle != world.LifecycleInWorld || attacker.Dead {
		return
	}
	targetKind := r.ReadC() // 0 = mob, 1 = character
	targetID := r.ReadD()

	zone := d.zoneAt(attacker.Pos)

	if targetKind == 0 {
		d.resolveAttackOnMob(attacker, targetID, zone, 0)
		return
	}
	d.resolveAttackOnCharacter(attacker, targetID, zone, 0)
}

// HandleSkillUse resolves a single-target attack skill the same way as a
// melee attack, charging its MP/HP cost first and using the skill's
// attribute as the damage type (§4.5, §4.9 skill objectives). The
// skill's damage dice are not applied and no item cost is charged.
func (d *Deps) HandleSkillUse(sess any, r *packet.Reader) {
	caster := d.characterFor(sess)
	if caster == nil || caster.Lifecycle != world.LifecycleInWorld || caster.Dead {
		return
	}
	skillID := r.ReadD()
	targetKind := r.ReadC()
	targetID := r.ReadD()

	skill := d.Content.Skills.Get(skillID)
	if skill == nil {
		return
	}
	if caster.MP < int32(skill.MpConsume) || caster.HP <= int32(skill.HpConsume) {
		d.sendSystemMessage(caster, "not enough MP/HP")
		return
	}
	caster.MP -= int32(skill.MpConsume)
	caster.HP -= int32(skill.HpConsume)
	d.advanceSkillObjectives(skillID)

	zone := d.zoneAt(caster.Pos)
	damageType := model.DamageType(skill.Attr)

	if targetKind == 0 {
		d.resolveAttackOnMob(caster, targetID, zone, damageType)
		return
	}
	d.resolveAttackOnCharacter(caster, targetID, zone, damageType)
}

func (d *Deps) zoneAt(pos world.Position) combat.ZoneFlag {
	if d.Content.Maps == nil {
		return combat.ZoneOpen
	}
	return d.Content.Maps.ZoneFlagAt(int16(pos.MapID), pos.X, pos.Y)
}

func combatantFromCharacter(c *world.Character) *combat.Combatant {
	return &combat.Combatant{
		ID: c.ID, IsPlayer: true, Alignment: c.Alignment,
		HP: c.HP, MaxHP: c.MaxHP, Stats: c.Stats, Defense: c.Defense, Effects: c.Effects,
	}
}

func combatantFromMob(m *world.Mob) *combat.Combatant {
	return &combat.Combatant{
		ID: m.ID, IsPlayer: false,
		HP: m.HP, MaxHP: m.MaxHP,
		Stats:   model.CombatantStats{Level: int(m.TemplateID)},
		Defense: model.DefenderStats{Resistances: map[model.DamageType]int{}},
	}
}

func (d *Deps) resolveAttackOnCharacter(attacker *world.Character, targetID int32, zone combat.ZoneFlag, dmgType model.DamageType) {
	defender := d.World.Character(targetID)
	if defender == nil || defender.Dead {
		return
	}
	if chebyshevDist(attacker.Pos, defender.Pos) > meleeRange {
		return
	}
	atkC := combatantFromCharacter(attacker)
	defC := combatantFromCharacter(defender)
	out := combat.Resolve(d.Formula, atkC, defC, dmgType, zone, combat.DefaultRng())

	defender.HP = defC.HP
	attacker.HP = atkC.HP
	d.sendCombatResult(attacker, defender.ID, out)
	d.sendCombatResult(defender, attacker.ID, out)

	if out.Killed {
		d.killCharacter(defender, attacker.ID)
		d.scoreGuildWarKill(attacker, defender)
	}
}

// scoreGuildWarKill credits a guild-war point to the killer's guild
// against the victim's, if the two guilds have an active war running
// (§3 guild war scoring).
func (d *Deps) scoreGuildWarKill(killer, victim *world.Character) {
	killerGuild := d.World.Guilds.GuildOf(killer.ID)
	victimGuild := d.World.Guilds.GuildOf(victim.ID)
	if killerGuild == 0 || victimGuild == 0 || killerGuild == victimGuild {
		return
	}
	d.World.Guilds.AddWarScore(killerGuild, victimGuild, 1)
}

func (d *Deps) resolveAttackOnMob(attacker *world.Character, targetID int32, zone combat.ZoneFlag, dmgType model.DamageType) {
	mob := d.World.Mob(targetID)
	if mob == nil || mob.HP <= 0 {
		return
	}
	if chebyshevDist(attacker.Pos, world.Position{X: mob.Pos.X, Y: mob.Pos.Y, MapID: mob.Pos.MapID}) > meleeRange {
		return
	}
	atkC := combatantFromCharacter(attacker)
	defC := combatantFromMob(mob)
	out := combat.Resolve(d.Formula, atkC, defC, dmgType, zone, combat.DefaultRng())

	mob.HP = defC.HP
	attacker.HP = atkC.HP
	ai.OnDamaged(&mob.Mob, attacker.ID, int64(out.Damage))
	d.sendCombatResult(attacker, mob.ID, out)

	if out.Killed {
		d.killMob(mob, attacker)
	}
}

// ResolveMobAttack applies one mob-initiated melee swing against a
// character, the AI controller's counterpart to resolveAttackOnMob
// (§4.10 CmdAttack execution).
func (d *Deps) ResolveMobAttack(mob *world.Mob, targetID int32) {
	defender := d.World.Character(targetID)
	if defender == nil || defender.Dead {
		return
	}
	zone := d.zoneAt(defender.Pos)
	atkC := combatantFromMob(mob)
	defC := combatantFromCharacter(defender)
	out := combat.Resolve(d.Formula, atkC, defC, model.DamagePhysical, zone, combat.DefaultRng())

	defender.HP = defC.HP
	mob.HP = atkC.HP
	d.sendCombatResult(defender, mob.ID, out)

	if out.Killed {
		d.killCharacter(defender, mob.ID)
	}
}

func (d *Deps) sendCombatResult(c *world.Character, otherID int32, out combat.Outcome) {
	w := packet.NewWriter()
	w.WriteD(otherID)
	w.WriteC(boolByte(out.Hit))
	w.WriteC(boolByte(out.Critical))
	w.WriteD(out.Damage)
	w.WriteC(boolByte(out.Killed))
	d.sendTo(c, packet.OpCombatResult, w)
}

// killCharacter applies the §4.5/§9 death penalty (exp loss, possible
// item drop for chaotic/PK-flagged victims) and transitions lifecycle.
// killerID is a character id for a PvP kill or a mob id for a mob kill;
// the distinction only matters to the client's kill-feed rendering.
func (d *Deps) killCharacter(victim *world.Character, killerID int32) {
	victim.Dead = true
	victim.Lifecycle = world.LifecycleDead
	penalty := combat.ComputeDeathPenalty(combatantFromCharacter(victim))
	loss := int64(float64(victim.Exp) * penalty.ExpLossFraction)
	victim.Exp -= loss
	if victim.Exp < 0 {
		victim.Exp = 0
	}
	if penalty.ItemDropRoll {
		d.dropRandomItem(victim)
	}
	w := packet.NewWriter()
	w.WriteD(killerID)
	d.sendTo(victim, packet.OpDeath, w)
}

// dropRandomItem ejects the first occupied inventory slot onto the
// ground as a PK death penalty (§9).
func (d *Deps) dropRandomItem(c *world.Character) {
	var slot = -1
	var item model.Item
	c.Inventory.Each(func(s int, it model.Item) {
		if slot == -1 {
			slot, item = s, it
		}
	})
	if slot == -1 {
		return
	}
	_, _ = c.Inventory.Remove(slot)
	nowMs := d.Now()
	d.World.DropGroundItem(item, c.Pos, 0, d.Config.Economy.LootWindow.Milliseconds(), d.Config.Economy.GroundItemTTL.Milliseconds(), nowMs)
}

// killMob credits experience (split across a party if the killer is
// partied, §8 scenario 4), rolls drops, and despawns the corpse.
func (d *Deps) killMob(mob *world.Mob, killer *world.Character) {
	mob.HP = 0
	tmpl := d.Content.Mobs.Get(mob.TemplateID)
	var exp int32
	if tmpl != nil {
		exp = tmpl.Exp
	}

	party := d.World.Parties.GetParty(killer.ID)
	if party == nil {
		d.awardExp(killer, int64(exp))
	} else {
		levels := make(map[int32]int, len(party.Members))
		for _, id := range party.Members {
			if m := d.World.Character(id); m != nil {
				levels[id] = m.Level
			}
		}
		shares := combat.KillCredit(int64(exp), levels, killer.ID)
		for id, share := range shares {
			if m := d.World.Character(id); m != nil {
				d.awardExp(m, share)
			}
		}
	}

	d.advanceKillObjectives(mob.TemplateID)
	d.rollDrops(mob, killer)
	d.World.DespawnMob(mob.ID)
}

// awardExp credits amount experience and applies any level-ups the gain
// crosses, one at a time so a large kill can carry a character through
// several levels in one pass. The level curve is scripted
// (scripting.Engine.LevelFromExp) rather than hardcoded so content can
// retune it without a binary rebuild; each level adds 2*CON to MaxHP and
// DEX to MaxMP, since there is no separate per-level stat table to
// consult.
func (d *Deps) awardExp(c *world.Character, amount int64) {
	if amount <= 0 {
		return
	}
	c.Exp += amount
	if d.Scripts == nil {
		return
	}
	for {
		next := d.Scripts.LevelFromExp(int(c.Exp))
		if next <= c.Level {
			return
		}
		c.Level = next
		c.MaxHP += int32(c.Stats.CON) * 2
		c.MaxMP += int32(c.Stats.DEX)
		c.HP = c.MaxHP
		c.MP = c.MaxMP
		d.sendSystemMessage(c, fmt.Sprintf("升級！目前等級 %d", c.Level))
		d.checkReachLevelObjectives(c)
	}
}

// advanceKillObjectives walks the reverse kill index for mobTemplateID and
// bumps progress on every active instance with a matching objective,
// flipping it to ready-to-turn-in once every required objective is met
// (§4.9).
func (d *Deps) advanceKillObjectives(mobTemplateID int32) {
	d.advanceObjectiveEntries(d.World.Quests.OnMobKilled(mobTemplateID), nil)
}

func (d *Deps) sendQuestUpdate(c *world.Character, qi *model.QuestInstance) {
	w := packet.NewWriter()
	w.WriteD(qi.QuestID)
	w.WriteC(byte(qi.State))
	w.WriteC(byte(len(qi.ObjectiveProgress)))
	for _, p := range qi.ObjectiveProgress {
		w.WriteD(p)
	}
	d.sendTo(c, packet.OpQuestUpdateResult, w)
}

func (d *Deps) rollDrops(mob *world.Mob, killer *world.Character) {
	if d.Content.Drops == nil {
		return
	}
	drops := d.Content.Drops.Get(mob.TemplateID)
	nowMs := d.Now()
	for _, drop := range drops {
		if rngIntn(1000000) >= drop.Chance {
			continue
		}
		qty := drop.Min
		if drop.Max > drop.Min {
			qty += rngIntn(drop.Max - drop.Min + 1)
		}
		item := model.Item{ItemID: drop.ItemID, Value: int32(qty)}
		item.SetRefineLevel(int16(drop.EnchantLevel))
		d.World.DropGroundItem(item, world.Position{X: mob.Pos.X, Y: mob.Pos.Y, MapID: mob.Pos.MapID},
			killer.ID, d.Config.Economy.LootWindow.Milliseconds(), d.Config.Economy.GroundItemTTL.Milliseconds(), nowMs)
	}
}

func chebyshevDist(a, b world.Position) int32 {
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
