package handler

import (
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/world"
)

// HandleQuestHistory replies with every quest instance tracked for the
// calling character, active and completed alike (§4.9 quest log).
func (d *Deps) HandleQuestHistory(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	instances := d.World.CharacterQuests(c.ID)
	w := packet.NewWriter()
	w.WriteH(uint16(len(instances)))
	for _, qi := range instances {
		w.WriteD(qi.QuestID)
		w.WriteC(byte(qi.State))
	}
	d.sendTo(c, packet.OpQuestUpdateResult, w)
}

// HandleQuestAccept starts a new instance of a quest template, rejecting
// level range, prerequisite, exclusivity, and cooldown violations (§4.9).
func (d *Deps) HandleQuestAccept(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld {
		return
	}
	questID := r.ReadD()
	tmpl := d.Content.Quests.Get(questID)
	if tmpl == nil {
		return
	}
	if c.Level < tmpl.MinLevel || (tmpl.MaxLevel > 0 && c.Level > tmpl.MaxLevel) {
		d.sendSystemMessage(c, "level requirement not met")
		return
	}
	if existing, ok := d.World.QuestInstance(c.ID, questID); ok {
		if existing.State == model.QuestActive || existing.State == model.QuestReadyToTurnIn {
			return
		}
		if !tmpl.Flags.Repeatable {
			return
		}
		nowMs := d.Now()
		if tmpl.CooldownSeconds > 0 && nowMs/1000-existing.LastCompletedTime < tmpl.CooldownSeconds {
			d.sendSystemMessage(c, "quest is on cooldown")
			return
		}
	}
	for _, prereq := range tmpl.PrereqQuests {
		done, ok := d.World.QuestInstance(c.ID, prereq)
		if !ok || done.State != model.QuestComplete {
			d.sendSystemMessage(c, "prerequisite quest not complete")
			return
		}
	}
	for _, excl := range tmpl.ExclusiveQuests {
		if other, ok := d.World.QuestInstance(c.ID, excl); ok && other.State == model.QuestActive {
			d.sendSystemMessage(c, "exclusive with an active quest")
			return
		}
	}

	qi := &model.QuestInstance{
		QuestID:           questID,
		CharacterID:       c.ID,
		State:             model.QuestActive,
		AcceptTime:        d.Now() / 1000,
		ObjectiveProgress: make([]int32, len(tmpl.Objectives)),
	}
	d.World.PutQuestInstance(qi)
	d.World.Quests.IndexInstance(tmpl, qi)
	d.sendQuestUpdate(c, qi)
}

// HandleQuestComplete turns in a ready quest, granting the selected
// reward and clearing or resetting the instance (§4.9). It does not check
// that the character is at or near the quest's end NPC.
func (d *Deps) HandleQuestComplete(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld {
		return
	}
	questID := r.ReadD()
	rewardChoice := int(r.ReadC())

	qi, ok := d.World.QuestInstance(c.ID, questID)
	if !ok || qi.State != model.QuestReadyToTurnIn {
		return
	}
	tmpl := d.Content.Quests.Get(questID)
	if tmpl == nil {
		return
	}
	if rewardChoice < 0 || rewardChoice >= len(tmpl.Rewards) {
		rewardChoice = 0
	}
	if len(tmpl.Rewards) == 0 {
		return
	}
	reward := tmpl.Rewards[rewardChoice]
	c.Exp += reward.Exp
	c.Gold += reward.Gold
	for _, it := range reward.Items {
		slot := c.Inventory.FirstEmpty()
		if slot == -1 {
			d.sendSystemMessage(c, "inventory full, reward item dropped at your feet")
			d.World.DropGroundItem(it, c.Pos, c.ID, d.Config.Economy.LootWindow.Milliseconds(), d.Config.Economy.GroundItemTTL.Milliseconds(), d.Now())
			continue
		}
		_ = c.Inventory.Put(slot, it)
	}

	qi.State = model.QuestComplete
	qi.LastCompletedTime = d.Now() / 1000
	qi.CompletionCount++
	d.World.Quests.RemoveInstance(c.ID, questID)
	if tmpl.Flags.Repeatable {
		qi.State = model.QuestActive
		qi.ObjectiveProgress = make([]int32, len(tmpl.Objectives))
		d.World.Quests.IndexInstance(tmpl, qi)
	}
	d.sendQuestUpdate(c, qi)
}

// advanceObjectiveEntries bumps progress by one on every indexed entry
// whose objective passes matchesExtra (nil accepts all), flipping each
// instance to ready-to-turn-in once every required objective is met
// (§4.9).
func (d *Deps) advanceObjectiveEntries(entries []model.QuestIndexEntry, matchesExtra func(model.Objective) bool) {
	for _, entry := range entries {
		qi, ok := d.World.QuestInstance(entry.CharacterID, entry.QuestID)
		if !ok || qi.State != model.QuestActive {
			continue
		}
		tmpl := d.Content.Quests.Get(entry.QuestID)
		if tmpl == nil || entry.ObjectiveIdx >= len(tmpl.Objectives) {
			continue
		}
		obj := tmpl.Objectives[entry.ObjectiveIdx]
		if matchesExtra != nil && !matchesExtra(obj) {
			continue
		}
		for len(qi.ObjectiveProgress) <= entry.ObjectiveIdx {
			qi.ObjectiveProgress = append(qi.ObjectiveProgress, 0)
		}
		if qi.ObjectiveProgress[entry.ObjectiveIdx] < obj.Count {
			qi.ObjectiveProgress[entry.ObjectiveIdx]++
		}
		if qi.AllRequiredMet(tmpl) {
			qi.State = model.QuestReadyToTurnIn
		}
		if c := d.World.Character(entry.CharacterID); c != nil {
			d.sendQuestUpdate(c, qi)
		}
	}
}

// advanceItemObjectives credits Collect/UseItem progress for itemID; the
// caller tells the two apart since both share the byItem reverse index.
func (d *Deps) advanceItemObjectives(itemID int32, objType model.ObjectiveType) {
	d.advanceObjectiveEntries(d.World.Quests.OnItemEvent(itemID), func(o model.Objective) bool {
		return o.Type == objType
	})
}

// advanceNPCObjectives credits Deliver/Talk progress for npcID; the
// caller tells the two apart since both share the byNPC reverse index.
func (d *Deps) advanceNPCObjectives(npcID int32, objType model.ObjectiveType) {
	d.advanceObjectiveEntries(d.World.Quests.OnNPCEvent(npcID), func(o model.Objective) bool {
		return o.Type == objType
	})
}

// advanceSkillObjectives credits UseSkill progress for skillID.
func (d *Deps) advanceSkillObjectives(skillID int32) {
	d.advanceObjectiveEntries(d.World.Quests.OnSkillUsed(skillID), nil)
}

// advanceVisitObjectives credits Visit progress for characters standing
// inside the objective's X/Y/Radius circle on mapID. Visit objectives
// aren't keyed per-character in the index, so entries for other
// characters on the same map are filtered out before the radius check.
func (d *Deps) advanceVisitObjectives(c *world.Character, mapID int32) {
	all := d.World.Quests.OnMapEnter(mapID)
	mine := make([]model.QuestIndexEntry, 0, len(all))
	for _, e := range all {
		if e.CharacterID == c.ID {
			mine = append(mine, e)
		}
	}
	d.advanceObjectiveEntries(mine, func(o model.Objective) bool {
		dx, dy := c.Pos.X-o.X, c.Pos.Y-o.Y
		return dx*dx+dy*dy <= o.Radius*o.Radius
	})
}

// checkReachLevelObjectives credits ReachLevel progress directly against
// a character's active quests; unlike the other objective types there is
// no external entity to reverse-index this one by.
func (d *Deps) checkReachLevelObjectives(c *world.Character) {
	for _, qi := range d.World.CharacterQuests(c.ID) {
		if qi.State != model.QuestActive {
			continue
		}
		tmpl := d.Content.Quests.Get(qi.QuestID)
		if tmpl == nil {
			continue
		}
		changed := false
		for i, obj := range tmpl.Objectives {
			if obj.Type != model.ObjectiveReachLevel {
				continue
			}
			for len(qi.ObjectiveProgress) <= i {
				qi.ObjectiveProgress = append(qi.ObjectiveProgress, 0)
			}
			if int32(c.Level) >= obj.TargetID && qi.ObjectiveProgress[i] < obj.Count {
				qi.ObjectiveProgress[i] = obj.Count
				changed = true
			}
		}
		if !changed {
			continue
		}
		if qi.AllRequiredMet(tmpl) {
			qi.State = model.QuestReadyToTurnIn
		}
		d.sendQuestUpdate(c, qi)
	}
}

// HandleQuestUpdate drops an in-progress quest instance entirely (client
// "abandon quest" action), freeing the player to re-accept it later
// subject to its own prerequisite/cooldown rules.
func (d *Deps) HandleQuestUpdate(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	questID := r.ReadD()
	d.World.Quests.RemoveInstance(c.ID, questID)
	d.World.RemoveQuestInstance(c.ID, questID)
}
