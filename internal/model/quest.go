package model

// ObjectiveType enumerates the quest objective kinds (§4.9).
type ObjectiveType int

const (
	ObjectiveKill ObjectiveType = iota
	ObjectiveCollect
	ObjectiveDeliver
	ObjectiveTalk
	ObjectiveVisit
	ObjectiveUseSkill
	ObjectiveUseItem
	ObjectiveReachLevel
)

// Objective is one entry in a quest template's objective list. TargetID
// means mobId/itemId/npcId/mapId/skillId depending on Type; X/Y/Radius
// are only meaningful for ObjectiveVisit.
type Objective struct {
	Type     ObjectiveType
	TargetID int32
	Count    int32
	X, Y     int32
	Radius   int32
	Required bool
}

// Reward is one grantable outcome of quest completion.
type Reward struct {
	Exp   int64
	Gold  int64
	Items []Item
}

// QuestFlags are the template's repeatability/automation bits.
type QuestFlags struct {
	Repeatable  bool
	AutoComplete bool
	TimeLimited bool
}

// QuestTemplate is `{id, minLevel, maxLevel, prereqQuests[],
// exclusiveQuests[], startNpc, endNpc, objectives[], rewards[],
// timeLimit, flags}` (§4.9).
type QuestTemplate struct {
	ID               int32
	Name             string
	MinLevel         int
	MaxLevel         int
	PrereqQuests     []int32
	ExclusiveQuests  []int32
	StartNPC         int32
	EndNPC           int32
	Objectives       []Objective
	Rewards          []Reward
	TimeLimitSeconds int64
	Flags            QuestFlags
	CooldownSeconds  int64
}

// QuestState is a quest instance's lifecycle state.
type QuestState int

const (
	QuestActive QuestState = iota
	QuestReadyToTurnIn
	QuestComplete
	QuestFailed
)

// QuestInstance is `{questId, characterId, state, acceptTime,
// objectiveProgress[≤N], selectedRewards, completionCount}` (§3).
type QuestInstance struct {
	QuestID           int32
	CharacterID       int32
	State             QuestState
	AcceptTime        int64
	LastCompletedTime int64
	ObjectiveProgress []int32
	SelectedRewards   []int
	CompletionCount   int
}

// AllRequiredMet reports whether every required objective in tmpl has
// reached its count threshold, given this instance's progress.
func (qi *QuestInstance) AllRequiredMet(tmpl *QuestTemplate) bool {
	for i, obj := range tmpl.Objectives {
		if !obj.Required {
			continue
		}
		if i >= len(qi.ObjectiveProgress) || qi.ObjectiveProgress[i] < obj.Count {
			return false
		}
	}
	return true
}

// Expired reports whether a time-limited quest has exceeded its limit as
// of now.
func (qi *QuestInstance) Expired(tmpl *QuestTemplate, now int64) bool {
	if !tmpl.Flags.TimeLimited || tmpl.TimeLimitSeconds <= 0 {
		return false
	}
	return now-qi.AcceptTime > tmpl.TimeLimitSeconds
}

// QuestIndex maintains the reverse indices named in §4.9 so event
// handlers touch only indexed instances instead of scanning every active
// quest: mobId/itemId/npcId -> list of (characterId, questId,
// objectiveIdx).
type QuestIndexEntry struct {
	CharacterID  int32
	QuestID      int32
	ObjectiveIdx int
}

type QuestIndex struct {
	byMob   map[int32][]QuestIndexEntry
	byItem  map[int32][]QuestIndexEntry
	byNPC   map[int32][]QuestIndexEntry
	byMap   map[int32][]QuestIndexEntry
	bySkill map[int32][]QuestIndexEntry
}

func NewQuestIndex() *QuestIndex {
	return &QuestIndex{
		byMob:   make(map[int32][]QuestIndexEntry),
		byItem:  make(map[int32][]QuestIndexEntry),
		byNPC:   make(map[int32][]QuestIndexEntry),
		byMap:   make(map[int32][]QuestIndexEntry),
		bySkill: make(map[int32][]QuestIndexEntry),
	}
}

// IndexInstance registers every objective of an active instance into the
// reverse indices it can be reached through. ReachLevel has no reverse
// index: it's a character-stat trigger checked directly on level-up, not
// an external entity a handler can look up by ID.
func (qidx *QuestIndex) IndexInstance(tmpl *QuestTemplate, qi *QuestInstance) {
	for i, obj := range tmpl.Objectives {
		entry := QuestIndexEntry{CharacterID: qi.CharacterID, QuestID: qi.QuestID, ObjectiveIdx: i}
		switch obj.Type {
		case ObjectiveKill:
			qidx.byMob[obj.TargetID] = append(qidx.byMob[obj.TargetID], entry)
		case ObjectiveCollect, ObjectiveUseItem:
			qidx.byItem[obj.TargetID] = append(qidx.byItem[obj.TargetID], entry)
		case ObjectiveDeliver, ObjectiveTalk:
			qidx.byNPC[obj.TargetID] = append(qidx.byNPC[obj.TargetID], entry)
		case ObjectiveVisit:
			qidx.byMap[obj.TargetID] = append(qidx.byMap[obj.TargetID], entry)
		case ObjectiveUseSkill:
			qidx.bySkill[obj.TargetID] = append(qidx.bySkill[obj.TargetID], entry)
		}
	}
}

func (qidx *QuestIndex) RemoveInstance(characterID, questID int32) {
	remove := func(m map[int32][]QuestIndexEntry) {
		for key, entries := range m {
			filtered := entries[:0]
			for _, e := range entries {
				if e.CharacterID != characterID || e.QuestID != questID {
					filtered = append(filtered, e)
				}
			}
			m[key] = filtered
		}
	}
	remove(qidx.byMob)
	remove(qidx.byItem)
	remove(qidx.byNPC)
	remove(qidx.byMap)
	remove(qidx.bySkill)
}

func (qidx *QuestIndex) OnMobKilled(mobID int32) []QuestIndexEntry {
	return qidx.byMob[mobID]
}

func (qidx *QuestIndex) OnItemEvent(itemID int32) []QuestIndexEntry {
	return qidx.byItem[itemID]
}

func (qidx *QuestIndex) OnNPCEvent(npcID int32) []QuestIndexEntry {
	return qidx.byNPC[npcID]
}

// OnMapEnter returns the Visit-objective entries registered against
// mapID; callers still need to check the character's position against
// the objective's X/Y/Radius before crediting progress.
func (qidx *QuestIndex) OnMapEnter(mapID int32) []QuestIndexEntry {
	return qidx.byMap[mapID]
}

func (qidx *QuestIndex) OnSkillUsed(skillID int32) []QuestIndexEntry {
	return qidx.bySkill[skillID]
}
