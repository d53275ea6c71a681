package world

import (
	"github.com/wydtm/tmsrv/internal/ai"
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/security"
)

// State is the single authoritative world snapshot, exclusively owned
// and mutated by the tick goroutine (§5). All reads/writes happen
// in-process with no locking; concurrency safety comes from the single
// writer, not from synchronization primitives.
type State struct {
	Spatial *SpatialIndex

	characters   map[int32]*Character
	bySession    map[uint64]*Character
	mobs         map[int32]*Mob
	ground       map[int64]*GroundItem
	nextGroundID int64

	Parties   *model.PartyManager
	Guilds    *model.GuildManager
	Trades    *model.TradeManager
	Market    *model.Market
	Quests    *model.QuestIndex
	Scheduler *model.EventScheduler
	Friends   *model.FriendManager

	quests map[int32]map[int32]*model.QuestInstance // characterID -> questID -> instance

	Security *security.Monitor
	Audit    *security.Log
}

func NewState(sec *security.Monitor, audit *security.Log) *State {
	return &State{
		Spatial:    NewSpatialIndex(),
		characters: make(map[int32]*Character),
		bySession:  make(map[uint64]*Character),
		mobs:       make(map[int32]*Mob),
		ground:     make(map[int64]*GroundItem),
		Parties:    model.NewPartyManager(),
		Guilds:     model.NewGuildManager(),
		Trades:     model.NewTradeManager(),
		Market:     model.NewMarket(),
		Quests:     model.NewQuestIndex(),
		Scheduler:  model.NewEventScheduler(),
		Friends:    model.NewFriendManager(),
		quests:     make(map[int32]map[int32]*model.QuestInstance),
		Security:   sec,
		Audit:      audit,
	}
}

// QuestInstance returns a character's instance of questID, if any.
func (s *State) QuestInstance(charID, questID int32) (*model.QuestInstance, bool) {
	byQuest, ok := s.quests[charID]
	if !ok {
		return nil, false
	}
	qi, ok := byQuest[questID]
	return qi, ok
}

// CharacterQuests returns every quest instance tracked for a character,
// active and completed alike (§4.9 quest log / OpQuestHistory).
func (s *State) CharacterQuests(charID int32) []*model.QuestInstance {
	byQuest := s.quests[charID]
	out := make([]*model.QuestInstance, 0, len(byQuest))
	for _, qi := range byQuest {
		out = append(out, qi)
	}
	return out
}

// PutQuestInstance inserts or replaces a character's tracked instance of
// one quest, used both on accept and on load-from-persist.
func (s *State) PutQuestInstance(qi *model.QuestInstance) {
	byQuest, ok := s.quests[qi.CharacterID]
	if !ok {
		byQuest = make(map[int32]*model.QuestInstance)
		s.quests[qi.CharacterID] = byQuest
	}
	byQuest[qi.QuestID] = qi
}

// RemoveQuestInstance drops a character's tracked instance of one quest
// (abandon, or post-turn-in for non-repeatable quests).
func (s *State) RemoveQuestInstance(charID, questID int32) {
	if byQuest, ok := s.quests[charID]; ok {
		delete(byQuest, questID)
	}
}

// EnterWorld inserts a loaded character into the live registry and
// spatial index, transitioning its lifecycle to InWorld (§4.3).
func (s *State) EnterWorld(c *Character, sessionID uint64) {
	c.SessionID = sessionID
	c.Lifecycle = LifecycleInWorld
	s.characters[c.ID] = c
	s.bySession[sessionID] = c
	s.Spatial.Insert(c.EntityRef(), c.Pos)
}

// LeaveWorld removes a character from the live registry and spatial
// index (the reverse of EnterWorld, §4.3).
func (s *State) LeaveWorld(charID int32) {
	c, ok := s.characters[charID]
	if !ok {
		return
	}
	s.Spatial.Remove(c.EntityRef())
	delete(s.bySession, c.SessionID)
	delete(s.characters, charID)
}

func (s *State) Character(id int32) *Character            { return s.characters[id] }
func (s *State) CharacterBySession(id uint64) *Character   { return s.bySession[id] }

// CharacterByName does a linear scan of live characters, used by
// whisper/name-target lookups that have no other index (§4 chat).
func (s *State) CharacterByName(name string) *Character {
	for _, c := range s.characters {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (s *State) AllCharacters() []*Character {
	out := make([]*Character, 0, len(s.characters))
	for _, c := range s.characters {
		out = append(out, c)
	}
	return out
}

// MoveCharacter relocates a character in the spatial index, an O(1)
// bucket-delta when it stays within its current bucket (§4.2).
func (s *State) MoveCharacter(c *Character, newPos Position) {
	c.Pos = newPos
	s.Spatial.Move(c.EntityRef(), newPos)
}

func (s *State) SpawnMob(m *Mob) {
	s.mobs[m.ID] = m
	s.Spatial.Insert(m.EntityRef(), Position{X: m.Pos.X, Y: m.Pos.Y, MapID: m.Pos.MapID})
}

func (s *State) DespawnMob(id int32) {
	m, ok := s.mobs[id]
	if !ok {
		return
	}
	s.Spatial.Remove(m.EntityRef())
	delete(s.mobs, id)
}

func (s *State) Mob(id int32) *Mob { return s.mobs[id] }

// MoveMob relocates a mob in the spatial index, the mob-controller
// counterpart to MoveCharacter (§4.10 CmdMoveToward/CmdFlee/CmdReturnHome
// execution).
func (s *State) MoveMob(m *Mob, newPos Position) {
	m.Pos = ai.Position{X: newPos.X, Y: newPos.Y, MapID: newPos.MapID}
	s.Spatial.Move(m.EntityRef(), newPos)
}

func (s *State) AllMobs() []*Mob {
	out := make([]*Mob, 0, len(s.mobs))
	for _, m := range s.mobs {
		out = append(out, m)
	}
	return out
}

// DropGroundItem inserts a new ground item, assigning it the next
// synthetic id, and indexes it spatially (§4.6).
func (s *State) DropGroundItem(item model.Item, pos Position, lootOwner int32, lootWindowMs, ttlMs, nowMs int64) *GroundItem {
	s.nextGroundID++
	g := &GroundItem{
		ID: s.nextGroundID, Item: item, Pos: pos,
		DroppedAtMs: nowMs, LootRightOwner: lootOwner,
		LootWindowMs: lootWindowMs, TTLMs: ttlMs,
	}
	s.ground[g.ID] = g
	s.Spatial.Insert(g.EntityRef(), pos)
	s.Spatial.TrackExpiry(g.EntityRef(), nowMs+ttlMs)
	return g
}

// GroundItem returns a ground item by id without removing it, for
// pickup-request validation (range/loot-rights checks) ahead of the
// actual PickUpGroundItem mutation.
func (s *State) GroundItem(id int64) (*GroundItem, bool) {
	g, ok := s.ground[id]
	return g, ok
}

func (s *State) PickUpGroundItem(id int64) (*GroundItem, bool) {
	g, ok := s.ground[id]
	if !ok {
		return nil, false
	}
	s.Spatial.Remove(g.EntityRef())
	s.Spatial.UntrackExpiry(g.EntityRef(), g.DroppedAtMs+g.TTLMs)
	delete(s.ground, id)
	return g, true
}

// ExpireGroundItems removes every ground item past its TTL as of nowMs
// (§4.6 step 5), returning the removed items for any despawn broadcast.
// ExpiredBefore walks the TTL btree's ascending prefix of due entries
// instead of scanning every ground item on the map regardless of age.
func (s *State) ExpireGroundItems(nowMs int64) []*GroundItem {
	var expired []*GroundItem
	for _, id := range s.Spatial.ExpiredBefore(nowMs) {
		g, ok := s.ground[id]
		if !ok {
			continue // already picked up between index population and this sweep
		}
		s.Spatial.Remove(g.EntityRef())
		s.Spatial.UntrackExpiry(g.EntityRef(), g.DroppedAtMs+g.TTLMs)
		delete(s.ground, id)
		expired = append(expired, g)
	}
	return expired
}

// NearbyCharacters returns every in-world character within radius of pos
// (§4.2 AoI query).
func (s *State) NearbyCharacters(pos Position, radius int32) []*Character {
	refs := s.Spatial.Nearby(pos, radius, EntityCharacter, true)
	out := make([]*Character, 0, len(refs))
	for _, ref := range refs {
		if c, ok := s.characters[int32(ref.ID)]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *State) NearbyMobs(pos Position, radius int32) []*Mob {
	refs := s.Spatial.Nearby(pos, radius, EntityMob, true)
	out := make([]*Mob, 0, len(refs))
	for _, ref := range refs {
		if m, ok := s.mobs[int32(ref.ID)]; ok {
			out = append(out, m)
		}
	}
	return out
}
