package model

import "strings"

// GuildRank mirrors the teacher's clan rank ladder, collapsed to the
// single-guild hierarchy the spec describes (no deferred/league ranks).
type GuildRank int16

const (
	GuildRankMember GuildRank = iota
	GuildRankProbation
	GuildRankGuardian
	GuildRankOfficer
	GuildRankLeader
)

type GuildMember struct {
	CharID   int32
	CharName string
	Rank     GuildRank
	Notes    string
}

// WarState tracks one guild war's siege-scoring lifecycle, supplementing
// the base spec with the guild-war scoring/siege hooks original_source
// exposes in GuildManager.h.
type WarState int

const (
	WarDeclared WarState = iota
	WarActive
	WarEnded
)

// War is one active or historical war entry between an ordered pair of
// guilds. At most one active entry may exist between any ordered pair
// (§3 invariant).
type War struct {
	AttackerGuildID int32
	DefenderGuildID int32
	State           WarState
	AttackerScore   int32
	DefenderScore   int32
	DeclaredAt      int64
	EndedAt         int64
}

// Alliance is a standing non-aggression/cooperation pact between two
// guilds, independent of war state.
type Alliance struct {
	GuildAID int32
	GuildBID int32
	FormedAt int64
}

// Guild is `{id, name (unique), leader, members with ranks, treasury,
// notice, mark, alliances, wars}` (§3).
type Guild struct {
	ID           int32
	Name         string
	LeaderID     int32
	Treasury     int64
	Notice       string
	MarkID       int32
	FoundedAt    int64
	Members      map[int32]*GuildMember
	Alliances    []Alliance
	Wars         []War
	Store        *Container
}

func NewGuild(id int32, name string, leaderID int32) *Guild {
	return &Guild{
		ID:       id,
		Name:     name,
		LeaderID: leaderID,
		Members:  make(map[int32]*GuildMember),
		Store:    NewGuildStore(),
	}
}

func (g *Guild) MemberCount() int { return len(g.Members) }

// ActiveWarWith reports the active war entry against otherGuildID, if any,
// checked in both attacker/defender orientations (the invariant is about
// an ordered pair having at most one *active* entry, but queries need
// both directions).
func (g *Guild) ActiveWarWith(otherGuildID int32) *War {
	for i := range g.Wars {
		w := &g.Wars[i]
		if w.State != WarActive {
			continue
		}
		if (w.AttackerGuildID == g.ID && w.DefenderGuildID == otherGuildID) ||
			(w.DefenderGuildID == g.ID && w.AttackerGuildID == otherGuildID) {
			return w
		}
	}
	return nil
}

// GuildManager owns every guild in memory plus the lookup indices needed
// to route packets without scanning all guilds.
type GuildManager struct {
	nextID     int32
	guilds     map[int32]*Guild
	memberOf   map[int32]int32 // charID -> guildID
	byName     map[string]int32
}

func NewGuildManager() *GuildManager {
	return &GuildManager{
		guilds:   make(map[int32]*Guild),
		memberOf: make(map[int32]int32),
		byName:   make(map[string]int32),
	}
}

func (m *GuildManager) Get(guildID int32) *Guild { return m.guilds[guildID] }

func (m *GuildManager) GetByName(name string) *Guild {
	id, ok := m.byName[strings.ToLower(name)]
	if !ok {
		return nil
	}
	return m.guilds[id]
}

func (m *GuildManager) NameExists(name string) bool {
	_, ok := m.byName[strings.ToLower(name)]
	return ok
}

func (m *GuildManager) GuildOf(charID int32) int32 { return m.memberOf[charID] }

func (m *GuildManager) IsLeader(charID int32) bool {
	gid := m.memberOf[charID]
	if gid == 0 {
		return false
	}
	g := m.guilds[gid]
	return g != nil && g.LeaderID == charID
}

// Create registers a new guild with its founding leader as the sole
// member.
func (m *GuildManager) Create(name string, leaderID, leaderCharID int32) *Guild {
	m.nextID++
	g := NewGuild(m.nextID, name, leaderID)
	g.Members[leaderCharID] = &GuildMember{CharID: leaderCharID, Rank: GuildRankLeader}
	g.FoundedAt = 0
	m.guilds[g.ID] = g
	m.byName[strings.ToLower(name)] = g.ID
	m.memberOf[leaderCharID] = g.ID
	return g
}

func (m *GuildManager) AddMember(guildID int32, member *GuildMember) {
	g := m.guilds[guildID]
	if g == nil {
		return
	}
	g.Members[member.CharID] = member
	m.memberOf[member.CharID] = guildID
}

func (m *GuildManager) RemoveMember(guildID, charID int32) {
	g := m.guilds[guildID]
	if g == nil {
		return
	}
	delete(g.Members, charID)
	delete(m.memberOf, charID)
}

// TransferMastership atomically reassigns LeaderID and both members'
// ranks (§3 invariant: "guild mastership transitions are atomic" — since
// the world tick is single-writer, atomicity here means "no partial
// write visible between ticks", not a separate lock).
func (m *GuildManager) TransferMastership(guildID, newLeaderCharID int32) bool {
	g := m.guilds[guildID]
	if g == nil {
		return false
	}
	newLeader, ok := g.Members[newLeaderCharID]
	if !ok {
		return false
	}
	if oldLeader, ok := g.Members[g.LeaderID]; ok {
		oldLeader.Rank = GuildRankOfficer
	}
	newLeader.Rank = GuildRankLeader
	g.LeaderID = newLeaderCharID
	return true
}

// DeclareWar opens a new active war entry between two guilds, refusing a
// second active entry against the same ordered pair (§3 invariant).
func (m *GuildManager) DeclareWar(attackerGuildID, defenderGuildID int32, now int64) bool {
	attacker := m.guilds[attackerGuildID]
	if attacker == nil || m.guilds[defenderGuildID] == nil {
		return false
	}
	if attacker.ActiveWarWith(defenderGuildID) != nil {
		return false
	}
	w := War{
		AttackerGuildID: attackerGuildID,
		DefenderGuildID: defenderGuildID,
		State:           WarActive,
		DeclaredAt:      now,
	}
	attacker.Wars = append(attacker.Wars, w)
	if defender := m.guilds[defenderGuildID]; defender != nil {
		defender.Wars = append(defender.Wars, w)
	}
	return true
}

// AddWarScore credits points to scoringGuildID's side of its active war
// against otherGuildID, if one exists, keeping both guilds' copies of the
// war entry in sync.
func (m *GuildManager) AddWarScore(scoringGuildID, otherGuildID int32, points int32) {
	for _, gid := range [2]int32{scoringGuildID, otherGuildID} {
		g := m.guilds[gid]
		if g == nil {
			continue
		}
		for i := range g.Wars {
			w := &g.Wars[i]
			if w.State != WarActive {
				continue
			}
			if w.AttackerGuildID != scoringGuildID && w.DefenderGuildID != scoringGuildID {
				continue
			}
			if w.AttackerGuildID != otherGuildID && w.DefenderGuildID != otherGuildID {
				continue
			}
			if w.AttackerGuildID == scoringGuildID {
				w.AttackerScore += points
			} else {
				w.DefenderScore += points
			}
		}
	}
}

// EndWar closes the active war between two guilds, if any, in both
// guilds' war lists.
func (m *GuildManager) EndWar(guildAID, guildBID int32, now int64) {
	for _, gid := range [2]int32{guildAID, guildBID} {
		g := m.guilds[gid]
		if g == nil {
			continue
		}
		for i := range g.Wars {
			w := &g.Wars[i]
			if w.State != WarActive {
				continue
			}
			if (w.AttackerGuildID == guildAID && w.DefenderGuildID == guildBID) ||
				(w.AttackerGuildID == guildBID && w.DefenderGuildID == guildAID) {
				w.State = WarEnded
				w.EndedAt = now
			}
		}
	}
}

// ActiveWarCount totals the currently active wars across every guild,
// counting each war once (it's stored on both sides' War slice).
func (m *GuildManager) ActiveWarCount() int {
	count := 0
	for gid, g := range m.guilds {
		for _, w := range g.Wars {
			if w.State == WarActive && w.AttackerGuildID == gid {
				count++
			}
		}
	}
	return count
}

func (m *GuildManager) Remove(guildID int32) {
	g := m.guilds[guildID]
	if g == nil {
		return
	}
	for charID := range g.Members {
		delete(m.memberOf, charID)
	}
	delete(m.byName, strings.ToLower(g.Name))
	delete(m.guilds, guildID)
}
