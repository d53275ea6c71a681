package model

import "fmt"

const MaxPartySize = 12

// LootPolicy controls how dropped loot is distributed among party members.
type LootPolicy byte

const (
	LootFreeForAll LootPolicy = iota
	LootRoundRobin
	LootLeaderOnly
	LootNeedGreed
)

// ExpPolicy controls how kill experience is split among party members.
type ExpPolicy byte

const (
	ExpEqualSplit ExpPolicy = iota
	ExpLevelWeighted
)

// PartyState is the party's lifecycle state.
type PartyState byte

const (
	PartyActive PartyState = iota
	PartyDisbanded
)

// Party is `{id, leader, members[≤12], type, lootPolicy, expPolicy,
// state}` (§3). PartyType distinguishes normal parties from auto-share
// parties, preserved from the teacher's two-mode party model and folded
// into LootPolicy (auto-share ≈ LootRoundRobin).
type Party struct {
	ID         int32
	Leader     int32
	Members    []int32
	LootPolicy LootPolicy
	ExpPolicy  ExpPolicy
	State      PartyState
}

func (p *Party) HasMember(charID int32) bool {
	for _, id := range p.Members {
		if id == charID {
			return true
		}
	}
	return false
}

// PartyManager owns every active party and the invite/membership indices
// needed to route packets without scanning all parties.
type PartyManager struct {
	nextID         int32
	parties        map[int32]*Party
	memberOf       map[int32]int32 // charID -> partyID
	pendingInvites map[int32]int32 // targetCharID -> inviterCharID
}

func NewPartyManager() *PartyManager {
	return &PartyManager{
		parties:        make(map[int32]*Party),
		memberOf:       make(map[int32]int32),
		pendingInvites: make(map[int32]int32),
	}
}

func (m *PartyManager) GetParty(charID int32) *Party {
	pid, ok := m.memberOf[charID]
	if !ok {
		return nil
	}
	return m.parties[pid]
}

func (m *PartyManager) IsInParty(charID int32) bool {
	_, ok := m.memberOf[charID]
	return ok
}

func (m *PartyManager) IsLeader(charID int32) bool {
	p := m.GetParty(charID)
	return p != nil && p.Leader == charID
}

// Create forms a new party of leader+member. The invariant "leader ∈
// members" holds from construction onward.
func (m *PartyManager) Create(leaderID, memberID int32) (*Party, error) {
	if m.IsInParty(leaderID) || m.IsInParty(memberID) {
		return nil, fmt.Errorf("party: a character is in at most one party at a time")
	}
	m.nextID++
	p := &Party{
		ID:      m.nextID,
		Leader:  leaderID,
		Members: []int32{leaderID, memberID},
		State:   PartyActive,
	}
	m.parties[p.ID] = p
	m.memberOf[leaderID] = p.ID
	m.memberOf[memberID] = p.ID
	return p, nil
}

// Add adds a character to an existing party. Fails past MaxPartySize or
// if the character already belongs to a party.
func (m *PartyManager) Add(partyID, charID int32) error {
	if m.IsInParty(charID) {
		return fmt.Errorf("party: character %d already in a party", charID)
	}
	p := m.parties[partyID]
	if p == nil {
		return fmt.Errorf("party: %d not found", partyID)
	}
	if len(p.Members) >= MaxPartySize {
		return fmt.Errorf("party: %d is full", partyID)
	}
	p.Members = append(p.Members, charID)
	m.memberOf[charID] = partyID
	return nil
}

// Remove takes charID out of their party. If the departing character was
// the leader, leadership transfers to the next member in join order
// (auto-leader-transfer). A party reduced to a single member is
// disbanded, releasing every reference before the id is freed.
func (m *PartyManager) Remove(charID int32) (party *Party, disbanded bool) {
	pid, ok := m.memberOf[charID]
	if !ok {
		return nil, false
	}
	delete(m.memberOf, charID)

	p := m.parties[pid]
	if p == nil {
		return nil, false
	}
	for i, id := range p.Members {
		if id == charID {
			p.Members = append(p.Members[:i], p.Members[i+1:]...)
			break
		}
	}

	if len(p.Members) <= 1 {
		m.Disband(pid)
		return p, true
	}

	if p.Leader == charID {
		p.Leader = p.Members[0]
	}
	return p, false
}

// Disband releases every member reference, then frees the party id.
func (m *PartyManager) Disband(partyID int32) {
	p := m.parties[partyID]
	if p == nil {
		return
	}
	for _, id := range p.Members {
		delete(m.memberOf, id)
	}
	p.State = PartyDisbanded
	delete(m.parties, partyID)
}

func (m *PartyManager) Invite(targetID, inviterID int32) {
	m.pendingInvites[targetID] = inviterID
}

// ConsumeInvite returns and clears a pending invite. Returns 0 if none.
func (m *PartyManager) ConsumeInvite(targetID int32) int32 {
	inviterID, ok := m.pendingInvites[targetID]
	if !ok {
		return 0
	}
	delete(m.pendingInvites, targetID)
	return inviterID
}

// HPBarTier returns the party HP display byte (0-10, proportional to
// HP%), matching the overhead HP bar scale the teacher's client protocol
// uses.
func HPBarTier(hp, maxHP int32) byte {
	if maxHP <= 0 {
		return 0
	}
	pct := hp * 10 / maxHP
	if pct > 10 {
		pct = 10
	}
	if pct < 0 {
		pct = 0
	}
	return byte(pct)
}
