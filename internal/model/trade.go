package model

import "fmt"

// TradePhase is the two-phase player trade state machine (§3, §4.7):
// Compose → LockedA/LockedB → BothLocked → ConfirmedA/ConfirmedB →
// Committed, with Cancelled reachable from any non-terminal phase.
type TradePhase int

const (
	TradeCompose TradePhase = iota
	TradeLockedA
	TradeLockedB
	TradeBothLocked
	TradeConfirmedA
	TradeConfirmedB
	TradeCommitted
	TradeCancelled
)

// TradeOffer is one side's in-progress offer: item slots staged for
// transfer (by inventory slot index, resolved to items at commit time)
// plus a gold amount.
type TradeOffer struct {
	ItemSlots []int
	Gold      int64
}

// Trade is `{id, a, b, offerA, offerB, goldA, goldB, phase}` (§3). Both
// participants hold a back-reference to the same session id; only one
// active trade session per character is enforced by TradeManager.
type Trade struct {
	ID     int32
	A, B   int32
	OfferA TradeOffer
	OfferB TradeOffer
	Phase  TradePhase
}

// ErrItemLocked is returned when an inventory slot is staged in an active
// trade offer and cannot be moved, equipped, or consumed until it is
// unstaged or the trade ends (§8 scenario 2: concurrent equip during trade).
var ErrItemLocked = fmt.Errorf("item is locked in an active trade offer")

// SlotLocked reports whether invSlot is currently staged in charID's side
// of this trade.
func (t *Trade) SlotLocked(charID int32, invSlot int) bool {
	self, _, _, ok := t.sideOf(charID)
	if !ok {
		return false
	}
	for _, s := range self.ItemSlots {
		if s == invSlot {
			return true
		}
	}
	return false
}

func (t *Trade) sideOf(charID int32) (self, other *TradeOffer, isA bool, ok bool) {
	switch charID {
	case t.A:
		return &t.OfferA, &t.OfferB, true, true
	case t.B:
		return &t.OfferB, &t.OfferA, false, true
	default:
		return nil, nil, false, false
	}
}

// AddItem stages an item slot into the caller's offer. Only legal in
// Compose — items can be added/removed only in that phase (§4.7).
func (t *Trade) AddItem(charID int32, invSlot int) error {
	if t.Phase != TradeCompose {
		return fmt.Errorf("trade %d: cannot modify offer outside Compose (phase=%d)", t.ID, t.Phase)
	}
	self, _, _, ok := t.sideOf(charID)
	if !ok {
		return fmt.Errorf("trade %d: %d is not a participant", t.ID, charID)
	}
	for _, s := range self.ItemSlots {
		if s == invSlot {
			return nil
		}
	}
	self.ItemSlots = append(self.ItemSlots, invSlot)
	return nil
}

func (t *Trade) RemoveItem(charID int32, invSlot int) error {
	if t.Phase != TradeCompose {
		return fmt.Errorf("trade %d: cannot modify offer outside Compose (phase=%d)", t.ID, t.Phase)
	}
	self, _, _, ok := t.sideOf(charID)
	if !ok {
		return fmt.Errorf("trade %d: %d is not a participant", t.ID, charID)
	}
	for i, s := range self.ItemSlots {
		if s == invSlot {
			self.ItemSlots = append(self.ItemSlots[:i], self.ItemSlots[i+1:]...)
			return nil
		}
	}
	return nil
}

func (t *Trade) SetGold(charID int32, gold int64) error {
	if t.Phase != TradeCompose {
		return fmt.Errorf("trade %d: cannot modify offer outside Compose (phase=%d)", t.ID, t.Phase)
	}
	self, _, _, ok := t.sideOf(charID)
	if !ok {
		return fmt.Errorf("trade %d: %d is not a participant", t.ID, charID)
	}
	self.Gold = gold
	return nil
}

// Lock freezes charID's offer. Transitions Compose→LockedA/LockedB, or
// LockedA/LockedB→BothLocked once the other side is already locked.
func (t *Trade) Lock(charID int32) error {
	_, _, isA, ok := t.sideOf(charID)
	if !ok {
		return fmt.Errorf("trade %d: %d is not a participant", t.ID, charID)
	}
	switch t.Phase {
	case TradeCompose:
		if isA {
			t.Phase = TradeLockedA
		} else {
			t.Phase = TradeLockedB
		}
	case TradeLockedA:
		if !isA {
			t.Phase = TradeBothLocked
		}
	case TradeLockedB:
		if isA {
			t.Phase = TradeBothLocked
		}
	default:
		return fmt.Errorf("trade %d: cannot lock from phase %d", t.ID, t.Phase)
	}
	return nil
}

// Confirm moves a locked trade toward commit. Both sides must confirm
// (ConfirmedA then ConfirmedB, in either order) before Commit is legal.
func (t *Trade) Confirm(charID int32) error {
	_, _, isA, ok := t.sideOf(charID)
	if !ok {
		return fmt.Errorf("trade %d: %d is not a participant", t.ID, charID)
	}
	switch t.Phase {
	case TradeBothLocked:
		if isA {
			t.Phase = TradeConfirmedA
		} else {
			t.Phase = TradeConfirmedB
		}
	case TradeConfirmedA:
		if !isA {
			t.Phase = TradeCommitted
		}
	case TradeConfirmedB:
		if isA {
			t.Phase = TradeCommitted
		}
	default:
		return fmt.Errorf("trade %d: cannot confirm from phase %d", t.ID, t.Phase)
	}
	return nil
}

// Cancel aborts the trade from any non-terminal phase. Per the duplication-
// attack scenario (§8 #1), a disconnect mid-trade must cancel rather than
// commit, with both offers returned unchanged and no audit of a transfer.
func (t *Trade) Cancel() {
	if t.Phase != TradeCommitted {
		t.Phase = TradeCancelled
	}
}

func (t *Trade) IsTerminal() bool {
	return t.Phase == TradeCommitted || t.Phase == TradeCancelled
}

// TradeManager enforces "only one active trade session per character"
// and allocates trade ids.
type TradeManager struct {
	nextID     int32
	trades     map[int32]*Trade
	activeByChar map[int32]int32
}

func NewTradeManager() *TradeManager {
	return &TradeManager{
		trades:       make(map[int32]*Trade),
		activeByChar: make(map[int32]int32),
	}
}

func (m *TradeManager) Start(a, b int32) (*Trade, error) {
	if _, busy := m.activeByChar[a]; busy {
		return nil, fmt.Errorf("trade: %d already has an active trade session", a)
	}
	if _, busy := m.activeByChar[b]; busy {
		return nil, fmt.Errorf("trade: %d already has an active trade session", b)
	}
	m.nextID++
	t := &Trade{ID: m.nextID, A: a, B: b, Phase: TradeCompose}
	m.trades[t.ID] = t
	m.activeByChar[a] = t.ID
	m.activeByChar[b] = t.ID
	return t, nil
}

// IsSlotLocked reports whether charID has an active trade with invSlot
// staged in their offer, meaning it cannot be equipped, moved, or
// consumed until it is unstaged or the trade ends.
func (m *TradeManager) IsSlotLocked(charID int32, invSlot int) bool {
	t := m.Get(charID)
	if t == nil {
		return false
	}
	return t.SlotLocked(charID, invSlot)
}

func (m *TradeManager) Get(charID int32) *Trade {
	id, ok := m.activeByChar[charID]
	if !ok {
		return nil
	}
	return m.trades[id]
}

// End removes a terminal trade from the active index, freeing both
// participants to start a new trade.
func (m *TradeManager) End(tradeID int32) {
	t := m.trades[tradeID]
	if t == nil {
		return
	}
	delete(m.activeByChar, t.A)
	delete(m.activeByChar, t.B)
	delete(m.trades, tradeID)
}
