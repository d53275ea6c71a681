package handler

import (
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/world"
)

// HandleTradeStart opens a two-party trade session between the caller
// and a target within melee range (§4.7 two-phase trade state machine).
func (d *Deps) HandleTradeStart(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld || c.Dead {
		return
	}
	targetID := r.ReadD()
	target := d.World.Character(targetID)
	if target == nil || target.ID == c.ID || target.Dead {
		return
	}
	if chebyshevDist(c.Pos, target.Pos) > meleeRange {
		d.sendSystemMessage(c, "trade partner is too far away")
		return
	}
	t, err := d.World.Trades.Start(c.ID, targetID)
	if err != nil {
		d.sendSystemMessage(c, "already trading")
		return
	}
	d.sendTradeUpdate(c, t)
	d.sendTradeUpdate(target, t)
}

// HandleTradeSetItem stages or unstages an inventory slot in the
// caller's side of their active trade.
func (d *Deps) HandleTradeSetItem(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	slot := int(r.ReadC())
	remove := r.ReadC() != 0
	t := d.World.Trades.Get(c.ID)
	if t == nil {
		return
	}
	var err error
	if remove {
		err = t.RemoveItem(c.ID, slot)
	} else {
		if c.Inventory.At(slot).Empty() {
			return
		}
		err = t.AddItem(c.ID, slot)
	}
	if err != nil {
		d.sendSystemMessage(c, "cannot modify trade offer now")
		return
	}
	d.broadcastTradeUpdate(t)
}

// HandleTradeSetGold sets the gold amount offered on the caller's side.
func (d *Deps) HandleTradeSetGold(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	gold := int64(r.ReadDU())
	t := d.World.Trades.Get(c.ID)
	if t == nil || gold < 0 || gold > c.Gold {
		return
	}
	if err := t.SetGold(c.ID, gold); err != nil {
		return
	}
	d.broadcastTradeUpdate(t)
}

// HandleTradeAccept advances the trade state machine one step: locks the
// caller's offer, then confirms once both sides are locked, committing
// the exchange once both have confirmed (§4.7, §8 scenario 1).
func (d *Deps) HandleTradeAccept(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	t := d.World.Trades.Get(c.ID)
	if t == nil {
		return
	}
	switch t.Phase {
	case model.TradeCompose, model.TradeLockedA, model.TradeLockedB:
		_ = t.Lock(c.ID)
	case model.TradeBothLocked, model.TradeConfirmedA, model.TradeConfirmedB:
		_ = t.Confirm(c.ID)
	}
	if t.Phase == model.TradeCommitted {
		d.commitTrade(t)
		return
	}
	d.broadcastTradeUpdate(t)
}

// HandleTradeClose cancels the caller's active trade from any
// non-terminal phase, returning both offers unchanged.
func (d *Deps) HandleTradeClose(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	t := d.World.Trades.Get(c.ID)
	if t == nil {
		return
	}
	t.Cancel()
	d.broadcastTradeUpdate(t)
	d.World.Trades.End(t.ID)
}

// commitTrade performs the atomic item/gold transfer once both sides
// have confirmed, then tears down the session. Disconnect-mid-trade is
// handled by Cancel rather than ever reaching this path (§8 scenario 1).
func (d *Deps) commitTrade(t *model.Trade) {
	a := d.World.Character(t.A)
	b := d.World.Character(t.B)
	if a == nil || b == nil {
		t.Cancel()
		d.World.Trades.End(t.ID)
		return
	}

	transfer := func(from, to *world.Character, offer model.TradeOffer) {
		for _, slot := range offer.ItemSlots {
			it := from.Inventory.At(slot)
			if it.Empty() {
				continue
			}
			toSlot := to.Inventory.FirstEmpty()
			if toSlot == -1 {
				continue
			}
			if _, err := from.Inventory.Remove(slot); err != nil {
				continue
			}
			_ = to.Inventory.Put(toSlot, it)
		}
		from.Gold -= offer.Gold
		to.Gold += offer.Gold
	}
	transfer(a, b, t.OfferA)
	transfer(b, a, t.OfferB)

	d.sendTradeUpdate(a, t)
	d.sendTradeUpdate(b, t)
	d.World.Trades.End(t.ID)
}

func (d *Deps) broadcastTradeUpdate(t *model.Trade) {
	if a := d.World.Character(t.A); a != nil {
		d.sendTradeUpdate(a, t)
	}
	if b := d.World.Character(t.B); b != nil {
		d.sendTradeUpdate(b, t)
	}
}

func (d *Deps) sendTradeUpdate(c *world.Character, t *model.Trade) {
	w := packet.NewWriter()
	w.WriteD(t.ID)
	w.WriteC(byte(t.Phase))
	w.WriteD(int32(t.OfferA.Gold))
	w.WriteD(int32(t.OfferB.Gold))
	d.sendTo(c, packet.OpTradeUpdate, w)
}
