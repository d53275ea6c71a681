package handler

import (
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/world"
)

// HandleStorageOpen replies with the caller's bank contents.
func (d *Deps) HandleStorageOpen(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	d.sendStorageSnapshot(c)
}

// HandleStoragePut moves an item from inventory into the bank.
func (d *Deps) HandleStoragePut(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	invSlot := int(r.ReadC())
	bankSlot := int(r.ReadC())
	if err := model.Move(c.Inventory, invSlot, c.Bank, bankSlot); err != nil {
		d.sendSystemMessage(c, "storage slot occupied")
		return
	}
	d.sendStorageSnapshot(c)
}

// HandleStorageGet moves an item from the bank back into inventory.
func (d *Deps) HandleStorageGet(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	bankSlot := int(r.ReadC())
	invSlot := int(r.ReadC())
	if err := model.Move(c.Bank, bankSlot, c.Inventory, invSlot); err != nil {
		d.sendSystemMessage(c, "inventory slot occupied")
		return
	}
	d.sendStorageSnapshot(c)
}

// HandleStorageGold deposits (positive amount) or withdraws (negative)
// gold between the character's carried gold and bank gold.
func (d *Deps) HandleStorageGold(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	amount := int64(r.ReadD())
	if amount == 0 {
		return
	}
	if amount > 0 {
		if amount > c.Gold {
			return
		}
		c.Gold -= amount
		c.BankGold += amount
	} else {
		withdraw := -amount
		if withdraw > c.BankGold {
			return
		}
		c.BankGold -= withdraw
		c.Gold += withdraw
	}
	d.sendStorageSnapshot(c)
}

// HandleStorageClose is a no-op: the bank is reflected live after every
// put/get/gold op, so closing the window has nothing left to flush.
func (d *Deps) HandleStorageClose(sess any, r *packet.Reader) {}

func (d *Deps) sendStorageSnapshot(c *world.Character) {
	w := packet.NewWriter()
	w.WriteD(int32(c.BankGold))
	w.WriteH(uint16(c.Bank.Size()))
	c.Bank.Each(func(slot int, it model.Item) {
		w.WriteH(uint16(slot))
		w.WriteD(it.ItemID)
		w.WriteD(it.Value)
	})
	d.sendTo(c, packet.OpStorageResult, w)
}
