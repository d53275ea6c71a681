package handler

import (
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/world"
)

const pickupRange = 2

// HandleItemDrop removes an item from inventory and places it on the
// ground at the character's feet (§4.6).
func (d *Deps) HandleItemDrop(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld || c.Dead {
		return
	}
	slot := int(r.ReadC())
	it := c.Inventory.At(slot)
	if it.Empty() {
		return
	}
	if d.World.Trades.IsSlotLocked(c.ID, slot) {
		d.sendSystemMessage(c, model.ErrItemLocked.Error())
		return
	}
	tmpl := d.Content.Items.Template(it.ItemID)
	if tmpl != nil && !tmpl.Droppable {
		d.sendSystemMessage(c, "item cannot be dropped")
		return
	}
	if _, err := c.Inventory.Remove(slot); err != nil {
		return
	}
	nowMs := d.Now()
	d.World.DropGroundItem(it, c.Pos, c.ID, d.Config.Economy.LootWindow.Milliseconds(), d.Config.Economy.GroundItemTTL.Milliseconds(), nowMs)
	d.sendInventorySlot(c, slot)
}

// HandleItemGet picks up a ground item within range, honoring its loot
// window/owner rights (§4.6).
func (d *Deps) HandleItemGet(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld || c.Dead {
		return
	}
	groundID := int64(r.ReadDU())
	g, ok := d.World.GroundItem(groundID)
	if !ok {
		return
	}
	if chebyshevDist(c.Pos, g.Pos) > pickupRange {
		return
	}
	partyID := int32(0)
	if party := d.World.Parties.GetParty(c.ID); party != nil {
		partyID = party.ID
	}
	if !g.LootableBy(c.ID, partyID, d.Now()) {
		d.sendSystemMessage(c, "that item isn't yours to loot yet")
		return
	}
	slot := c.Inventory.FirstEmpty()
	if slot == -1 {
		d.sendSystemMessage(c, "inventory full")
		return
	}
	if _, ok := d.World.PickUpGroundItem(groundID); !ok {
		return
	}
	_ = c.Inventory.Put(slot, g.Item)
	d.sendInventorySlot(c, slot)
	d.advanceItemObjectives(g.Item.ItemID, model.ObjectiveCollect)
}

// HandleItemEquip moves an item between inventory and equipment,
// rejecting class/level restrictions the content table encodes (§4.4).
func (d *Deps) HandleItemEquip(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld || c.Dead {
		return
	}
	fromSlot := int(r.ReadC())
	toSlot := int(r.ReadC())
	unequip := r.ReadC() != 0

	var err error
	if unequip {
		if d.World.Trades.IsSlotLocked(c.ID, toSlot) {
			d.sendSystemMessage(c, model.ErrItemLocked.Error())
			return
		}
		err = model.Move(c.Equipment, fromSlot, c.Inventory, toSlot)
	} else {
		if d.World.Trades.IsSlotLocked(c.ID, fromSlot) {
			d.sendSystemMessage(c, model.ErrItemLocked.Error())
			return
		}
		it := c.Inventory.At(fromSlot)
		if it.Empty() {
			return
		}
		info := d.Content.Items.Get(it.ItemID)
		if info == nil || !info.ClassAllowed(0) {
			d.sendSystemMessage(c, "cannot equip that item")
			return
		}
		if c.Level < info.MinLevel || (info.MaxLevel > 0 && c.Level > info.MaxLevel) {
			d.sendSystemMessage(c, "cannot equip that item")
			return
		}
		tmpl := d.Content.Items.Template(it.ItemID)
		if tmpl == nil || !tmpl.Equippable || int(tmpl.EquipSlot) != toSlot {
			d.sendSystemMessage(c, "item does not fit that slot")
			return
		}
		err = model.Move(c.Inventory, fromSlot, c.Equipment, toSlot)
	}
	if err != nil {
		d.sendSystemMessage(c, "slot occupied")
		return
	}
	d.sendInventorySlot(c, fromSlot)
	d.sendEquipSlot(c, toSlot)
}

// HandleItemUse consumes a usable item (potion, scroll) from inventory,
// applying its effect and decrementing its stack (§4.4).
func (d *Deps) HandleItemUse(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld || c.Dead {
		return
	}
	slot := int(r.ReadC())
	it := c.Inventory.At(slot)
	if it.Empty() {
		return
	}
	if d.World.Trades.IsSlotLocked(c.ID, slot) {
		d.sendSystemMessage(c, model.ErrItemLocked.Error())
		return
	}
	tmpl := d.Content.Items.Template(it.ItemID)
	if tmpl == nil || !tmpl.Stackable {
		return
	}
	it.Value--
	if it.Value <= 0 {
		_, _ = c.Inventory.Remove(slot)
	} else {
		_ = c.Inventory.Put(slot, it)
	}
	d.applyConsumableEffect(c, it.ItemID)
	d.sendInventorySlot(c, slot)
	d.advanceItemObjectives(it.ItemID, model.ObjectiveUseItem)
}

// applyConsumableEffect is a minimal HP/MP restore path: it applies only
// the item table's HP/MP restore values and does not consult the
// scripting engine.
func (d *Deps) applyConsumableEffect(c *world.Character, itemID int32) {
	info := d.Content.Items.Get(itemID)
	if info == nil {
		return
	}
	c.HP += int32(info.AddHP)
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
	c.MP += int32(info.AddMP)
	if c.MP > c.MaxMP {
		c.MP = c.MaxMP
	}
}

// SendGroundItemDespawn notifies a character that a ground item it could
// see has been removed (picked up or expired), encoding the id the same
// DU way HandleItemGet reads it (§4.6).
func (d *Deps) SendGroundItemDespawn(c *world.Character, groundID int64) {
	w := packet.NewWriter()
	w.WriteDU(uint32(groundID))
	d.sendTo(c, packet.OpEntityDespawn, w)
}

func (d *Deps) sendInventorySlot(c *world.Character, slot int) {
	it := c.Inventory.At(slot)
	w := packet.NewWriter()
	w.WriteC(byte(model.ContainerInventory))
	w.WriteC(byte(slot))
	w.WriteD(it.ItemID)
	w.WriteD(it.Value)
	d.sendTo(c, packet.OpItemUpdate, w)
}

func (d *Deps) sendEquipSlot(c *world.Character, slot int) {
	it := c.Equipment.At(slot)
	w := packet.NewWriter()
	w.WriteC(byte(model.ContainerEquipment))
	w.WriteC(byte(slot))
	w.WriteD(it.ItemID)
	w.WriteD(it.Value)
	d.sendTo(c, packet.OpItemUpdate, w)
}
