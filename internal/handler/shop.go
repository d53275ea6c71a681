package handler

import (
	"github.com/wydtm/tmsrv/internal/data"
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/world"
)

const maxShopOrderCount = 100

// HandleShopOpen replies with the list of items an NPC's shop sells,
// so the client can render a shop window before issuing OpShopBuy (§4.6).
func (d *Deps) HandleShopOpen(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	npcID := r.ReadD()
	shop := d.Content.Shops.Get(npcID)
	if shop == nil {
		return
	}
	d.advanceNPCObjectives(npcID, model.ObjectiveTalk)
	d.advanceNPCObjectives(npcID, model.ObjectiveDeliver)
	w := packet.NewWriter()
	w.WriteD(npcID)
	w.WriteH(uint16(len(shop.SellingItems)))
	for _, it := range shop.SellingItems {
		w.WriteD(it.ItemID)
		w.WriteD(it.SellingPrice)
	}
	d.sendTo(c, packet.OpShopResult, w)
}

// HandleShopBuy resolves a buy (mode 0) or sell (mode 1) transaction
// against an NPC's shop list, one order per (itemID, quantity) pair.
func (d *Deps) HandleShopBuy(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld {
		return
	}
	npcID := r.ReadD()
	mode := r.ReadC()
	count := int(r.ReadH())
	if count <= 0 || count > maxShopOrderCount {
		return
	}
	shop := d.Content.Shops.Get(npcID)
	if shop == nil {
		return
	}
	if mode == 0 {
		d.buyFromShop(c, shop, r, count)
		return
	}
	d.sellToShop(c, shop, r, count)
}

func (d *Deps) buyFromShop(c *world.Character, shop *data.Shop, r *packet.Reader, count int) {
	type order struct {
		itemID int32
		qty    int32
	}
	orders := make([]order, 0, count)
	for i := 0; i < count; i++ {
		orders = append(orders, order{itemID: r.ReadD(), qty: r.ReadD()})
	}

	var total int64
	for _, o := range orders {
		var entry *data.ShopItem
		for _, it := range shop.SellingItems {
			if it.ItemID == o.itemID {
				entry = it
				break
			}
		}
		if entry == nil || o.qty <= 0 {
			d.sendShopResult(c, false, c.Gold)
			return
		}
		total += int64(entry.SellingPrice) * int64(o.qty) / int64(entry.PackCount)
	}
	if total > c.Gold {
		d.sendShopResult(c, false, c.Gold)
		return
	}

	for _, o := range orders {
		slot := c.Inventory.FirstEmpty()
		if slot == -1 {
			break
		}
		tmpl := d.Content.Items.Template(o.itemID)
		it := model.Item{ItemID: o.itemID, Value: o.qty}
		if tmpl == nil || !tmpl.Stackable {
			it.Value = 1
		}
		_ = c.Inventory.Put(slot, it)
	}
	c.Gold -= total
	d.sendShopResult(c, true, c.Gold)
}

func (d *Deps) sellToShop(c *world.Character, shop *data.Shop, r *packet.Reader, count int) {
	type order struct {
		slot int
		qty  int32
	}
	orders := make([]order, 0, count)
	for i := 0; i < count; i++ {
		orders = append(orders, order{slot: int(r.ReadC()), qty: r.ReadD()})
	}

	var total int64
	for _, o := range orders {
		it := c.Inventory.At(o.slot)
		if it.Empty() {
			continue
		}
		var entry *data.ShopItem
		for _, e := range shop.PurchasingItems {
			if e.ItemID == it.ItemID {
				entry = e
				break
			}
		}
		if entry == nil {
			continue
		}
		qty := o.qty
		if qty <= 0 || qty > it.Value {
			qty = it.Value
		}
		total += int64(entry.PurchasingPrice) * int64(qty) / int64(entry.PackCount)
		if qty >= it.Value {
			_, _ = c.Inventory.Remove(o.slot)
		} else {
			it.Value -= qty
			_ = c.Inventory.Put(o.slot, it)
		}
	}
	c.Gold += total
	d.sendShopResult(c, true, c.Gold)
}

// HandleShopClose is a no-op: no shop-session state survives past each
// individual buy/sell transaction for the tick to tear down.
func (d *Deps) HandleShopClose(sess any, r *packet.Reader) {}

func (d *Deps) sendShopResult(c *world.Character, ok bool, gold int64) {
	w := packet.NewWriter()
	w.WriteC(boolByte(ok))
	w.WriteD(int32(gold))
	d.sendTo(c, packet.OpShopResult, w)
}
