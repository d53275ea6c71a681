package handler

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/world"
)

const maxMarketBrowsePage = 200

// marketFee builds the configured fee schedule for an instant-sale
// listing (§4.7 Fees).
func (d *Deps) marketFee() model.FeeSchedule {
	return model.FeeSchedule{BaseRate: d.Config.Economy.MarketListingFeePct}
}

// auctionFee builds the configured fee schedule for an auction sale.
func (d *Deps) auctionFee() model.FeeSchedule {
	return model.FeeSchedule{BaseRate: d.Config.Economy.AuctionHouseFeePct}
}

// clampDuration keeps a client-requested duration within the configured
// [min, max] window for the listing/auction kind in question.
func clampDuration(requested, min, max int64) int64 {
	if requested < min {
		return min
	}
	if requested > max {
		return max
	}
	return requested
}

// HandleMarketList replies with every open instant-sale listing, newest
// first up to maxMarketBrowsePage entries (§3 Market listing, §4.7).
func (d *Deps) HandleMarketList(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld {
		return
	}
	listings := d.World.Market.OpenListings()
	sort.Slice(listings, func(i, j int) bool { return listings[i].ID > listings[j].ID })
	w := packet.NewWriter()
	n := len(listings)
	if n > maxMarketBrowsePage {
		n = maxMarketBrowsePage
	}
	w.WriteH(uint16(n))
	for i := 0; i < n; i++ {
		l := listings[i]
		w.WriteD(l.ID)
		w.WriteD(l.SellerID)
		w.WriteD(l.Item.ItemID)
		w.WriteD(l.Item.Value)
		w.WriteD(int32(l.Price))
	}
	d.sendTo(c, packet.OpMarketResult, w)
}

// HandleMarketSell escrows an inventory item into a new instant-sale
// listing (§3, §4.7). Only items the content table marks Tradable may be
// listed, mirroring the same flag gate trade/storage apply.
func (d *Deps) HandleMarketSell(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld || c.Dead {
		return
	}
	slot := int(r.ReadC())
	price := int64(r.ReadDU())
	durationS := int64(r.ReadD())

	it := c.Inventory.At(slot)
	if it.Empty() || price <= 0 {
		return
	}
	if d.World.Trades.IsSlotLocked(c.ID, slot) {
		d.sendSystemMessage(c, model.ErrItemLocked.Error())
		return
	}
	tmpl := d.Content.Items.Template(it.ItemID)
	if tmpl == nil || !tmpl.Tradable {
		d.sendSystemMessage(c, "item cannot be listed on the market")
		return
	}
	if _, err := c.Inventory.Remove(slot); err != nil {
		return
	}

	minD := int64(d.Config.Economy.MarketListingMin.Seconds())
	maxD := int64(d.Config.Economy.MarketListingMax.Seconds())
	l := &model.Listing{
		SellerID:  c.ID,
		Item:      it,
		Price:     price,
		PostedAt:  d.Now() / 1000,
		DurationS: clampDuration(durationS, minD, maxD),
		Fee:       d.marketFee(),
	}
	id := d.World.Market.CreateListing(l)
	d.sendInventorySlot(c, slot)
	d.sendMarketAck(c, id)
}

// HandleMarketBuy resolves an instant-sale purchase: the buyer pays
// Price, the seller receives Price minus the configured fee, delivered
// immediately if the seller is online (§4.7). An offline seller's
// proceeds are not queued for later delivery — there is no mailbox
// feature in this build to hold them.
func (d *Deps) HandleMarketBuy(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld || c.Dead {
		return
	}
	listingID := r.ReadD()
	l := d.World.Market.Listing(listingID)
	if l == nil || l.Sold || l.Expired {
		d.sendSystemMessage(c, "listing no longer available")
		return
	}
	if c.Gold < l.Price {
		d.sendSystemMessage(c, "not enough gold")
		return
	}
	slot := c.Inventory.FirstEmpty()
	if slot == -1 {
		d.sendSystemMessage(c, "inventory full")
		return
	}
	c.Gold -= l.Price
	_ = c.Inventory.Put(slot, l.Item)
	l.Sold = true
	d.World.Market.RemoveListing(l.ID)

	net := l.Price - l.Fee.Compute(l.Price)
	if seller := d.World.Character(l.SellerID); seller != nil {
		seller.Gold += net
		d.sendSystemMessage(seller, "your market listing sold")
	} else {
		d.Log.Info("market listing sold while seller offline, proceeds not delivered",
			zap.Int32("listing_id", l.ID), zap.Int32("seller_id", l.SellerID))
	}

	d.sendInventorySlot(c, slot)
	d.sendMarketAck(c, l.ID)
}

// HandleMarketCancel withdraws the caller's own unsold listing, returning
// the escrowed item to inventory.
func (d *Deps) HandleMarketCancel(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	listingID := r.ReadD()
	l := d.World.Market.Listing(listingID)
	if l == nil || l.SellerID != c.ID || l.Sold {
		return
	}
	slot := c.Inventory.FirstEmpty()
	if slot == -1 {
		d.sendSystemMessage(c, "inventory full, cannot reclaim item")
		return
	}
	_ = c.Inventory.Put(slot, l.Item)
	d.World.Market.RemoveListing(l.ID)
	d.sendInventorySlot(c, slot)
	d.sendMarketAck(c, l.ID)
}

// HandleAuctionList replies with open auctions and their live prices, up
// to maxMarketBrowsePage entries (§3 Auction, §4.7).
func (d *Deps) HandleAuctionList(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld {
		return
	}
	auctions := d.World.Market.OpenAuctions()
	now := d.Now() / 1000
	w := packet.NewWriter()
	n := len(auctions)
	if n > maxMarketBrowsePage {
		n = maxMarketBrowsePage
	}
	w.WriteH(uint16(n))
	for i := 0; i < n; i++ {
		a := auctions[i]
		w.WriteD(a.ID)
		w.WriteD(a.SellerID)
		w.WriteD(a.Item.ItemID)
		w.WriteD(int32(a.CurrentPrice(now)))
		w.WriteD(int32(a.EndTime - now))
	}
	d.sendTo(c, packet.OpAuctionResult, w)
}

// HandleAuctionCreate escrows an inventory item into a new auction
// (§3, §4.7). Kind/price/duration fields are client-supplied and
// clamped/validated server-side.
func (d *Deps) HandleAuctionCreate(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld || c.Dead {
		return
	}
	slot := int(r.ReadC())
	kind := model.AuctionKind(r.ReadC())
	startPrice := int64(r.ReadDU())
	reservePrice := int64(r.ReadDU())
	buyoutPrice := int64(r.ReadDU())
	minIncrement := int64(r.ReadDU())
	durationS := int64(r.ReadD())

	if kind < model.AuctionStandard || kind > model.AuctionSealed {
		return
	}
	it := c.Inventory.At(slot)
	if it.Empty() || startPrice <= 0 || minIncrement <= 0 {
		return
	}
	if d.World.Trades.IsSlotLocked(c.ID, slot) {
		d.sendSystemMessage(c, model.ErrItemLocked.Error())
		return
	}
	tmpl := d.Content.Items.Template(it.ItemID)
	if tmpl == nil || !tmpl.Tradable {
		d.sendSystemMessage(c, "item cannot be auctioned")
		return
	}
	if _, err := c.Inventory.Remove(slot); err != nil {
		return
	}

	minD := int64(d.Config.Economy.AuctionMinDuration.Seconds())
	maxD := int64(d.Config.Economy.AuctionMaxDuration.Seconds())
	now := d.Now() / 1000
	a := &model.Auction{
		SellerID:     c.ID,
		Item:         it,
		Kind:         kind,
		StartPrice:   startPrice,
		ReservePrice: reservePrice,
		BuyoutPrice:  buyoutPrice,
		MinIncrement: minIncrement,
		StartTime:    now,
		EndTime:      now + clampDuration(durationS, minD, maxD),
		SnipeWindow:  int64(d.Config.Economy.AntiSnipeWindow.Seconds()),
		SnipeExtend:  int64(d.Config.Economy.AntiSnipeExtend.Seconds()),
		ExtendCap:    int64(d.Config.Economy.AntiSnipeExtendCap.Seconds()),
		Fee:          d.auctionFee(),
	}
	ctx := context.Background()
	if persistedID, err := d.Repos.Auctions.Create(ctx, a); err != nil {
		d.Log.Error("auction persist failed", zap.Error(err))
	} else {
		a.ID = persistedID
	}
	id := d.World.Market.CreateAuction(a)

	d.sendInventorySlot(c, slot)
	d.sendAuctionAck(c, id)
}

// HandleAuctionBid places a bid, escrowing the bidder's gold immediately
// and refunding whichever bid it displaces (§3, §4.7, §8 scenario 3).
func (d *Deps) HandleAuctionBid(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld || c.Dead {
		return
	}
	auctionID := r.ReadD()
	amount := int64(r.ReadDU())

	a := d.World.Market.Auction(auctionID)
	if a == nil {
		d.sendSystemMessage(c, "auction no longer available")
		return
	}
	if c.Gold < amount {
		d.sendSystemMessage(c, "not enough gold")
		return
	}
	prevBid, err := a.PlaceBid(c.ID, amount, d.Now()/1000)
	if err != nil {
		d.sendSystemMessage(c, err.Error())
		return
	}
	c.Gold -= amount
	if prevBid != nil {
		if prevBidder := d.World.Character(prevBid.BidderID); prevBidder != nil {
			prevBidder.Gold += prevBid.Amount
			d.sendSystemMessage(prevBidder, "you were outbid and refunded")
		}
	}

	ctx := context.Background()
	if err := d.Repos.Auctions.SaveBid(ctx, a.ID, c.ID, amount, a.EndTime); err != nil {
		d.Log.Error("auction bid persist failed", zap.Error(err))
	}
	d.sendAuctionAck(c, a.ID)
}

// HandleAuctionCancel withdraws the caller's own auction before any bid
// has been placed, returning the escrowed item.
func (d *Deps) HandleAuctionCancel(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	auctionID := r.ReadD()
	a := d.World.Market.Auction(auctionID)
	if a == nil || a.SellerID != c.ID || a.CurrentBid != nil || a.Finalized {
		return
	}
	slot := c.Inventory.FirstEmpty()
	if slot == -1 {
		d.sendSystemMessage(c, "inventory full, cannot reclaim item")
		return
	}
	_ = c.Inventory.Put(slot, a.Item)
	a.Finalized = true
	d.World.Market.RemoveAuction(a.ID)

	ctx := context.Background()
	if err := d.Repos.Auctions.Close(ctx, a.ID); err != nil {
		d.Log.Error("auction close persist failed", zap.Error(err))
	}
	d.sendInventorySlot(c, slot)
	d.sendAuctionAck(c, a.ID)
}

func (d *Deps) sendMarketAck(c *world.Character, listingID int32) {
	w := packet.NewWriter()
	w.WriteD(listingID)
	d.sendTo(c, packet.OpMarketResult, w)
}

func (d *Deps) sendAuctionAck(c *world.Character, auctionID int32) {
	w := packet.NewWriter()
	w.WriteD(auctionID)
	d.sendTo(c, packet.OpAuctionResult, w)
}

// FinalizeDueAuctions closes every auction whose end time has passed,
// delivering the item to the winner and net proceeds to the seller when
// each is online, and persisting closure either way (§4.7). Called once
// per tick from internal/system.MarketSystem.
func (d *Deps) FinalizeDueAuctions() {
	ctx := context.Background()
	now := d.Now() / 1000
	for _, a := range d.World.Market.DueAuctions(now) {
		winnerID, net := a.Finalize(now)
		d.World.Market.RemoveAuction(a.ID)

		if winnerID != 0 {
			if winner := d.World.Character(winnerID); winner != nil {
				if slot := winner.Inventory.FirstEmpty(); slot != -1 {
					_ = winner.Inventory.Put(slot, a.Item)
					d.sendInventorySlot(winner, slot)
				}
				d.sendSystemMessage(winner, "you won an auction")
			}
			if seller := d.World.Character(a.SellerID); seller != nil {
				seller.Gold += net
				d.sendSystemMessage(seller, "your auction sold")
			}
		} else if seller := d.World.Character(a.SellerID); seller != nil {
			if slot := seller.Inventory.FirstEmpty(); slot != -1 {
				_ = seller.Inventory.Put(slot, a.Item)
				d.sendInventorySlot(seller, slot)
			}
		}

		if err := d.Repos.Auctions.Close(ctx, a.ID); err != nil {
			d.Log.Error("auction finalize persist failed", zap.Error(err))
		}
	}
}

// ExpireMarketListings returns unsold listings to their sellers once
// their duration elapses (§4.7). Called once per tick alongside
// FinalizeDueAuctions.
func (d *Deps) ExpireMarketListings() {
	now := d.Now() / 1000
	for _, l := range d.World.Market.OpenListings() {
		if now < l.ExpiresAt() {
			continue
		}
		l.Expired = true
		d.World.Market.RemoveListing(l.ID)
		if seller := d.World.Character(l.SellerID); seller != nil {
			if slot := seller.Inventory.FirstEmpty(); slot != -1 {
				_ = seller.Inventory.Put(slot, l.Item)
				d.sendInventorySlot(seller, slot)
				d.sendSystemMessage(seller, "your unsold market listing expired and was returned")
			}
		}
	}
}
