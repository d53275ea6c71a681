package model

import "fmt"

// Market owns every open listing and auction (§3 Market listing /
// Auction, §4.7). Like TradeManager it is a plain in-memory index;
// durability comes from internal/persist.AuctionRepo, which Market's
// owner (world.State) is responsible for reloading at boot and writing
// through to on create/bid/finalize.
type Market struct {
	nextListingID int32
	nextAuctionID int32
	listings      map[int32]*Listing
	auctions      map[int32]*Auction
}

func NewMarket() *Market {
	return &Market{
		listings: make(map[int32]*Listing),
		auctions: make(map[int32]*Auction),
	}
}

// CreateListing assigns the next listing id and indexes l.
func (m *Market) CreateListing(l *Listing) int32 {
	m.nextListingID++
	l.ID = m.nextListingID
	m.listings[l.ID] = l
	return l.ID
}

func (m *Market) Listing(id int32) *Listing { return m.listings[id] }

// OpenListings returns every listing not yet sold or expired.
func (m *Market) OpenListings() []*Listing {
	out := make([]*Listing, 0, len(m.listings))
	for _, l := range m.listings {
		if !l.Sold && !l.Expired {
			out = append(out, l)
		}
	}
	return out
}

func (m *Market) RemoveListing(id int32) { delete(m.listings, id) }

// CreateAuction assigns the next auction id (unless a itself already
// carries one, e.g. reloaded from persist.AuctionRepo.LoadOpen on
// boot) and indexes a.
func (m *Market) CreateAuction(a *Auction) int32 {
	if a.ID == 0 {
		m.nextAuctionID++
		a.ID = m.nextAuctionID
	} else if a.ID > m.nextAuctionID {
		m.nextAuctionID = a.ID
	}
	m.auctions[a.ID] = a
	return a.ID
}

func (m *Market) Auction(id int32) *Auction { return m.auctions[id] }

// OpenAuctions returns every auction not yet finalized.
func (m *Market) OpenAuctions() []*Auction {
	out := make([]*Auction, 0, len(m.auctions))
	for _, a := range m.auctions {
		if !a.Finalized {
			out = append(out, a)
		}
	}
	return out
}

// DueAuctions returns open auctions whose EndTime has passed as of now,
// for the periodic finalization sweep (§4.7).
func (m *Market) DueAuctions(now int64) []*Auction {
	var out []*Auction
	for _, a := range m.auctions {
		if !a.Finalized && now >= a.EndTime {
			out = append(out, a)
		}
	}
	return out
}

func (m *Market) RemoveAuction(id int32) { delete(m.auctions, id) }

// FeeSchedule is `{baseRate, minFee, maxFee, discountRate}` per
// transaction type (§4.7 Fees).
type FeeSchedule struct {
	BaseRate     float64
	MinFee       int64
	MaxFee       int64
	DiscountRate float64
}

// Compute returns the fee owed on proceeds, clamped to [MinFee, MaxFee]
// and reduced by DiscountRate (e.g. a guild hall tax reduction).
func (f FeeSchedule) Compute(proceeds int64) int64 {
	fee := int64(float64(proceeds) * f.BaseRate * (1 - f.DiscountRate))
	if fee < f.MinFee {
		fee = f.MinFee
	}
	if f.MaxFee > 0 && fee > f.MaxFee {
		fee = f.MaxFee
	}
	return fee
}

// Listing is a market sale: immutable metadata plus the escrowed item.
// Buy is instantaneous; listings expire at PostedAt+Duration.
type Listing struct {
	ID         int32
	SellerID   int32
	Item       Item
	Price      int64
	PostedAt   int64
	DurationS  int64
	Fee        FeeSchedule
	Sold       bool
	Expired    bool
}

func (l *Listing) ExpiresAt() int64 { return l.PostedAt + l.DurationS }

// AuctionKind selects one of the five auction variants (§4.7).
type AuctionKind int

const (
	AuctionStandard AuctionKind = iota
	AuctionReserve
	AuctionBuyout
	AuctionDutch
	AuctionSealed
)

type Bid struct {
	BidderID int32
	Amount   int64
	AtTime   int64
}

// Auction holds immutable sale metadata, mutable bid state, and the
// escrowed item payload (§3 Market listing / Auction).
type Auction struct {
	ID             int32
	SellerID       int32
	Item           Item
	Kind           AuctionKind
	StartPrice     int64
	ReservePrice   int64 // AuctionReserve only
	BuyoutPrice    int64 // AuctionBuyout only
	MinIncrement   int64
	DutchDecayRate int64 // price reduction per second, AuctionDutch only

	StartTime   int64
	EndTime     int64
	SnipeWindow int64
	SnipeExtend int64
	ExtendCap   int64 // extensions may push EndTime no further than originalEndTime+ExtendCap

	CurrentBid *Bid
	SealedBids []Bid // AuctionSealed only, opened at finalization

	Finalized bool
	Fee       FeeSchedule

	extendCapAnchor int64 // lazily captured: the EndTime in force before the first extension
}

// CurrentPrice returns the live price for display: Dutch decays linearly
// from StartPrice; other kinds show the current bid or start price.
func (a *Auction) CurrentPrice(now int64) int64 {
	if a.Kind == AuctionDutch {
		elapsed := now - a.StartTime
		if elapsed < 0 {
			elapsed = 0
		}
		price := a.StartPrice - elapsed*a.DutchDecayRate
		if price < 0 {
			price = 0
		}
		return price
	}
	if a.CurrentBid != nil {
		return a.CurrentBid.Amount
	}
	return a.StartPrice
}

// PlaceBid validates and records a bid, applying anti-snipe extension
// (§4.7, §8 scenario 3): a bid within SnipeWindow seconds of EndTime
// moves EndTime to SnipeExtend seconds after the bid (never earlier than
// the current EndTime), capped at ExtendCap.
func (a *Auction) PlaceBid(bidderID int32, amount, now int64) (refund *Bid, err error) {
	if a.Finalized {
		return nil, fmt.Errorf("auction %d: already finalized", a.ID)
	}
	if now >= a.EndTime {
		return nil, fmt.Errorf("auction %d: bidding closed", a.ID)
	}
	if a.Kind == AuctionSealed {
		a.SealedBids = append(a.SealedBids, Bid{BidderID: bidderID, Amount: amount, AtTime: now})
		return nil, nil
	}

	minRequired := a.StartPrice
	if a.CurrentBid != nil {
		minRequired = a.CurrentBid.Amount + a.MinIncrement
	}
	if a.Kind == AuctionReserve && a.ReservePrice > minRequired {
		minRequired = a.ReservePrice
	}
	if amount < minRequired {
		return nil, fmt.Errorf("auction %d: bid %d below required minimum %d", a.ID, amount, minRequired)
	}

	prev := a.CurrentBid
	a.CurrentBid = &Bid{BidderID: bidderID, Amount: amount, AtTime: now}

	if a.EndTime-now <= a.SnipeWindow {
		if a.extendCapAnchor == 0 {
			a.extendCapAnchor = a.EndTime + a.ExtendCap
		}
		extended := now + a.SnipeExtend
		if extended > a.EndTime {
			a.EndTime = extended
		}
		if a.EndTime > a.extendCapAnchor {
			a.EndTime = a.extendCapAnchor
		}
	}

	if a.Kind == AuctionBuyout && a.BuyoutPrice > 0 && amount >= a.BuyoutPrice {
		a.EndTime = now
	}

	return prev, nil
}

// Finalize closes the auction: returns the winning bidder (0 if unsold)
// and net proceeds after fees. Idempotent — calling twice on an already
// finalized auction is a no-op returning the same result.
func (a *Auction) Finalize(now int64) (winnerID int32, netProceeds int64) {
	if a.Finalized {
		if a.CurrentBid != nil {
			return a.CurrentBid.BidderID, a.CurrentBid.Amount - a.Fee.Compute(a.CurrentBid.Amount)
		}
		return 0, 0
	}
	a.Finalized = true

	if a.Kind == AuctionSealed {
		var best *Bid
		for i := range a.SealedBids {
			b := &a.SealedBids[i]
			if best == nil || b.Amount > best.Amount {
				best = b
			}
		}
		if best == nil || (a.ReservePrice > 0 && best.Amount < a.ReservePrice) {
			return 0, 0
		}
		a.CurrentBid = best
		return best.BidderID, best.Amount - a.Fee.Compute(best.Amount)
	}

	if a.CurrentBid == nil {
		return 0, 0
	}
	if a.Kind == AuctionReserve && a.CurrentBid.Amount < a.ReservePrice {
		return 0, 0
	}
	return a.CurrentBid.BidderID, a.CurrentBid.Amount - a.Fee.Compute(a.CurrentBid.Amount)
}
