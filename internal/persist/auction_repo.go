package persist

import (
	"context"
	"encoding/json"

	"github.com/wydtm/tmsrv/internal/model"
)

// AuctionRow is the persisted shape of one market auction (§4.7), reduced
// from model.Auction to the columns durable across restarts — sealed bids
// and in-flight bid history stay in memory and are forfeit on crash, same
// as the teacher's economic tables treat uncommitted shop state.
type AuctionRow struct {
	ID            int32
	SellerID      int32
	ItemID        int32
	ItemEffects   [3][2]int16
	ItemValue     int32
	Kind          int16
	StartPrice    int64
	ReservePrice  int64
	BuyoutPrice   int64
	MinIncrement  int64
	StartTime     int64
	EndTime       int64
	CurrentBidder int32
	CurrentBid    int64
	Closed        bool
}

type AuctionRepo struct {
	db *DB
}

func NewAuctionRepo(db *DB) *AuctionRepo {
	return &AuctionRepo{db: db}
}

// LoadOpen returns every auction not yet closed, used to repopulate the
// in-memory market on startup.
func (r *AuctionRepo) LoadOpen(ctx context.Context) ([]AuctionRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, seller_id, item_id, item_effects, item_value, kind,
		        start_price, reserve_price, buyout_price, min_increment,
		        start_time, end_time, COALESCE(current_bidder, 0), current_bid, closed
		 FROM auctions WHERE closed = FALSE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AuctionRow
	for rows.Next() {
		var a AuctionRow
		var raw []byte
		if err := rows.Scan(&a.ID, &a.SellerID, &a.ItemID, &raw, &a.ItemValue, &a.Kind,
			&a.StartPrice, &a.ReservePrice, &a.BuyoutPrice, &a.MinIncrement,
			&a.StartTime, &a.EndTime, &a.CurrentBidder, &a.CurrentBid, &a.Closed); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &a.ItemEffects)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *AuctionRepo) Create(ctx context.Context, a *model.Auction) (int32, error) {
	effects, err := json.Marshal(a.Item.Effects)
	if err != nil {
		return 0, err
	}
	var id int32
	err = r.db.Pool.QueryRow(ctx,
		`INSERT INTO auctions (seller_id, item_id, item_effects, item_value, kind,
		                       start_price, reserve_price, buyout_price, min_increment,
		                       start_time, end_time)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		a.SellerID, a.Item.ItemID, effects, a.Item.Value, int16(a.Kind),
		a.StartPrice, a.ReservePrice, a.BuyoutPrice, a.MinIncrement,
		a.StartTime, a.EndTime,
	).Scan(&id)
	return id, err
}

// SaveBid persists the current high bid and the (possibly anti-snipe
// extended) end time in one update (§4.7 scenario 3).
func (r *AuctionRepo) SaveBid(ctx context.Context, auctionID, bidderID int32, amount, endTime int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE auctions SET current_bidder = $1, current_bid = $2, end_time = $3 WHERE id = $4`,
		bidderID, amount, endTime, auctionID)
	return err
}

func (r *AuctionRepo) Close(ctx context.Context, auctionID int32) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE auctions SET closed = TRUE WHERE id = $1`, auctionID)
	return err
}
