package model

import "testing"

func TestTradeFullHappyPathCommits(t *testing.T) {
	mgr := NewTradeManager()
	tr, err := mgr.Start(1, 2)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := tr.AddItem(1, 0); err != nil {
		t.Fatalf("AddItem A: %v", err)
	}
	if err := tr.SetGold(2, 500); err != nil {
		t.Fatalf("SetGold B: %v", err)
	}

	if err := tr.Lock(1); err != nil {
		t.Fatalf("Lock A: %v", err)
	}
	if tr.Phase != TradeLockedA {
		t.Fatalf("expected LockedA, got %v", tr.Phase)
	}
	if err := tr.Lock(2); err != nil {
		t.Fatalf("Lock B: %v", err)
	}
	if tr.Phase != TradeBothLocked {
		t.Fatalf("expected BothLocked, got %v", tr.Phase)
	}

	if err := tr.Confirm(1); err != nil {
		t.Fatalf("Confirm A: %v", err)
	}
	if tr.Phase != TradeConfirmedA {
		t.Fatalf("expected ConfirmedA, got %v", tr.Phase)
	}
	if err := tr.Confirm(2); err != nil {
		t.Fatalf("Confirm B: %v", err)
	}
	if tr.Phase != TradeCommitted {
		t.Fatalf("expected Committed, got %v", tr.Phase)
	}
	if !tr.IsTerminal() {
		t.Fatalf("Committed should be terminal")
	}
}

func TestTradeCannotModifyOfferAfterLock(t *testing.T) {
	mgr := NewTradeManager()
	tr, _ := mgr.Start(1, 2)
	tr.Lock(1)

	if err := tr.AddItem(1, 3); err == nil {
		t.Fatalf("expected error adding item after lock")
	}
}

// TestTradeDisconnectDuringLockCancels matches §8 scenario 1: A and B
// enter trade, A offers item X, both lock, B confirms, A disconnects
// before commit. Expected: Cancelled, no transfer.
func TestTradeDisconnectDuringLockCancels(t *testing.T) {
	mgr := NewTradeManager()
	tr, _ := mgr.Start(1, 2)
	tr.AddItem(1, 0)
	tr.Lock(1)
	tr.Lock(2)
	tr.Confirm(2)

	// A disconnects before confirming/committing.
	tr.Cancel()

	if tr.Phase != TradeCancelled {
		t.Fatalf("expected Cancelled after disconnect mid-trade, got %v", tr.Phase)
	}
	if !tr.IsTerminal() {
		t.Fatalf("Cancelled should be terminal")
	}
}

func TestTradeManagerRejectsSecondConcurrentTrade(t *testing.T) {
	mgr := NewTradeManager()
	if _, err := mgr.Start(1, 2); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := mgr.Start(1, 3); err == nil {
		t.Fatalf("expected error: character 1 already has an active trade")
	}
}

func TestAuctionAntiSnipeExtendsSequenceMatchesScenario(t *testing.T) {
	// §8 scenario 3: ends at t=100, snipeWindow=10, snipeExtend=30, cap=originalEndTime+120=220.
	// Bid at 95 -> 125. Bid at 120 -> 150. Bid at 145 -> 175, still under the cap.
	a := &Auction{
		ID:           1,
		Kind:         AuctionStandard,
		StartPrice:   10,
		MinIncrement: 1,
		StartTime:    0,
		EndTime:      100,
		SnipeWindow:  10,
		SnipeExtend:  30,
		ExtendCap:    120,
	}

	if _, err := a.PlaceBid(2, 20, 95); err != nil {
		t.Fatalf("bid at 95: %v", err)
	}
	if a.EndTime != 125 {
		t.Fatalf("expected end time 125 after bid at 95, got %d", a.EndTime)
	}

	if _, err := a.PlaceBid(3, 21, 120); err != nil {
		t.Fatalf("bid at 120: %v", err)
	}
	if a.EndTime != 150 {
		t.Fatalf("expected end time 150 after bid at 120, got %d", a.EndTime)
	}

	if _, err := a.PlaceBid(2, 22, 145); err != nil {
		t.Fatalf("bid at 145: %v", err)
	}
	if a.EndTime != 175 {
		t.Fatalf("expected end time 175 after bid at 145, got %d", a.EndTime)
	}
}

func TestAuctionBuyoutEndsImmediately(t *testing.T) {
	a := &Auction{
		ID:           1,
		Kind:         AuctionBuyout,
		StartPrice:   10,
		BuyoutPrice:  100,
		MinIncrement: 1,
		StartTime:    0,
		EndTime:      1000,
		ExtendCap:    2000,
	}
	if _, err := a.PlaceBid(5, 100, 50); err != nil {
		t.Fatalf("buyout bid: %v", err)
	}
	if a.EndTime != 50 {
		t.Fatalf("expected buyout to end auction immediately at bid time, got endTime=%d", a.EndTime)
	}
}

func TestAuctionReserveNotMetYieldsUnsold(t *testing.T) {
	a := &Auction{
		ID:           1,
		Kind:         AuctionReserve,
		StartPrice:   10,
		ReservePrice: 500,
		MinIncrement: 1,
		StartTime:    0,
		EndTime:      100,
	}
	a.PlaceBid(1, 50, 10)
	winner, proceeds := a.Finalize(100)
	if winner != 0 || proceeds != 0 {
		t.Fatalf("expected unsold auction below reserve, got winner=%d proceeds=%d", winner, proceeds)
	}
}

func TestAuctionSealedFinalizePicksHighestBid(t *testing.T) {
	a := &Auction{
		ID:   1,
		Kind:    AuctionSealed,
		EndTime: 5,
		Fee:     FeeSchedule{BaseRate: 0.1},
	}
	a.PlaceBid(1, 100, 0)
	a.PlaceBid(2, 300, 1)
	a.PlaceBid(3, 200, 2)

	winner, proceeds := a.Finalize(10)
	if winner != 2 {
		t.Fatalf("expected highest sealed bidder 2 to win, got %d", winner)
	}
	if proceeds != 270 {
		t.Fatalf("expected proceeds 300-10%%=270, got %d", proceeds)
	}
}

func TestFeeScheduleClampsToMinMax(t *testing.T) {
	f := FeeSchedule{BaseRate: 0.05, MinFee: 10, MaxFee: 100}
	if got := f.Compute(50); got != 10 {
		t.Fatalf("expected min fee clamp to 10, got %d", got)
	}
	if got := f.Compute(10000); got != 100 {
		t.Fatalf("expected max fee clamp to 100, got %d", got)
	}
}
