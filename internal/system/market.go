package system

import (
	"time"

	coresys "github.com/wydtm/tmsrv/internal/core/system"
	"github.com/wydtm/tmsrv/internal/handler"
)

// MarketSystem closes auctions past their end time and returns unsold
// market listings to their sellers once the listing's duration elapses
// (§3 Market listing / Auction, §4.7). Phase 3 (PostUpdate), alongside
// the other "world reacts to the clock" work.
type MarketSystem struct {
	deps *handler.Deps
}

func NewMarketSystem(deps *handler.Deps) *MarketSystem {
	return &MarketSystem{deps: deps}
}

func (s *MarketSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *MarketSystem) Update(_ time.Duration) {
	s.deps.FinalizeDueAuctions()
	s.deps.ExpireMarketListings()
}
