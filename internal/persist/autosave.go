package persist

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// AutosaveBatch fans out one SaveCharacter call per row with bounded
// concurrency, used by the periodic checkpoint sweep (§4.3) so a large
// population doesn't serialize behind a single connection's round trips.
type AutosaveBatch struct {
	chars *CharacterRepo
	limit int
}

func NewAutosaveBatch(chars *CharacterRepo, concurrency int) *AutosaveBatch {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &AutosaveBatch{chars: chars, limit: concurrency}
}

// Run saves every row, stopping at the first error and cancelling the rest
// in flight; errgroup.SetLimit bounds how many SaveCharacter calls run at
// once against the pool.
func (b *AutosaveBatch) Run(ctx context.Context, rows []*CharacterRow) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for _, row := range rows {
		row := row
		g.Go(func() error {
			return b.chars.SaveCharacter(ctx, row)
		})
	}
	return g.Wait()
}
