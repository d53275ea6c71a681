package world

import "testing"

func TestInsertAndNearbyFindsWithinRadius(t *testing.T) {
	idx := NewSpatialIndex()
	near := EntityRef{ID: 1, Kind: EntityCharacter}
	far := EntityRef{ID: 2, Kind: EntityCharacter}
	idx.Insert(near, Position{X: 100, Y: 100, MapID: 4})
	idx.Insert(far, Position{X: 500, Y: 500, MapID: 4})

	results := idx.Nearby(Position{X: 100, Y: 100, MapID: 4}, 8, 0, false)
	found := false
	for _, r := range results {
		if r == near {
			found = true
		}
		if r == far {
			t.Fatalf("expected far entity excluded from radius-8 query")
		}
	}
	if !found {
		t.Fatalf("expected near entity found within radius")
	}
}

func TestMoveWithinSameBucketIsNoBucketChange(t *testing.T) {
	idx := NewSpatialIndex()
	ref := EntityRef{ID: 1, Kind: EntityCharacter}
	idx.Insert(ref, Position{X: 0, Y: 0, MapID: 1})
	before := bucketOf(Position{X: 0, Y: 0, MapID: 1})
	idx.Move(ref, Position{X: 1, Y: 1, MapID: 1})
	after := bucketOf(Position{X: 1, Y: 1, MapID: 1})
	if before != after {
		t.Fatalf("expected same bucket for a small move within bucket size")
	}
	p, ok := idx.PositionOf(ref)
	if !ok || p.X != 1 || p.Y != 1 {
		t.Fatalf("expected position updated to (1,1), got %+v ok=%v", p, ok)
	}
}

func TestMoveAcrossBucketsRelocatesEntity(t *testing.T) {
	idx := NewSpatialIndex()
	ref := EntityRef{ID: 1, Kind: EntityMob}
	idx.Insert(ref, Position{X: 0, Y: 0, MapID: 1})
	idx.Move(ref, Position{X: 1000, Y: 1000, MapID: 1})

	results := idx.Nearby(Position{X: 1000, Y: 1000, MapID: 1}, 5, 0, false)
	if len(results) != 1 || results[0] != ref {
		t.Fatalf("expected entity found at its new position, got %v", results)
	}

	resultsOld := idx.Nearby(Position{X: 0, Y: 0, MapID: 1}, 5, 0, false)
	if len(resultsOld) != 0 {
		t.Fatalf("expected entity no longer found at its old position, got %v", resultsOld)
	}
}

func TestNearbyFiltersByKind(t *testing.T) {
	idx := NewSpatialIndex()
	char := EntityRef{ID: 1, Kind: EntityCharacter}
	mob := EntityRef{ID: 2, Kind: EntityMob}
	idx.Insert(char, Position{X: 0, Y: 0, MapID: 1})
	idx.Insert(mob, Position{X: 1, Y: 1, MapID: 1})

	results := idx.Nearby(Position{X: 0, Y: 0, MapID: 1}, 5, EntityMob, true)
	if len(results) != 1 || results[0] != mob {
		t.Fatalf("expected only the mob entity returned, got %v", results)
	}
}

func TestRemoveDropsEmptyBucket(t *testing.T) {
	idx := NewSpatialIndex()
	ref := EntityRef{ID: 1, Kind: EntityGroundItem}
	idx.Insert(ref, Position{X: 0, Y: 0, MapID: 1})
	idx.Remove(ref)

	if _, ok := idx.PositionOf(ref); ok {
		t.Fatalf("expected position cleared after remove")
	}
	if len(idx.buckets) != 0 {
		t.Fatalf("expected empty bucket pruned, got %d buckets", len(idx.buckets))
	}
}

func TestExpiredBeforeReturnsOnlyDueEntriesInOrder(t *testing.T) {
	idx := NewSpatialIndex()
	early := EntityRef{ID: 1, Kind: EntityGroundItem}
	late := EntityRef{ID: 2, Kind: EntityGroundItem}
	notYet := EntityRef{ID: 3, Kind: EntityGroundItem}
	idx.TrackExpiry(early, 100)
	idx.TrackExpiry(late, 200)
	idx.TrackExpiry(notYet, 9000)

	due := idx.ExpiredBefore(200)
	if len(due) != 2 || due[0] != early.ID || due[1] != late.ID {
		t.Fatalf("expected [1,2] in expiry order, got %v", due)
	}
}

func TestUntrackExpiryRemovesEntry(t *testing.T) {
	idx := NewSpatialIndex()
	ref := EntityRef{ID: 1, Kind: EntityGroundItem}
	idx.TrackExpiry(ref, 100)
	idx.UntrackExpiry(ref, 100)

	if due := idx.ExpiredBefore(1000); len(due) != 0 {
		t.Fatalf("expected no entries after untrack, got %v", due)
	}
}

func TestDistantBucketRadiusScanStaysWithinChebyshevRadius(t *testing.T) {
	idx := NewSpatialIndex()
	ref := EntityRef{ID: 1, Kind: EntityCharacter}
	// placed just beyond a radius-8 Chebyshev query from the origin
	idx.Insert(ref, Position{X: 9, Y: 0, MapID: 1})

	results := idx.Nearby(Position{X: 0, Y: 0, MapID: 1}, 8, 0, false)
	if len(results) != 0 {
		t.Fatalf("expected entity outside exact Chebyshev radius excluded, got %v", results)
	}
}
