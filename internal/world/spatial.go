package world

import "github.com/google/btree"

// Package world owns the authoritative simulation state exercised
// exclusively by the single-writer tick (§4.2, §5): the spatial index,
// live character/mob/ground-item registries, and thin wrappers around
// internal/model's party/guild/trade containers.

// GridSize and BucketSize are the map grid's literal dimensions (§4.2):
// each map is a 4096x4096 cell grid partitioned into WARD_RANGE=12-cell
// buckets.
const (
	GridSize   = 4096
	BucketSize = 12
)

type bucketKey struct {
	mapID int32
	bx    int32
	by    int32
}

func toBucketCoord(v int32) int32 {
	if v < 0 {
		return (v - BucketSize + 1) / BucketSize
	}
	return v / BucketSize
}

// EntityKind distinguishes what occupies a spatial-index slot so AoI
// queries can be filtered by kind without three separate indices.
type EntityKind int

const (
	EntityCharacter EntityKind = iota
	EntityMob
	EntityGroundItem
)

// EntityRef is one spatial-index occupant.
type EntityRef struct {
	ID   int64
	Kind EntityKind
}

// SpatialIndex is the per-map bucket grid. All reads/writes occur inside
// the world tick goroutine (§5); no internal locking.
type SpatialIndex struct {
	buckets map[bucketKey]map[EntityRef]struct{}
	posOf   map[EntityRef]Position

	// ttl orders every tracked ground item by (expiresAtMs, id) so the
	// despawn sweep (§4.6) takes a cheap ascending prefix of already-due
	// entries instead of scanning every item regardless of bucket.
	ttl *btree.BTreeG[ttlEntry]
}

type ttlEntry struct {
	expiresAtMs int64
	id          int64
}

func lessTTL(a, b ttlEntry) bool {
	if a.expiresAtMs != b.expiresAtMs {
		return a.expiresAtMs < b.expiresAtMs
	}
	return a.id < b.id
}

type Position struct {
	X, Y  int32
	MapID int32
}

func NewSpatialIndex() *SpatialIndex {
	return &SpatialIndex{
		buckets: make(map[bucketKey]map[EntityRef]struct{}),
		posOf:   make(map[EntityRef]Position),
		ttl:     btree.NewG(32, lessTTL),
	}
}

// TrackExpiry registers a ground item's despawn time in the TTL index.
// Only EntityGroundItem refs should be passed; callers for characters and
// mobs never call this.
func (s *SpatialIndex) TrackExpiry(ref EntityRef, expiresAtMs int64) {
	s.ttl.ReplaceOrInsert(ttlEntry{expiresAtMs: expiresAtMs, id: ref.ID})
}

// UntrackExpiry removes a ground item from the TTL index, used on pickup
// so it doesn't later show up in ExpiredBefore.
func (s *SpatialIndex) UntrackExpiry(ref EntityRef, expiresAtMs int64) {
	s.ttl.Delete(ttlEntry{expiresAtMs: expiresAtMs, id: ref.ID})
}

// ExpiredBefore returns the ids of every tracked ground item whose expiry
// is at or before nowMs, in expiry order, without visiting any item that
// still has time left.
func (s *SpatialIndex) ExpiredBefore(nowMs int64) []int64 {
	var out []int64
	s.ttl.Ascend(func(e ttlEntry) bool {
		if e.expiresAtMs > nowMs {
			return false
		}
		out = append(out, e.id)
		return true
	})
	return out
}

func bucketOf(p Position) bucketKey {
	return bucketKey{mapID: p.MapID, bx: toBucketCoord(p.X), by: toBucketCoord(p.Y)}
}

// Insert places an entity into the index at pos; O(1).
func (s *SpatialIndex) Insert(ref EntityRef, pos Position) {
	k := bucketOf(pos)
	b := s.buckets[k]
	if b == nil {
		b = make(map[EntityRef]struct{})
		s.buckets[k] = b
	}
	b[ref] = struct{}{}
	s.posOf[ref] = pos
}

// Remove takes an entity out of the index; O(1).
func (s *SpatialIndex) Remove(ref EntityRef) {
	pos, ok := s.posOf[ref]
	if !ok {
		return
	}
	k := bucketOf(pos)
	if b := s.buckets[k]; b != nil {
		delete(b, ref)
		if len(b) == 0 {
			delete(s.buckets, k)
		}
	}
	delete(s.posOf, ref)
}

// Move relocates an entity; a bucket-delta no-op when it stays within
// the same bucket, otherwise a remove+insert, both O(1).
func (s *SpatialIndex) Move(ref EntityRef, newPos Position) {
	oldPos, ok := s.posOf[ref]
	if ok && bucketOf(oldPos) == bucketOf(newPos) {
		s.posOf[ref] = newPos
		return
	}
	s.Remove(ref)
	s.Insert(ref, newPos)
}

func chebyshev(dx, dy int32) int32 {
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dy > dx {
		return dy
	}
	return dx
}

// Nearby returns every entity within a Chebyshev radius of pos, filtered
// to kindFilter when filterByKind is true (kindFilter is ignored
// otherwise). Scans every bucket
// whose cells could contain a point within radius, then filters exactly.
func (s *SpatialIndex) Nearby(pos Position, radius int32, kindFilter EntityKind, filterByKind bool) []EntityRef {
	bucketRadius := radius/BucketSize + 1
	centerB := bucketOf(pos)
	var out []EntityRef
	for dbx := -bucketRadius; dbx <= bucketRadius; dbx++ {
		for dby := -bucketRadius; dby <= bucketRadius; dby++ {
			k := bucketKey{mapID: pos.MapID, bx: centerB.bx + dbx, by: centerB.by + dby}
			for ref := range s.buckets[k] {
				p := s.posOf[ref]
				if chebyshev(p.X-pos.X, p.Y-pos.Y) > radius {
					continue
				}
				if filterByKind && ref.Kind != kindFilter {
					continue
				}
				out = append(out, ref)
			}
		}
	}
	return out
}

func (s *SpatialIndex) PositionOf(ref EntityRef) (Position, bool) {
	p, ok := s.posOf[ref]
	return p, ok
}
