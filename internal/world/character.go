package world

import (
	"github.com/wydtm/tmsrv/internal/ai"
	"github.com/wydtm/tmsrv/internal/model"
)

// LifecycleState is a character's connection/world-presence state
// machine (§4.3): Disconnected -> Connecting -> CharSelect -> Loading ->
// InWorld -> (Dead <-> InWorld) -> Saving -> Disconnected.
type LifecycleState int

const (
	LifecycleDisconnected LifecycleState = iota
	LifecycleConnecting
	LifecycleCharSelect
	LifecycleLoading
	LifecycleInWorld
	LifecycleDead
	LifecycleSaving
)

// Character is the authoritative in-memory record for one logged-in
// player character, touched only by the world tick goroutine (§5).
type Character struct {
	ID          int32
	AccountID   int32
	SessionID   uint64
	Name        string
	Lifecycle   LifecycleState

	Pos      Position
	Heading  int16

	Level    int
	Exp      int64
	Alignment int32

	HP, MaxHP int32
	MP, MaxMP int32

	Stats   model.CombatantStats
	Defense model.DefenderStats

	Effects []model.StatusEffect

	Inventory *model.Container
	Equipment *model.Container
	Bank      *model.Container
	Gold      int64
	BankGold  int64

	GuildID int32
	Dead    bool
}

// NewCharacter constructs a freshly-loaded character with empty
// containers sized per §3.
func NewCharacter(id, accountID int32, name string) *Character {
	return &Character{
		ID: id, AccountID: accountID, Name: name,
		Lifecycle: LifecycleConnecting,
		Inventory: model.NewInventory(),
		Equipment: model.NewEquipment(),
		Bank:      model.NewBank(),
		Defense:   model.DefenderStats{Resistances: make(map[model.DamageType]int)},
	}
}

func (c *Character) EntityRef() EntityRef {
	return EntityRef{ID: int64(c.ID), Kind: EntityCharacter}
}

// Mob is the authoritative in-memory record for one live monster,
// embedding the AI package's decision state.
type Mob struct {
	ai.Mob
	SpawnerID   int32
	LootPolicy  model.LootPolicy
	LootWindowOwner int32 // character or party leader id with exclusive pickup rights
}

func (m *Mob) EntityRef() EntityRef {
	return EntityRef{ID: int64(m.ID), Kind: EntityMob}
}

// GroundItem is a dropped or player-discarded item lying on the map,
// subject to a loot-right window and a despawn TTL (§4.6).
type GroundItem struct {
	ID            int64
	Item          model.Item
	Pos           Position
	DroppedAtMs   int64
	LootRightOwner int32 // character or party id with exclusive pickup rights until the window elapses
	LootWindowMs  int64
	TTLMs         int64
}

func (g *GroundItem) EntityRef() EntityRef {
	return EntityRef{ID: g.ID, Kind: EntityGroundItem}
}

// Expired reports whether this ground item has outlived its TTL as of
// nowMs.
func (g *GroundItem) Expired(nowMs int64) bool {
	return nowMs-g.DroppedAtMs > g.TTLMs
}

// LootableBy reports whether charID (or, for party loot policies, a
// member of partyID) may pick this item up at nowMs.
func (g *GroundItem) LootableBy(charID, partyID int32, nowMs int64) bool {
	if nowMs-g.DroppedAtMs > g.LootWindowMs {
		return true
	}
	return g.LootRightOwner == charID || (partyID != 0 && g.LootRightOwner == partyID)
}
