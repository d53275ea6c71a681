package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wydtm/tmsrv/internal/model"
)

// itemKindMap maps YAML item_kind strings to the integer the wire
// protocol's item-add packets expect for client-side icon/behavior
// selection (weapon/armor/consumable/quest/mount/wings/...).
var itemKindMap = map[string]byte{
	"none":       0,
	"weapon":     1,
	"shield":     2,
	"helmet":     3,
	"armor":      4,
	"gloves":     5,
	"boots":      6,
	"cape":       7,
	"necklace":   8,
	"ring":       9,
	"earring":    10,
	"belt":       11,
	"amulet":     12,
	"mount":      13,
	"wings":      14,
	"potion":     20,
	"scroll":     21,
	"quest":      22,
	"material":   23,
	"gem":        24,
	"currency":   25,
}

// KindToID converts a YAML item_kind string to the wire-protocol byte.
func KindToID(s string) byte {
	if v, ok := itemKindMap[s]; ok {
		return v
	}
	return 0
}

var equipSlotMap = map[string]model.EquipSlot{
	"weapon":   model.SlotWeapon,
	"shield":   model.SlotShield,
	"helmet":   model.SlotHelmet,
	"armor":    model.SlotArmor,
	"gloves":   model.SlotGloves,
	"boots":    model.SlotBoots,
	"cape":     model.SlotCape,
	"necklace": model.SlotNecklace,
	"ring":     model.SlotRing1,
	"earring":  model.SlotEarring1,
	"belt":     model.SlotBelt,
	"amulet":   model.SlotAmulet,
	"mount":    model.SlotMount,
	"wings":    model.SlotWings,
}

// ItemInfo holds the static, content-table-defined shape of one item
// template: everything beyond the wire-compatible model.ItemTemplate that
// the combat/inventory systems need to resolve an instance's effect —
// base combat stats, stat bonuses, and class/level gating.
type ItemInfo struct {
	ItemID   int32
	Name     string
	Kind     string // weapon/armor/potion/scroll/... — see itemKindMap
	KindID   byte
	InvGfx   int32
	GrdGfx   int32
	Weight   int32

	model.ItemTemplate

	// Combat stats (weapons)
	DmgMin, DmgMax int
	Range          int
	HitMod, DmgMod int

	// Defense (armor)
	AC int

	// Stat bonuses (weapon + armor)
	AddSTR, AddDEX, AddCON, AddWIS, AddCHA, AddINT int
	AddHP, AddMP, AddHPRegen, AddMPRegen           int
	MagicDefense                                   int

	// Elemental resistances, keyed by model.DamageType (fire/cold/lightning/holy/dark)
	Resist map[model.DamageType]int

	SafeRefine int // refine level below which failure can't destroy the item
	MinLevel   int
	MaxLevel   int

	// Class bitmask: which character classes may equip/use this item.
	// Bit layout is content-defined (e.g. 1<<0 = Transcendental Knight);
	// 0 means unrestricted.
	ClassMask uint32

	// Consumable behavior
	StackCapOverride int // 0 = use model.ItemTemplate.StackCap as-is
	ReuseDelayMs     int64
}

// ItemTable holds all item templates indexed by ItemID.
type ItemTable struct {
	items map[int32]*ItemInfo
}

// Get returns an item by ID, or nil if not found.
func (t *ItemTable) Get(itemID int32) *ItemInfo {
	return t.items[itemID]
}

// Count returns total loaded items.
func (t *ItemTable) Count() int {
	return len(t.items)
}

// Template returns the wire-compatible model.ItemTemplate for itemID, for
// callers that only need the inventory-engine-facing shape.
func (t *ItemTable) Template(itemID int32) *model.ItemTemplate {
	info := t.items[itemID]
	if info == nil {
		return nil
	}
	return &info.ItemTemplate
}

type itemEntry struct {
	ItemID     int32  `yaml:"item_id"`
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	InvGfx     int32  `yaml:"inv_gfx"`
	GrdGfx     int32  `yaml:"grd_gfx"`
	Weight     int32  `yaml:"weight"`
	Stackable  bool   `yaml:"stackable"`
	StackCap   int32  `yaml:"stack_cap"`
	MaxDurability int32 `yaml:"max_durability"`
	Sellable   bool   `yaml:"sellable"`
	Tradable   bool   `yaml:"tradable"`
	Storable   bool   `yaml:"storable"`
	Droppable  bool   `yaml:"droppable"`

	DmgMin int `yaml:"dmg_min"`
	DmgMax int `yaml:"dmg_max"`
	Range  int `yaml:"range"`
	HitMod int `yaml:"hit_mod"`
	DmgMod int `yaml:"dmg_mod"`
	AC     int `yaml:"ac"`

	AddSTR     int `yaml:"add_str"`
	AddDEX     int `yaml:"add_dex"`
	AddCON     int `yaml:"add_con"`
	AddWIS     int `yaml:"add_wis"`
	AddCHA     int `yaml:"add_cha"`
	AddINT     int `yaml:"add_int"`
	AddHP      int `yaml:"add_hp"`
	AddMP      int `yaml:"add_mp"`
	AddHPRegen int `yaml:"add_hp_regen"`
	AddMPRegen int `yaml:"add_mp_regen"`
	MagicDefense int `yaml:"magic_defense"`

	ResistFire      int `yaml:"resist_fire"`
	ResistCold      int `yaml:"resist_cold"`
	ResistLightning int `yaml:"resist_lightning"`
	ResistHoly      int `yaml:"resist_holy"`
	ResistDark      int `yaml:"resist_dark"`

	SafeRefine int    `yaml:"safe_refine"`
	MinLevel   int    `yaml:"min_level"`
	MaxLevel   int    `yaml:"max_level"`
	ClassMask  uint32 `yaml:"class_mask"`

	ReuseDelayMs int64 `yaml:"reuse_delay_ms"`
}

type itemListFile struct {
	Items []itemEntry `yaml:"items"`
}

// LoadItemTable loads the item content table from a single YAML file —
// weapons, armor, and consumables are distinguished by the `kind` field
// rather than living in three separate files.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	var f itemListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}

	t := &ItemTable{items: make(map[int32]*ItemInfo, len(f.Items))}
	for i := range f.Items {
		e := &f.Items[i]
		equippable := e.Kind != "" && e.Kind != "potion" && e.Kind != "scroll" &&
			e.Kind != "quest" && e.Kind != "material" && e.Kind != "currency"
		info := &ItemInfo{
			ItemID: e.ItemID,
			Name:   e.Name,
			Kind:   e.Kind,
			KindID: KindToID(e.Kind),
			InvGfx: e.InvGfx,
			GrdGfx: e.GrdGfx,
			Weight: e.Weight,
			ItemTemplate: model.ItemTemplate{
				ItemID:        e.ItemID,
				Name:          e.Name,
				Stackable:     e.Stackable,
				StackCap:      e.StackCap,
				MaxDurability: e.MaxDurability,
				Sellable:      e.Sellable,
				Tradable:      e.Tradable,
				Storable:      e.Storable,
				Droppable:     e.Droppable,
				Equippable:    equippable,
				EquipSlot:     equipSlotMap[e.Kind],
				Weight:        e.Weight,
			},
			DmgMin: e.DmgMin, DmgMax: e.DmgMax, Range: e.Range,
			HitMod: e.HitMod, DmgMod: e.DmgMod, AC: e.AC,
			AddSTR: e.AddSTR, AddDEX: e.AddDEX, AddCON: e.AddCON,
			AddWIS: e.AddWIS, AddCHA: e.AddCHA, AddINT: e.AddINT,
			AddHP: e.AddHP, AddMP: e.AddMP,
			AddHPRegen: e.AddHPRegen, AddMPRegen: e.AddMPRegen,
			MagicDefense: e.MagicDefense,
			Resist: map[model.DamageType]int{
				model.DamageFire:      e.ResistFire,
				model.DamageCold:      e.ResistCold,
				model.DamageLightning: e.ResistLightning,
				model.DamageHoly:      e.ResistHoly,
				model.DamageDark:      e.ResistDark,
			},
			SafeRefine:   e.SafeRefine,
			MinLevel:     e.MinLevel,
			MaxLevel:     e.MaxLevel,
			ClassMask:    e.ClassMask,
			ReuseDelayMs: e.ReuseDelayMs,
		}
		t.items[e.ItemID] = info
	}
	return t, nil
}

// ClassAllowed reports whether a character whose class bit is set in
// classBit may equip/use this item (ClassMask 0 means unrestricted).
func (info *ItemInfo) ClassAllowed(classBit uint32) bool {
	return info.ClassMask == 0 || info.ClassMask&classBit != 0
}
