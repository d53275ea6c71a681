package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MobTemplate holds static data for one monster type loaded from content
// YAML: base stats, AI tuning, and the flags the spawner/controller reads
// (§4.10). Player-facing NPCs (merchants, quest givers) are NpcTemplate
// below; MobTemplate is specifically the AI-controlled, combat-capable kind.
type MobTemplate struct {
	MobID        int32  `yaml:"mob_id"`
	Name         string `yaml:"name"`
	GfxID        int32  `yaml:"gfx_id"`
	Level        int16  `yaml:"level"`
	HP           int32  `yaml:"hp"`
	MP           int32  `yaml:"mp"`
	AC           int16  `yaml:"ac"`
	STR          int16  `yaml:"str"`
	DEX          int16  `yaml:"dex"`
	CON          int16  `yaml:"con"`
	Exp          int32  `yaml:"exp"`
	AggroRadius  int32  `yaml:"aggro_radius"`
	LeashRadius  int32  `yaml:"leash_radius"`
	MoveSpeed    int16  `yaml:"move_speed"`
	AtkSpeed     int16  `yaml:"atk_speed"`
	DmgMin       int    `yaml:"dmg_min"`
	DmgMax       int    `yaml:"dmg_max"`
	Undead       bool   `yaml:"undead"`
	Aggressive   bool   `yaml:"aggressive"` // scans for targets on its own, vs. retaliate-only
	FleeHPPct    int    `yaml:"flee_hp_pct"`
	HealHPPct    int    `yaml:"heal_hp_pct"`
}

type mobListFile struct {
	Mobs []MobTemplate `yaml:"mobs"`
}

// MobTable holds all mob templates indexed by MobID.
type MobTable struct {
	templates map[int32]*MobTemplate
}

// LoadMobTable loads mob templates from a YAML file.
func LoadMobTable(path string) (*MobTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mob_list: %w", err)
	}
	var f mobListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse mob_list: %w", err)
	}
	t := &MobTable{templates: make(map[int32]*MobTemplate, len(f.Mobs))}
	for i := range f.Mobs {
		m := &f.Mobs[i]
		t.templates[m.MobID] = m
	}
	return t, nil
}

// Get returns a mob template by ID, or nil if not found.
func (t *MobTable) Get(mobID int32) *MobTemplate {
	return t.templates[mobID]
}

// Count returns the number of loaded templates.
func (t *MobTable) Count() int {
	return len(t.templates)
}

// SpawnEntry defines where and how many mobs to spawn, and the respawn
// controller's delay once the last one in the group dies (§4.10).
type SpawnEntry struct {
	MobID        int32 `yaml:"mob_id"`
	MapID        int16 `yaml:"map_id"`
	X            int32 `yaml:"x"`
	Y            int32 `yaml:"y"`
	Count        int   `yaml:"count"`
	RandomX      int32 `yaml:"randomx"`
	RandomY      int32 `yaml:"randomy"`
	Heading      int16 `yaml:"heading"`
	RespawnDelay int   `yaml:"respawn_delay"` // seconds
}

type spawnListFile struct {
	Spawns []SpawnEntry `yaml:"spawns"`
}

// LoadSpawnList loads spawn entries from a YAML file.
func LoadSpawnList(path string) ([]SpawnEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn_list: %w", err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawn_list: %w", err)
	}
	return f.Spawns, nil
}

// NpcTemplate holds static data for a non-combat NPC: merchants, quest
// givers, and gatekeepers. Unlike MobTemplate these never enter the AI
// controller's FSM — they're stationary dialog/shop endpoints.
type NpcTemplate struct {
	NpcID   int32  `yaml:"npc_id"`
	Name    string `yaml:"name"`
	GfxID   int32  `yaml:"gfx_id"`
	MapID   int16  `yaml:"map_id"`
	X       int32  `yaml:"x"`
	Y       int32  `yaml:"y"`
	Heading int16  `yaml:"heading"`
	HasShop bool   `yaml:"has_shop"`
}

type npcListFile struct {
	Npcs []NpcTemplate `yaml:"npcs"`
}

// NpcTable holds all stationary NPC templates indexed by NpcID.
type NpcTable struct {
	templates map[int32]*NpcTemplate
}

// LoadNpcTable loads NPC templates from a YAML file.
func LoadNpcTable(path string) (*NpcTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read npc_list: %w", err)
	}
	var f npcListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse npc_list: %w", err)
	}
	t := &NpcTable{templates: make(map[int32]*NpcTemplate, len(f.Npcs))}
	for i := range f.Npcs {
		npc := &f.Npcs[i]
		t.templates[npc.NpcID] = npc
	}
	return t, nil
}

// Get returns an NPC template by ID, or nil if not found.
func (t *NpcTable) Get(npcID int32) *NpcTemplate {
	return t.templates[npcID]
}

// Count returns the number of loaded templates.
func (t *NpcTable) Count() int {
	return len(t.templates)
}
