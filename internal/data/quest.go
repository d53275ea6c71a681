package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wydtm/tmsrv/internal/model"
)

// QuestFile is one quest template as loaded from content YAML (§4.9).
type QuestFile struct {
	QuestID          int32            `yaml:"quest_id"`
	Name             string           `yaml:"name"`
	MinLevel         int              `yaml:"min_level"`
	MaxLevel         int              `yaml:"max_level"`
	PrereqQuests     []int32          `yaml:"prereq_quests"`
	ExclusiveQuests  []int32          `yaml:"exclusive_quests"`
	StartNPC         int32            `yaml:"start_npc"`
	EndNPC           int32            `yaml:"end_npc"`
	Objectives       []ObjectiveFile  `yaml:"objectives"`
	Rewards         []RewardFile     `yaml:"rewards"`
	TimeLimitSeconds int64            `yaml:"time_limit_seconds"`
	Repeatable       bool             `yaml:"repeatable"`
	AutoComplete     bool             `yaml:"auto_complete"`
	CooldownSeconds  int64            `yaml:"cooldown_seconds"`
}

type ObjectiveFile struct {
	Type     string `yaml:"type"` // kill|collect|deliver|talk|visit|use_skill|use_item|reach_level
	TargetID int32  `yaml:"target_id"`
	Count    int32  `yaml:"count"`
	X        int32  `yaml:"x"`
	Y        int32  `yaml:"y"`
	Radius   int32  `yaml:"radius"`
	Required bool   `yaml:"required"`
}

type RewardFile struct {
	Exp   int64          `yaml:"exp"`
	Gold  int64          `yaml:"gold"`
	Items []RewardItem   `yaml:"items"`
}

type RewardItem struct {
	ItemID int32 `yaml:"item_id"`
	Count  int32 `yaml:"count"`
}

var objectiveTypeNames = map[string]model.ObjectiveType{
	"kill":        model.ObjectiveKill,
	"collect":     model.ObjectiveCollect,
	"deliver":     model.ObjectiveDeliver,
	"talk":        model.ObjectiveTalk,
	"visit":       model.ObjectiveVisit,
	"use_skill":   model.ObjectiveUseSkill,
	"use_item":    model.ObjectiveUseItem,
	"reach_level": model.ObjectiveReachLevel,
}

func (f *QuestFile) toTemplate() *model.QuestTemplate {
	tmpl := &model.QuestTemplate{
		ID:               f.QuestID,
		Name:             f.Name,
		MinLevel:         f.MinLevel,
		MaxLevel:         f.MaxLevel,
		PrereqQuests:     f.PrereqQuests,
		ExclusiveQuests:  f.ExclusiveQuests,
		StartNPC:         f.StartNPC,
		EndNPC:           f.EndNPC,
		TimeLimitSeconds: f.TimeLimitSeconds,
		CooldownSeconds:  f.CooldownSeconds,
		Flags: model.QuestFlags{
			Repeatable:   f.Repeatable,
			AutoComplete: f.AutoComplete,
			TimeLimited:  f.TimeLimitSeconds > 0,
		},
	}
	for _, o := range f.Objectives {
		tmpl.Objectives = append(tmpl.Objectives, model.Objective{
			Type:     objectiveTypeNames[o.Type],
			TargetID: o.TargetID,
			Count:    o.Count,
			X:        o.X,
			Y:        o.Y,
			Radius:   o.Radius,
			Required: o.Required,
		})
	}
	for _, r := range f.Rewards {
		rw := model.Reward{Exp: r.Exp, Gold: r.Gold}
		for _, it := range r.Items {
			rw.Items = append(rw.Items, model.Item{ItemID: it.ItemID, Value: it.Count})
		}
		tmpl.Rewards = append(tmpl.Rewards, rw)
	}
	return tmpl
}

type questListFile struct {
	Quests []QuestFile `yaml:"quests"`
}

// QuestTable holds all quest templates indexed by ID.
type QuestTable struct {
	templates map[int32]*model.QuestTemplate
}

// LoadQuestTable loads quest templates from a YAML file.
func LoadQuestTable(path string) (*QuestTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quest_list: %w", err)
	}
	var f questListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse quest_list: %w", err)
	}
	t := &QuestTable{templates: make(map[int32]*model.QuestTemplate, len(f.Quests))}
	for i := range f.Quests {
		tmpl := f.Quests[i].toTemplate()
		t.templates[tmpl.ID] = tmpl
	}
	return t, nil
}

// Get returns a quest template by ID, or nil if not found.
func (t *QuestTable) Get(questID int32) *model.QuestTemplate {
	return t.templates[questID]
}

// Count returns the number of loaded templates.
func (t *QuestTable) Count() int {
	return len(t.templates)
}
