package model

import "testing"

// TestQuestKillIndexingMatchesScenario mirrors §8 scenario 5: player
// accepts quest with objective Kill(mob=501, count=5); five kills of
// mob 501 complete it; kills of mob 502 never touch its progress.
func TestQuestKillIndexingMatchesScenario(t *testing.T) {
	tmpl := &QuestTemplate{
		ID: 1,
		Objectives: []Objective{
			{Type: ObjectiveKill, TargetID: 501, Count: 5, Required: true},
		},
	}
	qi := &QuestInstance{QuestID: 1, CharacterID: 42, ObjectiveProgress: []int32{0}}

	idx := NewQuestIndex()
	idx.IndexInstance(tmpl, qi)

	entries502 := idx.OnMobKilled(502)
	if len(entries502) != 0 {
		t.Fatalf("expected no index entries for unrelated mob 502, got %d", len(entries502))
	}

	for i := 0; i < 5; i++ {
		entries := idx.OnMobKilled(501)
		if len(entries) != 1 {
			t.Fatalf("expected exactly one indexed entry for mob 501, got %d", len(entries))
		}
		qi.ObjectiveProgress[entries[0].ObjectiveIdx]++
	}

	if qi.ObjectiveProgress[0] != 5 {
		t.Fatalf("expected progress 5 after five kills, got %d", qi.ObjectiveProgress[0])
	}
	if !qi.AllRequiredMet(tmpl) {
		t.Fatalf("expected quest complete after reaching required count")
	}
}

func TestQuestRemoveInstanceClearsIndices(t *testing.T) {
	tmpl := &QuestTemplate{
		Objectives: []Objective{{Type: ObjectiveKill, TargetID: 10, Count: 1, Required: true}},
	}
	qi := &QuestInstance{QuestID: 7, CharacterID: 1, ObjectiveProgress: []int32{0}}

	idx := NewQuestIndex()
	idx.IndexInstance(tmpl, qi)
	idx.RemoveInstance(1, 7)

	if entries := idx.OnMobKilled(10); len(entries) != 0 {
		t.Fatalf("expected index cleared after RemoveInstance, got %d entries", len(entries))
	}
}

func TestQuestExpiredTimeLimited(t *testing.T) {
	tmpl := &QuestTemplate{TimeLimitSeconds: 100, Flags: QuestFlags{TimeLimited: true}}
	qi := &QuestInstance{AcceptTime: 0}

	if qi.Expired(tmpl, 50) {
		t.Fatalf("should not be expired before time limit")
	}
	if !qi.Expired(tmpl, 150) {
		t.Fatalf("should be expired after time limit")
	}
}

func TestQuestNotExpiredWhenNotTimeLimited(t *testing.T) {
	tmpl := &QuestTemplate{TimeLimitSeconds: 100, Flags: QuestFlags{TimeLimited: false}}
	qi := &QuestInstance{AcceptTime: 0}
	if qi.Expired(tmpl, 1_000_000) {
		t.Fatalf("non-time-limited quests should never expire")
	}
}
