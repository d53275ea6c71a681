package schedule

import (
	"testing"
	"time"
)

func TestRegisterOneTimeEventFiresOnceThenExhausts(t *testing.T) {
	s := NewScheduler()
	anchor := time.Unix(1000, 0)
	def := Definition{ID: 1, Recurrence: RecurrenceOnce, Duration: time.Minute}
	s.Register(def, anchor)

	due := s.Due(anchor)
	if len(due) != 1 {
		t.Fatalf("expected 1 due instance at anchor time, got %d", len(due))
	}
	due2 := s.Due(anchor.Add(time.Hour))
	if len(due2) != 0 {
		t.Fatalf("expected no further instances for a one-time event, got %d", len(due2))
	}
}

func TestDailyRecurrenceReschedulesNextOccurrence(t *testing.T) {
	s := NewScheduler()
	anchor := time.Unix(0, 0)
	def := Definition{ID: 2, Recurrence: RecurrenceDaily, Duration: time.Minute}
	s.Register(def, anchor)

	due := s.Due(anchor)
	if len(due) != 1 {
		t.Fatalf("expected first daily occurrence due at anchor, got %d", len(due))
	}

	dueNextDay := s.Due(anchor.Add(24 * time.Hour))
	if len(dueNextDay) != 1 {
		t.Fatalf("expected second daily occurrence due 24h later, got %d", len(dueNextDay))
	}
}

func TestExpireTransitionsRunningInstanceToFinished(t *testing.T) {
	s := NewScheduler()
	anchor := time.Unix(0, 0)
	def := Definition{ID: 3, Recurrence: RecurrenceOnce, Duration: 10 * time.Minute}
	s.Register(def, anchor)
	due := s.Due(anchor)
	inst := due[0]

	finished := s.Expire(anchor.Add(5 * time.Minute))
	if len(finished) != 0 {
		t.Fatalf("expected no expiry before duration elapsed, got %d", len(finished))
	}

	finished = s.Expire(anchor.Add(11 * time.Minute))
	if len(finished) != 1 || finished[0].ID != inst.ID {
		t.Fatalf("expected instance to expire after its duration, got %d finished", len(finished))
	}
	if inst.State != StateFinished {
		t.Fatalf("expected StateFinished, got %v", inst.State)
	}
}

func TestJoinRejectsOverMaxParticipants(t *testing.T) {
	s := NewScheduler()
	anchor := time.Unix(0, 0)
	def := Definition{ID: 4, Recurrence: RecurrenceOnce, Duration: time.Minute, MaxParticipants: 2}
	s.Register(def, anchor)
	inst := s.Due(anchor)[0]

	if !s.Join(inst.ID, 1, anchor) || !s.Join(inst.ID, 2, anchor) {
		t.Fatalf("expected first two joins to succeed")
	}
	if s.Join(inst.ID, 3, anchor) {
		t.Fatalf("expected third join to be rejected at MaxParticipants=2")
	}
}

func TestRankedOrdersByScoreDescending(t *testing.T) {
	s := NewScheduler()
	anchor := time.Unix(0, 0)
	def := Definition{ID: 5, Recurrence: RecurrenceOnce, Duration: time.Minute}
	s.Register(def, anchor)
	inst := s.Due(anchor)[0]

	s.Join(inst.ID, 1, anchor)
	s.Join(inst.ID, 2, anchor)
	s.Join(inst.ID, 3, anchor)
	s.AddScore(inst.ID, 1, 50)
	s.AddScore(inst.ID, 2, 200)
	s.AddScore(inst.ID, 3, 100)

	ranked := Ranked(inst)
	if ranked[0].CharacterID != 2 || ranked[0].Rank != 1 {
		t.Fatalf("expected charID 2 ranked first, got %+v", ranked[0])
	}
	if ranked[1].CharacterID != 3 || ranked[2].CharacterID != 1 {
		t.Fatalf("unexpected rank ordering: %+v", ranked)
	}
}

func TestRewardForDiminishesWithRankButFloorsAt25Percent(t *testing.T) {
	def := &Definition{ID: 6}
	def.Rewards.Exp = 1000
	def.Rewards.Gold = 1000

	r1 := RewardFor(def, 1)
	if r1.Exp != 1000 {
		t.Fatalf("expected rank 1 to receive full reward, got %d", r1.Exp)
	}

	r10 := RewardFor(def, 10)
	if r10.Exp != 250 {
		t.Fatalf("expected rank 10 reward floored at 25%%, got %d", r10.Exp)
	}
}

func TestCancelPreventsFurtherStateTransition(t *testing.T) {
	s := NewScheduler()
	anchor := time.Unix(0, 0)
	def := Definition{ID: 7, Recurrence: RecurrenceOnce, Duration: time.Minute}
	s.Register(def, anchor)
	inst := s.Due(anchor)[0]

	if !s.Cancel(inst.ID) {
		t.Fatalf("expected cancel to succeed on a running instance")
	}
	if inst.State != StateCancelled {
		t.Fatalf("expected StateCancelled, got %v", inst.State)
	}
	if s.Cancel(inst.ID) {
		t.Fatalf("expected cancel to fail on an already-cancelled instance")
	}
}
