package security

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMonitorEscalatesAfterThresholdCrossed(t *testing.T) {
	rules := []Rule{
		{Type: ViolationChatSpam, Window: 10 * time.Second, Threshold: 3, Action: ActionWarn},
	}
	m := NewMonitor(rules, NewLog(), zap.NewNop())
	base := time.Unix(1000, 0)

	var last Action
	for i := 0; i < 3; i++ {
		last = m.Record(base.Add(time.Duration(i)*time.Second), 7, ViolationChatSpam, "spam")
	}
	if last != ActionWarn {
		t.Fatalf("expected ActionWarn once threshold crossed, got %v", last)
	}
}

func TestMonitorSlidingWindowExpiresOldHits(t *testing.T) {
	rules := []Rule{
		{Type: ViolationChatSpam, Window: 5 * time.Second, Threshold: 3, Action: ActionWarn},
	}
	m := NewMonitor(rules, NewLog(), zap.NewNop())
	base := time.Unix(1000, 0)

	m.Record(base, 7, ViolationChatSpam, "spam")
	m.Record(base.Add(1*time.Second), 7, ViolationChatSpam, "spam")
	// window has elapsed; these two hits should have aged out by t+10s
	got := m.Record(base.Add(10*time.Second), 7, ViolationChatSpam, "spam")
	if got != ActionLog {
		t.Fatalf("expected ActionLog after old hits aged out of window, got %v", got)
	}
}

func TestMonitorTempBanRecordsBanAndAudit(t *testing.T) {
	rules := []Rule{
		{Type: ViolationSpeedHack, Window: time.Minute, Threshold: 1, Action: ActionTempBan, BanDur: time.Hour},
	}
	auditLog := NewLog()
	m := NewMonitor(rules, auditLog, zap.NewNop())
	now := time.Unix(1000, 0)

	action := m.Record(now, 99, ViolationSpeedHack, "teleport detected")
	if action != ActionTempBan {
		t.Fatalf("expected ActionTempBan, got %v", action)
	}

	ban := m.CheckBan(now, 99, 0, "")
	if ban == nil {
		t.Fatalf("expected active ban for account 99")
	}
	if ban.IsPermanent {
		t.Fatalf("expected temporary ban, got permanent")
	}
	if auditLog.Len() != 1 {
		t.Fatalf("expected one audit entry recorded, got %d", auditLog.Len())
	}
}

func TestBanExpiresAfterEnd(t *testing.T) {
	b := Ban{AccountID: 1, Start: time.Unix(0, 0), End: time.Unix(100, 0)}
	if !b.Active(time.Unix(50, 0)) {
		t.Fatalf("expected ban active before End")
	}
	if b.Active(time.Unix(150, 0)) {
		t.Fatalf("expected ban inactive after End")
	}
}

func TestCheckBanMatchesByIPWhenAccountUnset(t *testing.T) {
	rules := DefaultRules()
	m := NewMonitor(rules, NewLog(), zap.NewNop())
	m.bans = append(m.bans, Ban{IP: "10.0.0.5", Start: time.Unix(0, 0), IsPermanent: true})

	if got := m.CheckBan(time.Unix(1, 0), 0, 0, "10.0.0.5"); got == nil {
		t.Fatalf("expected ban matched by IP")
	}
	if got := m.CheckBan(time.Unix(1, 0), 0, 0, "10.0.0.9"); got != nil {
		t.Fatalf("expected no ban for unrelated IP")
	}
}

func TestLogRecordIsImmutableAppendOnly(t *testing.T) {
	l := NewLog()
	now := time.Unix(500, 0)
	l.ItemMutation(now, 1, "system", "picked up item 42")
	l.GoldMutation(now, 1, "system", "+100 gold from quest reward")
	l.TradeCommit(now, 1, "trade 7 committed")
	l.AdminAction(now, "root", "kicked character 1")

	if l.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", l.Len())
	}

	entries := l.Since(now)
	if len(entries) != 4 {
		t.Fatalf("expected Since to return all 4 entries recorded at now, got %d", len(entries))
	}

	entriesAfter := l.Since(now.Add(time.Second))
	if len(entriesAfter) != 0 {
		t.Fatalf("expected no entries after a later cutoff, got %d", len(entriesAfter))
	}
}

func TestUnknownViolationTypeDefaultsToLog(t *testing.T) {
	m := NewMonitor(nil, NewLog(), zap.NewNop())
	got := m.Record(time.Unix(1, 0), 1, ViolationPacketFlood, "flood")
	if got != ActionLog {
		t.Fatalf("expected ActionLog for a violation type with no configured rule, got %v", got)
	}
}
