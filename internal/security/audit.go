// Package security implements the violation taxonomy, ban list, and
// immutable audit log of §4.12: violation type × severity maps to an
// escalating action, sliding-window thresholds trigger escalation, and
// every item/gold mutation, trade commit, and admin action is recorded.
package security

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ViolationType enumerates the abuse categories the tick and session
// layer can observe.
type ViolationType int

const (
	ViolationPacketFlood ViolationType = iota
	ViolationInvalidPacket
	ViolationSpeedHack
	ViolationItemDuplication
	ViolationChatSpam
	ViolationInvalidState
	ViolationLoginBruteForce
)

// Action is the escalated response to a violation crossing its
// threshold.
type Action int

const (
	ActionLog Action = iota
	ActionWarn
	ActionDisconnect
	ActionTempBan
	ActionPermBan
	ActionRateLimit
	ActionBlockPacket
)

// Rule maps one violation type to its sliding-window threshold and the
// action taken once crossed.
type Rule struct {
	Type      ViolationType
	Window    time.Duration
	Threshold int
	Action    Action
	BanDur    time.Duration // only meaningful for ActionTempBan
}

// DefaultRules is the fixed rule table (§4.12) shipped with the server;
// it takes no configuration and no config setting changes it.
func DefaultRules() []Rule {
	return []Rule{
		{Type: ViolationPacketFlood, Window: 10 * time.Second, Threshold: 5, Action: ActionRateLimit},
		{Type: ViolationInvalidPacket, Window: time.Minute, Threshold: 10, Action: ActionDisconnect},
		{Type: ViolationSpeedHack, Window: time.Minute, Threshold: 3, Action: ActionTempBan, BanDur: time.Hour},
		{Type: ViolationItemDuplication, Window: 24 * time.Hour, Threshold: 1, Action: ActionPermBan},
		{Type: ViolationChatSpam, Window: 30 * time.Second, Threshold: 8, Action: ActionWarn},
		{Type: ViolationInvalidState, Window: time.Minute, Threshold: 5, Action: ActionDisconnect},
		{Type: ViolationLoginBruteForce, Window: 5 * time.Minute, Threshold: 10, Action: ActionTempBan, BanDur: 24 * time.Hour},
	}
}

// Ban is `{ip, accountId, characterId, reason, start, end, isPermanent}`
// (§4.12), checked at handshake.
type Ban struct {
	IP          string
	AccountID   int32
	CharacterID int32
	Reason      string
	Start       time.Time
	End         time.Time
	IsPermanent bool
}

func (b Ban) Active(now time.Time) bool {
	if b.IsPermanent {
		return true
	}
	return now.Before(b.End)
}

// slidingWindow tracks violation timestamps for one (accountID, type) pair.
type slidingWindow struct {
	hits []time.Time
}

func (w *slidingWindow) record(now time.Time, window time.Duration) int {
	w.hits = append(w.hits, now)
	cutoff := now.Add(-window)
	kept := w.hits[:0]
	for _, h := range w.hits {
		if h.After(cutoff) {
			kept = append(kept, h)
		}
	}
	w.hits = kept
	return len(w.hits)
}

// Monitor evaluates incoming violations against the rule table and
// raises escalated actions; it also owns the in-memory ban list and the
// audit sink.
type Monitor struct {
	rules   map[ViolationType]Rule
	windows map[int32]map[ViolationType]*slidingWindow
	bans    []Ban
	audit   *Log
	log     *zap.Logger
}

func NewMonitor(rules []Rule, audit *Log, log *zap.Logger) *Monitor {
	m := &Monitor{
		rules:   make(map[ViolationType]Rule, len(rules)),
		windows: make(map[int32]map[ViolationType]*slidingWindow),
		audit:   audit,
		log:     log,
	}
	for _, r := range rules {
		m.rules[r.Type] = r
	}
	return m
}

// Record logs one violation occurrence for accountID and returns the
// escalated action, if the sliding-window threshold was crossed.
func (m *Monitor) Record(now time.Time, accountID int32, vt ViolationType, detail string) Action {
	rule, ok := m.rules[vt]
	if !ok {
		return ActionLog
	}
	byType, ok := m.windows[accountID]
	if !ok {
		byType = make(map[ViolationType]*slidingWindow)
		m.windows[accountID] = byType
	}
	w, ok := byType[vt]
	if !ok {
		w = &slidingWindow{}
		byType[vt] = w
	}
	count := w.record(now, rule.Window)

	m.log.Debug("違規記錄", zap.Int32("account", accountID), zap.Int("type", int(vt)), zap.Int("count", count))

	if count < rule.Threshold {
		return ActionLog
	}

	switch rule.Action {
	case ActionTempBan:
		m.bans = append(m.bans, Ban{AccountID: accountID, Reason: detail, Start: now, End: now.Add(rule.BanDur)})
	case ActionPermBan:
		m.bans = append(m.bans, Ban{AccountID: accountID, Reason: detail, Start: now, IsPermanent: true})
	}

	m.audit.Record(Entry{
		ID:        uuid.New(),
		At:        now,
		Kind:      EntryViolation,
		AccountID: accountID,
		Detail:    detail,
	})

	return rule.Action
}

// CheckBan reports the active ban blocking this account/character/ip, if
// any, evaluated at handshake per §4.12.
func (m *Monitor) CheckBan(now time.Time, accountID, characterID int32, ip string) *Ban {
	for i := range m.bans {
		b := &m.bans[i]
		if !b.Active(now) {
			continue
		}
		if (b.AccountID != 0 && b.AccountID == accountID) ||
			(b.CharacterID != 0 && b.CharacterID == characterID) ||
			(b.IP != "" && b.IP == ip) {
			return b
		}
	}
	return nil
}
