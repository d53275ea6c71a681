package security

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EntryKind distinguishes what an audit Entry records.
type EntryKind int

const (
	EntryViolation EntryKind = iota
	EntryItemMutation
	EntryGoldMutation
	EntryTradeCommit
	EntryAdminAction
)

// Entry is one immutable audit record. Every item mutation, gold
// mutation, trade commit, and admin action emits one of these (§4.12);
// once appended an Entry is never edited or removed.
type Entry struct {
	ID          uuid.UUID
	At          time.Time
	Kind        EntryKind
	AccountID   int32
	CharacterID int32
	Actor       string // "system", "admin:<name>", or empty for player-initiated
	Detail      string
}

// Log is an append-only, in-memory audit trail. Entries are never
// mutated or removed once recorded; a persistence layer can drain it
// periodically by calling Since() and advancing its own cursor.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Record(e Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// Since returns every entry recorded at or after t, oldest first.
func (l *Log) Since(t time.Time) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if !e.At.Before(t) {
			out = append(out, e)
		}
	}
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// ItemMutation records an item gain/loss/modification for a character.
func (l *Log) ItemMutation(now time.Time, characterID int32, actor, detail string) {
	l.Record(Entry{At: now, Kind: EntryItemMutation, CharacterID: characterID, Actor: actor, Detail: detail})
}

// GoldMutation records a gold balance change for a character.
func (l *Log) GoldMutation(now time.Time, characterID int32, actor, detail string) {
	l.Record(Entry{At: now, Kind: EntryGoldMutation, CharacterID: characterID, Actor: actor, Detail: detail})
}

// TradeCommit records a completed trade between two characters.
func (l *Log) TradeCommit(now time.Time, characterID int32, detail string) {
	l.Record(Entry{At: now, Kind: EntryTradeCommit, CharacterID: characterID, Actor: "system", Detail: detail})
}

// AdminAction records an operator-issued command (ban, kick, item grant,
// gold adjustment, etc.) per the admin CLI/API (§6).
func (l *Log) AdminAction(now time.Time, admin, detail string) {
	l.Record(Entry{At: now, Kind: EntryAdminAction, Actor: "admin:" + admin, Detail: detail})
}
