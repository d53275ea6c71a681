// Package handler implements §4.1 step 5 of the packet pipeline: the
// per-opcode business logic invoked once a packet has cleared framing,
// checksum, sequence, rate-limit, and session-state validation. Every
// handler in this package runs on the single world-tick goroutine (§5)
// and is free to mutate *world.State directly without locking.
package handler

import (
	"go.uber.org/zap"

	"github.com/wydtm/tmsrv/internal/config"
	"github.com/wydtm/tmsrv/internal/data"
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/netio"
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/persist"
	"github.com/wydtm/tmsrv/internal/scripting"
	"github.com/wydtm/tmsrv/internal/world"
)

// Content bundles every read-only static content table a handler may
// need to validate a request against (§4 COMPONENT DESIGN throughout).
type Content struct {
	Items     *data.ItemTable
	Mobs      *data.MobTable
	Npcs      *data.NpcTable
	Skills    *data.SkillTable
	ArmorSets *data.ArmorSetTable
	Maps      *data.MapDataTable
	Shops     *data.ShopTable
	Drops     *data.DropTable
	MobSkills *data.MobSkillTable
	Portals   *data.PortalTable
	Quests    *data.QuestTable
}

// Repos bundles the persistence-layer repositories a handler calls into
// for durable state a save can't wait for the next autosave batch
// (account/character creation, guild/quest mutations that must survive
// a crash between autosaves).
type Repos struct {
	Accounts   *persist.AccountRepo
	Characters *persist.CharacterRepo
	Items      *persist.ItemRepo
	Guilds     *persist.GuildRepo
	Quests     *persist.QuestRepo
	Auctions   *persist.AuctionRepo
	Bans       *persist.BanRepo
	Audit      *persist.AuditRepo
	Autosave   *persist.AutosaveBatch
}

// Sessions resolves a live *netio.Session by its ID without handler
// needing to import netio's connection machinery beyond Session itself.
type Sessions interface {
	Get(id uint64) (*netio.Session, bool)
	Broadcast(ids []uint64, opcode packet.Opcode, payload []byte)
}

// Deps is the fixed bundle every handler closes over. It is constructed
// once at startup (cmd/tmsrv) and never mutated; everything mutable
// hangs off Deps.World.
type Deps struct {
	World    *world.State
	Content  Content
	Repos    Repos
	Sessions Sessions
	Formula  model.CombatFormula
	Scripts  *scripting.Engine
	Config   *config.Config
	Log      *zap.Logger

	// Now returns the current epoch millisecond, indirected so tests can
	// inject a deterministic clock (§8 scenario timelines).
	Now func() int64
}

// sessionOf resolves the Session for a character, or nil if the
// character has disconnected since the packet was queued.
func (d *Deps) sessionOf(c *world.Character) *netio.Session {
	if c == nil {
		return nil
	}
	sess, ok := d.Sessions.Get(c.SessionID)
	if !ok {
		return nil
	}
	return sess
}

// sendTo writes one packet to a character's live session, silently
// dropping it if the session has already closed.
func (d *Deps) sendTo(c *world.Character, opcode packet.Opcode, w *packet.Writer) {
	if sess := d.sessionOf(c); sess != nil {
		sess.Send(opcode, w.Bytes())
	}
}

// sendSystemMessage is the common "tell this one character something
// went wrong" path nearly every handler uses for a rejected request.
func (d *Deps) sendSystemMessage(c *world.Character, msg string) {
	w := packet.NewWriter()
	w.WriteS(msg)
	d.sendTo(c, packet.OpSystemMessage, w)
}

// SendSystemMessage is the exported form of sendSystemMessage, for the
// tick systems package (event scheduler announcements, §4.11).
func (d *Deps) SendSystemMessage(c *world.Character, msg string) {
	d.sendSystemMessage(c, msg)
}

// currentFor resolves the acting Session from an inbound session
// pointer. Handlers receive sess as `any` per the netio/packet.HandlerFunc
// signature to avoid an import cycle; this is the single place that
// downcasts it back to *netio.Session.
func (d *Deps) currentFor(sess any) *netio.Session {
	s, ok := sess.(*netio.Session)
	if !ok {
		return nil
	}
	return s
}

func (d *Deps) characterFor(sess any) *world.Character {
	s := d.currentFor(sess)
	if s == nil {
		return nil
	}
	return d.World.CharacterBySession(s.ID)
}
