package handler

import (
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/world"
)

const guildCreateCost = 30000

// HandleGuildCreate founds a new guild, deducting the creation cost from
// the founder's gold and registering them as its leader (§4.8).
func (d *Deps) HandleGuildCreate(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld {
		return
	}
	name := r.ReadS()
	if name == "" {
		return
	}
	if c.GuildID != 0 {
		d.sendSystemMessage(c, "you already belong to a guild")
		return
	}
	if d.World.Guilds.NameExists(name) {
		d.sendSystemMessage(c, "guild name already taken")
		return
	}
	if c.Gold < guildCreateCost {
		d.sendSystemMessage(c, "not enough gold to found a guild")
		return
	}
	c.Gold -= guildCreateCost
	g := d.World.Guilds.Create(name, c.ID, c.ID)
	c.GuildID = g.ID
	d.sendGuildUpdate(c, g)
}

// HandleGuildInvite adds a target character to the inviter's guild
// immediately; no pending offer is staged and the target does not have
// to accept.
func (d *Deps) HandleGuildInvite(sess any, r *packet.Reader) {
	inviter := d.characterFor(sess)
	if inviter == nil || inviter.GuildID == 0 {
		return
	}
	if !d.World.Guilds.IsLeader(inviter.ID) {
		d.sendSystemMessage(inviter, "only the guild leader can invite")
		return
	}
	targetID := r.ReadD()
	target := d.World.Character(targetID)
	if target == nil || target.GuildID != 0 {
		return
	}
	d.World.Guilds.AddMember(inviter.GuildID, &model.GuildMember{CharID: targetID, CharName: target.Name, Rank: model.GuildRankMember})
	target.GuildID = inviter.GuildID
	if g := d.World.Guilds.Get(inviter.GuildID); g != nil {
		d.broadcastGuildUpdate(g)
	}
}

// HandleGuildJoin is a no-op placeholder: AddMember already runs at
// invite time above, matching a direct-invite guild model without a
// separate accept step (§4.8 Open Question: guild invites resolve
// immediately, unlike party invites).
func (d *Deps) HandleGuildJoin(sess any, r *packet.Reader) {}

// HandleGuildKick lets the guild leader remove another member, or a
// member remove themselves.
func (d *Deps) HandleGuildKick(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.GuildID == 0 {
		return
	}
	targetID := r.ReadD()
	if targetID != c.ID && !d.World.Guilds.IsLeader(c.ID) {
		d.sendSystemMessage(c, "only the guild leader can remove other members")
		return
	}
	g := d.World.Guilds.Get(c.GuildID)
	if g == nil {
		return
	}
	d.World.Guilds.RemoveMember(g.ID, targetID)
	if target := d.World.Character(targetID); target != nil {
		target.GuildID = 0
		d.sendGuildUpdate(target, nil)
	}
	if g.LeaderID == targetID {
		d.World.Guilds.Remove(g.ID)
		return
	}
	d.broadcastGuildUpdate(g)
}

// HandleGuildNotice updates the guild's message-of-the-day, leader only.
func (d *Deps) HandleGuildNotice(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || !d.World.Guilds.IsLeader(c.ID) {
		return
	}
	notice := r.ReadS()
	g := d.World.Guilds.Get(c.GuildID)
	if g == nil {
		return
	}
	g.Notice = notice
	d.broadcastGuildUpdate(g)
}

// HandleGuildWarDeclare opens a guild war against another guild, leader
// only, rejecting a second active war against the same target (§3 guild
// war scoring).
func (d *Deps) HandleGuildWarDeclare(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || !d.World.Guilds.IsLeader(c.ID) {
		return
	}
	targetGuildID := r.ReadD()
	if targetGuildID == c.GuildID || d.World.Guilds.Get(targetGuildID) == nil {
		return
	}
	if !d.World.Guilds.DeclareWar(c.GuildID, targetGuildID, d.Now()/1000) {
		d.sendSystemMessage(c, "a war with that guild is already underway")
		return
	}
	if g := d.World.Guilds.Get(c.GuildID); g != nil {
		d.broadcastGuildUpdate(g)
	}
	if g := d.World.Guilds.Get(targetGuildID); g != nil {
		d.broadcastGuildUpdate(g)
	}
}

func (d *Deps) broadcastGuildUpdate(g *model.Guild) {
	for charID := range g.Members {
		if m := d.World.Character(charID); m != nil {
			d.sendGuildUpdate(m, g)
		}
	}
}

func (d *Deps) sendGuildUpdate(c *world.Character, g *model.Guild) {
	w := packet.NewWriter()
	if g == nil {
		w.WriteD(0)
		w.WriteS("")
		w.WriteC(0)
		d.sendTo(c, packet.OpGuildUpdate, w)
		return
	}
	w.WriteD(g.ID)
	w.WriteS(g.Name)
	w.WriteC(byte(g.MemberCount()))
	d.sendTo(c, packet.OpGuildUpdate, w)
}
