package handler

import (
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/world"
)

// ChatChannel selects the relay scope of an OpChat packet (§4 protocol).
type ChatChannel byte

const (
	ChatNormal ChatChannel = iota
	ChatWhisper
	ChatParty
	ChatGuild
	ChatGlobal
)

const chatShoutRadius = 40

// HandleChat dispatches a chat packet to its channel's relay scope. Wire
// shape is [channel:C][text:S], except whisper which carries an extra
// leading target name: [channel:C][target:S][text:S].
func (d *Deps) HandleChat(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld {
		return
	}
	channel := ChatChannel(r.ReadC())

	if channel == ChatWhisper {
		d.handleWhisper(c, r)
		return
	}

	text := r.ReadS()
	if text == "" {
		return
	}

	switch channel {
	case ChatNormal:
		for _, other := range d.World.NearbyCharacters(c.Pos, chatShoutRadius) {
			d.sendChatRelay(other, channel, c.Name, text)
		}
		d.sendChatRelay(c, channel, c.Name, text)

	case ChatParty:
		party := d.World.Parties.GetParty(c.ID)
		if party == nil {
			return
		}
		for _, memberID := range party.Members {
			if member := d.World.Character(memberID); member != nil {
				d.sendChatRelay(member, channel, c.Name, text)
			}
		}

	case ChatGuild:
		guild := d.World.Guilds.Get(d.World.Guilds.GuildOf(c.ID))
		if guild == nil {
			return
		}
		for memberID := range guild.Members {
			if member := d.World.Character(memberID); member != nil {
				d.sendChatRelay(member, channel, c.Name, text)
			}
		}

	case ChatGlobal:
		for _, other := range d.World.AllCharacters() {
			d.sendChatRelay(other, channel, c.Name, text)
		}

	default:
		d.sendSystemMessage(c, "unknown chat channel")
	}
}

func (d *Deps) handleWhisper(c *world.Character, r *packet.Reader) {
	targetName := r.ReadS()
	text := r.ReadS()
	if targetName == "" || text == "" {
		return
	}
	target := d.World.CharacterByName(targetName)
	if target == nil || target.ID == c.ID {
		d.sendSystemMessage(c, "character not found")
		return
	}
	d.sendChatRelay(target, ChatWhisper, c.Name, text)
	d.sendChatRelay(c, ChatWhisper, c.Name, text)
}

func (d *Deps) sendChatRelay(c *world.Character, channel ChatChannel, sender, text string) {
	w := packet.NewWriter()
	w.WriteC(byte(channel))
	w.WriteS(sender)
	w.WriteS(text)
	d.sendTo(c, packet.OpChatRelay, w)
}
