package handler

import (
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/world"
)

// HandlePartyInvite stages a pending invite for the target, forming a new
// party (or growing the inviter's existing one) once it's accepted (§4.8).
func (d *Deps) HandlePartyInvite(sess any, r *packet.Reader) {
	inviter := d.characterFor(sess)
	if inviter == nil || inviter.Lifecycle != world.LifecycleInWorld {
		return
	}
	targetID := r.ReadD()
	target := d.World.Character(targetID)
	if target == nil || target.ID == inviter.ID {
		return
	}
	if d.World.Parties.IsInParty(targetID) {
		d.sendSystemMessage(inviter, "that character is already in a party")
		return
	}
	if party := d.World.Parties.GetParty(inviter.ID); party != nil && !d.World.Parties.IsLeader(inviter.ID) {
		d.sendSystemMessage(inviter, "only the party leader can invite")
		return
	}
	d.World.Parties.Invite(targetID, inviter.ID)
	w := packet.NewWriter()
	w.WriteD(inviter.ID)
	w.WriteS(inviter.Name)
	d.sendTo(target, packet.OpPartyUpdate, w)
}

// HandlePartyAccept consumes the caller's pending invite and joins (or
// forms) the inviter's party.
func (d *Deps) HandlePartyAccept(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld {
		return
	}
	inviterID := d.World.Parties.ConsumeInvite(c.ID)
	if inviterID == 0 {
		return
	}
	inviter := d.World.Character(inviterID)
	if inviter == nil {
		return
	}

	var party *model.Party
	if existing := d.World.Parties.GetParty(inviterID); existing != nil {
		if err := d.World.Parties.Add(existing.ID, c.ID); err != nil {
			d.sendSystemMessage(c, "could not join party")
			return
		}
		party = existing
	} else {
		p, err := d.World.Parties.Create(inviterID, c.ID)
		if err != nil {
			d.sendSystemMessage(c, "could not form party")
			return
		}
		party = p
	}
	d.broadcastPartyRoster(party)
}

// HandlePartyLeave removes the caller from their party, auto-disbanding
// it if only one member would remain.
func (d *Deps) HandlePartyLeave(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	party, disbanded := d.World.Parties.Remove(c.ID)
	if party == nil {
		return
	}
	d.sendPartyDisband(c)
	if !disbanded {
		d.broadcastPartyRoster(party)
	}
}

// HandlePartyKick lets the party leader remove another member.
func (d *Deps) HandlePartyKick(sess any, r *packet.Reader) {
	leader := d.characterFor(sess)
	if leader == nil || !d.World.Parties.IsLeader(leader.ID) {
		return
	}
	targetID := r.ReadD()
	if targetID == leader.ID {
		return
	}
	party, disbanded := d.World.Parties.Remove(targetID)
	if party == nil {
		return
	}
	if target := d.World.Character(targetID); target != nil {
		d.sendPartyDisband(target)
	}
	if !disbanded {
		d.broadcastPartyRoster(party)
	}
}

func (d *Deps) broadcastPartyRoster(party *model.Party) {
	for _, id := range party.Members {
		m := d.World.Character(id)
		if m == nil {
			continue
		}
		w := packet.NewWriter()
		w.WriteD(party.Leader)
		w.WriteC(byte(len(party.Members)))
		for _, memberID := range party.Members {
			w.WriteD(memberID)
		}
		d.sendTo(m, packet.OpPartyUpdate, w)
	}
}

func (d *Deps) sendPartyDisband(c *world.Character) {
	w := packet.NewWriter()
	w.WriteD(0)
	w.WriteC(0)
	d.sendTo(c, packet.OpPartyUpdate, w)
}
