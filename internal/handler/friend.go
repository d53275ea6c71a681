package handler

import (
	"github.com/wydtm/tmsrv/internal/netio/packet"
)

// HandleFriendList replies with the calling character's friend ids and
// each one's current online state (§4.8, §C.5).
func (d *Deps) HandleFriendList(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	ids := d.World.Friends.List(c.ID)
	w := packet.NewWriter()
	w.WriteH(uint16(len(ids)))
	for _, id := range ids {
		w.WriteD(id)
		w.WriteC(boolByte(d.World.Character(id) != nil))
	}
	d.sendTo(c, packet.OpFriendUpdate, w)
}

// HandleFriendAdd adds a mutual friendship with an online character
// found by name, refusing it across a block in either direction (§4.8).
func (d *Deps) HandleFriendAdd(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	name := r.ReadS()
	target := d.World.CharacterByName(name)
	if target == nil {
		d.sendSystemMessage(c, "player not found")
		return
	}
	if !d.World.Friends.Add(c.ID, target.ID) {
		d.sendSystemMessage(c, "cannot add that player as a friend")
		return
	}
	d.sendSystemMessage(c, "friend added")
}

// HandleFriendRemove drops a friendship from both sides.
func (d *Deps) HandleFriendRemove(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	otherID := r.ReadD()
	d.World.Friends.Remove(c.ID, otherID)
}

// HandleFriendBlock adds a character to the caller's block list,
// severing any existing friendship (one-directional) (§4.8).
func (d *Deps) HandleFriendBlock(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	otherID := r.ReadD()
	d.World.Friends.Block(c.ID, otherID)
}

// HandleFriendUnblock removes a character from the caller's block list.
func (d *Deps) HandleFriendUnblock(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil {
		return
	}
	otherID := r.ReadD()
	d.World.Friends.Unblock(c.ID, otherID)
}

// FlushFriendNotices drains the per-tick coalesced online/offline queue
// and sends one batched packet per recipient still online, rather than
// one packet per individual login/logout event (§C.5 throttling).
func (d *Deps) FlushFriendNotices() {
	for charID, notices := range d.World.Friends.FlushNotices() {
		c := d.World.Character(charID)
		if c == nil || len(notices) == 0 {
			continue
		}
		w := packet.NewWriter()
		w.WriteH(uint16(len(notices)))
		for _, n := range notices {
			w.WriteD(n.CharID)
			w.WriteC(boolByte(n.Online))
		}
		d.sendTo(c, packet.OpFriendNotice, w)
	}
}
