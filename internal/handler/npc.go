package handler

import (
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/world"
)

// HandleNpcTalk opens dialogue with a non-shop NPC, the live event source
// for Talk/Deliver quest objectives (§4.9). There's no separate item
// consumption step for Deliver: the objective's TargetID is the NPC, the
// same as Talk, so both are satisfied by the same interaction.
func (d *Deps) HandleNpcTalk(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld || c.Dead {
		return
	}
	npcID := r.ReadD()
	d.advanceNPCObjectives(npcID, model.ObjectiveTalk)
	d.advanceNPCObjectives(npcID, model.ObjectiveDeliver)
}
