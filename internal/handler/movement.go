package handler

import (
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/security"
	"github.com/wydtm/tmsrv/internal/world"
)

// HandleMove validates a single-tile step against the map's passability
// mask and the configured speed-hack tolerance, then relocates the
// character in the spatial index and notifies its area of interest
// (§4.2, §4.12 speed-hack detection).
func (d *Deps) HandleMove(sess any, r *packet.Reader) {
	c := d.characterFor(sess)
	if c == nil || c.Lifecycle != world.LifecycleInWorld || c.Dead {
		return
	}
	x := r.ReadD()
	y := r.ReadD()
	heading := int16(r.ReadC())
	clientSentAtMs := int64(r.ReadDU())

	if !isAdjacent(c.Pos.X, c.Pos.Y, x, y) {
		d.World.Security.Record(toTime(d.Now()), c.AccountID, security.ViolationSpeedHack, c.Name)
		return
	}
	if d.Content.Maps != nil && !d.Content.Maps.IsPassable(int16(c.Pos.MapID), c.Pos.X, c.Pos.Y, int(heading)) {
		return
	}

	nowMs := d.Now()
	if clientSentAtMs > 0 {
		tolerance := int64(d.Config.Security.SpeedHackToleranceMs)
		if drift := nowMs - clientSentAtMs; drift < -tolerance {
			d.World.Security.Record(toTime(nowMs), c.AccountID, security.ViolationSpeedHack, c.Name)
		}
	}

	oldNearby := d.World.NearbyCharacters(c.Pos, aoiRadius)
	c.Heading = heading
	d.World.MoveCharacter(c, world.Position{X: x, Y: y, MapID: c.Pos.MapID})
	newNearby := d.World.NearbyCharacters(c.Pos, aoiRadius)

	d.broadcastMove(c)
	d.diffVisibility(c, oldNearby, newNearby)
	d.advanceVisitObjectives(c, c.Pos.MapID)
}

const aoiRadius = 20

func isAdjacent(oldX, oldY, newX, newY int32) bool {
	dx := newX - oldX
	dy := newY - oldY
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx <= 1 && dy <= 1
}

// broadcastMove notifies every character currently in c's area of
// interest of its new position.
func (d *Deps) broadcastMove(c *world.Character) {
	nearby := d.World.NearbyCharacters(c.Pos, aoiRadius)
	w := packet.NewWriter()
	w.WriteD(c.ID)
	w.WriteD(c.Pos.X)
	w.WriteD(c.Pos.Y)
	w.WriteC(byte(c.Heading))
	payload := w.Bytes()
	var ids []uint64
	for _, other := range nearby {
		if other.ID != c.ID {
			ids = append(ids, other.SessionID)
		}
	}
	d.Sessions.Broadcast(ids, packet.OpEntityMove, payload)
}

// diffVisibility sends spawn/despawn notifications for the characters
// that entered or left c's area of interest as a result of its move
// (§4.2 AoI transition events).
func (d *Deps) diffVisibility(c *world.Character, before, after []*world.Character) {
	afterSet := make(map[int32]*world.Character, len(after))
	for _, o := range after {
		afterSet[o.ID] = o
	}
	beforeSet := make(map[int32]*world.Character, len(before))
	for _, o := range before {
		beforeSet[o.ID] = o
		if _, stillVisible := afterSet[o.ID]; !stillVisible && o.ID != c.ID {
			d.sendDespawn(c, o.ID)
			d.sendDespawn(o, c.ID)
		}
	}
	for _, o := range after {
		if _, wasVisible := beforeSet[o.ID]; !wasVisible && o.ID != c.ID {
			d.sendTo(o, packet.OpEntitySpawn, spawnPayload(c))
			d.sendTo(c, packet.OpEntitySpawn, spawnPayload(o))
		}
	}
}

func (d *Deps) sendDespawn(c *world.Character, entityID int32) {
	w := packet.NewWriter()
	w.WriteD(entityID)
	d.sendTo(c, packet.OpEntityDespawn, w)
}
