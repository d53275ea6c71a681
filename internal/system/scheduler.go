package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/wydtm/tmsrv/internal/core/system"
	"github.com/wydtm/tmsrv/internal/handler"
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/world"
)

// EventSystem drains the world's timed-event scheduler each tick,
// dispatching every event whose fire time has arrived (§4.11: spawns,
// server-wide announcements, zone modifiers, and anything else a
// subsystem registered a recurrence-bearing hook for). Phase 3
// (PostUpdate), alongside the other "world reacts to the clock" work.
type EventSystem struct {
	world *world.State
	deps  *handler.Deps
	log   *zap.Logger
}

func NewEventSystem(ws *world.State, deps *handler.Deps, log *zap.Logger) *EventSystem {
	return &EventSystem{world: ws, deps: deps, log: log}
}

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *EventSystem) Update(_ time.Duration) {
	due := s.world.Scheduler.DrainDue(s.deps.Now())
	for _, e := range due {
		s.fire(e)
	}
}

// fire dispatches one due event by name. "announce" broadcasts its
// payload (a string) to every in-world character as a system message;
// anything else is logged so an operator can see scheduled content
// firing without a dedicated handler yet existing for it.
func (s *EventSystem) fire(e *model.ScheduledEvent) {
	switch e.Name {
	case "announce":
		msg, _ := e.Payload.(string)
		if msg == "" {
			return
		}
		for _, c := range s.world.AllCharacters() {
			s.deps.SendSystemMessage(c, msg)
		}
	default:
		s.log.Info("scheduled event fired", zap.String("name", e.Name), zap.Int32("id", e.ID))
	}
}
