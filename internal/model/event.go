package model

import "container/heap"

// Recurrence is how often a scheduled event re-fires after its first
// trigger (§4.11).
type Recurrence int

const (
	RecurOnce Recurrence = iota
	RecurDaily
	RecurWeekly
	RecurMonthly
	RecurYearly
	RecurCustom
)

// ScheduledEvent is one entry in the event scheduler's priority queue,
// fired when the world tick's clock crosses FireAtMs.
type ScheduledEvent struct {
	ID         int32
	Name       string
	FireAtMs   int64
	Recurrence Recurrence
	IntervalMs int64 // used by RecurCustom to compute the next FireAtMs
	Payload    any

	index int // heap.Interface bookkeeping
}

// eventHeap is a min-heap over FireAtMs, satisfying heap.Interface.
type eventHeap []*ScheduledEvent

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].FireAtMs < h[j].FireAtMs }
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *eventHeap) Push(x any) {
	e := x.(*ScheduledEvent)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// EventScheduler is the tick boundary's priority queue of timed events
// (§4.11): spawns, announcements, zone modifiers, and anything else a
// subsystem registers a recurrence-bearing hook for.
type EventScheduler struct {
	pq     eventHeap
	nextID int32
}

func NewEventScheduler() *EventScheduler {
	s := &EventScheduler{pq: make(eventHeap, 0, 16)}
	heap.Init(&s.pq)
	return s
}

// Schedule enqueues a new event to fire at fireAtMs, returning its id.
func (s *EventScheduler) Schedule(name string, fireAtMs int64, recur Recurrence, intervalMs int64, payload any) int32 {
	s.nextID++
	e := &ScheduledEvent{
		ID: s.nextID, Name: name, FireAtMs: fireAtMs,
		Recurrence: recur, IntervalMs: intervalMs, Payload: payload,
	}
	heap.Push(&s.pq, e)
	return e.ID
}

// Cancel removes a pending event by id, if still queued.
func (s *EventScheduler) Cancel(id int32) bool {
	for i, e := range s.pq {
		if e.ID == id {
			heap.Remove(&s.pq, i)
			return true
		}
	}
	return false
}

// nextFireDelta computes how far past fireAtMs a recurring event's next
// occurrence should land, given nowMs has already crossed it.
func nextFireDelta(recur Recurrence, intervalMs int64) int64 {
	switch recur {
	case RecurDaily:
		return 24 * 60 * 60 * 1000
	case RecurWeekly:
		return 7 * 24 * 60 * 60 * 1000
	case RecurMonthly:
		return 30 * 24 * 60 * 60 * 1000
	case RecurYearly:
		return 365 * 24 * 60 * 60 * 1000
	case RecurCustom:
		return intervalMs
	default:
		return 0
	}
}

// DrainDue pops and returns every event whose FireAtMs has arrived as of
// nowMs, rescheduling recurring ones for their next occurrence.
func (s *EventScheduler) DrainDue(nowMs int64) []*ScheduledEvent {
	var due []*ScheduledEvent
	for s.pq.Len() > 0 && s.pq[0].FireAtMs <= nowMs {
		e := heap.Pop(&s.pq).(*ScheduledEvent)
		due = append(due, e)
		if e.Recurrence != RecurOnce {
			delta := nextFireDelta(e.Recurrence, e.IntervalMs)
			if delta > 0 {
				next := &ScheduledEvent{
					ID: e.ID, Name: e.Name, FireAtMs: e.FireAtMs + delta,
					Recurrence: e.Recurrence, IntervalMs: e.IntervalMs, Payload: e.Payload,
				}
				heap.Push(&s.pq, next)
			}
		}
	}
	return due
}

func (s *EventScheduler) Len() int { return s.pq.Len() }
