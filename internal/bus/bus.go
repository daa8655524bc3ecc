package bus

import (
	"sync"

	"MesaQR/pkg/logging"
)

// Bus is an in-process fan-out of order events to subscribed clients.
// Delivery is best-effort and at-most-once: a publish never blocks, a
// subscriber with a full buffer loses the event, and nothing is stored.
// The instance is injected into whoever publishes or subscribes; swapping it
// for a broker-backed implementation later does not touch the order logic.
type Bus struct {
	mu   sync.RWMutex
	next int
	// room -> subscriber id -> subscriber
	rooms map[string]map[int]*Subscriber
	all   map[int]*Subscriber
}

type Subscriber struct {
	id    int
	rooms []string
	c     chan Event
	once  sync.Once
	bus   *Bus
}

func New() *Bus {
	return &Bus{
		rooms: make(map[string]map[int]*Subscriber),
		all:   make(map[int]*Subscriber),
	}
}

// Subscribe registers a client on the given rooms. Every subscriber also
// receives broadcast events regardless of room membership, mirroring how the
// dashboard clients behave. Membership is explicit: authentication alone
// implies nothing.
func (b *Bus) Subscribe(buffer int, rooms ...string) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	sub := &Subscriber{
		id:    b.next,
		rooms: rooms,
		c:     make(chan Event, buffer),
		bus:   b,
	}
	b.all[sub.id] = sub
	for _, room := range rooms {
		if b.rooms[room] == nil {
			b.rooms[room] = make(map[int]*Subscriber)
		}
		b.rooms[room][sub.id] = sub
	}

	logging.GetLogger().Debugf("Bus:>Subscriber %d joined rooms %v", sub.id, rooms)
	return sub
}

// Events is the subscriber's receive channel. Closed on Close.
func (s *Subscriber) Events() <-chan Event {
	return s.c
}

// Close leaves all rooms and closes the event channel. Safe to call twice.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		delete(b.all, s.id)
		for _, room := range s.rooms {
			if members := b.rooms[room]; members != nil {
				delete(members, s.id)
				if len(members) == 0 {
					delete(b.rooms, room)
				}
			}
		}
		b.mu.Unlock()
		close(s.c)
		logging.GetLogger().Debugf("Bus:>Subscriber %d left", s.id)
	})
}

// Broadcast delivers the event to every subscriber.
func (b *Bus) Broadcast(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.all {
		sub.send(ev)
	}
}

// Publish delivers the event to the members of one room.
func (b *Bus) Publish(room string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.rooms[room] {
		sub.send(ev)
	}
}

// send never blocks; a slow subscriber drops the event.
func (s *Subscriber) send(ev Event) {
	select {
	case s.c <- ev:
	default:
		logging.GetLogger().Debugf("Bus:>Subscriber %d buffer full, event %s dropped", s.id, ev.Name)
	}
}
