// Package broadcaster fans lifecycle events out to connected sessions.
//
// Every session owns a bounded buffer. Publishing never blocks: a session
// whose buffer is full is evicted and has to reconnect and resync from the
// report store. Events for one report are delivered in version order; an
// event that is not newer than the last one published for its report is
// dropped as superseded.
package broadcaster

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linesmerrill/grievance-api/models"
)

// DefaultBuffer is the per-session queue length used when none is configured
const DefaultBuffer = 64

// maxTombstones bounds how many deleted reports keep their final version so
// late events for them are still dropped
const maxTombstones = 1024

// Subscription is one connected session. C is closed on Unsubscribe or eviction.
type Subscription struct {
	ID       string
	Identity string
	Role     models.Role
	C        <-chan models.Envelope

	send chan models.Envelope
}

// Counters is a point-in-time view of broadcaster activity
type Counters struct {
	Sessions   int   `json:"sessions"`
	Published  int64 `json:"published"`
	Superseded int64 `json:"superseded"`
	Delivered  int64 `json:"delivered"`
	Evicted    int64 `json:"evicted"`
	Broadcasts int64 `json:"broadcasts"`
	Tracked    int   `json:"tracked"`
}

// Broadcaster routes envelopes to sessions
type Broadcaster struct {
	mu         sync.Mutex
	buffer     int
	sessions   map[string]*Subscription
	byIdentity map[string]map[string]*Subscription
	latest     map[string]int64
	tombstones map[string]int64
	buried     []string
	listeners  []func(models.LifecycleEvent)
	counters   Counters
}

// New returns a Broadcaster whose sessions buffer up to buffer envelopes
func New(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		buffer:     buffer,
		sessions:   map[string]*Subscription{},
		byIdentity: map[string]map[string]*Subscription{},
		latest:     map[string]int64{},
		tombstones: map[string]int64{},
	}
}

// Subscribe opens a session for identity. One identity may hold many sessions.
func (b *Broadcaster) Subscribe(identity string, role models.Role) *Subscription {
	send := make(chan models.Envelope, b.buffer)
	s := &Subscription{
		ID:       uuid.NewString(),
		Identity: identity,
		Role:     role,
		C:        send,
		send:     send,
	}

	b.mu.Lock()
	b.sessions[s.ID] = s
	if b.byIdentity[identity] == nil {
		b.byIdentity[identity] = map[string]*Subscription{}
	}
	b.byIdentity[identity][s.ID] = s
	total := len(b.sessions)
	b.mu.Unlock()

	zap.S().Infow("session connected", "session", s.ID, "identity", identity, "role", role, "total", total)
	return s
}

// Unsubscribe closes a session. Unknown or already closed ids are ignored.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	s, ok := b.sessions[id]
	if ok {
		b.drop(s)
	}
	total := len(b.sessions)
	b.mu.Unlock()

	if ok {
		zap.S().Infow("session disconnected", "session", id, "identity", s.Identity, "total", total)
	}
}

// OnEvent registers fn to receive every published event. fn runs on its own
// goroutine and must not assume ordering between events.
func (b *Broadcaster) OnEvent(fn func(models.LifecycleEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Publish delivers event to the report owner, the current assignee, the
// previous assignee when this event took the report away from them, and every
// administrator. A non-nil error wraps models.ErrTransportFailure and lists
// how many sessions were evicted; the event still reached everyone else.
func (b *Broadcaster) Publish(event models.LifecycleEvent) error {
	b.mu.Lock()
	last, seen := b.latest[event.ReportID]
	if !seen {
		last, seen = b.tombstones[event.ReportID]
	}
	if seen && event.Version <= last {
		b.counters.Superseded++
		b.mu.Unlock()
		zap.S().Debugw("dropped superseded event", "report", event.ReportID, "version", event.Version, "latest", last)
		return nil
	}
	if event.Kind == models.EventDeleted {
		delete(b.latest, event.ReportID)
		b.bury(event.ReportID, event.Version)
	} else {
		b.latest[event.ReportID] = event.Version
	}
	b.counters.Published++

	evt := event
	env := models.Envelope{Type: models.EnvelopeReportEvent, Event: &evt}
	evicted := b.deliver(b.targets(event), env)
	listeners := append([]func(models.LifecycleEvent){}, b.listeners...)
	b.mu.Unlock()

	for _, fn := range listeners {
		go fn(event)
	}
	return evictionError(evicted)
}

// Broadcast sends a system-wide message to every session
func (b *Broadcaster) Broadcast(msg models.Broadcast) error {
	b.mu.Lock()
	targets := make([]*Subscription, 0, len(b.sessions))
	for _, s := range b.sessions {
		targets = append(targets, s)
	}
	b.counters.Broadcasts++
	m := msg
	evicted := b.deliver(targets, models.Envelope{Type: models.EnvelopeBroadcast, Broadcast: &m})
	b.mu.Unlock()
	return evictionError(evicted)
}

// SendDigest pushes an officer workload snapshot to administrator sessions
func (b *Broadcaster) SendDigest(loads []models.OfficerWorkload) error {
	b.mu.Lock()
	var targets []*Subscription
	for _, s := range b.sessions {
		if s.Role == models.RoleAdministrator {
			targets = append(targets, s)
		}
	}
	evicted := b.deliver(targets, models.Envelope{Type: models.EnvelopeDigest, Workload: loads})
	b.mu.Unlock()
	return evictionError(evicted)
}

// Counters returns the current activity counters
func (b *Broadcaster) Counters() Counters {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.counters
	c.Sessions = len(b.sessions)
	c.Tracked = len(b.latest)
	return c
}

// Connected reports whether identity has at least one open session
func (b *Broadcaster) Connected(identity string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byIdentity[identity]) > 0
}

// Close evicts every session
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sessions {
		b.drop(s)
	}
}

// targets is called with b.mu held
func (b *Broadcaster) targets(event models.LifecycleEvent) []*Subscription {
	picked := map[string]*Subscription{}
	add := func(identity string) {
		if identity == "" {
			return
		}
		for id, s := range b.byIdentity[identity] {
			picked[id] = s
		}
	}
	add(event.Owner)
	add(event.Assignee)
	if event.PreviousAssignee != event.Assignee {
		add(event.PreviousAssignee)
	}
	for id, s := range b.sessions {
		if s.Role == models.RoleAdministrator {
			picked[id] = s
		}
	}

	out := make([]*Subscription, 0, len(picked))
	for _, s := range picked {
		out = append(out, s)
	}
	return out
}

// deliver is called with b.mu held
func (b *Broadcaster) deliver(targets []*Subscription, env models.Envelope) []string {
	var evicted []string
	for _, s := range targets {
		select {
		case s.send <- env:
			b.counters.Delivered++
		default:
			b.drop(s)
			b.counters.Evicted++
			evicted = append(evicted, s.ID)
			zap.S().Warnw("evicted slow session", "session", s.ID, "identity", s.Identity, "buffer", b.buffer)
		}
	}
	return evicted
}

// bury is called with b.mu held. The oldest tombstone goes once the set is full.
func (b *Broadcaster) bury(reportID string, version int64) {
	if _, ok := b.tombstones[reportID]; !ok {
		b.buried = append(b.buried, reportID)
	}
	b.tombstones[reportID] = version
	if len(b.buried) > maxTombstones {
		delete(b.tombstones, b.buried[0])
		b.buried = b.buried[1:]
	}
}

// drop is called with b.mu held
func (b *Broadcaster) drop(s *Subscription) {
	if _, ok := b.sessions[s.ID]; !ok {
		return
	}
	delete(b.sessions, s.ID)
	if m := b.byIdentity[s.Identity]; m != nil {
		delete(m, s.ID)
		if len(m) == 0 {
			delete(b.byIdentity, s.Identity)
		}
	}
	close(s.send)
}

func evictionError(evicted []string) error {
	if len(evicted) == 0 {
		return nil
	}
	return fmt.Errorf("%w: evicted %d session(s) with full buffers: %v", models.ErrTransportFailure, len(evicted), evicted)
}
