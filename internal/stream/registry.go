package stream

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// CharityCount is one slice of an event's donation tally, carrying the
// presentation metadata dashboards need to render without a second fetch.
type CharityCount struct {
	CharityID string `json:"charity_id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	LogoSVG   string `json:"logoSVG"`
	Count     int64  `json:"count"`
}

// Update is the payload broadcast after every donation insert: the charity
// that just received a donation plus the full recomputed tally for the event.
type Update struct {
	CharityID string         `json:"charityId"`
	Charities []CharityCount `json:"charities"`
}

// Registry fans dashboard updates out to SSE subscribers, keyed by event.
// Publish never blocks: a subscriber whose buffer is full misses that update
// and catches up on the next one, since each update carries the full tally.
type Registry struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]chan Update
	nextID uint64

	buf     int
	logger  *zap.Logger
	dropped uint64
}

func NewRegistry(buf int, logger *zap.Logger) *Registry {
	if buf <= 0 {
		buf = 16
	}
	return &Registry{
		subs:   map[string]map[uint64]chan Update{},
		buf:    buf,
		logger: logger,
	}
}

// Subscribe registers a listener for one event and returns the update channel
// plus a cancel func. Cancel is idempotent and closes the channel.
func (r *Registry) Subscribe(eventID string) (<-chan Update, func()) {
	ch := make(chan Update, r.buf)

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	if r.subs[eventID] == nil {
		r.subs[eventID] = map[uint64]chan Update{}
	}
	r.subs[eventID][id] = ch
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			if m := r.subs[eventID]; m != nil {
				delete(m, id)
				if len(m) == 0 {
					delete(r.subs, eventID)
				}
			}
			r.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (r *Registry) Publish(eventID string, update Update) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.subs[eventID] {
		select {
		case ch <- update:
		default:
			// Drop when subscriber is slow; publish must not block.
			atomic.AddUint64(&r.dropped, 1)
		}
	}
}

// ActiveEvents lists the events that currently have at least one subscriber.
func (r *Registry) ActiveEvents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.subs))
	for eventID := range r.subs {
		out = append(out, eventID)
	}
	return out
}

// Subscribers reports how many listeners one event currently has.
func (r *Registry) Subscribers(eventID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[eventID])
}

// Dropped reports how many updates were discarded because a subscriber
// buffer was full.
func (r *Registry) Dropped() uint64 {
	return atomic.LoadUint64(&r.dropped)
}

func (r *Registry) LogStats() {
	if r.logger == nil {
		return
	}
	r.mu.RLock()
	events := len(r.subs)
	total := 0
	for _, m := range r.subs {
		total += len(m)
	}
	r.mu.RUnlock()
	r.logger.Info("stream registry stats",
		zap.Int("events", events),
		zap.Int("subscribers", total),
		zap.Uint64("dropped", atomic.LoadUint64(&r.dropped)),
	)
}
