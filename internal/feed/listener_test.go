package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aydrian/tabnine-charity-activations/internal/models"
	"github.com/aydrian/tabnine-charity-activations/internal/stream"
)

// stubTally counts donations per event in memory and can fail a configured
// number of times to exercise the retry path.
type stubTally struct {
	mu       sync.Mutex
	counts   map[string]map[string]int64
	failures int
	calls    int
}

func newStubTally() *stubTally {
	return &stubTally{counts: map[string]map[string]int64{}}
}

func (s *stubTally) add(eventID, charityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts[eventID] == nil {
		s.counts[eventID] = map[string]int64{}
	}
	s.counts[eventID][charityID]++
}

func (s *stubTally) Update(ctx context.Context, eventID, charityID string) (stream.Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return stream.Update{}, errors.New("tally unavailable")
	}
	update := stream.Update{CharityID: charityID}
	for id, count := range s.counts[eventID] {
		update.Charities = append(update.Charities, stream.CharityCount{CharityID: id, Count: count})
	}
	return update, nil
}

type stubAudit struct {
	mu   sync.Mutex
	rows []models.ChangeMessage
}

func (s *stubAudit) InsertChangeMessage(ctx context.Context, item *models.ChangeMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, *item)
	return nil
}

func (s *stubAudit) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func runListener(t *testing.T, listener *Listener) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()
	return cancel, done
}

func collectUpdates(t *testing.T, ch <-chan stream.Update, n int) []stream.Update {
	t.Helper()
	var out []stream.Update
	deadline := time.After(3 * time.Second)
	for len(out) < n {
		select {
		case update := <-ch:
			out = append(out, update)
		case <-deadline:
			t.Fatalf("got %d updates, want %d", len(out), n)
		}
	}
	return out
}

func TestListenerBroadcastsRecomputedTally(t *testing.T) {
	bus := NewBus(16)
	tally := newStubTally()
	audit := &stubAudit{}
	registry := stream.NewRegistry(16, nil)
	listener := &Listener{Source: bus, Repo: audit, Tally: tally, Registry: registry}

	ch, unsubscribe := registry.Subscribe("event-1")
	defer unsubscribe()

	cancel, done := runListener(t, listener)
	defer func() { cancel(); <-done }()

	ctx := context.Background()
	for i, charityID := range []string{"charity-1", "charity-2", "charity-1"} {
		tally.add("event-1", charityID)
		if err := bus.Publish(ctx, Notification{
			DonationID: string(rune('a' + i)),
			EventID:    "event-1",
			CharityID:  charityID,
		}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	updates := collectUpdates(t, ch, 3)
	last := updates[2]
	if last.CharityID != "charity-1" {
		t.Fatalf("expected triggering charity on last update, got %q", last.CharityID)
	}
	counts := map[string]int64{}
	for _, c := range last.Charities {
		counts[c.CharityID] = c.Count
	}
	if counts["charity-1"] != 2 || counts["charity-2"] != 1 {
		t.Fatalf("unexpected final counts: %v", counts)
	}
	if audit.count() != 3 {
		t.Fatalf("expected 3 audit rows, got %d", audit.count())
	}
}

func TestListenerKeepsEventsIndependent(t *testing.T) {
	bus := NewBus(16)
	tally := newStubTally()
	registry := stream.NewRegistry(16, nil)
	listener := &Listener{Source: bus, Repo: &stubAudit{}, Tally: tally, Registry: registry}

	chA, cancelA := registry.Subscribe("event-a")
	defer cancelA()
	chB, cancelB := registry.Subscribe("event-b")
	defer cancelB()

	cancel, done := runListener(t, listener)
	defer func() { cancel(); <-done }()

	ctx := context.Background()
	tally.add("event-a", "charity-1")
	if err := bus.Publish(ctx, Notification{DonationID: "a", EventID: "event-a", CharityID: "charity-1"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	tally.add("event-b", "charity-2")
	if err := bus.Publish(ctx, Notification{DonationID: "b", EventID: "event-b", CharityID: "charity-2"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	updateA := collectUpdates(t, chA, 1)[0]
	if updateA.CharityID != "charity-1" {
		t.Fatalf("event-a got wrong update: %+v", updateA)
	}
	updateB := collectUpdates(t, chB, 1)[0]
	if updateB.CharityID != "charity-2" {
		t.Fatalf("event-b got wrong update: %+v", updateB)
	}
	select {
	case extra := <-chA:
		t.Fatalf("event-a must not see event-b updates: %+v", extra)
	default:
	}
}

func TestListenerRetriesFailedRecompute(t *testing.T) {
	bus := NewBus(16)
	tally := newStubTally()
	tally.failures = 2
	registry := stream.NewRegistry(16, nil)
	listener := &Listener{
		Source:   bus,
		Repo:     &stubAudit{},
		Tally:    tally,
		Registry: registry,
		Opts: ListenerOptions{
			RetryMax:   5,
			BackoffMin: time.Millisecond,
			BackoffMax: 5 * time.Millisecond,
		},
	}

	ch, unsubscribe := registry.Subscribe("event-1")
	defer unsubscribe()

	cancel, done := runListener(t, listener)
	defer func() { cancel(); <-done }()

	tally.add("event-1", "charity-1")
	if err := bus.Publish(context.Background(), Notification{DonationID: "a", EventID: "event-1", CharityID: "charity-1"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	update := collectUpdates(t, ch, 1)[0]
	if len(update.Charities) != 1 || update.Charities[0].Count != 1 {
		t.Fatalf("unexpected update after retries: %+v", update)
	}
	tally.mu.Lock()
	calls := tally.calls
	tally.mu.Unlock()
	if calls != 3 {
		t.Fatalf("expected 3 tally attempts, got %d", calls)
	}
}

func TestListenerReconcilePublishesSnapshots(t *testing.T) {
	tally := newStubTally()
	registry := stream.NewRegistry(16, nil)
	listener := &Listener{Source: NewBus(1), Repo: &stubAudit{}, Tally: tally, Registry: registry}
	listener.applyDefaults()

	ch, unsubscribe := registry.Subscribe("event-1")
	defer unsubscribe()

	tally.add("event-1", "charity-1")
	listener.Reconcile(context.Background())

	update := collectUpdates(t, ch, 1)[0]
	if update.CharityID != "" {
		t.Fatalf("reconcile snapshot must not mark a charity, got %q", update.CharityID)
	}
	if len(update.Charities) != 1 || update.Charities[0].Count != 1 {
		t.Fatalf("unexpected snapshot: %+v", update)
	}
}
