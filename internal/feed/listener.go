package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/aydrian/tabnine-charity-activations/internal/models"
	"github.com/aydrian/tabnine-charity-activations/internal/stream"
)

// Tally recomputes the full broadcast payload for one event. charityID marks
// the charity the triggering donation went to and may be empty.
type Tally interface {
	Update(ctx context.Context, eventID, charityID string) (stream.Update, error)
}

// AuditStore persists one row per consumed change-feed envelope.
type AuditStore interface {
	InsertChangeMessage(ctx context.Context, item *models.ChangeMessage) error
}

type ListenerOptions struct {
	SourceName   string
	WorkerBuffer int
	QueryTimeout time.Duration
	RetryMax     int
	BackoffMin   time.Duration
	BackoffMax   time.Duration
}

// Listener consumes donation-insert notifications and turns each one into a
// dashboard broadcast. Notifications for the same event are handled by one
// worker in arrival order; different events proceed concurrently.
type Listener struct {
	Source   ChangeSource
	Repo     AuditStore
	Tally    Tally
	Registry *stream.Registry
	Logger   *zap.Logger
	Opts     ListenerOptions

	mu      sync.Mutex
	workers map[string]chan Notification
	wg      sync.WaitGroup
}

func (l *Listener) Run(ctx context.Context) error {
	if l == nil || l.Source == nil || l.Tally == nil {
		return errors.New("listener not configured")
	}
	l.applyDefaults()
	l.workers = map[string]chan Notification{}

	intake := make(chan Notification, 256)
	sourceErr := make(chan error, 1)
	go func() {
		sourceErr <- l.Source.Run(ctx, intake)
	}()

	for {
		select {
		case <-ctx.Done():
			l.drainWorkers()
			return ctx.Err()
		case err := <-sourceErr:
			l.drainWorkers()
			return err
		case n := <-intake:
			l.dispatch(ctx, n)
		}
	}
}

func (l *Listener) applyDefaults() {
	if l.Opts.SourceName == "" {
		l.Opts.SourceName = "pgnotify"
	}
	if l.Opts.WorkerBuffer <= 0 {
		l.Opts.WorkerBuffer = 64
	}
	if l.Opts.QueryTimeout <= 0 {
		l.Opts.QueryTimeout = 5 * time.Second
	}
	if l.Opts.RetryMax <= 0 {
		l.Opts.RetryMax = 3
	}
	if l.Opts.BackoffMin <= 0 {
		l.Opts.BackoffMin = 200 * time.Millisecond
	}
	if l.Opts.BackoffMax <= 0 {
		l.Opts.BackoffMax = 2 * time.Second
	}
}

// dispatch routes a notification to its event's worker, starting one on
// first sight. A full worker queue blocks intake rather than reordering.
func (l *Listener) dispatch(ctx context.Context, n Notification) {
	l.mu.Lock()
	ch, ok := l.workers[n.EventID]
	if !ok {
		ch = make(chan Notification, l.Opts.WorkerBuffer)
		l.workers[n.EventID] = ch
		l.wg.Add(1)
		go l.runWorker(ctx, n.EventID, ch)
	}
	l.mu.Unlock()

	select {
	case <-ctx.Done():
	case ch <- n:
	}
}

func (l *Listener) runWorker(ctx context.Context, eventID string, ch <-chan Notification) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-ch:
			l.handle(ctx, n)
		}
	}
}

func (l *Listener) handle(ctx context.Context, n Notification) {
	l.audit(ctx, n)

	backoff := l.Opts.BackoffMin
	for attempt := 1; ; attempt++ {
		queryCtx, cancel := context.WithTimeout(ctx, l.Opts.QueryTimeout)
		update, err := l.Tally.Update(queryCtx, n.EventID, n.CharityID)
		cancel()
		if err == nil {
			if l.Registry != nil {
				l.Registry.Publish(n.EventID, update)
			}
			return
		}
		if l.Logger != nil {
			l.Logger.Warn("tally recompute failed",
				zap.String("event_id", n.EventID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		if attempt >= l.Opts.RetryMax || ctx.Err() != nil {
			// The reconcile job will repair the tally on its next pass.
			return
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return
		}
		backoff = nextBackoff(backoff, l.Opts.BackoffMax)
	}
}

func (l *Listener) audit(ctx context.Context, n Notification) {
	if l.Repo == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		payload = nil
	}
	auditCtx, cancel := context.WithTimeout(ctx, l.Opts.QueryTimeout)
	defer cancel()
	err = l.Repo.InsertChangeMessage(auditCtx, &models.ChangeMessage{
		Source:     l.Opts.SourceName,
		EventID:    strPtr(n.EventID),
		DonationID: strPtr(n.DonationID),
		ReceivedAt: time.Now().UTC(),
		Payload:    datatypes.JSON(payload),
	})
	if err != nil && l.Logger != nil {
		l.Logger.Warn("change message insert failed", zap.Error(err))
	}
}

// Reconcile recomputes and rebroadcasts the tally for every event that has a
// live subscriber. It runs on a timer to repair anything missed while a
// source was reconnecting or a recompute exhausted its retries.
func (l *Listener) Reconcile(ctx context.Context) {
	if l == nil || l.Registry == nil || l.Tally == nil {
		return
	}
	for _, eventID := range l.Registry.ActiveEvents() {
		queryCtx, cancel := context.WithTimeout(ctx, l.Opts.QueryTimeout)
		update, err := l.Tally.Update(queryCtx, eventID, "")
		cancel()
		if err != nil {
			if l.Logger != nil {
				l.Logger.Warn("reconcile failed", zap.String("event_id", eventID), zap.Error(err))
			}
			continue
		}
		l.Registry.Publish(eventID, update)
	}
}

func (l *Listener) drainWorkers() {
	l.wg.Wait()
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
