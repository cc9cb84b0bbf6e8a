package feed

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PGNotifyOptions struct {
	DSN        string
	Channel    string
	BackoffMin time.Duration
	BackoffMax time.Duration
	Logger     *zap.Logger
}

// PGNotifySource listens on a Postgres NOTIFY channel fed by the donation
// insert trigger. It holds a dedicated connection and reconnects with
// exponential backoff; after a reconnect the listener's periodic reconcile
// covers anything missed while disconnected.
type PGNotifySource struct {
	opts PGNotifyOptions
}

func NewPGNotifySource(opts PGNotifyOptions) *PGNotifySource {
	if opts.Channel == "" {
		opts.Channel = "donation_inserts"
	}
	if opts.BackoffMin <= 0 {
		opts.BackoffMin = time.Second
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = 30 * time.Second
	}
	return &PGNotifySource{opts: opts}
}

func (s *PGNotifySource) Run(ctx context.Context, out chan<- Notification) error {
	if s == nil {
		return errors.New("pgnotify source is nil")
	}
	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := pgx.Connect(ctx, s.opts.DSN)
		if err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("pgnotify connect failed", zap.Error(err))
			}
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.opts.Channel}.Sanitize()); err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("pgnotify listen failed", zap.Error(err))
			}
			_ = conn.Close(ctx)
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Info("pgnotify listening", zap.String("channel", s.opts.Channel))
		}
		backoff = s.opts.BackoffMin

		err = s.consume(ctx, conn, out)
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = conn.Close(closeCtx)
		cancel()
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Warn("pgnotify disconnected", zap.Error(err))
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, s.opts.BackoffMax)
	}
}

func (s *PGNotifySource) consume(ctx context.Context, conn *pgx.Conn, out chan<- Notification) error {
	for {
		msg, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var n Notification
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("pgnotify bad payload", zap.Error(err), zap.String("payload", msg.Payload))
			}
			continue
		}
		if n.EventID == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- n:
		}
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepWithJitter(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	jitter := time.Duration(rand.Int63n(int64(base / 2)))
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
