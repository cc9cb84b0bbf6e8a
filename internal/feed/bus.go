package feed

import "context"

// Bus is an in-process ChangeSource. The donation writer publishes into it
// directly when no external changefeed is configured; it also backs the
// webhook sink, which turns changefeed HTTP posts into bus publishes.
type Bus struct {
	ch chan Notification
}

func NewBus(buf int) *Bus {
	if buf <= 0 {
		buf = 256
	}
	return &Bus{ch: make(chan Notification, buf)}
}

// Publish hands a notification to the bus, blocking until the listener
// accepts it or ctx is done. Blocking preserves commit order.
func (b *Bus) Publish(ctx context.Context, n Notification) error {
	if b == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case b.ch <- n:
		return nil
	}
}

func (b *Bus) Run(ctx context.Context, out chan<- Notification) error {
	if b == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-b.ch:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- n:
			}
		}
	}
}
