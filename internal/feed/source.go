package feed

import "context"

// Notification is one donation-insert change record, as emitted by the
// database trigger or posted by a changefeed webhook.
type Notification struct {
	DonationID string `json:"donation_id"`
	EventID    string `json:"event_id"`
	CharityID  string `json:"charity_id"`
}

// ChangeSource delivers donation-insert notifications in commit order for
// any single event. Run blocks until ctx is done or the source fails
// permanently.
type ChangeSource interface {
	Run(ctx context.Context, out chan<- Notification) error
}
