package db

import "fmt"

// InstallDonationNotify installs the insert trigger that feeds the pgnotify
// change source. The payload carries enough to recompute the affected
// aggregate: donation, event, and charity ids.
func InstallDonationNotify(db *DB, channel string) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	if channel == "" {
		channel = "donation_inserts"
	}

	fn := fmt.Sprintf(`
CREATE OR REPLACE FUNCTION notify_donation_insert() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('%s', json_build_object(
		'donation_id', NEW.id,
		'event_id', NEW.event_id,
		'charity_id', NEW.charity_id
	)::text);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;`, channel)

	if _, err := db.SQL.Exec(fn); err != nil {
		return err
	}
	if _, err := db.SQL.Exec(`DROP TRIGGER IF EXISTS donations_notify_insert ON donations`); err != nil {
		return err
	}
	_, err := db.SQL.Exec(`
CREATE TRIGGER donations_notify_insert
AFTER INSERT ON donations
FOR EACH ROW EXECUTE FUNCTION notify_donation_insert()`)
	return err
}
