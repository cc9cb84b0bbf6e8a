package service

import (
	"context"
	"testing"

	"github.com/aydrian/tabnine-charity-activations/internal/models"
)

func TestTallyUpdateMergesCountsAndMetadata(t *testing.T) {
	repo := newStubRepo()
	seedEvent(repo, false)
	for i, charityID := range []string{"charity-1", "charity-1", "charity-2"} {
		repo.donations[string(rune('a'+i))] = models.Donation{
			ID:        string(rune('a' + i)),
			EventID:   "event-1",
			CharityID: charityID,
		}
	}
	svc := &TallyService{Repo: repo}

	update, err := svc.Update(context.Background(), "event-1", "charity-1")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if update.CharityID != "charity-1" {
		t.Fatalf("expected triggering charity marked, got %q", update.CharityID)
	}
	if len(update.Charities) != 2 {
		t.Fatalf("expected both charities in payload, got %d", len(update.Charities))
	}
	counts := map[string]int64{}
	for _, c := range update.Charities {
		counts[c.CharityID] = c.Count
		if c.Name == "" || c.Color == "" {
			t.Fatalf("metadata missing for %s: %+v", c.CharityID, c)
		}
	}
	if counts["charity-1"] != 2 || counts["charity-2"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestTallyUpdateZeroCountsForQuietCharities(t *testing.T) {
	repo := newStubRepo()
	seedEvent(repo, false)
	svc := &TallyService{Repo: repo}

	update, err := svc.Update(context.Background(), "event-1", "")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(update.Charities) != 2 {
		t.Fatalf("expected both charities present even with no donations, got %d", len(update.Charities))
	}
	for _, c := range update.Charities {
		if c.Count != 0 {
			t.Fatalf("expected zero count, got %d for %s", c.Count, c.CharityID)
		}
	}
}
