package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aydrian/tabnine-charity-activations/internal/models"
)

func TestDashboardBySlug(t *testing.T) {
	repo := newStubRepo()
	seedEvent(repo, false)
	for _, id := range []string{"d1", "d2", "d3"} {
		repo.donations[id] = models.Donation{ID: id, EventID: "event-1", CharityID: "charity-1"}
	}
	svc := &DashboardService{
		Repo:    repo,
		Tally:   &TallyService{Repo: repo},
		BaseURL: "https://activations.example/",
	}

	dashboard, err := svc.BySlug(context.Background(), "devconf")
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if dashboard.DonateLink != "https://activations.example/donate/event-1" {
		t.Fatalf("unexpected donate link: %q", dashboard.DonateLink)
	}
	if !strings.HasPrefix(dashboard.QRCode, "data:image/png;base64,") {
		t.Fatalf("qr code not a png data url: %.40q", dashboard.QRCode)
	}
	if dashboard.TotalCount != 3 {
		t.Fatalf("expected 3 donations, got %d", dashboard.TotalCount)
	}
	// 3 donations at $3.00 each.
	if dashboard.TotalDonated != "$9" {
		t.Fatalf("unexpected total donated: %q", dashboard.TotalDonated)
	}
}

func TestDashboardUnknownSlug(t *testing.T) {
	repo := newStubRepo()
	svc := &DashboardService{Repo: repo, Tally: &TallyService{Repo: repo}}

	if _, err := svc.BySlug(context.Background(), "nope"); !errors.Is(err, ErrEventNotFoundBySlug) {
		t.Fatalf("expected ErrEventNotFoundBySlug, got %v", err)
	}
}

func TestDonateFormData(t *testing.T) {
	repo := newStubRepo()
	seedEvent(repo, true)
	svc := &DashboardService{Repo: repo, Tally: &TallyService{Repo: repo}}

	form, err := svc.DonateForm(context.Background(), "event-1")
	if err != nil {
		t.Fatalf("donate form failed: %v", err)
	}
	if !form.CollectLeads {
		t.Fatalf("expected collectLeads true")
	}
	if len(form.Charities) != 2 {
		t.Fatalf("expected 2 charities, got %d", len(form.Charities))
	}
}
