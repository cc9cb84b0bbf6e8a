package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/aydrian/tabnine-charity-activations/internal/models"
)

func seedDonation(repo *stubRepo, eventTwitter, charityTwitter *string) {
	website := "https://opencollective.example"
	repo.charities["charity-1"] = models.Charity{
		ID:      "charity-1",
		Name:    "Open Source Collective",
		Website: &website,
		Twitter: charityTwitter,
	}
	repo.events["event-1"] = models.Event{
		ID:               "event-1",
		Name:             "DevConf",
		DonationAmount:   decimal.RequireFromString("3.00"),
		DonationCurrency: "usd",
		ResponseTemplate: "## Thanks!\n\nWe donated {{donationAmount}} to [{{charity.name}}]({{charity.url}}) at {{event.name}}.",
		TweetTemplate:    "I donated {{donationAmount}} to {{charity}} at {{event}}!",
		Twitter:          eventTwitter,
	}
	repo.donations["donation-1"] = models.Donation{
		ID:        "donation-1",
		EventID:   "event-1",
		CharityID: "charity-1",
	}
}

func TestRenderConfirmation(t *testing.T) {
	repo := newStubRepo()
	seedDonation(repo, nil, nil)
	svc := &ConfirmationService{Repo: repo}

	confirmation, err := svc.Render(context.Background(), "donation-1")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(confirmation.ResponseHTML, "<h2") {
		t.Fatalf("markdown heading not rendered: %q", confirmation.ResponseHTML)
	}
	if !strings.Contains(confirmation.ResponseHTML, "Open Source Collective") {
		t.Fatalf("charity name missing: %q", confirmation.ResponseHTML)
	}
	if !strings.Contains(confirmation.ResponseHTML, "$3") {
		t.Fatalf("donation amount missing: %q", confirmation.ResponseHTML)
	}
	// No handles configured, so the tweet falls back to plain names.
	if confirmation.TweetText != "I donated $3 to Open Source Collective at DevConf!" {
		t.Fatalf("unexpected tweet text: %q", confirmation.TweetText)
	}
}

func TestRenderConfirmationTwitterHandles(t *testing.T) {
	repo := newStubRepo()
	charityHandle := "oscollective"
	eventHandle := "@devconf"
	seedDonation(repo, &eventHandle, &charityHandle)
	svc := &ConfirmationService{Repo: repo}

	confirmation, err := svc.Render(context.Background(), "donation-1")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if confirmation.TweetText != "I donated $3 to @oscollective at @devconf!" {
		t.Fatalf("unexpected tweet text: %q", confirmation.TweetText)
	}
	if !strings.Contains(confirmation.TweetURL, "twitter.com/intent/tweet?text=") {
		t.Fatalf("unexpected tweet url: %q", confirmation.TweetURL)
	}
}

func TestRenderConfirmationMissingDonation(t *testing.T) {
	repo := newStubRepo()
	svc := &ConfirmationService{Repo: repo}

	if _, err := svc.Render(context.Background(), "nope"); !errors.Is(err, ErrDonationNotFound) {
		t.Fatalf("expected ErrDonationNotFound, got %v", err)
	}
}
