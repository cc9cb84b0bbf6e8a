package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aydrian/tabnine-charity-activations/internal/feed"
	"github.com/aydrian/tabnine-charity-activations/internal/models"
)

func seedEvent(repo *stubRepo, collectLeads bool) *models.Event {
	repo.charities["charity-1"] = models.Charity{ID: "charity-1", Name: "Open Source Collective", Slug: "open-source-collective"}
	repo.charities["charity-2"] = models.Charity{ID: "charity-2", Name: "Girls Who Code", Slug: "girls-who-code"}
	event := models.Event{
		ID:             "event-1",
		Name:           "DevConf",
		Slug:           "devconf",
		DonationAmount: decimal.RequireFromString("3.00"),
		CollectLeads:   collectLeads,
		StartDate:      time.Now().Add(-time.Hour),
		EndDate:        time.Now().Add(time.Hour),
	}
	repo.events[event.ID] = event
	repo.bindings[event.ID] = []models.CharityForEvent{
		{EventID: event.ID, CharityID: "charity-1", Color: "#ff0000"},
		{EventID: event.ID, CharityID: "charity-2", Color: "#00ff00"},
	}
	return &event
}

func validSubmission() DonationSubmission {
	return DonationSubmission{
		EventID:         "event-1",
		CharityID:       "charity-1",
		Email:           "dev@example.com",
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Company:         "Analytical Engines",
		JobRole:         "Engineer",
		UsingAI:         "yes",
		CompanyAdoption: "evaluating",
		StatementAgree:  "agree",
	}
}

func TestSubmitCreatesLeadWhenCollecting(t *testing.T) {
	repo := newStubRepo()
	seedEvent(repo, true)
	svc := &DonationService{Repo: repo}

	donation, err := svc.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if donation.EventID != "event-1" || donation.CharityID != "charity-1" {
		t.Fatalf("unexpected donation: %+v", donation)
	}
	if len(repo.leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(repo.leads))
	}
	for _, lead := range repo.leads {
		if lead.DonationID != donation.ID {
			t.Fatalf("lead not bound to donation: %+v", lead)
		}
		if lead.Score != models.LeadScoreUnscored {
			t.Fatalf("new lead should be unscored, got %s", lead.Score)
		}
	}
	if len(repo.surveys) != 1 {
		t.Fatalf("expected 1 survey, got %d", len(repo.surveys))
	}
}

func TestSubmitSkipsLeadWhenNotCollecting(t *testing.T) {
	repo := newStubRepo()
	seedEvent(repo, false)
	svc := &DonationService{Repo: repo}

	in := validSubmission()
	in.Email = ""
	in.FirstName = ""
	in.LastName = ""
	in.Company = ""
	in.JobRole = ""

	if _, err := svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if len(repo.leads) != 0 {
		t.Fatalf("expected no leads, got %d", len(repo.leads))
	}
	if len(repo.donations) != 1 {
		t.Fatalf("expected 1 donation, got %d", len(repo.donations))
	}
}

func TestSubmitAlwaysWritesSurvey(t *testing.T) {
	repo := newStubRepo()
	seedEvent(repo, false)
	svc := &DonationService{Repo: repo}

	in := validSubmission()
	in.Email = ""
	in.FirstName = ""
	in.LastName = ""
	in.Company = ""
	in.JobRole = ""
	in.UsingAI = ""
	in.CompanyAdoption = ""
	in.StatementAgree = ""
	in.SdicUseAI = "sometimes"
	in.ToolEval = "trialing assistants"

	donation, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if len(repo.surveys) != 1 {
		t.Fatalf("expected 1 survey, got %d", len(repo.surveys))
	}
	for _, survey := range repo.surveys {
		if survey.DonationID != donation.ID {
			t.Fatalf("survey not bound to donation: %+v", survey)
		}
		if survey.SdicUseAI != "sometimes" || survey.ToolEval != "trialing assistants" {
			t.Fatalf("survey answers dropped: %+v", survey)
		}
	}
}

func TestSubmitRequiresContactWhenCollecting(t *testing.T) {
	repo := newStubRepo()
	seedEvent(repo, true)
	svc := &DonationService{Repo: repo}

	in := validSubmission()
	in.FirstName = ""
	in.Email = "not-an-email"

	_, err := svc.Submit(context.Background(), in)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := vErr.Fields["firstName"]; !ok {
		t.Fatalf("expected firstName error, got %v", vErr.Fields)
	}
	if _, ok := vErr.Fields["email"]; !ok {
		t.Fatalf("expected email error, got %v", vErr.Fields)
	}
	if len(repo.donations) != 0 {
		t.Fatalf("rejected submission must not write a donation")
	}
}

func TestSubmitRejectsForeignCharity(t *testing.T) {
	repo := newStubRepo()
	seedEvent(repo, false)
	svc := &DonationService{Repo: repo}

	in := validSubmission()
	in.CharityID = "charity-99"

	_, err := svc.Submit(context.Background(), in)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := vErr.Fields["charityId"]; !ok {
		t.Fatalf("expected charityId error, got %v", vErr.Fields)
	}
}

func TestSubmitUnknownEvent(t *testing.T) {
	repo := newStubRepo()
	svc := &DonationService{Repo: repo}

	in := validSubmission()
	in.EventID = "event-missing"

	if _, err := svc.Submit(context.Background(), in); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestSubmitPublishesToBus(t *testing.T) {
	repo := newStubRepo()
	seedEvent(repo, false)
	bus := feed.NewBus(4)
	svc := &DonationService{Repo: repo, Bus: bus}

	donation, err := svc.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out := make(chan feed.Notification, 1)
	go func() { _ = bus.Run(ctx, out) }()

	select {
	case n := <-out:
		if n.DonationID != donation.ID || n.EventID != "event-1" || n.CharityID != "charity-1" {
			t.Fatalf("unexpected notification: %+v", n)
		}
	case <-ctx.Done():
		t.Fatalf("no notification published")
	}
}
