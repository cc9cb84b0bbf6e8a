package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aydrian/tabnine-charity-activations/internal/feed"
	"github.com/aydrian/tabnine-charity-activations/internal/models"
	"github.com/aydrian/tabnine-charity-activations/internal/repository"
)

var ErrEventNotFound = errors.New("event not found")

// ValidationError carries field-level messages for a rejected submission so
// the form can highlight individual inputs.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return "invalid fields: " + strings.Join(keys, ", ")
}

// DonationSubmission is one attendee form post. Contact fields apply only
// when the event collects leads; survey fields are always accepted.
type DonationSubmission struct {
	EventID   string `json:"eventId" form:"eventId"`
	CharityID string `json:"charityId" form:"charityId"`

	Email     string `json:"email" form:"email"`
	FirstName string `json:"firstName" form:"firstName"`
	LastName  string `json:"lastName" form:"lastName"`
	Company   string `json:"company" form:"company"`
	JobRole   string `json:"jobRole" form:"jobRole"`

	UsingAI         string `json:"usingAI" form:"usingAI"`
	CompanyAdoption string `json:"companyAdoption" form:"companyAdoption"`
	SdicUseAI       string `json:"sdicUseAI" form:"sdicUseAI"`
	StatementAgree  string `json:"statementAgree" form:"statementAgree"`
	ToolEval        string `json:"toolEval" form:"toolEval"`
}

// DonationService validates submissions and writes the donation, its survey,
// and the optional lead atomically. When Bus is set (in-process feed
// mode) it also publishes the insert notification after commit; in pgnotify
// mode the database trigger does that instead.
type DonationService struct {
	Repo   repository.Repository
	Bus    *feed.Bus
	Logger *zap.Logger
}

func (s *DonationService) Submit(ctx context.Context, in DonationSubmission) (*models.Donation, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("donation service not configured")
	}
	in = trimSubmission(in)

	if in.EventID == "" {
		return nil, &ValidationError{Fields: map[string]string{"eventId": "event is required"}}
	}
	event, err := s.Repo.GetEventByID(ctx, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	if fields := validateSubmission(event, in); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	now := time.Now().UTC()
	donation := &models.Donation{
		ID:        uuid.NewString(),
		EventID:   event.ID,
		CharityID: in.CharityID,
		CreatedAt: now,
	}
	var lead *models.Lead
	if event.CollectLeads {
		lead = &models.Lead{
			ID:        uuid.NewString(),
			Email:     in.Email,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Company:   in.Company,
			JobRole:   in.JobRole,
			Score:     models.LeadScoreUnscored,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	// Every donation carries a survey row, even when all answers are blank.
	survey := &models.Survey{
		ID:              uuid.NewString(),
		Email:           in.Email,
		UsingAI:         in.UsingAI,
		CompanyAdoption: in.CompanyAdoption,
		SdicUseAI:       in.SdicUseAI,
		StatementAgree:  in.StatementAgree,
		ToolEval:        in.ToolEval,
		CreatedAt:       now,
	}

	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.CreateDonationTx(ctx, tx, donation, lead, survey)
	})
	if err != nil {
		return nil, fmt.Errorf("create donation: %w", err)
	}

	if s.Bus != nil {
		err := s.Bus.Publish(ctx, feed.Notification{
			DonationID: donation.ID,
			EventID:    donation.EventID,
			CharityID:  donation.CharityID,
		})
		if err != nil && s.Logger != nil {
			s.Logger.Warn("donation bus publish failed",
				zap.String("donation_id", donation.ID),
				zap.Error(err),
			)
		}
	}
	if s.Logger != nil {
		s.Logger.Info("donation recorded",
			zap.String("donation_id", donation.ID),
			zap.String("event_id", donation.EventID),
			zap.String("charity_id", donation.CharityID),
		)
	}
	return donation, nil
}

func validateSubmission(event *models.Event, in DonationSubmission) map[string]string {
	fields := map[string]string{}

	if in.CharityID == "" {
		fields["charityId"] = "pick a charity"
	} else {
		found := false
		for _, c := range event.Charities {
			if c.CharityID == in.CharityID {
				found = true
				break
			}
		}
		if !found {
			fields["charityId"] = "charity is not part of this event"
		}
	}

	if event.CollectLeads {
		if in.FirstName == "" {
			fields["firstName"] = "first name is required"
		}
		if in.LastName == "" {
			fields["lastName"] = "last name is required"
		}
		if in.Email == "" {
			fields["email"] = "email is required"
		} else if !strings.Contains(in.Email, "@") {
			fields["email"] = "email is invalid"
		}
		if in.Company == "" {
			fields["company"] = "company is required"
		}
		if in.JobRole == "" {
			fields["jobRole"] = "job role is required"
		}
	} else if in.Email != "" && !strings.Contains(in.Email, "@") {
		fields["email"] = "email is invalid"
	}

	return fields
}

func trimSubmission(in DonationSubmission) DonationSubmission {
	in.EventID = strings.TrimSpace(in.EventID)
	in.CharityID = strings.TrimSpace(in.CharityID)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Company = strings.TrimSpace(in.Company)
	in.JobRole = strings.TrimSpace(in.JobRole)
	in.UsingAI = strings.TrimSpace(in.UsingAI)
	in.CompanyAdoption = strings.TrimSpace(in.CompanyAdoption)
	in.SdicUseAI = strings.TrimSpace(in.SdicUseAI)
	in.StatementAgree = strings.TrimSpace(in.StatementAgree)
	in.ToolEval = strings.TrimSpace(in.ToolEval)
	return in
}
