package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aydrian/tabnine-charity-activations/internal/models"
	"github.com/aydrian/tabnine-charity-activations/internal/repository"
)

var (
	ErrCharityNotFound = errors.New("charity not found")
	ErrLeadNotFound    = errors.New("lead not found")
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type EventCharityInput struct {
	CharityID string `json:"charityId"`
	Color     string `json:"color"`
}

type EventInput struct {
	Name             string              `json:"name"`
	Slug             string              `json:"slug"`
	Location         string              `json:"location"`
	DonationAmount   string              `json:"donationAmount"`
	DonationCurrency string              `json:"donationCurrency"`
	StartDate        time.Time           `json:"startDate"`
	EndDate          time.Time           `json:"endDate"`
	CollectLeads     bool                `json:"collectLeads"`
	LegalBlurb       string              `json:"legalBlurb"`
	ResponseTemplate string              `json:"responseTemplate"`
	TweetTemplate    string              `json:"tweetTemplate"`
	Twitter          string              `json:"twitter"`
	Charities        []EventCharityInput `json:"charities"`
}

type CharityInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	LogoSVG     string `json:"logoSVG"`
	Website     string `json:"website"`
	Twitter     string `json:"twitter"`
}

// AdminService owns the authenticated write paths: event and charity CRUD
// and lead scoring.
type AdminService struct {
	Repo                 repository.Repository
	MaxCharitiesPerEvent int
}

func (s *AdminService) maxCharities() int {
	if s.MaxCharitiesPerEvent <= 0 {
		return 4
	}
	return s.MaxCharitiesPerEvent
}

// EnsureAdminUser creates the bootstrap administrator row on first start so
// created events and charities reference a real user.
func (s *AdminService) EnsureAdminUser(ctx context.Context, email string) (*models.User, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("admin service not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = "admin@localhost"
	}
	existing, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load admin user: %w", err)
	}
	if existing != nil {
		return existing, nil
	}
	user := &models.User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: "Event",
		LastName:  "Admin",
		FullName:  "Event Admin",
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create admin user: %w", err)
	}
	return user, nil
}

func (s *AdminService) CreateEvent(ctx context.Context, createdBy string, in EventInput) (*models.Event, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("admin service not configured")
	}
	event, charities, err := s.buildEvent(in)
	if err != nil {
		return nil, err
	}
	if existing, err := s.Repo.GetEventBySlug(ctx, event.Slug); err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	} else if existing != nil {
		return nil, &ValidationError{Fields: map[string]string{"slug": "slug already in use"}}
	}
	event.ID = uuid.NewString()
	event.CreatedBy = createdBy
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.CreateEventTx(ctx, tx, event, charities)
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return s.Repo.GetEventByID(ctx, event.ID)
}

func (s *AdminService) UpdateEvent(ctx context.Context, id string, in EventInput) (*models.Event, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("admin service not configured")
	}
	existing, err := s.Repo.GetEventByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if existing == nil {
		return nil, ErrEventNotFound
	}
	event, charities, err := s.buildEvent(in)
	if err != nil {
		return nil, err
	}
	if other, err := s.Repo.GetEventBySlug(ctx, event.Slug); err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	} else if other != nil && other.ID != existing.ID {
		return nil, &ValidationError{Fields: map[string]string{"slug": "slug already in use"}}
	}
	event.ID = existing.ID
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.UpdateEventTx(ctx, tx, event, charities)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return s.Repo.GetEventByID(ctx, event.ID)
}

func (s *AdminService) buildEvent(in EventInput) (*models.Event, []models.CharityForEvent, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(in.Location) == "" {
		fields["location"] = "location is required"
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.DonationAmount))
	if err != nil || amount.IsNegative() {
		fields["donationAmount"] = "donation amount must be a non-negative number"
	}
	if in.StartDate.IsZero() {
		fields["startDate"] = "start date is required"
	}
	if in.EndDate.IsZero() {
		fields["endDate"] = "end date is required"
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		fields["endDate"] = "end date must not precede start date"
	}
	if strings.TrimSpace(in.ResponseTemplate) == "" {
		fields["responseTemplate"] = "response template is required"
	}
	if strings.TrimSpace(in.TweetTemplate) == "" {
		fields["tweetTemplate"] = "tweet template is required"
	}
	if len(in.Charities) == 0 {
		fields["charities"] = "pick at least one charity"
	} else if len(in.Charities) > s.maxCharities() {
		fields["charities"] = fmt.Sprintf("at most %d charities per event", s.maxCharities())
	}
	seen := map[string]struct{}{}
	for i, c := range in.Charities {
		key := fmt.Sprintf("charities[%d]", i)
		if strings.TrimSpace(c.CharityID) == "" {
			fields[key] = "charity is required"
			continue
		}
		if _, dup := seen[c.CharityID]; dup {
			fields[key] = "charity listed twice"
			continue
		}
		seen[c.CharityID] = struct{}{}
		if !hexColorRe.MatchString(strings.TrimSpace(c.Color)) {
			fields[key] = "color must be a #rrggbb value"
		}
	}
	if len(fields) > 0 {
		return nil, nil, &ValidationError{Fields: fields}
	}

	eventSlug := strings.TrimSpace(in.Slug)
	if eventSlug == "" {
		eventSlug = in.Name
	}
	event := &models.Event{
		Name:             strings.TrimSpace(in.Name),
		Slug:             slug.Make(eventSlug),
		Location:         strings.TrimSpace(in.Location),
		DonationAmount:   amount,
		DonationCurrency: normalizeCurrency(in.DonationCurrency),
		StartDate:        in.StartDate.UTC(),
		EndDate:          in.EndDate.UTC(),
		CollectLeads:     in.CollectLeads,
		LegalBlurb:       optional(in.LegalBlurb),
		ResponseTemplate: in.ResponseTemplate,
		TweetTemplate:    in.TweetTemplate,
		Twitter:          optional(in.Twitter),
	}
	charities := make([]models.CharityForEvent, 0, len(in.Charities))
	for _, c := range in.Charities {
		charities = append(charities, models.CharityForEvent{
			CharityID: strings.TrimSpace(c.CharityID),
			Color:     strings.ToLower(strings.TrimSpace(c.Color)),
		})
	}
	return event, charities, nil
}

func (s *AdminService) CreateCharity(ctx context.Context, createdBy string, in CharityInput) (*models.Charity, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("admin service not configured")
	}
	charity, err := buildCharity(in)
	if err != nil {
		return nil, err
	}
	if existing, err := s.Repo.GetCharityBySlug(ctx, charity.Slug); err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	} else if existing != nil {
		return nil, &ValidationError{Fields: map[string]string{"slug": "slug already in use"}}
	}
	charity.ID = uuid.NewString()
	charity.CreatedBy = createdBy
	if err := s.Repo.CreateCharity(ctx, charity); err != nil {
		return nil, fmt.Errorf("create charity: %w", err)
	}
	return charity, nil
}

func (s *AdminService) UpdateCharity(ctx context.Context, id string, in CharityInput) (*models.Charity, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("admin service not configured")
	}
	existing, err := s.Repo.GetCharityByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load charity: %w", err)
	}
	if existing == nil {
		return nil, ErrCharityNotFound
	}
	charity, err := buildCharity(in)
	if err != nil {
		return nil, err
	}
	if other, err := s.Repo.GetCharityBySlug(ctx, charity.Slug); err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	} else if other != nil && other.ID != existing.ID {
		return nil, &ValidationError{Fields: map[string]string{"slug": "slug already in use"}}
	}
	charity.ID = existing.ID
	charity.CreatedBy = existing.CreatedBy
	if err := s.Repo.UpdateCharity(ctx, charity); err != nil {
		return nil, fmt.Errorf("update charity: %w", err)
	}
	return s.Repo.GetCharityByID(ctx, charity.ID)
}

func buildCharity(in CharityInput) (*models.Charity, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "description is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	charitySlug := strings.TrimSpace(in.Slug)
	if charitySlug == "" {
		charitySlug = in.Name
	}
	return &models.Charity{
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug.Make(charitySlug),
		Description: strings.TrimSpace(in.Description),
		LogoSVG:     optional(in.LogoSVG),
		Website:     optional(in.Website),
		Twitter:     optional(in.Twitter),
	}, nil
}

// ScoreLead updates a lead's score and notes and returns the owning event id
// so the handler can link back to the event's lead list.
func (s *AdminService) ScoreLead(ctx context.Context, id string, score models.LeadScore, notes *string) (string, error) {
	if s == nil || s.Repo == nil {
		return "", fmt.Errorf("admin service not configured")
	}
	if !score.Valid() {
		return "", &ValidationError{Fields: map[string]string{"score": "unknown score"}}
	}
	eventID, err := s.Repo.UpdateLeadScore(ctx, id, score, notes)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrLeadNotFound
	}
	if err != nil {
		return "", fmt.Errorf("update lead: %w", err)
	}
	return eventID, nil
}

func normalizeCurrency(currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return "usd"
	}
	return currency
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
