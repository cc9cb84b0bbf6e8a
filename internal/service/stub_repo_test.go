package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/aydrian/tabnine-charity-activations/internal/models"
	"github.com/aydrian/tabnine-charity-activations/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// It implements the full interface but each test exercises only a subset.
type stubRepo struct {
	users     map[string]models.User
	charities map[string]models.Charity
	events    map[string]models.Event
	bindings  map[string][]models.CharityForEvent
	donations map[string]models.Donation
	leads     map[string]models.Lead
	surveys   map[string]models.Survey
	changes   []models.ChangeMessage

	txErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:     map[string]models.User{},
		charities: map[string]models.Charity{},
		events:    map[string]models.Event{},
		bindings:  map[string][]models.CharityForEvent{},
		donations: map[string]models.Donation{},
		leads:     map[string]models.Lead{},
		surveys:   map[string]models.Survey{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.txErr != nil {
		return s.txErr
	}
	return fn(nil)
}

func (s *stubRepo) CreateUser(ctx context.Context, item *models.User) error {
	s.users[item.ID] = *item
	return nil
}

func (s *stubRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) CreateCharity(ctx context.Context, item *models.Charity) error {
	s.charities[item.ID] = *item
	return nil
}

func (s *stubRepo) UpdateCharity(ctx context.Context, item *models.Charity) error {
	existing, ok := s.charities[item.ID]
	if !ok {
		return nil
	}
	item.CreatedBy = existing.CreatedBy
	s.charities[item.ID] = *item
	return nil
}

func (s *stubRepo) GetCharityByID(ctx context.Context, id string) (*models.Charity, error) {
	c, ok := s.charities[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *stubRepo) GetCharityBySlug(ctx context.Context, slug string) (*models.Charity, error) {
	for _, c := range s.charities {
		if c.Slug == slug {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListCharities(ctx context.Context, params repository.ListCharitiesParams) ([]models.Charity, error) {
	var out []models.Charity
	for _, c := range s.charities {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubRepo) CountCharities(ctx context.Context, params repository.ListCharitiesParams) (int64, error) {
	return int64(len(s.charities)), nil
}

func (s *stubRepo) CreateEventTx(ctx context.Context, tx *gorm.DB, item *models.Event, charities []models.CharityForEvent) error {
	for i := range charities {
		charities[i].EventID = item.ID
	}
	s.events[item.ID] = *item
	s.bindings[item.ID] = charities
	return nil
}

func (s *stubRepo) UpdateEventTx(ctx context.Context, tx *gorm.DB, item *models.Event, charities []models.CharityForEvent) error {
	if _, ok := s.events[item.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range charities {
		charities[i].EventID = item.ID
	}
	s.events[item.ID] = *item
	s.bindings[item.ID] = charities
	return nil
}

func (s *stubRepo) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	e.Charities = s.bindings[id]
	return &e, nil
}

func (s *stubRepo) GetEventBySlug(ctx context.Context, slug string) (*models.Event, error) {
	for id, e := range s.events {
		if e.Slug == slug {
			e.Charities = s.bindings[id]
			return &e, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.Event, error) {
	var out []models.Event
	for _, e := range s.events {
		out = append(out, e)
	}
	return out, nil
}

func (s *stubRepo) CountEvents(ctx context.Context, params repository.ListEventsParams) (int64, error) {
	return int64(len(s.events)), nil
}

func (s *stubRepo) ListEventCharities(ctx context.Context, eventID string) ([]repository.EventCharity, error) {
	var out []repository.EventCharity
	for _, b := range s.bindings[eventID] {
		row := repository.EventCharity{CharityID: b.CharityID, Color: b.Color}
		if c, ok := s.charities[b.CharityID]; ok {
			row.Name = c.Name
			if c.LogoSVG != nil {
				row.LogoSVG = *c.LogoSVG
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *stubRepo) CreateDonationTx(ctx context.Context, tx *gorm.DB, donation *models.Donation, lead *models.Lead, survey *models.Survey) error {
	s.donations[donation.ID] = *donation
	if lead != nil {
		lead.DonationID = donation.ID
		s.leads[lead.ID] = *lead
	}
	if survey != nil {
		survey.DonationID = donation.ID
		s.surveys[survey.ID] = *survey
	}
	return nil
}

func (s *stubRepo) GetDonationByID(ctx context.Context, id string) (*models.Donation, error) {
	d, ok := s.donations[id]
	if !ok {
		return nil, nil
	}
	if e, ok := s.events[d.EventID]; ok {
		d.Event = &e
	}
	if c, ok := s.charities[d.CharityID]; ok {
		d.Charity = &c
	}
	return &d, nil
}

func (s *stubRepo) ListDonations(ctx context.Context, params repository.ListDonationsParams) ([]models.Donation, error) {
	var out []models.Donation
	for _, d := range s.donations {
		if params.EventID != nil && d.EventID != *params.EventID {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *stubRepo) CountDonations(ctx context.Context, params repository.ListDonationsParams) (int64, error) {
	items, _ := s.ListDonations(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) GroupedDonationCounts(ctx context.Context, eventID string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, d := range s.donations {
		if d.EventID == eventID {
			out[d.CharityID]++
		}
	}
	return out, nil
}

func (s *stubRepo) GetLeadByID(ctx context.Context, id string) (*models.Lead, error) {
	l, ok := s.leads[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (s *stubRepo) ListLeadsByEvent(ctx context.Context, eventID string, params repository.ListLeadsParams) ([]repository.LeadWithDonation, error) {
	var out []repository.LeadWithDonation
	for _, l := range s.leads {
		d, ok := s.donations[l.DonationID]
		if !ok || d.EventID != eventID {
			continue
		}
		if params.Score != nil && l.Score != *params.Score {
			continue
		}
		out = append(out, repository.LeadWithDonation{Lead: l, DonationCreatedAt: d.CreatedAt})
	}
	return out, nil
}

func (s *stubRepo) UpdateLeadScore(ctx context.Context, id string, score models.LeadScore, notes *string) (string, error) {
	l, ok := s.leads[id]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	l.Score = score
	if notes != nil {
		l.Notes = notes
	}
	s.leads[id] = l
	d := s.donations[l.DonationID]
	return d.EventID, nil
}

func (s *stubRepo) InsertChangeMessage(ctx context.Context, item *models.ChangeMessage) error {
	s.changes = append(s.changes, *item)
	return nil
}
