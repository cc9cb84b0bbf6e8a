package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/aydrian/tabnine-charity-activations/internal/models"
)

// Repository is the persistence surface for the activation domain. Donations
// are insert-only: there are intentionally no update or delete operations for
// them.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Users
	CreateUser(ctx context.Context, item *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Charities
	CreateCharity(ctx context.Context, item *models.Charity) error
	UpdateCharity(ctx context.Context, item *models.Charity) error
	GetCharityByID(ctx context.Context, id string) (*models.Charity, error)
	GetCharityBySlug(ctx context.Context, slug string) (*models.Charity, error)
	ListCharities(ctx context.Context, params ListCharitiesParams) ([]models.Charity, error)
	CountCharities(ctx context.Context, params ListCharitiesParams) (int64, error)

	// Events
	CreateEventTx(ctx context.Context, tx *gorm.DB, item *models.Event, charities []models.CharityForEvent) error
	UpdateEventTx(ctx context.Context, tx *gorm.DB, item *models.Event, charities []models.CharityForEvent) error
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*models.Event, error)
	ListEvents(ctx context.Context, params ListEventsParams) ([]models.Event, error)
	CountEvents(ctx context.Context, params ListEventsParams) (int64, error)

	// Event charity metadata for dashboards: id, name, color, logo per
	// charity bound to the event, in join order.
	ListEventCharities(ctx context.Context, eventID string) ([]EventCharity, error)

	// Donations
	CreateDonationTx(ctx context.Context, tx *gorm.DB, donation *models.Donation, lead *models.Lead, survey *models.Survey) error
	GetDonationByID(ctx context.Context, id string) (*models.Donation, error)
	ListDonations(ctx context.Context, params ListDonationsParams) ([]models.Donation, error)
	CountDonations(ctx context.Context, params ListDonationsParams) (int64, error)

	// GroupedDonationCounts returns charity id -> donation count for one
	// event, recomputed from the donations table.
	GroupedDonationCounts(ctx context.Context, eventID string) (map[string]int64, error)

	// Leads
	GetLeadByID(ctx context.Context, id string) (*models.Lead, error)
	ListLeadsByEvent(ctx context.Context, eventID string, params ListLeadsParams) ([]LeadWithDonation, error)
	UpdateLeadScore(ctx context.Context, id string, score models.LeadScore, notes *string) (eventID string, err error)

	// Change feed audit
	InsertChangeMessage(ctx context.Context, item *models.ChangeMessage) error
}

// EventCharity is one row of the dashboard metadata join.
type EventCharity struct {
	CharityID string `json:"charity_id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	LogoSVG   string `json:"logoSVG"`
}

type LeadWithDonation struct {
	models.Lead
	DonationCreatedAt time.Time `json:"donationCreatedAt"`
	CharityName       string    `json:"charityName"`
}

type ListCharitiesParams struct {
	Limit     int
	Offset    int
	CreatedBy *string
	Name      *string
	OrderBy   string
	Asc       *bool
}

type ListEventsParams struct {
	Limit     int
	Offset    int
	CreatedBy *string
	Active    *bool
	OrderBy   string
	Asc       *bool
}

type ListDonationsParams struct {
	Limit   int
	Offset  int
	EventID *string
	Since   *time.Time
	OrderBy string
	Asc     *bool
}

type ListLeadsParams struct {
	Limit  int
	Offset int
	Score  *models.LeadScore
}
