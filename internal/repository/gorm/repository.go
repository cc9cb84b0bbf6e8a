package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aydrian/tabnine-charity-activations/internal/models"
	"github.com/aydrian/tabnine-charity-activations/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Users -------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, item *models.User) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Charities ---------------------------------------------------------------

func (s *Store) CreateCharity(ctx context.Context, item *models.Charity) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateCharity(ctx context.Context, item *models.Charity) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Charity{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"name":        item.Name,
			"slug":        item.Slug,
			"description": item.Description,
			"logo_svg":    item.LogoSVG,
			"website":     item.Website,
			"twitter":     item.Twitter,
		}).Error
}

func (s *Store) GetCharityByID(ctx context.Context, id string) (*models.Charity, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Charity
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetCharityBySlug(ctx context.Context, slug string) (*models.Charity, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Charity
	err := s.db.WithContext(ctx).Where("slug = ?", strings.TrimSpace(slug)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListCharities(ctx context.Context, params repository.ListCharitiesParams) ([]models.Charity, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.charityQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "name")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Charity
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountCharities(ctx context.Context, params repository.ListCharitiesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.charityQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) charityQuery(ctx context.Context, params repository.ListCharitiesParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Charity{})
	if params.CreatedBy != nil && strings.TrimSpace(*params.CreatedBy) != "" {
		query = query.Where("created_by = ?", strings.TrimSpace(*params.CreatedBy))
	}
	if params.Name != nil && strings.TrimSpace(*params.Name) != "" {
		query = query.Where("name ILIKE ?", "%"+strings.TrimSpace(*params.Name)+"%")
	}
	return query
}

// --- Events ------------------------------------------------------------------

func (s *Store) CreateEventTx(ctx context.Context, tx *gorm.DB, item *models.Event, charities []models.CharityForEvent) error {
	if tx == nil || item == nil {
		return nil
	}
	if err := tx.WithContext(ctx).Omit("Charities").Create(item).Error; err != nil {
		return err
	}
	for i := range charities {
		charities[i].EventID = item.ID
	}
	return createInBatches(tx.WithContext(ctx), charities, 50)
}

func (s *Store) UpdateEventTx(ctx context.Context, tx *gorm.DB, item *models.Event, charities []models.CharityForEvent) error {
	if tx == nil || item == nil {
		return nil
	}
	res := tx.WithContext(ctx).Model(&models.Event{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"name":              item.Name,
			"slug":              item.Slug,
			"location":          item.Location,
			"donation_amount":   item.DonationAmount,
			"donation_currency": item.DonationCurrency,
			"start_date":        item.StartDate,
			"end_date":          item.EndDate,
			"collect_leads":     item.CollectLeads,
			"legal_blurb":       item.LegalBlurb,
			"response_template": item.ResponseTemplate,
			"tweet_template":    item.TweetTemplate,
			"twitter":           item.Twitter,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	keep := make([]string, 0, len(charities))
	for i := range charities {
		charities[i].EventID = item.ID
		keep = append(keep, charities[i].CharityID)
	}
	stale := tx.WithContext(ctx).Where("event_id = ?", item.ID)
	if len(keep) > 0 {
		stale = stale.Where("charity_id NOT IN ?", keep)
	}
	if err := stale.Delete(&models.CharityForEvent{}).Error; err != nil {
		return err
	}
	if len(charities) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "charity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"color"}),
	}).Create(charities).Error
}

func (s *Store) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	return s.getEvent(ctx, "id = ?", id)
}

func (s *Store) GetEventBySlug(ctx context.Context, slug string) (*models.Event, error) {
	return s.getEvent(ctx, "slug = ?", strings.TrimSpace(slug))
}

func (s *Store) getEvent(ctx context.Context, cond string, arg any) (*models.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Event
	err := s.db.WithContext(ctx).
		Preload("Charities").
		Preload("Charities.Charity").
		Where(cond, arg).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.eventQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "start_date")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Event
	if err := query.Preload("Charities").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountEvents(ctx context.Context, params repository.ListEventsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.eventQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) eventQuery(ctx context.Context, params repository.ListEventsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Event{})
	if params.CreatedBy != nil && strings.TrimSpace(*params.CreatedBy) != "" {
		query = query.Where("created_by = ?", strings.TrimSpace(*params.CreatedBy))
	}
	if params.Active != nil {
		if *params.Active {
			query = query.Where("start_date <= now() AND end_date >= now()")
		} else {
			query = query.Where("end_date < now() OR start_date > now()")
		}
	}
	return query
}

func (s *Store) ListEventCharities(ctx context.Context, eventID string) ([]repository.EventCharity, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []repository.EventCharity
	err := s.db.WithContext(ctx).
		Table("charities_for_events AS cfe").
		Select("cfe.charity_id AS charity_id, c.name AS name, cfe.color AS color, COALESCE(c.logo_svg, '') AS logo_svg").
		Joins("JOIN charities AS c ON c.id = cfe.charity_id").
		Where("cfe.event_id = ?", eventID).
		Order("c.name asc").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Donations ---------------------------------------------------------------

func (s *Store) CreateDonationTx(ctx context.Context, tx *gorm.DB, donation *models.Donation, lead *models.Lead, survey *models.Survey) error {
	if tx == nil || donation == nil {
		return nil
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(donation).Error; err != nil {
		return err
	}
	if lead != nil {
		lead.DonationID = donation.ID
		if err := tx.WithContext(ctx).Create(lead).Error; err != nil {
			return err
		}
	}
	if survey != nil {
		survey.DonationID = donation.ID
		if err := tx.WithContext(ctx).Create(survey).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetDonationByID(ctx context.Context, id string) (*models.Donation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Donation
	err := s.db.WithContext(ctx).
		Preload("Event").
		Preload("Charity").
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListDonations(ctx context.Context, params repository.ListDonationsParams) ([]models.Donation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.donationQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Donation
	if err := query.Preload("Charity").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountDonations(ctx context.Context, params repository.ListDonationsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.donationQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) donationQuery(ctx context.Context, params repository.ListDonationsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Donation{})
	if params.EventID != nil && strings.TrimSpace(*params.EventID) != "" {
		query = query.Where("event_id = ?", strings.TrimSpace(*params.EventID))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

func (s *Store) GroupedDonationCounts(ctx context.Context, eventID string) (map[string]int64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	type groupedRow struct {
		CharityID string
		Count     int64
	}
	var rows []groupedRow
	err := s.db.WithContext(ctx).
		Model(&models.Donation{}).
		Select("charity_id, count(*) AS count").
		Where("event_id = ?", eventID).
		Group("charity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.CharityID] = row.Count
	}
	return out, nil
}

// --- Leads -------------------------------------------------------------------

func (s *Store) GetLeadByID(ctx context.Context, id string) (*models.Lead, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Lead
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListLeadsByEvent(ctx context.Context, eventID string, params repository.ListLeadsParams) ([]repository.LeadWithDonation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Table("leads AS l").
		Select("l.*, d.created_at AS donation_created_at, c.name AS charity_name").
		Joins("JOIN donations AS d ON d.id = l.donation_id").
		Joins("JOIN charities AS c ON c.id = d.charity_id").
		Where("d.event_id = ?", eventID)
	if params.Score != nil && *params.Score != "" {
		query = query.Where("l.score = ?", string(*params.Score))
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []repository.LeadWithDonation
	if err := query.Order("d.created_at desc").Limit(limit).Offset(offset).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateLeadScore(ctx context.Context, id string, score models.LeadScore, notes *string) (string, error) {
	if s == nil || s.db == nil {
		return "", nil
	}
	updates := map[string]any{"score": string(score)}
	if notes != nil {
		updates["notes"] = *notes
	}
	res := s.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", gorm.ErrRecordNotFound
	}
	var eventID string
	err := s.db.WithContext(ctx).
		Table("donations AS d").
		Select("d.event_id").
		Joins("JOIN leads AS l ON l.donation_id = d.id").
		Where("l.id = ?", id).
		Scan(&eventID).Error
	if err != nil {
		return "", err
	}
	return eventID, nil
}

// --- Change feed audit -------------------------------------------------------

func (s *Store) InsertChangeMessage(ctx context.Context, item *models.ChangeMessage) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

// --- helpers -----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[i:end]
		if err := db.Create(&chunk).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
