package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/aydrian/tabnine-charity-activations/internal/repository"
	"github.com/aydrian/tabnine-charity-activations/internal/stream"
)

var ErrEventNotFoundBySlug = errors.New("event not found")

// Dashboard is the projector view for one event: identity, the donate link
// with its QR code, and the current tally.
type Dashboard struct {
	EventID        string                `json:"eventId"`
	Name           string                `json:"name"`
	Slug           string                `json:"slug"`
	Location       string                `json:"location"`
	DonationAmount string                `json:"donationAmount"`
	DonateLink     string                `json:"donateLink"`
	QRCode         string                `json:"qrCode"`
	Charities      []stream.CharityCount `json:"charities"`
	TotalCount     int64                 `json:"totalCount"`
	TotalDonated   string                `json:"totalDonated"`
}

// DonateForm is what the attendee form needs to render: the event, whether
// to show contact fields, and the charity choices with their colors.
type DonateForm struct {
	EventID        string                   `json:"eventId"`
	Name           string                   `json:"name"`
	DonationAmount string                   `json:"donationAmount"`
	CollectLeads   bool                     `json:"collectLeads"`
	LegalBlurb     string                   `json:"legalBlurb,omitempty"`
	Charities      []repository.EventCharity `json:"charities"`
}

type DashboardService struct {
	Repo       repository.Repository
	Tally      *TallyService
	BaseURL    string
	QRCodeSize int
}

func (s *DashboardService) BySlug(ctx context.Context, slug string) (*Dashboard, error) {
	if s == nil || s.Repo == nil || s.Tally == nil {
		return nil, fmt.Errorf("dashboard service not configured")
	}
	event, err := s.Repo.GetEventBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFoundBySlug
	}

	update, err := s.Tally.Update(ctx, event.ID, "")
	if err != nil {
		return nil, err
	}
	var total int64
	for _, c := range update.Charities {
		total += c.Count
	}
	donated := event.DonationAmount.Mul(decimal.NewFromInt(total))

	link := s.DonateLink(event.ID)
	qr, err := qrDataURL(link, s.QRCodeSize)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}

	return &Dashboard{
		EventID:        event.ID,
		Name:           event.Name,
		Slug:           event.Slug,
		Location:       event.Location,
		DonationAmount: formatAmount(event.DonationAmount, event.DonationCurrency),
		DonateLink:     link,
		QRCode:         qr,
		Charities:      update.Charities,
		TotalCount:     total,
		TotalDonated:   formatAmount(donated, event.DonationCurrency),
	}, nil
}

func (s *DashboardService) DonateForm(ctx context.Context, eventID string) (*DonateForm, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("dashboard service not configured")
	}
	event, err := s.Repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	charities, err := s.Repo.ListEventCharities(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("list event charities: %w", err)
	}
	return &DonateForm{
		EventID:        event.ID,
		Name:           event.Name,
		DonationAmount: formatAmount(event.DonationAmount, event.DonationCurrency),
		CollectLeads:   event.CollectLeads,
		LegalBlurb:     strVal(event.LegalBlurb),
		Charities:      charities,
	}, nil
}

func (s *DashboardService) DonateLink(eventID string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/donate/" + eventID
}

func qrDataURL(link string, size int) (string, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
