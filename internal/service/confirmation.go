package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aymerick/raymond"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/aydrian/tabnine-charity-activations/internal/repository"
)

var ErrDonationNotFound = errors.New("donation not found")

// Confirmation is the rendered thank-you page for one donation.
type Confirmation struct {
	DonationID   string `json:"donationId"`
	EventName    string `json:"eventName"`
	CharityName  string `json:"charityName"`
	ResponseHTML string `json:"responseHtml"`
	TweetText    string `json:"tweetText"`
	TweetURL     string `json:"tweetUrl"`
}

// ConfirmationService renders an event's handlebars response template to
// markdown, converts it to HTML, and builds the share-to-twitter text with
// handle fallbacks.
type ConfirmationService struct {
	Repo repository.Repository
}

func (s *ConfirmationService) Render(ctx context.Context, donationID string) (*Confirmation, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("confirmation service not configured")
	}
	donation, err := s.Repo.GetDonationByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("load donation: %w", err)
	}
	if donation == nil || donation.Event == nil || donation.Charity == nil {
		return nil, ErrDonationNotFound
	}
	event := donation.Event
	charity := donation.Charity
	amount := formatAmount(event.DonationAmount, event.DonationCurrency)

	responseMd, err := raymond.Render(event.ResponseTemplate, map[string]any{
		"charity": map[string]any{
			"name": charity.Name,
			"url":  strVal(charity.Website),
		},
		"donationAmount": amount,
		"event":          map[string]any{"name": event.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("render response template: %w", err)
	}
	responseHTML, err := markdownToHTML(strings.TrimSpace(responseMd))
	if err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	tweetText, err := raymond.Render(event.TweetTemplate, map[string]any{
		"charity":        handleOrName(charity.Twitter, charity.Name),
		"donationAmount": amount,
		"event":          handleOrName(event.Twitter, event.Name),
	})
	if err != nil {
		return nil, fmt.Errorf("render tweet template: %w", err)
	}
	tweetText = strings.TrimSpace(tweetText)

	return &Confirmation{
		DonationID:   donation.ID,
		EventName:    event.Name,
		CharityName:  charity.Name,
		ResponseHTML: responseHTML,
		TweetText:    tweetText,
		TweetURL:     "https://twitter.com/intent/tweet?text=" + url.QueryEscape(tweetText),
	}, nil
}

func markdownToHTML(md string) (string, error) {
	converter := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := converter.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// handleOrName prefers the @handle when an account is set, matching how the
// tweet templates are written.
func handleOrName(twitter *string, name string) string {
	if twitter != nil && strings.TrimSpace(*twitter) != "" {
		return "@" + strings.TrimPrefix(strings.TrimSpace(*twitter), "@")
	}
	return name
}

func formatAmount(amount decimal.Decimal, currency string) string {
	symbol := "$"
	switch strings.ToLower(currency) {
	case "eur":
		symbol = "€"
	case "gbp":
		symbol = "£"
	}
	if amount.IsInteger() {
		return symbol + amount.StringFixed(0)
	}
	return symbol + amount.StringFixed(2)
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
