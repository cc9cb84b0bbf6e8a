package service

import (
	"context"
	"fmt"

	"github.com/aydrian/tabnine-charity-activations/internal/repository"
	"github.com/aydrian/tabnine-charity-activations/internal/stream"
)

// TallyService recomputes an event's full per-charity donation tally from the
// donations table. Every recompute reads the whole aggregate, so a published
// update always supersedes the one before it regardless of which insert
// triggered it.
type TallyService struct {
	Repo repository.Repository
}

// Update builds the broadcast payload for one event. charityID marks the
// charity that just received a donation and may be empty for snapshots sent
// on subscribe or by the reconcile job.
func (s *TallyService) Update(ctx context.Context, eventID, charityID string) (stream.Update, error) {
	if s == nil || s.Repo == nil {
		return stream.Update{}, fmt.Errorf("tally service not configured")
	}
	charities, err := s.Repo.ListEventCharities(ctx, eventID)
	if err != nil {
		return stream.Update{}, fmt.Errorf("list event charities: %w", err)
	}
	counts, err := s.Repo.GroupedDonationCounts(ctx, eventID)
	if err != nil {
		return stream.Update{}, fmt.Errorf("grouped donation counts: %w", err)
	}
	out := stream.Update{
		CharityID: charityID,
		Charities: make([]stream.CharityCount, 0, len(charities)),
	}
	for _, c := range charities {
		out.Charities = append(out.Charities, stream.CharityCount{
			CharityID: c.CharityID,
			Name:      c.Name,
			Color:     c.Color,
			LogoSVG:   c.LogoSVG,
			Count:     counts[c.CharityID],
		})
	}
	return out, nil
}
