package analytics

import (
	"context"

	"ms-badging/internal/models"
)

type Source interface {
	AllBadges(ctx context.Context) ([]models.Badge, error)
	AllCheckIns(ctx context.Context) ([]models.CheckInEvent, error)
}

// Service computes attendance statistics. Figures are recomputed on every
// call; nothing is cached.
type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

func (s *Service) GetAttendeeStats(ctx context.Context) (models.AttendeeStats, error) {
	badges, err := s.source.AllBadges(ctx)
	if err != nil {
		return models.AttendeeStats{}, err
	}
	events, err := s.source.AllCheckIns(ctx)
	if err != nil {
		return models.AttendeeStats{}, err
	}
	return Aggregate(badges, events), nil
}
