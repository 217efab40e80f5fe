package analytics

import (
	"context"
	"fmt"

	"ms-badging/internal/models"

	"github.com/uptrace/bun"
)

// DB reads the badge tables for reporting.
type DB struct {
	bun *bun.DB
}

func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

func (db *DB) AllBadges(ctx context.Context) ([]models.Badge, error) {
	badges := []models.Badge{}
	if err := db.bun.NewSelect().Model(&badges).Scan(ctx); err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}
	return badges, nil
}

func (db *DB) AllCheckIns(ctx context.Context) ([]models.CheckInEvent, error) {
	events := []models.CheckInEvent{}
	err := db.bun.NewSelect().
		Model(&events).
		Column("badge_id", "sequence", "check_in_type", "check_in_location").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load check-ins: %w", err)
	}
	return events, nil
}
