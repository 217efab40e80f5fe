package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-badging/internal/logger"
	"ms-badging/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
	// Logger records failed writes. Nil is allowed.
	Logger *logger.Logger
}

// BadgeFilter narrows ListBadges. Zero fields match everything.
type BadgeFilter struct {
	Type  models.ParticipantType
	Email string
}

// CreateSchema creates the badge tables when they are missing. Production
// Postgres deployments use the SQL migrations instead.
func (d *DB) CreateSchema(ctx context.Context) error {
	for _, model := range []interface{}{
		(*models.Badge)(nil),
		(*models.CheckInEvent)(nil),
		(*models.PersonalBadge)(nil),
	} {
		if _, err := d.Bun.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

func (d *DB) CreateBadge(ctx context.Context, badge *models.Badge) error {
	if _, err := d.Bun.NewInsert().Model(badge).Exec(ctx); err != nil {
		d.Logger.LogDatabase("INSERT", "badges", fmt.Sprintf("badge %s: %v", badge.BadgeID, err))
		return fmt.Errorf("insert badge %s: %w", badge.BadgeID, err)
	}
	return nil
}

func (d *DB) GetBadgeByID(ctx context.Context, badgeID string) (*models.Badge, error) {
	var badge models.Badge
	err := d.Bun.NewSelect().
		Model(&badge).
		Where("badge_id = ?", badgeID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrBadgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select badge %s: %w", badgeID, err)
	}
	return &badge, nil
}

// GetBadgeByParticipant resolves an event-badge scan payload. When a
// participant has been issued more than one badge the newest wins.
func (d *DB) GetBadgeByParticipant(ctx context.Context, participantID string) (*models.Badge, error) {
	var badge models.Badge
	err := d.Bun.NewSelect().
		Model(&badge).
		Where("participant_id = ?", participantID).
		OrderExpr("issued_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrBadgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select badge for participant %s: %w", participantID, err)
	}
	return &badge, nil
}

// DeactivateBadge clears is_active. No other column is written, so a
// concurrent print cannot be undone by it.
func (d *DB) DeactivateBadge(ctx context.Context, badgeID string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Badge)(nil)).
		Set("is_active = ?", false).
		Where("badge_id = ?", badgeID).
		Exec(ctx)
	return d.checkBadgeUpdate(res, err, "deactivate", badgeID)
}

// SetPrintedAt overwrites printed_at and nothing else.
func (d *DB) SetPrintedAt(ctx context.Context, badgeID string, at time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Badge)(nil)).
		Set("printed_at = ?", at).
		Where("badge_id = ?", badgeID).
		Exec(ctx)
	return d.checkBadgeUpdate(res, err, "set printed_at", badgeID)
}

func (d *DB) checkBadgeUpdate(res sql.Result, err error, op, badgeID string) error {
	if err != nil {
		d.Logger.LogDatabase("UPDATE", "badges", fmt.Sprintf("%s %s: %v", op, badgeID, err))
		return fmt.Errorf("%s badge %s: %w", op, badgeID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrBadgeNotFound
	}
	return nil
}

func (d *DB) ListBadges(ctx context.Context, filter BadgeFilter) ([]models.Badge, error) {
	badges := []models.Badge{}
	q := d.Bun.NewSelect().Model(&badges)
	if filter.Type != "" {
		q = q.Where("participant_type = ?", filter.Type)
	}
	if filter.Email != "" {
		q = q.Where("LOWER(email) = ?", strings.ToLower(filter.Email))
	}
	if err := q.OrderExpr("issued_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	return badges, nil
}

// AppendCheckIn inserts one event. It returns models.ErrCheckInConflict when
// another writer already holds the same (badge_id, sequence).
func (d *DB) AppendCheckIn(ctx context.Context, event *models.CheckInEvent) error {
	if _, err := d.Bun.NewInsert().Model(event).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return models.ErrCheckInConflict
		}
		d.Logger.LogDatabase("INSERT", "badge_check_ins", fmt.Sprintf("badge %s seq %d: %v", event.BadgeID, event.Sequence, err))
		return fmt.Errorf("insert check-in for %s: %w", event.BadgeID, err)
	}
	return nil
}

// ListCheckIns returns a badge's log in sequence order.
func (d *DB) ListCheckIns(ctx context.Context, badgeID string) ([]models.CheckInEvent, error) {
	events := []models.CheckInEvent{}
	err := d.Bun.NewSelect().
		Model(&events).
		Where("badge_id = ?", badgeID).
		OrderExpr("sequence ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list check-ins for %s: %w", badgeID, err)
	}
	return events, nil
}

func (d *DB) ListAllCheckIns(ctx context.Context) ([]models.CheckInEvent, error) {
	events := []models.CheckInEvent{}
	err := d.Bun.NewSelect().
		Model(&events).
		OrderExpr("badge_id ASC, sequence ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	return events, nil
}

func (d *DB) CreatePersonalBadge(ctx context.Context, badge *models.PersonalBadge) error {
	if _, err := d.Bun.NewInsert().Model(badge).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return models.ErrQRHandleTaken
		}
		d.Logger.LogDatabase("INSERT", "personal_badges", fmt.Sprintf("badge %s: %v", badge.BadgeID, err))
		return fmt.Errorf("insert personal badge %s: %w", badge.BadgeID, err)
	}
	return nil
}

func (d *DB) GetPersonalBadgeByHandle(ctx context.Context, handle string) (*models.PersonalBadge, error) {
	var badge models.PersonalBadge
	err := d.Bun.NewSelect().
		Model(&badge).
		Where("qr_handle = ?", handle).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrPersonalBadgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select personal badge %s: %w", handle, err)
	}
	return &badge, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
