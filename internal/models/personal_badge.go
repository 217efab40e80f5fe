package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PersonalBadge is a member's reusable badge. Its QR code carries the QR
// handle, not a participant id.
type PersonalBadge struct {
	bun.BaseModel `bun:"table:personal_badges"`

	BadgeID        string    `bun:"badge_id,pk" json:"badge_id"`
	QRHandle       string    `bun:"qr_handle,unique,notnull" json:"qr_handle"`
	UserID         string    `bun:"user_id,notnull" json:"user_id"`
	Name           string    `bun:"name,notnull" json:"name"`
	Email          string    `bun:"email,notnull" json:"email"`
	Company        string    `bun:"company,nullzero" json:"company,omitempty"`
	JobTitle       string    `bun:"job_title,nullzero" json:"job_title,omitempty"`
	Title          string    `bun:"title,nullzero" json:"title,omitempty"`
	Phone          string    `bun:"phone,nullzero" json:"phone,omitempty"`
	MembershipTier string    `bun:"membership_tier,nullzero" json:"membership_tier,omitempty"`
	IsActive       bool      `bun:"is_active,notnull" json:"is_active"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
