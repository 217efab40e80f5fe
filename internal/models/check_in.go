package models

import (
	"time"

	"github.com/uptrace/bun"
)

type CheckInType string

const (
	CheckIn  CheckInType = "check_in"
	CheckOut CheckInType = "check_out"
)

func (t CheckInType) Valid() bool {
	return t == CheckIn || t == CheckOut
}

const (
	DefaultCheckInLocation = "main_entrance"
	CheckInMethodQRScan    = "qr_scan"
	DefaultStaffMember     = "System"
)

// CheckInEvent is one entry in a badge's append-only presence log.
// Sequence is the 1-based position in that badge's log; (badge_id, sequence)
// is unique so two writers can never append the same position.
type CheckInEvent struct {
	bun.BaseModel `bun:"table:badge_check_ins"`

	ID              int64       `bun:"id,pk,autoincrement" json:"id"`
	BadgeID         string      `bun:"badge_id,notnull,unique:badge_sequence" json:"badge_id"`
	Sequence        int         `bun:"sequence,notnull,unique:badge_sequence" json:"sequence"`
	CheckInType     CheckInType `bun:"check_in_type,notnull" json:"check_in_type"`
	CheckInTime     time.Time   `bun:"check_in_time,notnull" json:"check_in_time"`
	CheckInLocation string      `bun:"check_in_location,notnull" json:"check_in_location"`
	CheckInMethod   string      `bun:"check_in_method,notnull" json:"check_in_method"`
	StaffMember     string      `bun:"staff_member,nullzero" json:"staff_member,omitempty"`
	Notes           string      `bun:"notes,nullzero" json:"notes,omitempty"`
}

// RejectReason classifies a check-in outcome for clients that need more than
// the display message.
type RejectReason string

const (
	ReasonNone             RejectReason = ""
	ReasonNotFound         RejectReason = "not_found"
	ReasonDeactivated      RejectReason = "deactivated"
	ReasonAlreadyCheckedIn RejectReason = "already_checked_in"
	ReasonNotCheckedIn     RejectReason = "not_checked_in"
	ReasonInvalidType      RejectReason = "invalid_type"
	ReasonInternal         RejectReason = "internal"
)

// CheckInResult is the outcome of a scan. Message is written for the person
// at the scan station and can be shown as-is.
type CheckInResult struct {
	Success        bool         `json:"success"`
	Badge          *Badge       `json:"badge,omitempty"`
	CheckInType    CheckInType  `json:"check_in_type"`
	Message        string       `json:"message"`
	IsFirstCheckIn bool         `json:"is_first_check_in"`
	Reason         RejectReason `json:"reason,omitempty"`
}

// CheckInNotice is pushed to live dashboards after an accepted scan.
type CheckInNotice struct {
	BadgeID         string          `json:"badge_id"`
	Name            string          `json:"name"`
	ParticipantType ParticipantType `json:"participant_type"`
	CheckInType     CheckInType     `json:"check_in_type"`
	Location        string          `json:"location"`
	At              time.Time       `json:"at"`
}
