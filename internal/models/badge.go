package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type ParticipantType string

const (
	ParticipantAttendee     ParticipantType = "attendee"
	ParticipantExhibitor    ParticipantType = "exhibitor"
	ParticipantSpeaker      ParticipantType = "speaker"
	ParticipantVolunteer    ParticipantType = "volunteer"
	ParticipantTeam         ParticipantType = "team"
	ParticipantSpecialGuest ParticipantType = "special_guest"
	ParticipantOther        ParticipantType = "other"
)

var participantTypes = []ParticipantType{
	ParticipantAttendee,
	ParticipantExhibitor,
	ParticipantSpeaker,
	ParticipantVolunteer,
	ParticipantTeam,
	ParticipantSpecialGuest,
	ParticipantOther,
}

// Valid reports whether p is one of the known participant types.
func (p ParticipantType) Valid() bool {
	for _, t := range participantTypes {
		if p == t {
			return true
		}
	}
	return false
}

// Label is the upper-case role text printed on a badge.
func (p ParticipantType) Label(customRole string) string {
	switch {
	case p == ParticipantOther && customRole != "":
		return strings.ToUpper(customRole)
	case p == ParticipantSpecialGuest:
		return "SPECIAL GUEST"
	default:
		return strings.ToUpper(string(p))
	}
}

// ParseParticipantType normalizes s and validates it.
func ParseParticipantType(s string) (ParticipantType, error) {
	p := ParticipantType(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidParticipantType, s)
	}
	return p, nil
}

// Badge design tags. They only select a colour scheme.
const (
	DesignStandard  = "standard"
	DesignSpeaker   = "speaker"
	DesignExhibitor = "exhibitor"
	DesignVolunteer = "volunteer"
	DesignTeam      = "team"
	DesignVIP       = "vip"
)

// DesignFor returns the badge design tag for a participant type.
func DesignFor(p ParticipantType) string {
	switch p {
	case ParticipantSpeaker:
		return DesignSpeaker
	case ParticipantExhibitor:
		return DesignExhibitor
	case ParticipantVolunteer:
		return DesignVolunteer
	case ParticipantTeam:
		return DesignTeam
	case ParticipantSpecialGuest:
		return DesignVIP
	default:
		return DesignStandard
	}
}

// Badge is an issued event credential. Name, email, company and job title are
// copied from the participant at issuance and are never resynchronized.
type Badge struct {
	bun.BaseModel `bun:"table:badges"`

	BadgeID         string          `bun:"badge_id,pk" json:"badge_id"`
	ParticipantType ParticipantType `bun:"participant_type,notnull" json:"participant_type"`
	CustomRole      string          `bun:"custom_role,nullzero" json:"custom_role,omitempty"`
	ParticipantID   string          `bun:"participant_id,notnull" json:"participant_id"`
	Name            string          `bun:"name,notnull" json:"name"`
	Email           string          `bun:"email,notnull" json:"email"`
	Company         string          `bun:"company,nullzero" json:"company,omitempty"`
	JobTitle        string          `bun:"job_title,nullzero" json:"job_title,omitempty"`
	BadgeDesign     string          `bun:"badge_design,notnull" json:"badge_design"`
	QRCodeData      string          `bun:"qr_code_data,notnull" json:"qr_code_data"`
	IsActive        bool            `bun:"is_active,notnull" json:"is_active"`
	PrintedAt       *time.Time      `bun:"printed_at" json:"printed_at"`
	IssuedAt        time.Time       `bun:"issued_at,notnull" json:"issued_at"`
	CreatedAt       time.Time       `bun:"created_at,notnull" json:"created_at"`
}

// EventInfo describes the event printed on badges. It is injected from
// configuration so one binary can serve any event.
type EventInfo struct {
	Name  string `json:"event_name"`
	Date  string `json:"event_date"`
	Venue string `json:"venue"`
}
