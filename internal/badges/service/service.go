package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-badging/internal/badges/db"
	"ms-badging/internal/badges/qr"
	"ms-badging/internal/badges/template"
	"ms-badging/internal/logger"
	"ms-badging/internal/models"
	"ms-badging/internal/utils"
)

type BadgeDBLayer interface {
	CreateBadge(ctx context.Context, badge *models.Badge) error
	GetBadgeByID(ctx context.Context, badgeID string) (*models.Badge, error)
	GetBadgeByParticipant(ctx context.Context, participantID string) (*models.Badge, error)
	DeactivateBadge(ctx context.Context, badgeID string) error
	SetPrintedAt(ctx context.Context, badgeID string, at time.Time) error
	ListBadges(ctx context.Context, filter db.BadgeFilter) ([]models.Badge, error)
	AppendCheckIn(ctx context.Context, event *models.CheckInEvent) error
	ListCheckIns(ctx context.Context, badgeID string) ([]models.CheckInEvent, error)
	CreatePersonalBadge(ctx context.Context, badge *models.PersonalBadge) error
	GetPersonalBadgeByHandle(ctx context.Context, handle string) (*models.PersonalBadge, error)
}

// Locker serializes work on one key. The returned func releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// EventPublisher fans badge lifecycle events out to other services.
type EventPublisher interface {
	PublishBadgeIssued(ctx context.Context, badge models.Badge) error
	PublishCheckIn(ctx context.Context, badge models.Badge, event models.CheckInEvent) error
	PublishBadgeDeactivated(ctx context.Context, badge models.Badge, reason string) error
}

// CheckInNotifier receives every accepted scan, e.g. for live dashboards.
type CheckInNotifier interface {
	NotifyCheckIn(notice models.CheckInNotice)
}

type Config struct {
	IDPrefix        string
	TeamCompany     string
	DefaultLocation string
	QRSize          int
	FontPath        string
	MaxAttempts     int
	Event           models.EventInfo
}

const (
	DefaultTeamCompany = "CBA Team"
	defaultMaxAttempts = 3
)

type BadgeService struct {
	DB        BadgeDBLayer
	Locker    Locker
	Publisher EventPublisher
	Notifier  CheckInNotifier
	Logger    *logger.Logger

	QR       *qr.QRGenerator
	Renderer *template.BadgeRenderer
	PDF      *template.BadgePDFGenerator

	cfg Config
	now func() time.Time
}

func NewBadgeService(repo BadgeDBLayer, locker Locker, cfg Config, log *logger.Logger) *BadgeService {
	if cfg.TeamCompany == "" {
		cfg.TeamCompany = DefaultTeamCompany
	}
	if cfg.DefaultLocation == "" {
		cfg.DefaultLocation = models.DefaultCheckInLocation
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if locker == nil {
		locker = NewKeyedMutex()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &BadgeService{
		DB:       repo,
		Locker:   locker,
		Logger:   log,
		QR:       qr.NewQRGenerator(cfg.QRSize),
		Renderer: template.NewBadgeRenderer(cfg.Event),
		PDF:      template.NewBadgePDFGenerator(cfg.FontPath, cfg.Event),
		cfg:      cfg,
		now:      time.Now,
	}
}

// IssueRequest carries the participant snapshot copied onto a new badge.
type IssueRequest struct {
	ParticipantType models.ParticipantType
	ParticipantID   string
	Name            string
	Email           string
	Company         string
	JobTitle        string
	CustomRole      string
}

func (r IssueRequest) validate() error {
	if !r.ParticipantType.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidParticipantType, r.ParticipantType)
	}
	var missing []string
	if strings.TrimSpace(r.ParticipantID) == "" {
		missing = append(missing, "participant_id")
	}
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", models.ErrInvalidBadgeRequest, strings.Join(missing, ", "))
	}
	return nil
}

// IssueBadge creates and persists a badge. Nothing is stored when the QR
// payload cannot be encoded.
func (s *BadgeService) IssueBadge(ctx context.Context, req IssueRequest) (*models.Badge, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	payload := qr.EventBadgePayload(strings.TrimSpace(req.ParticipantID))
	if _, err := s.QR.Encode(payload); err != nil {
		return nil, fmt.Errorf("failed to generate QR for participant %s: %w", req.ParticipantID, err)
	}

	now := s.now()
	badge := &models.Badge{
		BadgeID:         utils.GenerateBadgeID(s.cfg.IDPrefix),
		ParticipantType: req.ParticipantType,
		ParticipantID:   payload,
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.TrimSpace(req.Email),
		Company:         strings.TrimSpace(req.Company),
		JobTitle:        strings.TrimSpace(req.JobTitle),
		BadgeDesign:     models.DesignFor(req.ParticipantType),
		QRCodeData:      payload,
		IsActive:        true,
		IssuedAt:        now,
		CreatedAt:       now,
	}
	if req.ParticipantType == models.ParticipantOther {
		badge.CustomRole = strings.TrimSpace(req.CustomRole)
	}

	if err := s.DB.CreateBadge(ctx, badge); err != nil {
		s.Logger.Error("BADGE", fmt.Sprintf("Failed to persist badge for participant %s: %v", req.ParticipantID, err))
		return nil, err
	}
	s.Logger.LogBadge("ISSUE", badge.BadgeID, fmt.Sprintf("%s badge issued to %s", badge.ParticipantType, badge.Name))

	if s.Publisher != nil {
		if err := s.Publisher.PublishBadgeIssued(ctx, *badge); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish issuance of %s: %v", badge.BadgeID, err))
		}
	}
	return badge, nil
}

func (s *BadgeService) CreateAttendeeBadge(ctx context.Context, participantID, name, email, company, jobTitle string) (*models.Badge, error) {
	return s.IssueBadge(ctx, IssueRequest{
		ParticipantType: models.ParticipantAttendee,
		ParticipantID:   participantID,
		Name:            name,
		Email:           email,
		Company:         company,
		JobTitle:        jobTitle,
	})
}

func (s *BadgeService) CreateExhibitorBadge(ctx context.Context, participantID, name, email, company, jobTitle string) (*models.Badge, error) {
	return s.IssueBadge(ctx, IssueRequest{
		ParticipantType: models.ParticipantExhibitor,
		ParticipantID:   participantID,
		Name:            name,
		Email:           email,
		Company:         company,
		JobTitle:        jobTitle,
	})
}

func (s *BadgeService) CreateSpeakerBadge(ctx context.Context, participantID, name, email, company, jobTitle string) (*models.Badge, error) {
	return s.IssueBadge(ctx, IssueRequest{
		ParticipantType: models.ParticipantSpeaker,
		ParticipantID:   participantID,
		Name:            name,
		Email:           email,
		Company:         company,
		JobTitle:        jobTitle,
	})
}

// CreateVolunteerBadge prints the volunteer's role where a job title would go.
func (s *BadgeService) CreateVolunteerBadge(ctx context.Context, participantID, name, email, role string) (*models.Badge, error) {
	return s.IssueBadge(ctx, IssueRequest{
		ParticipantType: models.ParticipantVolunteer,
		ParticipantID:   participantID,
		Name:            name,
		Email:           email,
		JobTitle:        role,
	})
}

func (s *BadgeService) CreateTeamBadge(ctx context.Context, participantID, name, email, role string) (*models.Badge, error) {
	return s.IssueBadge(ctx, IssueRequest{
		ParticipantType: models.ParticipantTeam,
		ParticipantID:   participantID,
		Name:            name,
		Email:           email,
		Company:         s.cfg.TeamCompany,
		JobTitle:        role,
	})
}

// IssueFromRegistration maps a registration message onto the matching
// issuance variant.
func (s *BadgeService) IssueFromRegistration(ctx context.Context, reg models.RegistrationEvent) (*models.Badge, error) {
	p, err := models.ParseParticipantType(reg.ParticipantType)
	if err != nil {
		return nil, err
	}

	switch p {
	case models.ParticipantVolunteer:
		return s.CreateVolunteerBadge(ctx, reg.ParticipantID, reg.Name, reg.Email, firstNonEmpty(reg.Role, reg.JobTitle))
	case models.ParticipantTeam:
		return s.CreateTeamBadge(ctx, reg.ParticipantID, reg.Name, reg.Email, firstNonEmpty(reg.Role, reg.JobTitle))
	default:
		return s.IssueBadge(ctx, IssueRequest{
			ParticipantType: p,
			ParticipantID:   reg.ParticipantID,
			Name:            reg.Name,
			Email:           reg.Email,
			Company:         reg.Company,
			JobTitle:        reg.JobTitle,
			CustomRole:      reg.CustomRole,
		})
	}
}

func (s *BadgeService) GetBadge(ctx context.Context, badgeID string) (*models.Badge, error) {
	return s.DB.GetBadgeByID(ctx, badgeID)
}

func (s *BadgeService) GetBadgeByParticipant(ctx context.Context, participantID string) (*models.Badge, error) {
	return s.DB.GetBadgeByParticipant(ctx, participantID)
}

func (s *BadgeService) ListBadges(ctx context.Context, filter db.BadgeFilter) ([]models.Badge, error) {
	return s.DB.ListBadges(ctx, filter)
}

// GetCheckInHistory returns the badge's log, oldest first.
func (s *BadgeService) GetCheckInHistory(ctx context.Context, badgeID string) ([]models.CheckInEvent, error) {
	if _, err := s.DB.GetBadgeByID(ctx, badgeID); err != nil {
		return nil, err
	}
	return s.DB.ListCheckIns(ctx, badgeID)
}

// DeactivateBadge is terminal. It waits for any scan in flight on the badge.
func (s *BadgeService) DeactivateBadge(ctx context.Context, badgeID, reason string) (*models.Badge, error) {
	unlock, err := s.Locker.Lock(ctx, badgeID)
	if err != nil {
		return nil, fmt.Errorf("lock badge %s: %w", badgeID, err)
	}
	defer unlock()

	badge, err := s.DB.GetBadgeByID(ctx, badgeID)
	if err != nil {
		return nil, err
	}
	if !badge.IsActive {
		return badge, nil
	}

	if err := s.DB.DeactivateBadge(ctx, badgeID); err != nil {
		return nil, err
	}
	badge.IsActive = false
	s.Logger.LogBadge("DEACTIVATE", badgeID, fmt.Sprintf("reason: %s", reason))

	if s.Publisher != nil {
		if err := s.Publisher.PublishBadgeDeactivated(ctx, *badge, reason); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish deactivation of %s: %v", badgeID, err))
		}
	}
	return badge, nil
}

// MarkBadgeAsPrinted overwrites printed_at with the current time. Only that
// column is written, so it never touches is_active.
func (s *BadgeService) MarkBadgeAsPrinted(ctx context.Context, badgeID string) (*models.Badge, error) {
	if err := s.DB.SetPrintedAt(ctx, badgeID, s.now()); err != nil {
		return nil, err
	}
	s.Logger.LogBadge("PRINT", badgeID, "marked as printed")
	return s.DB.GetBadgeByID(ctx, badgeID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// IsNotFound reports whether err means the requested badge does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrBadgeNotFound) || errors.Is(err, models.ErrPersonalBadgeNotFound)
}
