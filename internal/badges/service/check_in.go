package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"ms-badging/internal/badges/checkin"
	"ms-badging/internal/models"
)

// ProcessCheckIn validates one scan against the badge's history and, when it
// is allowed, appends exactly one event. It never returns an error: storage
// failures and panics come back as a generic failure result.
func (s *BadgeService) ProcessCheckIn(ctx context.Context, badgeID string, checkInType models.CheckInType, location, staffMember string) (result models.CheckInResult) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("CHECKIN", fmt.Sprintf("Panic while processing %s for %s: %v\n%s", checkInType, badgeID, r, debug.Stack()))
			result = s.failure(checkInType)
		}
	}()

	if !checkInType.Valid() {
		s.Logger.LogCheckIn(badgeID, string(checkInType), "rejected: unknown scan type")
		return checkin.Reject(checkInType, models.ReasonInvalidType, checkin.MsgInvalidType)
	}
	if strings.TrimSpace(location) == "" {
		location = s.cfg.DefaultLocation
	}
	if strings.TrimSpace(staffMember) == "" {
		staffMember = models.DefaultStaffMember
	}

	unlock, err := s.Locker.Lock(ctx, badgeID)
	if err != nil {
		s.Logger.Error("CHECKIN", fmt.Sprintf("Could not lock badge %s: %v", badgeID, err))
		return s.failure(checkInType)
	}
	defer unlock()

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		badge, err := s.DB.GetBadgeByID(ctx, badgeID)
		if errors.Is(err, models.ErrBadgeNotFound) {
			s.Logger.LogCheckIn(badgeID, string(checkInType), "rejected: badge not found")
			return checkin.Reject(checkInType, models.ReasonNotFound, checkin.MsgNotFound)
		}
		if err != nil {
			s.Logger.Error("CHECKIN", fmt.Sprintf("Failed to load badge %s: %v", badgeID, err))
			return s.failure(checkInType)
		}
		if !badge.IsActive {
			s.Logger.LogCheckIn(badgeID, string(checkInType), "rejected: badge deactivated")
			return checkin.Reject(checkInType, models.ReasonDeactivated, checkin.MsgDeactivated)
		}

		history, err := s.DB.ListCheckIns(ctx, badgeID)
		if err != nil {
			s.Logger.Error("CHECKIN", fmt.Sprintf("Failed to load history for %s: %v", badgeID, err))
			return s.failure(checkInType)
		}

		state := checkin.DeriveState(history)
		decision := checkin.Evaluate(state, checkInType, badge.Name)
		if !decision.Allowed {
			s.Logger.LogCheckIn(badgeID, string(checkInType), fmt.Sprintf("rejected from %s: %s", state, decision.Reason))
			return checkin.Reject(checkInType, decision.Reason, decision.Message)
		}

		event := models.CheckInEvent{
			BadgeID:         badgeID,
			Sequence:        len(history) + 1,
			CheckInType:     checkInType,
			CheckInTime:     s.now(),
			CheckInLocation: location,
			CheckInMethod:   models.CheckInMethodQRScan,
			StaffMember:     staffMember,
		}
		err = s.DB.AppendCheckIn(ctx, &event)
		if errors.Is(err, models.ErrCheckInConflict) {
			s.Logger.Warn("CHECKIN", fmt.Sprintf("Sequence %d for %s already taken, re-reading (attempt %d)", event.Sequence, badgeID, attempt))
			continue
		}
		if err != nil {
			s.Logger.Error("CHECKIN", fmt.Sprintf("Failed to record %s for %s: %v", checkInType, badgeID, err))
			return s.failure(checkInType)
		}

		s.Logger.LogCheckIn(badgeID, string(checkInType), fmt.Sprintf("accepted at %s by %s", location, staffMember))
		s.afterCheckIn(ctx, *badge, event)

		return models.CheckInResult{
			Success:        true,
			Badge:          badge,
			CheckInType:    checkInType,
			Message:        decision.Message,
			IsFirstCheckIn: decision.IsFirstCheckIn,
		}
	}

	s.Logger.Error("CHECKIN", fmt.Sprintf("Gave up on %s for %s after %d sequence conflicts", checkInType, badgeID, s.cfg.MaxAttempts))
	return s.failure(checkInType)
}

// ProcessScan resolves a raw QR payload to a badge and checks it in or out.
// Event badges carry the participant id; a typed-in badge id is also accepted.
func (s *BadgeService) ProcessScan(ctx context.Context, payload string, checkInType models.CheckInType, location, staffMember string) models.CheckInResult {
	payload = strings.TrimSpace(payload)

	badge, err := s.DB.GetBadgeByParticipant(ctx, payload)
	if errors.Is(err, models.ErrBadgeNotFound) {
		badge, err = s.DB.GetBadgeByID(ctx, payload)
	}
	if errors.Is(err, models.ErrBadgeNotFound) {
		s.Logger.LogCheckIn(payload, string(checkInType), "rejected: unknown payload")
		return checkin.Reject(checkInType, models.ReasonNotFound, checkin.MsgNotFound)
	}
	if err != nil {
		s.Logger.Error("CHECKIN", fmt.Sprintf("Failed to resolve scan payload: %v", err))
		return s.failure(checkInType)
	}

	return s.ProcessCheckIn(ctx, badge.BadgeID, checkInType, location, staffMember)
}

func (s *BadgeService) failure(t models.CheckInType) models.CheckInResult {
	return checkin.Reject(t, models.ReasonInternal, checkin.MsgFailure)
}

// afterCheckIn runs the best-effort side effects of an accepted scan.
func (s *BadgeService) afterCheckIn(ctx context.Context, badge models.Badge, event models.CheckInEvent) {
	if s.Publisher != nil {
		if err := s.Publisher.PublishCheckIn(ctx, badge, event); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", event.CheckInType, badge.BadgeID, err))
		}
	}
	if s.Notifier != nil {
		s.Notifier.NotifyCheckIn(models.CheckInNotice{
			BadgeID:         badge.BadgeID,
			Name:            badge.Name,
			ParticipantType: badge.ParticipantType,
			CheckInType:     event.CheckInType,
			Location:        event.CheckInLocation,
			At:              event.CheckInTime,
		})
	}
}
