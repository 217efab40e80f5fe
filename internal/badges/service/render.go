package service

import (
	"context"
	"fmt"
	"strings"

	"ms-badging/internal/badges/qr"
	"ms-badging/internal/models"
	"ms-badging/internal/utils"
)

// GetBadgeQR renders the badge's stored scan payload as a PNG.
func (s *BadgeService) GetBadgeQR(ctx context.Context, badgeID string) ([]byte, error) {
	badge, err := s.DB.GetBadgeByID(ctx, badgeID)
	if err != nil {
		return nil, err
	}
	return s.QR.Encode(badge.QRCodeData)
}

// GetPrintableBadge renders the badge-holder HTML for a badge.
func (s *BadgeService) GetPrintableBadge(ctx context.Context, badgeID string) (string, error) {
	badge, err := s.DB.GetBadgeByID(ctx, badgeID)
	if err != nil {
		return "", err
	}
	png, err := s.QR.Encode(badge.QRCodeData)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR for badge %s: %w", badgeID, err)
	}
	return s.Renderer.RenderHTML(*badge, png)
}

func (s *BadgeService) GetBadgePDF(ctx context.Context, badgeID string) ([]byte, error) {
	badge, err := s.DB.GetBadgeByID(ctx, badgeID)
	if err != nil {
		return nil, err
	}
	png, err := s.QR.Encode(badge.QRCodeData)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR for badge %s: %w", badgeID, err)
	}
	return s.PDF.Generate(*badge, png)
}

type PersonalBadgeRequest struct {
	UserID         string
	QRHandle       string
	Name           string
	Email          string
	Company        string
	JobTitle       string
	Title          string
	Phone          string
	MembershipTier string
}

// IssuePersonalBadge creates a member's reusable badge keyed by QR handle.
func (s *BadgeService) IssuePersonalBadge(ctx context.Context, req PersonalBadgeRequest) (*models.PersonalBadge, error) {
	handle := utils.NormalizeQRHandle(req.QRHandle)
	if !utils.ValidQRHandle(handle) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidQRHandle, req.QRHandle)
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%w: user_id, name and email are required", models.ErrInvalidBadgeRequest)
	}
	if _, err := s.QR.Encode(qr.PersonalBadgePayload(handle)); err != nil {
		return nil, fmt.Errorf("failed to generate QR for handle %s: %w", handle, err)
	}

	now := s.now()
	badge := &models.PersonalBadge{
		BadgeID:        utils.GeneratePersonalBadgeID(handle),
		QRHandle:       handle,
		UserID:         req.UserID,
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.TrimSpace(req.Email),
		Company:        strings.TrimSpace(req.Company),
		JobTitle:       strings.TrimSpace(req.JobTitle),
		Title:          strings.TrimSpace(req.Title),
		Phone:          strings.TrimSpace(req.Phone),
		MembershipTier: strings.TrimSpace(req.MembershipTier),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.DB.CreatePersonalBadge(ctx, badge); err != nil {
		return nil, err
	}
	s.Logger.LogBadge("PERSONAL", badge.BadgeID, fmt.Sprintf("personal badge issued for @%s", handle))
	return badge, nil
}

func (s *BadgeService) GetPersonalBadge(ctx context.Context, handle string) (*models.PersonalBadge, error) {
	return s.DB.GetPersonalBadgeByHandle(ctx, utils.NormalizeQRHandle(handle))
}

func (s *BadgeService) GetPersonalBadgeHTML(ctx context.Context, handle string) (string, error) {
	badge, err := s.GetPersonalBadge(ctx, handle)
	if err != nil {
		return "", err
	}
	png, err := s.QR.Encode(qr.PersonalBadgePayload(badge.QRHandle))
	if err != nil {
		return "", fmt.Errorf("failed to generate QR for handle %s: %w", badge.QRHandle, err)
	}
	return s.Renderer.RenderPersonalHTML(*badge, png)
}
