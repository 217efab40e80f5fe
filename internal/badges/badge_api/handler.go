package badge_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-badging/internal/auth"
	"ms-badging/internal/badges/db"
	"ms-badging/internal/badges/service"
	"ms-badging/internal/logger"
	"ms-badging/internal/models"
	"ms-badging/internal/utils"

	"github.com/go-chi/chi/v5"
)

// BadgeService is what the HTTP layer needs from the badge service.
type BadgeService interface {
	IssueBadge(ctx context.Context, req service.IssueRequest) (*models.Badge, error)
	CreateVolunteerBadge(ctx context.Context, participantID, name, email, role string) (*models.Badge, error)
	CreateTeamBadge(ctx context.Context, participantID, name, email, role string) (*models.Badge, error)
	GetBadge(ctx context.Context, badgeID string) (*models.Badge, error)
	ListBadges(ctx context.Context, filter db.BadgeFilter) ([]models.Badge, error)
	GetCheckInHistory(ctx context.Context, badgeID string) ([]models.CheckInEvent, error)
	DeactivateBadge(ctx context.Context, badgeID, reason string) (*models.Badge, error)
	MarkBadgeAsPrinted(ctx context.Context, badgeID string) (*models.Badge, error)
	GetPrintableBadge(ctx context.Context, badgeID string) (string, error)
	GetBadgePDF(ctx context.Context, badgeID string) ([]byte, error)
	GetBadgeQR(ctx context.Context, badgeID string) ([]byte, error)
	ProcessCheckIn(ctx context.Context, badgeID string, checkInType models.CheckInType, location, staffMember string) models.CheckInResult
	ProcessScan(ctx context.Context, payload string, checkInType models.CheckInType, location, staffMember string) models.CheckInResult
	IssuePersonalBadge(ctx context.Context, req service.PersonalBadgeRequest) (*models.PersonalBadge, error)
	GetPersonalBadge(ctx context.Context, handle string) (*models.PersonalBadge, error)
	GetPersonalBadgeHTML(ctx context.Context, handle string) (string, error)
}

type Handler struct {
	BadgeService BadgeService
	Logger       *logger.Logger
}

func NewHandler(badgeService BadgeService, log *logger.Logger) *Handler {
	return &Handler{BadgeService: badgeService, Logger: log}
}

// RegisterRoutes registers the badge and check-in endpoints. Static segments
// such as /api/badges/stats take precedence over {badgeId} in chi.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/badges", h.IssueBadge)
	r.Get("/api/badges", h.ListBadges)
	r.Post("/api/badges/{participantType:attendee|exhibitor|speaker|volunteer|team}", h.IssueTypedBadge)

	r.Get("/api/badges/{badgeId}", h.GetBadge)
	r.Get("/api/badges/{badgeId}/print", h.GetPrintableBadge)
	r.Get("/api/badges/{badgeId}/pdf", h.GetBadgePDF)
	r.Get("/api/badges/{badgeId}/qr", h.GetBadgeQR)
	r.Get("/api/badges/{badgeId}/check-ins", h.GetCheckInHistory)
	r.Post("/api/badges/{badgeId}/printed", h.MarkPrinted)
	r.Post("/api/badges/{badgeId}/deactivate", h.Deactivate)

	r.Post("/api/checkin", h.CheckIn)

	r.Post("/api/personal-badges", h.IssuePersonalBadge)
	r.Get("/api/personal-badges/{handle}", h.GetPersonalBadge)
	r.Get("/api/personal-badges/{handle}/print", h.GetPersonalBadgeHTML)
}

type issueBadgeRequest struct {
	ParticipantType string `json:"participant_type" validate:"required"`
	ParticipantID   string `json:"participant_id" validate:"required,max=255"`
	Name            string `json:"name" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Company         string `json:"company" validate:"omitempty,max=255"`
	JobTitle        string `json:"job_title" validate:"omitempty,max=255"`
	Role            string `json:"role" validate:"omitempty,max=255"`
	CustomRole      string `json:"custom_role" validate:"omitempty,max=100"`
}

type checkInRequest struct {
	BadgeID     string `json:"badge_id" validate:"required_without=Payload,max=64"`
	Payload     string `json:"payload" validate:"omitempty,max=2048"`
	CheckInType string `json:"check_in_type"`
	Location    string `json:"location" validate:"omitempty,max=100"`
	StaffMember string `json:"staff_member" validate:"omitempty,max=255"`
}

type deactivateRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type personalBadgeRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	QRHandle       string `json:"qr_handle" validate:"required,max=50"`
	Name           string `json:"name" validate:"required,max=255"`
	Email          string `json:"email" validate:"required,email"`
	Company        string `json:"company" validate:"omitempty,max=255"`
	JobTitle       string `json:"job_title" validate:"omitempty,max=255"`
	Title          string `json:"title" validate:"omitempty,max=255"`
	Phone          string `json:"phone" validate:"omitempty,max=50"`
	MembershipTier string `json:"membership_tier" validate:"omitempty,max=50"`
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ValidationErrorResponse(err))
		return false
	}
	return true
}

// writeError maps service errors onto status codes. Unknown errors are
// logged and reported without detail.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case service.IsNotFound(err):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Not found", err.Error()))
	case errors.Is(err, models.ErrInvalidParticipantType),
		errors.Is(err, models.ErrInvalidBadgeRequest),
		errors.Is(err, models.ErrInvalidQRHandle):
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", err.Error()))
	case errors.Is(err, models.ErrQRHandleTaken):
		utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("QR handle already in use", err.Error()))
	default:
		h.Logger.Error("API", fmt.Sprintf("%s failed: %v", op, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", op+" failed"))
	}
}

func (h *Handler) IssueBadge(w http.ResponseWriter, r *http.Request) {
	var req issueBadgeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.issue(w, r, req)
}

// IssueTypedBadge serves the per-type shortcuts; the type comes from the path.
func (h *Handler) IssueTypedBadge(w http.ResponseWriter, r *http.Request) {
	var req issueBadgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	req.ParticipantType = chi.URLParam(r, "participantType")
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ValidationErrorResponse(err))
		return
	}
	h.issue(w, r, req)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, req issueBadgeRequest) {
	p, err := models.ParseParticipantType(req.ParticipantType)
	if err != nil {
		h.writeError(w, "issue badge", err)
		return
	}

	role := req.Role
	if role == "" {
		role = req.JobTitle
	}

	var badge *models.Badge
	switch p {
	case models.ParticipantVolunteer:
		badge, err = h.BadgeService.CreateVolunteerBadge(r.Context(), req.ParticipantID, req.Name, req.Email, role)
	case models.ParticipantTeam:
		badge, err = h.BadgeService.CreateTeamBadge(r.Context(), req.ParticipantID, req.Name, req.Email, role)
	default:
		badge, err = h.BadgeService.IssueBadge(r.Context(), service.IssueRequest{
			ParticipantType: p,
			ParticipantID:   req.ParticipantID,
			Name:            req.Name,
			Email:           req.Email,
			Company:         req.Company,
			JobTitle:        req.JobTitle,
			CustomRole:      req.CustomRole,
		})
	}
	if err != nil {
		h.writeError(w, "issue badge", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Badge issued", badge))
}

func (h *Handler) ListBadges(w http.ResponseWriter, r *http.Request) {
	filter := db.BadgeFilter{Email: r.URL.Query().Get("email")}
	if t := r.URL.Query().Get("type"); t != "" {
		p, err := models.ParseParticipantType(t)
		if err != nil {
			h.writeError(w, "list badges", err)
			return
		}
		filter.Type = p
	}

	badges, err := h.BadgeService.ListBadges(r.Context(), filter)
	if err != nil {
		h.writeError(w, "list badges", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("%d badges", len(badges)), badges))
}

func (h *Handler) GetBadge(w http.ResponseWriter, r *http.Request) {
	badge, err := h.BadgeService.GetBadge(r.Context(), chi.URLParam(r, "badgeId"))
	if err != nil {
		h.writeError(w, "get badge", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Badge found", badge))
}

func (h *Handler) GetPrintableBadge(w http.ResponseWriter, r *http.Request) {
	html, err := h.BadgeService.GetPrintableBadge(r.Context(), chi.URLParam(r, "badgeId"))
	if err != nil {
		h.writeError(w, "render badge", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func (h *Handler) GetBadgePDF(w http.ResponseWriter, r *http.Request) {
	badgeID := chi.URLParam(r, "badgeId")
	pdf, err := h.BadgeService.GetBadgePDF(r.Context(), badgeID)
	if err != nil {
		h.writeError(w, "render badge pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", badgeID+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (h *Handler) GetBadgeQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.BadgeService.GetBadgeQR(r.Context(), chi.URLParam(r, "badgeId"))
	if err != nil {
		h.writeError(w, "render badge qr", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) GetCheckInHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.BadgeService.GetCheckInHistory(r.Context(), chi.URLParam(r, "badgeId"))
	if err != nil {
		h.writeError(w, "get check-in history", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Check-in history", events))
}

func (h *Handler) MarkPrinted(w http.ResponseWriter, r *http.Request) {
	badge, err := h.BadgeService.MarkBadgeAsPrinted(r.Context(), chi.URLParam(r, "badgeId"))
	if err != nil {
		h.writeError(w, "mark printed", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Badge marked as printed", badge))
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	var req deactivateRequest
	// an empty body is allowed
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = "unspecified"
	}

	badgeID := chi.URLParam(r, "badgeId")
	h.Logger.LogSecurity("DEACTIVATE", fmt.Sprintf("badge %s deactivated by %q", badgeID, auth.RequestUserID(r)))

	badge, err := h.BadgeService.DeactivateBadge(r.Context(), badgeID, req.Reason)
	if err != nil {
		h.writeError(w, "deactivate badge", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Badge deactivated", badge))
}

// CheckIn processes one scan. The body is always the check-in result and the
// status code mirrors its reason.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req checkInRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	staff := req.StaffMember
	if staff == "" {
		staff = auth.StaffMember(r)
	}

	checkInType := models.CheckInType(req.CheckInType)
	var result models.CheckInResult
	if req.BadgeID != "" {
		result = h.BadgeService.ProcessCheckIn(r.Context(), req.BadgeID, checkInType, req.Location, staff)
	} else {
		result = h.BadgeService.ProcessScan(r.Context(), req.Payload, checkInType, req.Location, staff)
	}

	status := StatusForResult(result)
	h.Logger.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d %s", status, result.Reason), time.Since(start).String())
	utils.WriteJSON(w, status, result)
}

// StatusForResult maps a check-in outcome to an HTTP status code.
func StatusForResult(result models.CheckInResult) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.Reason {
	case models.ReasonNotFound:
		return http.StatusNotFound
	case models.ReasonDeactivated:
		return http.StatusForbidden
	case models.ReasonAlreadyCheckedIn, models.ReasonNotCheckedIn:
		return http.StatusConflict
	case models.ReasonInvalidType:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) IssuePersonalBadge(w http.ResponseWriter, r *http.Request) {
	var req personalBadgeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	badge, err := h.BadgeService.IssuePersonalBadge(r.Context(), service.PersonalBadgeRequest{
		UserID:         req.UserID,
		QRHandle:       req.QRHandle,
		Name:           req.Name,
		Email:          req.Email,
		Company:        req.Company,
		JobTitle:       req.JobTitle,
		Title:          req.Title,
		Phone:          req.Phone,
		MembershipTier: req.MembershipTier,
	})
	if err != nil {
		h.writeError(w, "issue personal badge", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Personal badge issued", badge))
}

func (h *Handler) GetPersonalBadge(w http.ResponseWriter, r *http.Request) {
	badge, err := h.BadgeService.GetPersonalBadge(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		h.writeError(w, "get personal badge", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Personal badge found", badge))
}

func (h *Handler) GetPersonalBadgeHTML(w http.ResponseWriter, r *http.Request) {
	html, err := h.BadgeService.GetPersonalBadgeHTML(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		h.writeError(w, "render personal badge", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}
