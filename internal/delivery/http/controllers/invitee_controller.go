package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"guestlist/internal/delivery/http/helpers"
	"guestlist/internal/domain"
)

// uuidRegexInvitee matches a canonical UUID string (8-4-4-4-12 hex).
var uuidRegexInvitee = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// qrTokenRegex matches the 32-hex-char invitee token.
var qrTokenRegex = regexp.MustCompile(`^[0-9a-f]{32}$`)

type InviteeController struct {
	Logger       *slog.Logger
	Confirmation domain.ConfirmationService
	CheckIn      domain.CheckInService
	Invitees     domain.InviteeService
}

func NewInviteeController(
	logger *slog.Logger,
	confirmation domain.ConfirmationService,
	checkIn domain.CheckInService,
	invitees domain.InviteeService,
) *InviteeController {
	return &InviteeController{
		Logger:       logger,
		Confirmation: confirmation,
		CheckIn:      checkIn,
		Invitees:     invitees,
	}
}

// writeDomainError maps domain sentinel errors to their response codes.
// Unexpected errors are logged and surfaced as a generic 500.
func (c *InviteeController) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invitee not found for this event")
	case errors.Is(err, domain.ErrAlreadyConfirmed):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeAlreadyConfirmed, "attendance already confirmed for this event")
	case errors.Is(err, domain.ErrAlreadyCheckedIn):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeAlreadyCheckedIn, "invitee is already checked in")
	case errors.Is(err, domain.ErrNotConfirmed):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeNotConfirmed, "invitee must be confirmed before checking in")
	case errors.Is(err, domain.ErrDuplicatePhone):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "invitee with this phone number already exists for this event")
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid request")
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
	}
}

// ConfirmRequest is the request body for POST /invitees/confirm.
type ConfirmRequest struct {
	EventID string  `json:"event_id"`
	Phone   string  `json:"phone"`
	Email   *string `json:"email,omitempty"`
	Name    *string `json:"name,omitempty"`
}

// Validate implements helpers.Validator.
func (r *ConfirmRequest) Validate() []string {
	var errs []string
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Phone == "" {
		errs = append(errs, "phone is required")
	}
	if r.EventID == "" {
		errs = append(errs, "event_id is required")
	} else if !uuidRegexInvitee.MatchString(r.EventID) {
		errs = append(errs, "invalid event_id")
	}
	return errs
}

// InviteeSuccessResponse is the success envelope wrapping a single invitee.
type InviteeSuccessResponse struct {
	Data  *domain.Invitee   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// Confirm godoc
// @Summary Confirm attendance (public)
// @Description Confirms attendance for a pre-registered phone number. Phone numbers not on the invitation list cannot confirm. A second confirmation for the same invitee fails with already_confirmed.
// @Tags invitees
// @Accept json
// @Produce json
// @Param body body controllers.ConfirmRequest true "Confirmation details"
// @Success 200 {object} controllers.InviteeSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_confirmed"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitees/confirm [post]
func (c *InviteeController) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	invitee, err := c.Confirmation.Confirm(r.Context(), req.EventID, req.Phone, req.Email, req.Name)
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, invitee)
}

// CheckRequest is the request body for POST /invitees/check.
type CheckRequest struct {
	EventID string `json:"event_id"`
	Phone   string `json:"phone"`
}

// Validate implements helpers.Validator.
func (r *CheckRequest) Validate() []string {
	var errs []string
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Phone == "" {
		errs = append(errs, "phone is required")
	}
	if r.EventID == "" {
		errs = append(errs, "event_id is required")
	} else if !uuidRegexInvitee.MatchString(r.EventID) {
		errs = append(errs, "invalid event_id")
	}
	return errs
}

// InviteeWithEventSuccessResponse wraps an invitee together with its event.
type InviteeWithEventSuccessResponse struct {
	Data  *domain.InviteeWithEvent `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// Check godoc
// @Summary Look up an invitee by phone (public, read-only)
// @Description Returns the invitee for the given phone and event without changing any state. Used by the confirmation page before submitting.
// @Tags invitees
// @Accept json
// @Produce json
// @Param body body controllers.CheckRequest true "Lookup details"
// @Success 200 {object} controllers.InviteeWithEventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitees/check [post]
func (c *InviteeController) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := c.Confirmation.CheckByPhone(r.Context(), req.EventID, req.Phone)
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// LookupByQR godoc
// @Summary Retrieve an invitation card by QR token (public, read-only)
// @Description Resolves a QR token to its invitee and event summary.
// @Tags invitees
// @Produce json
// @Param token path string true "QR token (32 hex characters)"
// @Success 200 {object} controllers.InviteeWithEventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitees/qr/{token} [get]
func (c *InviteeController) LookupByQR(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if !qrTokenRegex.MatchString(token) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid token")
		return
	}

	result, err := c.Confirmation.LookupByToken(r.Context(), token)
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// CheckInRequest is the request body for POST /invitees/checkin. Exactly one
// of phone/qr_code must be set.
type CheckInRequest struct {
	EventID string `json:"event_id"`
	Phone   string `json:"phone,omitempty"`
	QRCode  string `json:"qr_code,omitempty"`
}

// Validate implements helpers.Validator.
func (r *CheckInRequest) Validate() []string {
	var errs []string
	r.Phone = strings.TrimSpace(r.Phone)
	r.QRCode = strings.TrimSpace(r.QRCode)
	if r.EventID == "" {
		errs = append(errs, "event_id is required")
	} else if !uuidRegexInvitee.MatchString(r.EventID) {
		errs = append(errs, "invalid event_id")
	}
	if r.Phone == "" && r.QRCode == "" {
		errs = append(errs, "phone or qr_code is required")
	}
	if r.Phone != "" && r.QRCode != "" {
		errs = append(errs, "provide either phone or qr_code, not both")
	}
	return errs
}

// DoCheckIn godoc
// @Summary Check in an invitee by phone or QR code
// @Description Marks a confirmed invitee as present. A token issued under a different event is rejected. Re-scanning an already checked-in guest fails with already_checked_in.
// @Tags invitees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.CheckInRequest true "Check-in details (phone XOR qr_code)"
// @Success 200 {object} controllers.InviteeSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or not_confirmed"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_checked_in"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitees/checkin [post]
func (c *InviteeController) DoCheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	invitee, err := c.CheckIn.CheckIn(r.Context(), req.EventID, req.Phone, req.QRCode)
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, invitee)
}

// SetCheckedInRequest is the request body for PUT /invitees/{inviteeID}/checkin.
type SetCheckedInRequest struct {
	CheckedIn *bool `json:"checked_in"`
}

// Validate implements helpers.Validator.
func (r *SetCheckedInRequest) Validate() []string {
	if r.CheckedIn == nil {
		return []string{"checked_in is required"}
	}
	return nil
}

// SetCheckedIn godoc
// @Summary Toggle check-in directly (organizer override)
// @Description Sets the checked-in flag without the already-checked-in guard. Checking in an unconfirmed invitee is still refused.
// @Tags invitees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param inviteeID path string true "Invitee ID (UUID)"
// @Param body body controllers.SetCheckedInRequest true "Desired state"
// @Success 200 {object} controllers.InviteeSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or not_confirmed"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitees/{inviteeID}/checkin [put]
func (c *InviteeController) SetCheckedIn(w http.ResponseWriter, r *http.Request) {
	inviteeID := r.PathValue("inviteeID")
	if !uuidRegexInvitee.MatchString(inviteeID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid inviteeID")
		return
	}
	var req SetCheckedInRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	invitee, err := c.CheckIn.SetCheckedIn(r.Context(), inviteeID, *req.CheckedIn)
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, invitee)
}

// SetConfirmedRequest is the request body for PUT /invitees/{inviteeID}/confirm.
type SetConfirmedRequest struct {
	Confirmed *bool   `json:"confirmed"`
	Email     *string `json:"email,omitempty"`
	Name      *string `json:"name,omitempty"`
}

// Validate implements helpers.Validator.
func (r *SetConfirmedRequest) Validate() []string {
	if r.Confirmed == nil {
		return []string{"confirmed is required"}
	}
	return nil
}

// SetConfirmed godoc
// @Summary Toggle confirmation directly (organizer override)
// @Description Sets the confirmed flag. Unconfirming also clears the check-in: a check-in never outlives its confirmation.
// @Tags invitees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param inviteeID path string true "Invitee ID (UUID)"
// @Param body body controllers.SetConfirmedRequest true "Desired state"
// @Success 200 {object} controllers.InviteeSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitees/{inviteeID}/confirm [put]
func (c *InviteeController) SetConfirmed(w http.ResponseWriter, r *http.Request) {
	inviteeID := r.PathValue("inviteeID")
	if !uuidRegexInvitee.MatchString(inviteeID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid inviteeID")
		return
	}
	var req SetConfirmedRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	invitee, err := c.CheckIn.SetConfirmed(r.Context(), inviteeID, *req.Confirmed, req.Email, req.Name)
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, invitee)
}

// CreateInviteeRequest is the request body for POST /invitees.
type CreateInviteeRequest struct {
	EventID string  `json:"event_id"`
	Phone   string  `json:"phone"`
	Email   *string `json:"email,omitempty"`
	Name    *string `json:"name,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// Validate implements helpers.Validator.
func (r *CreateInviteeRequest) Validate() []string {
	var errs []string
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Phone == "" {
		errs = append(errs, "phone is required")
	}
	if r.EventID == "" {
		errs = append(errs, "event_id is required")
	} else if !uuidRegexInvitee.MatchString(r.EventID) {
		errs = append(errs, "invalid event_id")
	}
	return errs
}

// Create godoc
// @Summary Pre-register an invitee for an event
// @Description Creates an invitee with a freshly generated QR token. The phone number must be unique within the event.
// @Tags invitees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.CreateInviteeRequest true "Invitee details"
// @Success 201 {object} controllers.InviteeSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitees [post]
func (c *InviteeController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInviteeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	invitee, err := c.Invitees.CreateInvitee(r.Context(), req.EventID, req.Phone, req.Email, req.Name, req.Notes)
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, invitee)
}

// ListInviteesSuccessResponse is the success envelope for GET /invitees (200).
type ListInviteesSuccessResponse struct {
	Data  []*domain.InviteeListItem `json:"data"`
	Error *helpers.APIError         `json:"error"`
	Meta  helpers.PaginationMeta    `json:"meta"`
}

// List godoc
// @Summary List all invitees across events
// @Description Returns invitees joined with their event title, newest first. Supports search over phone, name, email, and event title.
// @Tags invitees
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search term"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListInviteesSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitees [get]
func (c *InviteeController) List(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	items, total, err := c.Invitees.ListInvitees(r.Context(), search, params)
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ListInviteesSuccessResponse{
		Data: items,
		Meta: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// Delete godoc
// @Summary Delete an invitee
// @Tags invitees
// @Produce json
// @Security BearerAuth
// @Param inviteeID path string true "Invitee ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitees/{inviteeID} [delete]
func (c *InviteeController) Delete(w http.ResponseWriter, r *http.Request) {
	inviteeID := r.PathValue("inviteeID")
	if !uuidRegexInvitee.MatchString(inviteeID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid inviteeID")
		return
	}

	if err := c.Invitees.DeleteInvitee(r.Context(), inviteeID); err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"message": "invitee deleted"})
}

// SendInvitationRequest is the request body for POST /invitees/send.
type SendInvitationRequest struct {
	InviteeID string `json:"invitee_id"`
	EventID   string `json:"event_id"`
}

// Validate implements helpers.Validator.
func (r *SendInvitationRequest) Validate() []string {
	var errs []string
	if r.InviteeID == "" || !uuidRegexInvitee.MatchString(r.InviteeID) {
		errs = append(errs, "invalid invitee_id")
	}
	if r.EventID == "" || !uuidRegexInvitee.MatchString(r.EventID) {
		errs = append(errs, "invalid event_id")
	}
	return errs
}

// Send godoc
// @Summary Email the invitation to an invitee
// @Description Sends the invitation email with the QR link and marks the invitee's email_sent flag. The invitee must have an email address.
// @Tags invitees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.SendInvitationRequest true "Invitee and event IDs"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitees/send [post]
func (c *InviteeController) Send(w http.ResponseWriter, r *http.Request) {
	var req SendInvitationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := c.Invitees.SendInvitation(r.Context(), req.InviteeID, req.EventID); err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"message": "invitation sent"})
}
