package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/amortization"
	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/middleware"
	"github.com/dafibh/fortuna/fortuna-planner/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// LoanHandler handles loan-related HTTP requests
type LoanHandler struct {
	loanService *service.LoanService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loanService *service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// ScheduleAnchorRequest is a (month, day) pair on which an installment falls due
type ScheduleAnchorRequest struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

// LoanRequest represents the create, update and preview loan request body.
// Supply tenureInPeriods, installmentAmount, or both.
type LoanRequest struct {
	Name                   string                  `json:"name"`
	Principal              string                  `json:"principal"`
	AnnualRatePercent      string                  `json:"annualRatePercent"`
	Frequency              string                  `json:"frequency"`
	TenureInPeriods        *int                    `json:"tenureInPeriods,omitempty"`
	InstallmentAmount      *string                 `json:"installmentAmount,omitempty"`
	StartDate              string                  `json:"startDate"`
	PaymentScheduleAnchors []ScheduleAnchorRequest `json:"paymentScheduleAnchors,omitempty"`
}

// PayInstallmentRequest represents the mark-paid request body.
// paidAmount defaults to the scheduled amount and paidDate to today.
type PayInstallmentRequest struct {
	PaidAmount *string `json:"paidAmount,omitempty"`
	PaidDate   *string `json:"paidDate,omitempty"`
}

// InstallmentResponse represents an installment in API responses
type InstallmentResponse struct {
	SequenceNumber int     `json:"sequenceNumber"`
	Label          string  `json:"label"`
	DueDate        string  `json:"dueDate"`
	Amount         string  `json:"amount"`
	Paid           bool    `json:"paid"`
	PaidAmount     *string `json:"paidAmount,omitempty"`
	PaidDate       *string `json:"paidDate,omitempty"`
}

// LoanResponse represents a loan in API responses
type LoanResponse struct {
	ID                     int32                   `json:"id"`
	WorkspaceID            int32                   `json:"workspaceId"`
	Name                   string                  `json:"name"`
	Principal              string                  `json:"principal"`
	AnnualRatePercent      string                  `json:"annualRatePercent"`
	Frequency              string                  `json:"frequency"`
	TenureInPeriods        int                     `json:"tenureInPeriods"`
	InstallmentAmount      string                  `json:"installmentAmount"`
	StartDate              string                  `json:"startDate"`
	PaymentScheduleAnchors []ScheduleAnchorRequest `json:"paymentScheduleAnchors"`
	IsActive               bool                    `json:"isActive"`
	PaidCount              int                     `json:"paidCount"`
	RemainingPrincipal     string                  `json:"remainingPrincipal"`
	Installments           []InstallmentResponse   `json:"installments"`
	CreatedAt              string                  `json:"createdAt"`
	UpdatedAt              string                  `json:"updatedAt"`
}

// PreviewLoanResponse represents the solved loan and its generated schedule
type PreviewLoanResponse struct {
	TenureInPeriods   int                   `json:"tenureInPeriods"`
	InstallmentAmount string                `json:"installmentAmount"`
	TotalPayable      string                `json:"totalPayable"`
	TotalInterest     string                `json:"totalInterest"`
	Installments      []InstallmentResponse `json:"installments"`
}

// PreviewLoan handles POST /api/v1/loans/preview
func (h *LoanHandler) PreviewLoan(c echo.Context) error {
	var req LoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input, verrs := parseLoanRequest(req)
	if len(verrs) > 0 {
		return NewValidationError(c, "Validation failed", verrs)
	}

	preview, err := h.loanService.PreviewLoan(input)
	if err != nil {
		return h.handleLoanError(c, err, "Failed to preview loan")
	}

	return c.JSON(http.StatusOK, PreviewLoanResponse{
		TenureInPeriods:   preview.Solution.TenureInPeriods,
		InstallmentAmount: preview.Solution.InstallmentAmount.StringFixed(2),
		TotalPayable:      preview.Solution.TotalPayable.StringFixed(2),
		TotalInterest:     preview.Solution.TotalInterest.StringFixed(2),
		Installments:      toInstallmentResponses(preview.Installments),
	})
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewValidationError(c, "Workspace required", nil)
	}

	var req LoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input, verrs := parseLoanRequest(req)
	if len(verrs) > 0 {
		return NewValidationError(c, "Validation failed", verrs)
	}

	loan, err := h.loanService.CreateLoan(c.Request().Context(), workspaceID, input)
	if err != nil {
		return h.handleLoanError(c, err, "Failed to create loan")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("loan_id", loan.ID).Msg("Loan created")
	return c.JSON(http.StatusCreated, toLoanResponse(loan))
}

// GetLoans handles GET /api/v1/loans
func (h *LoanHandler) GetLoans(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewValidationError(c, "Workspace required", nil)
	}

	loans, err := h.loanService.ListLoans(c.Request().Context(), workspaceID)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to list loans")
		return NewInternalError(c, "Failed to list loans")
	}

	response := make([]LoanResponse, len(loans))
	for i, loan := range loans {
		response[i] = toLoanResponse(loan)
	}
	return c.JSON(http.StatusOK, response)
}

// GetLoan handles GET /api/v1/loans/:id
func (h *LoanHandler) GetLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewValidationError(c, "Workspace required", nil)
	}

	id, err := parseLoanID(c)
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	loan, err := h.loanService.GetLoan(c.Request().Context(), workspaceID, id)
	if err != nil {
		return h.handleLoanError(c, err, "Failed to get loan")
	}
	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// UpdateLoan handles PUT /api/v1/loans/:id
func (h *LoanHandler) UpdateLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewValidationError(c, "Workspace required", nil)
	}

	id, err := parseLoanID(c)
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	var req LoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input, verrs := parseLoanRequest(req)
	if len(verrs) > 0 {
		return NewValidationError(c, "Validation failed", verrs)
	}

	loan, err := h.loanService.UpdateLoan(c.Request().Context(), workspaceID, id, input)
	if err != nil {
		return h.handleLoanError(c, err, "Failed to update loan")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("loan_id", loan.ID).Msg("Loan updated")
	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// DeleteLoan handles DELETE /api/v1/loans/:id
func (h *LoanHandler) DeleteLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewValidationError(c, "Workspace required", nil)
	}

	id, err := parseLoanID(c)
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	if err := h.loanService.DeleteLoan(c.Request().Context(), workspaceID, id); err != nil {
		return h.handleLoanError(c, err, "Failed to delete loan")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("loan_id", id).Msg("Loan deleted")
	return c.NoContent(http.StatusNoContent)
}

// PayInstallment handles PATCH /api/v1/loans/:id/installments/:number/pay
func (h *LoanHandler) PayInstallment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewValidationError(c, "Workspace required", nil)
	}

	id, err := parseLoanID(c)
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		return NewValidationError(c, "Invalid installment number", nil)
	}

	var req PayInstallmentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input := service.PayInstallmentInput{PaidDate: time.Now()}
	if req.PaidAmount != nil && *req.PaidAmount != "" {
		amount, err := decimal.NewFromString(*req.PaidAmount)
		if err != nil {
			return NewValidationError(c, "Invalid paid amount", []ValidationError{
				{Field: "paidAmount", Message: "Must be a valid decimal number"},
			})
		}
		input.PaidAmount = &amount
	}
	if req.PaidDate != nil && *req.PaidDate != "" {
		paidDate, err := time.Parse(dateLayout, *req.PaidDate)
		if err != nil {
			return NewValidationError(c, "Invalid paid date", []ValidationError{
				{Field: "paidDate", Message: "Must be in YYYY-MM-DD format"},
			})
		}
		input.PaidDate = paidDate
	}

	inst, err := h.loanService.PayInstallment(c.Request().Context(), workspaceID, id, number, input)
	if err != nil {
		return h.handleLoanError(c, err, "Failed to mark installment paid")
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Int32("loan_id", id).
		Int("installment", number).
		Msg("Installment marked paid")
	return c.JSON(http.StatusOK, toInstallmentResponse(*inst))
}

// handleLoanError maps service and engine errors to problem-details responses
func (h *LoanHandler) handleLoanError(c echo.Context, err error, msg string) error {
	switch {
	case errors.Is(err, domain.ErrLoanNotFound):
		return NewNotFoundError(c, "Loan not found")
	case errors.Is(err, domain.ErrInstallmentNotFound):
		return NewNotFoundError(c, "Installment not found")
	case errors.Is(err, domain.ErrInstallmentAlreadyPaid):
		return NewConflictError(c, "Installment is already paid")
	case errors.Is(err, domain.ErrLoanNameEmpty), errors.Is(err, domain.ErrLoanNameTooLong):
		return NewValidationError(c, "Validation failed", []ValidationError{{Field: "name", Message: err.Error()}})
	case errors.Is(err, domain.ErrLoanStartDateEmpty):
		return NewValidationError(c, "Validation failed", []ValidationError{{Field: "startDate", Message: err.Error()}})
	case errors.Is(err, domain.ErrLoanFrequencyUnknown):
		return NewValidationError(c, "Validation failed", []ValidationError{{Field: "frequency", Message: err.Error()}})
	case errors.Is(err, domain.ErrScheduleMismatch):
		return NewValidationError(c, "Validation failed", []ValidationError{{Field: "paymentScheduleAnchors", Message: err.Error()}})
	case errors.Is(err, domain.ErrAmbiguousLoanSpec):
		return NewValidationError(c, "Validation failed", []ValidationError{{Field: "tenureInPeriods", Message: err.Error()}})
	case errors.Is(err, domain.ErrInstallmentAmountInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{{Field: "paidAmount", Message: err.Error()}})
	case errors.Is(err, domain.ErrInvalidLoanParameters), errors.Is(err, domain.ErrInvalidInput):
		return NewValidationError(c, err.Error(), nil)
	}

	log.Error().Err(err).Int32("workspace_id", middleware.GetWorkspaceID(c)).Str("loan_id", c.Param("id")).Msg(msg)
	return NewInternalError(c, msg)
}

func parseLoanID(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(id), nil
}

// parseLoanRequest converts the wire format into service input. Semantic
// checks are left to the service and the amortization engine.
func parseLoanRequest(req LoanRequest) (service.LoanInput, []ValidationError) {
	var verrs []ValidationError
	input := service.LoanInput{
		Name:            req.Name,
		Frequency:       domain.LoanFrequency(strings.ToUpper(strings.TrimSpace(req.Frequency))),
		TenureInPeriods: req.TenureInPeriods,
	}
	if input.Frequency == "" {
		input.Frequency = domain.LoanFrequencyMonthly
	}

	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		verrs = append(verrs, ValidationError{Field: "principal", Message: "Must be a valid decimal number"})
	}
	input.Principal = principal

	if strings.TrimSpace(req.AnnualRatePercent) == "" {
		input.AnnualRatePercent = decimal.Zero
	} else if rate, err := decimal.NewFromString(req.AnnualRatePercent); err != nil {
		verrs = append(verrs, ValidationError{Field: "annualRatePercent", Message: "Must be a valid decimal number"})
	} else {
		input.AnnualRatePercent = rate
	}

	if req.InstallmentAmount != nil && *req.InstallmentAmount != "" {
		amount, err := decimal.NewFromString(*req.InstallmentAmount)
		if err != nil {
			verrs = append(verrs, ValidationError{Field: "installmentAmount", Message: "Must be a valid decimal number"})
		} else {
			input.InstallmentAmount = &amount
		}
	}

	if req.StartDate != "" {
		start, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			verrs = append(verrs, ValidationError{Field: "startDate", Message: "Must be in YYYY-MM-DD format"})
		}
		input.StartDate = start
	}

	for _, a := range req.PaymentScheduleAnchors {
		input.PaymentScheduleAnchors = append(input.PaymentScheduleAnchors, domain.ScheduleAnchor{Month: a.Month, Day: a.Day})
	}

	return input, verrs
}

func toLoanResponse(loan *domain.Loan) LoanResponse {
	resp := LoanResponse{
		ID:                     loan.ID,
		WorkspaceID:            loan.WorkspaceID,
		Name:                   loan.Name,
		Principal:              loan.Principal.StringFixed(2),
		AnnualRatePercent:      loan.AnnualRatePercent.StringFixed(2),
		Frequency:              string(loan.Frequency),
		StartDate:              loan.StartDate.Format(dateLayout),
		PaymentScheduleAnchors: make([]ScheduleAnchorRequest, len(loan.PaymentScheduleAnchors)),
		IsActive:               loan.IsActive,
		PaidCount:              loan.PaidCount(),
		RemainingPrincipal:     amortization.RemainingPrincipal(loan).StringFixed(2),
		Installments:           toInstallmentResponses(loan.Installments),
		CreatedAt:              loan.CreatedAt.Format(time.RFC3339),
		UpdatedAt:              loan.UpdatedAt.Format(time.RFC3339),
	}
	if loan.TenureInPeriods != nil {
		resp.TenureInPeriods = *loan.TenureInPeriods
	}
	if loan.InstallmentAmount != nil {
		resp.InstallmentAmount = loan.InstallmentAmount.StringFixed(2)
	}
	for i, a := range loan.PaymentScheduleAnchors {
		resp.PaymentScheduleAnchors[i] = ScheduleAnchorRequest{Month: a.Month, Day: a.Day}
	}
	return resp
}

func toInstallmentResponses(installments []domain.Installment) []InstallmentResponse {
	result := make([]InstallmentResponse, len(installments))
	for i, inst := range installments {
		result[i] = toInstallmentResponse(inst)
		result[i].Label = inst.FormatLabel(len(installments))
	}
	return result
}

func toInstallmentResponse(inst domain.Installment) InstallmentResponse {
	resp := InstallmentResponse{
		SequenceNumber: inst.SequenceNumber,
		DueDate:        inst.DueDate.Format(dateLayout),
		Amount:         inst.Amount.StringFixed(2),
		Paid:           inst.Paid,
	}
	if inst.PaidAmount != nil {
		amount := inst.PaidAmount.StringFixed(2)
		resp.PaidAmount = &amount
	}
	if inst.PaidDate != nil {
		date := inst.PaidDate.Format(dateLayout)
		resp.PaidDate = &date
	}
	return resp
}
