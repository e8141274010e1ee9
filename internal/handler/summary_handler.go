package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/middleware"
	"github.com/dafibh/fortuna/fortuna-planner/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// SummaryHandler handles monthly cash-flow summary requests
type SummaryHandler struct {
	summaryService *service.SummaryService
	exportService  *service.ExportService
}

// NewSummaryHandler creates a new SummaryHandler
func NewSummaryHandler(summaryService *service.SummaryService, exportService *service.ExportService) *SummaryHandler {
	return &SummaryHandler{
		summaryService: summaryService,
		exportService:  exportService,
	}
}

// StageResponse represents one waterfall stage
type StageResponse struct {
	Name      string `json:"name"`
	Deduction string `json:"deduction"`
	Remaining string `json:"remaining"`
}

// AllocationResponse represents a bucket's share of the investment pool
type AllocationResponse struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Type   string `json:"type"`
	Amount string `json:"amount"`
}

// ReconciliationResponse compares planned and actual cash movement
type ReconciliationResponse struct {
	ActualEMIPaid          string `json:"actualEmiPaid"`
	ActualSIPExecuted      string `json:"actualSipExecuted"`
	OneTimePurchases       string `json:"oneTimePurchases"`
	ActualExpenses         string `json:"actualExpenses"`
	Borrowed               string `json:"borrowed"`
	Lent                   string `json:"lent"`
	NetMemberBalance       string `json:"netMemberBalance"`
	CashRemaining          string `json:"cashRemaining"`
	AdditionalTransactions string `json:"additionalTransactions"`
	HasAdditional          bool   `json:"hasAdditional"`
}

// ReturnsResponse represents investment gains
type ReturnsResponse struct {
	CurrentValue string `json:"currentValue"`
	CostBasis    string `json:"costBasis"`
	Gain         string `json:"gain"`
	GainPercent  string `json:"gainPercent"`
}

// MonthlySummaryResponse represents the monthly waterfall API response
type MonthlySummaryResponse struct {
	Year                   int                    `json:"year"`
	Month                  int                    `json:"month"`
	Stages                 []StageResponse        `json:"stages"`
	GrossIncome            string                 `json:"grossIncome"`
	SalaryIncome           string                 `json:"salaryIncome"`
	AdditionalIncome       string                 `json:"additionalIncome"`
	Tax                    string                 `json:"tax"`
	EffectiveTaxRate       string                 `json:"effectiveTaxRate"`
	AfterTax               string                 `json:"afterTax"`
	EMIDue                 string                 `json:"emiDue"`
	AfterEMI               string                 `json:"afterEmi"`
	SIPPlanned             string                 `json:"sipPlanned"`
	SIPCommitmentTotal     string                 `json:"sipCommitmentTotal"`
	AfterSIP               string                 `json:"afterSip"`
	AvailableForExpenses   string                 `json:"availableForExpenses"`
	IsUsingBudget          bool                   `json:"isUsingBudget"`
	BudgetedExpected       string                 `json:"budgetedExpected"`
	BudgetedUnexpected     string                 `json:"budgetedUnexpected"`
	AvailableForInvestment string                 `json:"availableForInvestment"`
	Allocations            []AllocationResponse   `json:"allocations"`
	Unallocated            string                 `json:"unallocated"`
	ActualExpenses         string                 `json:"actualExpenses"`
	PlannedSurplus         string                 `json:"plannedSurplus"`
	Reconciliation         ReconciliationResponse `json:"reconciliation"`
	InvestmentReturns      ReturnsResponse        `json:"investmentReturns"`
}

// BucketAvailabilityResponse represents what is left in one bucket
type BucketAvailabilityResponse struct {
	Key           string `json:"key"`
	Label         string `json:"label"`
	Allocated     string `json:"allocated"`
	SIPCommitment string `json:"sipCommitment"`
	Available     string `json:"available"`
}

// SummaryExportResponse describes a stored summary snapshot
type SummaryExportResponse struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	Encrypted bool   `json:"encrypted"`
	ExpiresAt string `json:"expiresAt"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
}

// GetSummary handles GET /api/v1/summary
// Accepts optional year and month query params, defaulting to the current month
func (h *SummaryHandler) GetSummary(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewValidationError(c, "Workspace required", nil)
	}

	year, month, verr := parseYearMonth(c)
	if verr != nil {
		return NewValidationError(c, verr.Message, []ValidationError{*verr})
	}

	summary, err := h.summaryService.GetMonthlySummary(c.Request().Context(), workspaceID, year, month)
	if err != nil {
		return h.handleSummaryError(c, err, workspaceID, year, month, "Failed to get monthly summary")
	}

	return c.JSON(http.StatusOK, toMonthlySummaryResponse(summary))
}

// GetBucketAvailability handles GET /api/v1/summary/buckets
func (h *SummaryHandler) GetBucketAvailability(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewValidationError(c, "Workspace required", nil)
	}

	year, month, verr := parseYearMonth(c)
	if verr != nil {
		return NewValidationError(c, verr.Message, []ValidationError{*verr})
	}

	buckets, err := h.summaryService.GetBucketAvailability(c.Request().Context(), workspaceID, year, month)
	if err != nil {
		return h.handleSummaryError(c, err, workspaceID, year, month, "Failed to get bucket availability")
	}

	response := make([]BucketAvailabilityResponse, len(buckets))
	for i, b := range buckets {
		response[i] = BucketAvailabilityResponse{
			Key:           string(b.Key),
			Label:         b.Label,
			Allocated:     b.Allocated.StringFixed(2),
			SIPCommitment: b.SIPCommitment.StringFixed(2),
			Available:     b.Available.StringFixed(2),
		}
	}
	return c.JSON(http.StatusOK, response)
}

// ExportSummary handles POST /api/v1/summary/export
func (h *SummaryHandler) ExportSummary(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewValidationError(c, "Workspace required", nil)
	}

	year, month, verr := parseYearMonth(c)
	if verr != nil {
		return NewValidationError(c, verr.Message, []ValidationError{*verr})
	}

	export, err := h.exportService.ExportSummary(c.Request().Context(), workspaceID, year, month)
	if err != nil {
		if errors.Is(err, domain.ErrExportDisabled) {
			return NewServiceUnavailableError(c, "Summary export is not configured")
		}
		return h.handleSummaryError(c, err, workspaceID, year, month, "Failed to export summary")
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Int("year", year).
		Int("month", month).
		Str("key", export.Key).
		Bool("encrypted", export.Encrypted).
		Msg("Summary exported")

	return c.JSON(http.StatusCreated, SummaryExportResponse{
		Key:       export.Key,
		URL:       export.URL,
		Encrypted: export.Encrypted,
		ExpiresAt: export.ExpiresAt.Format(time.RFC3339),
		Year:      export.Year,
		Month:     export.Month,
	})
}

func (h *SummaryHandler) handleSummaryError(c echo.Context, err error, workspaceID int32, year, month int, msg string) error {
	if errors.Is(err, domain.ErrInvalidInput) {
		return NewValidationError(c, err.Error(), nil)
	}
	log.Error().Err(err).Int32("workspace_id", workspaceID).Int("year", year).Int("month", month).Msg(msg)
	return NewInternalError(c, msg)
}

// parseYearMonth reads optional year and month query params (default: current month)
func parseYearMonth(c echo.Context) (int, int, *ValidationError) {
	now := time.Now()
	year := now.Year()
	month := int(now.Month())

	if yearStr := c.QueryParam("year"); yearStr != "" {
		parsedYear, err := strconv.Atoi(yearStr)
		if err != nil {
			return 0, 0, &ValidationError{Field: "year", Message: "Must be a valid integer"}
		}
		if parsedYear < domain.MinYear || parsedYear > domain.MaxYear {
			return 0, 0, &ValidationError{Field: "year", Message: "Must be between 2000 and 2100"}
		}
		year = parsedYear
	}
	if monthStr := c.QueryParam("month"); monthStr != "" {
		parsedMonth, err := strconv.Atoi(monthStr)
		if err != nil {
			return 0, 0, &ValidationError{Field: "month", Message: "Must be a valid integer"}
		}
		if parsedMonth < 1 || parsedMonth > 12 {
			return 0, 0, &ValidationError{Field: "month", Message: "Must be between 1 and 12"}
		}
		month = parsedMonth
	}
	return year, month, nil
}

func toMonthlySummaryResponse(s *domain.MonthlySummary) MonthlySummaryResponse {
	stages := make([]StageResponse, len(s.Stages))
	for i, st := range s.Stages {
		stages[i] = StageResponse{
			Name:      st.Name,
			Deduction: st.Deduction.StringFixed(2),
			Remaining: st.Remaining.StringFixed(2),
		}
	}

	allocations := make([]AllocationResponse, len(s.Allocations))
	for i, a := range s.Allocations {
		allocations[i] = AllocationResponse{
			Key:    string(a.Key),
			Label:  a.Label,
			Type:   string(a.Type),
			Amount: a.Amount.StringFixed(2),
		}
	}

	r := s.Reconciliation
	ret := s.InvestmentReturns
	return MonthlySummaryResponse{
		Year:                   s.Year,
		Month:                  s.Month,
		Stages:                 stages,
		GrossIncome:            s.GrossIncome.StringFixed(2),
		SalaryIncome:           s.SalaryIncome.StringFixed(2),
		AdditionalIncome:       s.AdditionalIncome.StringFixed(2),
		Tax:                    s.Tax.StringFixed(2),
		EffectiveTaxRate:       s.EffectiveTaxRate.StringFixed(2),
		AfterTax:               s.AfterTax.StringFixed(2),
		EMIDue:                 s.EMIDue.StringFixed(2),
		AfterEMI:               s.AfterEMI.StringFixed(2),
		SIPPlanned:             s.SIPPlanned.StringFixed(2),
		SIPCommitmentTotal:     s.SIPCommitmentTotal.StringFixed(2),
		AfterSIP:               s.AfterSIP.StringFixed(2),
		AvailableForExpenses:   s.AvailableForExpenses.StringFixed(2),
		IsUsingBudget:          s.IsUsingBudget,
		BudgetedExpected:       s.BudgetedExpected.StringFixed(2),
		BudgetedUnexpected:     s.BudgetedUnexpected.StringFixed(2),
		AvailableForInvestment: s.AvailableForInvestment.StringFixed(2),
		Allocations:            allocations,
		Unallocated:            s.Unallocated.StringFixed(2),
		ActualExpenses:         s.ActualExpenses.StringFixed(2),
		PlannedSurplus:         s.PlannedSurplus.StringFixed(2),
		Reconciliation: ReconciliationResponse{
			ActualEMIPaid:          r.ActualEMIPaid.StringFixed(2),
			ActualSIPExecuted:      r.ActualSIPExecuted.StringFixed(2),
			OneTimePurchases:       r.OneTimePurchases.StringFixed(2),
			ActualExpenses:         r.ActualExpenses.StringFixed(2),
			Borrowed:               r.Borrowed.StringFixed(2),
			Lent:                   r.Lent.StringFixed(2),
			NetMemberBalance:       r.NetMemberBalance.StringFixed(2),
			CashRemaining:          r.CashRemaining.StringFixed(2),
			AdditionalTransactions: r.AdditionalTransactions.StringFixed(2),
			HasAdditional:          r.HasAdditional,
		},
		InvestmentReturns: ReturnsResponse{
			CurrentValue: ret.CurrentValue.StringFixed(2),
			CostBasis:    ret.CostBasis.StringFixed(2),
			Gain:         ret.Gain.StringFixed(2),
			GainPercent:  ret.GainPercent.StringFixed(2),
		},
	}
}
