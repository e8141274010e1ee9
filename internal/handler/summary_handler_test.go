package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/service"
	"github.com/dafibh/fortuna/fortuna-planner/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSummaryHandler(store domain.ExportStore) (*SummaryHandler, *testutil.MockLedgerRepository) {
	ledger := testutil.NewMockLedgerRepository()
	equity := decimal.NewFromInt(60)
	sip, err := domain.NewRecurringCommitment(decimal.NewFromInt(10000), domain.FrequencyMonthly,
		time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), nil, nil)
	if err != nil {
		panic(err)
	}

	ledger.SalaryHistory[1] = []domain.SalaryRecord{
		{Amount: decimal.NewFromInt(100000), EffectiveFrom: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	ledger.SIPs[1] = []domain.SIP{
		{ID: 1, Name: "Index fund", BucketKey: domain.BucketEquity, Commitment: sip, IsActive: true},
	}
	ledger.Buckets[1] = []domain.AllocationBucket{
		{Key: domain.BucketEquity, Type: domain.AllocationPercentage, Percent: &equity},
	}
	ledger.Expenses[1] = decimal.NewFromInt(30000)

	summaries := service.NewSummaryService(testutil.NewMockLoanRepository(), ledger)
	exports := service.NewExportService(summaries, store, "", 15*time.Minute)
	return NewSummaryHandler(summaries, exports), ledger
}

func newSummaryContext(e *echo.Echo, method, target string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setWorkspace(c, 1)
	return c, rec
}

func TestGetSummary_Success(t *testing.T) {
	e := echo.New()
	h, _ := newSummaryHandler(nil)

	c, rec := newSummaryContext(e, http.MethodGet, "/api/v1/summary?year=2024&month=3")
	require.NoError(t, h.GetSummary(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp MonthlySummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2024, resp.Year)
	assert.Equal(t, 3, resp.Month)
	assert.Equal(t, "100000.00", resp.GrossIncome)
	assert.Equal(t, "10000.00", resp.SIPPlanned)
	assert.Equal(t, "90000.00", resp.AfterSIP)
	assert.Equal(t, "60000.00", resp.AvailableForInvestment)
	assert.Equal(t, "24000.00", resp.Unallocated)
	require.Len(t, resp.Allocations, 1)
	assert.Equal(t, "36000.00", resp.Allocations[0].Amount)

	names := make([]string, len(resp.Stages))
	for i, st := range resp.Stages {
		names[i] = st.Name
	}
	assert.Equal(t, []string{
		domain.StageGrossIncome, domain.StageAfterTax, domain.StageAfterEMI, domain.StageAfterSIP,
		domain.StageAvailableForExpenses, domain.StageAvailableForInvestment, domain.StageSurplus,
	}, names)
}

func TestGetSummary_InvalidParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"year not a number", "?year=abc&month=3", "year"},
		{"year out of range", "?year=1999&month=3", "year"},
		{"month out of range", "?year=2024&month=13", "month"},
		{"month zero", "?year=2024&month=0", "month"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			h, _ := newSummaryHandler(nil)

			c, rec := newSummaryContext(e, http.MethodGet, "/api/v1/summary"+tt.query)
			require.NoError(t, h.GetSummary(c))
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var problem ProblemDetails
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.Len(t, problem.Errors, 1)
			assert.Equal(t, tt.field, problem.Errors[0].Field)
		})
	}
}

func TestGetSummary_RepositoryFailure(t *testing.T) {
	e := echo.New()
	h, ledger := newSummaryHandler(nil)
	ledger.Err = errors.New("connection refused")

	c, rec := newSummaryContext(e, http.MethodGet, "/api/v1/summary?year=2024&month=3")
	require.NoError(t, h.GetSummary(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestGetBucketAvailability(t *testing.T) {
	e := echo.New()
	h, _ := newSummaryHandler(nil)

	c, rec := newSummaryContext(e, http.MethodGet, "/api/v1/summary/buckets?year=2024&month=3")
	require.NoError(t, h.GetBucketAvailability(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []BucketAvailabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "EQUITY", resp[0].Key)
	assert.Equal(t, "36000.00", resp[0].Allocated)
	assert.Equal(t, "10000.00", resp[0].SIPCommitment)
	assert.Equal(t, "26000.00", resp[0].Available)
}

func TestExportSummary_Disabled(t *testing.T) {
	e := echo.New()
	h, _ := newSummaryHandler(nil)

	c, rec := newSummaryContext(e, http.MethodPost, "/api/v1/summary/export?year=2024&month=3")
	require.NoError(t, h.ExportSummary(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExportSummary_Success(t *testing.T) {
	e := echo.New()
	store := testutil.NewMockExportStore()
	h, _ := newSummaryHandler(store)

	c, rec := newSummaryContext(e, http.MethodPost, "/api/v1/summary/export?year=2024&month=3")
	require.NoError(t, h.ExportSummary(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp SummaryExportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Key, "exports/1/2024-03/"))
	assert.False(t, resp.Encrypted)
	assert.Contains(t, store.Objects, resp.Key)
	assert.NotEmpty(t, resp.URL)
}
