package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLedger(ledger *testutil.MockLedgerRepository, workspaceID int32) {
	percent := decimal.NewFromInt(5)
	fixed := decimal.NewFromInt(2000)
	equity := decimal.NewFromInt(60)
	gold := decimal.NewFromInt(5000)

	sip, err := domain.NewRecurringCommitment(decimal.NewFromInt(10000), domain.FrequencyMonthly,
		time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), nil, nil)
	if err != nil {
		panic(err)
	}

	ledger.SalaryHistory[workspaceID] = []domain.SalaryRecord{
		{Amount: decimal.NewFromInt(100000), EffectiveFrom: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	ledger.TaxRules[workspaceID] = &domain.TaxRule{Mode: domain.TaxHybrid, Percent: &percent, FixedAmount: &fixed}
	ledger.SIPs[workspaceID] = []domain.SIP{
		{ID: 1, Name: "Index fund", BucketKey: domain.BucketEquity, Commitment: sip, IsActive: true},
	}
	ledger.Buckets[workspaceID] = []domain.AllocationBucket{
		{Key: domain.BucketEquity, Type: domain.AllocationPercentage, Percent: &equity},
		{Key: domain.BucketGold, Type: domain.AllocationAmount, FixedAmount: &gold},
	}
	ledger.Expenses[workspaceID] = decimal.NewFromInt(33000)
	ledger.SIPExecutions[workspaceID] = decimal.NewFromInt(10000)
}

func TestSummaryService_GetMonthlySummary(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	ledger := testutil.NewMockLedgerRepository()
	seedLedger(ledger, 1)

	loanRepo.AddLoan(&domain.Loan{
		ID:          1,
		WorkspaceID: 1,
		Name:        "Car loan",
		IsActive:    true,
		Installments: []domain.Installment{
			{SequenceNumber: 1, DueDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(10000)},
			{SequenceNumber: 2, DueDate: time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(10000)},
		},
	})
	ledger.PaidEMIs[1] = domain.PaidEMITotals{CurrentMonth: decimal.NewFromInt(10000)}

	svc := NewSummaryService(loanRepo, ledger)
	summary, err := svc.GetMonthlySummary(context.Background(), 1, 2024, 3)
	require.NoError(t, err)

	assert.Equal(t, "100000.00", summary.GrossIncome.StringFixed(2))
	assert.Equal(t, "7000.00", summary.Tax.StringFixed(2))
	assert.Equal(t, "10000.00", summary.EMIDue.StringFixed(2))
	assert.Equal(t, "10000.00", summary.SIPPlanned.StringFixed(2))
	assert.Equal(t, "73000.00", summary.AfterSIP.StringFixed(2))
	assert.Equal(t, "40000.00", summary.AvailableForInvestment.StringFixed(2))
	require.Len(t, summary.Allocations, 2)
	assert.Equal(t, "24000.00", summary.Allocations[0].Amount.StringFixed(2))
	assert.Equal(t, "11000.00", summary.Unallocated.StringFixed(2))
	assert.True(t, summary.Reconciliation.CashRemaining.Equal(summary.PlannedSurplus))

	for _, method := range []string{"GetSalaryHistory", "SumPaidEMIs", "GetInvestmentReturns", "GetUnsettledMemberTransactions"} {
		assert.Equal(t, 1, ledger.CallCount(method), method)
	}
}

func TestSummaryService_GetMonthlySummary_InvalidMonth(t *testing.T) {
	svc := NewSummaryService(testutil.NewMockLoanRepository(), testutil.NewMockLedgerRepository())

	_, err := svc.GetMonthlySummary(context.Background(), 1, 2024, 13)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.GetMonthlySummary(context.Background(), 1, 1999, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSummaryService_GetMonthlySummary_RepositoryError(t *testing.T) {
	ledger := testutil.NewMockLedgerRepository()
	ledger.Err = errors.New("connection refused")
	svc := NewSummaryService(testutil.NewMockLoanRepository(), ledger)

	_, err := svc.GetMonthlySummary(context.Background(), 1, 2024, 3)
	assert.EqualError(t, err, "connection refused")
}

func TestSummaryService_GetMonthlySummary_EmptyWorkspace(t *testing.T) {
	svc := NewSummaryService(testutil.NewMockLoanRepository(), testutil.NewMockLedgerRepository())

	summary, err := svc.GetMonthlySummary(context.Background(), 42, 2024, 3)
	require.NoError(t, err)
	assert.True(t, summary.GrossIncome.IsZero())
	assert.True(t, summary.Reconciliation.CashRemaining.IsZero())
	assert.False(t, summary.IsUsingBudget)
}

func TestSummaryService_GetBucketAvailability(t *testing.T) {
	ledger := testutil.NewMockLedgerRepository()
	seedLedger(ledger, 1)
	svc := NewSummaryService(testutil.NewMockLoanRepository(), ledger)

	buckets, err := svc.GetBucketAvailability(context.Background(), 1, 2024, 3)
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	// pool = 100000 - 7000 - 10000 - 33000 = 50000; equity 60% = 30000
	assert.Equal(t, domain.BucketEquity, buckets[0].Key)
	assert.Equal(t, "30000.00", buckets[0].Allocated.StringFixed(2))
	assert.Equal(t, "10000.00", buckets[0].SIPCommitment.StringFixed(2))
	assert.Equal(t, "20000.00", buckets[0].Available.StringFixed(2))
	assert.Equal(t, "5000.00", buckets[1].Available.StringFixed(2))
}
