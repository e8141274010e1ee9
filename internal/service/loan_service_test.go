package service

import (
	"context"
	"testing"
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func carLoanInput() LoanInput {
	return LoanInput{
		Name:              "  Car loan  ",
		Principal:         decimal.NewFromInt(500000),
		AnnualRatePercent: decimal.RequireFromString("8.5"),
		Frequency:         domain.LoanFrequencyMonthly,
		TenureInPeriods:   intPtr(60),
		StartDate:         time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func newLoanService() (*LoanService, *testutil.MockLoanRepository, *testutil.MockEventPublisher) {
	repo := testutil.NewMockLoanRepository()
	publisher := &testutil.MockEventPublisher{}
	svc := NewLoanService(repo)
	svc.SetEventPublisher(publisher)
	return svc, repo, publisher
}

func TestLoanService_PreviewLoan(t *testing.T) {
	svc, repo, publisher := newLoanService()

	input := carLoanInput()
	input.Name = ""
	preview, err := svc.PreviewLoan(input)
	require.NoError(t, err)

	assert.Equal(t, "10258.27", preview.Solution.InstallmentAmount.StringFixed(2))
	assert.Len(t, preview.Installments, 60)
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), preview.Installments[0].DueDate)
	assert.Empty(t, repo.Loans)
	assert.Empty(t, publisher.Events)
}

func TestLoanService_PreviewLoan_Errors(t *testing.T) {
	svc, _, _ := newLoanService()

	noStart := carLoanInput()
	noStart.StartDate = time.Time{}
	_, err := svc.PreviewLoan(noStart)
	assert.ErrorIs(t, err, domain.ErrLoanStartDateEmpty)

	badFrequency := carLoanInput()
	badFrequency.Frequency = "FORTNIGHTLY"
	_, err = svc.PreviewLoan(badFrequency)
	assert.ErrorIs(t, err, domain.ErrLoanFrequencyUnknown)

	ambiguous := carLoanInput()
	ambiguous.TenureInPeriods = nil
	_, err = svc.PreviewLoan(ambiguous)
	assert.ErrorIs(t, err, domain.ErrAmbiguousLoanSpec)
}

func TestLoanService_CreateLoan(t *testing.T) {
	svc, repo, publisher := newLoanService()

	loan, err := svc.CreateLoan(context.Background(), 1, carLoanInput())
	require.NoError(t, err)

	assert.Equal(t, int32(1), loan.ID)
	assert.Equal(t, "Car loan", loan.Name)
	assert.True(t, loan.IsActive)
	require.NotNil(t, loan.InstallmentAmount)
	assert.Equal(t, "10258.27", loan.InstallmentAmount.StringFixed(2))
	assert.Equal(t, 60, *loan.TenureInPeriods)
	assert.Len(t, loan.Installments, 60)
	assert.Contains(t, repo.Loans, int32(1))
	assert.Equal(t, []string{"loan.created"}, publisher.Types())
	assert.Equal(t, int32(1), publisher.Events[0].WorkspaceID)
}

func TestLoanService_CreateLoan_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *LoanInput)
		wantErr error
	}{
		{"empty name", func(in *LoanInput) { in.Name = "   " }, domain.ErrLoanNameEmpty},
		{"inconsistent pair", func(in *LoanInput) {
			in.TenureInPeriods = intPtr(24)
			in.InstallmentAmount = decPtr("10258.27")
		}, domain.ErrInconsistentLoanSpec},
		{"schedule mismatch", func(in *LoanInput) {
			in.Frequency = domain.LoanFrequencyQuarterly
			in.PaymentScheduleAnchors = []domain.ScheduleAnchor{{Month: 3, Day: 31}}
			in.TenureInPeriods = intPtr(8)
		}, domain.ErrScheduleMismatch},
		{"negative principal", func(in *LoanInput) { in.Principal = decimal.NewFromInt(-5) }, domain.ErrInvalidLoanParameters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, publisher := newLoanService()
			input := carLoanInput()
			tt.mutate(&input)

			_, err := svc.CreateLoan(context.Background(), 1, input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.Loans)
			assert.Empty(t, publisher.Events)
		})
	}
}

func TestLoanService_UpdateLoan_KeepsPaidInstallments(t *testing.T) {
	svc, _, publisher := newLoanService()
	ctx := context.Background()

	input := carLoanInput()
	input.TenureInPeriods = intPtr(6)
	input.Principal = decimal.NewFromInt(6000)
	input.AnnualRatePercent = decimal.Zero
	loan, err := svc.CreateLoan(ctx, 1, input)
	require.NoError(t, err)

	paidAmount := decimal.NewFromInt(1200)
	_, err = svc.PayInstallment(ctx, 1, loan.ID, 1, PayInstallmentInput{
		PaidAmount: &paidAmount,
		PaidDate:   time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = svc.PayInstallment(ctx, 1, loan.ID, 2, PayInstallmentInput{
		PaidDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// stretch to 12 installments
	input.TenureInPeriods = intPtr(12)
	updated, err := svc.UpdateLoan(ctx, 1, loan.ID, input)
	require.NoError(t, err)

	require.Len(t, updated.Installments, 12)
	for i, inst := range updated.Installments {
		assert.Equal(t, i+1, inst.SequenceNumber)
	}
	assert.True(t, updated.Installments[0].Paid)
	assert.True(t, updated.Installments[0].PaidAmount.Equal(paidAmount))
	assert.True(t, updated.Installments[0].Amount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, updated.Installments[1].Paid)
	assert.False(t, updated.Installments[2].Paid)
	assert.True(t, updated.Installments[2].Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, loan.CreatedAt, updated.CreatedAt)

	assert.Equal(t, []string{"loan.created", "installment.paid", "installment.paid", "loan.updated"}, publisher.Types())
}

func TestLoanService_UpdateLoan_NotFound(t *testing.T) {
	svc, _, _ := newLoanService()
	_, err := svc.UpdateLoan(context.Background(), 1, 99, carLoanInput())
	assert.ErrorIs(t, err, domain.ErrLoanNotFound)
}

func TestLoanService_PayInstallment_Errors(t *testing.T) {
	svc, _, _ := newLoanService()
	ctx := context.Background()
	loan, err := svc.CreateLoan(ctx, 1, carLoanInput())
	require.NoError(t, err)
	paidDate := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	_, err = svc.PayInstallment(ctx, 2, loan.ID, 1, PayInstallmentInput{PaidDate: paidDate})
	assert.ErrorIs(t, err, domain.ErrLoanNotFound)

	_, err = svc.PayInstallment(ctx, 1, loan.ID, 61, PayInstallmentInput{PaidDate: paidDate})
	assert.ErrorIs(t, err, domain.ErrInstallmentNotFound)

	zero := decimal.Zero
	_, err = svc.PayInstallment(ctx, 1, loan.ID, 1, PayInstallmentInput{PaidAmount: &zero, PaidDate: paidDate})
	assert.ErrorIs(t, err, domain.ErrInstallmentAmountInvalid)

	_, err = svc.PayInstallment(ctx, 1, loan.ID, 1, PayInstallmentInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	paid, err := svc.PayInstallment(ctx, 1, loan.ID, 1, PayInstallmentInput{PaidDate: paidDate})
	require.NoError(t, err)
	assert.True(t, paid.PaidAmount.Equal(paid.Amount))

	_, err = svc.PayInstallment(ctx, 1, loan.ID, 1, PayInstallmentInput{PaidDate: paidDate})
	assert.ErrorIs(t, err, domain.ErrInstallmentAlreadyPaid)
}

func TestLoanService_DeleteLoan(t *testing.T) {
	svc, repo, publisher := newLoanService()
	ctx := context.Background()
	loan, err := svc.CreateLoan(ctx, 1, carLoanInput())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteLoan(ctx, 2, loan.ID), domain.ErrLoanNotFound)
	require.NoError(t, svc.DeleteLoan(ctx, 1, loan.ID))
	assert.Empty(t, repo.Loans)
	assert.Equal(t, "loan.deleted", publisher.Types()[1])
}

func TestLoanService_ListLoans(t *testing.T) {
	svc, _, _ := newLoanService()
	ctx := context.Background()
	_, err := svc.CreateLoan(ctx, 1, carLoanInput())
	require.NoError(t, err)
	_, err = svc.CreateLoan(ctx, 2, carLoanInput())
	require.NoError(t, err)

	loans, err := svc.ListLoans(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, loans, 1)
}
