package postgres

import (
	"testing"
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLoanParams_AnchorsEncodedAsJSONArray(t *testing.T) {
	loan := &domain.Loan{
		Principal:         decimal.NewFromInt(100000),
		AnnualRatePercent: decimal.RequireFromString("10"),
		Frequency:         domain.LoanFrequencyMonthly,
	}
	p, err := toLoanParams(loan)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(p.anchors))
	assert.False(t, p.tenure.Valid)
	assert.False(t, p.installment.Valid)

	loan.PaymentScheduleAnchors = []domain.ScheduleAnchor{{Month: 3, Day: 31}, {Month: 9, Day: 30}}
	p, err = toLoanParams(loan)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"month":3,"day":31},{"month":9,"day":30}]`, string(p.anchors))
}

func TestLoanRowToDomain(t *testing.T) {
	tenure := 24
	installment := decimal.RequireFromString("4614.49")
	loan := &domain.Loan{
		Principal:              decimal.NewFromInt(100000),
		AnnualRatePercent:      decimal.RequireFromString("10"),
		Frequency:              domain.LoanFrequencyHalfYearly,
		TenureInPeriods:        &tenure,
		InstallmentAmount:      &installment,
		PaymentScheduleAnchors: []domain.ScheduleAnchor{{Month: 1, Day: 15}, {Month: 7, Day: 15}},
	}
	p, err := toLoanParams(loan)
	require.NoError(t, err)

	row := &loanRow{
		ID:                7,
		WorkspaceID:       3,
		Name:              "Car",
		Principal:         p.principal,
		AnnualRatePercent: p.rate,
		Frequency:         string(loan.Frequency),
		TenureInPeriods:   p.tenure,
		InstallmentAmount: p.installment,
		StartDate:         timeToPgDate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
		ScheduleAnchors:   p.anchors,
		IsActive:          true,
	}
	got, err := row.toDomain()
	require.NoError(t, err)
	assert.Equal(t, int32(7), got.ID)
	assert.Equal(t, domain.LoanFrequencyHalfYearly, got.Frequency)
	assert.True(t, got.Principal.Equal(loan.Principal))
	require.NotNil(t, got.TenureInPeriods)
	assert.Equal(t, 24, *got.TenureInPeriods)
	require.NotNil(t, got.InstallmentAmount)
	assert.True(t, got.InstallmentAmount.Equal(installment))
	assert.Equal(t, loan.PaymentScheduleAnchors, got.PaymentScheduleAnchors)
}
