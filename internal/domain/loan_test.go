package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoanValidate(t *testing.T) {
	valid := func() *Loan {
		return &Loan{
			Name:      "Home Loan",
			Frequency: LoanFrequencyMonthly,
			StartDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		}
	}

	tests := []struct {
		name    string
		mutate  func(l *Loan)
		wantErr error
	}{
		{name: "valid", mutate: func(l *Loan) {}},
		{name: "unknown frequency", mutate: func(l *Loan) { l.Frequency = "WEEKLY" }, wantErr: ErrLoanFrequencyUnknown},
		{name: "empty name", mutate: func(l *Loan) { l.Name = "" }, wantErr: ErrLoanNameEmpty},
		{name: "long name", mutate: func(l *Loan) { l.Name = strings.Repeat("a", MaxLoanNameLength+1) }, wantErr: ErrLoanNameTooLong},
		{name: "missing start date", mutate: func(l *Loan) { l.StartDate = time.Time{} }, wantErr: ErrLoanStartDateEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := valid()
			tt.mutate(loan)
			err := loan.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoan_PaidCount(t *testing.T) {
	loan := &Loan{Installments: []Installment{
		{SequenceNumber: 1, Paid: true},
		{SequenceNumber: 2},
		{SequenceNumber: 3, Paid: true},
	}}
	assert.Equal(t, 2, loan.PaidCount())
}
