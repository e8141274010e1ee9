package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInstallmentNotFound      = errors.New("installment not found")
	ErrInstallmentAlreadyPaid   = errors.New("installment is already paid")
	ErrInstallmentAmountInvalid = errors.New("paid amount must be positive")
)

// Installment is one scheduled repayment of a loan
type Installment struct {
	SequenceNumber int              `json:"sequenceNumber"`
	DueDate        time.Time        `json:"dueDate"`
	Amount         decimal.Decimal  `json:"amount"`
	Paid           bool             `json:"paid"`
	PaidAmount     *decimal.Decimal `json:"paidAmount,omitempty"`
	PaidDate       *time.Time       `json:"paidDate,omitempty"`
}

// FormatLabel returns a label like "3/60" for installment 3 of 60
func (i *Installment) FormatLabel(total int) string {
	return fmt.Sprintf("%d/%d", i.SequenceNumber, total)
}

// IsDueIn reports whether the installment falls due in the given calendar month
func (i *Installment) IsDueIn(year, month int) bool {
	return i.DueDate.Year() == year && int(i.DueDate.Month()) == month
}

// PaidEMITotals splits EMI money actually paid during a month
type PaidEMITotals struct {
	// CurrentMonth is paid this month against installments due this month
	CurrentMonth decimal.Decimal `json:"currentMonth"`
	// Additional covers advance and backlog payments made this month
	Additional decimal.Decimal `json:"additional"`
}

// Total returns all EMI money paid during the month
func (p PaidEMITotals) Total() decimal.Decimal {
	return p.CurrentMonth.Add(p.Additional)
}
