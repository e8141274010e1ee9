package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanNameEmpty        = errors.New("loan name is required")
	ErrLoanNameTooLong      = errors.New("loan name must be 200 characters or less")
	ErrLoanStartDateEmpty   = errors.New("loan start date is required")
	ErrLoanFrequencyUnknown = errors.New("unknown loan frequency")
)

// LoanFrequency is the repayment cadence of a loan
type LoanFrequency string

const (
	LoanFrequencyMonthly    LoanFrequency = "MONTHLY"
	LoanFrequencyQuarterly  LoanFrequency = "QUARTERLY"
	LoanFrequencyHalfYearly LoanFrequency = "HALF_YEARLY"
	LoanFrequencyAnnually   LoanFrequency = "ANNUALLY"
	LoanFrequencyCustom     LoanFrequency = "CUSTOM"
)

// IsValid reports whether f is a known loan frequency
func (f LoanFrequency) IsValid() bool {
	switch f {
	case LoanFrequencyMonthly, LoanFrequencyQuarterly, LoanFrequencyHalfYearly,
		LoanFrequencyAnnually, LoanFrequencyCustom:
		return true
	}
	return false
}

// ScheduleAnchor is a (month, day) inside a year on which an installment falls due
type ScheduleAnchor struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

type Loan struct {
	ID                     int32            `json:"id"`
	WorkspaceID            int32            `json:"workspaceId"`
	Name                   string           `json:"name"`
	Principal              decimal.Decimal  `json:"principal"`
	AnnualRatePercent      decimal.Decimal  `json:"annualRatePercent"`
	Frequency              LoanFrequency    `json:"frequency"`
	TenureInPeriods        *int             `json:"tenureInPeriods,omitempty"`
	InstallmentAmount      *decimal.Decimal `json:"installmentAmount,omitempty"`
	StartDate              time.Time        `json:"startDate"`
	PaymentScheduleAnchors []ScheduleAnchor `json:"paymentScheduleAnchors"`
	IsActive               bool             `json:"isActive"`
	Installments           []Installment    `json:"installments,omitempty"`
	CreatedAt              time.Time        `json:"createdAt"`
	UpdatedAt              time.Time        `json:"updatedAt"`
}

// Validate checks the fields the amortization engine does not own
func (l *Loan) Validate() error {
	if l.Name == "" {
		return ErrLoanNameEmpty
	}
	if len(l.Name) > MaxLoanNameLength {
		return ErrLoanNameTooLong
	}
	if l.StartDate.IsZero() {
		return ErrLoanStartDateEmpty
	}
	if !l.Frequency.IsValid() {
		return ErrLoanFrequencyUnknown
	}
	return nil
}

// PaidCount returns how many installments are marked paid
func (l *Loan) PaidCount() int {
	n := 0
	for _, inst := range l.Installments {
		if inst.Paid {
			n++
		}
	}
	return n
}

type LoanRepository interface {
	// Create stores the loan together with its installments atomically
	Create(ctx context.Context, loan *Loan) (*Loan, error)
	GetByID(ctx context.Context, workspaceID int32, id int32) (*Loan, error)
	ListByWorkspace(ctx context.Context, workspaceID int32) ([]*Loan, error)
	// Update rewrites the loan row and replaces its installment list atomically
	Update(ctx context.Context, loan *Loan) (*Loan, error)
	MarkInstallmentPaid(ctx context.Context, loanID int32, sequenceNumber int, paidAmount decimal.Decimal, paidDate time.Time) (*Installment, error)
	Delete(ctx context.Context, workspaceID int32, id int32) error
}
