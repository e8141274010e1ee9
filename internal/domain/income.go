package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalaryRecord is a base salary valid over a date range
type SalaryRecord struct {
	Amount        decimal.Decimal `json:"amount"`
	EffectiveFrom time.Time       `json:"effectiveFrom"`
	EffectiveTo   *time.Time      `json:"effectiveTo,omitempty"`
}

// IncomeEntry is an ad-hoc income such as a bonus or freelance payment
type IncomeEntry struct {
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
	Source string          `json:"source"`
}

// InvestmentReturns compares current holdings value with their cost basis
type InvestmentReturns struct {
	CurrentValue decimal.Decimal `json:"currentValue"`
	CostBasis    decimal.Decimal `json:"costBasis"`
}

type MemberTransactionType string

const (
	MemberOwe                MemberTransactionType = "OWE"
	MemberExpensePaidByThem  MemberTransactionType = "EXPENSE_PAID_BY_THEM"
	MemberGave               MemberTransactionType = "GAVE"
	MemberExpensePaidForThem MemberTransactionType = "EXPENSE_PAID_FOR_THEM"
)

// MemberTransaction is a ledger line between the user and another person
type MemberTransaction struct {
	MemberName string                `json:"memberName"`
	Type       MemberTransactionType `json:"type"`
	Amount     decimal.Decimal       `json:"amount"`
	Settled    bool                  `json:"settled"`
}
