package domain

import "github.com/shopspring/decimal"

// TaxMode selects how a tax rule is applied to gross income
type TaxMode string

const (
	TaxPercentage TaxMode = "PERCENTAGE"
	TaxFixed      TaxMode = "FIXED"
	TaxHybrid     TaxMode = "HYBRID"
)

type TaxRule struct {
	Mode        TaxMode          `json:"mode"`
	Percent     *decimal.Decimal `json:"percent,omitempty"`
	FixedAmount *decimal.Decimal `json:"fixedAmount,omitempty"`
}

// PortionMode says whether a budget portion is a share of the remaining
// money or a verbatim amount
type PortionMode string

const (
	PortionPercentage PortionMode = "PERCENTAGE"
	PortionAmount     PortionMode = "AMOUNT"
)

type BudgetPortion struct {
	Mode  PortionMode     `json:"mode"`
	Value decimal.Decimal `json:"value"`
}

// Resolve returns the portion's amount against base
func (p BudgetPortion) Resolve(base decimal.Decimal) decimal.Decimal {
	if p.Mode == PortionPercentage {
		return base.Mul(p.Value).Div(decimal.NewFromInt(100))
	}
	return p.Value
}

// ExpenseBudget overrides the money set aside for expenses
type ExpenseBudget struct {
	Expected   BudgetPortion `json:"expected"`
	Unexpected BudgetPortion `json:"unexpected"`
}
