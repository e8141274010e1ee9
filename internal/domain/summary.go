package domain

import "github.com/shopspring/decimal"

// Stage names of the monthly waterfall, in order
const (
	StageGrossIncome            = "gross_income"
	StageAfterTax               = "after_tax"
	StageAfterEMI               = "after_emi"
	StageAfterSIP               = "after_sip"
	StageAvailableForExpenses   = "available_for_expenses"
	StageAvailableForInvestment = "available_for_investment"
	StageSurplus                = "surplus"
)

// WaterfallStage is one step of the waterfall. Remaining is never clamped;
// a negative value signals a deficit.
type WaterfallStage struct {
	Name      string          `json:"name"`
	Deduction decimal.Decimal `json:"deduction"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Reconciliation compares the plan with cash that actually moved
type Reconciliation struct {
	ActualEMIPaid          decimal.Decimal `json:"actualEmiPaid"`
	ActualSIPExecuted      decimal.Decimal `json:"actualSipExecuted"`
	OneTimePurchases       decimal.Decimal `json:"oneTimePurchases"`
	ActualExpenses         decimal.Decimal `json:"actualExpenses"`
	Borrowed               decimal.Decimal `json:"borrowed"`
	Lent                   decimal.Decimal `json:"lent"`
	NetMemberBalance       decimal.Decimal `json:"netMemberBalance"`
	CashRemaining          decimal.Decimal `json:"cashRemaining"`
	AdditionalTransactions decimal.Decimal `json:"additionalTransactions"`
	HasAdditional          bool            `json:"hasAdditional"`
}

// ReturnsSummary holds gains on holdings bought this month
type ReturnsSummary struct {
	CurrentValue decimal.Decimal `json:"currentValue"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	Gain         decimal.Decimal `json:"gain"`
	GainPercent  decimal.Decimal `json:"gainPercent"`
}

// MonthlySummary is the computed cash-flow waterfall for one month.
// It is built fresh for every query and never stored by the engine.
type MonthlySummary struct {
	Year   int              `json:"year"`
	Month  int              `json:"month"`
	Stages []WaterfallStage `json:"stages"`

	GrossIncome      decimal.Decimal `json:"grossIncome"`
	SalaryIncome     decimal.Decimal `json:"salaryIncome"`
	AdditionalIncome decimal.Decimal `json:"additionalIncome"`

	Tax              decimal.Decimal `json:"tax"`
	EffectiveTaxRate decimal.Decimal `json:"effectiveTaxRate"`
	AfterTax         decimal.Decimal `json:"afterTax"`

	EMIDue   decimal.Decimal `json:"emiDue"`
	AfterEMI decimal.Decimal `json:"afterEmi"`

	SIPPlanned decimal.Decimal `json:"sipPlanned"`
	// SIPCommitmentTotal is the flat run-rate of active SIPs, not what falls due this month
	SIPCommitmentTotal decimal.Decimal `json:"sipCommitmentTotal"`
	AfterSIP           decimal.Decimal `json:"afterSip"`

	AvailableForExpenses decimal.Decimal `json:"availableForExpenses"`
	IsUsingBudget        bool            `json:"isUsingBudget"`
	BudgetedExpected     decimal.Decimal `json:"budgetedExpected"`
	BudgetedUnexpected   decimal.Decimal `json:"budgetedUnexpected"`

	AvailableForInvestment decimal.Decimal  `json:"availableForInvestment"`
	Allocations            []AllocationLine `json:"allocations"`
	Unallocated            decimal.Decimal  `json:"unallocated"`

	ActualExpenses decimal.Decimal `json:"actualExpenses"`
	PlannedSurplus decimal.Decimal `json:"plannedSurplus"`

	Reconciliation    Reconciliation `json:"reconciliation"`
	InvestmentReturns ReturnsSummary `json:"investmentReturns"`
}

// Stage returns the named stage, or false if it is absent
func (s *MonthlySummary) Stage(name string) (WaterfallStage, bool) {
	for _, st := range s.Stages {
		if st.Name == name {
			return st, true
		}
	}
	return WaterfallStage{}, false
}
