// Package waterfall composes one month's income, tax, debt service, SIPs,
// budget and allocations into an ordered cash-flow summary and reconciles it
// against money that actually moved. Everything here is pure: the caller
// gathers the inputs and the reference month is always explicit.
package waterfall

import (
	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Input is everything needed to compute one month. Optional configuration
// (TaxRule, ExpenseBudget, Buckets) may be nil or empty.
type Input struct {
	Year  int
	Month int

	SalaryHistory []domain.SalaryRecord
	IncomeEntries []domain.IncomeEntry
	TaxRule       *domain.TaxRule

	Loans []*domain.Loan
	SIPs  []domain.SIP

	ExpenseBudget *domain.ExpenseBudget
	Buckets       []domain.AllocationBucket

	ActualExpenses     decimal.Decimal
	OneTimePurchases   decimal.Decimal
	SIPExecuted        decimal.Decimal
	PaidEMI            domain.PaidEMITotals
	MemberTransactions []domain.MemberTransaction
	InvestmentReturns  domain.InvestmentReturns
}

// ComputeMonthlySummary runs the waterfall for in.Year/in.Month.
//
// Stages are gross income, after tax, after EMI, after SIP, available for
// expenses, available for investment and surplus. The two "available" stages
// are views of the after-SIP money; surplus deducts actual expenses from it.
// Remainders are never clamped, so a negative value signals a deficit.
func ComputeMonthlySummary(in Input) *domain.MonthlySummary {
	s := &domain.MonthlySummary{Year: in.Year, Month: in.Month}

	// 1. income
	s.SalaryIncome = SelectSalary(in.SalaryHistory, in.Year, in.Month)
	s.AdditionalIncome = SumIncomeEntries(in.IncomeEntries, in.Year, in.Month)
	s.GrossIncome = s.SalaryIncome.Add(s.AdditionalIncome)

	// 2. tax
	s.Tax = TaxDeduction(in.TaxRule, s.GrossIncome)
	s.EffectiveTaxRate = EffectiveTaxRate(s.Tax, s.GrossIncome)
	s.AfterTax = s.GrossIncome.Sub(s.Tax)

	// 3. scheduled EMIs
	s.EMIDue = EMIDue(in.Loans, in.Year, in.Month)
	s.AfterEMI = s.AfterTax.Sub(s.EMIDue)

	// 4. SIPs
	s.SIPPlanned = SIPDue(in.SIPs, in.Year, in.Month)
	s.SIPCommitmentTotal = SIPCommitmentTotal(in.SIPs, in.Year, in.Month)
	s.AfterSIP = s.AfterEMI.Sub(s.SIPPlanned)

	s.ActualExpenses = in.ActualExpenses
	s.PlannedSurplus = s.AfterSIP.Sub(in.ActualExpenses)

	// 5. and 6. expense budget and the investment pool
	expenseDeduction := in.ActualExpenses
	if in.ExpenseBudget != nil {
		s.IsUsingBudget = true
		s.BudgetedExpected = in.ExpenseBudget.Expected.Resolve(s.AfterSIP)
		s.BudgetedUnexpected = in.ExpenseBudget.Unexpected.Resolve(s.AfterSIP)
		s.AvailableForExpenses = s.BudgetedExpected.Add(s.BudgetedUnexpected)
		s.AvailableForInvestment = s.AfterSIP.Sub(s.AvailableForExpenses)
		expenseDeduction = s.AvailableForExpenses
	} else {
		s.AvailableForExpenses = s.AfterSIP
		s.AvailableForInvestment = s.PlannedSurplus
	}

	// 7. allocations
	s.Allocations, s.Unallocated = Allocate(s.AvailableForInvestment, in.Buckets)

	s.Stages = []domain.WaterfallStage{
		{Name: domain.StageGrossIncome, Deduction: decimal.Zero, Remaining: s.GrossIncome},
		{Name: domain.StageAfterTax, Deduction: s.Tax, Remaining: s.AfterTax},
		{Name: domain.StageAfterEMI, Deduction: s.EMIDue, Remaining: s.AfterEMI},
		{Name: domain.StageAfterSIP, Deduction: s.SIPPlanned, Remaining: s.AfterSIP},
		{Name: domain.StageAvailableForExpenses, Deduction: decimal.Zero, Remaining: s.AvailableForExpenses},
		{Name: domain.StageAvailableForInvestment, Deduction: expenseDeduction, Remaining: s.AvailableForInvestment},
		{Name: domain.StageSurplus, Deduction: in.ActualExpenses, Remaining: s.PlannedSurplus},
	}

	// 8. and 9. reconciliation and returns
	s.Reconciliation = Reconcile(s, in)
	s.InvestmentReturns = Returns(in.InvestmentReturns)

	return s
}
