package waterfall

import (
	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/shopspring/decimal"
)

// AggregateMemberBalances totals unsettled member transactions. OWE and
// EXPENSE_PAID_BY_THEM are money borrowed from others; GAVE and
// EXPENSE_PAID_FOR_THEM are money lent to them.
func AggregateMemberBalances(txs []domain.MemberTransaction) (borrowed, lent decimal.Decimal) {
	borrowed, lent = decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.Settled {
			continue
		}
		switch tx.Type {
		case domain.MemberOwe, domain.MemberExpensePaidByThem:
			borrowed = borrowed.Add(tx.Amount)
		case domain.MemberGave, domain.MemberExpensePaidForThem:
			lent = lent.Add(tx.Amount)
		}
	}
	return borrowed, lent
}

// Reconcile computes the actual-cash view of the month:
//
//	cash = gross - tax - paid EMIs - executed SIPs - one-time purchases
//	       - actual expenses - borrowed + lent
//
// It equals the planned surplus when payments match the plan and nothing
// else moved. Paying or executing more than planned is flagged as
// additional transactions.
func Reconcile(s *domain.MonthlySummary, in Input) domain.Reconciliation {
	borrowed, lent := AggregateMemberBalances(in.MemberTransactions)
	paidEMI := in.PaidEMI.Total()

	cash := s.GrossIncome.
		Sub(s.Tax).
		Sub(paidEMI).
		Sub(in.SIPExecuted).
		Sub(in.OneTimePurchases).
		Sub(in.ActualExpenses).
		Sub(borrowed).
		Add(lent)

	actual := paidEMI.Add(in.SIPExecuted)
	planned := s.EMIDue.Add(s.SIPPlanned)
	additional := decimal.Max(actual.Sub(planned), decimal.Zero)

	return domain.Reconciliation{
		ActualEMIPaid:          paidEMI,
		ActualSIPExecuted:      in.SIPExecuted,
		OneTimePurchases:       in.OneTimePurchases,
		ActualExpenses:         in.ActualExpenses,
		Borrowed:               borrowed,
		Lent:                   lent,
		NetMemberBalance:       lent.Sub(borrowed),
		CashRemaining:          cash,
		AdditionalTransactions: additional,
		HasAdditional:          additional.IsPositive(),
	}
}

// Returns computes gains on holdings, 0% when nothing was invested
func Returns(r domain.InvestmentReturns) domain.ReturnsSummary {
	gain := r.CurrentValue.Sub(r.CostBasis)
	percent := decimal.Zero
	if !r.CostBasis.IsZero() {
		percent = gain.Div(r.CostBasis).Mul(hundred).Round(2)
	}
	return domain.ReturnsSummary{
		CurrentValue: r.CurrentValue,
		CostBasis:    r.CostBasis,
		Gain:         gain,
		GainPercent:  percent,
	}
}
