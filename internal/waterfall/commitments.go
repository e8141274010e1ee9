package waterfall

import (
	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/frequency"
	"github.com/shopspring/decimal"
)

// EMIDue sums the scheduled amount of every installment of an active loan
// that falls due in the month. What was actually paid does not matter here.
func EMIDue(loans []*domain.Loan, year, month int) decimal.Decimal {
	total := decimal.Zero
	for _, loan := range loans {
		if loan == nil || !loan.IsActive {
			continue
		}
		for i := range loan.Installments {
			if loan.Installments[i].IsDueIn(year, month) {
				total = total.Add(loan.Installments[i].Amount)
			}
		}
	}
	return total
}

// SIPDue sums what active SIPs cost in this particular month
func SIPDue(sips []domain.SIP, year, month int) decimal.Decimal {
	total := decimal.Zero
	for _, sip := range sips {
		if !frequency.ActiveInMonth(sip.Commitment, sip.IsActive, year, month) {
			continue
		}
		total = total.Add(frequency.AmountIfOccursInMonth(sip.Commitment, year, month))
	}
	return total
}

// SIPCommitmentTotal is the summary-totals figure of the SIPs active in the
// month. It is reported alongside the waterfall and never deducted.
func SIPCommitmentTotal(sips []domain.SIP, year, month int) decimal.Decimal {
	total := decimal.Zero
	for _, sip := range sips {
		if !frequency.ActiveInMonth(sip.Commitment, sip.IsActive, year, month) {
			continue
		}
		total = total.Add(frequency.AmountForTotals(sip.Commitment, year, month))
	}
	return total
}
