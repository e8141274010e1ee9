package amortization

import (
	"fmt"
	"sort"
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/util"
	"github.com/shopspring/decimal"
)

// MonthsPerPeriod maps a loan frequency to the month step used when no
// schedule anchors are supplied
func MonthsPerPeriod(f domain.LoanFrequency) int {
	switch f {
	case domain.LoanFrequencyQuarterly:
		return 3
	case domain.LoanFrequencyHalfYearly:
		return 6
	case domain.LoanFrequencyAnnually:
		return 12
	}
	return 1
}

// RequiredAnchors returns the exact anchor count a frequency demands.
// ok is false when any count of one or more is accepted.
func RequiredAnchors(f domain.LoanFrequency) (count int, ok bool) {
	switch f {
	case domain.LoanFrequencyQuarterly:
		return 4, true
	case domain.LoanFrequencyHalfYearly:
		return 2, true
	case domain.LoanFrequencyAnnually:
		return 1, true
	}
	return 0, false
}

// ExpandSchedule returns tenure due dates, strictly increasing and strictly
// after the loan start date.
//
// MONTHLY loans fall due on the start day each following month. Other
// frequencies walk their (month, day) anchors year over year. Without
// anchors a non-monthly loan steps from the start date by its period length.
func ExpandSchedule(loan *domain.Loan, tenure int) ([]time.Time, error) {
	if tenure < 1 {
		return nil, fmt.Errorf("%w: tenure must be at least 1", domain.ErrInvalidLoanParameters)
	}
	start := util.DateOnly(loan.StartDate)

	if loan.Frequency == domain.LoanFrequencyMonthly || len(loan.PaymentScheduleAnchors) == 0 {
		step := MonthsPerPeriod(loan.Frequency)
		dates := make([]time.Time, tenure)
		for i := range dates {
			dates[i] = util.AddMonthsClamped(start, (i+1)*step)
		}
		return dates, nil
	}

	anchors, err := normalizeAnchors(loan.Frequency, loan.PaymentScheduleAnchors)
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, tenure)
	for year := start.Year(); len(dates) < tenure; year++ {
		for _, a := range anchors {
			due := util.CalculateActualDate(year, time.Month(a.Month), a.Day)
			if !due.After(start) {
				continue
			}
			// two anchors can clamp onto the same day in short months
			if n := len(dates); n > 0 && !due.After(dates[n-1]) {
				continue
			}
			dates = append(dates, due)
			if len(dates) == tenure {
				break
			}
		}
	}
	return dates, nil
}

// ValidateAnchors checks anchor count and ranges for a loan frequency
func ValidateAnchors(f domain.LoanFrequency, anchors []domain.ScheduleAnchor) error {
	_, err := normalizeAnchors(f, anchors)
	return err
}

func normalizeAnchors(f domain.LoanFrequency, anchors []domain.ScheduleAnchor) ([]domain.ScheduleAnchor, error) {
	if want, exact := RequiredAnchors(f); exact && len(anchors) != want {
		return nil, fmt.Errorf("%w: %s requires %d anchors, got %d", domain.ErrScheduleMismatch, f, want, len(anchors))
	}
	if len(anchors) == 0 {
		return nil, fmt.Errorf("%w: at least one anchor is required", domain.ErrScheduleMismatch)
	}

	sorted := make([]domain.ScheduleAnchor, len(anchors))
	copy(sorted, anchors)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Month != sorted[j].Month {
			return sorted[i].Month < sorted[j].Month
		}
		return sorted[i].Day < sorted[j].Day
	})

	for i, a := range sorted {
		if a.Month < 1 || a.Month > 12 {
			return nil, fmt.Errorf("%w: anchor month %d out of range", domain.ErrScheduleMismatch, a.Month)
		}
		if a.Day < 1 || a.Day > 31 {
			return nil, fmt.Errorf("%w: anchor day %d out of range", domain.ErrScheduleMismatch, a.Day)
		}
		if i > 0 && sorted[i-1] == a {
			return nil, fmt.Errorf("%w: duplicate anchor %02d-%02d", domain.ErrScheduleMismatch, a.Month, a.Day)
		}
	}
	return sorted, nil
}

// BuildInstallments numbers the due dates and assigns amounts from the
// solution. The final installment clears the remaining balance exactly.
func BuildInstallments(loan *domain.Loan, sol Solution, dueDates []time.Time) []domain.Installment {
	amounts := scheduleAmounts(loan.Principal, sol.PeriodicRate, sol.InstallmentAmount, len(dueDates))
	installments := make([]domain.Installment, len(dueDates))
	for i, due := range dueDates {
		installments[i] = domain.Installment{
			SequenceNumber: i + 1,
			DueDate:        due,
			Amount:         amounts[i],
		}
	}
	return installments
}

// Plan solves the loan and expands its schedule in one step
func Plan(loan *domain.Loan) (Solution, []domain.Installment, error) {
	sol, err := Solve(loan)
	if err != nil {
		return Solution{}, nil, err
	}
	dates, err := ExpandSchedule(loan, sol.TenureInPeriods)
	if err != nil {
		return Solution{}, nil, err
	}
	return sol, BuildInstallments(loan, sol, dates), nil
}

// MergeInstallments combines a loan's existing installments with a freshly
// generated schedule after an edit. Paid installments are kept untouched and
// every unpaid row is replaced. A regenerated row falling on a paid row's due
// date is covered by it and dropped. Paid rows with no matching date (the
// schedule moved) cover the earliest remaining regenerated rows instead. The
// result is ordered by due date and renumbered 1..n without gaps.
func MergeInstallments(existing, regenerated []domain.Installment) []domain.Installment {
	paid := make([]domain.Installment, 0, len(existing))
	paidDates := make(map[time.Time]bool, len(existing))
	for _, inst := range existing {
		if inst.Paid {
			paid = append(paid, inst)
			paidDates[util.DateOnly(inst.DueDate)] = true
		}
	}

	remaining := make([]domain.Installment, 0, len(regenerated))
	covered := 0
	for _, inst := range regenerated {
		if due := util.DateOnly(inst.DueDate); paidDates[due] {
			delete(paidDates, due)
			covered++
			continue
		}
		remaining = append(remaining, inst)
	}
	if unmatched := len(paid) - covered; unmatched > 0 {
		if unmatched >= len(remaining) {
			remaining = nil
		} else {
			remaining = remaining[unmatched:]
		}
	}

	merged := make([]domain.Installment, 0, len(paid)+len(remaining))
	merged = append(merged, paid...)
	merged = append(merged, remaining...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].DueDate.Before(merged[j].DueDate)
	})
	for i := range merged {
		merged[i].SequenceNumber = i + 1
	}
	return merged
}

// RemainingPrincipal returns the principal still owed after the paid
// installments, walking the reducing balance in sequence order. A paid
// amount above the scheduled amount reduces principal further.
func RemainingPrincipal(loan *domain.Loan) decimal.Decimal {
	rate := PeriodicRate(loan)
	ordered := make([]domain.Installment, len(loan.Installments))
	copy(ordered, loan.Installments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SequenceNumber < ordered[j].SequenceNumber })

	balance := loan.Principal
	for _, inst := range ordered {
		if !inst.Paid {
			continue
		}
		paid := inst.Amount
		if inst.PaidAmount != nil {
			paid = *inst.PaidAmount
		}
		balance = balance.Add(balance.Mul(rate).Round(2)).Sub(paid)
	}
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}
