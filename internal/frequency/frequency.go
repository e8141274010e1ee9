// Package frequency resolves recurring commitments into calendar-month amounts.
//
// AmountIfOccursInMonth answers "how much of this commitment lands in this
// specific month" and is what the monthly waterfall deducts. AmountForTotals
// answers "what figure does this commitment contribute to a summary total".
// For QUARTERLY and HALF_YEARLY the two give different numbers.
//
// Activity and date-range filtering (inactive SIPs, commitments that ended or
// have not started) belong to the caller; see ActiveInMonth.
package frequency

import (
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/util"
	"github.com/shopspring/decimal"
)

// averageDaysPerMonth is 365.2425 / 12
var averageDaysPerMonth = decimal.RequireFromString("30.436875")

// MonthsPerPeriod returns the number of calendar months between occurrences,
// or 0 for frequencies measured in days
func MonthsPerPeriod(f domain.Frequency) int {
	switch f {
	case domain.FrequencyMonthly, domain.FrequencyCustom:
		return 1
	case domain.FrequencyQuarterly:
		return 3
	case domain.FrequencyHalfYearly:
		return 6
	case domain.FrequencyYearly:
		return 12
	}
	return 0
}

// PeriodDays returns the period length for day-based frequencies, or 0
func PeriodDays(f domain.Frequency) int {
	switch f {
	case domain.FrequencyDaily:
		return 1
	case domain.FrequencyWeekly:
		return 7
	}
	return 0
}

// AmountForTotals returns the figure a commitment contributes to the summary
// totals of a month. YEARLY is attributed in full to its occurrence month and
// is zero in every other month, never divided by 12. QUARTERLY and
// HALF_YEARLY are a flat run-rate of amount * 12 / months-per-period. DAILY and
// WEEKLY are converted through the average month length.
func AmountForTotals(c domain.RecurringCommitment, year, month int) decimal.Decimal {
	switch c.Frequency {
	case domain.FrequencyMonthly, domain.FrequencyCustom, domain.FrequencyYearly:
		if !OccursInMonth(c, year, month) {
			return decimal.Zero
		}
		return c.Amount
	case domain.FrequencyQuarterly, domain.FrequencyHalfYearly:
		return c.Amount.Mul(decimal.NewFromInt(int64(12 / MonthsPerPeriod(c.Frequency))))
	case domain.FrequencyDaily, domain.FrequencyWeekly:
		return dayBasedMonthly(c.Amount, c.Frequency)
	}
	return decimal.Zero
}

// MonthlyEquivalent is the summary-totals reading of a commitment for one
// month. Use AmountIfOccursInMonth for what the month actually deducts.
func MonthlyEquivalent(c domain.RecurringCommitment, year, month int) decimal.Decimal {
	return AmountForTotals(c, year, month)
}

// OccursInMonth reports whether the commitment falls due in the given month.
// It only looks at the calendar rule, the anchor and the end date.
func OccursInMonth(c domain.RecurringCommitment, year, month int) bool {
	target := util.MonthIndex(year, month)
	anchor := util.MonthIndex(c.AnchorDate.Year(), int(c.AnchorDate.Month()))
	if target < anchor {
		return false
	}
	if c.EndDate != nil && target > util.MonthIndex(c.EndDate.Year(), int(c.EndDate.Month())) {
		return false
	}

	switch c.Frequency {
	case domain.FrequencyMonthly, domain.FrequencyCustom, domain.FrequencyDaily, domain.FrequencyWeekly:
		return true
	case domain.FrequencyQuarterly, domain.FrequencyHalfYearly, domain.FrequencyYearly:
		return (target-anchor)%MonthsPerPeriod(c.Frequency) == 0
	}
	return false
}

// AmountIfOccursInMonth returns what the commitment costs in the given month:
// the full amount on occurrence months, zero otherwise. Day-based
// frequencies contribute their average monthly figure every month.
func AmountIfOccursInMonth(c domain.RecurringCommitment, year, month int) decimal.Decimal {
	if !OccursInMonth(c, year, month) {
		return decimal.Zero
	}
	if PeriodDays(c.Frequency) > 0 {
		return dayBasedMonthly(c.Amount, c.Frequency)
	}
	return c.Amount
}

// ActiveInMonth is the caller-side filter: an inactive commitment, one whose
// end date precedes the month, or one anchored after the month contributes
// nothing.
func ActiveInMonth(c domain.RecurringCommitment, isActive bool, year, month int) bool {
	if !isActive {
		return false
	}
	start, end := util.MonthBoundaries(year, month)
	if c.EndDate != nil && util.DateOnly(*c.EndDate).Before(start) {
		return false
	}
	if util.DateOnly(c.AnchorDate).After(end) {
		return false
	}
	return true
}

// OccurrenceDate returns the first day in the month on which the commitment
// falls due. A day that does not exist in the month rounds down to the
// month's last day. In the anchor month the date is never before the anchor.
func OccurrenceDate(c domain.RecurringCommitment, year, month int) (time.Time, bool) {
	if !OccursInMonth(c, year, month) {
		return time.Time{}, false
	}

	switch c.Frequency {
	case domain.FrequencyDaily, domain.FrequencyWeekly:
		monthStart, monthEnd := util.MonthBoundaries(year, month)
		anchor := util.DateOnly(c.AnchorDate)
		first := monthStart
		if anchor.After(first) {
			first = anchor
		}
		step := PeriodDays(c.Frequency)
		if rem := int(first.Sub(anchor).Hours()/24) % step; rem != 0 {
			first = first.AddDate(0, 0, step-rem)
		}
		if first.After(monthEnd) {
			return time.Time{}, false
		}
		return first, true
	case domain.FrequencyCustom:
		due := util.CalculateActualDate(year, time.Month(month), *c.CustomDayOfMonth)
		if anchor := util.DateOnly(c.AnchorDate); due.Before(anchor) {
			due = anchor
		}
		return due, true
	}
	return util.CalculateActualDate(year, time.Month(month), c.AnchorDate.Day()), true
}

func dayBasedMonthly(amount decimal.Decimal, f domain.Frequency) decimal.Decimal {
	return amount.Mul(averageDaysPerMonth).Div(decimal.NewFromInt(int64(PeriodDays(f))))
}
