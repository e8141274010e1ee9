package waterfall

import (
	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/util"
	"github.com/shopspring/decimal"
)

// SelectSalary returns the salary in force during the month. When several
// records overlap the month, the one that started most recently wins.
func SelectSalary(history []domain.SalaryRecord, year, month int) decimal.Decimal {
	start, end := util.MonthBoundaries(year, month)

	var selected *domain.SalaryRecord
	for i := range history {
		rec := &history[i]
		if util.DateOnly(rec.EffectiveFrom).After(end) {
			continue
		}
		if rec.EffectiveTo != nil && util.DateOnly(*rec.EffectiveTo).Before(start) {
			continue
		}
		if selected == nil || rec.EffectiveFrom.After(selected.EffectiveFrom) {
			selected = rec
		}
	}
	if selected == nil {
		return decimal.Zero
	}
	return selected.Amount
}

// SumIncomeEntries adds the ad-hoc income dated inside the month
func SumIncomeEntries(entries []domain.IncomeEntry, year, month int) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Date.Year() == year && int(e.Date.Month()) == month {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// TaxDeduction applies the rule to gross income:
//
//	PERCENTAGE  gross * percent / 100
//	FIXED       fixedAmount
//	HYBRID      gross * percent / 100 + fixedAmount
//
// No rule or no income means no tax.
func TaxDeduction(rule *domain.TaxRule, gross decimal.Decimal) decimal.Decimal {
	if rule == nil || !gross.IsPositive() {
		return decimal.Zero
	}

	percentPart := decimal.Zero
	if rule.Percent != nil {
		percentPart = gross.Mul(*rule.Percent).Div(hundred)
	}
	fixedPart := decimal.Zero
	if rule.FixedAmount != nil {
		fixedPart = *rule.FixedAmount
	}

	switch rule.Mode {
	case domain.TaxPercentage:
		return percentPart
	case domain.TaxFixed:
		return fixedPart
	case domain.TaxHybrid:
		return percentPart.Add(fixedPart)
	}
	return decimal.Zero
}

// EffectiveTaxRate returns tax as a percentage of gross, 0 when gross is 0
func EffectiveTaxRate(tax, gross decimal.Decimal) decimal.Decimal {
	if gross.IsZero() {
		return decimal.Zero
	}
	return tax.Div(gross).Mul(hundred).Round(2)
}
