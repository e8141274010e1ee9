// Package amortization solves reducing-balance loan parameters and expands
// loan payment schedules into concrete due dates.
package amortization

import (
	"fmt"
	"math"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/shopspring/decimal"
)

// TenureTolerance is how far a supplied tenure may drift from the tenure
// recomputed from a supplied installment amount before the pair is rejected
const TenureTolerance = 1

// MaxTenurePeriods caps the number of installments a loan may have
const MaxTenurePeriods = 1200

var hundred = decimal.NewFromInt(100)

// Solution is a fully determined loan: both tenure and installment known
type Solution struct {
	TenureInPeriods   int             `json:"tenureInPeriods"`
	InstallmentAmount decimal.Decimal `json:"installmentAmount"`
	PeriodicRate      decimal.Decimal `json:"periodicRate"`
	TotalPayable      decimal.Decimal `json:"totalPayable"`
	TotalInterest     decimal.Decimal `json:"totalInterest"`
}

// PeriodsPerYear returns how many installments a loan's frequency implies per
// year. CUSTOM loans pay once per anchor; with no anchors they pay monthly.
func PeriodsPerYear(loan *domain.Loan) int {
	switch loan.Frequency {
	case domain.LoanFrequencyQuarterly:
		return 4
	case domain.LoanFrequencyHalfYearly:
		return 2
	case domain.LoanFrequencyAnnually:
		return 1
	case domain.LoanFrequencyCustom:
		if n := len(loan.PaymentScheduleAnchors); n > 0 {
			return n
		}
	}
	return 12
}

// PeriodicRate converts the annual percentage into a per-installment fraction
func PeriodicRate(loan *domain.Loan) decimal.Decimal {
	return loan.AnnualRatePercent.
		Div(decimal.NewFromInt(int64(PeriodsPerYear(loan)))).
		Div(hundred)
}

// Solve fills in whichever of tenure and installment amount is missing.
//
// When both are supplied the installment amount wins: tenure is recomputed
// from it, and the pair is rejected with ErrInconsistentLoanSpec if the
// supplied tenure is more than TenureTolerance periods away.
func Solve(loan *domain.Loan) (Solution, error) {
	if loan.Principal.LessThanOrEqual(decimal.Zero) {
		return Solution{}, fmt.Errorf("%w: principal must be positive", domain.ErrInvalidLoanParameters)
	}
	if loan.AnnualRatePercent.IsNegative() {
		return Solution{}, fmt.Errorf("%w: interest rate cannot be negative", domain.ErrInvalidLoanParameters)
	}
	if loan.TenureInPeriods == nil && loan.InstallmentAmount == nil {
		return Solution{}, domain.ErrAmbiguousLoanSpec
	}

	rate := PeriodicRate(loan)
	sol := Solution{PeriodicRate: rate}

	if loan.InstallmentAmount != nil {
		installment := *loan.InstallmentAmount
		if installment.LessThanOrEqual(decimal.Zero) {
			return Solution{}, fmt.Errorf("%w: installment amount must be positive", domain.ErrInvalidLoanParameters)
		}
		tenure, err := TenureFor(loan.Principal, rate, installment)
		if err != nil {
			return Solution{}, err
		}
		if loan.TenureInPeriods != nil {
			if *loan.TenureInPeriods < 1 {
				return Solution{}, fmt.Errorf("%w: tenure must be at least 1", domain.ErrInvalidLoanParameters)
			}
			if diff := *loan.TenureInPeriods - tenure; diff > TenureTolerance || diff < -TenureTolerance {
				return Solution{}, fmt.Errorf("%w: supplied tenure %d, installment implies %d",
					domain.ErrInconsistentLoanSpec, *loan.TenureInPeriods, tenure)
			}
		}
		sol.TenureInPeriods = tenure
		sol.InstallmentAmount = installment
	} else {
		tenure := *loan.TenureInPeriods
		if tenure < 1 {
			return Solution{}, fmt.Errorf("%w: tenure must be at least 1", domain.ErrInvalidLoanParameters)
		}
		if tenure > MaxTenurePeriods {
			return Solution{}, fmt.Errorf("%w: tenure %d exceeds %d periods",
				domain.ErrInvalidLoanParameters, tenure, MaxTenurePeriods)
		}
		sol.TenureInPeriods = tenure
		sol.InstallmentAmount = InstallmentFor(loan.Principal, rate, tenure)
	}

	amounts := scheduleAmounts(loan.Principal, rate, sol.InstallmentAmount, sol.TenureInPeriods)
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	sol.TotalPayable = total
	sol.TotalInterest = total.Sub(loan.Principal)
	return sol, nil
}

// InstallmentFor returns the equated installment for n periods:
//
//	installment = P * r * (1+r)^n / ((1+r)^n - 1)
//
// A zero rate divides the principal evenly. The result is rounded to cents.
func InstallmentFor(principal, rate decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	if rate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(n))).Round(2)
	}

	r := rate.InexactFloat64()
	factor := math.Pow(1+r, float64(n))
	payment := principal.InexactFloat64() * r * factor / (factor - 1)
	return decimal.NewFromFloat(payment).Round(2)
}

// TenureFor returns the number of periods an installment needs to clear the
// principal, rounded up to a whole period:
//
//	n = ln(I / (I - P*r)) / ln(1+r)
//
// It fails when the installment does not cover the first period's interest or
// would need more than MaxTenurePeriods periods.
func TenureFor(principal, rate, installment decimal.Decimal) (int, error) {
	if installment.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("%w: installment amount must be positive", domain.ErrInvalidLoanParameters)
	}
	if rate.IsZero() {
		periods := principal.Div(installment).Ceil()
		if periods.GreaterThan(decimal.NewFromInt(MaxTenurePeriods)) {
			return 0, fmt.Errorf("%w: installment %s needs more than %d periods",
				domain.ErrInvalidLoanParameters, installment.StringFixed(2), MaxTenurePeriods)
		}
		return int(periods.IntPart()), nil
	}

	interest := principal.Mul(rate)
	if installment.LessThanOrEqual(interest) {
		return 0, fmt.Errorf("%w: installment %s does not cover periodic interest %s",
			domain.ErrInvalidLoanParameters, installment.StringFixed(2), interest.StringFixed(2))
	}

	r := rate.InexactFloat64()
	i := installment.InexactFloat64()
	n := math.Log(i/(i-principal.InexactFloat64()*r)) / math.Log(1+r)
	if math.IsNaN(n) || math.IsInf(n, 0) || n-1e-9 > MaxTenurePeriods {
		return 0, fmt.Errorf("%w: installment %s needs more than %d periods",
			domain.ErrInvalidLoanParameters, installment.StringFixed(2), MaxTenurePeriods)
	}
	// absorb float noise such as 59.9999999999 or 60.0000000001
	tenure := int(math.Ceil(n - 1e-9))
	if tenure < 1 {
		tenure = 1
	}
	return tenure, nil
}

// scheduleAmounts walks the reducing balance and returns every installment
// amount. All but the last equal installment; the last clears what is left,
// so the schedule pays off the principal exactly.
func scheduleAmounts(principal, rate, installment decimal.Decimal, n int) []decimal.Decimal {
	amounts := make([]decimal.Decimal, n)
	balance := principal
	for i := 0; i < n; i++ {
		interest := balance.Mul(rate).Round(2)
		if i == n-1 {
			amounts[i] = balance.Add(interest)
			break
		}
		amount := installment
		if owed := balance.Add(interest); amount.GreaterThan(owed) {
			amount = owed
		}
		amounts[i] = amount
		balance = balance.Add(interest).Sub(amount)
	}
	return amounts
}
