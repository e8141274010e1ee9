package waterfall

import (
	"testing"
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func monthlySIP(key domain.BucketKey, amount string, anchor time.Time) domain.SIP {
	c, err := domain.NewRecurringCommitment(d(amount), domain.FrequencyMonthly, anchor, nil, nil)
	if err != nil {
		panic(err)
	}
	return domain.SIP{Name: string(key) + " fund", BucketKey: key, Commitment: c, IsActive: true}
}

func loanWithInstallment(active bool, due time.Time, amount string) *domain.Loan {
	return &domain.Loan{
		IsActive: active,
		Installments: []domain.Installment{
			{SequenceNumber: 1, DueDate: due, Amount: d(amount)},
		},
	}
}

func baseInput() Input {
	return Input{
		Year:  2024,
		Month: 3,
		SalaryHistory: []domain.SalaryRecord{
			{Amount: d("100000"), EffectiveFrom: day(2023, time.January, 1)},
		},
		TaxRule: &domain.TaxRule{Mode: domain.TaxHybrid, Percent: dp("5"), FixedAmount: dp("2000")},
		Loans: []*domain.Loan{
			loanWithInstallment(true, day(2024, time.March, 10), "15000"),
		},
		SIPs: []domain.SIP{
			monthlySIP(domain.BucketEquity, "10000", day(2023, time.June, 5)),
		},
		ActualExpenses: d("30000"),
	}
}

func TestComputeMonthlySummary_HybridTax(t *testing.T) {
	in := Input{
		Year:          2024,
		Month:         3,
		SalaryHistory: []domain.SalaryRecord{{Amount: d("100000"), EffectiveFrom: day(2024, time.January, 1)}},
		TaxRule:       &domain.TaxRule{Mode: domain.TaxHybrid, Percent: dp("5"), FixedAmount: dp("2000")},
	}

	s := ComputeMonthlySummary(in)

	assertDec(t, "100000", s.GrossIncome)
	assertDec(t, "7000", s.Tax)
	assertDec(t, "93000", s.AfterTax)
	assertDec(t, "7", s.EffectiveTaxRate)
}

func TestComputeMonthlySummary_StagesInOrder(t *testing.T) {
	s := ComputeMonthlySummary(baseInput())

	names := make([]string, len(s.Stages))
	for i, st := range s.Stages {
		names[i] = st.Name
	}
	assert.Equal(t, []string{
		domain.StageGrossIncome,
		domain.StageAfterTax,
		domain.StageAfterEMI,
		domain.StageAfterSIP,
		domain.StageAvailableForExpenses,
		domain.StageAvailableForInvestment,
		domain.StageSurplus,
	}, names)

	assertDec(t, "93000", s.AfterTax)
	assertDec(t, "15000", s.EMIDue)
	assertDec(t, "78000", s.AfterEMI)
	assertDec(t, "10000", s.SIPPlanned)
	assertDec(t, "68000", s.AfterSIP)
	assertDec(t, "68000", s.AvailableForExpenses)
	assertDec(t, "38000", s.AvailableForInvestment)
	assertDec(t, "38000", s.PlannedSurplus)
	assert.False(t, s.IsUsingBudget)

	st, ok := s.Stage(domain.StageAfterEMI)
	require.True(t, ok)
	assertDec(t, "15000", st.Deduction)
}

func TestComputeMonthlySummary_Monotonic(t *testing.T) {
	inputs := []Input{baseInput(), {Year: 2024, Month: 3}}
	noTax := baseInput()
	noTax.TaxRule = nil
	noTax.SIPs = nil
	inputs = append(inputs, noTax)

	for _, in := range inputs {
		s := ComputeMonthlySummary(in)
		assert.True(t, s.AfterTax.LessThanOrEqual(s.GrossIncome))
		assert.True(t, s.AfterEMI.LessThanOrEqual(s.AfterTax))
		assert.True(t, s.AfterSIP.LessThanOrEqual(s.AfterEMI))
		if s.Tax.IsZero() {
			assert.True(t, s.AfterTax.Equal(s.GrossIncome))
		}
		if s.SIPPlanned.IsZero() {
			assert.True(t, s.AfterSIP.Equal(s.AfterEMI))
		}
	}
}

func TestComputeMonthlySummary_ReconciliationIdentity(t *testing.T) {
	in := baseInput()
	in.PaidEMI = domain.PaidEMITotals{CurrentMonth: d("15000"), Additional: decimal.Zero}
	in.SIPExecuted = d("10000")

	s := ComputeMonthlySummary(in)

	assert.True(t, s.Reconciliation.CashRemaining.Equal(s.PlannedSurplus),
		"cash %s surplus %s", s.Reconciliation.CashRemaining, s.PlannedSurplus)
	assert.False(t, s.Reconciliation.HasAdditional)
	assert.True(t, s.Reconciliation.AdditionalTransactions.IsZero())
}

func TestComputeMonthlySummary_ReconciliationWithExtras(t *testing.T) {
	in := baseInput()
	in.PaidEMI = domain.PaidEMITotals{CurrentMonth: d("15000"), Additional: d("15000")}
	in.SIPExecuted = d("12000")
	in.OneTimePurchases = d("5000")
	in.MemberTransactions = []domain.MemberTransaction{
		{MemberName: "Ali", Type: domain.MemberOwe, Amount: d("1000")},
		{MemberName: "Ali", Type: domain.MemberExpensePaidByThem, Amount: d("500")},
		{MemberName: "Mei", Type: domain.MemberGave, Amount: d("2000")},
		{MemberName: "Mei", Type: domain.MemberExpensePaidForThem, Amount: d("300")},
		{MemberName: "Mei", Type: domain.MemberGave, Amount: d("9999"), Settled: true},
	}

	s := ComputeMonthlySummary(in)
	r := s.Reconciliation

	assertDec(t, "30000", r.ActualEMIPaid)
	assertDec(t, "1500", r.Borrowed)
	assertDec(t, "2300", r.Lent)
	assertDec(t, "800", r.NetMemberBalance)
	// 100000 - 7000 - 30000 - 12000 - 5000 - 30000 - 1500 + 2300
	assertDec(t, "16800", r.CashRemaining)
	// (30000 + 12000) - (15000 + 10000)
	assertDec(t, "17000", r.AdditionalTransactions)
	assert.True(t, r.HasAdditional)
}

func TestComputeMonthlySummary_ExpenseBudget(t *testing.T) {
	in := baseInput()
	in.ExpenseBudget = &domain.ExpenseBudget{
		Expected:   domain.BudgetPortion{Mode: domain.PortionPercentage, Value: d("50")},
		Unexpected: domain.BudgetPortion{Mode: domain.PortionAmount, Value: d("4000")},
	}

	s := ComputeMonthlySummary(in)

	assert.True(t, s.IsUsingBudget)
	assertDec(t, "34000", s.BudgetedExpected)
	assertDec(t, "4000", s.BudgetedUnexpected)
	assertDec(t, "38000", s.AvailableForExpenses)
	assertDec(t, "30000", s.AvailableForInvestment)
	// planned surplus still uses actual spend
	assertDec(t, "38000", s.PlannedSurplus)
}

func TestComputeMonthlySummary_DeficitIsNotClamped(t *testing.T) {
	in := baseInput()
	in.SalaryHistory = []domain.SalaryRecord{{Amount: d("20000"), EffectiveFrom: day(2023, time.January, 1)}}
	in.TaxRule = nil

	s := ComputeMonthlySummary(in)
	assertDec(t, "-5000", s.AfterSIP)
	assertDec(t, "-35000", s.PlannedSurplus)
}

func TestComputeMonthlySummary_EmptyInput(t *testing.T) {
	s := ComputeMonthlySummary(Input{Year: 2024, Month: 1})

	assert.True(t, s.GrossIncome.IsZero())
	assert.True(t, s.EffectiveTaxRate.IsZero())
	assert.True(t, s.InvestmentReturns.GainPercent.IsZero())
	assert.Empty(t, s.Allocations)
	assert.Len(t, s.Stages, 7)
}

func TestSelectSalary(t *testing.T) {
	feb := day(2024, time.February, 14)
	history := []domain.SalaryRecord{
		{Amount: d("5000"), EffectiveFrom: day(2022, time.January, 1), EffectiveTo: &feb},
		{Amount: d("6000"), EffectiveFrom: day(2024, time.February, 15)},
		{Amount: d("9000"), EffectiveFrom: day(2024, time.June, 1)},
	}

	assertDec(t, "5000", SelectSalary(history, 2024, 1))
	assertDec(t, "6000", SelectSalary(history, 2024, 2))
	assertDec(t, "6000", SelectSalary(history, 2024, 5))
	assertDec(t, "9000", SelectSalary(history, 2024, 6))
	assertDec(t, "0", SelectSalary(history, 2021, 12))
}

func TestSumIncomeEntries(t *testing.T) {
	entries := []domain.IncomeEntry{
		{Amount: d("1500"), Date: day(2024, time.March, 2), Source: "freelance"},
		{Amount: d("500"), Date: day(2024, time.March, 31), Source: "bonus"},
		{Amount: d("700"), Date: day(2024, time.April, 1), Source: "bonus"},
	}
	assertDec(t, "2000", SumIncomeEntries(entries, 2024, 3))
}

func TestTaxDeduction(t *testing.T) {
	gross := d("80000")
	tests := []struct {
		name string
		rule *domain.TaxRule
		want string
	}{
		{"no rule", nil, "0"},
		{"percentage", &domain.TaxRule{Mode: domain.TaxPercentage, Percent: dp("10")}, "8000"},
		{"fixed", &domain.TaxRule{Mode: domain.TaxFixed, FixedAmount: dp("2500")}, "2500"},
		{"hybrid", &domain.TaxRule{Mode: domain.TaxHybrid, Percent: dp("10"), FixedAmount: dp("2500")}, "10500"},
		{"percentage without percent", &domain.TaxRule{Mode: domain.TaxPercentage}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDec(t, tt.want, TaxDeduction(tt.rule, gross))
		})
	}

	fixed := &domain.TaxRule{Mode: domain.TaxFixed, FixedAmount: dp("2500")}
	assertDec(t, "0", TaxDeduction(fixed, decimal.Zero))
	assertDec(t, "0", EffectiveTaxRate(d("100"), decimal.Zero))
}

func TestEMIDue_SkipsInactiveAndOtherMonths(t *testing.T) {
	loans := []*domain.Loan{
		loanWithInstallment(true, day(2024, time.March, 1), "1000"),
		loanWithInstallment(true, day(2024, time.April, 1), "2000"),
		loanWithInstallment(false, day(2024, time.March, 5), "4000"),
		nil,
	}
	loans[0].Installments = append(loans[0].Installments, domain.Installment{
		SequenceNumber: 2, DueDate: day(2024, time.March, 31), Amount: d("1000"), Paid: true,
	})

	assertDec(t, "2000", EMIDue(loans, 2024, 3))
}

func TestSIPDue_FrequencyAware(t *testing.T) {
	yearly, err := domain.NewRecurringCommitment(d("12000"), domain.FrequencyYearly, day(2023, time.March, 10), nil, nil)
	require.NoError(t, err)
	quarterly, err := domain.NewRecurringCommitment(d("3000"), domain.FrequencyQuarterly, day(2024, time.January, 10), nil, nil)
	require.NoError(t, err)

	sips := []domain.SIP{
		monthlySIP(domain.BucketEquity, "5000", day(2023, time.January, 1)),
		{Name: "Gold yearly", BucketKey: domain.BucketGold, Commitment: yearly, IsActive: true},
		{Name: "Debt quarterly", BucketKey: domain.BucketDebt, Commitment: quarterly, IsActive: true},
		{Name: "Paused", BucketKey: domain.BucketCrypto, Commitment: yearly, IsActive: false},
	}

	assertDec(t, "17000", SIPDue(sips, 2024, 3))
	assertDec(t, "8000", SIPDue(sips, 2024, 4))
	assertDec(t, "5000", SIPDue(sips, 2024, 5))
	// 5000 + 12000 + 3000 * 4 in March; the yearly SIP counts only there
	assertDec(t, "29000", SIPCommitmentTotal(sips, 2024, 3))
	assertDec(t, "17000", SIPCommitmentTotal(sips, 2024, 5))
}

func TestAllocate(t *testing.T) {
	buckets := []domain.AllocationBucket{
		{Key: domain.BucketEquity, Type: domain.AllocationPercentage, Percent: dp("60")},
		{Key: domain.BucketGold, Type: domain.AllocationAmount, FixedAmount: dp("5000")},
	}

	lines, unallocated := Allocate(d("50000"), buckets)
	require.Len(t, lines, 2)

	assert.Equal(t, domain.BucketEquity, lines[0].Key)
	assert.Equal(t, "Equity", lines[0].Label)
	assertDec(t, "30000", lines[0].Amount)
	assertDec(t, "5000", lines[1].Amount)
	assertDec(t, "15000", unallocated)
}

func TestAllocate_NegativePool(t *testing.T) {
	buckets := []domain.AllocationBucket{
		{Key: domain.BucketEquity, Type: domain.AllocationPercentage, Percent: dp("60")},
		{Key: domain.BucketGold, Type: domain.AllocationAmount, FixedAmount: dp("5000")},
	}

	lines, unallocated := Allocate(d("-1000"), buckets)
	assertDec(t, "0", lines[0].Amount)
	assertDec(t, "-6000", unallocated)
}

func TestBucketAvailability(t *testing.T) {
	allocations := []domain.AllocationLine{
		{Key: domain.BucketEquity, Amount: d("30000")},
		{Key: domain.BucketGold, Amount: d("5000")},
	}
	sips := []domain.SIP{
		monthlySIP(domain.BucketEquity, "10000", day(2024, time.January, 1)),
		monthlySIP(domain.BucketEquity, "2500", day(2024, time.January, 1)),
		monthlySIP(domain.BucketCrypto, "1000", day(2024, time.January, 1)),
		monthlySIP(domain.BucketGold, "800", day(2024, time.June, 1)),
	}

	got := BucketAvailability(allocations, sips, 2024, 3)
	require.Len(t, got, 3)

	assert.Equal(t, domain.BucketEquity, got[0].Key)
	assertDec(t, "12500", got[0].SIPCommitment)
	assertDec(t, "17500", got[0].Available)

	assert.Equal(t, domain.BucketGold, got[1].Key)
	assertDec(t, "5000", got[1].Available)

	assert.Equal(t, domain.BucketCrypto, got[2].Key)
	assertDec(t, "0", got[2].Allocated)
	assertDec(t, "-1000", got[2].Available)
}

func TestReturns(t *testing.T) {
	r := Returns(domain.InvestmentReturns{CurrentValue: d("11000"), CostBasis: d("10000")})
	assertDec(t, "1000", r.Gain)
	assertDec(t, "10", r.GainPercent)

	zero := Returns(domain.InvestmentReturns{CurrentValue: d("50")})
	assertDec(t, "50", zero.Gain)
	assertDec(t, "0", zero.GainPercent)
}
