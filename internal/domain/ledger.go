package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerRepository supplies the plain month aggregates the waterfall consumes.
// Every call is already scoped to one workspace and one month window.
type LedgerRepository interface {
	GetSalaryHistory(ctx context.Context, workspaceID int32) ([]SalaryRecord, error)
	GetIncomeEntries(ctx context.Context, workspaceID int32, start, end time.Time) ([]IncomeEntry, error)
	GetTaxRule(ctx context.Context, workspaceID int32) (*TaxRule, error)
	GetActiveSIPs(ctx context.Context, workspaceID int32) ([]SIP, error)
	GetExpenseBudget(ctx context.Context, workspaceID int32) (*ExpenseBudget, error)
	GetAllocationBuckets(ctx context.Context, workspaceID int32) ([]AllocationBucket, error)
	SumExpenses(ctx context.Context, workspaceID int32, start, end time.Time) (decimal.Decimal, error)
	SumOneTimePurchases(ctx context.Context, workspaceID int32, start, end time.Time) (decimal.Decimal, error)
	SumSIPExecutions(ctx context.Context, workspaceID int32, start, end time.Time) (decimal.Decimal, error)
	SumPaidEMIs(ctx context.Context, workspaceID int32, start, end time.Time) (PaidEMITotals, error)
	GetUnsettledMemberTransactions(ctx context.Context, workspaceID int32) ([]MemberTransaction, error)
	GetInvestmentReturns(ctx context.Context, workspaceID int32, start, end time.Time) (InvestmentReturns, error)
}
