package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerRepository implements domain.LedgerRepository using PostgreSQL
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// GetSalaryHistory returns every salary record of a workspace, oldest first
func (r *LedgerRepository) GetSalaryHistory(ctx context.Context, workspaceID int32) ([]domain.SalaryRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT amount, effective_from, effective_to
		FROM salary_records
		WHERE workspace_id = $1
		ORDER BY effective_from`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.SalaryRecord{}
	for rows.Next() {
		var (
			amount pgtype.Numeric
			from   pgtype.Date
			to     pgtype.Date
		)
		if err := rows.Scan(&amount, &from, &to); err != nil {
			return nil, err
		}
		result = append(result, domain.SalaryRecord{
			Amount:        pgNumericToDecimal(amount),
			EffectiveFrom: pgDateToTime(from),
			EffectiveTo:   pgDateToOptionalTime(to),
		})
	}
	return result, rows.Err()
}

// GetIncomeEntries returns ad-hoc income dated inside [start, end]
func (r *LedgerRepository) GetIncomeEntries(ctx context.Context, workspaceID int32, start, end time.Time) ([]domain.IncomeEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT amount, entry_date, source
		FROM income_entries
		WHERE workspace_id = $1 AND entry_date BETWEEN $2 AND $3
		ORDER BY entry_date, id`,
		workspaceID, timeToPgDate(start), timeToPgDate(end),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.IncomeEntry{}
	for rows.Next() {
		var (
			amount pgtype.Numeric
			date   pgtype.Date
			source string
		)
		if err := rows.Scan(&amount, &date, &source); err != nil {
			return nil, err
		}
		result = append(result, domain.IncomeEntry{
			Amount: pgNumericToDecimal(amount),
			Date:   pgDateToTime(date),
			Source: source,
		})
	}
	return result, rows.Err()
}

// GetTaxRule returns the workspace tax rule, or nil when none is configured
func (r *LedgerRepository) GetTaxRule(ctx context.Context, workspaceID int32) (*domain.TaxRule, error) {
	var (
		mode    string
		percent pgtype.Numeric
		fixed   pgtype.Numeric
	)
	err := r.pool.QueryRow(ctx,
		`SELECT mode, percent, fixed_amount FROM tax_rules WHERE workspace_id = $1`,
		workspaceID,
	).Scan(&mode, &percent, &fixed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.TaxRule{
		Mode:        domain.TaxMode(mode),
		Percent:     pgNumericToOptionalDecimal(percent),
		FixedAmount: pgNumericToOptionalDecimal(fixed),
	}, nil
}

// GetActiveSIPs returns the active SIPs of a workspace
func (r *LedgerRepository) GetActiveSIPs(ctx context.Context, workspaceID int32) ([]domain.SIP, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, bucket_key, amount, frequency, anchor_date, custom_day_of_month, end_date
		FROM sips
		WHERE workspace_id = $1 AND is_active
		ORDER BY id`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.SIP{}
	for rows.Next() {
		var (
			id        int32
			name      string
			bucketKey string
			amount    pgtype.Numeric
			frequency string
			anchor    pgtype.Date
			customDay pgtype.Int4
			endDate   pgtype.Date
		)
		if err := rows.Scan(&id, &name, &bucketKey, &amount, &frequency, &anchor, &customDay, &endDate); err != nil {
			return nil, err
		}
		key, err := domain.ParseBucketKey(bucketKey)
		if err != nil {
			return nil, fmt.Errorf("sip %d: %w", id, err)
		}
		result = append(result, domain.SIP{
			ID:        id,
			Name:      name,
			BucketKey: key,
			Commitment: domain.RecurringCommitment{
				Amount:           pgNumericToDecimal(amount),
				Frequency:        domain.Frequency(frequency),
				AnchorDate:       pgDateToTime(anchor),
				CustomDayOfMonth: pgInt4ToOptionalInt(customDay),
				EndDate:          pgDateToOptionalTime(endDate),
			},
			IsActive: true,
		})
	}
	return result, rows.Err()
}

// GetExpenseBudget returns the workspace expense budget, or nil when none is configured
func (r *LedgerRepository) GetExpenseBudget(ctx context.Context, workspaceID int32) (*domain.ExpenseBudget, error) {
	var (
		expectedMode    string
		expectedValue   pgtype.Numeric
		unexpectedMode  string
		unexpectedValue pgtype.Numeric
	)
	err := r.pool.QueryRow(ctx, `
		SELECT expected_mode, expected_value, unexpected_mode, unexpected_value
		FROM expense_budgets
		WHERE workspace_id = $1`,
		workspaceID,
	).Scan(&expectedMode, &expectedValue, &unexpectedMode, &unexpectedValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.ExpenseBudget{
		Expected:   domain.BudgetPortion{Mode: domain.PortionMode(expectedMode), Value: pgNumericToDecimal(expectedValue)},
		Unexpected: domain.BudgetPortion{Mode: domain.PortionMode(unexpectedMode), Value: pgNumericToDecimal(unexpectedValue)},
	}, nil
}

// GetAllocationBuckets returns the configured buckets in display order
func (r *LedgerRepository) GetAllocationBuckets(ctx context.Context, workspaceID int32) ([]domain.AllocationBucket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT bucket_key, allocation_type, percent, fixed_amount
		FROM allocation_buckets
		WHERE workspace_id = $1
		ORDER BY position, bucket_key`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.AllocationBucket{}
	for rows.Next() {
		var (
			key     string
			typ     string
			percent pgtype.Numeric
			fixed   pgtype.Numeric
		)
		if err := rows.Scan(&key, &typ, &percent, &fixed); err != nil {
			return nil, err
		}
		bucketKey, err := domain.ParseBucketKey(key)
		if err != nil {
			return nil, err
		}
		result = append(result, domain.AllocationBucket{
			Key:         bucketKey,
			Type:        domain.AllocationType(typ),
			Percent:     pgNumericToOptionalDecimal(percent),
			FixedAmount: pgNumericToOptionalDecimal(fixed),
		})
	}
	return result, rows.Err()
}

// SumExpenses totals recorded expenses dated inside [start, end]
func (r *LedgerRepository) SumExpenses(ctx context.Context, workspaceID int32, start, end time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM expenses
		WHERE workspace_id = $1 AND expense_date BETWEEN $2 AND $3`,
		workspaceID, start, end)
}

// SumOneTimePurchases totals one-time purchases dated inside [start, end]
func (r *LedgerRepository) SumOneTimePurchases(ctx context.Context, workspaceID int32, start, end time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM one_time_purchases
		WHERE workspace_id = $1 AND purchase_date BETWEEN $2 AND $3`,
		workspaceID, start, end)
}

// SumSIPExecutions totals SIP money actually invested inside [start, end]
func (r *LedgerRepository) SumSIPExecutions(ctx context.Context, workspaceID int32, start, end time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM sip_executions
		WHERE workspace_id = $1 AND executed_on BETWEEN $2 AND $3`,
		workspaceID, start, end)
}

// SumPaidEMIs totals installments paid inside [start, end], split by whether
// the installment was also due in that window
func (r *LedgerRepository) SumPaidEMIs(ctx context.Context, workspaceID int32, start, end time.Time) (domain.PaidEMITotals, error) {
	var current, additional pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(i.paid_amount) FILTER (WHERE i.due_date BETWEEN $2 AND $3), 0),
			COALESCE(SUM(i.paid_amount) FILTER (WHERE i.due_date NOT BETWEEN $2 AND $3), 0)
		FROM loan_installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE l.workspace_id = $1 AND i.paid AND i.paid_date BETWEEN $2 AND $3`,
		workspaceID, timeToPgDate(start), timeToPgDate(end),
	).Scan(&current, &additional)
	if err != nil {
		return domain.PaidEMITotals{}, err
	}
	return domain.PaidEMITotals{
		CurrentMonth: pgNumericToDecimal(current),
		Additional:   pgNumericToDecimal(additional),
	}, nil
}

// GetUnsettledMemberTransactions returns every open ledger line with other people
func (r *LedgerRepository) GetUnsettledMemberTransactions(ctx context.Context, workspaceID int32) ([]domain.MemberTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT member_name, type, amount
		FROM member_transactions
		WHERE workspace_id = $1 AND NOT settled
		ORDER BY member_name, id`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.MemberTransaction{}
	for rows.Next() {
		var (
			name   string
			typ    string
			amount pgtype.Numeric
		)
		if err := rows.Scan(&name, &typ, &amount); err != nil {
			return nil, err
		}
		result = append(result, domain.MemberTransaction{
			MemberName: name,
			Type:       domain.MemberTransactionType(typ),
			Amount:     pgNumericToDecimal(amount),
		})
	}
	return result, rows.Err()
}

// investmentReturnsQuery takes the latest valuation on or before the month
// end of every holding purchased inside the month
const investmentReturnsQuery = `
	SELECT COALESCE(SUM(current_value), 0), COALESCE(SUM(cost_basis), 0)
	FROM (
		SELECT DISTINCT ON (holding_name) current_value, cost_basis
		FROM holding_valuations
		WHERE workspace_id = $1
		  AND purchased_on BETWEEN $2 AND $3
		  AND valued_on <= $3
		ORDER BY holding_name, valued_on DESC, id DESC
	) latest`

func investmentReturnsArgs(workspaceID int32, start, end time.Time) []any {
	return []any{workspaceID, timeToPgDate(start), timeToPgDate(end)}
}

// GetInvestmentReturns compares value and cost of the holdings bought in [start, end]
func (r *LedgerRepository) GetInvestmentReturns(ctx context.Context, workspaceID int32, start, end time.Time) (domain.InvestmentReturns, error) {
	var current, cost pgtype.Numeric
	err := r.pool.QueryRow(ctx, investmentReturnsQuery, investmentReturnsArgs(workspaceID, start, end)...).Scan(&current, &cost)
	if err != nil {
		return domain.InvestmentReturns{}, err
	}
	return domain.InvestmentReturns{
		CurrentValue: pgNumericToDecimal(current),
		CostBasis:    pgNumericToDecimal(cost),
	}, nil
}

func (r *LedgerRepository) sum(ctx context.Context, query string, workspaceID int32, start, end time.Time) (decimal.Decimal, error) {
	var total pgtype.Numeric
	if err := r.pool.QueryRow(ctx, query, workspaceID, timeToPgDate(start), timeToPgDate(end)).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(total), nil
}
