package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LoanRepository implements domain.LoanRepository using PostgreSQL
type LoanRepository struct {
	pool *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

const loanColumns = `id, workspace_id, name, principal, annual_rate_percent, frequency,
	tenure_in_periods, installment_amount, start_date, schedule_anchors, is_active,
	created_at, updated_at`

// loanRow mirrors one row of the loans table
type loanRow struct {
	ID                int32
	WorkspaceID       int32
	Name              string
	Principal         pgtype.Numeric
	AnnualRatePercent pgtype.Numeric
	Frequency         string
	TenureInPeriods   pgtype.Int4
	InstallmentAmount pgtype.Numeric
	StartDate         pgtype.Date
	ScheduleAnchors   []byte
	IsActive          bool
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
}

func scanLoanRow(row pgx.Row) (*loanRow, error) {
	var l loanRow
	err := row.Scan(
		&l.ID, &l.WorkspaceID, &l.Name, &l.Principal, &l.AnnualRatePercent, &l.Frequency,
		&l.TenureInPeriods, &l.InstallmentAmount, &l.StartDate, &l.ScheduleAnchors, &l.IsActive,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (l *loanRow) toDomain() (*domain.Loan, error) {
	anchors := []domain.ScheduleAnchor{}
	if len(l.ScheduleAnchors) > 0 {
		if err := json.Unmarshal(l.ScheduleAnchors, &anchors); err != nil {
			return nil, err
		}
	}
	return &domain.Loan{
		ID:                     l.ID,
		WorkspaceID:            l.WorkspaceID,
		Name:                   l.Name,
		Principal:              pgNumericToDecimal(l.Principal),
		AnnualRatePercent:      pgNumericToDecimal(l.AnnualRatePercent),
		Frequency:              domain.LoanFrequency(l.Frequency),
		TenureInPeriods:        pgInt4ToOptionalInt(l.TenureInPeriods),
		InstallmentAmount:      pgNumericToOptionalDecimal(l.InstallmentAmount),
		StartDate:              pgDateToTime(l.StartDate),
		PaymentScheduleAnchors: anchors,
		IsActive:               l.IsActive,
		CreatedAt:              l.CreatedAt.Time,
		UpdatedAt:              l.UpdatedAt.Time,
	}, nil
}

// loanParams holds the converted column values shared by insert and update
type loanParams struct {
	principal   pgtype.Numeric
	rate        pgtype.Numeric
	installment pgtype.Numeric
	tenure      pgtype.Int4
	anchors     []byte
}

func toLoanParams(loan *domain.Loan) (*loanParams, error) {
	principal, err := decimalToPgNumeric(loan.Principal)
	if err != nil {
		return nil, err
	}
	rate, err := decimalToPgNumeric(loan.AnnualRatePercent)
	if err != nil {
		return nil, err
	}
	installment, err := optionalDecimalToPgNumeric(loan.InstallmentAmount)
	if err != nil {
		return nil, err
	}
	anchors := loan.PaymentScheduleAnchors
	if anchors == nil {
		anchors = []domain.ScheduleAnchor{}
	}
	encoded, err := json.Marshal(anchors)
	if err != nil {
		return nil, err
	}
	return &loanParams{
		principal:   principal,
		rate:        rate,
		installment: installment,
		tenure:      optionalIntToPgInt4(loan.TenureInPeriods),
		anchors:     encoded,
	}, nil
}

// Create stores the loan together with its installments atomically
func (r *LoanRepository) Create(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	p, err := toLoanParams(loan)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row, err := scanLoanRow(tx.QueryRow(ctx, `
		INSERT INTO loans (workspace_id, name, principal, annual_rate_percent, frequency,
			tenure_in_periods, installment_amount, start_date, schedule_anchors, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+loanColumns,
		loan.WorkspaceID, loan.Name, p.principal, p.rate, string(loan.Frequency),
		p.tenure, p.installment, timeToPgDate(loan.StartDate), p.anchors, loan.IsActive,
	))
	if err != nil {
		return nil, err
	}

	if err := insertInstallments(ctx, tx, row.ID, loan.Installments); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	created, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	created.Installments = loan.Installments
	return created, nil
}

// GetByID retrieves a loan and its installments scoped to a workspace
func (r *LoanRepository) GetByID(ctx context.Context, workspaceID int32, id int32) (*domain.Loan, error) {
	row, err := scanLoanRow(r.pool.QueryRow(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}

	loan, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	installments, err := r.listInstallments(ctx, []int32{loan.ID})
	if err != nil {
		return nil, err
	}
	loan.Installments = installments[loan.ID]
	return loan, nil
}

// ListByWorkspace retrieves every loan of a workspace with its installments
func (r *LoanRepository) ListByWorkspace(ctx context.Context, workspaceID int32) ([]*domain.Loan, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE workspace_id = $1 ORDER BY id`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*domain.Loan{}
	ids := []int32{}
	for rows.Next() {
		row, err := scanLoanRow(rows)
		if err != nil {
			return nil, err
		}
		loan, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, loan)
		ids = append(ids, loan.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return result, nil
	}

	installments, err := r.listInstallments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, loan := range result {
		loan.Installments = installments[loan.ID]
	}
	return result, nil
}

// Update rewrites the loan row and replaces its installment list atomically
func (r *LoanRepository) Update(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	p, err := toLoanParams(loan)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row, err := scanLoanRow(tx.QueryRow(ctx, `
		UPDATE loans SET name = $3, principal = $4, annual_rate_percent = $5, frequency = $6,
			tenure_in_periods = $7, installment_amount = $8, start_date = $9,
			schedule_anchors = $10, is_active = $11, updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2
		RETURNING `+loanColumns,
		loan.WorkspaceID, loan.ID, loan.Name, p.principal, p.rate, string(loan.Frequency),
		p.tenure, p.installment, timeToPgDate(loan.StartDate), p.anchors, loan.IsActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM loan_installments WHERE loan_id = $1`, loan.ID); err != nil {
		return nil, err
	}
	if err := insertInstallments(ctx, tx, loan.ID, loan.Installments); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	updated, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	updated.Installments = loan.Installments
	return updated, nil
}

// MarkInstallmentPaid flags one unpaid installment as paid
func (r *LoanRepository) MarkInstallmentPaid(ctx context.Context, loanID int32, sequenceNumber int, paidAmount decimal.Decimal, paidDate time.Time) (*domain.Installment, error) {
	amount, err := decimalToPgNumeric(paidAmount)
	if err != nil {
		return nil, err
	}

	inst, err := scanInstallment(r.pool.QueryRow(ctx, `
		UPDATE loan_installments SET paid = TRUE, paid_amount = $3, paid_date = $4
		WHERE loan_id = $1 AND sequence_number = $2 AND NOT paid
		RETURNING loan_id, sequence_number, due_date, amount, paid, paid_amount, paid_date`,
		loanID, int32(sequenceNumber), amount, timeToPgDate(paidDate),
	))
	if err == nil {
		return inst, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// No row updated: tell a missing installment apart from a paid one
	var paid bool
	err = r.pool.QueryRow(ctx,
		`SELECT paid FROM loan_installments WHERE loan_id = $1 AND sequence_number = $2`,
		loanID, int32(sequenceNumber),
	).Scan(&paid)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInstallmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return nil, domain.ErrInstallmentAlreadyPaid
}

// Delete removes a loan; installments cascade
func (r *LoanRepository) Delete(ctx context.Context, workspaceID int32, id int32) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM loans WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

func (r *LoanRepository) listInstallments(ctx context.Context, loanIDs []int32) (map[int32][]domain.Installment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT loan_id, sequence_number, due_date, amount, paid, paid_amount, paid_date
		FROM loan_installments
		WHERE loan_id = ANY($1)
		ORDER BY loan_id, sequence_number`,
		loanIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int32][]domain.Installment, len(loanIDs))
	for rows.Next() {
		var loanID int32
		inst, err := scanInstallmentWithLoan(rows, &loanID)
		if err != nil {
			return nil, err
		}
		result[loanID] = append(result[loanID], *inst)
	}
	return result, rows.Err()
}

func insertInstallments(ctx context.Context, tx pgx.Tx, loanID int32, installments []domain.Installment) error {
	if len(installments) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, inst := range installments {
		amount, err := decimalToPgNumeric(inst.Amount)
		if err != nil {
			return err
		}
		paidAmount, err := optionalDecimalToPgNumeric(inst.PaidAmount)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO loan_installments (loan_id, sequence_number, due_date, amount, paid, paid_amount, paid_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			loanID, int32(inst.SequenceNumber), timeToPgDate(inst.DueDate), amount,
			inst.Paid, paidAmount, optionalTimeToPgDate(inst.PaidDate),
		)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func scanInstallment(row pgx.Row) (*domain.Installment, error) {
	var loanID int32
	return scanInstallmentWithLoan(row, &loanID)
}

func scanInstallmentWithLoan(row pgx.Row, loanID *int32) (*domain.Installment, error) {
	var (
		seq        int32
		dueDate    pgtype.Date
		amount     pgtype.Numeric
		paid       bool
		paidAmount pgtype.Numeric
		paidDate   pgtype.Date
	)
	if err := row.Scan(loanID, &seq, &dueDate, &amount, &paid, &paidAmount, &paidDate); err != nil {
		return nil, err
	}
	return &domain.Installment{
		SequenceNumber: int(seq),
		DueDate:        pgDateToTime(dueDate),
		Amount:         pgNumericToDecimal(amount),
		Paid:           paid,
		PaidAmount:     pgNumericToOptionalDecimal(paidAmount),
		PaidDate:       pgDateToOptionalTime(paidDate),
	}, nil
}
