package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/amortization"
	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/util"
	"github.com/dafibh/fortuna/fortuna-planner/internal/websocket"
	"github.com/shopspring/decimal"
)

// LoanService handles loan business logic
type LoanService struct {
	loanRepo       domain.LoanRepository
	eventPublisher websocket.EventPublisher
}

// NewLoanService creates a new LoanService
func NewLoanService(loanRepo domain.LoanRepository) *LoanService {
	return &LoanService{
		loanRepo: loanRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *LoanService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// publishEvent publishes an event if a publisher is configured
func (s *LoanService) publishEvent(workspaceID int32, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(workspaceID, event)
	}
}

// LoanInput contains input for previewing, creating or editing a loan.
// Exactly one of TenureInPeriods and InstallmentAmount may be nil.
type LoanInput struct {
	Name                   string
	Principal              decimal.Decimal
	AnnualRatePercent      decimal.Decimal
	Frequency              domain.LoanFrequency
	TenureInPeriods        *int
	InstallmentAmount      *decimal.Decimal
	StartDate              time.Time
	PaymentScheduleAnchors []domain.ScheduleAnchor
}

func (in LoanInput) toLoan(workspaceID int32) *domain.Loan {
	return &domain.Loan{
		WorkspaceID:            workspaceID,
		Name:                   strings.TrimSpace(in.Name),
		Principal:              in.Principal,
		AnnualRatePercent:      in.AnnualRatePercent,
		Frequency:              in.Frequency,
		TenureInPeriods:        in.TenureInPeriods,
		InstallmentAmount:      in.InstallmentAmount,
		StartDate:              util.DateOnly(in.StartDate),
		PaymentScheduleAnchors: in.PaymentScheduleAnchors,
	}
}

// LoanPreview contains the solved loan and its generated schedule
type LoanPreview struct {
	Solution     amortization.Solution
	Installments []domain.Installment
}

// PreviewLoan solves a loan and expands its schedule without storing it
func (s *LoanService) PreviewLoan(input LoanInput) (*LoanPreview, error) {
	loan := input.toLoan(0)
	if loan.StartDate.IsZero() {
		return nil, domain.ErrLoanStartDateEmpty
	}
	if !loan.Frequency.IsValid() {
		return nil, domain.ErrLoanFrequencyUnknown
	}

	sol, installments, err := amortization.Plan(loan)
	if err != nil {
		return nil, err
	}
	return &LoanPreview{Solution: sol, Installments: installments}, nil
}

// CreateLoan solves the loan, generates its installments and stores both
func (s *LoanService) CreateLoan(ctx context.Context, workspaceID int32, input LoanInput) (*domain.Loan, error) {
	loan := input.toLoan(workspaceID)
	if err := loan.Validate(); err != nil {
		return nil, err
	}

	sol, installments, err := amortization.Plan(loan)
	if err != nil {
		return nil, err
	}
	applySolution(loan, sol)
	loan.Installments = installments
	loan.IsActive = true

	created, err := s.loanRepo.Create(ctx, loan)
	if err != nil {
		return nil, err
	}

	s.publishEvent(workspaceID, websocket.LoanCreated(created))
	return created, nil
}

// UpdateLoan edits a loan. Paid installments are kept as they are; the
// unpaid part of the schedule is regenerated and everything is renumbered.
func (s *LoanService) UpdateLoan(ctx context.Context, workspaceID int32, id int32, input LoanInput) (*domain.Loan, error) {
	existing, err := s.loanRepo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}

	loan := input.toLoan(workspaceID)
	if err := loan.Validate(); err != nil {
		return nil, err
	}

	sol, regenerated, err := amortization.Plan(loan)
	if err != nil {
		return nil, err
	}
	applySolution(loan, sol)
	loan.ID = existing.ID
	loan.IsActive = existing.IsActive
	loan.CreatedAt = existing.CreatedAt
	loan.Installments = amortization.MergeInstallments(existing.Installments, regenerated)

	updated, err := s.loanRepo.Update(ctx, loan)
	if err != nil {
		return nil, err
	}

	s.publishEvent(workspaceID, websocket.LoanUpdated(updated))
	return updated, nil
}

// GetLoan retrieves a loan with its installments
func (s *LoanService) GetLoan(ctx context.Context, workspaceID int32, id int32) (*domain.Loan, error) {
	return s.loanRepo.GetByID(ctx, workspaceID, id)
}

// ListLoans retrieves all loans for a workspace
func (s *LoanService) ListLoans(ctx context.Context, workspaceID int32) ([]*domain.Loan, error) {
	return s.loanRepo.ListByWorkspace(ctx, workspaceID)
}

// DeleteLoan removes a loan and its installments
func (s *LoanService) DeleteLoan(ctx context.Context, workspaceID int32, id int32) error {
	if err := s.loanRepo.Delete(ctx, workspaceID, id); err != nil {
		return err
	}
	s.publishEvent(workspaceID, websocket.LoanDeleted(id))
	return nil
}

// PayInstallmentInput contains input for marking an installment paid.
// A nil PaidAmount means the scheduled amount was paid.
type PayInstallmentInput struct {
	PaidAmount *decimal.Decimal
	PaidDate   time.Time
}

// PayInstallment records the actual payment of one installment. The paid
// amount may differ from the scheduled one (late fee, part payment).
func (s *LoanService) PayInstallment(ctx context.Context, workspaceID int32, loanID int32, sequenceNumber int, input PayInstallmentInput) (*domain.Installment, error) {
	loan, err := s.loanRepo.GetByID(ctx, workspaceID, loanID)
	if err != nil {
		return nil, err
	}

	var target *domain.Installment
	for i := range loan.Installments {
		if loan.Installments[i].SequenceNumber == sequenceNumber {
			target = &loan.Installments[i]
			break
		}
	}
	if target == nil {
		return nil, domain.ErrInstallmentNotFound
	}
	if target.Paid {
		return nil, domain.ErrInstallmentAlreadyPaid
	}

	amount := target.Amount
	if input.PaidAmount != nil {
		amount = *input.PaidAmount
	}
	if !amount.IsPositive() {
		return nil, domain.ErrInstallmentAmountInvalid
	}
	if input.PaidDate.IsZero() {
		return nil, fmt.Errorf("%w: paid date is required", domain.ErrInvalidInput)
	}

	paid, err := s.loanRepo.MarkInstallmentPaid(ctx, loanID, sequenceNumber, amount, util.DateOnly(input.PaidDate))
	if err != nil {
		return nil, err
	}

	s.publishEvent(workspaceID, websocket.InstallmentPaid(loanID, paid))
	return paid, nil
}

func applySolution(loan *domain.Loan, sol amortization.Solution) {
	tenure := sol.TenureInPeriods
	installment := sol.InstallmentAmount
	loan.TenureInPeriods = &tenure
	loan.InstallmentAmount = &installment
}
