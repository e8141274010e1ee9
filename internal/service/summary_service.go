package service

import (
	"context"
	"fmt"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/util"
	"github.com/dafibh/fortuna/fortuna-planner/internal/waterfall"
	"golang.org/x/sync/errgroup"
)

// SummaryService gathers a month's ledger data and runs the waterfall on it
type SummaryService struct {
	loanRepo   domain.LoanRepository
	ledgerRepo domain.LedgerRepository
}

// NewSummaryService creates a new SummaryService
func NewSummaryService(loanRepo domain.LoanRepository, ledgerRepo domain.LedgerRepository) *SummaryService {
	return &SummaryService{
		loanRepo:   loanRepo,
		ledgerRepo: ledgerRepo,
	}
}

// GetMonthlySummary returns the cash-flow waterfall for a workspace month
func (s *SummaryService) GetMonthlySummary(ctx context.Context, workspaceID int32, year, month int) (*domain.MonthlySummary, error) {
	in, err := s.gatherInput(ctx, workspaceID, year, month)
	if err != nil {
		return nil, err
	}
	return waterfall.ComputeMonthlySummary(*in), nil
}

// GetBucketAvailability returns, per investment bucket, what is left for
// one-time purchases or new SIPs after this month's SIP commitments
func (s *SummaryService) GetBucketAvailability(ctx context.Context, workspaceID int32, year, month int) ([]domain.BucketAvailability, error) {
	in, err := s.gatherInput(ctx, workspaceID, year, month)
	if err != nil {
		return nil, err
	}
	summary := waterfall.ComputeMonthlySummary(*in)
	return waterfall.BucketAvailability(summary.Allocations, in.SIPs, year, month), nil
}

// gatherInput fetches every month aggregate concurrently. The first failure
// cancels the remaining queries.
func (s *SummaryService) gatherInput(ctx context.Context, workspaceID int32, year, month int) (*waterfall.Input, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}

	start, end := util.MonthBoundaries(year, month)
	in := &waterfall.Input{Year: year, Month: month}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		in.SalaryHistory, err = s.ledgerRepo.GetSalaryHistory(ctx, workspaceID)
		return err
	})
	g.Go(func() (err error) {
		in.IncomeEntries, err = s.ledgerRepo.GetIncomeEntries(ctx, workspaceID, start, end)
		return err
	})
	g.Go(func() (err error) {
		in.TaxRule, err = s.ledgerRepo.GetTaxRule(ctx, workspaceID)
		return err
	})
	g.Go(func() (err error) {
		in.Loans, err = s.loanRepo.ListByWorkspace(ctx, workspaceID)
		return err
	})
	g.Go(func() (err error) {
		in.SIPs, err = s.ledgerRepo.GetActiveSIPs(ctx, workspaceID)
		return err
	})
	g.Go(func() (err error) {
		in.ExpenseBudget, err = s.ledgerRepo.GetExpenseBudget(ctx, workspaceID)
		return err
	})
	g.Go(func() (err error) {
		in.Buckets, err = s.ledgerRepo.GetAllocationBuckets(ctx, workspaceID)
		return err
	})
	g.Go(func() (err error) {
		in.ActualExpenses, err = s.ledgerRepo.SumExpenses(ctx, workspaceID, start, end)
		return err
	})
	g.Go(func() (err error) {
		in.OneTimePurchases, err = s.ledgerRepo.SumOneTimePurchases(ctx, workspaceID, start, end)
		return err
	})
	g.Go(func() (err error) {
		in.SIPExecuted, err = s.ledgerRepo.SumSIPExecutions(ctx, workspaceID, start, end)
		return err
	})
	g.Go(func() (err error) {
		in.PaidEMI, err = s.ledgerRepo.SumPaidEMIs(ctx, workspaceID, start, end)
		return err
	})
	g.Go(func() (err error) {
		in.MemberTransactions, err = s.ledgerRepo.GetUnsettledMemberTransactions(ctx, workspaceID)
		return err
	})
	g.Go(func() (err error) {
		in.InvestmentReturns, err = s.ledgerRepo.GetInvestmentReturns(ctx, workspaceID, start, end)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

func validateMonth(year, month int) error {
	if year < domain.MinYear || year > domain.MaxYear {
		return fmt.Errorf("%w: year must be between %d and %d", domain.ErrInvalidInput, domain.MinYear, domain.MaxYear)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month must be between 1 and 12", domain.ErrInvalidInput)
	}
	return nil
}
