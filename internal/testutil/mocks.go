package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/websocket"
	"github.com/shopspring/decimal"
)

// MockLoanRepository is a mock implementation of domain.LoanRepository
type MockLoanRepository struct {
	Loans     map[int32]*domain.Loan
	NextID    int32
	CreateFn  func(loan *domain.Loan) (*domain.Loan, error)
	GetByIDFn func(workspaceID int32, id int32) (*domain.Loan, error)
	ListFn    func(workspaceID int32) ([]*domain.Loan, error)
	UpdateFn  func(loan *domain.Loan) (*domain.Loan, error)
	DeleteFn  func(workspaceID int32, id int32) error
}

// NewMockLoanRepository creates a new MockLoanRepository
func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{
		Loans:  make(map[int32]*domain.Loan),
		NextID: 1,
	}
}

// AddLoan stores a loan as-is, keeping its ID
func (m *MockLoanRepository) AddLoan(loan *domain.Loan) {
	m.Loans[loan.ID] = loan
	if loan.ID >= m.NextID {
		m.NextID = loan.ID + 1
	}
}

// Create stores a new loan with its installments
func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	if m.CreateFn != nil {
		return m.CreateFn(loan)
	}
	loan.ID = m.NextID
	m.NextID++
	loan.CreatedAt = time.Now()
	loan.UpdatedAt = loan.CreatedAt
	m.Loans[loan.ID] = loan
	return loan, nil
}

// GetByID retrieves a loan scoped to a workspace
func (m *MockLoanRepository) GetByID(ctx context.Context, workspaceID int32, id int32) (*domain.Loan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(workspaceID, id)
	}
	loan, ok := m.Loans[id]
	if !ok || loan.WorkspaceID != workspaceID {
		return nil, domain.ErrLoanNotFound
	}
	return loan, nil
}

// ListByWorkspace retrieves every loan of a workspace ordered by ID
func (m *MockLoanRepository) ListByWorkspace(ctx context.Context, workspaceID int32) ([]*domain.Loan, error) {
	if m.ListFn != nil {
		return m.ListFn(workspaceID)
	}
	result := []*domain.Loan{}
	for _, l := range m.Loans {
		if l.WorkspaceID == workspaceID {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Update replaces a stored loan
func (m *MockLoanRepository) Update(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(loan)
	}
	existing, ok := m.Loans[loan.ID]
	if !ok || existing.WorkspaceID != loan.WorkspaceID {
		return nil, domain.ErrLoanNotFound
	}
	loan.UpdatedAt = time.Now()
	m.Loans[loan.ID] = loan
	return loan, nil
}

// MarkInstallmentPaid flags one installment as paid
func (m *MockLoanRepository) MarkInstallmentPaid(ctx context.Context, loanID int32, sequenceNumber int, paidAmount decimal.Decimal, paidDate time.Time) (*domain.Installment, error) {
	loan, ok := m.Loans[loanID]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	for i := range loan.Installments {
		inst := &loan.Installments[i]
		if inst.SequenceNumber != sequenceNumber {
			continue
		}
		if inst.Paid {
			return nil, domain.ErrInstallmentAlreadyPaid
		}
		inst.Paid = true
		inst.PaidAmount = &paidAmount
		inst.PaidDate = &paidDate
		result := *inst
		return &result, nil
	}
	return nil, domain.ErrInstallmentNotFound
}

// Delete removes a loan
func (m *MockLoanRepository) Delete(ctx context.Context, workspaceID int32, id int32) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(workspaceID, id)
	}
	loan, ok := m.Loans[id]
	if !ok || loan.WorkspaceID != workspaceID {
		return domain.ErrLoanNotFound
	}
	delete(m.Loans, id)
	return nil
}

// MockLedgerRepository is a mock implementation of domain.LedgerRepository.
// Data is held per workspace; the month window is ignored except for income
// entries, which the engine filters itself.
type MockLedgerRepository struct {
	mu sync.Mutex

	SalaryHistory      map[int32][]domain.SalaryRecord
	IncomeEntries      map[int32][]domain.IncomeEntry
	TaxRules           map[int32]*domain.TaxRule
	SIPs               map[int32][]domain.SIP
	ExpenseBudgets     map[int32]*domain.ExpenseBudget
	Buckets            map[int32][]domain.AllocationBucket
	Expenses           map[int32]decimal.Decimal
	OneTimePurchases   map[int32]decimal.Decimal
	SIPExecutions      map[int32]decimal.Decimal
	PaidEMIs           map[int32]domain.PaidEMITotals
	MemberTransactions map[int32][]domain.MemberTransaction
	Returns            map[int32]domain.InvestmentReturns

	// Err, when set, is returned by every call
	Err error
	// Calls counts repository calls by method name
	Calls map[string]int
}

// NewMockLedgerRepository creates a new MockLedgerRepository
func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{
		SalaryHistory:      make(map[int32][]domain.SalaryRecord),
		IncomeEntries:      make(map[int32][]domain.IncomeEntry),
		TaxRules:           make(map[int32]*domain.TaxRule),
		SIPs:               make(map[int32][]domain.SIP),
		ExpenseBudgets:     make(map[int32]*domain.ExpenseBudget),
		Buckets:            make(map[int32][]domain.AllocationBucket),
		Expenses:           make(map[int32]decimal.Decimal),
		OneTimePurchases:   make(map[int32]decimal.Decimal),
		SIPExecutions:      make(map[int32]decimal.Decimal),
		PaidEMIs:           make(map[int32]domain.PaidEMITotals),
		MemberTransactions: make(map[int32][]domain.MemberTransaction),
		Returns:            make(map[int32]domain.InvestmentReturns),
		Calls:              make(map[string]int),
	}
}

// record is called concurrently by the summary service
func (m *MockLedgerRepository) record(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[name]++
	return m.Err
}

// CallCount returns how many times a method was called
func (m *MockLedgerRepository) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[name]
}

func (m *MockLedgerRepository) GetSalaryHistory(ctx context.Context, workspaceID int32) ([]domain.SalaryRecord, error) {
	if err := m.record("GetSalaryHistory"); err != nil {
		return nil, err
	}
	return m.SalaryHistory[workspaceID], nil
}

func (m *MockLedgerRepository) GetIncomeEntries(ctx context.Context, workspaceID int32, start, end time.Time) ([]domain.IncomeEntry, error) {
	if err := m.record("GetIncomeEntries"); err != nil {
		return nil, err
	}
	return m.IncomeEntries[workspaceID], nil
}

func (m *MockLedgerRepository) GetTaxRule(ctx context.Context, workspaceID int32) (*domain.TaxRule, error) {
	if err := m.record("GetTaxRule"); err != nil {
		return nil, err
	}
	return m.TaxRules[workspaceID], nil
}

func (m *MockLedgerRepository) GetActiveSIPs(ctx context.Context, workspaceID int32) ([]domain.SIP, error) {
	if err := m.record("GetActiveSIPs"); err != nil {
		return nil, err
	}
	return m.SIPs[workspaceID], nil
}

func (m *MockLedgerRepository) GetExpenseBudget(ctx context.Context, workspaceID int32) (*domain.ExpenseBudget, error) {
	if err := m.record("GetExpenseBudget"); err != nil {
		return nil, err
	}
	return m.ExpenseBudgets[workspaceID], nil
}

func (m *MockLedgerRepository) GetAllocationBuckets(ctx context.Context, workspaceID int32) ([]domain.AllocationBucket, error) {
	if err := m.record("GetAllocationBuckets"); err != nil {
		return nil, err
	}
	return m.Buckets[workspaceID], nil
}

func (m *MockLedgerRepository) SumExpenses(ctx context.Context, workspaceID int32, start, end time.Time) (decimal.Decimal, error) {
	if err := m.record("SumExpenses"); err != nil {
		return decimal.Zero, err
	}
	return m.Expenses[workspaceID], nil
}

func (m *MockLedgerRepository) SumOneTimePurchases(ctx context.Context, workspaceID int32, start, end time.Time) (decimal.Decimal, error) {
	if err := m.record("SumOneTimePurchases"); err != nil {
		return decimal.Zero, err
	}
	return m.OneTimePurchases[workspaceID], nil
}

func (m *MockLedgerRepository) SumSIPExecutions(ctx context.Context, workspaceID int32, start, end time.Time) (decimal.Decimal, error) {
	if err := m.record("SumSIPExecutions"); err != nil {
		return decimal.Zero, err
	}
	return m.SIPExecutions[workspaceID], nil
}

func (m *MockLedgerRepository) SumPaidEMIs(ctx context.Context, workspaceID int32, start, end time.Time) (domain.PaidEMITotals, error) {
	if err := m.record("SumPaidEMIs"); err != nil {
		return domain.PaidEMITotals{}, err
	}
	return m.PaidEMIs[workspaceID], nil
}

func (m *MockLedgerRepository) GetUnsettledMemberTransactions(ctx context.Context, workspaceID int32) ([]domain.MemberTransaction, error) {
	if err := m.record("GetUnsettledMemberTransactions"); err != nil {
		return nil, err
	}
	return m.MemberTransactions[workspaceID], nil
}

func (m *MockLedgerRepository) GetInvestmentReturns(ctx context.Context, workspaceID int32, start, end time.Time) (domain.InvestmentReturns, error) {
	if err := m.record("GetInvestmentReturns"); err != nil {
		return domain.InvestmentReturns{}, err
	}
	return m.Returns[workspaceID], nil
}

// MockExportStore is an in-memory domain.ExportStore
type MockExportStore struct {
	Objects      map[string][]byte
	ContentTypes map[string]string
	PutErr       error
}

// NewMockExportStore creates a new MockExportStore
func NewMockExportStore() *MockExportStore {
	return &MockExportStore{
		Objects:      make(map[string][]byte),
		ContentTypes: make(map[string]string),
	}
}

// Put stores the object
func (m *MockExportStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Objects[key] = data
	m.ContentTypes[key] = contentType
	return nil
}

// PresignGet returns a fake link for a stored object
func (m *MockExportStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if _, ok := m.Objects[key]; !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	return fmt.Sprintf("https://exports.test/%s?expires=%d", key, int(expiry.Seconds())), nil
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

// PublishedEvent is one recorded Publish call
type PublishedEvent struct {
	WorkspaceID int32
	Event       websocket.Event
}

// Publish records the event
func (m *MockEventPublisher) Publish(workspaceID int32, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{WorkspaceID: workspaceID, Event: event})
}

// Types returns the recorded event types in order
func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Event.Type
	}
	return types
}
