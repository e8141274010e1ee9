package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
)

const payloadDateLayout = "2006-01-02"

// EventType is the action part of an event name
type EventType string

const (
	EventTypeCreated  EventType = "created"
	EventTypeUpdated  EventType = "updated"
	EventTypeDeleted  EventType = "deleted"
	EventTypePaid     EventType = "paid"
	EventTypeExported EventType = "exported"
)

// EntityType is the subject part of an event name
type EntityType string

const (
	EntityTypeLoan        EntityType = "loan"
	EntityTypeInstallment EntityType = "installment"
	EntityTypeSummary     EntityType = "summary"
)

// ParseEntityType validates an entity name sent by a client
func ParseEntityType(s string) (EntityType, error) {
	switch e := EntityType(s); e {
	case EntityTypeLoan, EntityTypeInstallment, EntityTypeSummary:
		return e, nil
	}
	return "", fmt.Errorf("unknown entity %q", s)
}

// Event is the message pushed to clients and to the message bus
// Format: { type, entity, workspaceId, loanId, payload, timestamp }
type Event struct {
	Type        string     `json:"type"`   // e.g. "loan.created"
	Entity      EntityType `json:"entity"` // e.g. "loan"
	WorkspaceID int32      `json:"workspaceId,omitempty"`
	// LoanID is set on loan and installment events so clients can follow one loan
	LoanID    int32     `json:"loanId,omitempty"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time
func NewEvent(eventType EventType, entityType EntityType, payload any) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LoanPayload is the loan snapshot carried by loan.created and loan.updated
type LoanPayload struct {
	ID                int32  `json:"id"`
	Name              string `json:"name"`
	Frequency         string `json:"frequency"`
	TenureInPeriods   int    `json:"tenureInPeriods"`
	InstallmentAmount string `json:"installmentAmount"`
	PaidCount         int    `json:"paidCount"`
	NextDueDate       string `json:"nextDueDate,omitempty"`
}

// InstallmentPayload is carried by installment.paid
type InstallmentPayload struct {
	LoanID         int32  `json:"loanId"`
	SequenceNumber int    `json:"sequenceNumber"`
	DueDate        string `json:"dueDate"`
	Amount         string `json:"amount"`
	PaidAmount     string `json:"paidAmount"`
	PaidDate       string `json:"paidDate,omitempty"`
}

// SummaryExportPayload is carried by summary.exported. The presigned URL is
// left out so it does not travel over the message bus.
type SummaryExportPayload struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Key       string `json:"key"`
	Encrypted bool   `json:"encrypted"`
}

func newLoanPayload(loan *domain.Loan) LoanPayload {
	p := LoanPayload{
		ID:        loan.ID,
		Name:      loan.Name,
		Frequency: string(loan.Frequency),
		PaidCount: loan.PaidCount(),
	}
	if loan.TenureInPeriods != nil {
		p.TenureInPeriods = *loan.TenureInPeriods
	}
	if loan.InstallmentAmount != nil {
		p.InstallmentAmount = loan.InstallmentAmount.StringFixed(2)
	}
	for _, inst := range loan.Installments {
		if inst.Paid {
			continue
		}
		if p.NextDueDate == "" || inst.DueDate.Format(payloadDateLayout) < p.NextDueDate {
			p.NextDueDate = inst.DueDate.Format(payloadDateLayout)
		}
	}
	return p
}

func loanEvent(eventType EventType, loan *domain.Loan) Event {
	evt := NewEvent(eventType, EntityTypeLoan, newLoanPayload(loan))
	evt.LoanID = loan.ID
	return evt
}

// LoanCreated creates a loan.created event
func LoanCreated(loan *domain.Loan) Event {
	return loanEvent(EventTypeCreated, loan)
}

// LoanUpdated creates a loan.updated event
func LoanUpdated(loan *domain.Loan) Event {
	return loanEvent(EventTypeUpdated, loan)
}

// LoanDeleted creates a loan.deleted event
func LoanDeleted(loanID int32) Event {
	evt := NewEvent(EventTypeDeleted, EntityTypeLoan, map[string]int32{"id": loanID})
	evt.LoanID = loanID
	return evt
}

// InstallmentPaid creates an installment.paid event
func InstallmentPaid(loanID int32, inst *domain.Installment) Event {
	p := InstallmentPayload{
		LoanID:         loanID,
		SequenceNumber: inst.SequenceNumber,
		DueDate:        inst.DueDate.Format(payloadDateLayout),
		Amount:         inst.Amount.StringFixed(2),
		PaidAmount:     inst.Amount.StringFixed(2),
	}
	if inst.PaidAmount != nil {
		p.PaidAmount = inst.PaidAmount.StringFixed(2)
	}
	if inst.PaidDate != nil {
		p.PaidDate = inst.PaidDate.Format(payloadDateLayout)
	}
	evt := NewEvent(EventTypePaid, EntityTypeInstallment, p)
	evt.LoanID = loanID
	return evt
}

// SummaryExported creates a summary.exported event
func SummaryExported(export *domain.SummaryExport) Event {
	return NewEvent(EventTypeExported, EntityTypeSummary, SummaryExportPayload{
		Year:      export.Year,
		Month:     export.Month,
		Key:       export.Key,
		Encrypted: export.Encrypted,
	})
}
