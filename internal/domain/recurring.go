package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is how often a recurring commitment falls due
type Frequency string

const (
	FrequencyDaily      Frequency = "DAILY"
	FrequencyWeekly     Frequency = "WEEKLY"
	FrequencyMonthly    Frequency = "MONTHLY"
	FrequencyQuarterly  Frequency = "QUARTERLY"
	FrequencyHalfYearly Frequency = "HALF_YEARLY"
	FrequencyYearly     Frequency = "YEARLY"
	FrequencyCustom     Frequency = "CUSTOM"
)

// IsValid reports whether f is a known frequency
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly,
		FrequencyHalfYearly, FrequencyYearly, FrequencyCustom:
		return true
	}
	return false
}

// RecurringCommitment is an amount that repeats on a calendar rule.
// Build it with NewRecurringCommitment so the invariants hold.
type RecurringCommitment struct {
	Amount           decimal.Decimal `json:"amount"`
	Frequency        Frequency       `json:"frequency"`
	AnchorDate       time.Time       `json:"anchorDate"`
	CustomDayOfMonth *int            `json:"customDayOfMonth,omitempty"`
	EndDate          *time.Time      `json:"endDate,omitempty"`
}

// NewRecurringCommitment validates and returns a commitment
func NewRecurringCommitment(amount decimal.Decimal, frequency Frequency, anchor time.Time, customDay *int, endDate *time.Time) (RecurringCommitment, error) {
	c := RecurringCommitment{
		Amount:           amount,
		Frequency:        frequency,
		AnchorDate:       anchor,
		CustomDayOfMonth: customDay,
		EndDate:          endDate,
	}
	if err := c.Validate(); err != nil {
		return RecurringCommitment{}, err
	}
	return c, nil
}

// Validate checks the commitment invariants
func (c RecurringCommitment) Validate() error {
	if c.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidCommitment)
	}
	if !c.Frequency.IsValid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidCommitment, c.Frequency)
	}
	if c.AnchorDate.IsZero() {
		return fmt.Errorf("%w: anchor date is required", ErrInvalidCommitment)
	}
	if c.Frequency == FrequencyCustom {
		if c.CustomDayOfMonth == nil {
			return fmt.Errorf("%w: custom frequency requires a day of month", ErrInvalidCommitment)
		}
		if *c.CustomDayOfMonth < 1 || *c.CustomDayOfMonth > 31 {
			return fmt.Errorf("%w: day of month must be between 1 and 31", ErrInvalidCommitment)
		}
	} else if c.CustomDayOfMonth != nil {
		return fmt.Errorf("%w: day of month is only allowed for custom frequency", ErrInvalidCommitment)
	}
	if c.EndDate != nil && c.EndDate.Before(c.AnchorDate) {
		return fmt.Errorf("%w: end date is before anchor date", ErrInvalidCommitment)
	}
	return nil
}

// SIP is a systematic investment plan feeding an allocation bucket
type SIP struct {
	ID         int32               `json:"id"`
	Name       string              `json:"name"`
	BucketKey  BucketKey           `json:"bucketKey"`
	Commitment RecurringCommitment `json:"commitment"`
	IsActive   bool                `json:"isActive"`
}
