package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks request values outside the accepted range
var ErrInvalidInput = errors.New("invalid input")

// Computation engine errors. These are raised where a commitment or loan is
// constructed or solved and are never swallowed by the engine itself.
var (
	ErrInvalidCommitment     = errors.New("invalid recurring commitment")
	ErrInvalidLoanParameters = errors.New("loan parameters cannot amortize")
	ErrInconsistentLoanSpec  = fmt.Errorf("%w: tenure and installment amount disagree", ErrInvalidLoanParameters)
	ErrScheduleMismatch      = errors.New("payment schedule does not match loan frequency")
	ErrAmbiguousLoanSpec     = errors.New("either tenure or installment amount is required")
)

// Validation constants
const (
	MaxLoanNameLength = 200
	MinYear           = 2000
	MaxYear           = 2100
)
