// Package errors holds the domain error taxonomy shared by the wallet
// services and the HTTP layer.
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DomainError is a failure the caller can act on. Code is stable and is
// what API clients switch on; Message is for humans.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// InsufficientFundsError reports the computed fee and total alongside the
// balance they were checked against.
type InsufficientFundsError struct {
	Fee     decimal.Decimal
	Total   decimal.Decimal
	Balance decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: total %s (fee %s) exceeds balance %s",
		e.Total.String(), e.Fee.String(), e.Balance.String())
}

// Shortfall is how much the balance is missing to cover the total.
func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Total.Sub(e.Balance)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// CommitError wraps a storage failure. No partial write is possible, so the
// operation can be retried with the same parameters.
type CommitError struct {
	Op    string
	Cause error
}

func (e *CommitError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Op, ErrCommitFailure.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrCommitFailure.Message, e.Cause)
}

func (e *CommitError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrCommitFailure}
	}
	return []error{ErrCommitFailure, e.Cause}
}

// Code returns the code of the first DomainError in err's chain, or
// "INTERNAL" when there is none.
func Code(err error) string {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}
