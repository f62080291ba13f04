// Package fees computes platform fees. Arithmetic is exact: fees are never
// rounded.
package fees

import (
	"fmt"

	apperrors "amafaranga/internal/errors"

	"github.com/shopspring/decimal"
)

var (
	DefaultTransferRate   = decimal.RequireFromString("0.10")
	DefaultWithdrawalRate = decimal.RequireFromString("0.25")
)

type Policy struct {
	TransferRate   decimal.Decimal
	WithdrawalRate decimal.Decimal
}

// Quote is the priced form of an amount. Total is what leaves the payer's
// balance.
type Quote struct {
	Amount decimal.Decimal `json:"amount"`
	Fee    decimal.Decimal `json:"fee"`
	Total  decimal.Decimal `json:"total"`
	Rate   decimal.Decimal `json:"rate"`
}

func DefaultPolicy() Policy {
	return Policy{
		TransferRate:   DefaultTransferRate,
		WithdrawalRate: DefaultWithdrawalRate,
	}
}

// NewPolicy parses configured rates. Empty strings keep the defaults.
func NewPolicy(transferRate, withdrawalRate string) (Policy, error) {
	p := DefaultPolicy()
	var err error
	if transferRate != "" {
		if p.TransferRate, err = parseRate(transferRate); err != nil {
			return Policy{}, fmt.Errorf("transfer fee rate: %w", err)
		}
	}
	if withdrawalRate != "" {
		if p.WithdrawalRate, err = parseRate(withdrawalRate); err != nil {
			return Policy{}, fmt.Errorf("withdrawal fee rate: %w", err)
		}
	}
	return p, nil
}

func parseRate(s string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("rate %s is negative", s)
	}
	return rate, nil
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	return nil
}

func (p Policy) Transfer(amount decimal.Decimal) Quote {
	return quote(amount, p.TransferRate)
}

func (p Policy) Withdrawal(amount decimal.Decimal) Quote {
	return quote(amount, p.WithdrawalRate)
}

// Deposit is free.
func (p Policy) Deposit(amount decimal.Decimal) Quote {
	return quote(amount, decimal.Zero)
}

func quote(amount, rate decimal.Decimal) Quote {
	fee := amount.Mul(rate)
	return Quote{
		Amount: amount,
		Fee:    fee,
		Total:  amount.Add(fee),
		Rate:   rate,
	}
}
