// Package feequote computes the advisory loan fee shown before a client-side transfer.
// Nothing here moves funds or records receipts.
package feequote

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shillmonger/TrustLoanETH/internal/wallet"
)

// ErrInvalidAmount is returned for non-positive or over-precise amounts.
var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// Config holds the fee schedule.
type Config struct {
	Percent       decimal.Decimal
	TokenDecimals int32
	Recipient     string
}

// Quote is the fee breakdown for one loan amount.
type Quote struct {
	Amount       decimal.Decimal `json:"amount"`
	Percent      decimal.Decimal `json:"percent"`
	Fee          decimal.Decimal `json:"fee"`
	Net          decimal.Decimal `json:"net"`
	FeeBaseUnits string          `json:"feeBaseUnits"`
	NetBaseUnits string          `json:"netBaseUnits"`
	Decimals     int32           `json:"decimals"`
	Recipient    string          `json:"recipient"`
}

// Quoter applies a validated fee schedule.
type Quoter struct {
	cfg Config
}

// NewQuoter validates cfg and returns a Quoter.
func NewQuoter(cfg Config) (*Quoter, error) {
	if cfg.Percent.IsNegative() || cfg.Percent.GreaterThan(hundred) {
		return nil, fmt.Errorf("fee percent must be between 0 and 100, got %s", cfg.Percent)
	}
	if cfg.TokenDecimals < 0 || cfg.TokenDecimals > 36 {
		return nil, fmt.Errorf("token decimals out of range: %d", cfg.TokenDecimals)
	}
	if !wallet.IsValidAddress(cfg.Recipient) {
		return nil, fmt.Errorf("fee recipient %q: %w", cfg.Recipient, wallet.ErrInvalidAddress)
	}
	cfg.Recipient = wallet.ChecksumAddress(cfg.Recipient)
	return &Quoter{cfg: cfg}, nil
}

// Quote splits amount into fee and net, rounding the fee to the token's precision.
func (q *Quoter) Quote(amount decimal.Decimal) (Quote, error) {
	if !amount.IsPositive() {
		return Quote{}, ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(q.cfg.TokenDecimals)) {
		return Quote{}, ErrInvalidAmount
	}
	fee := amount.Mul(q.cfg.Percent).Div(hundred).Round(q.cfg.TokenDecimals)
	net := amount.Sub(fee)
	return Quote{
		Amount:       amount,
		Percent:      q.cfg.Percent,
		Fee:          fee,
		Net:          net,
		FeeBaseUnits: fee.Shift(q.cfg.TokenDecimals).BigInt().String(),
		NetBaseUnits: net.Shift(q.cfg.TokenDecimals).BigInt().String(),
		Decimals:     q.cfg.TokenDecimals,
		Recipient:    q.cfg.Recipient,
	}, nil
}
