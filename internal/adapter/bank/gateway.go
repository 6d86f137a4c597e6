// Package bank holds the refund gateway. Provider integration is external;
// the shipped gateway refuses every refund so cancellations record the
// attempt and move on.
package bank

import (
	"context"
	"errors"

	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

var ErrNotConfigured = errors.New("bank gateway not configured")

type Unconfigured struct{}

func NewUnconfigured() *Unconfigured {
	return &Unconfigured{}
}

func (Unconfigured) Refund(_ context.Context, bank domain.BankConfig, _ interfaces.RefundRequest) (*interfaces.RefundResponse, error) {
	if bank.Code != "" {
		return nil, errors.Join(ErrNotConfigured, errors.New("bank "+bank.Code))
	}
	return nil, ErrNotConfigured
}

var _ interfaces.BankGateway = (*Unconfigured)(nil)
