package bank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

func TestUnconfiguredRefuses(t *testing.T) {
	gw := NewUnconfigured()

	resp, err := gw.Refund(context.Background(), domain.BankConfig{Code: "VCB"}, interfaces.RefundRequest{PaymentID: "recPay"})
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Contains(t, err.Error(), "VCB")
	assert.Nil(t, resp)

	_, err = gw.Refund(context.Background(), domain.BankConfig{}, interfaces.RefundRequest{})
	assert.Equal(t, ErrNotConfigured, err)
}
