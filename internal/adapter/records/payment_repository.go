package records

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
	"github.com/YelzhanWeb/lunchbox/internal/store"
)

type paymentRepository struct {
	st       store.RecordStore
	payments config.PaymentSchema
	banks    config.BankConfigSchema
}

func NewPaymentRepository(st store.RecordStore, payments config.PaymentSchema, banks config.BankConfigSchema) interfaces.PaymentRepository {
	return &paymentRepository{st: st, payments: payments, banks: banks}
}

func (r *paymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	rec, err := r.st.Get(ctx, r.payments.Table, id)
	if err != nil {
		return nil, wrapErr("failed to load payment", "payment", err)
	}
	f := rec.Fields
	return &domain.Payment{
		ID:             rec.ID,
		Status:         domain.PaymentStatus(f.String(r.payments.Status)),
		Amount:         f.Decimal(r.payments.Amount),
		RefundedAmount: f.Decimal(r.payments.RefundedAmount),
		BankConfigIDs:  f.StringList(r.payments.BankConfig),
		ProviderRef:    f.String(r.payments.ProviderRef),
		OrderIDs:       f.StringList(r.payments.Order),
	}, nil
}

func (r *paymentRepository) RecordRefund(ctx context.Context, id string, refunded decimal.Decimal, status domain.PaymentStatus) error {
	_, err := r.st.Update(ctx, r.payments.Table, []store.Record{{
		ID: id,
		Fields: store.Fields{
			r.payments.RefundedAmount: refunded.InexactFloat64(),
			r.payments.Status:         string(status),
		},
	}})
	return wrapErr("failed to record refund", "payment", err)
}

func (r *paymentRepository) FindBankConfig(ctx context.Context, id string) (*domain.BankConfig, error) {
	rec, err := r.st.Get(ctx, r.banks.Table, id)
	if err != nil {
		return nil, wrapErr("failed to load bank config", "bank config", err)
	}
	return &domain.BankConfig{
		ID:         rec.ID,
		Code:       rec.Fields.String(r.banks.Code),
		MerchantID: rec.Fields.String(r.banks.MerchantID),
		Endpoint:   rec.Fields.String(r.banks.Endpoint),
	}, nil
}
