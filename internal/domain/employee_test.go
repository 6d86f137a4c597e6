package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEmployeeRoles(t *testing.T) {
	tests := []struct {
		role               string
		hr, manager, privd bool
	}{
		{"Employee", false, false, false},
		{"hr", true, false, true},
		{"Site Manager", false, true, true},
		{"HR Manager", true, true, true},
		{"", false, false, false},
	}
	for _, tt := range tests {
		e := Employee{Role: tt.role}
		assert.Equal(t, tt.hr, e.IsHR(), tt.role)
		assert.Equal(t, tt.manager, e.IsManager(), tt.role)
		assert.Equal(t, tt.privd, e.IsPrivileged(), tt.role)
	}
}

func TestEmployeeIsActive(t *testing.T) {
	assert.True(t, Employee{Status: "Active"}.IsActive())
	assert.True(t, Employee{Status: " active "}.IsActive())
	assert.False(t, Employee{Status: "Inactive"}.IsActive())
}

func TestMenuItemVisibleTo(t *testing.T) {
	assert.True(t, MenuItem{Access: "ALL"}.VisibleTo("ACME"))
	assert.True(t, MenuItem{Access: "ACME, GLOBEX"}.VisibleTo("acme"))
	assert.False(t, MenuItem{Access: "GLOBEX"}.VisibleTo("ACME"))
	assert.False(t, MenuItem{Access: "GLOBEX"}.VisibleTo(""))
}

func TestOrganizationIsPaidProgram(t *testing.T) {
	org := Organization{ContractType: "Employee Paid"}
	paid := []string{"employee paid"}

	assert.True(t, org.IsPaidProgram(Employee{Role: "Employee"}, paid))
	assert.False(t, org.IsPaidProgram(Employee{Role: "HR"}, paid))
	assert.False(t, Organization{ContractType: "Subsidized"}.IsPaidProgram(Employee{}, paid))
}

func TestPaymentRemaining(t *testing.T) {
	p := Payment{Amount: decimal.RequireFromString("100"), RefundedAmount: decimal.RequireFromString("30")}
	assert.Equal(t, "70", p.Remaining().String())

	p.RefundedAmount = decimal.RequireFromString("120")
	assert.True(t, p.Remaining().IsZero())
}

func TestOrderOwnershipAndActivity(t *testing.T) {
	o := Order{EmployeeIDs: []string{"recE1"}, Status: StatusNew}
	assert.True(t, o.OwnedBy("recE1"))
	assert.False(t, o.OwnedBy("recE2"))
	assert.True(t, o.IsActive())

	o.Status = StatusCancelled
	assert.False(t, o.IsActive())
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ForbiddenError(MsgInvalidToken))
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))

	up := UpstreamError("create order", errors.New("INVALID_VALUE_FOR_COLUMN"))
	assert.Equal(t, "create order: INVALID_VALUE_FOR_COLUMN", up.Error())
	assert.Equal(t, "UPSTREAM_CONSISTENCY_TIMEOUT", KindConsistencyTimeout.String())
}

func TestIdempotencyKey(t *testing.T) {
	assert.Equal(t, "2025-06-01|recE1|tok-1", IdempotencyKey("2025-06-01", "recE1", "tok-1"))
}
