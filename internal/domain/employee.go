package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Employee is a person allowed to order on behalf of an organization.
type Employee struct {
	ID      string
	OrgCode string
	Token   string
	Status  string
	Role    string
	Name    string
	Email   string
}

func (e Employee) IsActive() bool {
	return strings.EqualFold(strings.TrimSpace(e.Status), "Active")
}

// IsHR and IsManager match the free-text role field by substring, so a role
// such as "HR Manager" satisfies both.
func (e Employee) IsHR() bool {
	return strings.Contains(strings.ToUpper(e.Role), "HR")
}

func (e Employee) IsManager() bool {
	return strings.Contains(strings.ToUpper(e.Role), "MANAGER")
}

// IsPrivileged reports whether the employee may use the extended same-day window.
func (e Employee) IsPrivileged() bool {
	return e.IsHR() || e.IsManager()
}

type Organization struct {
	ID               string
	Code             string
	Name             string
	TimeZone         string
	Cutoff           string
	PrivilegedCutoff string
	ContractType     string
	StandardPrice    decimal.Decimal
	UpsizedPrice     decimal.Decimal
	BankConfigID     string
}

// IsPaidProgram reports whether meals ordered for emp are paid by the employee.
// Privileged staff are billed to the organization.
func (o Organization) IsPaidProgram(emp Employee, paidContractTypes []string) bool {
	if emp.IsPrivileged() {
		return false
	}
	for _, t := range paidContractTypes {
		if strings.EqualFold(strings.TrimSpace(o.ContractType), strings.TrimSpace(t)) {
			return true
		}
	}
	return false
}

// MenuItem is a dish offered on exactly one calendar date.
type MenuItem struct {
	ID        string
	Date      string
	Name      string
	Category  string
	Published bool
	Access    string
	Price     decimal.Decimal
}

// VisibleTo reports whether the item's access field admits orgCode: either
// "ALL" or a value containing the code.
func (m MenuItem) VisibleTo(orgCode string) bool {
	access := strings.TrimSpace(m.Access)
	if strings.EqualFold(access, "ALL") {
		return true
	}
	if orgCode == "" {
		return false
	}
	return strings.Contains(strings.ToUpper(access), strings.ToUpper(orgCode))
}
