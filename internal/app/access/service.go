// Package access authenticates employees against their stored token and
// resolves the employee an operation targets.
package access

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

type Service struct {
	employees interfaces.EmployeeRepository
}

func NewService(employees interfaces.EmployeeRepository) *Service {
	return &Service{employees: employees}
}

// Verify checks, in order: the employee exists, belongs to the organization,
// holds the token and, when requireActive is set, is active.
func (s *Service) Verify(ctx context.Context, creds interfaces.Credentials, requireActive bool) (*domain.Employee, error) {
	id := strings.TrimSpace(creds.EmployeeID)
	org := strings.TrimSpace(creds.OrgCode)
	switch {
	case id == "":
		return nil, domain.ValidationError("employeeId is required")
	case org == "":
		return nil, domain.ValidationError("org is required")
	case creds.Token == "":
		return nil, domain.ValidationError("token is required")
	}

	emp, err := s.employees.FindByID(ctx, id)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.NotFoundError("employee not found")
		}
		return nil, err
	}

	if !sameOrg(emp.OrgCode, org) {
		return nil, domain.ForbiddenError(domain.MsgOrgMismatch)
	}
	if subtle.ConstantTimeCompare([]byte(emp.Token), []byte(creds.Token)) != 1 {
		return nil, domain.ForbiddenError(domain.MsgInvalidToken)
	}
	if requireActive && !emp.IsActive() {
		return nil, domain.ForbiddenError(domain.MsgNotActive)
	}
	return emp, nil
}

// ResolveTarget returns the employee an operation acts for. Acting for someone
// else requires the HR role and a target in the caller's organization.
func (s *Service) ResolveTarget(ctx context.Context, caller *domain.Employee, targetID string, requireActive bool) (*domain.Employee, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" || targetID == caller.ID {
		return caller, nil
	}
	if !caller.IsHR() {
		return nil, domain.ForbiddenError("hr role required to act for another employee")
	}

	target, err := s.employees.FindByID(ctx, targetID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.NotFoundError("target employee not found")
		}
		return nil, err
	}
	if !sameOrg(target.OrgCode, caller.OrgCode) {
		return nil, domain.ForbiddenError(domain.MsgOrgMismatch)
	}
	if requireActive && !target.IsActive() {
		return nil, domain.ForbiddenError("target employee " + domain.MsgNotActive)
	}
	return target, nil
}

// RequireManager rejects callers whose role lacks MANAGER.
func RequireManager(emp *domain.Employee) error {
	if !emp.IsManager() {
		return domain.ForbiddenError("manager role required")
	}
	return nil
}

// RequireHR rejects callers whose role lacks HR.
func RequireHR(emp *domain.Employee) error {
	if !emp.IsHR() {
		return domain.ForbiddenError("hr role required")
	}
	return nil
}

// AuthorizeOrder lets the owner through. Anyone else must be privileged and
// share the owner's organization, so an order whose owner cannot be resolved
// is closed to everyone but its owner.
func (s *Service) AuthorizeOrder(ctx context.Context, caller *domain.Employee, order *domain.Order) error {
	if order.OwnedBy(caller.ID) {
		return nil
	}
	if !caller.IsPrivileged() {
		return domain.ForbiddenError("not the order owner")
	}
	ownerID := order.OwnerID()
	if ownerID == "" {
		return domain.ForbiddenError("order has no owner")
	}
	owner, err := s.employees.FindByID(ctx, ownerID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return domain.ForbiddenError("order owner not found")
		}
		return err
	}
	if !sameOrg(owner.OrgCode, caller.OrgCode) {
		return domain.ForbiddenError(domain.MsgOrgMismatch)
	}
	return nil
}

func sameOrg(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
