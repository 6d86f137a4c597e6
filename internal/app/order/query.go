package order

import (
	"context"
	"strings"

	"github.com/YelzhanWeb/lunchbox/internal/app/access"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

// idChunk bounds how many record ids go into one filter formula.
const idChunk = 50

// GetOrder returns the caller's active employee order for a date, or the
// target's when an HR caller names another employee. Bulk manager orders are
// not returned here.
func (s *Service) GetOrder(ctx context.Context, cmd interfaces.GetOrderCommand) (*interfaces.OrderView, error) {
	caller, err := s.access.Verify(ctx, cmd.Credentials, false)
	if err != nil {
		return nil, err
	}
	target, err := s.access.ResolveTarget(ctx, caller, cmd.ForEmployeeID, false)
	if err != nil {
		return nil, err
	}
	date := strings.TrimSpace(cmd.Date)
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}

	active, err := s.orders.ListActiveForDate(ctx, date, domain.OrderTypeEmployee)
	if err != nil {
		return nil, err
	}
	for _, o := range active {
		if !o.OwnedBy(target.ID) {
			continue
		}
		views, err := LoadViews(ctx, s.children, []domain.Order{o})
		if err != nil {
			return nil, err
		}
		return &views[0], nil
	}
	return nil, domain.NotFoundError("no active order for %s", date)
}

// ListOrganizationOrders returns every active order of the HR caller's
// organization for a date.
func (s *Service) ListOrganizationOrders(ctx context.Context, cmd interfaces.GetOrderCommand) ([]interfaces.OrderView, error) {
	caller, err := s.access.Verify(ctx, cmd.Credentials, true)
	if err != nil {
		return nil, err
	}
	if err := access.RequireHR(caller); err != nil {
		return nil, err
	}
	date := strings.TrimSpace(cmd.Date)
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}

	staff, err := s.employees.ListByOrg(ctx, caller.OrgCode)
	if err != nil {
		return nil, err
	}
	members := make(map[string]bool, len(staff))
	for _, e := range staff {
		members[e.ID] = true
	}

	active, err := s.orders.ListActiveForDate(ctx, date, "")
	if err != nil {
		return nil, err
	}
	var mine []domain.Order
	for _, o := range active {
		if members[o.OwnerID()] {
			mine = append(mine, o)
		}
	}
	return LoadViews(ctx, s.children, mine)
}

// LoadViews resolves the children of orders with batched lookups.
func LoadViews(ctx context.Context, children interfaces.ChildRepository, orders []domain.Order) ([]interfaces.OrderView, error) {
	var boxIDs, lineIDs []string
	for _, o := range orders {
		boxIDs = append(boxIDs, o.MealBoxIDs...)
		lineIDs = append(lineIDs, o.OrderLineIDs...)
	}

	boxes := make(map[string]domain.MealBox, len(boxIDs))
	for _, ids := range chunk(boxIDs) {
		found, err := children.FindMealBoxes(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, b := range found {
			boxes[b.ID] = b
		}
	}
	lines := make(map[string]domain.OrderLine, len(lineIDs))
	for _, ids := range chunk(lineIDs) {
		found, err := children.FindOrderLines(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, l := range found {
			lines[l.ID] = l
		}
	}

	views := make([]interfaces.OrderView, 0, len(orders))
	for _, o := range orders {
		v := interfaces.OrderView{Order: o}
		for _, id := range o.MealBoxIDs {
			if b, ok := boxes[id]; ok {
				v.MealBoxes = append(v.MealBoxes, b)
			}
		}
		for _, id := range o.OrderLineIDs {
			if l, ok := lines[id]; ok {
				v.OrderLines = append(v.OrderLines, l)
			}
		}
		views = append(views, v)
	}
	return views, nil
}

func chunk(ids []string) [][]string {
	var out [][]string
	for len(ids) > idChunk {
		out = append(out, ids[:idChunk])
		ids = ids[idChunk:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
