package kitchen

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/app/order"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

// Service aggregates the day's active orders into prep counts.
type Service struct {
	orders   interfaces.OrderRepository
	children interfaces.ChildRepository
	menu     interfaces.MenuRepository
	logger   logger.Logger
	now      func() time.Time
}

func NewService(
	orders interfaces.OrderRepository,
	children interfaces.ChildRepository,
	menu interfaces.MenuRepository,
	logger logger.Logger,
) *Service {
	return &Service{
		orders:   orders,
		children: children,
		menu:     menu,
		logger:   logger,
		now:      time.Now,
	}
}

// Summary counts every main, side and extra across the active orders of date.
// Each meal box contributes its quantity to both of its dishes.
func (s *Service) Summary(ctx context.Context, date string) (*interfaces.KitchenSummary, error) {
	date = strings.TrimSpace(date)
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}

	active, err := s.orders.ListActiveForDate(ctx, date, "")
	if err != nil {
		return nil, err
	}
	views, err := order.LoadViews(ctx, s.children, active)
	if err != nil {
		return nil, err
	}

	items, err := s.menu.ListPublished(ctx, date, false)
	if err != nil {
		return nil, err
	}
	names := make(map[string]domain.MenuItem, len(items))
	for _, it := range items {
		names[it.ID] = it
	}

	counts := make(map[string]int)
	summary := &interfaces.KitchenSummary{Date: date, Orders: len(views), GeneratedAt: s.now().UTC()}
	for _, v := range views {
		for _, b := range v.MealBoxes {
			summary.MealBoxes += b.Quantity
			counts[b.MainDishID] += b.Quantity
			if b.SideDishID != "" {
				counts[b.SideDishID] += b.Quantity
			}
		}
		for _, l := range v.OrderLines {
			counts[l.ItemID] += l.Quantity
		}
	}

	for id, qty := range counts {
		dc := interfaces.DishCount{ItemID: id, Quantity: qty}
		if it, ok := names[id]; ok {
			dc.Name, dc.Category = it.Name, it.Category
		} else {
			s.logger.Warn("kitchen_unknown_dish", "Ordered item missing from the published menu", "",
				map[string]interface{}{"item_id": id, "date": date})
		}
		summary.Dishes = append(summary.Dishes, dc)
	}
	sort.Slice(summary.Dishes, func(i, j int) bool {
		a, b := summary.Dishes[i], summary.Dishes[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.ItemID < b.ItemID
	})

	s.logger.Debug("kitchen_summary_built", "Kitchen summary built", "",
		map[string]interface{}{"date": date, "orders": summary.Orders, "dishes": len(summary.Dishes)})
	return summary, nil
}

var _ interfaces.KitchenService = (*Service)(nil)
