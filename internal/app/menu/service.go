// Package menu answers what can be ordered and until when.
package menu

import (
	"context"
	"strings"
	"time"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/app/access"
	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

type Service struct {
	access *access.Service
	orgs   interfaces.OrganizationRepository
	menu   interfaces.MenuRepository
	cfg    config.OrderingConfig
	logger logger.Logger
	now    func() time.Time
}

func NewService(acc *access.Service, orgs interfaces.OrganizationRepository, menu interfaces.MenuRepository, cfg config.OrderingConfig, logger logger.Logger) *Service {
	return &Service{
		access: acc,
		orgs:   orgs,
		menu:   menu,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// MenuForDate lists the published items of date visible to the caller's
// organization.
func (s *Service) MenuForDate(ctx context.Context, creds interfaces.Credentials, date string) ([]domain.MenuItem, error) {
	caller, err := s.access.Verify(ctx, creds, false)
	if err != nil {
		return nil, err
	}
	date = strings.TrimSpace(date)
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}

	items, err := s.menu.ListPublished(ctx, date, false)
	if err != nil {
		return nil, err
	}
	return visible(items, caller.OrgCode), nil
}

// AvailableDates lists the upcoming menu dates with the admission window the
// caller would face on each.
func (s *Service) AvailableDates(ctx context.Context, creds interfaces.Credentials) ([]interfaces.DateWindow, error) {
	caller, err := s.access.Verify(ctx, creds, true)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.FindByCode(ctx, caller.OrgCode)
	if err != nil {
		return nil, err
	}

	now := s.now()
	loc := zone(org.TimeZone, s.cfg.DefaultTimeZone)
	today := now.In(loc).Format(domain.DateLayout)
	last := now.In(loc).AddDate(0, 0, s.cfg.UpcomingDays).Format(domain.DateLayout)

	items, err := s.menu.ListPublished(ctx, today, true)
	if err != nil {
		return nil, err
	}

	var out []interfaces.DateWindow
	seen := make(map[string]bool)
	for _, it := range visible(items, org.Code) {
		if seen[it.Date] || it.Date > last {
			continue
		}
		seen[it.Date] = true

		w, err := domain.CanOrderNow(now, it.Date, *org, caller.IsPrivileged(), s.cfg.DefaultTimeZone)
		if err != nil {
			s.logger.Warn("menu_date_invalid", "Skipping menu item with malformed date", creds.RequestID,
				map[string]interface{}{"item_id": it.ID, "date": it.Date})
			continue
		}
		out = append(out, interfaces.DateWindow{Date: it.Date, Window: w})
	}
	return out, nil
}

func visible(items []domain.MenuItem, orgCode string) []domain.MenuItem {
	out := make([]domain.MenuItem, 0, len(items))
	for _, it := range items {
		if it.VisibleTo(orgCode) {
			out = append(out, it)
		}
	}
	return out
}

func zone(name, fallback string) *time.Location {
	for _, n := range []string{strings.TrimSpace(name), fallback} {
		if n == "" {
			continue
		}
		if loc, err := time.LoadLocation(n); err == nil {
			return loc
		}
	}
	return time.UTC
}

var _ interfaces.MenuService = (*Service)(nil)
