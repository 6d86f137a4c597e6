package order

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/YelzhanWeb/lunchbox/internal/domain"
)

const compensationTimeout = 15 * time.Second

var errNotVisible = errors.New("write not visible yet")

// compose creates the children of orderID and links them to the header. The
// ids created so far are returned even on failure so the caller can clean up.
func (s *Service) compose(ctx context.Context, orderID string, comp domain.Composition) (boxIDs, lineIDs []string, report domain.WriteReport, err error) {
	boxes, err := s.children.CreateMealBoxes(ctx, comp.Boxes)
	if err != nil {
		return nil, nil, report, err
	}
	for _, b := range boxes {
		boxIDs = append(boxIDs, b.ID)
	}

	lines, err := s.children.CreateOrderLines(ctx, comp.Lines)
	if err != nil {
		return boxIDs, nil, report, err
	}
	for _, l := range lines {
		lineIDs = append(lineIDs, l.ID)
	}

	// Children must read back before the header links to them.
	err = s.awaitVisible(ctx, "order children", func(ctx context.Context) (bool, error) {
		found, err := s.children.FindMealBoxes(ctx, boxIDs)
		if err != nil || len(found) != len(boxIDs) {
			return false, err
		}
		foundLines, err := s.children.FindOrderLines(ctx, lineIDs)
		if err != nil {
			return false, err
		}
		return len(foundLines) == len(lineIDs), nil
	})
	if err != nil {
		return boxIDs, lineIDs, report, err
	}

	report, err = s.orders.LinkChildren(ctx, orderID, boxIDs, lineIDs)
	if err != nil {
		return boxIDs, lineIDs, report, err
	}

	err = s.awaitVisible(ctx, "order links", func(ctx context.Context) (bool, error) {
		o, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return false, nil
			}
			return false, err
		}
		return sameIDs(o.MealBoxIDs, boxIDs) && sameIDs(o.OrderLineIDs, lineIDs), nil
	})
	return boxIDs, lineIDs, report, err
}

// awaitVisible polls check with exponential backoff until it reports true.
// Running out of attempts yields a ConsistencyTimeout error; a check error
// stops the poll immediately.
func (s *Service) awaitVisible(ctx context.Context, what string, check func(context.Context) (bool, error)) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.cfg.Consistency.InitialInterval
	eb.MaxInterval = s.cfg.Consistency.MaxInterval
	eb.MaxElapsedTime = 0

	maxAttempts := max(s.cfg.Consistency.Attempts, 1)
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(maxAttempts-1)), ctx)

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		ok, err := check(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errNotVisible
		}
		return nil
	}, b)
	consistencyAttempts.Observe(float64(attempts))

	if errors.Is(err, errNotVisible) {
		return domain.ConsistencyTimeoutError("%s not visible after %d attempts", what, attempts)
	}
	return err
}

// compensate removes what a failed creation wrote, children first. Failures
// are logged and leave the rows for manual cleanup.
func (s *Service) compensate(ctx context.Context, requestID, orderID string, boxIDs, lineIDs []string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	details := map[string]interface{}{
		"order_id":       orderID,
		"meal_box_ids":   boxIDs,
		"order_line_ids": lineIDs,
	}

	failed := false
	if err := s.children.DeleteOrderLines(ctx, lineIDs); err != nil {
		s.logger.Error("compensation_failed", "Could not delete order lines", requestID, details, err)
		failed = true
	}
	if err := s.children.DeleteMealBoxes(ctx, boxIDs); err != nil {
		s.logger.Error("compensation_failed", "Could not delete meal boxes", requestID, details, err)
		failed = true
	}
	if orderID != "" {
		if err := s.orders.Delete(ctx, orderID); err != nil {
			s.logger.Error("compensation_failed", "Could not delete order header", requestID, details, err)
			failed = true
		}
	}
	if !failed {
		s.logger.Warn("order_compensated", "Removed partially composed order", requestID, details)
	}
}

func sameIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[string]int, len(want))
	for _, id := range want {
		seen[id]++
	}
	for _, id := range got {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}
