package domain

import "github.com/shopspring/decimal"

// MealBoxSpec is a requested meal box before it exists in the store.
type MealBoxSpec struct {
	MainDishID  string
	SideDishID  string
	Quantity    int
	StandardQty int
	UpsizedQty  int
}

// LineSpec is a requested extra item.
type LineSpec struct {
	ItemID   string
	Quantity int
}

// Composition is the full set of children to create under one order header.
type Composition struct {
	Boxes []MealBoxSpec
	Lines []LineSpec
}

// BoxInput is one meal box in the manager shape.
type BoxInput struct {
	MainDishID  string
	SideDishID  string
	StandardQty int
	UpsizedQty  int
}

// SelfServiceComposition builds a single meal box of quantity 1 plus at most
// limit extras, kept in input order.
func SelfServiceComposition(mainID, sideID string, extras []string, limit int) (Composition, error) {
	if mainID == "" {
		return Composition{}, ValidationError("mainId is required")
	}

	c := Composition{
		Boxes: []MealBoxSpec{{MainDishID: mainID, SideDishID: sideID, Quantity: 1}},
	}
	for _, id := range extras {
		if len(c.Lines) == limit {
			break
		}
		if id == "" {
			continue
		}
		c.Lines = append(c.Lines, LineSpec{ItemID: id, Quantity: 1})
	}
	return c, nil
}

// ManagerComposition sums standard and upsized counts into each box quantity
// and drops extras with a non-positive quantity.
func ManagerComposition(boxes []BoxInput, extras []LineSpec) (Composition, error) {
	var c Composition
	for i, b := range boxes {
		if b.StandardQty < 0 || b.UpsizedQty < 0 {
			return Composition{}, ValidationError("boxes[%d]: quantities must not be negative", i)
		}
		qty := b.StandardQty + b.UpsizedQty
		if qty == 0 {
			continue
		}
		if b.MainDishID == "" {
			return Composition{}, ValidationError("boxes[%d]: mainId is required", i)
		}
		c.Boxes = append(c.Boxes, MealBoxSpec{
			MainDishID:  b.MainDishID,
			SideDishID:  b.SideDishID,
			Quantity:    qty,
			StandardQty: b.StandardQty,
			UpsizedQty:  b.UpsizedQty,
		})
	}
	for _, l := range extras {
		if l.Quantity <= 0 || l.ItemID == "" {
			continue
		}
		c.Lines = append(c.Lines, l)
	}
	if len(c.Boxes) == 0 && len(c.Lines) == 0 {
		return Composition{}, ValidationError("order must contain at least one meal box or extra")
	}
	return c, nil
}

// Payable prices a composition with the organization's tiers and the menu
// prices of extras. Unknown extras are free.
func (c Composition) Payable(org Organization, menu map[string]MenuItem) decimal.Decimal {
	total := decimal.Zero
	for _, b := range c.Boxes {
		std, ups := b.StandardQty, b.UpsizedQty
		if std == 0 && ups == 0 {
			std = b.Quantity
		}
		total = total.Add(org.StandardPrice.Mul(decimal.NewFromInt(int64(std))))
		total = total.Add(org.UpsizedPrice.Mul(decimal.NewFromInt(int64(ups))))
	}
	for _, l := range c.Lines {
		if item, ok := menu[l.ItemID]; ok {
			total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
	}
	return total
}
