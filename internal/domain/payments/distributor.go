package payments

import (
	"sort"

	"github.com/shopspring/decimal"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
)

// Due is what is still owed on one charge.
type Due struct {
	ChargeID id.ID
	Amount   types.Money
}

// Share is the part of a payment assigned to one charge.
type Share struct {
	ChargeID id.ID
	Amount   types.Money
}

// Distribute splits amount over dues in proportion to each due.
//
// Whole currency units go by largest remainder: every charge gets the floor of
// its proportional share, then leftover units go one at a time to the largest
// fractional remainders, round-robin, never past a charge's due. What is still
// left (the fractional part of amount, or units no charge had room for) is
// placed on charges with room left, largest room first. The shares sum to
// amount whenever the dues cover it; otherwise every due is paid in full and
// the rest is returned as unapplied. Dues that are not positive are ignored.
func Distribute(amount types.Money, dues []Due) ([]Share, types.Money) {
	type slot struct {
		due      decimal.Decimal
		assigned decimal.Decimal
		rem      decimal.Decimal
		idx      int
	}

	slots := make([]*slot, 0, len(dues))
	total := decimal.Zero
	for i, d := range dues {
		if !d.Amount.IsPositive() {
			continue
		}
		slots = append(slots, &slot{due: d.Amount, assigned: decimal.Zero, idx: i})
		total = total.Add(d.Amount)
	}

	shares := func() []Share {
		out := make([]Share, 0, len(slots))
		for _, s := range slots {
			out = append(out, Share{ChargeID: dues[s.idx].ChargeID, Amount: types.RoundMoney(s.assigned)})
		}
		return out
	}

	if len(slots) == 0 || !amount.IsPositive() {
		return shares(), types.NonNegative(amount)
	}
	if total.LessThanOrEqual(amount) {
		for _, s := range slots {
			s.assigned = s.due
		}
		return shares(), amount.Sub(total)
	}

	units := amount.Floor()
	floored := decimal.Zero
	for _, s := range slots {
		exact := units.Mul(s.due).Div(total)
		s.assigned = exact.Floor()
		s.rem = exact.Sub(s.assigned)
		floored = floored.Add(s.assigned)
	}

	order := make([]*slot, len(slots))
	copy(order, slots)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].rem.GreaterThan(order[j].rem)
	})

	one := decimal.NewFromInt(1)
	leftover := units.Sub(floored)
	for leftover.IsPositive() {
		progressed := false
		for _, s := range order {
			if !leftover.IsPositive() {
				break
			}
			if s.assigned.Add(one).GreaterThan(s.due) {
				continue
			}
			s.assigned = s.assigned.Add(one)
			leftover = leftover.Sub(one)
			progressed = true
		}
		if !progressed {
			break
		}
	}

	residual := amount.Sub(units).Add(leftover)
	if residual.IsPositive() {
		byRoom := make([]*slot, len(slots))
		copy(byRoom, slots)
		sort.SliceStable(byRoom, func(i, j int) bool {
			return byRoom[i].due.Sub(byRoom[i].assigned).GreaterThan(byRoom[j].due.Sub(byRoom[j].assigned))
		})
		for _, s := range byRoom {
			if !residual.IsPositive() {
				break
			}
			take := decimal.Min(residual, s.due.Sub(s.assigned))
			if !take.IsPositive() {
				continue
			}
			s.assigned = s.assigned.Add(take)
			residual = residual.Sub(take)
		}
	}

	return shares(), types.NonNegative(residual)
}
