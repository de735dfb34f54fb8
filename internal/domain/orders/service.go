package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/clock"
	"freshledger/internal/core/id"
	"freshledger/internal/core/numerator"
	"freshledger/internal/core/tx"
	"freshledger/internal/core/types"
	"freshledger/internal/domain"
	"freshledger/internal/domain/catalog"
	"freshledger/pkg/logger"
)

// Service provides the order lifecycle: drafts, lines, confirmation and charges.
type Service struct {
	repo      Repository
	catalog   catalog.Lookup
	customers catalog.CustomerDirectory
	lots      LotConsumer
	numerator numerator.Generator
	txManager tx.Manager
	events    domain.EventPublisher
	clock     clock.Clock
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo      Repository
	Catalog   catalog.Lookup
	Customers catalog.CustomerDirectory
	Lots      LotConsumer
	Numerator numerator.Generator
	TxManager tx.Manager
	Events    domain.EventPublisher
	Clock     clock.Clock
}

// NewService creates a new order service.
func NewService(deps Deps) *Service {
	if deps.Events == nil {
		deps.Events = domain.NopPublisher{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	return &Service{
		repo:      deps.Repo,
		catalog:   deps.Catalog,
		customers: deps.Customers,
		lots:      deps.Lots,
		numerator: deps.Numerator,
		txManager: deps.TxManager,
		events:    deps.Events,
		clock:     deps.Clock,
	}
}

// OpenDraft creates a new draft order and returns its handle.
func (s *Service) OpenDraft(ctx context.Context, notes string) (DraftHandle, error) {
	now := s.clock.Now()
	order := &Order{
		ID:        id.New(),
		Notes:     notes,
		Status:    StatusDraft,
		CreatedAt: now,
		Version:   1,
	}
	domain.EnrichCreatedBy(ctx, &order.CreatedBy)

	number, err := s.numerator.Next(ctx, numerator.OrderConfig(), now)
	if err != nil {
		return DraftHandle{}, fmt.Errorf("generate order number: %w", err)
	}
	order.Number = number
	order.Title = fmt.Sprintf("Order %s - %s", number, now.Format("2006-01-02"))

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		return s.events.Publish(ctx, domain.Event{
			AggregateType: "Order",
			AggregateID:   order.ID,
			EventType:     domain.EventOrderOpened,
			Payload: map[string]any{
				"order_id": order.ID,
				"number":   order.Number,
			},
		})
	})
	if err != nil {
		return DraftHandle{}, err
	}

	logger.Info(ctx, "draft order opened", "order_id", order.ID, "number", order.Number)
	return DraftHandle{OrderID: order.ID, Number: order.Number}, nil
}

// AddLinesResult reports what AddLines created.
type AddLinesResult struct {
	Order   *Order   `json:"order"`
	Lines   []Line   `json:"lines"`
	Charges []Charge `json:"charges"`
}

// AddLines appends lines to an order. On an emitted order each line is billed
// immediately.
func (s *Service) AddLines(ctx context.Context, orderID id.ID, inputs []LineInput) (*AddLinesResult, error) {
	if len(inputs) == 0 {
		return nil, apperror.NewValidation("at least one line is required")
	}
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return nil, appErr.WithDetail("line_index", i)
			}
			return nil, err
		}
	}

	result := &AddLinesResult{}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		result.Order = order

		now := s.clock.Now()
		lines := make([]Line, 0, len(inputs))
		for _, in := range inputs {
			if _, err := s.customers.GetCustomer(ctx, in.CustomerID); err != nil {
				return err
			}
			line, err := s.buildLine(ctx, order.ID, in, now)
			if err != nil {
				return err
			}
			lines = append(lines, line)
		}

		if err := s.repo.InsertLines(ctx, lines); err != nil {
			return fmt.Errorf("insert lines: %w", err)
		}
		result.Lines = lines

		if !order.IsEmitted() {
			return nil
		}

		charges, err := s.chargesFor(ctx, order, lines)
		if err != nil {
			return err
		}
		if err := s.repo.InsertCharges(ctx, charges); err != nil {
			return fmt.Errorf("insert charges: %w", err)
		}
		result.Charges = charges
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order lines added",
		"order_id", orderID,
		"lines", len(result.Lines),
		"charges", len(result.Charges))
	return result, nil
}

// buildLine turns an input into a line. The charged unit defaults to the
// product's default unit.
func (s *Service) buildLine(ctx context.Context, orderID id.ID, in LineInput, now time.Time) (Line, error) {
	chargedUnit := in.ChargedUnit
	if chargedUnit == "" {
		product, err := s.catalog.GetProduct(ctx, in.ProductID)
		if err != nil {
			return Line{}, err
		}
		chargedUnit = product.DefaultUnit
		if !chargedUnit.Valid() {
			chargedUnit = in.Unit
		}
	}

	return Line{
		ID:            id.New(),
		OrderID:       orderID,
		CustomerID:    in.CustomerID,
		ProductID:     in.ProductID,
		VariantID:     in.VariantID,
		RequestedQty:  types.RoundQty(in.Qty),
		RequestedUnit: in.Unit,
		ChargedUnit:   chargedUnit,
		ChargedQty:    in.ChargedQty,
		UnitPrice:     in.SaleUnitPrice,
		Notes:         in.Notes,
		CreatedAt:     now,
	}, nil
}

// RemoveLine deletes a line together with its charges. Lines whose charges
// already received payments cannot be removed.
func (s *Service) RemoveLine(ctx context.Context, orderID, lineID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetOrderForUpdate(ctx, orderID); err != nil {
			return err
		}
		line, err := s.repo.GetLine(ctx, lineID)
		if err != nil {
			return err
		}
		if line.OrderID != orderID {
			return apperror.NewNotFound("order_line", lineID).WithDetail("order_id", orderID)
		}

		paid, err := s.repo.LineHasPayments(ctx, lineID)
		if err != nil {
			return fmt.Errorf("check line payments: %w", err)
		}
		if paid {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "line has payments applied and cannot be removed").
				WithDetail("line_id", lineID)
		}

		if err := s.repo.DeleteChargesByLine(ctx, lineID); err != nil {
			return fmt.Errorf("delete charges: %w", err)
		}
		return s.repo.DeleteLine(ctx, lineID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "order line removed", "order_id", orderID, "line_id", lineID)
	return nil
}

// ConfirmResult reports the outcome of Confirm.
type ConfirmResult struct {
	Order          *Order `json:"order"`
	ChargesCreated int    `json:"chargesCreated"`
	AlreadyEmitted bool   `json:"alreadyEmitted"`
}

// Confirm emits the order, generating one charge per line unless charges
// already exist for it. Confirming an emitted order changes nothing.
func (s *Service) Confirm(ctx context.Context, orderID id.ID) (*ConfirmResult, error) {
	result := &ConfirmResult{}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		result.Order = order

		existing, err := s.repo.CountChargesByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("count charges: %w", err)
		}

		if existing == 0 {
			lines, err := s.repo.ListLines(ctx, orderID)
			if err != nil {
				return fmt.Errorf("list lines: %w", err)
			}
			charges, err := s.chargesFor(ctx, order, lines)
			if err != nil {
				return err
			}
			if err := s.repo.InsertCharges(ctx, charges); err != nil {
				return fmt.Errorf("insert charges: %w", err)
			}
			result.ChargesCreated = len(charges)
		}

		if order.IsEmitted() {
			result.AlreadyEmitted = true
			return nil
		}

		now := s.clock.Now()
		order.Status = StatusEmitted
		order.EmittedAt = &now
		if err := s.repo.UpdateOrder(ctx, order); err != nil {
			return err
		}

		return s.events.Publish(ctx, domain.Event{
			AggregateType: "Order",
			AggregateID:   order.ID,
			EventType:     domain.EventOrderConfirmed,
			Payload: map[string]any{
				"order_id":        order.ID,
				"number":          order.Number,
				"charges_created": result.ChargesCreated,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order confirmed",
		"order_id", orderID,
		"charges_created", result.ChargesCreated,
		"already_emitted", result.AlreadyEmitted)
	return result, nil
}

// ReassignExcess bills surplus quantity to a customer as a new line and
// charge on the order. When a lot is named, the quantity is taken out of it.
func (s *Service) ReassignExcess(ctx context.Context, in ReassignExcessInput) (*AddLinesResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	result := &AddLinesResult{}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		result.Order = order

		if _, err := s.customers.GetCustomer(ctx, in.CustomerID); err != nil {
			return err
		}

		if in.LotID != nil {
			if s.lots == nil {
				return apperror.NewInternal(fmt.Errorf("lot consumer not configured"))
			}
			if err := s.lots.ConsumeForReassign(ctx, *in.LotID, in.ProductID, in.Unit, in.Qty); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		line := Line{
			ID:            id.New(),
			OrderID:       order.ID,
			CustomerID:    in.CustomerID,
			ProductID:     in.ProductID,
			RequestedQty:  in.Qty,
			RequestedUnit: in.Unit,
			ChargedUnit:   in.Unit,
			ChargedQty:    types.Null(in.Qty),
			UnitPrice:     types.Null(in.UnitPrice),
			Notes:         "reassigned excess",
			CreatedAt:     now,
		}
		charge := newCharge(order, &line, in.UnitPrice, now)

		if err := s.repo.InsertLines(ctx, []Line{line}); err != nil {
			return fmt.Errorf("insert line: %w", err)
		}
		if err := s.repo.InsertCharges(ctx, []Charge{charge}); err != nil {
			return fmt.Errorf("insert charge: %w", err)
		}
		result.Lines = []Line{line}
		result.Charges = []Charge{charge}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "excess reassigned",
		"order_id", in.OrderID,
		"customer_id", in.CustomerID,
		"product_id", in.ProductID,
		"qty", in.Qty.String(),
		"unit", in.Unit)
	return result, nil
}

// CreateCharge bills a customer outside the confirm flow, usually to record a
// discount. A referenced line must belong to the same customer, product and
// order.
func (s *Service) CreateCharge(ctx context.Context, in CreateChargeInput) (*Charge, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	charge := &Charge{
		ID:             id.New(),
		CustomerID:     in.CustomerID,
		OrderID:        in.OrderID,
		LineID:         in.LineID,
		ProductID:      in.ProductID,
		Qty:            types.RoundQty(in.Qty),
		ChargedQty:     in.ChargedQty,
		Unit:           in.Unit,
		UnitPrice:      types.RoundMoney(in.UnitPrice),
		DiscountAmount: types.RoundMoney(in.DiscountAmount),
		Status:         ChargePending,
		CreatedAt:      s.clock.Now(),
	}
	if in.DiscountReason != "" {
		reason := in.DiscountReason
		charge.DiscountReason = &reason
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.customers.GetCustomer(ctx, in.CustomerID); err != nil {
			return err
		}
		if in.OrderID != nil {
			if _, err := s.repo.GetOrder(ctx, *in.OrderID); err != nil {
				return err
			}
		}
		if in.LineID != nil {
			if err := s.fillFromLine(ctx, charge, *in.LineID); err != nil {
				return err
			}
		}
		charge.OriginalOrderID = charge.OrderID
		charge.Recompute()

		if err := s.repo.InsertCharges(ctx, []Charge{*charge}); err != nil {
			return fmt.Errorf("insert charge: %w", err)
		}
		return s.events.Publish(ctx, domain.Event{
			AggregateType: "Charge",
			AggregateID:   charge.ID,
			EventType:     domain.EventChargeCreated,
			Payload: map[string]any{
				"charge_id":       charge.ID,
				"customer_id":     charge.CustomerID,
				"order_id":        charge.OrderID,
				"total":           charge.Total,
				"discount_amount": charge.DiscountAmount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "charge created",
		"charge_id", charge.ID,
		"customer_id", charge.CustomerID,
		"total", charge.Total.String(),
		"discount", charge.DiscountAmount.String())
	return charge, nil
}

func (s *Service) fillFromLine(ctx context.Context, charge *Charge, lineID id.ID) error {
	line, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return err
	}
	if line.CustomerID != charge.CustomerID || line.ProductID != charge.ProductID {
		return apperror.NewConsistencyGuard("line belongs to another customer or product").
			WithDetail("line_id", lineID)
	}
	if charge.OrderID != nil && *charge.OrderID != line.OrderID {
		return apperror.NewConsistencyGuard("line belongs to another order").
			WithDetail("line_id", lineID).
			WithDetail("order_id", *charge.OrderID)
	}

	orderID := line.OrderID
	charge.OrderID = &orderID
	if !charge.ChargedQty.Valid {
		charge.ChargedQty = line.ChargedQty
		charge.Unit = line.ChargedUnit
	}
	if charge.Unit == "" {
		charge.Unit = line.ChargedUnit
	}
	return nil
}

// ListCharges returns charges matching filter, newest first.
func (s *Service) ListCharges(ctx context.Context, filter ChargeFilter) (domain.ListResult[Charge], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.ListResult[Charge]{}, apperror.NewValidation("unknown charge status").
			WithDetail("status", string(filter.Status))
	}
	page := domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.repo.ListCharges(ctx, filter)
}

// OrderView is an order with its lines and charges.
type OrderView struct {
	Order   *Order   `json:"order"`
	Lines   []Line   `json:"lines"`
	Charges []Charge `json:"charges"`
}

// Get loads an order with lines and charges.
func (s *Service) Get(ctx context.Context, orderID id.ID) (*OrderView, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	charges, err := s.repo.ChargesByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}
	return &OrderView{Order: order, Lines: lines, Charges: charges}, nil
}

// List returns orders, newest first.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[Order], error) {
	return s.repo.ListOrders(ctx, filter.Normalize())
}

// chargesFor prices each line and builds its charge.
func (s *Service) chargesFor(ctx context.Context, order *Order, lines []Line) ([]Charge, error) {
	now := s.clock.Now()
	charges := make([]Charge, 0, len(lines))
	for i := range lines {
		line := &lines[i]
		price, source, err := catalog.ResolveUnitPrice(ctx, s.catalog, catalog.PriceRequest{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Unit:      line.ChargedUnit,
			Qty:       line.RequestedQty,
			Explicit:  line.UnitPrice,
		})
		if err != nil {
			return nil, err
		}
		if source == catalog.PriceSourceNone {
			logger.Warn(ctx, "no price found for line, billing at zero",
				"order_id", order.ID,
				"line_id", line.ID,
				"product_id", line.ProductID)
		}
		charges = append(charges, newCharge(order, line, price, now))
	}
	return charges, nil
}

func newCharge(order *Order, line *Line, price types.Money, now time.Time) Charge {
	orderID := order.ID
	lineID := line.ID
	c := Charge{
		ID:              id.New(),
		CustomerID:      line.CustomerID,
		OrderID:         &orderID,
		OriginalOrderID: &orderID,
		LineID:          &lineID,
		ProductID:       line.ProductID,
		Qty:             line.RequestedQty,
		ChargedQty:      line.ChargedQty,
		Unit:            line.ChargedUnit,
		UnitPrice:       price,
		DiscountAmount:  decimal.Zero,
		Status:          ChargePending,
		CreatedAt:       now,
	}
	c.Recompute()
	return c
}
