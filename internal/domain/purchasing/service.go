package purchasing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/clock"
	"freshledger/internal/core/id"
	"freshledger/internal/core/lock"
	"freshledger/internal/core/tx"
	"freshledger/internal/core/types"
	"freshledger/internal/domain"
	"freshledger/internal/domain/catalog"
	"freshledger/internal/domain/inventory"
	"freshledger/internal/domain/orders"
	"freshledger/pkg/logger"
)

var tracer = otel.Tracer("freshledger/purchasing")

// Service records purchases and reconciles them against orders.
type Service struct {
	repo      Repository
	orders    OrderStore
	lots      LotCreator
	catalog   catalog.Lookup
	customers catalog.CustomerDirectory
	prices    catalog.PriceHistoryRepository
	txManager tx.Manager
	locker    lock.Locker
	events    domain.EventPublisher
	audit     domain.AuditRecorder
	metrics   Metrics
	clock     clock.Clock
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo      Repository
	Orders    OrderStore
	Lots      LotCreator
	Catalog   catalog.Lookup
	Customers catalog.CustomerDirectory
	Prices    catalog.PriceHistoryRepository
	TxManager tx.Manager
	Locker    lock.Locker
	Events    domain.EventPublisher
	Audit     domain.AuditRecorder
	Metrics   Metrics
	Clock     clock.Clock
}

// NewService creates a purchasing service.
func NewService(deps Deps) *Service {
	if deps.Events == nil {
		deps.Events = domain.NopPublisher{}
	}
	if deps.Audit == nil {
		deps.Audit = domain.NopAuditor{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	return &Service{
		repo:      deps.Repo,
		orders:    deps.Orders,
		lots:      deps.Lots,
		catalog:   deps.Catalog,
		customers: deps.Customers,
		prices:    deps.Prices,
		txManager: deps.TxManager,
		locker:    deps.Locker,
		events:    deps.Events,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		clock:     deps.Clock,
	}
}

// pairState is the order-side state of one (order, product) pair.
type pairState struct {
	lines          []orders.Line // all lines of the order
	productLines   []orders.Line
	purchases      []Purchase // earlier purchases of the order
	prevForProduct []Purchase
}

// RecordPurchase stores a purchase and reconciles it with its order in one
// transaction. Surplus and allocation failures do not abort the purchase;
// they are reported as fallbacks.
func (s *Service) RecordPurchase(ctx context.Context, in RecordPurchaseInput) (*RecordPurchaseResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "purchasing.RecordPurchase",
		trace.WithAttributes(
			attribute.String("product_id", in.ProductID.String()),
			attribute.String("order_id", id.String(in.OrderID)),
			attribute.String("charged_unit", in.ChargedUnit.String()),
		),
	)
	defer span.End()

	key := lock.PurchaseKey(in.OrderID, in.ProductID)
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release(context.WithoutCancel(ctx))

	now := s.clock.Now()
	p := &Purchase{
		ID:           id.New(),
		ProductID:    in.ProductID,
		OrderID:      in.OrderID,
		QtyKg:        roundNull(in.QtyKg),
		QtyUnit:      roundNull(in.QtyUnit),
		EqQtyKg:      roundNull(in.EqQtyKg),
		EqQtyUnit:    roundNull(in.EqQtyUnit),
		ChargedUnit:  in.ChargedUnit,
		PricePerUnit: in.PricePerUnit,
		PriceTotal:   in.PriceTotal,
		Vendor:       in.Vendor,
		Notes:        in.Notes,
		Customers:    in.customerNames(),
		CreatedAt:    now,
	}
	ctx = logger.WithFields(ctx, "purchase_id", p.ID, "product_id", p.ProductID)
	domain.EnrichCreatedBy(ctx, &p.CreatedBy)

	result := &RecordPurchaseResult{
		Purchase:    p,
		Allocations: []AllocationRecord{},
		Lines:       []orders.Line{},
		Charges:     []orders.Charge{},
		Fallbacks:   []Fallback{},
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.catalog.GetProduct(ctx, p.ProductID); err != nil {
			return err
		}

		var state pairState
		if p.OrderID != nil {
			st, err := s.loadPair(ctx, *p.OrderID, p.ProductID)
			if err != nil {
				return err
			}
			state = st
			if err := s.guard(p, state); err != nil {
				return err
			}
		}

		if err := s.repo.InsertPurchase(ctx, p); err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
		if err := s.appendPriceHistory(ctx, p); err != nil {
			return err
		}

		if r, ok := DeriveRatio(p); ok && p.OrderID != nil {
			ratio := &ConversionRatio{
				ID:         id.New(),
				OrderID:    *p.OrderID,
				ProductID:  p.ProductID,
				PurchaseID: p.ID,
				UnitsPerKg: types.RoundQty(r),
				CreatedAt:  now,
			}
			if err := s.repo.AppendRatio(ctx, ratio); err != nil {
				return fmt.Errorf("append conversion ratio: %w", err)
			}
			result.Ratio = ratio
		}

		if p.OrderID != nil {
			if err := s.project(ctx, p, state, result); err != nil {
				return err
			}
			all := append(append([]Purchase{}, state.purchases...), *p)
			result.Completeness = Evaluate(AggregateDemand(state.lines), AggregateSupply(all))
		}

		s.bin(ctx, p, state, result)
		if p.OrderID != nil {
			s.allocate(ctx, p, state, result)
		}

		return s.events.Publish(ctx, domain.Event{
			AggregateType: "Purchase",
			AggregateID:   p.ID,
			EventType:     domain.EventPurchaseRecorded,
			Payload: map[string]any{
				"purchase_id":  p.ID,
				"product_id":   p.ProductID,
				"order_id":     p.OrderID,
				"charged_unit": p.ChargedUnit,
				"verdict":      verdictOf(result.Completeness),
				"fallbacks":    len(result.Fallbacks),
			},
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	for _, fb := range result.Fallbacks {
		s.metrics.Fallback(fb.Kind)
	}
	s.metrics.PurchaseRecorded(verdictOf(result.Completeness))
	span.SetAttributes(
		attribute.String("verdict", string(verdictOf(result.Completeness))),
		attribute.Int("fallbacks", len(result.Fallbacks)),
	)

	logger.Info(ctx, "purchase recorded",
		"order_id", id.String(p.OrderID),
		"verdict", verdictOf(result.Completeness),
		"lines_projected", len(result.Lines),
		"allocations", len(result.Allocations),
		"lot_created", result.Lot != nil,
		"fallbacks", len(result.Fallbacks))
	return result, nil
}

// Get loads a purchase and its allocations.
func (s *Service) Get(ctx context.Context, purchaseID id.ID) (*PurchaseView, error) {
	p, err := s.repo.GetPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	allocs, err := s.repo.AllocationsByPurchase(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return &PurchaseView{Purchase: p, Allocations: allocs}, nil
}

func (s *Service) loadPair(ctx context.Context, orderID, productID id.ID) (pairState, error) {
	var st pairState
	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		return st, err
	}

	lines, err := s.orders.ListLines(ctx, orderID)
	if err != nil {
		return st, fmt.Errorf("list lines: %w", err)
	}
	purchases, err := s.repo.PurchasesByOrder(ctx, orderID)
	if err != nil {
		return st, fmt.Errorf("list purchases: %w", err)
	}

	st.lines = lines
	st.purchases = purchases
	for _, l := range lines {
		if l.ProductID == productID {
			st.productLines = append(st.productLines, l)
		}
	}
	for _, p := range purchases {
		if p.ProductID == productID {
			st.prevForProduct = append(st.prevForProduct, p)
		}
	}
	return st, nil
}

// guard rejects a purchase that leaves its product short on the order unless
// the buyer names the customers it is for.
func (s *Service) guard(p *Purchase, st pairState) error {
	if len(p.Customers) > 0 {
		return nil
	}
	need := AggregateDemand(st.productLines)[p.ProductID]
	if need.IsZero() {
		return nil
	}
	got := AggregateSupply(st.prevForProduct)[p.ProductID].Add(p.Supply())
	status := EvaluateProduct(p.ProductID, need, got)
	if status.Verdict != VerdictIncomplete {
		return nil
	}
	return apperror.NewConsistencyGuard("customers are required when product is not fully purchased").
		WithDetail("product_id", p.ProductID).
		WithDetail("missing", status.Missing)
}

func (s *Service) appendPriceHistory(ctx context.Context, p *Purchase) error {
	if s.prices == nil {
		return nil
	}
	entry := &catalog.PriceHistory{
		ID:         id.New(),
		ProductID:  p.ProductID,
		PurchaseID: p.ID,
		CostPrice:  p.PricePerUnit,
		Unit:       p.ChargedUnit,
		CreatedAt:  p.CreatedAt,
	}
	if !entry.CostPrice.IsPositive() {
		if q := p.QtyIn(p.ChargedUnit); q.IsPositive() {
			entry.CostPrice = types.RoundMoney(p.PriceTotal.Decimal.Div(q))
		}
	}
	latest, err := s.catalog.LatestCatalogPrice(ctx, p.ProductID)
	if err != nil {
		return fmt.Errorf("load catalog price: %w", err)
	}
	if latest != nil {
		entry.SalePrice = types.Null(latest.SalePrice)
	}
	if err := s.prices.Append(ctx, entry); err != nil {
		return fmt.Errorf("append price history: %w", err)
	}
	return nil
}

// project rewrites billable quantities of the pair's lines and charges.
func (s *Service) project(ctx context.Context, p *Purchase, st pairState, result *RecordPurchaseResult) error {
	if len(st.productLines) == 0 {
		return nil
	}

	ratio, err := s.repo.LatestRatio(ctx, *p.OrderID, p.ProductID)
	if err != nil {
		return fmt.Errorf("load conversion ratio: %w", err)
	}
	charges, err := s.orders.ChargesByOrder(ctx, *p.OrderID)
	if err != nil {
		return fmt.Errorf("list charges: %w", err)
	}

	proj := Project(ProjectionInput{
		ChargedUnit: p.ChargedUnit,
		Ratio:       ratio,
		Lines:       st.productLines,
		Charges:     charges,
	})

	for i := range proj.ChangedLines {
		if err := s.orders.UpdateLineProjection(ctx, &proj.ChangedLines[i]); err != nil {
			return fmt.Errorf("update line projection: %w", err)
		}
	}
	for _, change := range proj.ChangedCharges {
		after := change.After
		if err := s.orders.UpdateChargeProjection(ctx, &after); err != nil {
			return fmt.Errorf("update charge projection: %w", err)
		}
		if err := s.audit.RecordChange(ctx, "charge", after.ID, domain.AuditProject, change.auditChanges(p.ID)); err != nil {
			return fmt.Errorf("audit charge projection: %w", err)
		}
		result.Charges = append(result.Charges, after)
	}

	for _, fb := range proj.Fallbacks {
		logger.Warn(ctx, "charged quantity falls back to requested quantity",
			"order_id", p.OrderID,
			"line_id", fb.Details["line_id"],
			"requested_unit", fb.Details["requested_unit"],
			"charged_unit", fb.Details["charged_unit"])
	}
	result.Lines = proj.Lines
	result.Fallbacks = append(result.Fallbacks, proj.Fallbacks...)
	return nil
}

// bin files the purchase's surplus as a lot, inside a savepoint.
func (s *Service) bin(ctx context.Context, p *Purchase, st pairState, result *RecordPurchaseResult) {
	excess := PlanSurplus(SurplusInput{
		Purchase:   p,
		Demand:     AggregateDemand(st.productLines)[p.ProductID],
		PrevSupply: AggregateSupply(st.prevForProduct)[p.ProductID],
	})
	if excess.IsZero() {
		return
	}

	lot := inventory.NewLot(p.ProductID, &p.ID, p.OrderID, excess, p.CreatedAt)
	err := s.txManager.RunInSavepoint(ctx, func(ctx context.Context) error {
		if err := s.lots.CreateLot(ctx, lot); err != nil {
			return fmt.Errorf("create lot: %w", err)
		}
		return s.events.Publish(ctx, domain.Event{
			AggregateType: "InventoryLot",
			AggregateID:   lot.ID,
			EventType:     domain.EventInventoryLotCreated,
			Payload: map[string]any{
				"lot_id":      lot.ID,
				"product_id":  lot.ProductID,
				"purchase_id": p.ID,
				"order_id":    p.OrderID,
				"qty_kg":      lot.QtyKg,
				"qty_unit":    lot.QtyUnit,
			},
		})
	})
	if err != nil {
		s.degrade(ctx, result, newFallback(FallbackSurplus, "surplus lot was not created", map[string]any{
			"purchase_id": p.ID,
			"error":       err.Error(),
		}))
		return
	}
	result.Lot = lot
}

// allocate records which lines the purchase satisfied, inside a savepoint.
func (s *Service) allocate(ctx context.Context, p *Purchase, st pairState, result *RecordPurchaseResult) {
	if len(st.productLines) == 0 {
		return
	}

	var (
		records   []AllocationRecord
		fallbacks []Fallback
	)
	err := s.txManager.RunInSavepoint(ctx, func(ctx context.Context) error {
		customerOrder, unknown, err := s.resolveCustomers(ctx, p.Customers)
		if err != nil {
			return err
		}
		for _, name := range unknown {
			fallbacks = append(fallbacks, newFallback(FallbackUnknownCustomer, "customer not found, skipped in allocation",
				map[string]any{"customer": name, "purchase_id": p.ID}))
		}

		lineIDs := make([]id.ID, 0, len(st.productLines))
		for _, l := range st.productLines {
			lineIDs = append(lineIDs, l.ID)
		}
		allocated, err := s.repo.AllocatedByLines(ctx, lineIDs)
		if err != nil {
			return fmt.Errorf("load allocations: %w", err)
		}

		records = PlanAllocation(AllocationInput{
			Purchase:      p,
			Lines:         st.productLines,
			Allocated:     allocated,
			CustomerOrder: customerOrder,
			Named:         len(p.Customers) > 0,
		})
		if len(records) == 0 {
			return nil
		}
		for i := range records {
			records[i].ID = id.New()
			records[i].CreatedAt = p.CreatedAt
		}
		if err := s.repo.InsertAllocations(ctx, records); err != nil {
			return fmt.Errorf("insert allocations: %w", err)
		}
		return nil
	})
	if err != nil {
		s.degrade(ctx, result, newFallback(FallbackAllocation, "allocation was not recorded", map[string]any{
			"purchase_id": p.ID,
			"error":       err.Error(),
		}))
		return
	}

	for _, fb := range fallbacks {
		s.degrade(ctx, result, fb)
	}
	result.Allocations = append(result.Allocations, records...)
}

// resolveCustomers maps names to ids, keeping the given order.
func (s *Service) resolveCustomers(ctx context.Context, names []string) ([]id.ID, []string, error) {
	if len(names) == 0 {
		return nil, nil, nil
	}
	found, err := s.customers.FindCustomersByName(ctx, names)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve customers: %w", err)
	}
	byName := make(map[string]id.ID, len(found))
	for _, c := range found {
		byName[c.Name] = c.ID
	}

	ids := make([]id.ID, 0, len(names))
	var unknown []string
	for _, n := range names {
		if cid, ok := byName[n]; ok {
			ids = append(ids, cid)
		} else {
			unknown = append(unknown, n)
		}
	}
	return ids, unknown, nil
}

func (s *Service) degrade(ctx context.Context, result *RecordPurchaseResult, fb Fallback) {
	logger.Warn(ctx, "computation fallback", "kind", fb.Kind, "message", fb.Message, "details", fb.Details)
	result.Fallbacks = append(result.Fallbacks, fb)
}

func verdictOf(c *Completeness) Verdict {
	if c == nil {
		return ""
	}
	return c.Verdict
}

func roundNull(n decimal.NullDecimal) decimal.NullDecimal {
	if !n.Valid {
		return n
	}
	return types.Null(types.RoundQty(n.Decimal))
}
