package payments

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
	"freshledger/internal/domain/orders"
	"freshledger/pkg/logger"
)

var tracer = otel.Tracer("freshledger/payments")

// Service records payments.
type Service struct {
	repo      Repository
	charges   ChargeStore
	customers catalog.CustomerDirectory
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
	Charges   ChargeStore
	Customers catalog.CustomerDirectory
	TxManager tx.Manager
	Locker    lock.Locker
	Events    domain.EventPublisher
	Audit     domain.AuditRecorder
	Metrics   Metrics
	Clock     clock.Clock
}

// NewService creates a payment service.
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
		charges:   deps.Charges,
		customers: deps.Customers,
		txManager: deps.TxManager,
		locker:    deps.Locker,
		events:    deps.Events,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		clock:     deps.Clock,
	}
}

// open is a pending charge with what is still owed on it.
type open struct {
	charge orders.Charge
	due    types.Money
}

// RecordPayment stores a payment and applies it to the customer's pending
// charges, either as the caller lists or proportionally to what is due.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (*RecordPaymentResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "payments.RecordPayment",
		trace.WithAttributes(
			attribute.String("customer_id", in.CustomerID.String()),
			attribute.String("order_id", id.String(in.OrderID)),
			attribute.String("amount", in.Amount.String()),
			attribute.Bool("explicit", len(in.Applications) > 0),
		),
	)
	defer span.End()

	release, err := s.locker.Acquire(ctx, lock.PaymentKey(in.CustomerID))
	if err != nil {
		return nil, err
	}
	defer release(context.WithoutCancel(ctx))

	now := s.clock.Now()
	payment := &Payment{
		ID:         id.New(),
		CustomerID: in.CustomerID,
		OrderID:    in.OrderID,
		Amount:     types.RoundMoney(in.Amount),
		Method:     in.Method,
		Reference:  in.Reference,
		CreatedAt:  now,
	}
	domain.EnrichCreatedBy(ctx, &payment.CreatedBy)

	result := &RecordPaymentResult{Payment: payment, Applications: []Application{}, PaidCharges: []id.ID{}}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.customers.GetCustomer(ctx, in.CustomerID); err != nil {
			return err
		}

		opens, err := s.openCharges(ctx, in.CustomerID, in.OrderID)
		if err != nil {
			return err
		}

		var shares []Share
		if len(in.Applications) > 0 {
			shares, err = s.explicitShares(ctx, in, opens)
			if err != nil {
				return err
			}
		} else {
			dues := make([]Due, 0, len(opens))
			for _, o := range opens {
				dues = append(dues, Due{ChargeID: o.charge.ID, Amount: o.due})
			}
			shares, _ = Distribute(payment.Amount, dues)
		}

		if err := s.repo.InsertPayment(ctx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		dueByCharge := make(map[id.ID]types.Money, len(opens))
		for _, o := range opens {
			dueByCharge[o.charge.ID] = o.due
		}

		applied := decimal.Zero
		for _, sh := range shares {
			if !sh.Amount.IsPositive() {
				continue
			}
			result.Applications = append(result.Applications, Application{
				ID:        id.New(),
				PaymentID: payment.ID,
				ChargeID:  sh.ChargeID,
				Amount:    sh.Amount,
				CreatedAt: now,
			})
			applied = applied.Add(sh.Amount)
			if sh.Amount.GreaterThanOrEqual(dueByCharge[sh.ChargeID]) {
				result.PaidCharges = append(result.PaidCharges, sh.ChargeID)
			}
		}
		result.Unapplied = payment.Amount.Sub(applied)

		if len(result.Applications) > 0 {
			if err := s.repo.InsertApplications(ctx, result.Applications); err != nil {
				return fmt.Errorf("insert applications: %w", err)
			}
		}
		for _, chargeID := range result.PaidCharges {
			if err := s.charges.MarkChargePaid(ctx, chargeID, now); err != nil {
				return fmt.Errorf("mark charge paid: %w", err)
			}
		}
		for _, app := range result.Applications {
			if err := s.audit.RecordChange(ctx, "charge", app.ChargeID, domain.AuditUpdate, map[string]any{
				"payment_id": payment.ID,
				"applied":    app.Amount,
				"due_before": dueByCharge[app.ChargeID],
			}); err != nil {
				return fmt.Errorf("audit application: %w", err)
			}
		}

		return s.events.Publish(ctx, domain.Event{
			AggregateType: "Payment",
			AggregateID:   payment.ID,
			EventType:     domain.EventPaymentRecorded,
			Payload: map[string]any{
				"payment_id":   payment.ID,
				"customer_id":  payment.CustomerID,
				"order_id":     payment.OrderID,
				"amount":       payment.Amount,
				"applications": len(result.Applications),
				"unapplied":    result.Unapplied,
			},
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.metrics.PaymentRecorded(payment.Amount.Sub(result.Unapplied), result.Unapplied)
	logger.Info(ctx, "payment recorded",
		"payment_id", payment.ID,
		"customer_id", payment.CustomerID,
		"amount", payment.Amount.String(),
		"applications", len(result.Applications),
		"charges_paid", len(result.PaidCharges),
		"unapplied", result.Unapplied.String())
	return result, nil
}

// ListPayments returns recorded payments, newest first.
func (s *Service) ListPayments(ctx context.Context, filter PaymentFilter) (domain.ListResult[Payment], error) {
	page := domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.repo.ListPayments(ctx, filter)
}

// openCharges loads pending charges with a positive due.
func (s *Service) openCharges(ctx context.Context, customerID id.ID, orderID *id.ID) ([]open, error) {
	charges, err := s.charges.PendingCharges(ctx, customerID, orderID)
	if err != nil {
		return nil, fmt.Errorf("list pending charges: %w", err)
	}
	if len(charges) == 0 {
		return nil, nil
	}

	ids := make([]id.ID, 0, len(charges))
	for _, c := range charges {
		ids = append(ids, c.ID)
	}
	prior, err := s.repo.AppliedByCharges(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load applications: %w", err)
	}

	out := make([]open, 0, len(charges))
	for _, c := range charges {
		due := c.Total.Sub(c.DiscountAmount).Sub(prior[c.ID])
		if !due.IsPositive() {
			continue
		}
		out = append(out, open{charge: c, due: due})
	}
	return out, nil
}

// explicitShares caps each listed amount at the charge's due. A charge of
// another customer is rejected; a settled charge of this customer takes nothing.
func (s *Service) explicitShares(ctx context.Context, in RecordPaymentInput, opens []open) ([]Share, error) {
	byID := make(map[id.ID]open, len(opens))
	for _, o := range opens {
		byID[o.charge.ID] = o
	}

	shares := make([]Share, 0, len(in.Applications))
	for _, a := range in.Applications {
		o, ok := byID[a.ChargeID]
		if !ok {
			c, err := s.charges.GetCharge(ctx, a.ChargeID)
			if err != nil {
				return nil, err
			}
			if c.CustomerID != in.CustomerID {
				return nil, apperror.NewConsistencyGuard("charge belongs to another customer").
					WithDetail("charge_id", a.ChargeID)
			}
			logger.Warn(ctx, "explicit application on a charge with nothing due",
				"charge_id", a.ChargeID,
				"status", c.Status)
			continue
		}
		shares = append(shares, Share{ChargeID: a.ChargeID, Amount: types.RoundMoney(decimal.Min(a.Amount, o.due))})
	}
	return shares, nil
}
