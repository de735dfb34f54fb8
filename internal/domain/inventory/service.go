package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/clock"
	"freshledger/internal/core/id"
	"freshledger/internal/core/tx"
	"freshledger/internal/core/types"
	"freshledger/internal/domain"
	"freshledger/pkg/logger"
)

// Service manages surplus lots.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     domain.AuditRecorder
	clock     clock.Clock
}

// NewService creates a new inventory service.
func NewService(repo Repository, txManager tx.Manager, audit domain.AuditRecorder, clk clock.Clock) *Service {
	if audit == nil {
		audit = domain.NopAuditor{}
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{repo: repo, txManager: txManager, audit: audit, clock: clk}
}

// ListLots returns lots matching filter, newest first.
func (s *Service) ListLots(ctx context.Context, filter LotFilter) (domain.ListResult[Lot], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.ListResult[Lot]{}, apperror.NewValidation("unknown lot status").
			WithDetail("status", string(filter.Status))
	}
	page := domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.repo.ListLots(ctx, filter)
}

// ConsumeInput is the quantity taken out of a lot.
type ConsumeInput struct {
	Kg    types.Quantity
	Count types.Quantity
	// Version, when non-zero, must match the lot's current version.
	Version int
}

// ConsumeLot takes part or all of a lot's quantity.
func (s *Service) ConsumeLot(ctx context.Context, lotID id.ID, in ConsumeInput) (*Lot, error) {
	var lot *Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		lot, err = s.repo.GetLot(ctx, lotID)
		if err != nil {
			return err
		}
		if in.Version != 0 && in.Version != lot.Version {
			return apperror.NewConcurrentModification("inventory_lot", lotID)
		}
		before := lot.Remaining()
		if err := lot.Consume(types.Measure{Kg: in.Kg, Count: in.Count}); err != nil {
			return err
		}
		if err := s.repo.UpdateLot(ctx, lot); err != nil {
			return err
		}
		return s.audit.RecordChange(ctx, "inventory_lot", lot.ID, domain.AuditUpdate, map[string]any{
			"consumed_kg":   in.Kg.String(),
			"consumed_unit": in.Count.String(),
			"before":        before,
			"after":         lot.Remaining(),
			"status":        lot.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "lot consumed", "lot_id", lotID, "status", lot.Status)
	return lot, nil
}

// ConsumeForReassign takes qty in unit from a lot of productID.
func (s *Service) ConsumeForReassign(ctx context.Context, lotID, productID id.ID, unit types.Unit, qty types.Quantity) error {
	lot, err := s.repo.GetLot(ctx, lotID)
	if err != nil {
		return err
	}
	if lot.ProductID != productID {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "lot belongs to another product").
			WithDetail("lot_id", lotID).
			WithDetail("product_id", productID)
	}
	if err := lot.Consume(types.MeasureOf(unit, qty)); err != nil {
		return err
	}
	return s.repo.UpdateLot(ctx, lot)
}

// MarkLot moves a lot to gift, waste or processed.
func (s *Service) MarkLot(ctx context.Context, lotID id.ID, status LotStatus, notes string) (*Lot, error) {
	switch status {
	case LotGift, LotWaste, LotProcessed:
	default:
		return nil, apperror.NewValidation("status must be gift, waste or processed").
			WithDetail("status", string(status))
	}

	var lot *Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		lot, err = s.repo.GetLot(ctx, lotID)
		if err != nil {
			return err
		}
		if lot.Status != LotUnassigned {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "only unassigned lots can change status").
				WithDetail("status", string(lot.Status))
		}
		prev := lot.Status
		lot.Status = status
		if notes != "" {
			lot.Notes = notes
		}
		if err := s.repo.UpdateLot(ctx, lot); err != nil {
			return err
		}
		return s.audit.RecordChange(ctx, "inventory_lot", lot.ID, domain.AuditUpdate, map[string]any{
			"status": map[string]any{"old": prev, "new": status},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "lot status changed", "lot_id", lotID, "status", status)
	return lot, nil
}

// ProcessingInput describes a processing run.
type ProcessingInput struct {
	LotID         *id.ID
	FromProductID id.ID
	ToProductID   id.ID
	InputKg       types.Quantity
	OutputQty     types.Quantity
	OutputUnit    types.Unit
	Notes         string
}

// RecordProcessing stores a processing run. When it draws from a lot, the
// input weight is consumed from that lot and a lot left empty is marked
// processed.
func (s *Service) RecordProcessing(ctx context.Context, in ProcessingInput) (*ProcessingRecord, error) {
	if id.IsNil(in.FromProductID) || id.IsNil(in.ToProductID) {
		return nil, apperror.NewValidation("from_product_id and to_product_id are required")
	}
	if !in.InputKg.IsPositive() {
		return nil, apperror.NewValidation("input_kg must be greater than zero")
	}
	if in.OutputQty.IsNegative() {
		return nil, apperror.NewValidation("output_qty must not be negative")
	}
	if !in.OutputUnit.Valid() {
		return nil, apperror.NewValidation("output_unit must be kg or unit")
	}

	rec := &ProcessingRecord{
		ID:            id.New(),
		LotID:         in.LotID,
		FromProductID: in.FromProductID,
		ToProductID:   in.ToProductID,
		InputKg:       types.RoundQty(in.InputKg),
		OutputQty:     types.RoundQty(in.OutputQty),
		OutputUnit:    in.OutputUnit,
		Notes:         in.Notes,
		CreatedAt:     s.clock.Now(),
	}
	rec.ComputeYield()

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if in.LotID != nil {
			lot, err := s.repo.GetLot(ctx, *in.LotID)
			if err != nil {
				return err
			}
			if lot.ProductID != in.FromProductID {
				return apperror.NewBusinessRule(apperror.CodeBusinessRule, "lot belongs to another product")
			}
			if err := lot.Consume(types.MeasureOf(types.UnitKg, rec.InputKg)); err != nil {
				return err
			}
			if lot.Status == LotAssigned {
				lot.Status = LotProcessed
			}
			if err := s.repo.UpdateLot(ctx, lot); err != nil {
				return err
			}
		}
		if err := s.repo.InsertProcessing(ctx, rec); err != nil {
			return fmt.Errorf("insert processing record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "processing recorded",
		"from_product_id", rec.FromProductID,
		"to_product_id", rec.ToProductID,
		"yield_pct", types.ValueOr(rec.YieldPct, decimal.Zero).String())
	return rec, nil
}
