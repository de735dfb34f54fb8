package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/clock"
	"freshledger/internal/core/id"
	"freshledger/internal/core/tx"
	"freshledger/internal/core/types"
	"freshledger/internal/domain"
)

type memRepo struct {
	lots       map[id.ID]*Lot
	processing []ProcessingRecord
}

func newMemRepo() *memRepo {
	return &memRepo{lots: make(map[id.ID]*Lot)}
}

func (r *memRepo) CreateLot(_ context.Context, lot *Lot) error {
	cp := *lot
	r.lots[lot.ID] = &cp
	return nil
}

func (r *memRepo) GetLot(_ context.Context, lotID id.ID) (*Lot, error) {
	l, ok := r.lots[lotID]
	if !ok {
		return nil, apperror.NewNotFound("inventory_lot", lotID)
	}
	cp := *l
	return &cp, nil
}

func (r *memRepo) ListLots(_ context.Context, filter LotFilter) (domain.ListResult[Lot], error) {
	var items []Lot
	for _, l := range r.lots {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.ProductID != nil && l.ProductID != *filter.ProductID {
			continue
		}
		items = append(items, *l)
	}
	return domain.ListResult[Lot]{Items: items, TotalCount: int64(len(items)), Limit: filter.Limit}, nil
}

func (r *memRepo) UpdateLot(_ context.Context, lot *Lot) error {
	cur, ok := r.lots[lot.ID]
	if !ok || cur.Version != lot.Version {
		return apperror.NewConcurrentModification("inventory_lot", lot.ID)
	}
	lot.Version++
	cp := *lot
	r.lots[lot.ID] = &cp
	return nil
}

func (r *memRepo) InsertProcessing(_ context.Context, rec *ProcessingRecord) error {
	r.processing = append(r.processing, *rec)
	return nil
}

func qty(s string) decimal.Decimal { return types.MustDecimal(s) }

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	svc := NewService(repo, &tx.MockManager{}, nil, clock.NewFixed(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)))
	return svc, repo
}

func seedLot(t *testing.T, repo *memRepo, productID id.ID, m types.Measure) *Lot {
	t.Helper()
	lot := NewLot(productID, nil, nil, m, time.Now())
	require.NoError(t, repo.CreateLot(context.Background(), lot))
	return lot
}

func TestLot_Consume(t *testing.T) {
	tests := []struct {
		name       string
		start      types.Measure
		take       types.Measure
		wantErr    bool
		wantKg     string
		wantStatus LotStatus
	}{
		{"partial", types.MeasureOf(types.UnitKg, qty("2")), types.MeasureOf(types.UnitKg, qty("0.5")), false, "1.5", LotUnassigned},
		{"full", types.MeasureOf(types.UnitKg, qty("2")), types.MeasureOf(types.UnitKg, qty("2")), false, "0", LotAssigned},
		{"too much", types.MeasureOf(types.UnitKg, qty("2")), types.MeasureOf(types.UnitKg, qty("3")), true, "2", LotUnassigned},
		{"wrong unit", types.MeasureOf(types.UnitKg, qty("2")), types.MeasureOf(types.UnitCount, qty("1")), true, "2", LotUnassigned},
		{"zero", types.MeasureOf(types.UnitKg, qty("2")), types.Measure{Kg: decimal.Zero, Count: decimal.Zero}, true, "2", LotUnassigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := NewLot(id.New(), nil, nil, tt.start, time.Now())
			err := lot.Consume(tt.take)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.True(t, lot.Remaining().Kg.Equal(qty(tt.wantKg)), "kg left: %s", lot.Remaining().Kg)
			assert.Equal(t, tt.wantStatus, lot.Status)
			assert.False(t, lot.QtyUnit.Valid, "unit bucket stays null")
		})
	}
}

func TestService_ConsumeLot(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	lot := seedLot(t, repo, id.New(), types.Measure{Kg: qty("3"), Count: qty("12")})

	got, err := svc.ConsumeLot(ctx, lot.ID, ConsumeInput{Kg: qty("1"), Count: qty("4"), Version: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.True(t, got.Remaining().Count.Equal(qty("8")))

	_, err = svc.ConsumeLot(ctx, lot.ID, ConsumeInput{Kg: qty("1"), Version: 1})
	assert.True(t, apperror.IsConcurrentModification(err), "stale version")

	got, err = svc.ConsumeLot(ctx, lot.ID, ConsumeInput{Kg: qty("2"), Count: qty("8")})
	require.NoError(t, err)
	assert.Equal(t, LotAssigned, got.Status)
}

func TestService_MarkLot(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	lot := seedLot(t, repo, id.New(), types.MeasureOf(types.UnitCount, qty("5")))

	_, err := svc.MarkLot(ctx, lot.ID, LotAssigned, "")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	got, err := svc.MarkLot(ctx, lot.ID, LotWaste, "bruised")
	require.NoError(t, err)
	assert.Equal(t, LotWaste, got.Status)
	assert.Equal(t, "bruised", got.Notes)

	_, err = svc.MarkLot(ctx, lot.ID, LotGift, "")
	assert.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))
}

func TestService_ConsumeForReassign(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	productID := id.New()
	lot := seedLot(t, repo, productID, types.MeasureOf(types.UnitKg, qty("2")))

	err := svc.ConsumeForReassign(ctx, lot.ID, id.New(), types.UnitKg, qty("1"))
	assert.True(t, apperror.IsCode(err, apperror.CodeBusinessRule), "other product")

	require.NoError(t, svc.ConsumeForReassign(ctx, lot.ID, productID, types.UnitKg, qty("1")))
	stored, _ := repo.GetLot(ctx, lot.ID)
	assert.True(t, stored.Remaining().Kg.Equal(qty("1")))
}

func TestService_RecordProcessing(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	mango, pulp := id.New(), id.New()
	lot := seedLot(t, repo, mango, types.MeasureOf(types.UnitKg, qty("4")))

	rec, err := svc.RecordProcessing(ctx, ProcessingInput{
		LotID:         &lot.ID,
		FromProductID: mango,
		ToProductID:   pulp,
		InputKg:       qty("4"),
		OutputQty:     qty("2.6"),
		OutputUnit:    types.UnitKg,
	})
	require.NoError(t, err)
	require.True(t, rec.YieldPct.Valid)
	assert.True(t, rec.YieldPct.Decimal.Equal(qty("65")))

	stored, _ := repo.GetLot(ctx, lot.ID)
	assert.Equal(t, LotProcessed, stored.Status)
	assert.Len(t, repo.processing, 1)

	_, err = svc.RecordProcessing(ctx, ProcessingInput{FromProductID: mango, ToProductID: pulp, OutputUnit: types.UnitKg})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
