package orders

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
	"freshledger/internal/core/numerator"
	"freshledger/internal/core/tx"
	"freshledger/internal/core/types"
	"freshledger/internal/domain"
	"freshledger/internal/domain/catalog"
)

type fixture struct {
	svc      *Service
	repo     *memRepo
	events   *recordingPublisher
	lots     *fakeLots
	apples   id.ID
	bananas  id.ID
	ana      id.ID
	bruno    id.ID
	variantA id.ID
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMemRepo(),
		events:   &recordingPublisher{},
		lots:     &fakeLots{},
		apples:   id.New(),
		bananas:  id.New(),
		ana:      id.New(),
		bruno:    id.New(),
		variantA: id.New(),
	}
	cat := &fakeCatalog{
		products: map[id.ID]*catalog.Product{
			f.apples:  {ID: f.apples, Name: "Apples", DefaultUnit: types.UnitKg},
			f.bananas: {ID: f.bananas, Name: "Bananas", DefaultUnit: types.UnitCount},
		},
		tiers: map[id.ID][]catalog.PriceTier{
			f.apples: {
				{ProductID: f.apples, Unit: types.UnitKg, MinQty: decimal.NewFromInt(1), Price: decimal.NewFromInt(5), Active: true},
				{ProductID: f.apples, Unit: types.UnitKg, MinQty: decimal.NewFromInt(10), Price: decimal.NewFromInt(4), Active: true},
			},
		},
		prices: map[id.ID]*catalog.CatalogPrice{
			f.bananas: {ProductID: f.bananas, SalePrice: decimal.NewFromFloat(0.5)},
		},
	}
	f.svc = NewService(Deps{
		Repo:      f.repo,
		Catalog:   cat,
		Customers: fakeCustomers{f.ana: "Ana", f.bruno: "Bruno"},
		Lots:      f.lots,
		Numerator: &numerator.MockGenerator{},
		TxManager: &tx.MockManager{},
		Events:    f.events,
		Clock:     clock.NewFixed(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)),
	})
	return f
}

func TestService_OpenDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.OpenDraft(ctx, "weekly round")
	require.NoError(t, err)
	second, err := f.svc.OpenDraft(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, "ORD-2026-00001", first.Number)
	assert.Equal(t, "ORD-2026-00002", second.Number)
	assert.NotEqual(t, first.OrderID, second.OrderID)

	order, err := f.repo.GetOrder(ctx, first.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, order.Status)
	assert.Equal(t, "Order ORD-2026-00001 - 2026-03-14", order.Title)

	require.Len(t, f.events.events, 2)
	assert.Equal(t, domain.EventOrderOpened, f.events.events[0].EventType)
	assert.Equal(t, first.OrderID, f.events.events[0].AggregateID)
}

func TestService_AddLines_DraftCreatesNoCharges(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	draft, err := f.svc.OpenDraft(ctx, "")
	require.NoError(t, err)

	res, err := f.svc.AddLines(ctx, draft.OrderID, []LineInput{
		{CustomerID: f.ana, ProductID: f.apples, Qty: decimal.NewFromInt(3), Unit: types.UnitKg},
		{CustomerID: f.bruno, ProductID: f.bananas, Qty: decimal.NewFromInt(12), Unit: types.UnitCount},
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.Empty(t, res.Charges)

	assert.Equal(t, types.UnitKg, res.Lines[0].ChargedUnit, "defaults to product unit")
	assert.Equal(t, types.UnitCount, res.Lines[1].ChargedUnit)
}

func TestService_AddLines_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	draft, err := f.svc.OpenDraft(ctx, "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		input LineInput
	}{
		{"missing customer", LineInput{ProductID: f.apples, Qty: decimal.NewFromInt(1), Unit: types.UnitKg}},
		{"zero qty", LineInput{CustomerID: f.ana, ProductID: f.apples, Unit: types.UnitKg}},
		{"bad unit", LineInput{CustomerID: f.ana, ProductID: f.apples, Qty: decimal.NewFromInt(1), Unit: "box"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddLines(ctx, draft.OrderID, []LineInput{tt.input})
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
		})
	}

	_, err = f.svc.AddLines(ctx, draft.OrderID, []LineInput{
		{CustomerID: id.New(), ProductID: f.apples, Qty: decimal.NewFromInt(1), Unit: types.UnitKg},
	})
	assert.True(t, apperror.IsNotFound(err), "unknown customer")
}

func TestService_Confirm(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	draft, err := f.svc.OpenDraft(ctx, "")
	require.NoError(t, err)

	_, err = f.svc.AddLines(ctx, draft.OrderID, []LineInput{
		{CustomerID: f.ana, ProductID: f.apples, Qty: decimal.NewFromInt(12), Unit: types.UnitKg},
		{CustomerID: f.bruno, ProductID: f.bananas, Qty: decimal.NewFromInt(10), Unit: types.UnitCount},
		{CustomerID: f.bruno, ProductID: f.apples, Qty: decimal.NewFromInt(2), Unit: types.UnitKg,
			SaleUnitPrice: types.Null(decimal.NewFromInt(7))},
	})
	require.NoError(t, err)

	res, err := f.svc.Confirm(ctx, draft.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ChargesCreated)
	assert.False(t, res.AlreadyEmitted)
	assert.Equal(t, StatusEmitted, res.Order.Status)
	require.NotNil(t, res.Order.EmittedAt)

	charges, err := f.repo.ChargesByOrder(ctx, draft.OrderID)
	require.NoError(t, err)
	require.Len(t, charges, 3)

	totals := map[string]string{}
	for _, c := range charges {
		totals[c.UnitPrice.String()] = c.Total.String()
		assert.Equal(t, ChargePending, c.Status)
	}
	assert.Equal(t, "48", totals["4"], "tier with min 10 applies to 12 kg")
	assert.Equal(t, "5", totals["0.5"], "catalog price for bananas")
	assert.Equal(t, "14", totals["7"], "explicit price wins")

	require.Len(t, f.events.events, 2)
	assert.Equal(t, domain.EventOrderOpened, f.events.events[0].EventType)
	assert.Equal(t, domain.EventOrderConfirmed, f.events.events[1].EventType)

	again, err := f.svc.Confirm(ctx, draft.OrderID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyEmitted)
	assert.Zero(t, again.ChargesCreated)
	all, _ := f.repo.ChargesByOrder(ctx, draft.OrderID)
	assert.Len(t, all, 3, "re-confirm creates nothing")
	assert.Len(t, f.events.events, 2)
}

func TestService_AddLines_EmittedBillsImmediately(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	draft, err := f.svc.OpenDraft(ctx, "")
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, draft.OrderID)
	require.NoError(t, err)

	res, err := f.svc.AddLines(ctx, draft.OrderID, []LineInput{
		{CustomerID: f.ana, ProductID: f.apples, Qty: decimal.NewFromInt(2), Unit: types.UnitKg},
	})
	require.NoError(t, err)
	require.Len(t, res.Charges, 1)
	assert.True(t, res.Charges[0].Total.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, res.Lines[0].ID, *res.Charges[0].LineID)
}

func TestService_RemoveLine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	draft, err := f.svc.OpenDraft(ctx, "")
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, draft.OrderID)
	require.NoError(t, err)

	res, err := f.svc.AddLines(ctx, draft.OrderID, []LineInput{
		{CustomerID: f.ana, ProductID: f.apples, Qty: decimal.NewFromInt(2), Unit: types.UnitKg},
		{CustomerID: f.bruno, ProductID: f.apples, Qty: decimal.NewFromInt(1), Unit: types.UnitKg},
	})
	require.NoError(t, err)

	f.repo.paidLine[res.Lines[1].ID] = true
	err = f.svc.RemoveLine(ctx, draft.OrderID, res.Lines[1].ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))

	require.NoError(t, f.svc.RemoveLine(ctx, draft.OrderID, res.Lines[0].ID))
	lines, _ := f.repo.ListLines(ctx, draft.OrderID)
	charges, _ := f.repo.ChargesByOrder(ctx, draft.OrderID)
	assert.Len(t, lines, 1)
	assert.Len(t, charges, 1)

	err = f.svc.RemoveLine(ctx, id.New(), res.Lines[1].ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_ReassignExcess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	draft, err := f.svc.OpenDraft(ctx, "")
	require.NoError(t, err)
	lotID := id.New()

	res, err := f.svc.ReassignExcess(ctx, ReassignExcessInput{
		OrderID:    draft.OrderID,
		ProductID:  f.apples,
		CustomerID: f.bruno,
		Qty:        decimal.NewFromFloat(1.5),
		Unit:       types.UnitKg,
		UnitPrice:  decimal.NewFromInt(6),
		LotID:      &lotID,
	})
	require.NoError(t, err)
	require.Len(t, res.Charges, 1)
	assert.True(t, res.Charges[0].Total.Equal(decimal.NewFromInt(9)))
	assert.True(t, res.Lines[0].ChargedQty.Decimal.Equal(decimal.NewFromFloat(1.5)))

	require.Len(t, f.lots.calls, 1)
	assert.Equal(t, lotID, f.lots.calls[0].lotID)
	assert.Equal(t, types.UnitKg, f.lots.calls[0].unit)

	_, err = f.svc.ReassignExcess(ctx, ReassignExcessInput{OrderID: draft.OrderID})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.ElementsMatch(t, []string{"product_id", "customer_id", "qty", "unit", "unit_price"}, appErr.Details["fields"])
}

func TestService_List(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.OpenDraft(ctx, "")
		require.NoError(t, err)
	}

	res, err := f.svc.List(ctx, domain.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.EqualValues(t, 3, res.TotalCount)
	assert.Equal(t, "ORD-2026-00003", res.Items[0].Number)
}

func TestService_CreateCharge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	draft, err := f.svc.OpenDraft(ctx, "")
	require.NoError(t, err)
	res, err := f.svc.AddLines(ctx, draft.OrderID, []LineInput{
		{CustomerID: f.ana, ProductID: f.bananas, Qty: decimal.NewFromInt(10), Unit: types.UnitCount,
			ChargedUnit: types.UnitKg, ChargedQty: types.Null(decimal.RequireFromString("3.3333"))},
	})
	require.NoError(t, err)
	line := res.Lines[0]

	t.Run("standalone with discount", func(t *testing.T) {
		charge, err := f.svc.CreateCharge(ctx, CreateChargeInput{
			CustomerID:     f.bruno,
			ProductID:      f.apples,
			Qty:            decimal.NewFromInt(2),
			Unit:           types.UnitKg,
			UnitPrice:      decimal.NewFromInt(5),
			DiscountAmount: decimal.NewFromInt(3),
			DiscountReason: "bruised",
		})
		require.NoError(t, err)
		assert.True(t, charge.Total.Equal(decimal.NewFromInt(10)))
		assert.True(t, charge.NetTotal().Equal(decimal.NewFromInt(7)))
		require.NotNil(t, charge.DiscountReason)
		assert.Equal(t, "bruised", *charge.DiscountReason)
		assert.Nil(t, charge.OrderID)
		assert.Equal(t, ChargePending, charge.Status)

		stored, err := f.repo.GetCharge(ctx, charge.ID)
		require.NoError(t, err)
		assert.True(t, stored.DiscountAmount.Equal(decimal.NewFromInt(3)))
	})

	t.Run("line supplies charged quantity and unit", func(t *testing.T) {
		charge, err := f.svc.CreateCharge(ctx, CreateChargeInput{
			CustomerID:     f.ana,
			LineID:         &line.ID,
			ProductID:      f.bananas,
			Qty:            decimal.NewFromInt(10),
			UnitPrice:      decimal.NewFromInt(1000),
			DiscountAmount: decimal.NewFromInt(333),
		})
		require.NoError(t, err)
		assert.Equal(t, types.UnitKg, charge.Unit)
		assert.True(t, charge.ChargedQty.Decimal.Equal(decimal.RequireFromString("3.3333")))
		assert.True(t, charge.Total.Equal(decimal.RequireFromString("3333.3")))
		require.NotNil(t, charge.OrderID)
		assert.Equal(t, draft.OrderID, *charge.OrderID)
		assert.Equal(t, draft.OrderID, *charge.OriginalOrderID)
	})

	t.Run("line of another customer", func(t *testing.T) {
		_, err := f.svc.CreateCharge(ctx, CreateChargeInput{
			CustomerID: f.bruno,
			LineID:     &line.ID,
			ProductID:  f.bananas,
			Qty:        decimal.NewFromInt(1),
			UnitPrice:  decimal.NewFromInt(1),
		})
		assert.True(t, apperror.IsCode(err, apperror.CodeConsistencyGuard))
	})

	t.Run("unknown order", func(t *testing.T) {
		other := id.New()
		_, err := f.svc.CreateCharge(ctx, CreateChargeInput{
			CustomerID: f.ana,
			OrderID:    &other,
			LineID:     &line.ID,
			ProductID:  f.bananas,
			Qty:        decimal.NewFromInt(1),
			UnitPrice:  decimal.NewFromInt(1),
		})
		assert.True(t, apperror.IsNotFound(err))

		second, err := f.svc.OpenDraft(ctx, "")
		require.NoError(t, err)
		_, err = f.svc.CreateCharge(ctx, CreateChargeInput{
			CustomerID: f.ana,
			OrderID:    &second.OrderID,
			LineID:     &line.ID,
			ProductID:  f.bananas,
			Qty:        decimal.NewFromInt(1),
			UnitPrice:  decimal.NewFromInt(1),
		})
		assert.True(t, apperror.IsCode(err, apperror.CodeConsistencyGuard))
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			input CreateChargeInput
		}{
			{"missing customer", CreateChargeInput{ProductID: f.apples, Qty: decimal.NewFromInt(1), Unit: types.UnitKg}},
			{"no unit without line", CreateChargeInput{CustomerID: f.ana, ProductID: f.apples, Qty: decimal.NewFromInt(1)}},
			{"negative discount", CreateChargeInput{CustomerID: f.ana, ProductID: f.apples, Qty: decimal.NewFromInt(1),
				Unit: types.UnitKg, DiscountAmount: decimal.NewFromInt(-1)}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.CreateCharge(ctx, tt.input)
				assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
			})
		}
	})

	var created int
	for _, e := range f.events.events {
		if e.EventType == domain.EventChargeCreated {
			created++
		}
	}
	assert.Equal(t, 2, created)
}

func TestService_ListCharges(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, c := range []CreateChargeInput{
		{CustomerID: f.ana, ProductID: f.apples, Qty: decimal.NewFromInt(1), Unit: types.UnitKg, UnitPrice: decimal.NewFromInt(2)},
		{CustomerID: f.ana, ProductID: f.apples, Qty: decimal.NewFromInt(2), Unit: types.UnitKg, UnitPrice: decimal.NewFromInt(2)},
		{CustomerID: f.bruno, ProductID: f.apples, Qty: decimal.NewFromInt(3), Unit: types.UnitKg, UnitPrice: decimal.NewFromInt(2)},
	} {
		_, err := f.svc.CreateCharge(ctx, c)
		require.NoError(t, err)
	}

	res, err := f.svc.ListCharges(ctx, ChargeFilter{CustomerID: &f.ana})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 50, res.Limit, "default page size")

	res, err = f.svc.ListCharges(ctx, ChargeFilter{Status: ChargePaid})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	_, err = f.svc.ListCharges(ctx, ChargeFilter{Status: "refunded"})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
