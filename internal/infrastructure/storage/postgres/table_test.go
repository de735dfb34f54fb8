package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
)

func TestTable_InsertSQL(t *testing.T) {
	table := NewTable[testLot](nil, "inventory_lots", "inventory_lot")
	a := &testLot{ID: id.New(), Unit: types.UnitKg}
	b := &testLot{ID: id.New(), Unit: types.UnitCount}

	sql, args, err := table.insertSQL([]*testLot{a, b})
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO inventory_lots (id,unit,created_at,version) VALUES ($1,$2,$3,$4),($5,$6,$7,$8)",
		sql)
	require.Len(t, args, 8)
	assert.Equal(t, a.ID, args[0])
	assert.Equal(t, types.UnitCount, args[5])
}

func TestTable_SelectAll(t *testing.T) {
	table := NewTable[testLot](nil, "inventory_lots", "inventory_lot")
	sql, _, err := table.SelectAll().ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, unit, created_at, version FROM inventory_lots", sql)
}

func TestTable_OrderBy(t *testing.T) {
	table := NewTable[testLot](nil, "inventory_lots", "inventory_lot")

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "created_at DESC", false},
		{"-version", "version DESC", false},
		{"+unit", "unit ASC", false},
		{"created_at", "created_at ASC", false},
		{"-", "", true},
		{"label; DROP TABLE x", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := table.OrderBy(tt.in, "created_at DESC")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRowValues(t *testing.T) {
	cols := []string{"unit", "id"}
	a := &testLot{ID: id.New(), Unit: types.UnitKg}

	got := rowValues(cols, []*testLot{a})
	require.Len(t, got, 1)
	assert.Equal(t, []any{types.UnitKg, a.ID}, got[0])
}

func TestTxManager_CopyFromNeedsTransaction(t *testing.T) {
	m := &TxManager{}
	_, err := m.CopyFrom(context.Background(), "allocation_records", []string{"id"}, [][]any{{id.New()}})
	assert.ErrorContains(t, err, "requires transaction")
}
