package migrations

import (
	"io/fs"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshledger/internal/core/types"
)

func TestFiles_PairedUpAndDown(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups[strings.TrimSuffix(n, ".up.sql")] = true
		case strings.HasSuffix(n, ".down.sql"):
			downs[strings.TrimSuffix(n, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", n)
		}
	}
	assert.Equal(t, ups, downs)
	assert.True(t, ups["000001_catalog"])
}

var numericColumn = regexp.MustCompile(`(?m)^\s*(\w+)\s+NUMERIC\(\d+,\s*(\d+)\)`)

func TestSchema_NumericScalesMatchDomainRounding(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)

	checked := 0
	for _, name := range names {
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		body, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/"+name)
		require.NoError(t, err)

		for _, m := range numericColumn.FindAllStringSubmatch(string(body), -1) {
			col := m[1]
			scale, err := strconv.Atoi(m[2])
			require.NoError(t, err)

			var want int32
			switch {
			case strings.Contains(col, "price") || strings.Contains(col, "amount") || col == "total":
				want = types.MoneyScale
			case strings.Contains(col, "per_") || strings.HasSuffix(col, "_pct"):
				continue
			default:
				want = types.QuantityScale
			}
			assert.Equal(t, int(want), scale, "%s: column %s", name, col)
			checked++
		}
	}
	assert.Greater(t, checked, 20)
}
