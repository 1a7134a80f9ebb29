package export

import (
	"testing"

	"csgo-liquidity/internal/liquidity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotWorkbook(t *testing.T) {
	snap, err := liquidity.BuildSnapshot([]liquidity.NormalizedRecord{
		{
			ItemKey:       "AK-47 | Redline|FT",
			NameBase:      "AK-47 | Redline",
			PriceBuff:     13,
			BestBuyBuff:   12.2,
			TotalListings: 610,
		},
	})
	require.NoError(t, err)

	f, err := SnapshotWorkbook(snap)
	require.NoError(t, err)

	got, err := f.GetCellValue("Liquidity", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Item Key", got)

	got, err = f.GetCellValue("Liquidity", "A2")
	require.NoError(t, err)
	assert.Equal(t, "AK-47 | Redline|FT", got)

	// Composite score in the last column: 25+25+20+25, no Doppler bonus.
	got, err = f.GetCellValue("Liquidity", "M2")
	require.NoError(t, err)
	assert.Equal(t, "95", got)
}
