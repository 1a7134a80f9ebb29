// Package export renders the current liquidity snapshot as an XLSX report.
package export

import (
	"fmt"

	"csgo-liquidity/internal/liquidity"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Liquidity"

var headers = []string{
	"Item Key", "Name", "Price (Buff)", "Best Buy (Buff)", "Total Listings",
	"S Listings", "S Gap", "S Volume", "S Steam",
	"Doppler", "Factory New", "StatTrak", "Liquidity Score",
}

// SnapshotWorkbook builds a one-sheet workbook with one row per scored
// record, ordered by item key.
func SnapshotWorkbook(snap *liquidity.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheetName)

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for rowIdx, rec := range snap.All() {
		values := []interface{}{
			rec.ItemKey, rec.NameBase, rec.PriceBuff, rec.BestBuyBuff, rec.TotalListings,
			rec.ScoreListings, rec.ScoreGap, rec.ScoreVolume, rec.ScoreSteam,
			rec.IsDoppler, rec.IsFactoryNew, rec.IsStatTrak, rec.LiquidityScore(),
		}
		for colIdx, v := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, fmt.Errorf("failed to build cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", rowIdx+2, err)
			}
		}
	}
	return f, nil
}
