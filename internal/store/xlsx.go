package store

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"osrs-flipper/internal/engine"
	"osrs-flipper/internal/logger"
)

const xlsxSheet = "Flips"

// SaveXLSX writes a spreadsheet report of the dataset. Export only;
// restoring goes through the csv/json/gob formats.
func SaveXLSX(items []engine.Item, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("preparing sheet: %w", err)
	}

	header := make([]interface{}, len(csvHeader))
	for i, col := range csvHeader {
		header[i] = col
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i := range items {
		row := xlsxCells(&items[i])
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(csvHeader), 1)
		f.SetCellStyle(xlsxSheet, "A1", last, style)
	}
	f.SetColWidth(xlsxSheet, "B", "B", 28)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Success("STORE", fmt.Sprintf("exported %d items to %s", len(items), path))
	return nil
}

// xlsxCells mirrors the csv column contract but keeps numbers numeric
// so the spreadsheet can sort and aggregate them.
func xlsxCells(it *engine.Item) []interface{} {
	row := []interface{}{
		it.ID,
		it.Name,
		it.Members,
		intPtrValue(it.BuyLimit),
		intPtrValue(it.BoughtPrice),
		intPtrValue(it.SoldPrice),
		timeCell(it.LastBought),
		timeCell(it.LastSold),
		it.MarginGP,
		it.MarginPct,
		it.FlipEfficiency,
	}
	if it.Volumes == nil {
		for i := len(row); i < len(csvHeader); i++ {
			row = append(row, "")
		}
		return row
	}
	v := it.Volumes
	for _, w := range []engine.WindowStats{v.Window20m, v.Window1h, v.Window24h} {
		row = append(row, w.BoughtVolume, w.SoldVolume, w.AvgBoughtPrice, w.AvgSoldPrice, w.AvgMarginGP)
	}
	row = append(row,
		string(v.BoughtTrend1h), string(v.SoldTrend1h),
		string(v.BoughtTrend24h), string(v.SoldTrend24h),
		string(v.BoughtTrend1w), string(v.SoldTrend1w),
		string(v.BoughtTrend1mo), string(v.SoldTrend1mo),
	)
	return row
}

func intPtrValue(p *int) interface{} {
	if p == nil {
		return ""
	}
	return *p
}
