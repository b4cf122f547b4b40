package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/tanre/retro-engine/internal/model"
)

// WriteClaimsXLSX renders the claims register as a workbook with a "claims"
// sheet (same columns as the CSV) and a "summary" sheet of dashboard totals.
func WriteClaimsXLSX(w io.Writer, claims []model.RegisteredClaim, totals model.ClaimsDashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	claimsSheet := "claims"
	summarySheet := "summary"
	if err := f.SetSheetName("Sheet1", claimsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	for i, h := range ClaimsHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(claimsSheet, cell, h)
	}
	for i, c := range claims {
		row := i + 2
		values := []any{
			c.ClaimID,
			FormatDate(c.DateRegistered),
			FormatDate(c.DateOfLoss),
			FormatDate(c.DateReceived),
			c.OriginalInsured,
			c.CauseOfLoss,
			c.CurrentReserve.InexactFloat64(),
			c.Salvage.InexactFloat64(),
			c.Summary.NetAmount.InexactFloat64(),
			c.Summary.TotalShareSignedPct.Round(2).InexactFloat64(),
			c.Summary.CedantShareAmount.InexactFloat64(),
			c.Summary.RetroAmount.InexactFloat64(),
			c.Summary.Retention.InexactFloat64(),
			len(c.Contracts),
			contractList(c.Contracts),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(claimsSheet, cell, v)
		}
	}

	summary := [][2]any{
		{"Claims", totals.ClaimCount},
		{"Current Reserve (TZS)", totals.TotalReserve.InexactFloat64()},
		{"Salvage (TZS)", totals.TotalSalvage.InexactFloat64()},
		{"Net Amount (TZS)", totals.TotalNet.InexactFloat64()},
		{"TANRE TZS", totals.TotalTanreTZS.InexactFloat64()},
		{"Retro Amount", totals.TotalRetro.InexactFloat64()},
		{"TANRE Retention", totals.TotalRetention.InexactFloat64()},
	}
	_ = f.SetCellValue(summarySheet, "A1", "Claims Register Summary")
	for i, kv := range summary {
		row := i + 3
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), kv[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), kv[1])
	}

	_, err := f.WriteTo(w)
	return err
}
