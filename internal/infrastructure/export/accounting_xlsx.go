// Package export renders accounting read models as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"freshledger/internal/core/types"
	"freshledger/internal/domain/accounting"
)

// ContentTypeXLSX is the MIME type of the workbook written by WriteOrderAccounting.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetSummary   = "Summary"
	sheetCustomers = "Customers"
	sheetProducts  = "Products"
)

// OrderAccountingFilename is the attachment name for an order's workbook.
func OrderAccountingFilename(acc *accounting.OrderAccounting) string {
	return fmt.Sprintf("accounting-%s.xlsx", acc.Number)
}

// WriteOrderAccounting writes a three-sheet workbook for acc to w.
func WriteOrderAccounting(w io.Writer, acc *accounting.OrderAccounting) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetCustomers, sheetProducts} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	summary := [][]any{
		{"Order", acc.Number},
		{"Status", string(acc.Status)},
		{"Purchase status", string(acc.PurchaseStatus)},
		{"Billed", money(acc.Billed)},
		{"Cost", money(acc.Cost)},
		{"Profit", money(acc.Profit)},
		{"Profit %", money(acc.ProfitPct)},
		{"Paid", money(acc.Paid)},
		{"Due", money(acc.Due)},
	}
	if err := writeRows(f, sheetSummary, summary); err != nil {
		return err
	}

	customers := [][]any{{"Customer", "Billed", "Paid", "Due"}}
	for _, c := range acc.BilledByCustomer {
		customers = append(customers, []any{c.Name, money(c.Billed), money(c.Paid), money(c.Due)})
	}
	if err := writeRows(f, sheetCustomers, customers); err != nil {
		return err
	}

	products := [][]any{{"Product", "Need kg", "Need units", "Bought kg", "Bought units", "Missing kg", "Missing units", "Status"}}
	for _, p := range acc.Products {
		products = append(products, []any{
			p.ProductID.String(),
			money(p.Need.Kg), money(p.Need.Count),
			money(p.Bought.Kg), money(p.Bought.Count),
			money(p.Missing.Kg), money(p.Missing.Count),
			string(p.Verdict),
		})
	}
	if err := writeRows(f, sheetProducts, products); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func money(m types.Money) float64 {
	return m.InexactFloat64()
}
