package core

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// StockSheet is the worksheet name used by WriteStockReport.
const StockSheet = "Stock"

var stockReportHeadings = []string{
	"Order Number", "Vendor Code", "Item Code", "Product Name", "Company Name", "Specification",
	"Barcode", "Total Qty", "Sold", "Sale Returns", "Stock Returns", "Available", "Rate",
	"Sale Rate", "Expire Date",
}

func stockReportRow(e StockEntry) []any {
	spec := ""
	if e.Specification != nil {
		spec = *e.Specification
	}
	expiry := ""
	if e.ExpireDate != nil {
		expiry = e.ExpireDate.Format("2006-01-02")
	}
	rate, _ := e.Rate.Float64()
	saleRate, _ := e.SaleRate.Float64()
	return []any{
		e.OrderNumber, e.VendorCode, e.ItemCode, e.ProductName, e.CompanyName, spec,
		e.Barcode, e.TotalQty, e.SaleQty, e.SaleReturnQty, e.StockReturnQty, e.AvailableQty, rate,
		saleRate, expiry,
	}
}

// BuildStockReport lays out one heading row followed by one row per ledger entry.
func BuildStockReport(entries []StockEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", StockSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name stock sheet: %w", err)
	}

	if err := f.SetSheetRow(StockSheet, "A1", &stockReportHeadings); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write stock report headings: %w", err)
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := stockReportRow(e)
		if err := f.SetSheetRow(StockSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write stock row %s: %w", e.Barcode, err)
		}
	}
	return f, nil
}

// WriteStockReport writes the ledger as an .xlsx workbook to w.
func WriteStockReport(w io.Writer, entries []StockEntry) error {
	f, err := BuildStockReport(entries)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write stock report: %w", err)
	}
	return nil
}
