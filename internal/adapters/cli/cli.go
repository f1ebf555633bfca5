package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"general-store/internal/app"
	"general-store/internal/core"
)

// Usage lists the one-shot commands.
const Usage = `Usage: app <command> [args]

Commands:
  stock [--out]                 list stock entries (--out: sold-out lots only)
  lookup <barcode>              show the point-of-sale lookup for a barcode
  sale <sale_number>            show a recorded sale
  next <series>                 preview the next number (product, vendor, order, sale, return)
  vendor-return <barcode> <qty> send units of a lot back to its vendor
  export <file.xlsx>            write the stock ledger as a workbook`

// Run executes a one-shot CLI command, writing its output to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", Usage)
	}

	switch args[0] {
	case "stock", "st":
		var (
			result *app.StockResult
			err    error
		)
		if len(args) > 1 && args[1] == "--out" {
			result, err = svc.ListOutOfStock(ctx)
		} else {
			result, err = svc.ListStock(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to list stock: %w", err)
		}
		printStock(out, result)

	case "lookup", "l":
		if len(args) < 2 {
			return fmt.Errorf("usage: app lookup <barcode>")
		}
		result, err := svc.LookupProduct(ctx, args[1])
		if err != nil {
			return fmt.Errorf("lookup failed: %w", err)
		}
		if !result.Found() {
			fmt.Fprintf(out, "Barcode %s not found.\n", args[1])
			return nil
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)

	case "sale", "s":
		if len(args) < 2 {
			return fmt.Errorf("usage: app sale <sale_number>")
		}
		sale, err := svc.GetSale(ctx, args[1])
		if err != nil {
			return fmt.Errorf("failed to load sale: %w", err)
		}
		printSale(out, sale)

	case "next", "n":
		if len(args) < 2 {
			return fmt.Errorf("usage: app next <series>")
		}
		result, err := svc.PeekSequence(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Next %s number: %s\n", result.Series, result.Next)

	case "vendor-return", "vr":
		if len(args) < 3 {
			return fmt.Errorf("usage: app vendor-return <barcode> <qty>")
		}
		entry, err := svc.ReturnToVendor(ctx, app.VendorReturnRequest{
			Barcode: args[1],
			Qty:     app.FormValue(args[2]),
		})
		if err != nil {
			return fmt.Errorf("vendor return failed: %w", err)
		}
		fmt.Fprintf(out, "Returned %s x %s to vendor %s. Available now: %d\n",
			args[2], entry.Barcode, entry.VendorCode, entry.AvailableQty)

	case "export", "x":
		if len(args) < 2 {
			return fmt.Errorf("usage: app export <file.xlsx>")
		}
		return exportStock(ctx, svc, args[1], out)

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], Usage)
	}
	return nil
}

func exportStock(ctx context.Context, svc app.ApplicationService, path string, out io.Writer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := svc.ExportStock(ctx, f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("export failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	fmt.Fprintf(out, "Stock report written to %s\n", path)
	return nil
}

func printStock(out io.Writer, result *app.StockResult) {
	title := "STOCK"
	if result.OutOfStock {
		title = "OUT OF STOCK"
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 96))
	fmt.Fprintf(out, "  %s (%d entries)\n", title, len(result.Entries))
	fmt.Fprintln(out, strings.Repeat("=", 96))
	fmt.Fprintf(out, "  %-14s %-8s %-26s %6s %6s %6s %6s %6s %10s\n",
		"BARCODE", "ITEM", "PRODUCT", "TOTAL", "SOLD", "S.RET", "V.RET", "AVAIL", "SALE RATE")
	fmt.Fprintln(out, strings.Repeat("-", 96))
	for _, e := range result.Entries {
		fmt.Fprintf(out, "  %-14s %-8s %-26s %6d %6d %6d %6d %6d %10s\n",
			e.Barcode, e.ItemCode, truncate(e.ProductName, 26), e.TotalQty, e.SaleQty,
			e.SaleReturnQty, e.StockReturnQty, e.AvailableQty, e.SaleRate.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("=", 96))
}

func printSale(out io.Writer, sale *core.Sale) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintf(out, "  SALE %s  %s\n", sale.SaleNumber, sale.SaleDate.Format(app.DateLayout))
	fmt.Fprintf(out, "  Customer : %s\n", sale.CustomerName)
	if sale.CustomerContact != nil {
		fmt.Fprintf(out, "  Contact  : %s\n", *sale.CustomerContact)
	}
	fmt.Fprintln(out, strings.Repeat("-", 72))
	fmt.Fprintf(out, "  %-14s %-26s %5s %10s %10s\n", "BARCODE", "PRODUCT", "QTY", "RATE", "AMOUNT")
	for _, l := range sale.Lines {
		fmt.Fprintf(out, "  %-14s %-26s %5d %10s %10s\n",
			l.Barcode, truncate(l.ProductName, 26), l.Qty, l.SaleRate.StringFixed(2), l.Amount.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("-", 72))
	fmt.Fprintf(out, "  %-41s %5d %21s\n", "TOTAL", sale.TotalQuantity, sale.TotalAmount.StringFixed(2))
	fmt.Fprintf(out, "  Cash received %s, change %s\n", sale.CashReceived.StringFixed(2), sale.CashReturn.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("=", 72))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
