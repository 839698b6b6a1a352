package pricing

import (
	"math"
	"strings"

	"papeterie/internal"
	"papeterie/internal/util"
)

// NormalizeOptions carries the context-specific defaults for optional
// integer columns.
type NormalizeOptions struct {
	DefaultLeadTimeDays int
}

// NormalizeRows re-keys parsed rows by logical field under a validated
// mapping. Rows whose price is unparseable, non-finite or ≤ 0 are dropped
// and counted; optional fields degrade to defaults instead of dropping the
// row. Output order follows input order.
func NormalizeRows(rows []map[string]string, mapping internal.ColumnMapping, opts NormalizeOptions) ([]internal.NormalizedRow, int) {
	out := make([]internal.NormalizedRow, 0, len(rows))
	excluded := 0

	refHeader := mapping[internal.FieldSupplierReference]
	priceHeader := mapping[internal.FieldSupplierPrice]

	for _, row := range rows {
		reference := strings.TrimSpace(row[refHeader])
		price := util.ParsePrice(row[priceHeader])
		if reference == "" || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			excluded++
			continue
		}

		normalized := internal.NormalizedRow{
			SupplierReference: reference,
			SupplierPrice:     price,
		}

		if h := mapping[internal.FieldProductName]; h != "" {
			normalized.ProductName = util.TrimPtr(row[h])
		}
		if h := mapping[internal.FieldEAN]; h != "" {
			normalized.EAN = util.TrimPtr(row[h])
		}
		if h := mapping[internal.FieldStockQuantity]; h != "" {
			normalized.StockQuantity = util.ParseInt(row[h], 0)
		}
		if h := mapping[internal.FieldLeadTimeDays]; h != "" {
			normalized.LeadTimeDays = util.ParseInt(row[h], opts.DefaultLeadTimeDays)
		} else {
			normalized.LeadTimeDays = opts.DefaultLeadTimeDays
		}
		if h := mapping[internal.FieldMinOrderQuantity]; h != "" {
			normalized.MinOrderQuantity = util.ParseInt(row[h], 0)
		}

		out = append(out, normalized)
	}

	return out, excluded
}
