package pricing

import (
	"testing"

	"papeterie/internal"
)

func baseMapping() internal.ColumnMapping {
	return internal.ColumnMapping{
		internal.FieldSupplierReference: "ref",
		internal.FieldSupplierPrice:     "prix",
		internal.FieldStockQuantity:     "stock",
	}
}

func TestNormalizeRowsFrenchDecimals(t *testing.T) {
	rows := []map[string]string{
		{"ref": "SKU1", "prix": "12,50", "stock": "5"},
		{"ref": "SKU2", "prix": "8.75", "stock": ""},
	}

	out, excluded := NormalizeRows(rows, baseMapping(), NormalizeOptions{})
	if excluded != 0 {
		t.Fatalf("excluded: %d", excluded)
	}
	if len(out) != 2 {
		t.Fatalf("rows: %d", len(out))
	}
	if out[0].SupplierPrice != 12.50 {
		t.Fatalf("row 0 price: %v", out[0].SupplierPrice)
	}
	if out[1].SupplierPrice != 8.75 {
		t.Fatalf("row 1 price: %v", out[1].SupplierPrice)
	}
	if out[1].StockQuantity != 0 {
		t.Fatalf("row 1 stock default: %d", out[1].StockQuantity)
	}
}

func TestNormalizeRowsExcludesBadPrices(t *testing.T) {
	rows := []map[string]string{
		{"ref": "SKU1", "prix": "abc"},
		{"ref": "SKU2", "prix": "0"},
		{"ref": "SKU3", "prix": "-4,50"},
		{"ref": "", "prix": "10,00"},
		{"ref": "SKU5", "prix": "10,00"},
	}

	out, excluded := NormalizeRows(rows, baseMapping(), NormalizeOptions{})
	if excluded != 4 {
		t.Fatalf("excluded: %d", excluded)
	}
	if len(out) != 1 || out[0].SupplierReference != "SKU5" {
		t.Fatalf("out: %v", out)
	}
}

func TestNormalizeRowsPreservesOrder(t *testing.T) {
	rows := []map[string]string{
		{"ref": "C", "prix": "3"},
		{"ref": "A", "prix": "1"},
		{"ref": "B", "prix": "bad"},
		{"ref": "D", "prix": "4"},
	}

	out, _ := NormalizeRows(rows, baseMapping(), NormalizeOptions{})
	want := []string{"C", "A", "D"}
	if len(out) != len(want) {
		t.Fatalf("rows: %d", len(out))
	}
	for i, ref := range want {
		if out[i].SupplierReference != ref {
			t.Fatalf("row %d: %q, want %q", i, out[i].SupplierReference, ref)
		}
	}
}

func TestNormalizeRowsLeadTimeDefault(t *testing.T) {
	mapping := baseMapping()
	mapping[internal.FieldLeadTimeDays] = "delai"

	rows := []map[string]string{
		{"ref": "A", "prix": "5", "delai": "10"},
		{"ref": "B", "prix": "5", "delai": ""},
	}
	out, _ := NormalizeRows(rows, mapping, NormalizeOptions{DefaultLeadTimeDays: 2})
	if out[0].LeadTimeDays != 10 {
		t.Fatalf("mapped lead time: %d", out[0].LeadTimeDays)
	}
	if out[1].LeadTimeDays != 2 {
		t.Fatalf("default lead time: %d", out[1].LeadTimeDays)
	}

	// No lead time column at all still falls back to the supplier default.
	out, _ = NormalizeRows(rows, baseMapping(), NormalizeOptions{DefaultLeadTimeDays: 7})
	if out[0].LeadTimeDays != 7 {
		t.Fatalf("column-less lead time: %d", out[0].LeadTimeDays)
	}
}

func TestNormalizeRowsOptionalStrings(t *testing.T) {
	mapping := baseMapping()
	mapping[internal.FieldProductName] = "nom"
	mapping[internal.FieldEAN] = "ean"

	rows := []map[string]string{
		{"ref": "A", "prix": "5", "nom": "  Cahier 96p  ", "ean": "3210987654321"},
		{"ref": "B", "prix": "5", "nom": "", "ean": ""},
	}
	out, _ := NormalizeRows(rows, mapping, NormalizeOptions{})
	if out[0].ProductName == nil || *out[0].ProductName != "Cahier 96p" {
		t.Fatalf("name: %v", out[0].ProductName)
	}
	if out[0].EAN == nil || *out[0].EAN != "3210987654321" {
		t.Fatalf("ean: %v", out[0].EAN)
	}
	if out[1].ProductName != nil || out[1].EAN != nil {
		t.Fatalf("empty optionals should stay nil")
	}
}
