package pricing

import (
	"testing"

	"papeterie/internal"
)

func TestSuggestMapping(t *testing.T) {
	headers := []string{"Ref fournisseur", "Prix HT", "Stock"}
	mapping := SuggestMapping(headers)

	if mapping[internal.FieldSupplierReference] != "Ref fournisseur" {
		t.Fatalf("reference: %q", mapping[internal.FieldSupplierReference])
	}
	if mapping[internal.FieldSupplierPrice] != "Prix HT" {
		t.Fatalf("price: %q", mapping[internal.FieldSupplierPrice])
	}
	if mapping[internal.FieldStockQuantity] != "Stock" {
		t.Fatalf("stock: %q", mapping[internal.FieldStockQuantity])
	}
	if !MappingValid(mapping) {
		t.Fatalf("mapping should be valid")
	}
}

func TestSuggestMappingAccents(t *testing.T) {
	mapping := SuggestMapping([]string{"Référence Fournisseur", "Désignation", "Prix unitaire HT", "Code EAN", "Délai (jours)"})

	if mapping[internal.FieldSupplierReference] != "Référence Fournisseur" {
		t.Fatalf("reference: %q", mapping[internal.FieldSupplierReference])
	}
	if mapping[internal.FieldProductName] != "Désignation" {
		t.Fatalf("name: %q", mapping[internal.FieldProductName])
	}
	if mapping[internal.FieldSupplierPrice] != "Prix unitaire HT" {
		t.Fatalf("price: %q", mapping[internal.FieldSupplierPrice])
	}
	if mapping[internal.FieldEAN] != "Code EAN" {
		t.Fatalf("ean: %q", mapping[internal.FieldEAN])
	}
	if mapping[internal.FieldLeadTimeDays] != "Délai (jours)" {
		t.Fatalf("lead: %q", mapping[internal.FieldLeadTimeDays])
	}
}

func TestSuggestMappingDeterministic(t *testing.T) {
	headers := []string{"sku", "prix", "ean", "stock", "moq"}
	first := SuggestMapping(headers)
	for i := 0; i < 10; i++ {
		again := SuggestMapping(headers)
		if len(again) != len(first) {
			t.Fatalf("len changed: %d vs %d", len(again), len(first))
		}
		for field, header := range first {
			if again[field] != header {
				t.Fatalf("field %s changed: %q vs %q", field, again[field], header)
			}
		}
	}
}

func TestSuggestMappingNoRecognizableHeaders(t *testing.T) {
	mapping := SuggestMapping([]string{"colonne A", "colonne B", "zzz"})
	if len(mapping) != 0 {
		t.Fatalf("expected empty mapping, got %v", mapping)
	}
	if MappingValid(mapping) {
		t.Fatalf("mapping should be invalid")
	}
}

// A header can only be claimed once; required fields claim first.
func TestSuggestMappingHeaderConsumedOnce(t *testing.T) {
	mapping := SuggestMapping([]string{"Référence", "Prix"})
	if mapping[internal.FieldSupplierReference] != "Référence" {
		t.Fatalf("reference: %q", mapping[internal.FieldSupplierReference])
	}
	if mapping[internal.FieldSupplierPrice] != "Prix" {
		t.Fatalf("price: %q", mapping[internal.FieldSupplierPrice])
	}
	if h, ok := mapping[internal.FieldProductName]; ok {
		t.Fatalf("product_name should stay unmapped, got %q", h)
	}
}
