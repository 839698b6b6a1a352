package pricing

import (
	"strings"

	"papeterie/internal"
	"papeterie/internal/util"
)

// fieldPriority fixes the resolution order: required fields claim their
// header before optional ones can, so "Prix de référence" style collisions
// resolve toward the fields that gate the import.
var fieldPriority = []internal.LogicalField{
	internal.FieldSupplierReference,
	internal.FieldSupplierPrice,
	internal.FieldEAN,
	internal.FieldProductName,
	internal.FieldStockQuantity,
	internal.FieldLeadTimeDays,
	internal.FieldMinOrderQuantity,
}

var fieldSynonyms = map[internal.LogicalField][]string{
	internal.FieldSupplierReference: {"reference fournisseur", "ref fournisseur", "reference", "ref", "sku", "code article", "article"},
	internal.FieldSupplierPrice:     {"prix ht", "prix", "price", "tarif", "ht", "cout"},
	internal.FieldEAN:               {"ean", "gtin", "code barre", "code-barre", "barcode"},
	internal.FieldProductName:       {"designation", "libelle", "nom", "produit", "product", "name", "description"},
	internal.FieldStockQuantity:     {"stock", "qte disponible", "disponible", "quantite"},
	internal.FieldLeadTimeDays:      {"delai", "lead time", "livraison"},
	internal.FieldMinOrderQuantity:  {"quantite minimum", "qte mini", "mini", "moq", "minimum"},
}

// SuggestMapping proposes a ColumnMapping from the file's headers by
// accent-folded substring matching. Always a suggestion: the operator can
// override any entry before the import runs.
func SuggestMapping(headers []string) internal.ColumnMapping {
	mapping := internal.ColumnMapping{}
	taken := map[string]struct{}{}

	for _, field := range fieldPriority {
		for _, header := range headers {
			if strings.TrimSpace(header) == "" {
				continue
			}
			if _, used := taken[header]; used {
				continue
			}
			if headerMatches(header, fieldSynonyms[field]) {
				mapping[field] = header
				taken[header] = struct{}{}
				break
			}
		}
	}

	return mapping
}

func headerMatches(header string, synonyms []string) bool {
	folded := strings.ToLower(util.FoldAccents(strings.TrimSpace(header)))
	for _, syn := range synonyms {
		if strings.Contains(folded, syn) {
			return true
		}
	}
	return false
}

// MappingValid reports whether both required columns resolve to a header.
// Validity gates the import action only; it never blocks re-mapping.
func MappingValid(mapping internal.ColumnMapping) bool {
	return strings.TrimSpace(mapping[internal.FieldSupplierReference]) != "" &&
		strings.TrimSpace(mapping[internal.FieldSupplierPrice]) != ""
}
