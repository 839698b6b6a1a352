package catalog

import (
	"testing"

	"papeterie/internal"
	"papeterie/internal/util"
)

func sp(v string) *string { return &v }

func TestBuildIndex(t *testing.T) {
	products := []internal.ProductRecord{
		{ID: 1, Name: "Cahier 96 pages grands carreaux", EAN: sp("3210330126548"), SKU: sp("CLF-961")},
		{ID: 2, Name: "Cahier 48 pages petits carreaux", EAN: sp("3210330126555")},
	}

	idx := BuildIndex(products)

	if got := idx.ByCode[util.NormalizeCode("3210330126548")]; len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("ean lookup: %+v", got)
	}
	if got := idx.ByCode[util.NormalizeCode("clf-961")]; len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("sku lookup: %+v", got)
	}
	if got := idx.ByName[util.NormalizeLabel("Cahier 96 pages grands carreaux")]; len(got) != 1 {
		t.Fatalf("name lookup: %+v", got)
	}
	ids := idx.TokenToProductIDs["CAHIER"]
	if len(ids) != 2 {
		t.Fatalf("token posting list: %v", ids)
	}
}
