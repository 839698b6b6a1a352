package copilot

import "testing"

func TestExtractText(t *testing.T) {
	text := `Liste de fournitures scolaires
Classe de CE2

- 4 cahiers 96 pages (sans spirale)
- Stylos bleus x2
Trousse
Compas (facultatif)
--
Merci de marquer le matériel au nom de l'enfant
`

	items := ExtractText(text)
	if len(items) != 4 {
		t.Fatalf("items: %d, %+v", len(items), items)
	}

	if items[0].Label != "cahiers 96 pages" || items[0].Quantity != 4 {
		t.Fatalf("item 0: %+v", items[0])
	}
	if items[0].Constraints == nil || *items[0].Constraints != "sans spirale" {
		t.Fatalf("item 0 constraints: %v", items[0].Constraints)
	}
	if items[1].Label != "Stylos bleus" || items[1].Quantity != 2 {
		t.Fatalf("item 1: %+v", items[1])
	}
	if items[2].Label != "Trousse" || items[2].Quantity != 1 {
		t.Fatalf("item 2: %+v", items[2])
	}
	if items[3].Mandatory {
		t.Fatalf("item 3 should be optional: %+v", items[3])
	}

	for i, item := range items {
		if item.LineNo != i+1 {
			t.Fatalf("item %d lineNo: %d", i, item.LineNo)
		}
	}
}

func TestExtractTextEmpty(t *testing.T) {
	if items := ExtractText("Liste de fournitures\n\nMerci\n"); len(items) != 0 {
		t.Fatalf("expected no items, got %+v", items)
	}
}
