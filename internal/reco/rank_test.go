package reco

import (
	"path/filepath"
	"testing"

	"papeterie/internal"
	"papeterie/internal/config"
	"papeterie/internal/storage"
	"papeterie/internal/util"
)

func testDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	products := []internal.ProductRecord{
		{ID: 1, Name: "Cahier 96p", PriceTTC: 2.90, MarginPercent: util.FloatPtr(40), StockQuantity: util.IntPtr(10)},
		{ID: 2, Name: "Protège-cahier", PriceTTC: 1.20, MarginPercent: util.FloatPtr(60), StockQuantity: util.IntPtr(5)},
		{ID: 3, Name: "Étiquettes", PriceTTC: 0.90, MarginPercent: util.FloatPtr(80), StockQuantity: util.IntPtr(0)},
		{ID: 4, Name: "Stylo plume", PriceTTC: 8.50, MarginPercent: nil, StockQuantity: util.IntPtr(3)},
	}
	if err := db.UpsertProducts(products); err != nil {
		t.Fatalf("upsert products: %v", err)
	}
	return db
}

func testRankerConfig() config.Config {
	return config.Config{DefaultMarginRatio: 0.20, OutOfStockPenalty: 0.20}
}

func TestCrossSellDedupeAndOrder(t *testing.T) {
	db := testDB(t)

	err := db.ReplaceRelations(1, map[int]internal.RelationType{
		2: internal.RelationComplement,
		3: internal.RelationAlternativeDurable,
	})
	if err != nil {
		t.Fatalf("replace relations: %v", err)
	}
	// Product 2 also appears through the compatibility matrix: one entry.
	err = db.ReplaceCompatibility([]internal.CompatibilityPair{
		{ProductA: 2, ProductB: 1},
		{ProductA: 1, ProductB: 4},
	})
	if err != nil {
		t.Fatalf("replace compatibility: %v", err)
	}

	ranker := NewRanker(db, testRankerConfig())
	out, err := ranker.CrossSell(1, 10)
	if err != nil {
		t.Fatalf("CrossSell: %v", err)
	}

	if len(out) != 3 {
		t.Fatalf("candidates: %d, %+v", len(out), out)
	}
	seen := map[int]int{}
	for _, c := range out {
		seen[c.ProductID]++
	}
	if seen[2] != 1 {
		t.Fatalf("product 2 should appear exactly once, got %d", seen[2])
	}
	for i := 1; i < len(out); i++ {
		if out[i].Score > out[i-1].Score {
			t.Fatalf("not sorted by score: %+v", out)
		}
	}
	// 60% margin in stock beats 80% margin out of stock.
	if out[0].ProductID != 2 {
		t.Fatalf("best candidate: %+v", out[0])
	}
}

func TestCrossSellCap(t *testing.T) {
	db := testDB(t)

	err := db.ReplaceRelations(1, map[int]internal.RelationType{
		2: internal.RelationComplement,
		3: internal.RelationComplement,
		4: internal.RelationComplement,
	})
	if err != nil {
		t.Fatalf("replace relations: %v", err)
	}

	ranker := NewRanker(db, testRankerConfig())
	out, err := ranker.CrossSell(1, 2)
	if err != nil {
		t.Fatalf("CrossSell: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("cap ignored: %d", len(out))
	}
}

func TestCartComplements(t *testing.T) {
	db := testDB(t)

	err := db.ReplaceRelations(1, map[int]internal.RelationType{
		2: internal.RelationComplement,
		3: internal.RelationAlternativeDurable,
		4: internal.RelationComplement,
	})
	if err != nil {
		t.Fatalf("replace relations: %v", err)
	}

	ranker := NewRanker(db, testRankerConfig())
	// Product 4 is already in the cart: excluded even as a complement.
	out, err := ranker.CartComplements([]int{1, 4}, 10)
	if err != nil {
		t.Fatalf("CartComplements: %v", err)
	}

	if len(out) != 1 || out[0].ProductID != 2 {
		t.Fatalf("complements: %+v", out)
	}
	if out[0].Relation != internal.RelationComplement {
		t.Fatalf("relation: %s", out[0].Relation)
	}
}
