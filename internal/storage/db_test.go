package storage

import (
	"path/filepath"
	"testing"

	"papeterie/internal"
	"papeterie/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestGetProduct(t *testing.T) {
	db := openTestDB(t)
	products := []internal.ProductRecord{
		{ID: 7, Name: "Classeur A4", PriceTTC: 4.90, MarginPercent: util.FloatPtr(35), RawJSON: "{}"},
	}
	if err := db.UpsertProducts(products); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetProduct(7)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got == nil || got.Name != "Classeur A4" || got.PriceTTC != 4.90 {
		t.Fatalf("got %+v", got)
	}

	missing, err := db.GetProduct(99)
	if err != nil {
		t.Fatalf("GetProduct missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil, got %+v", missing)
	}
}

func TestCountSupplierPrices(t *testing.T) {
	db := openTestDB(t)
	if err := db.UpsertSuppliers([]internal.SupplierRecord{{ID: 1, Name: "Papeco"}}); err != nil {
		t.Fatalf("upsert suppliers: %v", err)
	}
	rows := []internal.NormalizedRow{
		{SupplierReference: "REF-1", SupplierPrice: 2.10},
		{SupplierReference: "REF-2", SupplierPrice: 3.40},
	}
	if err := db.UpsertSupplierPrices(1, rows); err != nil {
		t.Fatalf("upsert prices: %v", err)
	}

	count, err := db.CountSupplierPrices(1)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count=%d", count)
	}
	count, err = db.CountSupplierPrices(2)
	if err != nil || count != 0 {
		t.Fatalf("count=%d err=%v", count, err)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	db := openTestDB(t)

	missing, err := db.GetMetadata("catalog.last_sync")
	if err != nil || missing != nil {
		t.Fatalf("missing=%v err=%v", missing, err)
	}

	if err := db.SetMetadata("catalog.last_sync", "2026-08-30T08:00:00Z"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetMetadata("catalog.last_sync", "2026-08-31T08:00:00Z"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := db.GetMetadata("catalog.last_sync")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || *got != "2026-08-31T08:00:00Z" {
		t.Fatalf("got %v", got)
	}
}
