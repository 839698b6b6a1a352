package catalog

import (
	"context"
	"encoding/json"
	"testing"
)

type fakeAPI struct {
	responses map[string][]string
	calls     map[string]int
}

func (f *fakeAPI) GetJSON(_ context.Context, endpoint string, _ map[string]string) ([]byte, error) {
	i := f.calls[endpoint]
	f.calls[endpoint]++
	pages := f.responses[endpoint]
	if i >= len(pages) {
		i = len(pages) - 1
	}
	return []byte(pages[i]), nil
}

func TestGetProductsScrollAll(t *testing.T) {
	api := &fakeAPI{
		calls: map[string]int{},
		responses: map[string][]string{
			"products/scroll": {
				`{"products":[{"id":1,"name":"Cahier 96 pages","ean":"3210330126548","priceTtc":2.35,"marginPercent":32,"stockQuantity":140,"eco":false}],"scrollId":"abc"}`,
				`{"products":[{"id":2,"name":"Classeur A4 recyclé","priceTtc":4.9,"eco":true}],"scrollId":null}`,
			},
		},
	}

	client := NewClient(api)
	products, err := client.GetProductsScrollAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 {
		t.Fatalf("len=%d", len(products))
	}
	if products[0].EAN == nil || *products[0].EAN != "3210330126548" {
		t.Fatalf("ean=%v", products[0].EAN)
	}
	if products[0].StockQuantity == nil || *products[0].StockQuantity != 140 {
		t.Fatalf("stock=%v", products[0].StockQuantity)
	}
	if !products[1].Eco {
		t.Fatalf("expected eco product")
	}
}

func TestGetProductsSkipsMalformedRows(t *testing.T) {
	api := &fakeAPI{
		calls: map[string]int{},
		responses: map[string][]string{
			"products/scroll": {
				`{"products":[{"id":1,"name":"Gomme blanche"},{"name":"sans id"},{"id":3,"name":"  "}],"scrollId":null}`,
			},
		},
	}

	client := NewClient(api)
	products, err := client.GetProductsScrollAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 {
		t.Fatalf("len=%d", len(products))
	}
}

func TestGetSuppliers(t *testing.T) {
	rows := []map[string]any{
		{"id": 1, "name": "Clairefontaine", "email": "prix@clairefontaine.fr", "leadTimeDays": 3},
		{"id": 2, "name": "Maped"},
	}
	blob, _ := json.Marshal(rows)
	api := &fakeAPI{calls: map[string]int{}, responses: map[string][]string{"suppliers": {string(blob)}}}

	client := NewClient(api)
	suppliers, err := client.GetSuppliers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(suppliers) != 2 {
		t.Fatalf("len=%d", len(suppliers))
	}
	if suppliers[0].LeadTimeDays != 3 {
		t.Fatalf("lead=%d", suppliers[0].LeadTimeDays)
	}
}
