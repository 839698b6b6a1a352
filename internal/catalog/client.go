package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"papeterie/internal"
	"papeterie/internal/util"
)

// API is the slice of the backend client the catalog needs.
type API interface {
	GetJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error)
}

type Client struct {
	api API
}

type scrollPayload struct {
	Products []map[string]any `json:"products"`
	ScrollID *string          `json:"scrollId"`
	Total    *int             `json:"total"`
}

func NewClient(api API) *Client {
	return &Client{api: api}
}

// GetProductsScrollAll pages through the whole catalog via the backend's
// scroll cursor.
func (c *Client) GetProductsScrollAll(ctx context.Context) ([]internal.ProductRecord, error) {
	all := make([]internal.ProductRecord, 0)
	seen := map[string]struct{}{}
	var scrollID string

	for {
		params := map[string]string{}
		if scrollID != "" {
			params["scrollId"] = scrollID
		}

		body, err := c.api.GetJSON(ctx, "products/scroll", params)
		if err != nil {
			return nil, err
		}

		var payload scrollPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}

		for _, raw := range payload.Products {
			product, err := toProductRecord(raw)
			if err != nil {
				continue
			}
			all = append(all, product)
		}

		if payload.ScrollID == nil || *payload.ScrollID == "" || len(payload.Products) == 0 {
			break
		}
		if _, ok := seen[*payload.ScrollID]; ok {
			break
		}
		seen[*payload.ScrollID] = struct{}{}
		scrollID = *payload.ScrollID
	}

	return all, nil
}

func (c *Client) GetSuppliers(ctx context.Context) ([]internal.SupplierRecord, error) {
	body, err := c.api.GetJSON(ctx, "suppliers", nil)
	if err != nil {
		return nil, err
	}

	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	out := make([]internal.SupplierRecord, 0, len(raw))
	for _, r := range raw {
		s, err := toSupplierRecord(r)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// GetProductRelations reads product_relations rows for one product.
func (c *Client) GetProductRelations(ctx context.Context, productID int) (map[int]internal.RelationType, error) {
	body, err := c.api.GetJSON(ctx, "product_relations", map[string]string{"sourceId": strconv.Itoa(productID)})
	if err != nil {
		return nil, err
	}

	var raw []struct {
		TargetID int    `json:"targetId"`
		Relation string `json:"relationType"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	out := make(map[int]internal.RelationType, len(raw))
	for _, r := range raw {
		out[r.TargetID] = internal.RelationType(r.Relation)
	}
	return out, nil
}

// GetCompatibility reads the full compatibility matrix.
func (c *Client) GetCompatibility(ctx context.Context) ([]internal.CompatibilityPair, error) {
	body, err := c.api.GetJSON(ctx, "compatibility_matrix", nil)
	if err != nil {
		return nil, err
	}

	var pairs []internal.CompatibilityPair
	if err := json.Unmarshal(body, &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

func toProductRecord(raw map[string]any) (internal.ProductRecord, error) {
	name, _ := raw["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return internal.ProductRecord{}, errors.New("empty name")
	}

	id, ok := toInt(raw["id"])
	if !ok {
		return internal.ProductRecord{}, errors.New("missing id")
	}

	rawJSON, _ := json.Marshal(raw)
	product := internal.ProductRecord{
		ID:      id,
		Name:    name,
		RawJSON: string(rawJSON),
	}
	product.EAN = toStringPtr(raw["ean"])
	product.SKU = toStringPtr(raw["sku"])
	product.Category = toStringPtr(raw["category"])
	product.UpdatedAt = toStringPtr(raw["updatedAt"])
	if price := toFloatPtr(raw["priceTtc"]); price != nil {
		product.PriceTTC = *price
	}
	product.MarginPercent = toFloatPtr(raw["marginPercent"])
	if stock, ok := toInt(raw["stockQuantity"]); ok {
		product.StockQuantity = util.IntPtr(stock)
	}
	if eco, ok := raw["eco"].(bool); ok {
		product.Eco = eco
	}

	return product, nil
}

func toSupplierRecord(raw map[string]any) (internal.SupplierRecord, error) {
	id, ok := toInt(raw["id"])
	if !ok {
		return internal.SupplierRecord{}, errors.New("missing id")
	}
	name, _ := raw["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return internal.SupplierRecord{}, errors.New("empty name")
	}

	s := internal.SupplierRecord{ID: id, Name: name}
	s.Email = toStringPtr(raw["email"])
	if lead, ok := toInt(raw["leadTimeDays"]); ok {
		s.LeadTimeDays = lead
	}
	return s, nil
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		i, err := t.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func toFloatPtr(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return &f
		}
	}
	return nil
}

func toStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return util.TrimPtr(s)
}
