package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"papeterie/internal"
	"papeterie/internal/catalog"
	"papeterie/internal/config"
	"papeterie/internal/storage"
)

// Invoker is the slice of the backend client the importer needs for the
// import-supplier-pricing callable.
type Invoker interface {
	Invoke(ctx context.Context, fn string, payload any) ([]byte, error)
}

type ImportService struct {
	db      *storage.DB
	invoker Invoker
	client  *catalog.Client
	cfg     config.Config
	logger  *zap.Logger
}

func NewImportService(db *storage.DB, invoker Invoker, api catalog.API, cfg config.Config, logger *zap.Logger) *ImportService {
	return &ImportService{
		db:      db,
		invoker: invoker,
		client:  catalog.NewClient(api),
		cfg:     cfg,
		logger:  logger.Named("pricing"),
	}
}

// InitialData is what the import screen needs before anything else: the
// supplier directory and the current catalog.
type InitialData struct {
	Suppliers []internal.SupplierRecord
	Products  []internal.ProductRecord
}

// LoadInitial fetches suppliers and the catalog concurrently and waits for
// both. There is no partial-failure recovery: either error fails the load.
// The fetched rows are mirrored into the local store so mapping previews
// and the mail listener work without further round trips.
func (s *ImportService) LoadInitial(ctx context.Context) (InitialData, error) {
	type suppliersResult struct {
		rows []internal.SupplierRecord
		err  error
	}
	type productsResult struct {
		rows []internal.ProductRecord
		err  error
	}

	suppliersCh := make(chan suppliersResult, 1)
	productsCh := make(chan productsResult, 1)

	go func() {
		rows, err := s.client.GetSuppliers(ctx)
		suppliersCh <- suppliersResult{rows: rows, err: err}
	}()
	go func() {
		rows, err := s.client.GetProductsScrollAll(ctx)
		productsCh <- productsResult{rows: rows, err: err}
	}()

	suppliers := <-suppliersCh
	products := <-productsCh
	if suppliers.err != nil {
		return InitialData{}, fmt.Errorf("load suppliers: %w", suppliers.err)
	}
	if products.err != nil {
		return InitialData{}, fmt.Errorf("load catalog: %w", products.err)
	}

	if err := s.db.UpsertSuppliers(suppliers.rows); err != nil {
		return InitialData{}, err
	}
	if err := s.db.UpsertProducts(products.rows); err != nil {
		return InitialData{}, err
	}

	s.logger.Info("initial load done",
		zap.Int("suppliers", len(suppliers.rows)),
		zap.Int("products", len(products.rows)))

	return InitialData{Suppliers: suppliers.rows, Products: products.rows}, nil
}

type importPayload struct {
	SupplierID int              `json:"supplierId"`
	Format     string           `json:"format"`
	Data       []map[string]any `json:"data"`
	Filename   string           `json:"filename"`
}

// Import normalizes the parsed rows under the confirmed mapping and hands
// them to the import-supplier-pricing callable. Rows dropped by
// normalization are folded into the report's error count.
func (s *ImportService) Import(ctx context.Context, supplierID int, parsed internal.ParsedFile, mapping internal.ColumnMapping, filename string) (internal.ImportReport, error) {
	start := time.Now()

	if !MappingValid(mapping) {
		return internal.ImportReport{}, fmt.Errorf("mapping incomplet: référence fournisseur et prix sont requis")
	}

	opts := NormalizeOptions{}
	if supplier, err := s.supplierByID(supplierID); err == nil && supplier != nil {
		opts.DefaultLeadTimeDays = supplier.LeadTimeDays
	}

	normalized, excluded := NormalizeRows(parsed.Rows, mapping, opts)
	if len(normalized) == 0 {
		return internal.ImportReport{}, ErrNoExploitableData
	}

	payload := importPayload{
		SupplierID: supplierID,
		Format:     string(parsed.Format),
		Data:       rowsToPayload(normalized),
		Filename:   filename,
	}

	body, err := s.invoker.Invoke(ctx, "import-supplier-pricing", payload)
	if err != nil {
		return internal.ImportReport{}, err
	}

	var report internal.ImportReport
	if err := json.Unmarshal(body, &report); err != nil {
		return internal.ImportReport{}, fmt.Errorf("decode import report: %w", err)
	}
	report.Errors += excluded
	report.Total += excluded

	// Mirror the accepted rows locally so the listener and CLI can answer
	// without a round trip.
	if err := s.db.UpsertSupplierPrices(supplierID, normalized); err != nil {
		return internal.ImportReport{}, err
	}

	_ = s.db.InsertRun(uuid.NewString(), "pricing-import", filename,
		map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
		map[string]int{"success": report.Success, "errors": report.Errors, "unmatched": report.Unmatched, "total": report.Total})

	s.logger.Info("pricing import done",
		zap.Int("supplierId", supplierID),
		zap.String("format", string(parsed.Format)),
		zap.Int("success", report.Success),
		zap.Int("errors", report.Errors),
		zap.Int("unmatched", report.Unmatched))

	return report, nil
}

// ImportFile runs the full pipeline on raw file content with an
// auto-suggested mapping.
func (s *ImportService) ImportFile(ctx context.Context, supplierID int, content []byte, filename string) (internal.ImportReport, error) {
	parsed, err := ParseFile(content, filename)
	if err != nil {
		return internal.ImportReport{}, err
	}

	mapping := SuggestMapping(parsed.Headers)
	if !MappingValid(mapping) {
		return internal.ImportReport{}, fmt.Errorf("colonnes requises introuvables dans %s", filename)
	}

	return s.Import(ctx, supplierID, parsed, mapping, filename)
}

func (s *ImportService) supplierByID(id int) (*internal.SupplierRecord, error) {
	suppliers, err := s.db.ListSuppliers()
	if err != nil {
		return nil, err
	}
	for i := range suppliers {
		if suppliers[i].ID == id {
			return &suppliers[i], nil
		}
	}
	return nil, nil
}

func rowsToPayload(rows []internal.NormalizedRow) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		m := map[string]any{
			"supplier_reference": r.SupplierReference,
			"supplier_price":     r.SupplierPrice,
			"stock_quantity":     r.StockQuantity,
			"lead_time_days":     r.LeadTimeDays,
			"min_order_quantity": r.MinOrderQuantity,
		}
		if r.ProductName != nil {
			m["product_name"] = *r.ProductName
		}
		if r.EAN != nil {
			m["ean"] = *r.EAN
		}
		out = append(out, m)
	}
	return out
}
