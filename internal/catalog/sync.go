package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"papeterie/internal/config"
	"papeterie/internal/storage"
)

type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
	logger *zap.Logger
}

func NewSyncService(db *storage.DB, api API, cfg config.Config, logger *zap.Logger) *SyncService {
	return &SyncService{db: db, client: NewClient(api), cfg: cfg, logger: logger.Named("catalog")}
}

// Sync pulls the full catalog and the supplier directory into the local
// store.
func (s *SyncService) Sync(ctx context.Context) (int, error) {
	products, err := s.client.GetProductsScrollAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertProducts(products); err != nil {
		return 0, err
	}

	suppliers, err := s.client.GetSuppliers(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertSuppliers(suppliers); err != nil {
		return 0, err
	}

	ids := make([]int, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	if err := s.SyncRelations(ctx, ids); err != nil {
		return 0, err
	}

	pairs, err := s.client.GetCompatibility(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.ReplaceCompatibility(pairs); err != nil {
		return 0, err
	}

	_ = s.db.SetMetadata("catalog.last_sync", time.Now().UTC().Format(time.RFC3339))
	s.logger.Info("catalog sync done",
		zap.Int("products", len(products)),
		zap.Int("suppliers", len(suppliers)),
		zap.Int("compatibility", len(pairs)))

	return len(products), nil
}

// SyncRelations refreshes the relation rows used by the recommendation
// ranking for the given products.
func (s *SyncService) SyncRelations(ctx context.Context, productIDs []int) error {
	for _, id := range productIDs {
		relations, err := s.client.GetProductRelations(ctx, id)
		if err != nil {
			return err
		}
		if err := s.db.ReplaceRelations(id, relations); err != nil {
			return err
		}
	}
	return nil
}
