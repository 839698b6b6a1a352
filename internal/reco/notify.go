package reco

import (
	"go.uber.org/zap"

	"papeterie/internal/storage"
)

// Notifier records recommendation display events. Notify never returns an
// error and never blocks on failure: a lost event costs a metric, not a
// user action.
type Notifier struct {
	db     *storage.DB
	logger *zap.Logger
}

func NewNotifier(db *storage.DB, logger *zap.Logger) *Notifier {
	return &Notifier{db: db, logger: logger.Named("reco")}
}

func (n *Notifier) Notify(productID int, context string) {
	if err := n.db.InsertRecoEvent(productID, context); err != nil {
		n.logger.Warn("reco event dropped", zap.Int("productId", productID), zap.Error(err))
	}
}
