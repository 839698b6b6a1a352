package listener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"papeterie/internal/backend"
	"papeterie/internal/config"
	"papeterie/internal/connectors"
	gmailconnector "papeterie/internal/connectors/gmail"
	imapconnector "papeterie/internal/connectors/imap"
	"papeterie/internal/pricing"
	"papeterie/internal/storage"
)

// Service polls a mailbox for supplier pricing mail and feeds the import
// pipeline. One cycle = fetch, store, process pending.
type Service struct {
	db     *storage.DB
	cfg    config.Config
	logger *zap.Logger
}

func NewService(db *storage.DB, cfg config.Config, logger *zap.Logger) *Service {
	return &Service{db: db, cfg: cfg, logger: logger.Named("listener")}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			s.logger.Warn("listener cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	client := backend.NewClient(s.cfg)
	importer := pricing.NewImportService(s.db, client, client, s.cfg, s.logger)
	mailService := pricing.NewMailService(s.db, importer, s.logger)

	processedEmails, importedFiles, err := mailService.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	s.logger.Info("listener cycle done",
		zap.String("provider", provider),
		zap.Int("fetched", fetchResult.Fetched),
		zap.Int("stored", fetchResult.Stored),
		zap.Int("processed", processedEmails),
		zap.Int("imported", importedFiles))
	return nil
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
