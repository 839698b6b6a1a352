package copilot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"papeterie/internal"
	"papeterie/internal/config"
	"papeterie/internal/storage"
)

// Service runs the copilot pipeline end to end: upload, extraction,
// matching, carts. Stages are strictly sequential; a failure at any stage
// returns the flow to upload and surfaces once to the caller.
type Service struct {
	db        *storage.DB
	uploader  *Uploader
	extractor *Extractor
	matcher   Matcher
	cfg       config.Config
	logger    *zap.Logger
}

func NewService(db *storage.DB, uploader *Uploader, extractor *Extractor, matcher Matcher, cfg config.Config, logger *zap.Logger) *Service {
	return &Service{
		db:        db,
		uploader:  uploader,
		extractor: extractor,
		matcher:   matcher,
		cfg:       cfg,
		logger:    logger.Named("copilot"),
	}
}

// Result is one completed pipeline run.
type Result struct {
	Upload  internal.SchoolListUpload
	Matches []internal.SchoolListMatch
	Carts   []internal.TierCart
	Summary *internal.CartSummary
}

func (s *Service) Run(ctx context.Context, filename string, content []byte, schoolName, classLevel *string) (Result, error) {
	start := time.Now()
	flow := NewFlow()

	upload, err := s.uploader.Upload(ctx, filename, content, schoolName, classLevel)
	if err != nil {
		return Result{}, err
	}
	flow.Apply(EventFileAccepted)
	_ = s.db.UpdateUploadStatus(upload.ID, string(flow.State()))

	extractStart := time.Now()
	items, err := s.extractor.Extract(ctx, filename, content)
	if err != nil {
		return Result{}, s.fail(flow, upload.ID, fmt.Errorf("extraction: %w", err))
	}
	if len(items) == 0 {
		return Result{}, s.fail(flow, upload.ID, fmt.Errorf("extraction: %w", ErrEmptyList))
	}
	extractMs := float64(time.Since(extractStart).Milliseconds())

	flow.Apply(EventExtracted)
	_ = s.db.UpdateUploadStatus(upload.ID, string(flow.State()))

	matchStart := time.Now()
	matches, err := s.matcher.Match(ctx, items)
	if err != nil {
		return Result{}, s.fail(flow, upload.ID, fmt.Errorf("matching: %w", err))
	}
	matchMs := float64(time.Since(matchStart).Milliseconds())

	carts := BuildTierCarts(matches)
	summary := Summarize(carts, matches)

	if err := s.db.ReplaceListMatches(upload.ID, matches); err != nil {
		return Result{}, s.fail(flow, upload.ID, err)
	}
	if err := s.db.ReplaceCarts(upload.ID, carts); err != nil {
		return Result{}, s.fail(flow, upload.ID, err)
	}

	flow.Apply(EventMatched)
	_ = s.db.UpdateUploadStatus(upload.ID, string(flow.State()))

	counts := map[string]int{"items": len(items)}
	for _, m := range matches {
		counts[string(m.Status)]++
	}
	_ = s.db.InsertRun(uuid.NewString(), "copilot", filename,
		map[string]float64{
			"extractMs": extractMs,
			"matchMs":   matchMs,
			"totalMs":   float64(time.Since(start).Milliseconds()),
		}, counts)

	s.logger.Info("school list processed",
		zap.String("uploadId", upload.ID),
		zap.Int("items", len(items)),
		zap.Int("matched", counts[string(internal.MatchMatched)]),
		zap.Int("partial", counts[string(internal.MatchPartial)]),
		zap.Int("unmatched", counts[string(internal.MatchUnmatched)]))

	return Result{Upload: upload, Matches: matches, Carts: SortTiers(carts), Summary: summary}, nil
}

// Results reloads a finished run from the store.
func (s *Service) Results(uploadID string) (Result, error) {
	upload, err := s.db.GetUpload(uploadID)
	if err != nil {
		return Result{}, err
	}
	if upload == nil {
		return Result{}, fmt.Errorf("upload inconnu: %s", uploadID)
	}

	matches, err := s.db.ListMatches(uploadID)
	if err != nil {
		return Result{}, err
	}
	carts, err := s.db.ListCarts(uploadID)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Upload:  *upload,
		Matches: matches,
		Carts:   SortTiers(carts),
		Summary: Summarize(carts, matches),
	}, nil
}

func (s *Service) fail(flow *Flow, uploadID string, err error) error {
	flow.Apply(EventFailed)
	_ = s.db.UpdateUploadStatus(uploadID, "failed")
	s.logger.Warn("pipeline run failed", zap.String("uploadId", uploadID), zap.Error(err))
	return err
}
