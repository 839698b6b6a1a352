package pricing

import (
	"bytes"
	"context"
	"net/mail"
	"os"
	"strings"

	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"papeterie/internal"
	"papeterie/internal/storage"
)

// DetectResult scores whether a mail carries supplier pricing at all.
type DetectResult struct {
	IsPricing bool
	Score     float64
	Reason    string
}

var pricingKeywords = []string{"tarif", "prix", "grille", "catalogue", "price list", "pricing", "révision"}

var pricingExtensions = []string{".csv", ".txt", ".xml", ".json", ".xlsx", ".xls"}

// DetectPricingMail applies the same rule scoring to subject, body and
// attachment names. A pricing-format attachment is the strongest signal;
// keywords and HTML tables back it up for body-only mails.
func DetectPricingMail(subject, text, html string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)
	html = strings.ToLower(html)

	score := 0.0
	for _, kw := range pricingKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	for _, name := range attachmentNames {
		if hasPricingExtension(name) {
			score += 0.5
			break
		}
	}

	if strings.Contains(html, "<table") {
		score += 0.25
	}
	if score > 1 {
		score = 1
	}

	isPricing := score >= 0.45
	reason := "rules_negative"
	if isPricing {
		reason = "rules_positive"
	}
	return DetectResult{IsPricing: isPricing, Score: score, Reason: reason}
}

func hasPricingExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range pricingExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// MailService turns stored supplier mail into pricing imports: attachments
// in a pricing format run through the import pipeline, HTML body tables are
// the fallback for suppliers that paste their grid into the mail.
type MailService struct {
	db       *storage.DB
	importer *ImportService
	logger   *zap.Logger
}

func NewMailService(db *storage.DB, importer *ImportService, logger *zap.Logger) *MailService {
	return &MailService{db: db, importer: importer, logger: logger.Named("pricing-mail")}
}

type MailResult struct {
	EmailID  int
	Imported int
	Report   internal.ImportReport
}

// ProcessPending walks fetched mail and imports what it can. Returns the
// number of processed emails and the number of imported files.
func (s *MailService) ProcessPending(ctx context.Context, limit int, provider string) (int, int, error) {
	pending, err := s.db.ListEmailsByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}

	processedEmails := 0
	importedFiles := 0
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		res, err := s.ProcessEmail(ctx, email)
		if err != nil {
			return processedEmails, importedFiles, err
		}
		processedEmails++
		importedFiles += res.Imported
	}
	return processedEmails, importedFiles, nil
}

func (s *MailService) ProcessEmail(ctx context.Context, email internal.EmailRow) (MailResult, error) {
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return MailResult{}, err
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return MailResult{}, err
	}

	attachmentNames := make([]string, 0, len(env.Attachments))
	for _, att := range env.Attachments {
		attachmentNames = append(attachmentNames, att.FileName)
	}

	detect := DetectPricingMail(firstNonEmpty(env.GetHeader("Subject"), email.Subject), env.Text, env.HTML, attachmentNames)
	if !detect.IsPricing {
		_ = s.db.UpdateEmailStatus(email.ID, "skipped")
		return MailResult{EmailID: email.ID}, nil
	}

	supplier, err := s.db.FindSupplierByEmail(senderAddress(email.Sender))
	if err != nil {
		return MailResult{}, err
	}
	if supplier == nil {
		s.logger.Warn("pricing mail from unknown supplier",
			zap.String("sender", email.Sender), zap.String("subject", email.Subject))
		_ = s.db.UpdateEmailStatus(email.ID, "skipped")
		return MailResult{EmailID: email.ID}, nil
	}

	result := MailResult{EmailID: email.ID}
	for _, att := range env.Attachments {
		if !hasPricingExtension(att.FileName) {
			continue
		}
		report, err := s.importer.ImportFile(ctx, supplier.ID, att.Content, att.FileName)
		if err != nil {
			s.logger.Warn("attachment import failed",
				zap.String("filename", att.FileName), zap.Int("supplierId", supplier.ID), zap.Error(err))
			continue
		}
		result.Imported++
		result.Report = mergeReports(result.Report, report)
	}

	// No importable attachment: suppliers sometimes paste the grid in the
	// mail body as an HTML table.
	if result.Imported == 0 && env.HTML != "" {
		parsed, err := ParseHTMLTable(env.HTML)
		if err == nil {
			mapping := SuggestMapping(parsed.Headers)
			if MappingValid(mapping) {
				report, err := s.importer.Import(ctx, supplier.ID, parsed, mapping, "corps-du-mail.html")
				if err == nil {
					result.Imported++
					result.Report = mergeReports(result.Report, report)
				}
			}
		}
	}

	status := "processed"
	if result.Imported == 0 {
		status = "skipped"
	}
	if err := s.db.UpdateEmailStatus(email.ID, status); err != nil {
		return MailResult{}, err
	}
	return result, nil
}

// senderAddress extracts the bare address from a From header value.
func senderAddress(sender string) string {
	if addr, err := mail.ParseAddress(sender); err == nil {
		return strings.ToLower(addr.Address)
	}
	s := strings.TrimSpace(sender)
	if open := strings.LastIndex(s, "<"); open >= 0 {
		if end := strings.LastIndex(s, ">"); end > open {
			return strings.ToLower(strings.TrimSpace(s[open+1 : end]))
		}
	}
	return strings.ToLower(s)
}

func mergeReports(a, b internal.ImportReport) internal.ImportReport {
	return internal.ImportReport{
		Success:   a.Success + b.Success,
		Errors:    a.Errors + b.Errors,
		Unmatched: a.Unmatched + b.Unmatched,
		Total:     a.Total + b.Total,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
