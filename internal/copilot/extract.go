package copilot

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"papeterie/internal"
	"papeterie/internal/util"
)

// ErrEmptyList marks a file that parsed but yielded no supply line at all.
var ErrEmptyList = errors.New("aucune fourniture détectée")

// OCRInvoker is the slice of the backend client the extractor needs for
// image uploads; photographed lists go through the remote OCR callable.
type OCRInvoker interface {
	Invoke(ctx context.Context, fn string, payload any) ([]byte, error)
}

var (
	noisePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^--+$`),
		regexp.MustCompile(`^==+$`),
		regexp.MustCompile(`(?i)^liste (de|des) fournitures`),
		regexp.MustCompile(`(?i)^fournitures scolaires`),
		regexp.MustCompile(`(?i)^(classe|niveau|année|rentrée)\b`),
		regexp.MustCompile(`(?i)^(école|college|collège|lycée)\b`),
		regexp.MustCompile(`(?i)^merci\b`),
		regexp.MustCompile(`(?i)^cordialement`),
		regexp.MustCompile(`(?i)^page \d+`),
		regexp.MustCompile(`(?i)^http`),
	}
	optionalPattern = regexp.MustCompile(`(?i)\b(facultatif|facultative|optionnel|optionnelle|si possible)\b`)
	bulletPrefix    = regexp.MustCompile(`^[\s\-–•*▪◦☐□]+`)
	leadingQty      = regexp.MustCompile(`^\d{1,3}\s*[x×]?\s+`)
	trailingQty     = regexp.MustCompile(`(?i)\(?\s*[x×]\s*\d{1,3}\s*\)?\s*$`)
	parenthetical   = regexp.MustCompile(`\(([^)]+)\)`)
	cellSeparators  = regexp.MustCompile(`[;|\t]+`)
	multiSpace      = regexp.MustCompile(`\s+`)
	anyLetter       = regexp.MustCompile(`[A-Za-zÀ-ÿ]`)
	letterPair      = regexp.MustCompile(`[A-Za-zÀ-ÿ]{2}`)
)

// Extractor turns an uploaded school list into ordered line items. Text
// bearing formats are parsed locally; image formats go to the remote OCR
// callable.
type Extractor struct {
	invoker OCRInvoker
}

func NewExtractor(invoker OCRInvoker) *Extractor {
	return &Extractor{invoker: invoker}
}

func (e *Extractor) Extract(ctx context.Context, filename string, content []byte) ([]internal.ListItem, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return extractPDF(content)
	case strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls"):
		return extractXLSX(content)
	case strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".csv"):
		return ExtractText(string(content)), nil
	case strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") ||
		strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".webp"):
		return e.extractImage(ctx, filename, content)
	default:
		return nil, fmt.Errorf("format non supporté: %s", filename)
	}
}

// ExtractText parses free text, one supply item per line.
func ExtractText(text string) []internal.ListItem {
	lines := splitLines(text)
	out := make([]internal.ListItem, 0, len(lines))
	for _, line := range lines {
		item := lineToItem(line)
		if item == nil {
			continue
		}
		item.LineNo = len(out) + 1
		out = append(out, *item)
	}
	return out
}

func extractPDF(content []byte) ([]internal.ListItem, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("lecture pdf: %w", err)
	}

	out := []internal.ListItem{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			item := lineToItem(line)
			if item == nil {
				continue
			}
			item.LineNo = len(out) + 1
			out = append(out, *item)
		}
	}
	return out, nil
}

func extractXLSX(content []byte) ([]internal.ListItem, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("lecture xlsx: %w", err)
	}
	defer f.Close()

	out := []internal.ListItem{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			item := lineToItem(strings.Join(row, " "))
			if item == nil {
				continue
			}
			item.LineNo = len(out) + 1
			out = append(out, *item)
		}
	}
	return out, nil
}

type ocrPayload struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type ocrResponse struct {
	Items []struct {
		Label       string  `json:"label"`
		Quantity    int     `json:"quantity"`
		Mandatory   *bool   `json:"mandatory"`
		Constraints *string `json:"constraints"`
	} `json:"items"`
}

func (e *Extractor) extractImage(ctx context.Context, filename string, content []byte) ([]internal.ListItem, error) {
	body, err := e.invoker.Invoke(ctx, "ocr-school-list", ocrPayload{
		Filename: filename,
		Content:  base64.StdEncoding.EncodeToString(content),
	})
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}

	var resp ocrResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode ocr response: %w", err)
	}

	out := make([]internal.ListItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		label := strings.TrimSpace(it.Label)
		if label == "" {
			continue
		}
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		mandatory := true
		if it.Mandatory != nil {
			mandatory = *it.Mandatory
		}
		out = append(out, internal.ListItem{
			LineNo:      len(out) + 1,
			Label:       label,
			Quantity:    qty,
			Mandatory:   mandatory,
			Constraints: util.TrimPtr(derefOr(it.Constraints, "")),
		})
	}
	return out, nil
}

// lineToItem parses one list line, or nil when the line is noise. The
// quantity comes off the line; a parenthetical that is not a count becomes
// the constraint text ("cahier 96p (sans spirale)").
func lineToItem(line string) *internal.ListItem {
	compact := cellSeparators.ReplaceAllString(line, " ")
	compact = strings.TrimSpace(multiSpace.ReplaceAllString(compact, " "))
	compact = bulletPrefix.ReplaceAllString(compact, "")
	if compact == "" || isNoise(compact) {
		return nil
	}
	if !anyLetter.MatchString(compact) {
		return nil
	}
	if len([]rune(compact)) < 3 {
		return nil
	}

	qty := util.ParseQuantity(compact)
	mandatory := !optionalPattern.MatchString(compact)

	var constraints *string
	for _, m := range parenthetical.FindAllStringSubmatch(compact, -1) {
		inner := strings.TrimSpace(m[1])
		if inner == "" || trailingQty.MatchString(m[0]) || !letterPair.MatchString(inner) {
			continue
		}
		constraints = util.StringPtr(inner)
		break
	}

	label := trailingQty.ReplaceAllString(compact, "")
	label = leadingQty.ReplaceAllString(label, "")
	if constraints != nil {
		label = strings.Replace(label, "("+*constraints+")", "", 1)
	}
	label = optionalPattern.ReplaceAllString(label, "")
	label = strings.TrimSpace(multiSpace.ReplaceAllString(label, " "))
	label = strings.Trim(label, " -–:,")
	if label == "" {
		label = compact
	}

	return &internal.ListItem{
		Label:       label,
		Quantity:    qty,
		Mandatory:   mandatory,
		Constraints: constraints,
	}
}

func isNoise(line string) bool {
	for _, re := range noisePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func derefOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
