package pricing

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"

	"papeterie/internal"
)

// ErrNoExploitableData marks a file that parsed under its detected format
// but yielded zero usable rows.
var ErrNoExploitableData = errors.New("aucune donnée exploitable")

// ParseFile turns raw supplier file content into a ParsedFile. XLSX is
// selected by extension; everything else goes through content sniffing.
func ParseFile(content []byte, filename string) (internal.ParsedFile, error) {
	if hasSuffix(filename, ".xlsx") || hasSuffix(filename, ".xls") {
		return parseXLSX(content)
	}

	format := DetectFormat(content, filename)
	var (
		parsed internal.ParsedFile
		err    error
	)
	switch format {
	case internal.FormatJSON:
		parsed, err = parseJSON(content)
	case internal.FormatXML:
		parsed, err = parseXML(content)
	default:
		parsed, err = parseCSV(content)
	}
	if err != nil {
		return internal.ParsedFile{}, err
	}
	if len(parsed.Rows) == 0 {
		return internal.ParsedFile{}, fmt.Errorf("%w (format %s)", ErrNoExploitableData, format)
	}
	return parsed, nil
}

func parseCSV(content []byte) (internal.ParsedFile, error) {
	text := strings.TrimLeft(string(content), "\ufeff")
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var headers []string
	rows := make([]map[string]string, 0)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Malformed line in an otherwise usable file: skip it.
			continue
		}
		if headers == nil {
			headers = trimCells(record)
			continue
		}
		if emptyRecord(record) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}

	return internal.ParsedFile{Format: internal.FormatCSV, Headers: headers, Rows: rows}, nil
}

// sniffDelimiter picks the separator with the most hits on the header line.
// French exports overwhelmingly use ';'.
func sniffDelimiter(text string) rune {
	line := text
	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		line = text[:idx]
	}

	best := ','
	bestCount := strings.Count(line, ",")
	if n := strings.Count(line, ";"); n > bestCount {
		best, bestCount = ';', n
	}
	if n := strings.Count(line, "\t"); n > bestCount {
		best = '\t'
	}
	return best
}

func parseXML(content []byte) (internal.ParsedFile, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	decoder.Strict = false

	headers := make([]string, 0)
	seenHeader := map[string]struct{}{}
	rows := make([]map[string]string, 0)

	depth := 0
	var current map[string]string
	var field string
	var value strings.Builder

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 2:
				current = map[string]string{}
			case 3:
				field = t.Name.Local
				value.Reset()
			}
		case xml.CharData:
			if depth == 3 && field != "" {
				value.Write(t)
			}
		case xml.EndElement:
			switch depth {
			case 3:
				if current != nil && field != "" {
					current[field] = strings.TrimSpace(value.String())
					if _, ok := seenHeader[field]; !ok {
						seenHeader[field] = struct{}{}
						headers = append(headers, field)
					}
				}
				field = ""
			case 2:
				if len(current) > 0 {
					rows = append(rows, current)
				}
				current = nil
			}
			depth--
		}
	}

	return internal.ParsedFile{Format: internal.FormatXML, Headers: headers, Rows: rows}, nil
}

func parseJSON(content []byte) (internal.ParsedFile, error) {
	var root any
	if err := json.Unmarshal(content, &root); err != nil {
		return internal.ParsedFile{Format: internal.FormatJSON}, nil
	}

	records, ok := root.([]any)
	if !ok {
		// Object wrapper with a single array field, e.g. {"rows": [...]}.
		if obj, isObj := root.(map[string]any); isObj {
			for _, v := range obj {
				if arr, isArr := v.([]any); isArr {
					records = arr
					break
				}
			}
		}
	}

	headers := jsonHeaders(content)
	seenHeader := map[string]struct{}{}
	for _, h := range headers {
		seenHeader[h] = struct{}{}
	}

	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		obj, isObj := rec.(map[string]any)
		if !isObj {
			continue
		}
		row := make(map[string]string, len(obj))
		for k, v := range obj {
			row[k] = jsonScalar(v)
			if _, ok := seenHeader[k]; !ok {
				seenHeader[k] = struct{}{}
				headers = append(headers, k)
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	return internal.ParsedFile{Format: internal.FormatJSON, Headers: headers, Rows: rows}, nil
}

// jsonHeaders walks the tokens of the first record object so headers keep
// the source display order, which encoding/json maps would lose. Records
// live inside an array, so wrapper-object keys are never headers.
func jsonHeaders(content []byte) []string {
	decoder := json.NewDecoder(bytes.NewReader(content))
	headers := make([]string, 0)
	depth := 0
	objDepth := -1
	sawArray := false

	for {
		tok, err := decoder.Token()
		if err != nil {
			return headers
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				depth++
				if objDepth < 0 && sawArray {
					objDepth = depth
				}
			case '}':
				if depth == objDepth {
					return headers
				}
				depth--
			case '[':
				sawArray = true
			case ']':
			}
		case string:
			if depth == objDepth && objDepth > 0 {
				// Alternating key/value at object depth: keys come first;
				// skip the value token.
				headers = append(headers, t)
				if err := skipValue(decoder); err != nil {
					return headers
				}
			}
		}
	}
}

func skipValue(decoder *json.Decoder) error {
	tok, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); ok && (delim == '{' || delim == '[') {
		depth := 1
		for depth > 0 {
			tok, err := decoder.Token()
			if err != nil {
				return err
			}
			if d, ok := tok.(json.Delim); ok {
				switch d {
				case '{', '[':
					depth++
				case '}', ']':
					depth--
				}
			}
		}
	}
	return nil
}

func jsonScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		blob, _ := json.Marshal(t)
		return string(blob)
	}
}

func parseXLSX(content []byte) (internal.ParsedFile, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return internal.ParsedFile{}, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return internal.ParsedFile{}, ErrNoExploitableData
	}
	records, err := f.GetRows(sheets[0])
	if err != nil || len(records) == 0 {
		return internal.ParsedFile{}, ErrNoExploitableData
	}

	headers := trimCells(records[0])
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if emptyRecord(record) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return internal.ParsedFile{}, ErrNoExploitableData
	}

	return internal.ParsedFile{Format: internal.FormatXLSX, Headers: headers, Rows: rows}, nil
}

// ParseHTMLTable reads the first data table of an HTML document (pricing
// grids pasted into supplier mail bodies).
func ParseHTMLTable(html string) (internal.ParsedFile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return internal.ParsedFile{}, err
	}

	var parsed internal.ParsedFile
	parsed.Format = internal.FormatCSV

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		trs := table.Find("tr")
		if trs.Length() < 2 {
			return true
		}

		headers := []string{}
		trs.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(cell.Text()))
		})

		rows := make([]map[string]string, 0, trs.Length()-1)
		trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
			cells := []string{}
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if emptyRecord(cells) {
				return
			}
			row := make(map[string]string, len(headers))
			for i, h := range headers {
				if h == "" {
					continue
				}
				if i < len(cells) {
					row[h] = cells[i]
				}
			}
			rows = append(rows, row)
		})

		if len(rows) > 0 {
			parsed.Headers = headers
			parsed.Rows = rows
			return false
		}
		return true
	})

	if len(parsed.Rows) == 0 {
		return internal.ParsedFile{}, ErrNoExploitableData
	}
	return parsed, nil
}

func trimCells(record []string) []string {
	out := make([]string, len(record))
	for i, c := range record {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func emptyRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
