package pricing

import (
	"bytes"
	"strings"

	"papeterie/internal"
)

// DetectFormat sniffs the content of a supplier pricing file. The filename
// extension only breaks ties when the content itself is ambiguous (e.g.
// empty file). Total: always returns one of csv, xml, json.
func DetectFormat(content []byte, filename string) internal.FileFormat {
	trimmed := bytes.TrimLeft(content, " \t\r\n\ufeff")

	if len(trimmed) > 0 {
		switch trimmed[0] {
		case '{', '[':
			return internal.FormatJSON
		case '<':
			return internal.FormatXML
		}
		return internal.FormatCSV
	}

	switch {
	case hasSuffix(filename, ".json"):
		return internal.FormatJSON
	case hasSuffix(filename, ".xml"):
		return internal.FormatXML
	default:
		return internal.FormatCSV
	}
}

func hasSuffix(filename, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(filename)), suffix)
}
