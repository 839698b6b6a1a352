package pricing

import (
	"testing"

	"papeterie/internal"
)

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		filename string
		want     internal.FileFormat
	}{
		{name: "json object", content: `{"rows":[]}`, filename: "tarifs.txt", want: internal.FormatJSON},
		{name: "json array", content: `[{"ref":"A"}]`, filename: "tarifs.csv", want: internal.FormatJSON},
		{name: "json leading space", content: "\n  [1]", filename: "x", want: internal.FormatJSON},
		{name: "xml", content: `<?xml version="1.0"?><rows/>`, filename: "tarifs.csv", want: internal.FormatXML},
		{name: "csv", content: "ref;prix\nA;1,50", filename: "tarifs.xml", want: internal.FormatCSV},
		{name: "empty falls back to extension json", content: "", filename: "tarifs.json", want: internal.FormatJSON},
		{name: "empty falls back to extension xml", content: "", filename: "tarifs.XML", want: internal.FormatXML},
		{name: "empty no extension", content: "", filename: "tarifs", want: internal.FormatCSV},
		{name: "bom then json", content: "\ufeff{", filename: "x", want: internal.FormatJSON},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectFormat([]byte(tc.content), tc.filename); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

// Detection is deterministic and total: feeding the result back in changes
// nothing.
func TestDetectFormatIdempotent(t *testing.T) {
	inputs := []string{"", "garbage \x00\x01", "{", "<", "a;b;c"}
	for _, input := range inputs {
		first := DetectFormat([]byte(input), "f.bin")
		second := DetectFormat([]byte(input), "f.bin")
		if first != second {
			t.Fatalf("non-deterministic for %q", input)
		}
		switch first {
		case internal.FormatCSV, internal.FormatXML, internal.FormatJSON:
		default:
			t.Fatalf("unexpected format %s", first)
		}
	}
}
