package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	leadQty     = regexp.MustCompile(`^\s*(?:x\s*)?(\d{1,3})\s*(?:x\b|pi[eè]ces?\b|pcs?\b|unit[eé]s?\b)?`)
	trailQty    = regexp.MustCompile(`(?i)[x×]\s*(\d{1,3})\s*\)?\s*$`)
	dotGroups   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	commaGroups = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// ParseQuantity pulls a quantity out of a school-list line, e.g.
// "4 cahiers 96 pages" → 4, "Stylos bleus x2" → 2. Defaults to 1 when the
// line names no count.
func ParseQuantity(line string) int {
	s := strings.ReplaceAll(strings.TrimSpace(line), " ", " ")
	if s == "" {
		return 1
	}

	// Trailing "x2" / "(x2)" style.
	if m := trailQty.FindStringSubmatch(s); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}

	// Leading count: "4 cahiers", "x3 crayons".
	if m := leadQty.FindStringSubmatch(s); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 && n <= 500 {
			return n
		}
	}

	return 1
}

// ParsePrice parses a decimal with either comma or dot separator. Returns
// NaN when the input is not a usable price; callers decide whether that
// excludes the row.
func ParsePrice(input string) float64 {
	s := strings.TrimSpace(input)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimPrefix(s, "€")
	if s == "" {
		return math.NaN()
	}

	s = normalizeDecimalToken(s)
	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return parsed
}

// ParseInt parses an integer column value, tolerating decimals that are
// whole numbers ("5,0"). Returns fallback on anything unparseable.
func ParseInt(input string, fallback int) int {
	s := strings.TrimSpace(input)
	if s == "" {
		return fallback
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f := ParsePrice(s)
	if math.IsNaN(f) || f != math.Trunc(f) {
		return fallback
	}
	return int(f)
}

func normalizeDecimalToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	// "1.234" / "1,234" as thousand groups
	if dotGroups.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if commaGroups.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	// "1.234,56" mixed French style
	if strings.Contains(compact, ".") && strings.Contains(compact, ",") {
		compact = strings.ReplaceAll(compact, ".", "")
		compact = strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}
