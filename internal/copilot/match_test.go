package copilot

import (
	"context"
	"testing"

	"papeterie/internal"
	"papeterie/internal/config"
	"papeterie/internal/util"
)

func matcherConfig() config.Config {
	return config.Config{ConfidenceSure: 0.70, ConfidenceMedium: 0.40}
}

func catalogFixture() []internal.ProductRecord {
	return []internal.ProductRecord{
		{ID: 1, Name: "Cahier 96 pages grands carreaux", EAN: util.StringPtr("3210987654321"), PriceTTC: 2.90},
		{ID: 2, Name: "Stylo bille bleu", PriceTTC: 0.80},
		{ID: 3, Name: "Classeur A4 dos 40mm", PriceTTC: 3.50},
	}
}

func TestLocalMatcherByEAN(t *testing.T) {
	m := NewLocalMatcher(matcherConfig(), catalogFixture())

	matches, err := m.Match(context.Background(), []internal.ListItem{
		{LineNo: 1, Label: "3210987654321", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	match := matches[0]
	if match.Status != internal.MatchMatched {
		t.Fatalf("status: %s", match.Status)
	}
	if match.Confidence != 0.99 {
		t.Fatalf("confidence: %v", match.Confidence)
	}
	if match.Candidates[0].ProductID != 1 {
		t.Fatalf("candidate: %+v", match.Candidates[0])
	}
}

func TestLocalMatcherExactName(t *testing.T) {
	m := NewLocalMatcher(matcherConfig(), catalogFixture())

	matches, _ := m.Match(context.Background(), []internal.ListItem{
		{LineNo: 1, Label: "Stylo bille bleu", Quantity: 2},
	})
	match := matches[0]
	if match.Status != internal.MatchMatched || match.Candidates[0].ProductID != 2 {
		t.Fatalf("match: %+v", match)
	}
}

func TestLocalMatcherFuzzy(t *testing.T) {
	m := NewLocalMatcher(matcherConfig(), catalogFixture())

	matches, _ := m.Match(context.Background(), []internal.ListItem{
		{LineNo: 1, Label: "cahier grands carreaux", Quantity: 4},
	})
	match := matches[0]
	if len(match.Candidates) == 0 {
		t.Fatalf("no candidates")
	}
	if match.Candidates[0].ProductID != 1 {
		t.Fatalf("best candidate: %+v", match.Candidates[0])
	}
	if match.Status != internal.MatchMatched && match.Status != internal.MatchPartial {
		t.Fatalf("status: %s", match.Status)
	}
	if match.Confidence != match.Candidates[0].Score {
		t.Fatalf("confidence %v != best score %v", match.Confidence, match.Candidates[0].Score)
	}
}

func TestLocalMatcherUnmatched(t *testing.T) {
	m := NewLocalMatcher(matcherConfig(), catalogFixture())

	matches, _ := m.Match(context.Background(), []internal.ListItem{
		{LineNo: 1, Label: "blouse de chimie", Quantity: 1},
	})
	match := matches[0]
	if match.Status != internal.MatchUnmatched {
		t.Fatalf("status: %s", match.Status)
	}
	if len(match.Candidates) != 0 {
		t.Fatalf("candidates: %+v", match.Candidates)
	}
	if match.Confidence != 0 {
		t.Fatalf("confidence: %v", match.Confidence)
	}
}

func TestApplyVerdictPromotesShortlistedPick(t *testing.T) {
	baseline := []internal.SchoolListMatch{
		{
			Item:       internal.ListItem{LineNo: 1, Label: "cahier"},
			Status:     internal.MatchPartial,
			Confidence: 0.5,
			Candidates: []internal.ProductCandidate{
				{ProductID: 1, Score: 0.5},
				{ProductID: 3, Score: 0.45},
			},
		},
	}

	verdict := aiVerdict{}
	verdict.Matches = append(verdict.Matches, struct {
		LineNo     int     `json:"lineNo"`
		ProductID  int     `json:"productId"`
		Confidence float64 `json:"confidence"`
	}{LineNo: 1, ProductID: 3, Confidence: 0.9})

	out := applyVerdict(baseline, verdict, 0.70)
	match := out[0]
	if match.Status != internal.MatchMatched {
		t.Fatalf("status: %s", match.Status)
	}
	if match.Candidates[0].ProductID != 3 || match.Confidence != 0.9 {
		t.Fatalf("promotion: %+v", match)
	}
	if len(match.Candidates) != 2 {
		t.Fatalf("candidates lost: %+v", match.Candidates)
	}
}

func TestApplyVerdictIgnoresOffListProducts(t *testing.T) {
	baseline := []internal.SchoolListMatch{
		{
			Item:       internal.ListItem{LineNo: 1, Label: "cahier"},
			Status:     internal.MatchPartial,
			Confidence: 0.5,
			Candidates: []internal.ProductCandidate{{ProductID: 1, Score: 0.5}},
		},
	}

	verdict := aiVerdict{}
	verdict.Matches = append(verdict.Matches, struct {
		LineNo     int     `json:"lineNo"`
		ProductID  int     `json:"productId"`
		Confidence float64 `json:"confidence"`
	}{LineNo: 1, ProductID: 999, Confidence: 0.95})

	out := applyVerdict(baseline, verdict, 0.70)
	if out[0].Status != internal.MatchPartial || out[0].Confidence != 0.5 {
		t.Fatalf("off-list verdict applied: %+v", out[0])
	}
}
