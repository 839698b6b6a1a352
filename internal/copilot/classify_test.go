package copilot

import (
	"testing"

	"papeterie/internal"
)

func testClassifier() Classifier {
	return Classifier{Sure: 0.70, Medium: 0.40}
}

func TestClassifyBoundaries(t *testing.T) {
	c := testClassifier()

	cases := []struct {
		confidence float64
		want       internal.ConfidenceBand
	}{
		{1.0, internal.BandSure},
		{0.7, internal.BandSure},
		{0.699, internal.BandMedium},
		{0.5, internal.BandMedium},
		{0.4, internal.BandMedium},
		{0.399, internal.BandUncertain},
		{0.0, internal.BandUncertain},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.confidence); got != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", tc.confidence, got, tc.want)
		}
	}
}

func TestBandForUnmatchedHasNoBadge(t *testing.T) {
	c := testClassifier()

	match := internal.SchoolListMatch{
		Item:       internal.ListItem{LineNo: 1, Label: "compas"},
		Status:     internal.MatchUnmatched,
		Confidence: 0,
		Candidates: []internal.ProductCandidate{},
	}
	if band := c.BandFor(match); band != nil {
		t.Fatalf("unmatched line should carry no badge, got %s", *band)
	}

	match.Candidates = []internal.ProductCandidate{{ProductID: 1, Score: 0.8}}
	match.Confidence = 0.8
	band := c.BandFor(match)
	if band == nil || *band != internal.BandSure {
		t.Fatalf("band = %v, want Sûr", band)
	}
}
