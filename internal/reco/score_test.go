package reco

import (
	"testing"

	"papeterie/internal/util"
)

func testScorer() Scorer {
	return Scorer{DefaultMarginRatio: 0.20, OutOfStockPenalty: 0.20}
}

func TestScore(t *testing.T) {
	s := testScorer()

	cases := []struct {
		name   string
		margin *float64
		stock  *int
		want   float64
	}{
		{"full margin in stock", util.FloatPtr(100), util.IntPtr(5), 1.0},
		{"no margin out of stock", util.FloatPtr(0), util.IntPtr(0), 0.10},
		{"half margin in stock", util.FloatPtr(50), util.IntPtr(1), 0.75},
		{"missing margin defaults to 20%", nil, util.IntPtr(3), 0.60},
		{"unknown stock penalized", util.FloatPtr(40), nil, 0.30},
		{"both missing", nil, nil, 0.20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Score(tc.margin, tc.stock)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("Score = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestScoreBounds(t *testing.T) {
	s := testScorer()

	margins := []*float64{nil, util.FloatPtr(-50), util.FloatPtr(0), util.FloatPtr(33), util.FloatPtr(100), util.FloatPtr(400)}
	stocks := []*int{nil, util.IntPtr(-1), util.IntPtr(0), util.IntPtr(1), util.IntPtr(10000)}

	for _, m := range margins {
		for _, st := range stocks {
			score := s.Score(m, st)
			if score < 0 || score > 1 {
				t.Fatalf("Score(%v, %v) = %v out of [0,1]", m, st, score)
			}
		}
	}
}
