package copilot

import (
	"math"
	"sort"

	"papeterie/internal"
)

// tierRank fixes the display order of the three cart tiers. The tiers are a
// designed progression, not a price ladder, so ordering never sorts by
// total.
var tierRank = map[internal.CartTier]int{
	internal.TierEssentiel: 0,
	internal.TierEquilibre: 1,
	internal.TierPremium:   2,
}

// BuildTierCarts assembles the three fixed tier carts from the match
// results. Only lines with at least one candidate contribute; unmatched
// lines are left for the review count. Candidate selection per tier:
//   - essentiel picks the cheapest candidate,
//   - equilibre picks the matcher's best candidate,
//   - premium prefers eco products, then the highest-priced candidate.
func BuildTierCarts(matches []internal.SchoolListMatch) []internal.TierCart {
	carts := []internal.TierCart{
		{Tier: internal.TierEssentiel, Items: []internal.CartItem{}},
		{Tier: internal.TierEquilibre, Items: []internal.CartItem{}},
		{Tier: internal.TierPremium, Items: []internal.CartItem{}},
	}

	for _, match := range matches {
		if len(match.Candidates) == 0 {
			continue
		}
		qty := match.Item.Quantity
		if qty <= 0 {
			qty = 1
		}

		picks := []internal.ProductCandidate{
			cheapestCandidate(match.Candidates),
			match.Candidates[0],
			premiumCandidate(match.Candidates),
		}
		for i := range carts {
			carts[i].Items = append(carts[i].Items, toCartItem(picks[i], qty))
		}
	}

	for i := range carts {
		carts[i].ItemsCount = len(carts[i].Items)
		total := 0.0
		for _, item := range carts[i].Items {
			total += item.Price * float64(item.Quantity)
		}
		carts[i].TotalTTC = roundCents(total)
	}

	return carts
}

func cheapestCandidate(candidates []internal.ProductCandidate) internal.ProductCandidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.PriceTTC < best.PriceTTC {
			best = c
		}
	}
	return best
}

func premiumCandidate(candidates []internal.ProductCandidate) internal.ProductCandidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Eco != best.Eco {
			if c.Eco {
				best = c
			}
			continue
		}
		if c.PriceTTC > best.PriceTTC {
			best = c
		}
	}
	return best
}

func toCartItem(c internal.ProductCandidate, qty int) internal.CartItem {
	return internal.CartItem{
		ProductID:   c.ProductID,
		ProductName: c.Name,
		Quantity:    qty,
		Price:       c.PriceTTC,
		Eco:         c.Eco,
	}
}

// SortTiers returns a copy of the carts in fixed tier order. Unknown tiers
// sort last without being dropped.
func SortTiers(carts []internal.TierCart) []internal.TierCart {
	out := make([]internal.TierCart, len(carts))
	copy(out, carts)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := tierRank[out[i].Tier]
		rj, jok := tierRank[out[j].Tier]
		if !iok {
			ri = len(tierRank)
		}
		if !jok {
			rj = len(tierRank)
		}
		return ri < rj
	})
	return out
}

// Summarize derives the comparative panel from the carts and matches
// without mutating either. Returns nil when there is no cart to compare.
func Summarize(carts []internal.TierCart, matches []internal.SchoolListMatch) *internal.CartSummary {
	if len(carts) == 0 {
		return nil
	}

	cheapest, priciest := carts[0], carts[0]
	for _, cart := range carts[1:] {
		if cart.TotalTTC < cheapest.TotalTTC {
			cheapest = cart
		}
		if cart.TotalTTC > priciest.TotalTTC {
			priciest = cart
		}
	}

	toReview := 0
	for _, match := range matches {
		if match.Status == internal.MatchPartial || match.Status == internal.MatchUnmatched {
			toReview++
		}
	}

	return &internal.CartSummary{
		CheapestTier:  cheapest.Tier,
		CheapestTotal: cheapest.TotalTTC,
		PriciestTier:  priciest.Tier,
		PriciestTotal: priciest.TotalTTC,
		Savings:       roundCents(priciest.TotalTTC - cheapest.TotalTTC),
		ToReview:      toReview,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
