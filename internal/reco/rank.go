package reco

import (
	"sort"

	"papeterie/internal"
	"papeterie/internal/config"
	"papeterie/internal/storage"
)

// Ranker assembles scored recommendation lists from the two relation
// sources: directed product relations and the bidirectional compatibility
// matrix.
type Ranker struct {
	db     *storage.DB
	scorer Scorer
}

func NewRanker(db *storage.DB, cfg config.Config) *Ranker {
	return &Ranker{db: db, scorer: NewScorer(cfg)}
}

// CrossSell ranks product-detail candidates from both relation sources,
// de-duplicated by target product id, sorted by score descending and capped
// to limit.
func (r *Ranker) CrossSell(productID, limit int) ([]internal.RecoProduct, error) {
	related, err := r.db.ListRelated(productID)
	if err != nil {
		return nil, err
	}
	compatible, err := r.db.ListCompatible(productID)
	if err != nil {
		return nil, err
	}

	return r.rank(append(related, compatible...), limit, nil), nil
}

// CartComplements ranks complement suggestions for the products currently
// in a cart, excluding anything the cart already holds.
func (r *Ranker) CartComplements(cartProductIDs []int, limit int) ([]internal.RecoProduct, error) {
	inCart := map[int]struct{}{}
	for _, id := range cartProductIDs {
		inCart[id] = struct{}{}
	}

	pool := []internal.RecoProduct{}
	for _, id := range cartProductIDs {
		related, err := r.db.ListRelated(id)
		if err != nil {
			return nil, err
		}
		for _, candidate := range related {
			if candidate.Relation == internal.RelationComplement {
				pool = append(pool, candidate)
			}
		}
	}

	return r.rank(pool, limit, inCart), nil
}

func (r *Ranker) rank(pool []internal.RecoProduct, limit int, exclude map[int]struct{}) []internal.RecoProduct {
	seen := map[int]struct{}{}
	out := make([]internal.RecoProduct, 0, len(pool))
	for _, candidate := range pool {
		if _, skip := exclude[candidate.ProductID]; skip {
			continue
		}
		if _, dup := seen[candidate.ProductID]; dup {
			continue
		}
		seen[candidate.ProductID] = struct{}{}
		candidate.Score = r.scorer.Score(candidate.MarginPercent, candidate.StockQuantity)
		out = append(out, candidate)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
