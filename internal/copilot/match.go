package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"papeterie/internal"
	"papeterie/internal/catalog"
	"papeterie/internal/config"
	"papeterie/internal/util"
)

const maxCandidates = 5

// Matcher maps extracted list items onto catalog products.
type Matcher interface {
	Match(ctx context.Context, items []internal.ListItem) ([]internal.SchoolListMatch, error)
}

// LocalMatcher resolves items against the in-memory catalog index: exact
// code, then exact normalized name, then token/bigram fuzzy ranking.
type LocalMatcher struct {
	cfg   config.Config
	index *catalog.Index
}

func NewLocalMatcher(cfg config.Config, products []internal.ProductRecord) *LocalMatcher {
	return &LocalMatcher{cfg: cfg, index: catalog.BuildIndex(products)}
}

func (m *LocalMatcher) Match(_ context.Context, items []internal.ListItem) ([]internal.SchoolListMatch, error) {
	out := make([]internal.SchoolListMatch, 0, len(items))
	for _, item := range items {
		out = append(out, m.matchOne(item))
	}
	return out, nil
}

func (m *LocalMatcher) matchOne(item internal.ListItem) internal.SchoolListMatch {
	query := util.NormalizeLabel(item.Label)

	if util.LooksLikeCode(item.Label) {
		if code := util.NormalizeCode(item.Label); code != "" {
			if byCode := m.index.ByCode[code]; len(byCode) == 1 {
				return match(item, internal.MatchMatched, 0.99, []internal.ProductCandidate{toCandidate(byCode[0], 0.99)})
			}
		}
	}

	if exact := m.index.ByName[query]; len(exact) == 1 {
		return match(item, internal.MatchMatched, 0.95, []internal.ProductCandidate{toCandidate(exact[0], 0.95)})
	}

	candidates := m.rankCandidates(query)
	if len(candidates) == 0 {
		return match(item, internal.MatchUnmatched, 0, []internal.ProductCandidate{})
	}

	confidence := candidates[0].Score
	status := internal.MatchPartial
	if confidence >= m.cfg.ConfidenceSure {
		status = internal.MatchMatched
	}
	return match(item, status, confidence, candidates)
}

func (m *LocalMatcher) rankCandidates(query string) []internal.ProductCandidate {
	queryTokens := util.Tokenize(query)
	ids := map[int]struct{}{}
	for _, token := range queryTokens {
		for id := range m.index.TokenToProductIDs[token] {
			ids[id] = struct{}{}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	out := make([]internal.ProductCandidate, 0, len(ids))
	for id := range ids {
		product := m.index.ProductsByID[id]
		name := m.index.NormalizedNameByID[id]
		score := scoreLabel(query, name, queryTokens, util.Tokenize(name))
		if score < m.cfg.ConfidenceMedium/2 {
			continue
		}
		out = append(out, toCandidate(product, score))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

func scoreLabel(query, candidate string, queryTokens, candidateTokens []string) float64 {
	dice := util.DiceCoefficient(query, candidate)
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return dice
	}

	set := map[string]struct{}{}
	for _, t := range candidateTokens {
		set[t] = struct{}{}
	}
	overlap := 0
	for _, t := range queryTokens {
		if _, ok := set[t]; ok {
			overlap++
		}
	}
	tokenScore := float64(overlap) / float64(len(queryTokens))
	return 0.65*dice + 0.35*tokenScore
}

func match(item internal.ListItem, status internal.MatchStatus, confidence float64, candidates []internal.ProductCandidate) internal.SchoolListMatch {
	return internal.SchoolListMatch{Item: item, Status: status, Confidence: confidence, Candidates: candidates}
}

func toCandidate(p internal.ProductRecord, score float64) internal.ProductCandidate {
	return internal.ProductCandidate{
		ProductID: p.ID,
		Name:      p.Name,
		PriceTTC:  p.PriceTTC,
		Eco:       p.Eco,
		Score:     score,
	}
}

// AIMatcher asks an OpenAI-compatible endpoint to pick products for each
// line, constrained to shortlist candidates retrieved locally. Falls back to
// the local verdict when the endpoint is unreachable or answers garbage.
type AIMatcher struct {
	client *openai.Client
	model  string
	local  *LocalMatcher
	logger *zap.Logger
}

func NewAIMatcher(cfg config.Config, products []internal.ProductRecord, logger *zap.Logger) *AIMatcher {
	clientCfg := openai.DefaultConfig(cfg.AIAPIKey)
	if cfg.AIEndpoint != "" {
		clientCfg.BaseURL = cfg.AIEndpoint
	}
	return &AIMatcher{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.AIModel,
		local:  NewLocalMatcher(cfg, products),
		logger: logger.Named("matcher"),
	}
}

type aiVerdict struct {
	Matches []struct {
		LineNo     int     `json:"lineNo"`
		ProductID  int     `json:"productId"`
		Confidence float64 `json:"confidence"`
	} `json:"matches"`
}

func (m *AIMatcher) Match(ctx context.Context, items []internal.ListItem) ([]internal.SchoolListMatch, error) {
	baseline, err := m.local.Match(ctx, items)
	if err != nil {
		return nil, err
	}

	prompt, hasWork := buildPrompt(items, baseline)
	if !hasWork {
		return baseline, nil
	}

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "Tu associes des lignes de liste de fournitures scolaires à des produits du catalogue. " +
					"Réponds en JSON: {\"matches\":[{\"lineNo\":int,\"productId\":int,\"confidence\":number}]}. " +
					"Choisis uniquement parmi les candidats proposés; omets la ligne si aucun ne convient.",
			},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		m.logger.Warn("ai matcher unavailable, keeping local verdicts", zap.Error(err))
		return baseline, nil
	}
	if len(resp.Choices) == 0 {
		return baseline, nil
	}

	var verdict aiVerdict
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &verdict); err != nil {
		m.logger.Warn("ai matcher returned unparseable payload", zap.Error(err))
		return baseline, nil
	}

	return applyVerdict(baseline, verdict, m.local.cfg.ConfidenceSure), nil
}

// buildPrompt lists only the lines the local pass could not settle, each
// with its shortlist. hasWork is false when every line already matched.
func buildPrompt(items []internal.ListItem, baseline []internal.SchoolListMatch) (string, bool) {
	var b strings.Builder
	hasWork := false
	for _, m := range baseline {
		if m.Status == internal.MatchMatched || len(m.Candidates) == 0 {
			continue
		}
		hasWork = true
		fmt.Fprintf(&b, "Ligne %d: %q (quantité %d)\n", m.Item.LineNo, m.Item.Label, m.Item.Quantity)
		if m.Item.Constraints != nil {
			fmt.Fprintf(&b, "  contrainte: %s\n", *m.Item.Constraints)
		}
		for _, c := range m.Candidates {
			fmt.Fprintf(&b, "  candidat %d: %s (%.2f €)\n", c.ProductID, c.Name, c.PriceTTC)
		}
	}
	return b.String(), hasWork
}

// applyVerdict promotes lines the model settled, reordering their shortlist
// behind the chosen candidate. Verdicts naming products outside the
// shortlist are ignored.
func applyVerdict(baseline []internal.SchoolListMatch, verdict aiVerdict, sure float64) []internal.SchoolListMatch {
	byLine := map[int]int{}
	for i, m := range baseline {
		byLine[m.Item.LineNo] = i
	}

	for _, v := range verdict.Matches {
		i, ok := byLine[v.LineNo]
		if !ok {
			continue
		}
		m := &baseline[i]

		chosen := -1
		for j, c := range m.Candidates {
			if c.ProductID == v.ProductID {
				chosen = j
				break
			}
		}
		if chosen < 0 {
			continue
		}

		confidence := v.Confidence
		if confidence < 0 || confidence > 1 {
			confidence = m.Candidates[chosen].Score
		}

		picked := m.Candidates[chosen]
		picked.Score = confidence
		rest := append([]internal.ProductCandidate{}, m.Candidates[:chosen]...)
		rest = append(rest, m.Candidates[chosen+1:]...)
		m.Candidates = append([]internal.ProductCandidate{picked}, rest...)
		m.Confidence = confidence
		if confidence >= sure {
			m.Status = internal.MatchMatched
		} else {
			m.Status = internal.MatchPartial
		}
	}

	return baseline
}
