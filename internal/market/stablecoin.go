package market

import (
	"fmt"
	"sort"
	"strings"
)

// StablecoinRanking is the result of ranking stablecoins against a base asset
type StablecoinRanking struct {
	Best         string   `json:"best"`
	Alternatives []string `json:"alternatives"`
}

// StablecoinRanker picks the most liquid stablecoin to rebalance into, ranked
// by 24h quote volume of the base asset's pair against each candidate.
type StablecoinRanker struct {
	source     DataSource
	candidates []string
}

func NewStablecoinRanker(source DataSource, candidates []string) *StablecoinRanker {
	if len(candidates) == 0 {
		candidates = []string{"USDT", "USDC", "FDUSD", "TUSD"}
	}
	return &StablecoinRanker{source: source, candidates: candidates}
}

// BestStablecoin ranks candidate stablecoins for the given base asset
// (e.g. "BTC"). Candidates with no listed pair are skipped. When no pair has
// any volume the first configured candidate is returned as a safe default.
func (r *StablecoinRanker) BestStablecoin(baseAsset string) (*StablecoinRanking, error) {
	tickers, err := r.source.Get24hrTickers()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickers for stablecoin ranking: %w", err)
	}

	volumes := make(map[string]float64)
	for _, t := range tickers {
		for _, stable := range r.candidates {
			if t.Symbol == strings.ToUpper(baseAsset)+stable {
				volumes[stable] = t.QuoteVolume
			}
		}
	}

	type ranked struct {
		symbol string
		volume float64
	}
	rankings := make([]ranked, 0, len(volumes))
	for stable, vol := range volumes {
		rankings = append(rankings, ranked{stable, vol})
	}
	sort.Slice(rankings, func(i, j int) bool {
		return rankings[i].volume > rankings[j].volume
	})

	if len(rankings) == 0 {
		return &StablecoinRanking{Best: r.candidates[0]}, nil
	}

	result := &StablecoinRanking{Best: rankings[0].symbol}
	for _, rk := range rankings[1:] {
		result.Alternatives = append(result.Alternatives, rk.symbol)
	}
	return result, nil
}
