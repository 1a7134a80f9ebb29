// Package liquidity computes the composite 0-100 liquidity score for CS:GO
// market items and maintains the materialized snapshot that serves reads.
package liquidity

import (
	"math"

	"csgo-liquidity/internal/models"
)

// NormalizedRecord is the per-item projection of one market_data row that
// the scoring engine consumes. Derived 1:1 from raw rows, never stored.
type NormalizedRecord struct {
	ItemKey          string
	NameBase         string
	PriceBuff        float64
	BestBuyBuff      float64
	Condition        string
	IsStatTrak       bool
	IsSouvenir       bool
	TotalListings    int
	DopplerBuffCount int
}

// Normalize projects a raw market row into its scoring input. Pure
// projection: no filtering, missing numerics are already zero-valued.
func Normalize(raw models.MarketRecord) NormalizedRecord {
	return NormalizedRecord{
		ItemKey:          raw.ItemKey,
		NameBase:         raw.NameBase,
		PriceBuff:        raw.PriceBuff,
		BestBuyBuff:      raw.BestBuyBuff,
		Condition:        raw.Condition,
		IsStatTrak:       raw.IsStatTrak,
		IsSouvenir:       raw.IsSouvenir,
		TotalListings:    raw.ListingsWhite + raw.ListingsCSFloat,
		DopplerBuffCount: raw.DopplerBuffCount,
	}
}

// ScoredRecord is one materialized entity of the liquidity snapshot. The
// composite score is not a field: it is recomputed from the sub-scores on
// every read via LiquidityScore.
type ScoredRecord struct {
	ItemKey  string `json:"item_key"`
	NameBase string `json:"name_base"`

	PriceBuff     float64 `json:"price_buff"`
	BestBuyBuff   float64 `json:"best_buy_buff"`
	TotalListings int     `json:"total_listings"`

	ScoreListings int `json:"s_listings"`
	ScoreGap      int `json:"s_gap"`
	ScoreVolume   int `json:"s_volume"`
	ScoreSteam    int `json:"s_steam"`

	IsDoppler        bool `json:"is_doppler"`
	IsFactoryNew     bool `json:"is_fn"`
	IsStatTrak       bool `json:"is_st"`
	DopplerBuffCount int  `json:"doppler_buff_count"`
}

// LiquidityScore combines the four sub-scores into the composite 0-100
// score. The 1.2x bonus applies only to non-StatTrak Factory New Dopplers
// with enough Doppler market depth; the result is clamped at 100.
func (r ScoredRecord) LiquidityScore() int {
	base := float64(r.ScoreListings + r.ScoreGap + r.ScoreVolume + r.ScoreSteam)
	if r.IsDoppler && r.IsFactoryNew && !r.IsStatTrak && r.DopplerBuffCount >= 30 {
		base *= 1.2
	}
	score := int(math.Round(base))
	if score > 100 {
		score = 100
	}
	return score
}
