package liquidity

import (
	"strings"

	"csgo-liquidity/internal/marketdata"
)

// invalidSpreadFactor marks a buy order more than 5% above the sell price
// as a data anomaly; the gap sub-score falls back to the floor instead of
// erroring so the scoring function stays total.
const invalidSpreadFactor = 1.05

// Score computes the four sub-scores and flags for one normalized record.
// Deterministic, no I/O, defined for every input.
func Score(n NormalizedRecord) ScoredRecord {
	// Buy/sell ratio as a percentage. Without a sell price there is no
	// liquidity data and the ratio collapses to 0.
	ratio := 0.0
	if n.PriceBuff > 0 {
		ratio = n.BestBuyBuff / n.PriceBuff * 100
	}

	return ScoredRecord{
		ItemKey:  n.ItemKey,
		NameBase: n.NameBase,

		PriceBuff:     n.PriceBuff,
		BestBuyBuff:   n.BestBuyBuff,
		TotalListings: n.TotalListings,

		ScoreListings: scoreListings(n.TotalListings),
		ScoreGap:      scoreGap(n, ratio),
		ScoreVolume:   scoreVolume(n, ratio),
		ScoreSteam:    scoreSteam(n.TotalListings, ratio),

		IsDoppler:        strings.Contains(strings.ToLower(n.ItemKey), "doppler"),
		IsFactoryNew:     n.Condition == marketdata.ConditionFN,
		IsStatTrak:       n.IsStatTrak,
		DopplerBuffCount: n.DopplerBuffCount,
	}
}

// scoreListings buckets the combined listing count across marketplaces.
func scoreListings(total int) int {
	switch {
	case total >= 500:
		return 25
	case total >= 200:
		return 20
	case total >= 100:
		return 15
	case total >= 50:
		return 10
	default:
		return 5
	}
}

// scoreGap rates how close the best buy order sits to the sell price.
func scoreGap(n NormalizedRecord, ratio float64) int {
	if n.PriceBuff <= 0 {
		return 5
	}
	if n.BestBuyBuff > n.PriceBuff*invalidSpreadFactor {
		return 5
	}
	switch {
	case ratio >= 90:
		return 25
	case ratio >= 80:
		return 20
	case ratio >= 70:
		return 15
	case ratio >= 60:
		return 10
	default:
		return 5
	}
}

// scoreVolume rates a trading-volume proxy: listings discounted by the
// buy/sell ratio.
func scoreVolume(n NormalizedRecord, ratio float64) int {
	if n.PriceBuff <= 0 {
		return 5
	}
	proxy := float64(n.TotalListings) * ratio / 100
	switch {
	case proxy >= 1000:
		return 25
	case proxy >= 500:
		return 20
	case proxy >= 200:
		return 15
	case proxy >= 50:
		return 10
	default:
		return 5
	}
}

// scoreSteam proxies Steam-marketplace liquidity with a combined threshold
// on listing depth and spread quality.
func scoreSteam(total int, ratio float64) int {
	switch {
	case total >= 500 && ratio >= 90:
		return 25
	case total >= 200 && ratio >= 80:
		return 20
	case total >= 100 && ratio >= 70:
		return 15
	case total >= 50 && ratio >= 60:
		return 10
	default:
		return 5
	}
}
