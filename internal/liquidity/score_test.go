package liquidity

import (
	"fmt"
	"testing"

	"csgo-liquidity/internal/marketdata"

	"github.com/stretchr/testify/assert"
)

func TestScoreFullyLiquidDopplerGetsBonus(t *testing.T) {
	// 600 listings, ratio 95, FN non-StatTrak Doppler with enough depth:
	// base 95 (volume proxy 570 lands in the second tier), then the 1.2x
	// bonus lifts it to 114 and the clamp caps it at 100.
	rec := Score(NormalizedRecord{
		ItemKey:          "AK47_doppler",
		PriceBuff:        100,
		BestBuyBuff:      95,
		Condition:        marketdata.ConditionFN,
		IsStatTrak:       false,
		TotalListings:    600,
		DopplerBuffCount: 35,
	})

	assert.Equal(t, 25, rec.ScoreListings)
	assert.Equal(t, 25, rec.ScoreGap)
	assert.Equal(t, 20, rec.ScoreVolume) // 600*0.95 = 570, below the 1000 tier
	assert.Equal(t, 25, rec.ScoreSteam)
	assert.True(t, rec.IsDoppler)
	assert.True(t, rec.IsFactoryNew)
	assert.False(t, rec.IsStatTrak)
	assert.Equal(t, 100, rec.LiquidityScore())
}

func TestScoreNoPriceDataFloorsEverything(t *testing.T) {
	rec := Score(NormalizedRecord{
		ItemKey:       "P250 | Sand Dune|BS",
		PriceBuff:     0,
		TotalListings: 40,
	})

	assert.Equal(t, 5, rec.ScoreListings)
	assert.Equal(t, 5, rec.ScoreGap)
	assert.Equal(t, 5, rec.ScoreVolume)
	assert.Equal(t, 5, rec.ScoreSteam)
	assert.Equal(t, 20, rec.LiquidityScore())
}

func TestScoreListingsBuckets(t *testing.T) {
	cases := []struct {
		listings int
		want     int
	}{
		{0, 5}, {49, 5}, {50, 10}, {99, 10}, {100, 15},
		{199, 15}, {200, 20}, {499, 20}, {500, 25}, {10000, 25},
	}
	for _, tc := range cases {
		rec := Score(NormalizedRecord{ItemKey: "x", TotalListings: tc.listings})
		assert.Equalf(t, tc.want, rec.ScoreListings, "listings=%d", tc.listings)
	}
}

func TestScoreListingsMonotonic(t *testing.T) {
	prev := 0
	for listings := 0; listings <= 600; listings++ {
		rec := Score(NormalizedRecord{ItemKey: "x", TotalListings: listings})
		if rec.ScoreListings < prev {
			t.Fatalf("s_listings decreased at %d listings: %d -> %d", listings, prev, rec.ScoreListings)
		}
		prev = rec.ScoreListings
	}
}

func TestScoreGapBuckets(t *testing.T) {
	cases := []struct {
		bestBuy float64
		want    int
	}{
		{95, 25}, {90, 25}, {89.99, 20}, {80, 20}, {79.5, 15},
		{70, 15}, {65, 10}, {60, 10}, {59.99, 5}, {0, 5},
	}
	for _, tc := range cases {
		rec := Score(NormalizedRecord{ItemKey: "x", PriceBuff: 100, BestBuyBuff: tc.bestBuy})
		assert.Equalf(t, tc.want, rec.ScoreGap, "best_buy=%v", tc.bestBuy)
	}
}

func TestScoreGapInvertedSpreadIsAnomaly(t *testing.T) {
	// Buy order above sell price by more than 5% is low-confidence data,
	// not an error.
	rec := Score(NormalizedRecord{ItemKey: "x", PriceBuff: 100, BestBuyBuff: 106})
	assert.Equal(t, 5, rec.ScoreGap)

	// Exactly at the 5% edge still scores normally (ratio 105 >= 90).
	rec = Score(NormalizedRecord{ItemKey: "x", PriceBuff: 100, BestBuyBuff: 105})
	assert.Equal(t, 25, rec.ScoreGap)
}

func TestScoreVolumeBuckets(t *testing.T) {
	// ratio fixed at 80, so proxy = listings * 0.8
	cases := []struct {
		listings int
		want     int
	}{
		{1250, 25}, {1249, 20}, {625, 20}, {624, 15}, {250, 15},
		{249, 10}, {63, 10}, {62, 5}, {0, 5},
	}
	for _, tc := range cases {
		rec := Score(NormalizedRecord{ItemKey: "x", PriceBuff: 100, BestBuyBuff: 80, TotalListings: tc.listings})
		assert.Equalf(t, tc.want, rec.ScoreVolume, "listings=%d", tc.listings)
	}
}

func TestScoreSteamNeedsBothDepthAndRatio(t *testing.T) {
	// Deep book, bad spread
	rec := Score(NormalizedRecord{ItemKey: "x", PriceBuff: 100, BestBuyBuff: 50, TotalListings: 600})
	assert.Equal(t, 5, rec.ScoreSteam)

	// Good spread, shallow book
	rec = Score(NormalizedRecord{ItemKey: "x", PriceBuff: 100, BestBuyBuff: 95, TotalListings: 40})
	assert.Equal(t, 5, rec.ScoreSteam)

	// Middle tier: 250 listings, ratio 85
	rec = Score(NormalizedRecord{ItemKey: "x", PriceBuff: 100, BestBuyBuff: 85, TotalListings: 250})
	assert.Equal(t, 20, rec.ScoreSteam)
}

func TestBonusRequiresAllFourConditions(t *testing.T) {
	base := NormalizedRecord{
		ItemKey:          "Karambit | Doppler",
		PriceBuff:        100,
		BestBuyBuff:      85,
		Condition:        marketdata.ConditionFN,
		TotalListings:    250,
		DopplerBuffCount: 35,
	}
	withBonus := Score(base).LiquidityScore()

	noBonus := []NormalizedRecord{}

	notDoppler := base
	notDoppler.ItemKey = "Karambit | Tiger Tooth"
	noBonus = append(noBonus, notDoppler)

	notFN := base
	notFN.Condition = marketdata.ConditionMW
	noBonus = append(noBonus, notFN)

	statTrak := base
	statTrak.IsStatTrak = true
	noBonus = append(noBonus, statTrak)

	shallowDoppler := base
	shallowDoppler.DopplerBuffCount = 29
	noBonus = append(noBonus, shallowDoppler)

	plain := Score(base)
	plainBase := plain.ScoreListings + plain.ScoreGap + plain.ScoreVolume + plain.ScoreSteam
	assert.Greater(t, withBonus, plainBase, "bonus should lift the composite above the raw sum")

	for i, n := range noBonus {
		rec := Score(n)
		got := rec.LiquidityScore()
		sum := rec.ScoreListings + rec.ScoreGap + rec.ScoreVolume + rec.ScoreSteam
		assert.Equalf(t, sum, got, "case %d should not receive the bonus", i)
	}
}

func TestDopplerFlagIsCaseInsensitive(t *testing.T) {
	assert.True(t, Score(NormalizedRecord{ItemKey: "Karambit | DOPPLER|FN"}).IsDoppler)
	assert.True(t, Score(NormalizedRecord{ItemKey: "karambit | doppler"}).IsDoppler)
	assert.False(t, Score(NormalizedRecord{ItemKey: "Karambit | Fade"}).IsDoppler)
}

func TestLiquidityScoreAlwaysInRange(t *testing.T) {
	prices := []float64{0, 1, 50, 100}
	buys := []float64{0, 30, 60, 95, 120}
	listings := []int{0, 40, 120, 300, 700}
	counts := []int{0, 30, 100}

	for _, p := range prices {
		for _, b := range buys {
			for _, l := range listings {
				for _, c := range counts {
					n := NormalizedRecord{
						ItemKey:          "Karambit | Doppler|FN",
						PriceBuff:        p,
						BestBuyBuff:      b,
						Condition:        marketdata.ConditionFN,
						TotalListings:    l,
						DopplerBuffCount: c,
					}
					score := Score(n).LiquidityScore()
					label := fmt.Sprintf("p=%v b=%v l=%d c=%d", p, b, l, c)
					assert.GreaterOrEqual(t, score, 0, label)
					assert.LessOrEqual(t, score, 100, label)
				}
			}
		}
	}
}
