package models

import (
	"time"
)

// MarketRecord is one row of the unified market_data table. Each fetcher
// upserts the columns it owns, keyed by ItemKey; the liquidity view reads
// the merged row.
type MarketRecord struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	ItemKey  string `json:"item_key" gorm:"uniqueIndex;size:255;not null"`
	NameBase string `json:"name_base" gorm:"size:255"`

	IsStatTrak bool   `json:"is_stattrak" gorm:"column:is_stattrak"`
	IsSouvenir bool   `json:"is_souvenir" gorm:"column:is_souvenir"`
	Condition  string `json:"condition" gorm:"size:8"` // FN, MW, FT, WW, BS or empty
	Phase      string `json:"phase" gorm:"size:32"`    // Doppler phase, Buff163 only

	// Buff163 reference marketplace
	PriceBuff   float64 `json:"price_buff"`    // lowest listed sell price, 0 = no data
	BestBuyBuff float64 `json:"best_buy_buff"` // highest standing buy order

	// Secondary marketplace listing counts
	ListingsWhite   int     `json:"listings_white" gorm:"default:0"`
	ListingsCSFloat int     `json:"listings_csfloat" gorm:"column:listings_csfloat;default:0"`
	PriceWhite      float64 `json:"price_white"`
	PriceCSFloat    float64 `json:"price_csfloat" gorm:"column:price_csfloat"`

	// Doppler rarity proxy. Upstream currently always writes 0; kept as a
	// real column because the scoring bonus reads it.
	DopplerBuffCount int `json:"doppler_buff_count" gorm:"default:0"`

	FetchedAt time.Time `json:"fetched_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MarketRecord) TableName() string {
	return "market_data"
}

// RefreshLog records the outcome of one scheduler cycle for auditing.
type RefreshLog struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	StartedAt  time.Time `json:"started_at" gorm:"index"`
	Duration   int64     `json:"duration_ms"`
	SourceRows int       `json:"source_rows"`
	ScoredRows int       `json:"scored_rows"`
	Success    bool      `json:"success"`
	Error      string    `json:"error" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
}
