package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"csgo-liquidity/internal/marketdata"
	"csgo-liquidity/internal/models"

	"github.com/go-resty/resty/v2"
	"gorm.io/gorm"
)

var csfloatColumns = []string{
	"name_base", "is_stattrak", "is_souvenir", "condition",
	"price_csfloat", "listings_csfloat", "fetched_at", "updated_at",
}

// CSFloatItem is one entry of the CSFloat price-list endpoint. MinPrice is
// in cents.
type CSFloatItem struct {
	MarketHashName string `json:"market_hash_name"`
	Qty            int    `json:"qty"`
	MinPrice       int64  `json:"min_price"`
}

// CSFloat ingests the csfloat.com listings price-list.
type CSFloat struct {
	db     *gorm.DB
	client *resty.Client
	url    string
	batch  int
}

func NewCSFloat(db *gorm.DB, url string, batch int) *CSFloat {
	return &CSFloat{
		db:     db,
		client: newClient(),
		url:    url,
		batch:  batch,
	}
}

func (f *CSFloat) Run(ctx context.Context) (int, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetDoNotParseResponse(true).
		Get(f.url)
	if err != nil {
		return 0, fmt.Errorf("csfloat request failed: %w", err)
	}
	defer resp.RawBody().Close()
	if resp.StatusCode() != 200 {
		return 0, fmt.Errorf("csfloat returned HTTP %d", resp.StatusCode())
	}

	body, err := maybeGunzip(resp.RawBody())
	if err != nil {
		return 0, err
	}

	rows, err := ParseCSFloatPriceList(body)
	if err != nil {
		return 0, err
	}
	if err := upsertRows(f.db, rows, f.batch, csfloatColumns); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ParseCSFloatPriceList decodes the price-list JSON array and aggregates it
// per item variant (summed qty, lowest price).
func ParseCSFloatPriceList(r io.Reader) ([]models.MarketRecord, error) {
	var items []CSFloatItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode csfloat price list: %w", err)
	}
	return AggregateCSFloat(items), nil
}

// AggregateCSFloat merges duplicate variants: listing counts add up, the
// lowest positive price wins.
func AggregateCSFloat(items []CSFloatItem) []models.MarketRecord {
	now := time.Now().UTC()
	acc := map[string]*models.MarketRecord{}
	var keys []string

	for _, it := range items {
		v := marketdata.ParseMarketHashName(it.MarketHashName)
		if v.NameBase == "" {
			continue
		}
		v.Phase = "" // price-list names carry no phase
		key := v.ItemKey()
		price := float64(it.MinPrice) / 100.0

		rec, exists := acc[key]
		if !exists {
			acc[key] = &models.MarketRecord{
				ItemKey:         key,
				NameBase:        v.NameBase,
				IsStatTrak:      v.IsStatTrak,
				IsSouvenir:      v.IsSouvenir,
				Condition:       v.Condition,
				PriceCSFloat:    price,
				ListingsCSFloat: it.Qty,
				FetchedAt:       now,
			}
			keys = append(keys, key)
			continue
		}
		rec.ListingsCSFloat += it.Qty
		if price > 0 && (rec.PriceCSFloat <= 0 || price < rec.PriceCSFloat) {
			rec.PriceCSFloat = price
		}
	}

	rows := make([]models.MarketRecord, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, *acc[key])
	}
	return rows
}
