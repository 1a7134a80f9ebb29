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

var buff163Columns = []string{
	"name_base", "is_stattrak", "is_souvenir", "condition", "phase",
	"price_buff", "best_buy_buff", "fetched_at", "updated_at",
}

// Buff163Entry is one value of the csgotrader Buff163 price dump, keyed by
// market hash name at the top level.
type Buff163Entry struct {
	StartingAt   Buff163Price `json:"starting_at"`
	HighestOrder Buff163Price `json:"highest_order"`
}

type Buff163Price struct {
	Price float64 `json:"price"`
}

// Buff163 ingests sell prices and standing buy orders from the reference
// marketplace. It is the only source that resolves Doppler phases.
type Buff163 struct {
	db     *gorm.DB
	client *resty.Client
	url    string
	batch  int
}

func NewBuff163(db *gorm.DB, url string, batch int) *Buff163 {
	return &Buff163{
		db:     db,
		client: newClient(),
		url:    url,
		batch:  batch,
	}
}

func (f *Buff163) Run(ctx context.Context) (int, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetDoNotParseResponse(true).
		Get(f.url)
	if err != nil {
		return 0, fmt.Errorf("buff163 request failed: %w", err)
	}
	defer resp.RawBody().Close()
	if resp.StatusCode() != 200 {
		return 0, fmt.Errorf("buff163 returned HTTP %d", resp.StatusCode())
	}

	body, err := maybeGunzip(resp.RawBody())
	if err != nil {
		return 0, err
	}

	rows, err := ParseBuff163(body)
	if err != nil {
		return 0, err
	}
	if err := upsertRows(f.db, rows, f.batch, buff163Columns); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ParseBuff163 decodes the name -> prices mapping and aggregates it per
// item variant.
func ParseBuff163(r io.Reader) ([]models.MarketRecord, error) {
	var dump map[string]Buff163Entry
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, fmt.Errorf("failed to decode buff163 dump: %w", err)
	}
	return AggregateBuff163(dump), nil
}

// AggregateBuff163 merges duplicate variants: the lowest sell price and the
// highest buy order win.
func AggregateBuff163(dump map[string]Buff163Entry) []models.MarketRecord {
	now := time.Now().UTC()
	acc := map[string]*models.MarketRecord{}
	var keys []string

	for name, entry := range dump {
		v := marketdata.ParseMarketHashName(name)
		if v.NameBase == "" {
			continue
		}
		key := v.ItemKey()
		sell := entry.StartingAt.Price
		buy := entry.HighestOrder.Price

		rec, exists := acc[key]
		if !exists {
			acc[key] = &models.MarketRecord{
				ItemKey:     key,
				NameBase:    v.NameBase,
				IsStatTrak:  v.IsStatTrak,
				IsSouvenir:  v.IsSouvenir,
				Condition:   v.Condition,
				Phase:       v.Phase,
				PriceBuff:   sell,
				BestBuyBuff: buy,
				FetchedAt:   now,
			}
			keys = append(keys, key)
			continue
		}
		if sell > 0 && (rec.PriceBuff <= 0 || sell < rec.PriceBuff) {
			rec.PriceBuff = sell
		}
		if buy > rec.BestBuyBuff {
			rec.BestBuyBuff = buy
		}
	}

	rows := make([]models.MarketRecord, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, *acc[key])
	}
	return rows
}
