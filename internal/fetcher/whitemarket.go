package fetcher

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"csgo-liquidity/internal/marketdata"
	"csgo-liquidity/internal/models"

	"github.com/go-resty/resty/v2"
	"gorm.io/gorm"
)

// whiteMarketColumns are the market_data columns this fetcher owns.
var whiteMarketColumns = []string{
	"name_base", "is_stattrak", "is_souvenir", "condition",
	"price_white", "listings_white", "fetched_at", "updated_at",
}

// WhiteMarket ingests the WhiteMarket price CSV export
// (market_hash_name, price, market_product_count per row).
type WhiteMarket struct {
	db     *gorm.DB
	client *resty.Client
	url    string
	token  string
	batch  int
}

func NewWhiteMarket(db *gorm.DB, url, token string, batch int) *WhiteMarket {
	return &WhiteMarket{
		db:     db,
		client: newClient(),
		url:    url,
		token:  token,
		batch:  batch,
	}
}

// Run downloads the CSV, aggregates it per item variant and upserts the
// result. Returns the number of unique items written.
func (f *WhiteMarket) Run(ctx context.Context) (int, error) {
	req := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/csv").
		SetDoNotParseResponse(true)
	if f.token != "" {
		req.SetHeader("Authorization", "Bearer "+f.token)
	}

	resp, err := req.Get(f.url)
	if err != nil {
		return 0, fmt.Errorf("whitemarket request failed: %w", err)
	}
	defer resp.RawBody().Close()
	if resp.StatusCode() != 200 {
		return 0, fmt.Errorf("whitemarket returned HTTP %d", resp.StatusCode())
	}

	body, err := maybeGunzip(resp.RawBody())
	if err != nil {
		return 0, err
	}

	rows, err := ParseWhiteMarketCSV(body)
	if err != nil {
		return 0, err
	}
	if err := upsertRows(f.db, rows, f.batch, whiteMarketColumns); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ParseWhiteMarketCSV aggregates the price CSV per normalized item variant,
// keeping the lowest listed price and summing listing counts across
// duplicate lines.
func ParseWhiteMarketCSV(r io.Reader) ([]models.MarketRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read whitemarket CSV header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	nameIdx, ok := col["market_hash_name"]
	if !ok {
		return nil, fmt.Errorf("whitemarket CSV missing market_hash_name column")
	}
	priceIdx, hasPrice := col["price"]
	countIdx, hasCount := col["market_product_count"]

	now := time.Now().UTC()
	acc := map[string]*models.MarketRecord{}
	var keys []string

	for {
		line, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read whitemarket CSV: %w", err)
		}
		if nameIdx >= len(line) {
			continue
		}
		name := strings.TrimSpace(line[nameIdx])
		if name == "" {
			continue
		}

		price := 0.0
		if hasPrice && priceIdx < len(line) {
			price = parsePrice(line[priceIdx])
		}
		if price <= 0 {
			continue
		}
		qty := 0
		if hasCount && countIdx < len(line) {
			qty, _ = strconv.Atoi(strings.TrimSpace(line[countIdx]))
		}

		v := marketdata.ParseMarketHashName(name)
		if v.NameBase == "" {
			continue
		}
		v.Phase = "" // the CSV export carries no phase information
		key := v.ItemKey()

		rec, exists := acc[key]
		if !exists {
			acc[key] = &models.MarketRecord{
				ItemKey:       key,
				NameBase:      v.NameBase,
				IsStatTrak:    v.IsStatTrak,
				IsSouvenir:    v.IsSouvenir,
				Condition:     v.Condition,
				PriceWhite:    price,
				ListingsWhite: qty,
				FetchedAt:     now,
			}
			keys = append(keys, key)
			continue
		}
		if price < rec.PriceWhite {
			rec.PriceWhite = price
		}
		rec.ListingsWhite += qty
	}

	rows := make([]models.MarketRecord, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, *acc[key])
	}
	return rows, nil
}

// parsePrice accepts both dot and comma decimal separators.
func parsePrice(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return p
}
