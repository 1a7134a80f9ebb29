// Package fetcher pulls price and listing data from the upstream
// marketplaces (WhiteMarket, CSFloat, Buff163) and upserts it into the
// unified market_data table, one column set per marketplace.
package fetcher

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"time"

	"csgo-liquidity/internal/models"

	"github.com/go-resty/resty/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const requestTimeout = 180 * time.Second

var gzipMagic = []byte{0x1f, 0x8b}

func newClient() *resty.Client {
	client := resty.New()
	client.SetTimeout(requestTimeout)
	return client
}

// maybeGunzip sniffs the stream head and transparently decompresses gzip
// payloads. The upstream dumps are served both plain and gzipped.
func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to sniff stream: %w", err)
	}
	if bytes.Equal(head, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return gz, nil
	}
	return br, nil
}

// upsertRows writes rows in batches, updating only the columns owned by the
// calling fetcher so the three sources can share one table.
func upsertRows(db *gorm.DB, rows []models.MarketRecord, batch int, columns []string) error {
	if batch <= 0 {
		batch = 500
	}
	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_key"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).Create(&chunk).Error
		if err != nil {
			return fmt.Errorf("failed to upsert market rows: %w", err)
		}
	}
	return nil
}
