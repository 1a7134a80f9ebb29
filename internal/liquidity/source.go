package liquidity

import (
	"context"
	"fmt"

	"csgo-liquidity/internal/models"

	"gorm.io/gorm"
)

// Source is the bulk-scan input contract of a refresh cycle. Each Scan must
// return the full current set of raw market rows.
type Source interface {
	Scan(ctx context.Context) ([]models.MarketRecord, error)
}

// GormSource reads the market_data table.
type GormSource struct {
	db *gorm.DB
}

func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

func (s *GormSource) Scan(ctx context.Context) ([]models.MarketRecord, error) {
	var rows []models.MarketRecord
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to scan market_data: %w", err)
	}
	return rows, nil
}
