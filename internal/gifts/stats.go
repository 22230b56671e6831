package gifts

import (
	"github.com/shopspring/decimal"
)

// Stats are the aggregates shown above a collection.
type Stats struct {
	TotalCount        int             `json:"total_count"`
	AveragePrice      decimal.Decimal `json:"average_price"`
	TotalVolume       decimal.Decimal `json:"total_volume"`
	AverageRarity     int             `json:"average_rarity"`
	AverageRarityName string          `json:"average_rarity_name,omitempty"`
	TotalDeals30d     int64           `json:"total_deals_30d"`
}

// ComputeAggregates reduces records in a single pass. Volume is floor price
// times supply summed over all records.
func ComputeAggregates(records []Record) Stats {
	var (
		priceSum  = decimal.Zero
		volume    = decimal.Zero
		raritySum int64
		deals     int64
	)
	for _, r := range records {
		priceSum = priceSum.Add(r.FloorPrice)
		volume = volume.Add(r.FloorPrice.Mul(decimal.NewFromInt(r.Supply)))
		raritySum += int64(r.Rarity)
		deals += r.Deals30d
	}

	stats := Stats{
		TotalCount:    len(records),
		AveragePrice:  decimal.Zero,
		TotalVolume:   volume,
		TotalDeals30d: deals,
	}
	if n := int64(len(records)); n > 0 {
		count := decimal.NewFromInt(n)
		stats.AveragePrice = priceSum.Div(count)
		stats.AverageRarity = int(decimal.NewFromInt(raritySum).Div(count).Round(0).IntPart())
		stats.AverageRarityName = TierName(stats.AverageRarity)
	}
	return stats
}
