package gifts

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

// Normalizer turns a raw listing into records.
type Normalizer struct {
	ImageBaseURL string
	LinkBaseURL  string
	// Suffix returns the link suffix. Defaults to a random value in [1000, 10999].
	Suffix func() int
}

type itemShape struct {
	kind      Kind
	name      func(SourceItem) string
	imageName func(SourceItem) string
	linkName  func(SourceItem) string
	rarity    func(SourceItem) FlexInt
	supply    func(SourceItem) FlexInt
}

var shapes = map[Kind]itemShape{
	KindModel: {
		kind:      KindModel,
		name:      func(it SourceItem) string { return first(it.Model, it.ModelNameFormatted, "Unknown Model") },
		imageName: func(it SourceItem) string { return first(it.Model, it.ModelNameFormatted, "Model") },
		linkName:  func(it SourceItem) string { return first(it.Model, "Model") },
		rarity:    func(it SourceItem) FlexInt { return it.ModelRare },
		supply:    func(it SourceItem) FlexInt { return it.ModelCount },
	},
	KindBackdrop: {
		kind:      KindBackdrop,
		name:      func(it SourceItem) string { return first(it.Backdrop, "Unknown Backdrop") },
		imageName: func(it SourceItem) string { return first(it.Backdrop, "Backdrop") },
		linkName:  func(it SourceItem) string { return first(it.Backdrop, "Backdrop") },
		rarity:    func(it SourceItem) FlexInt { return it.BackdropRare },
		supply:    func(it SourceItem) FlexInt { return it.BackdropCount },
	},
	KindSymbol: {
		kind:      KindSymbol,
		name:      func(it SourceItem) string { return first(it.Pattern, "Unknown Symbol") },
		imageName: func(it SourceItem) string { return first(it.Pattern, "Symbol") },
		linkName:  func(it SourceItem) string { return first(it.Pattern, "Symbol") },
		rarity:    func(it SourceItem) FlexInt { return it.PatternRare },
		supply:    func(it SourceItem) FlexInt { return it.PatternCount },
	},
}

// Normalize merges the three groups into one slice: models, backdrops, then
// symbols, each in source order.
func (n Normalizer) Normalize(collection string, l Listing) []Record {
	records := make([]Record, 0, len(l.Models)+len(l.Backdrops)+len(l.Symbols))
	for _, group := range []struct {
		kind  Kind
		items []SourceItem
	}{
		{KindModel, l.Models},
		{KindBackdrop, l.Backdrops},
		{KindSymbol, l.Symbols},
	} {
		shape := shapes[group.kind]
		for _, it := range group.items {
			records = append(records, n.record(collection, shape, it))
		}
	}
	return records
}

func (n Normalizer) record(collection string, shape itemShape, it SourceItem) Record {
	rarity := int(shape.rarity(it))
	if rarity <= 0 {
		rarity = defaultRarity
	}
	floor := nonNegative(it.FloorPriceTon.Decimal)
	avg := nonNegative(it.Avg30dPrice.Decimal)
	price := floor
	if !it.FloorPriceTon.Valid {
		price = avg
	}
	return Record{
		ID:           string(it.ID),
		Kind:         shape.kind,
		Name:         shape.name(it),
		Collection:   collection,
		Rarity:       rarity,
		RarityName:   TierName(rarity),
		Supply:       nonNegativeInt(shape.supply(it)),
		FloorPrice:   price,
		Avg30dPrice:  avg,
		Deals30d:     nonNegativeInt(it.Deals30dCount),
		OnSale:       nonNegativeInt(it.OnSaleCount),
		ImageURL:     ImageURL(n.ImageBaseURL, shape.imageName(it)),
		ExternalLink: ExternalLink(n.LinkBaseURL, collection, shape.linkName(it), n.suffix()),
	}
}

func (n Normalizer) suffix() int {
	if n.Suffix != nil {
		return n.Suffix()
	}
	return rand.IntN(10000) + 1000
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func nonNegativeInt(n FlexInt) int64 {
	if n < 0 {
		return 0
	}
	return int64(n)
}
