package gifts

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the source shape a record was normalized from.
type Kind string

const (
	KindModel    Kind = "model"
	KindBackdrop Kind = "backdrop"
	KindSymbol   Kind = "symbol"
)

// defaultRarity applies when the source omits a rarity code.
const defaultRarity = 10

var (
	ErrUnauthorized = errors.New("phone verification required")
	ErrEmptyResult  = errors.New("collection has no items")
	ErrInvalidName  = errors.New("collection name is empty")
)

var tierNames = map[int]string{
	2:  "Mythic",
	3:  "Legendary",
	4:  "Epic",
	5:  "Rare",
	8:  "Uncommon",
	10: "Common",
	12: "Basic",
	13: "Standard",
	15: "Regular",
	18: "Normal",
	20: "Basic",
}

// TierName maps a rarity code to its label. Unmapped codes render as "Rare N".
func TierName(code int) string {
	if name, ok := tierNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Rare %d", code)
}

// Record is one normalized marketplace listing. Prices and counters are never
// negative; missing upstream values are zero.
type Record struct {
	ID           string          `json:"id"`
	Kind         Kind            `json:"kind"`
	Name         string          `json:"name"`
	Collection   string          `json:"collection"`
	Rarity       int             `json:"rarity"`
	RarityName   string          `json:"rarity_name"`
	Supply       int64           `json:"supply"`
	FloorPrice   decimal.Decimal `json:"floor_price"`
	Avg30dPrice  decimal.Decimal `json:"avg_30d_price"`
	Deals30d     int64           `json:"deals_30d"`
	OnSale       int64           `json:"on_sale"`
	ImageURL     string          `json:"image_url"`
	ExternalLink string          `json:"external_link"`
}

// Collection is the result of one fetch. Records keep merge order: models,
// then backdrops, then symbols.
type Collection struct {
	Name     string
	Slug     string
	Records  []Record
	Stats    Stats
	LoadedAt time.Time
}

// All yields every record in merge order.
func (c Collection) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, r := range c.Records {
			if !yield(r) {
				return
			}
		}
	}
}

// Filter yields the records matching kind.
func (c Collection) Filter(kind FilterKind) iter.Seq[Record] {
	return ApplyFilter(c.All(), kind)
}
