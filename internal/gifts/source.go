package gifts

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Listing is the marketplace response. Each group may be absent.
type Listing struct {
	Models    []SourceItem `json:"giftModel"`
	Backdrops []SourceItem `json:"giftBackdrop"`
	Symbols   []SourceItem `json:"giftSymbol"`
}

// Empty reports whether no group carried items.
func (l Listing) Empty() bool {
	return len(l.Models) == 0 && len(l.Backdrops) == 0 && len(l.Symbols) == 0
}

// SourceItem is the union of the model, backdrop and symbol shapes.
type SourceItem struct {
	ID                 FlexString  `json:"id"`
	Model              FlexString  `json:"model"`
	ModelNameFormatted FlexString  `json:"modelNameFormatted"`
	Backdrop           FlexString  `json:"backdrop"`
	Pattern            FlexString  `json:"pattern"`
	ModelRare          FlexInt     `json:"modelRare"`
	BackdropRare       FlexInt     `json:"backdropRare"`
	PatternRare        FlexInt     `json:"patternRare"`
	ModelCount         FlexInt     `json:"modelCount"`
	BackdropCount      FlexInt     `json:"backdropCount"`
	PatternCount       FlexInt     `json:"patternCount"`
	FloorPriceTon      FlexDecimal `json:"floorPriceTon"`
	Avg30dPrice        FlexDecimal `json:"avg30dPrice"`
	Deals30dCount      FlexInt     `json:"deals30dCount"`
	OnSaleCount        FlexInt     `json:"onSaleCount"`
}

// FlexDecimal decodes a number or numeric string. Anything else is zero and
// leaves Valid false, so callers can tell an explicit "0" from a missing value.
type FlexDecimal struct {
	decimal.Decimal
	Valid bool
}

func (d *FlexDecimal) UnmarshalJSON(data []byte) error {
	d.Decimal, d.Valid = parseDecimal(data)
	return nil
}

// FlexInt decodes an integer from a number or numeric string, truncating
// fractions. Anything else is zero.
type FlexInt int64

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	v, _ := parseDecimal(data)
	*n = FlexInt(v.IntPart())
	return nil
}

// FlexString decodes a string or the literal text of a number.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			*s = ""
			return nil
		}
		*s = FlexString(v)
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		*s = ""
		return nil
	}
	*s = FlexString(data)
	return nil
}

func parseDecimal(data []byte) (decimal.Decimal, bool) {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return decimal.Zero, false
	}
	if raw[0] == '"' {
		var v string
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return decimal.Zero, false
		}
		raw = strings.TrimSpace(v)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// first returns the first non-empty value.
func first(values ...FlexString) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}
