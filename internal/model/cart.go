package model

type CartItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	UnitPrice    int64  `json:"unit_price"`
	Quantity     int    `json:"quantity"`
	Discount     int64  `json:"discount"`
	Remark       string `json:"remark,omitempty"`
	GiftCardCode string `json:"gift_card_code,omitempty"`
	IsSpecial    bool   `json:"is_special,omitempty"`
}

// LineTotal is the literal per-line amount. The engine does not floor it;
// a discount larger than the line price yields a negative line.
func (i CartItem) LineTotal() int64 {
	return i.UnitPrice*int64(i.Quantity) - i.Discount
}
