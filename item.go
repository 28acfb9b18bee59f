package main

import (
	"github.com/shopspring/decimal"
)

// Item is a line item as sent by the till
type Item struct {
	Name  string          `json:"name"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
}

// FormatItem renders an item as "name  price"
func FormatItem(item Item) string {
	return item.Name + "  " + item.Price.StringFixed(2)
}
