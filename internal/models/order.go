package models

// Order is the canonical order representation every source normalizes into.
type Order struct {
	ID              string
	Shop            string
	Name            string
	CreatedAt       string
	TotalPrice      float64
	Currency        string
	CustomerEmail   string
	Tags            []string
	ShippingCity    string
	ShippingCountry string
	DiscountCodes   []DiscountCode
	LineItems       []LineItem
}

// DiscountCode is serialized verbatim into the document text, so its JSON
// field names are part of the embedding input.
type DiscountCode struct {
	Code   string  `json:"code"`
	Amount float64 `json:"amount"`
}

type LineItem struct {
	Title    string
	Quantity int
	Price    float64
	Vendor   string
	Currency string
}
