package processor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/xhad/shopsage/internal/models"
)

// Schema names the source layout a raw order arrived in.
type Schema string

const (
	// SchemaSample is the flat snake_case layout of the bundled sample set
	// and of local JSON exports.
	SchemaSample Schema = "sample"
	// SchemaPlatform is the Shopify Admin GraphQL order node.
	SchemaPlatform Schema = "platform"
)

// RawOrder is an order record in one of the supported source schemas. The
// interface is sealed: only SampleOrder and PlatformOrder implement it.
type RawOrder interface {
	Schema() Schema
	canonical() models.Order
}

// Amount decodes a JSON number, a numeric string or null.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", s, err)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// FlexID decodes an identifier given either as a JSON string or a number.
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

// SampleOrder is the flat snake_case schema.
type SampleOrder struct {
	ID            FlexID           `json:"id"`
	CreatedAt     *string          `json:"created_at,omitempty"`
	TotalPrice    *Amount          `json:"total_price,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	CustomerEmail *string          `json:"customer_email,omitempty"`
	Email         *string          `json:"email,omitempty"`
	LineItems     []SampleLineItem `json:"line_items,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
	ShippingCity  *string          `json:"shipping_city,omitempty"`
	DiscountCodes []SampleDiscount `json:"discount_codes,omitempty"`
}

type SampleLineItem struct {
	Title    string  `json:"title"`
	Quantity int     `json:"quantity"`
	Price    Amount  `json:"price"`
	Vendor   *string `json:"vendor,omitempty"`
}

type SampleDiscount struct {
	Code   string `json:"code"`
	Amount Amount `json:"amount"`
}

func (SampleOrder) Schema() Schema { return SchemaSample }

// PlatformOrder is an order node returned by the Shopify Admin GraphQL API.
type PlatformOrder struct {
	ID              string             `json:"id"`
	Name            string             `json:"name,omitempty"`
	CreatedAt       *string            `json:"createdAt,omitempty"`
	TotalPriceSet   *MoneyBag          `json:"totalPriceSet,omitempty"`
	Email           *string            `json:"email,omitempty"`
	Tags            []string           `json:"tags,omitempty"`
	ShippingAddress *Address           `json:"shippingAddress,omitempty"`
	DiscountCodes   []string           `json:"discountCodes,omitempty"`
	LineItems       LineItemConnection `json:"lineItems"`
}

type MoneyBag struct {
	ShopMoney Money `json:"shopMoney"`
}

type Money struct {
	Amount       Amount `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type Address struct {
	City    *string `json:"city,omitempty"`
	Country *string `json:"country,omitempty"`
}

type LineItemConnection struct {
	Edges []LineItemEdge `json:"edges"`
}

type LineItemEdge struct {
	Node PlatformLineItem `json:"node"`
}

type PlatformLineItem struct {
	Title                string    `json:"title"`
	Quantity             int       `json:"quantity"`
	Vendor               *string   `json:"vendor,omitempty"`
	OriginalUnitPriceSet *MoneyBag `json:"originalUnitPriceSet,omitempty"`
}

func (PlatformOrder) Schema() Schema { return SchemaPlatform }

// Payload returns the raw record as stored for audit.
func Payload(raw RawOrder) ([]byte, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal %s order: %w", raw.Schema(), err)
	}
	return b, nil
}
