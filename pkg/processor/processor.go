package processor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xhad/shopsage/internal/models"
)

const (
	DefaultCurrency = "USD"
	unknownVendor   = "n/a"
)

// Normalize maps a raw order from either source schema onto the canonical
// order and returns it with its document text. It never fails: absent
// optional fields degrade to empty values.
func Normalize(shop string, raw RawOrder) (models.Order, string) {
	var order models.Order
	if raw != nil {
		order = raw.canonical()
	}
	order.Shop = shop
	applyDefaults(&order)
	return order, DocumentText(order)
}

func (o SampleOrder) canonical() models.Order {
	order := models.Order{
		ID:            sanitizeUTF8(string(o.ID)),
		CreatedAt:     deref(o.CreatedAt),
		Currency:      o.Currency,
		CustomerEmail: deref(o.CustomerEmail),
		Tags:          sanitizeAll(o.Tags),
		ShippingCity:  sanitizeUTF8(deref(o.ShippingCity)),
	}
	if order.CustomerEmail == "" {
		order.CustomerEmail = deref(o.Email)
	}
	if o.TotalPrice != nil {
		order.TotalPrice = float64(*o.TotalPrice)
	}
	for _, d := range o.DiscountCodes {
		order.DiscountCodes = append(order.DiscountCodes, models.DiscountCode{
			Code:   sanitizeUTF8(d.Code),
			Amount: float64(d.Amount),
		})
	}
	for _, li := range o.LineItems {
		order.LineItems = append(order.LineItems, models.LineItem{
			Title:    sanitizeUTF8(li.Title),
			Quantity: li.Quantity,
			Price:    float64(li.Price),
			Vendor:   sanitizeUTF8(deref(li.Vendor)),
			Currency: o.Currency,
		})
	}
	return order
}

func (o PlatformOrder) canonical() models.Order {
	order := models.Order{
		ID:            o.ID,
		Name:          sanitizeUTF8(o.Name),
		CreatedAt:     deref(o.CreatedAt),
		CustomerEmail: deref(o.Email),
		Tags:          sanitizeAll(o.Tags),
	}
	if o.TotalPriceSet != nil {
		order.TotalPrice = float64(o.TotalPriceSet.ShopMoney.Amount)
		order.Currency = o.TotalPriceSet.ShopMoney.CurrencyCode
	}
	if o.ShippingAddress != nil {
		order.ShippingCity = sanitizeUTF8(deref(o.ShippingAddress.City))
		order.ShippingCountry = sanitizeUTF8(deref(o.ShippingAddress.Country))
	}
	// The platform only exposes the applied code names here.
	for _, code := range o.DiscountCodes {
		order.DiscountCodes = append(order.DiscountCodes, models.DiscountCode{Code: sanitizeUTF8(code)})
	}
	for _, edge := range o.LineItems.Edges {
		li := models.LineItem{
			Title:    sanitizeUTF8(edge.Node.Title),
			Quantity: edge.Node.Quantity,
			Vendor:   sanitizeUTF8(deref(edge.Node.Vendor)),
		}
		if ps := edge.Node.OriginalUnitPriceSet; ps != nil {
			li.Price = float64(ps.ShopMoney.Amount)
			li.Currency = ps.ShopMoney.CurrencyCode
		}
		order.LineItems = append(order.LineItems, li)
	}
	return order
}

func applyDefaults(order *models.Order) {
	if order.Currency == "" {
		order.Currency = DefaultCurrency
	}
	if order.Tags == nil {
		order.Tags = []string{}
	}
	if order.DiscountCodes == nil {
		order.DiscountCodes = []models.DiscountCode{}
	}
	if order.LineItems == nil {
		order.LineItems = []models.LineItem{}
	}
	for i := range order.LineItems {
		if order.LineItems[i].Currency == "" {
			order.LineItems[i].Currency = order.Currency
		}
	}
}

// DocumentText serializes an order in a fixed field order. Identical orders
// always produce byte-identical text.
func DocumentText(order models.Order) string {
	items := make([]string, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		vendor := li.Vendor
		if vendor == "" {
			vendor = unknownVendor
		}
		items = append(items, fmt.Sprintf("%dx %s ($%s) vendor=%s",
			li.Quantity, li.Title, formatNumber(li.Price), vendor))
	}

	currency := order.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	return strings.Join([]string{
		"Order " + order.ID,
		"created_at=" + order.CreatedAt,
		"total=" + formatNumber(order.TotalPrice) + " " + currency,
		"customer=" + order.CustomerEmail,
		"city=" + order.ShippingCity,
		"tags=" + strings.Join(order.Tags, ","),
		"discount_codes=" + discountJSON(order.DiscountCodes),
		"items=" + strings.Join(items, "; "),
	}, "\n")
}

func discountJSON(codes []models.DiscountCode) string {
	if codes == nil {
		codes = []models.DiscountCode{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// DiscountCode only holds a string and a float64; encoding cannot fail.
	_ = enc.Encode(codes)
	return strings.TrimSuffix(buf.String(), "\n")
}

// formatNumber renders the shortest decimal that round-trips, so 30.0
// becomes "30" and 99.99 stays "99.99".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sanitizeAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = sanitizeUTF8(s)
	}
	return out
}

// sanitizeUTF8 drops invalid byte sequences; Postgres rejects them in text
// columns.
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}
