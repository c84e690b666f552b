package ingest

import (
	"github.com/xhad/shopsage/pkg/processor"
)

// SampleOrders returns the bundled demo orders. Each call returns fresh
// values.
func SampleOrders() []processor.RawOrder {
	return []processor.RawOrder{
		processor.SampleOrder{
			ID:            "1001",
			CreatedAt:     str("2026-02-01T10:15:00Z"),
			TotalPrice:    amount(129.99),
			Currency:      "USD",
			CustomerEmail: str("alex@example.com"),
			LineItems: []processor.SampleLineItem{
				{Title: "Running Shoes", Quantity: 1, Price: 99.99, Vendor: str("Acme")},
				{Title: "Socks Pack", Quantity: 1, Price: 30.0, Vendor: str("Acme")},
			},
			Tags:          []string{"new_customer"},
			ShippingCity:  str("Irvine"),
			DiscountCodes: []processor.SampleDiscount{{Code: "WELCOME10", Amount: 10.0}},
		},
		processor.SampleOrder{
			ID:            "1002",
			CreatedAt:     str("2026-02-02T18:40:00Z"),
			TotalPrice:    amount(59.99),
			Currency:      "USD",
			CustomerEmail: str("jamie@example.com"),
			LineItems: []processor.SampleLineItem{
				{Title: "Yoga Mat", Quantity: 1, Price: 59.99, Vendor: str("ZenCo")},
			},
			Tags:          []string{"repeat_customer"},
			ShippingCity:  str("Seattle"),
			DiscountCodes: []processor.SampleDiscount{},
		},
		processor.SampleOrder{
			ID:            "1003",
			CreatedAt:     str("2026-02-04T09:05:00Z"),
			TotalPrice:    amount(199.0),
			Currency:      "USD",
			CustomerEmail: str("taylor@example.com"),
			LineItems: []processor.SampleLineItem{
				{Title: "Winter Jacket", Quantity: 1, Price: 199.0, Vendor: str("NorthPro")},
			},
			Tags:          []string{"return_risk"},
			ShippingCity:  str("Denver"),
			DiscountCodes: []processor.SampleDiscount{{Code: "WINTER15", Amount: 15.0}},
		},
	}
}

func str(s string) *string { return &s }

func amount(v float64) *processor.Amount {
	a := processor.Amount(v)
	return &a
}
