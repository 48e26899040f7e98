package shopify

import "time"

// Order es la representación externa de una orden tal como la entrega la API de Shopify.
type Order struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	FinancialStatus string        `json:"financial_status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	TotalWeight     int           `json:"total_weight"`
	LocationID      int64         `json:"location_id"`
	LineItems       []LineItem    `json:"line_items"`
	Fulfillments    []Fulfillment `json:"fulfillments"`
}

type LineItem struct {
	ID           int64  `json:"id"`
	VariantID    int64  `json:"variant_id"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	VariantTitle string `json:"variant_title"`
	Quantity     int    `json:"quantity"`
	Grams        int    `json:"grams"`
	Vendor       string `json:"vendor"`
}

type Fulfillment struct {
	Status          string `json:"status"`
	TrackingCompany string `json:"tracking_company"`
	TrackingNumber  string `json:"tracking_number"`
}

type ordersResponse struct {
	Orders []Order `json:"orders"`
}

// Window es el rango created_at a consultar.
type Window struct {
	From time.Time
	To   time.Time
}

// PageStats resume una corrida de paginación.
type PageStats struct {
	Pages  int
	Orders int
}
