package models

import "time"

// Entity is implemented by every record kept in a local collection view.
type Entity interface {
	EntityID() string
}

type Product struct {
	ID                string    `json:"id"`
	ShopID            string    `json:"shopId,omitempty"`
	Name              string    `json:"name"`
	Price             int64     `json:"price"`
	CostPrice         int64     `json:"costPrice,omitempty"`
	Quantity          int64     `json:"quantity"`
	Category          string    `json:"category,omitempty"`
	Barcode           string    `json:"barcode,omitempty"`
	Unit              string    `json:"unit,omitempty"`
	LowStockThreshold int64     `json:"lowStockThreshold,omitempty"`
	ImageURI          string    `json:"imageUri,omitempty"` // device path, never pushed
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (p Product) EntityID() string { return p.ID }

// LowStock reports whether the product is at or below its alert threshold.
func (p Product) LowStock() bool {
	return p.LowStockThreshold > 0 && p.Quantity <= p.LowStockThreshold
}

type LineItem struct {
	ProductID string `json:"productId,omitempty"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

func (i LineItem) Subtotal() int64 {
	return i.Quantity * i.UnitPrice
}

func LineItemsTotal(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

type Sale struct {
	ID            string     `json:"id"`
	ShopID        string     `json:"shopId,omitempty"`
	Items         []LineItem `json:"items"`
	Total         int64      `json:"total"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	CustomerName  string     `json:"customerName,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (s Sale) EntityID() string { return s.ID }

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID            string      `json:"id"`
	ShopID        string      `json:"shopId,omitempty"`
	CustomerName  string      `json:"customerName"`
	CustomerPhone string      `json:"customerPhone,omitempty"`
	Items         []LineItem  `json:"items"`
	Total         int64       `json:"total"`
	AmountPaid    int64       `json:"amountPaid"`
	Status        OrderStatus `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

func (o Order) EntityID() string { return o.ID }

func (o Order) Balance() int64 {
	return o.Total - o.AmountPaid
}

// SettleStatus derives the payment status from the amounts. Cancelled orders stay cancelled.
func (o Order) SettleStatus() OrderStatus {
	switch {
	case o.Status == OrderStatusCancelled:
		return OrderStatusCancelled
	case o.AmountPaid <= 0:
		return OrderStatusPending
	case o.AmountPaid < o.Total:
		return OrderStatusPartial
	default:
		return OrderStatusPaid
	}
}

type Payment struct {
	ID        string    `json:"id"`
	ShopID    string    `json:"shopId,omitempty"`
	OrderID   string    `json:"orderId,omitempty"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method,omitempty"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p Payment) EntityID() string { return p.ID }

// ShopProfile mixes remote-authoritative fields (replaced on pull) with
// local-authoritative device settings that never reach the remote schema.
type ShopProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerName string    `json:"ownerName,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`

	LogoURI       string `json:"logoUri,omitempty"`
	ReceiptFooter string `json:"receiptFooter,omitempty"`
	PrinterName   string `json:"printerName,omitempty"`
}

// ShopSettings is the local-authoritative part of a ShopProfile.
type ShopSettings struct {
	LogoURI       *string `json:"logoUri,omitempty"`
	ReceiptFooter *string `json:"receiptFooter,omitempty"`
	PrinterName   *string `json:"printerName,omitempty"`
}

func (s ShopSettings) ApplyTo(p ShopProfile) ShopProfile {
	if s.LogoURI != nil {
		p.LogoURI = *s.LogoURI
	}
	if s.ReceiptFooter != nil {
		p.ReceiptFooter = *s.ReceiptFooter
	}
	if s.PrinterName != nil {
		p.PrinterName = *s.PrinterName
	}
	return p
}
