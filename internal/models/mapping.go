package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

var ErrMissingRecordID = errors.New("record id is required")

// RemoteRow is one row of a remote table keyed by column name.
type RemoteRow map[string]any

func (r RemoteRow) ID() string {
	return r.String("id")
}

func (r RemoteRow) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (r RemoteRow) Int64(col string) (int64, error) {
	switch v := r[col].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		return int64(math.Round(v)), nil
	case float32:
		return int64(math.Round(float64(v))), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported integer type %T", v)
	}
}

func (r RemoteRow) Time(col string) (time.Time, error) {
	switch v := r[col].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case string:
		return time.Parse(time.RFC3339Nano, v)
	default:
		return time.Time{}, fmt.Errorf("unsupported time type %T", v)
	}
}

// RemoteLineItem is the jsonb shape of a line item in the remote schema.
type RemoteLineItem struct {
	ProductID string `json:"product_id,omitempty"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

func (r RemoteRow) LineItems(col string) ([]LineItem, error) {
	var raw []byte
	switch v := r[col].(type) {
	case nil:
		return nil, nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case json.RawMessage:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	var remote []RemoteLineItem
	if err := json.Unmarshal(raw, &remote); err != nil {
		return nil, err
	}
	items := make([]LineItem, 0, len(remote))
	for _, item := range remote {
		items = append(items, LineItem(item))
	}
	return items, nil
}

func lineItemsToRemote(items []LineItem) []RemoteLineItem {
	out := make([]RemoteLineItem, 0, len(items))
	for _, item := range items {
		out = append(out, RemoteLineItem(item))
	}
	return out
}

// rowReader collects the first conversion error so mappers stay linear.
type rowReader struct {
	row RemoteRow
	err error
}

func (r *rowReader) str(col string) string {
	return r.row.String(col)
}

func (r *rowReader) int64(col string) int64 {
	if r.err != nil {
		return 0
	}
	v, err := r.row.Int64(col)
	if err != nil {
		r.err = fmt.Errorf("column %q: %w", col, err)
	}
	return v
}

func (r *rowReader) time(col string) time.Time {
	if r.err != nil {
		return time.Time{}
	}
	v, err := r.row.Time(col)
	if err != nil {
		r.err = fmt.Errorf("column %q: %w", col, err)
	}
	return v
}

func (r *rowReader) items(col string) []LineItem {
	if r.err != nil {
		return nil
	}
	v, err := r.row.LineItems(col)
	if err != nil {
		r.err = fmt.Errorf("column %q: %w", col, err)
	}
	return v
}

// Zero timestamps are left out so remote column defaults apply.
func setTime(row RemoteRow, col string, t time.Time) {
	if !t.IsZero() {
		row[col] = t
	}
}

func ProductToRow(p Product) RemoteRow {
	row := RemoteRow{
		"id":                  p.ID,
		"shop_id":             p.ShopID,
		"name":                p.Name,
		"price":               p.Price,
		"cost_price":          p.CostPrice,
		"quantity":            p.Quantity,
		"category":            p.Category,
		"barcode":             p.Barcode,
		"unit":                p.Unit,
		"low_stock_threshold": p.LowStockThreshold,
	}
	setTime(row, "created_at", p.CreatedAt)
	setTime(row, "updated_at", p.UpdatedAt)
	return row
}

func ProductFromRow(row RemoteRow) (Product, error) {
	r := &rowReader{row: row}
	p := Product{
		ID:                r.str("id"),
		ShopID:            r.str("shop_id"),
		Name:              r.str("name"),
		Price:             r.int64("price"),
		CostPrice:         r.int64("cost_price"),
		Quantity:          r.int64("quantity"),
		Category:          r.str("category"),
		Barcode:           r.str("barcode"),
		Unit:              r.str("unit"),
		LowStockThreshold: r.int64("low_stock_threshold"),
		CreatedAt:         r.time("created_at"),
		UpdatedAt:         r.time("updated_at"),
	}
	if r.err != nil {
		return Product{}, fmt.Errorf("product %s: %w", p.ID, r.err)
	}
	return p, nil
}

func SaleToRow(s Sale) RemoteRow {
	row := RemoteRow{
		"id":             s.ID,
		"shop_id":        s.ShopID,
		"items":          lineItemsToRemote(s.Items),
		"total":          s.Total,
		"payment_method": s.PaymentMethod,
		"customer_name":  s.CustomerName,
	}
	setTime(row, "created_at", s.CreatedAt)
	return row
}

func SaleFromRow(row RemoteRow) (Sale, error) {
	r := &rowReader{row: row}
	s := Sale{
		ID:            r.str("id"),
		ShopID:        r.str("shop_id"),
		Items:         r.items("items"),
		Total:         r.int64("total"),
		PaymentMethod: r.str("payment_method"),
		CustomerName:  r.str("customer_name"),
		CreatedAt:     r.time("created_at"),
	}
	if r.err != nil {
		return Sale{}, fmt.Errorf("sale %s: %w", s.ID, r.err)
	}
	return s, nil
}

func OrderToRow(o Order) RemoteRow {
	row := RemoteRow{
		"id":             o.ID,
		"shop_id":        o.ShopID,
		"customer_name":  o.CustomerName,
		"customer_phone": o.CustomerPhone,
		"items":          lineItemsToRemote(o.Items),
		"total":          o.Total,
		"amount_paid":    o.AmountPaid,
		"status":         string(o.Status),
	}
	setTime(row, "created_at", o.CreatedAt)
	setTime(row, "updated_at", o.UpdatedAt)
	return row
}

func OrderFromRow(row RemoteRow) (Order, error) {
	r := &rowReader{row: row}
	o := Order{
		ID:            r.str("id"),
		ShopID:        r.str("shop_id"),
		CustomerName:  r.str("customer_name"),
		CustomerPhone: r.str("customer_phone"),
		Items:         r.items("items"),
		Total:         r.int64("total"),
		AmountPaid:    r.int64("amount_paid"),
		Status:        OrderStatus(r.str("status")),
		CreatedAt:     r.time("created_at"),
		UpdatedAt:     r.time("updated_at"),
	}
	if r.err != nil {
		return Order{}, fmt.Errorf("order %s: %w", o.ID, r.err)
	}
	return o, nil
}

func PaymentToRow(p Payment) RemoteRow {
	row := RemoteRow{
		"id":        p.ID,
		"shop_id":   p.ShopID,
		"order_id":  p.OrderID,
		"amount":    p.Amount,
		"method":    p.Method,
		"reference": p.Reference,
	}
	setTime(row, "created_at", p.CreatedAt)
	return row
}

func PaymentFromRow(row RemoteRow) (Payment, error) {
	r := &rowReader{row: row}
	p := Payment{
		ID:        r.str("id"),
		ShopID:    r.str("shop_id"),
		OrderID:   r.str("order_id"),
		Amount:    r.int64("amount"),
		Method:    r.str("method"),
		Reference: r.str("reference"),
		CreatedAt: r.time("created_at"),
	}
	if r.err != nil {
		return Payment{}, fmt.Errorf("payment %s: %w", p.ID, r.err)
	}
	return p, nil
}

// ShopProfileToRow maps only the remote-authoritative fields.
func ShopProfileToRow(p ShopProfile) RemoteRow {
	row := RemoteRow{
		"id":         p.ID,
		"name":       p.Name,
		"owner_name": p.OwnerName,
		"phone":      p.Phone,
		"address":    p.Address,
		"currency":   p.Currency,
	}
	setTime(row, "updated_at", p.UpdatedAt)
	return row
}

func ShopProfileFromRow(row RemoteRow) (ShopProfile, error) {
	r := &rowReader{row: row}
	p := ShopProfile{
		ID:        r.str("id"),
		Name:      r.str("name"),
		OwnerName: r.str("owner_name"),
		Phone:     r.str("phone"),
		Address:   r.str("address"),
		Currency:  r.str("currency"),
		UpdatedAt: r.time("updated_at"),
	}
	if r.err != nil {
		return ShopProfile{}, fmt.Errorf("shop %s: %w", p.ID, r.err)
	}
	return p, nil
}

// MergeShopProfile takes every remote-authoritative field from remote and
// keeps the device settings of local.
func MergeShopProfile(local, remote ShopProfile) ShopProfile {
	merged := remote
	merged.LogoURI = local.LogoURI
	merged.ReceiptFooter = local.ReceiptFooter
	merged.PrinterName = local.PrinterName
	return merged
}

// PayloadID extracts the record id from a queued payload.
func PayloadID(payload json.RawMessage) (string, error) {
	var ref struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &ref); err != nil {
		return "", fmt.Errorf("failed to decode payload: %w", err)
	}
	if ref.ID == "" {
		return "", ErrMissingRecordID
	}
	return ref.ID, nil
}

func decodePayload(payload json.RawMessage, v Entity) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	if v.EntityID() == "" {
		return ErrMissingRecordID
	}
	return nil
}

// RecordToRow decodes a queued insert/update payload and maps it to the
// remote row owned by shopID. The payload's own shop id is ignored.
func RecordToRow(c Collection, payload json.RawMessage, shopID string) (RemoteRow, error) {
	switch c {
	case CollectionProducts:
		var p Product
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		p.ShopID = shopID
		return ProductToRow(p), nil
	case CollectionSales:
		var s Sale
		if err := decodePayload(payload, &s); err != nil {
			return nil, err
		}
		s.ShopID = shopID
		return SaleToRow(s), nil
	case CollectionOrders:
		var o Order
		if err := decodePayload(payload, &o); err != nil {
			return nil, err
		}
		o.ShopID = shopID
		return OrderToRow(o), nil
	case CollectionPayments:
		var p Payment
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		p.ShopID = shopID
		return PaymentToRow(p), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, c)
	}
}
