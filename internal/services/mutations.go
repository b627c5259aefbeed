package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/prudhvinik1/possync/internal/models"
	"github.com/prudhvinik1/possync/internal/repositories"
)

var ErrInvalidRecord = errors.New("invalid record")

// The helpers below apply a change to the local view first and then
// enqueue it, so the UI sees the change regardless of connectivity.

func (e *Engine) SaveProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if p.Name == "" {
		return models.Product{}, fmt.Errorf("%w: product name is required", ErrInvalidRecord)
	}
	if p.Price < 0 || p.Quantity < 0 {
		return models.Product{}, fmt.Errorf("%w: price and quantity must not be negative", ErrInvalidRecord)
	}

	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	products, err := e.store.Products(ctx)
	if err != nil {
		return models.Product{}, err
	}

	now := e.now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	op := models.OperationInsert
	idx := indexOf(products, p.ID)
	if idx >= 0 {
		op = models.OperationUpdate
		if p.CreatedAt.IsZero() {
			p.CreatedAt = products[idx].CreatedAt
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if idx >= 0 {
		products[idx] = p
	} else {
		products = append(products, p)
	}

	if err := e.store.SetProducts(ctx, products); err != nil {
		return models.Product{}, err
	}
	if _, err := e.queue.Enqueue(ctx, models.CollectionProducts, op, p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (e *Engine) DeleteProduct(ctx context.Context, id string) error {
	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	products, err := e.store.Products(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(products, id)
	if idx < 0 {
		return repositories.ErrNotFound
	}
	products = append(products[:idx], products[idx+1:]...)

	if err := e.store.SetProducts(ctx, products); err != nil {
		return err
	}
	_, err = e.queue.Enqueue(ctx, models.CollectionProducts, models.OperationDelete, map[string]string{"id": id})
	return err
}

// RecordSale stores the sale, takes the sold quantities off local stock and
// queues the sale together with every product it touched. A sale whose id is
// already in the view is returned as stored and not applied again.
func (e *Engine) RecordSale(ctx context.Context, sale models.Sale) (models.Sale, error) {
	if len(sale.Items) == 0 {
		return models.Sale{}, fmt.Errorf("%w: a sale needs at least one item", ErrInvalidRecord)
	}
	for _, item := range sale.Items {
		if item.Quantity <= 0 {
			return models.Sale{}, fmt.Errorf("%w: item quantity must be positive", ErrInvalidRecord)
		}
	}

	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	now := e.now()
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	if sale.Total == 0 {
		sale.Total = models.LineItemsTotal(sale.Items)
	}

	sales, err := e.store.Sales(ctx)
	if err != nil {
		return models.Sale{}, err
	}
	if idx := indexOf(sales, sale.ID); idx >= 0 {
		return sales[idx], nil
	}

	products, err := e.store.Products(ctx)
	if err != nil {
		return models.Sale{}, err
	}
	var touched []int
	for _, item := range sale.Items {
		idx := indexOf(products, item.ProductID)
		if item.ProductID == "" || idx < 0 {
			continue
		}
		products[idx].Quantity -= item.Quantity
		if products[idx].Quantity < 0 {
			products[idx].Quantity = 0
		}
		products[idx].UpdatedAt = now
		if !slices.Contains(touched, idx) {
			touched = append(touched, idx)
		}
	}

	sales = append([]models.Sale{sale}, sales...)

	if err := e.store.SetSales(ctx, sales); err != nil {
		return models.Sale{}, err
	}
	if len(touched) > 0 {
		if err := e.store.SetProducts(ctx, products); err != nil {
			return models.Sale{}, err
		}
	}

	if _, err := e.queue.Enqueue(ctx, models.CollectionSales, models.OperationInsert, sale); err != nil {
		return models.Sale{}, err
	}
	for _, idx := range touched {
		if _, err := e.queue.Enqueue(ctx, models.CollectionProducts, models.OperationUpdate, products[idx]); err != nil {
			return models.Sale{}, err
		}
	}
	return sale, nil
}

func (e *Engine) SaveOrder(ctx context.Context, o models.Order) (models.Order, error) {
	if o.CustomerName == "" {
		return models.Order{}, fmt.Errorf("%w: customer name is required", ErrInvalidRecord)
	}

	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	orders, err := e.store.Orders(ctx)
	if err != nil {
		return models.Order{}, err
	}

	now := e.now()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Total == 0 {
		o.Total = models.LineItemsTotal(o.Items)
	}
	idx := indexOf(orders, o.ID)
	op := models.OperationInsert
	if idx >= 0 {
		op = models.OperationUpdate
		if o.CreatedAt.IsZero() {
			o.CreatedAt = orders[idx].CreatedAt
		}
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	o.Status = o.SettleStatus()

	if idx >= 0 {
		orders[idx] = o
	} else {
		orders = append([]models.Order{o}, orders...)
	}

	if err := e.store.SetOrders(ctx, orders); err != nil {
		return models.Order{}, err
	}
	if _, err := e.queue.Enqueue(ctx, models.CollectionOrders, op, o); err != nil {
		return models.Order{}, err
	}
	return o, nil
}

func (e *Engine) DeleteOrder(ctx context.Context, id string) error {
	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	orders, err := e.store.Orders(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(orders, id)
	if idx < 0 {
		return repositories.ErrNotFound
	}
	orders = append(orders[:idx], orders[idx+1:]...)

	if err := e.store.SetOrders(ctx, orders); err != nil {
		return err
	}
	_, err = e.queue.Enqueue(ctx, models.CollectionOrders, models.OperationDelete, map[string]string{"id": id})
	return err
}

// RecordPayment settles part or all of an order. The payment and the
// updated order are both queued. Applied payments are kept in their own
// view, so a payment id seen before returns the stored payment and the
// order as it stands.
func (e *Engine) RecordPayment(ctx context.Context, p models.Payment) (models.Payment, models.Order, error) {
	if p.Amount <= 0 {
		return models.Payment{}, models.Order{}, fmt.Errorf("%w: payment amount must be positive", ErrInvalidRecord)
	}
	if p.OrderID == "" {
		return models.Payment{}, models.Order{}, fmt.Errorf("%w: order id is required", ErrInvalidRecord)
	}

	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	payments, err := e.store.Payments(ctx)
	if err != nil {
		return models.Payment{}, models.Order{}, err
	}
	orders, err := e.store.Orders(ctx)
	if err != nil {
		return models.Payment{}, models.Order{}, err
	}

	if seen := indexOf(payments, p.ID); p.ID != "" && seen >= 0 {
		stored := payments[seen]
		idx := indexOf(orders, stored.OrderID)
		if idx < 0 {
			return models.Payment{}, models.Order{}, repositories.ErrNotFound
		}
		return stored, orders[idx], nil
	}

	idx := indexOf(orders, p.OrderID)
	if idx < 0 {
		return models.Payment{}, models.Order{}, repositories.ErrNotFound
	}

	now := e.now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	order := orders[idx]
	order.AmountPaid += p.Amount
	order.Status = order.SettleStatus()
	order.UpdatedAt = now
	orders[idx] = order

	if err := e.store.SetOrders(ctx, orders); err != nil {
		return models.Payment{}, models.Order{}, err
	}
	if err := e.store.SetPayments(ctx, append([]models.Payment{p}, payments...)); err != nil {
		return models.Payment{}, models.Order{}, err
	}
	if _, err := e.queue.Enqueue(ctx, models.CollectionPayments, models.OperationInsert, p); err != nil {
		return models.Payment{}, models.Order{}, err
	}
	if _, err := e.queue.Enqueue(ctx, models.CollectionOrders, models.OperationUpdate, order); err != nil {
		return models.Payment{}, models.Order{}, err
	}
	return p, order, nil
}

// UpdateShopSettings edits the device-only part of the shop profile. Nothing
// is queued because those fields never reach the remote store.
func (e *Engine) UpdateShopSettings(ctx context.Context, shopID string, settings models.ShopSettings) (models.ShopProfile, error) {
	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	profile, ok, err := e.store.ShopProfile(ctx)
	if err != nil {
		return models.ShopProfile{}, err
	}
	if !ok {
		profile = models.ShopProfile{ID: shopID}
	}
	profile = settings.ApplyTo(profile)

	if err := e.store.SetShopProfile(ctx, profile); err != nil {
		return models.ShopProfile{}, err
	}
	return profile, nil
}

func indexOf[T models.Entity](items []T, id string) int {
	for i, item := range items {
		if item.EntityID() == id {
			return i
		}
	}
	return -1
}
