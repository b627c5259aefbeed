package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prudhvinik1/possync/internal/models"
	"github.com/prudhvinik1/possync/internal/repositories"
)

// pullTarget is one remote collection read during a pull.
type pullTarget struct {
	collection models.Collection
	order      repositories.OrderBy
	apply      func(e *Engine, ctx context.Context, rows []models.RemoteRow) error
}

var pullTargets = []pullTarget{
	{
		collection: models.CollectionProducts,
		order:      repositories.OrderBy{Column: "name"},
		apply:      (*Engine).replaceProducts,
	},
	{
		collection: models.CollectionSales,
		order:      repositories.OrderBy{Column: "created_at", Descending: true},
		apply:      (*Engine).replaceSales,
	},
	{
		collection: models.CollectionOrders,
		order:      repositories.OrderBy{Column: "created_at", Descending: true},
		apply:      (*Engine).replaceOrders,
	},
}

type pullRead struct {
	rows []models.RemoteRow
	err  error
}

// Pull refreshes the local views of shopID from the remote store. Reads run
// concurrently; each successful read replaces its view wholesale, so a pull
// with one failed read still applies the others. The shop profile is merged
// rather than replaced. A shop with no remote profile row is not an error.
func (e *Engine) Pull(ctx context.Context, shopID string) error {
	reads := make([]pullRead, len(pullTargets))
	var (
		shopRow models.RemoteRow
		shopErr error
	)

	var g errgroup.Group
	for i, target := range pullTargets {
		g.Go(func() error {
			rows, err := e.listRemote(ctx, target, shopID)
			reads[i] = pullRead{rows: rows, err: err}
			return err
		})
	}
	g.Go(func() error {
		shopRow, shopErr = e.getRemoteShop(ctx, shopID)
		if errors.Is(shopErr, repositories.ErrNotFound) {
			return nil
		}
		return shopErr
	})
	_ = g.Wait()

	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	var errs []error
	for i, target := range pullTargets {
		read := reads[i]
		if read.err == nil {
			read.err = target.apply(e, ctx, read.rows)
		}
		if read.err != nil {
			e.log.Warn("Pull read failed",
				zap.String("shop_id", shopID),
				zap.String("collection", string(target.collection)),
				zap.Error(read.err),
			)
			errs = append(errs, fmt.Errorf("pull %s: %w", target.collection, read.err))
		}
	}

	switch {
	case errors.Is(shopErr, repositories.ErrNotFound):
		e.log.Debug("No remote shop profile", zap.String("shop_id", shopID))
	case shopErr != nil:
		errs = append(errs, fmt.Errorf("pull %s: %w", models.ShopsTable, shopErr))
	default:
		if err := e.mergeShopProfile(ctx, shopRow); err != nil {
			errs = append(errs, fmt.Errorf("pull %s: %w", models.ShopsTable, err))
		}
	}

	return errors.Join(errs...)
}

// Reads run on errgroup goroutines, out of reach of the recover in SyncAll.
func recoverRead(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("remote read panicked: %v", r)
	}
}

func (e *Engine) listRemote(ctx context.Context, target pullTarget, shopID string) (rows []models.RemoteRow, err error) {
	defer recoverRead(&err)
	return e.remote.List(ctx, target.collection.Table(), shopID, target.order)
}

func (e *Engine) getRemoteShop(ctx context.Context, shopID string) (row models.RemoteRow, err error) {
	defer recoverRead(&err)
	return e.remote.GetShop(ctx, shopID)
}

func decodeRows[T any](rows []models.RemoteRow, from func(models.RemoteRow) (T, error)) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := from(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// replaceProducts keeps each product's device image path, which the remote
// schema does not carry.
func (e *Engine) replaceProducts(ctx context.Context, rows []models.RemoteRow) error {
	products, err := decodeRows(rows, models.ProductFromRow)
	if err != nil {
		return err
	}
	local, err := e.store.Products(ctx)
	if err != nil {
		return err
	}
	images := make(map[string]string, len(local))
	for _, p := range local {
		if p.ImageURI != "" {
			images[p.ID] = p.ImageURI
		}
	}
	for i := range products {
		products[i].ImageURI = images[products[i].ID]
	}
	return e.store.SetProducts(ctx, products)
}

func (e *Engine) replaceSales(ctx context.Context, rows []models.RemoteRow) error {
	sales, err := decodeRows(rows, models.SaleFromRow)
	if err != nil {
		return err
	}
	return e.store.SetSales(ctx, sales)
}

func (e *Engine) replaceOrders(ctx context.Context, rows []models.RemoteRow) error {
	orders, err := decodeRows(rows, models.OrderFromRow)
	if err != nil {
		return err
	}
	return e.store.SetOrders(ctx, orders)
}

func (e *Engine) mergeShopProfile(ctx context.Context, row models.RemoteRow) error {
	remote, err := models.ShopProfileFromRow(row)
	if err != nil {
		return err
	}
	local, _, err := e.store.ShopProfile(ctx)
	if err != nil {
		return err
	}
	return e.store.SetShopProfile(ctx, models.MergeShopProfile(local, remote))
}
