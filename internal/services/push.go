package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prudhvinik1/possync/internal/models"
)

// Flush makes one FIFO pass over the queue, pushing each due item to the
// remote store on behalf of shopID. A failing item is carried forward with
// its retry count bumped until the policy gives up on it; it never stops
// the pass. When the remote store is unreachable the queue is left as is.
// Only a failure to persist the queue is returned as an error.
func (e *Engine) Flush(ctx context.Context, shopID string) (models.FlushReport, error) {
	if !e.conn.Reachable(ctx) {
		return models.FlushReport{Skipped: true}, nil
	}

	lock := e.shopLock(shopID)
	lock.Lock()
	defer lock.Unlock()

	snapshot, err := e.queue.Items(ctx)
	if err != nil {
		return models.FlushReport{}, fmt.Errorf("failed to load queue: %w", err)
	}

	var report models.FlushReport
	if len(snapshot) == 0 {
		return report, nil
	}

	now := e.now()
	remaining := make([]models.QueueItem, 0, len(snapshot))
	var dropped []models.DroppedItem

	for i, item := range snapshot {
		if ctx.Err() != nil {
			// Not attempted: keep the rest untouched
			remaining = append(remaining, snapshot[i:]...)
			break
		}
		if !item.Due(now) {
			report.Deferred++
			remaining = append(remaining, item)
			continue
		}

		report.Attempted++
		err := e.pushItem(ctx, shopID, item)
		if err == nil {
			report.Pushed++
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			report.Attempted--
			remaining = append(remaining, snapshot[i:]...)
			break
		}

		if item.RetryCount < e.retry.MaxRetries {
			item.RetryCount++
			item.LastError = err.Error()
			item.NextAttemptAt = e.retry.nextAttempt(item.RetryCount, now)
			remaining = append(remaining, item)
			report.Retried++
			e.log.Info("Push failed, will retry",
				zap.String("item_id", item.ID),
				zap.String("collection", string(item.Collection)),
				zap.Int("retry_count", item.RetryCount),
				zap.Error(err),
			)
			continue
		}

		report.Dropped++
		dropped = append(dropped, models.DroppedItem{Item: item, Reason: err.Error(), DroppedAt: now})
		e.log.Warn("Dropping queue item after exhausting retries",
			zap.String("item_id", item.ID),
			zap.String("collection", string(item.Collection)),
			zap.String("operation", string(item.Operation)),
			zap.Int("retry_count", item.RetryCount),
			zap.Error(err),
		)
	}

	// The pass already happened remotely; persist it even if ctx is done.
	persistCtx := context.WithoutCancel(ctx)
	n, err := e.queue.Commit(persistCtx, snapshot, remaining)
	if err != nil {
		return report, fmt.Errorf("failed to persist queue: %w", err)
	}
	report.Remaining = n

	if err := e.store.AppendDropped(persistCtx, dropped...); err != nil {
		e.log.Error("Failed to record dropped items", zap.Int("count", len(dropped)), zap.Error(err))
	}
	return report, nil
}

func (e *Engine) pushItem(ctx context.Context, shopID string, item models.QueueItem) error {
	table := item.Collection.Table()

	switch item.Operation {
	case models.OperationInsert, models.OperationUpdate:
		row, err := models.RecordToRow(item.Collection, item.Payload, shopID)
		if err != nil {
			return err
		}
		return e.remote.Upsert(ctx, table, row)
	case models.OperationDelete:
		id, err := models.PayloadID(item.Payload)
		if err != nil {
			return err
		}
		return e.remote.Delete(ctx, table, id, shopID)
	default:
		return fmt.Errorf("%w: %q", models.ErrInvalidOperation, item.Operation)
	}
}
