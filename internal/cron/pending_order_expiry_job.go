package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/marketplace-backend/internal/authz"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

const (
	defaultPendingTTL      = 72 * time.Hour
	defaultExpiryBatchSize = 100
	expiryReason           = "expired"
)

type pendingOrderFinder interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

type orderTransitioner interface {
	Transition(ctx context.Context, actor authz.Actor, input orders.TransitionInput) (*orders.OrderDTO, error)
}

type PendingOrderExpiryJobParams struct {
	Logger     *logger.Logger
	Finder     pendingOrderFinder
	Orders     orderTransitioner
	PendingTTL time.Duration
	BatchSize  int
}

// NewPendingOrderExpiryJob cancels orders left PENDING longer than the TTL, restoring their stock
// through the regular cancel transition.
func NewPendingOrderExpiryJob(params PendingOrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Finder == nil {
		return nil, fmt.Errorf("order finder required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &pendingOrderExpiryJob{
		logg:   params.Logger,
		finder: params.Finder,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type pendingOrderExpiryJob struct {
	logg   *logger.Logger
	finder pendingOrderFinder
	orders orderTransitioner
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *pendingOrderExpiryJob) Name() string { return "pending-order-expiry" }

func (j *pendingOrderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	ids, err := j.finder.FindPendingBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("find pending orders: %w", err)
	}

	var (
		errs     error
		canceled int
		skipped  int
	)
	actor := authz.SystemActor()
	for _, id := range ids {
		_, err := j.orders.Transition(ctx, actor, orders.TransitionInput{
			OrderID:       id,
			Action:        enums.OrderActionCancel,
			Reason:        expiryReason,
			RequireStatus: enums.OrderStatusPending,
		})
		switch {
		case err == nil:
			canceled++
		case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
			// moved on since the scan
			skipped++
		default:
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", id, err))
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"found":    len(ids),
		"canceled": canceled,
		"skipped":  skipped,
		"failed":   len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "pending order expiry complete")
	return errs
}
