package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/config"
	"github.com/Arden28/flygasal-api/internal/database"
	"github.com/Arden28/flygasal-api/pkg/pkfare"
)

// orderReconciler applies a provider order status to a local booking
type orderReconciler interface {
	ReconcileOrderStatus(ctx context.Context, orderNum, providerStatus string) (bool, error)
}

// OrderStatusPoller periodically asks the provider for the status of
// bookings stuck in ISS_PRC and folds the answer into the local rows
type OrderStatusPoller struct {
	cron       *cron.Cron
	store      database.BookingStore
	gateway    pkfare.Gateway
	reconciler orderReconciler
	cfg        config.PollerConfig
	logger     *logrus.Logger
	now        func() time.Time

	mu      sync.Mutex
	running bool
}

// NewOrderStatusPoller creates a poller. Nothing runs until Start.
func NewOrderStatusPoller(cfg config.PollerConfig, store database.BookingStore, gateway pkfare.Gateway, reconciler orderReconciler, logger *logrus.Logger) *OrderStatusPoller {
	return &OrderStatusPoller{
		// Cron format: second minute hour day month weekday
		cron:       cron.New(cron.WithSeconds()),
		store:      store,
		gateway:    gateway,
		reconciler: reconciler,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Start schedules the poll job
func (p *OrderStatusPoller) Start() error {
	if _, err := p.cron.AddFunc(p.cfg.Schedule, p.pollJob); err != nil {
		return fmt.Errorf("failed to schedule order status poll: %w", err)
	}
	p.cron.Start()

	p.logger.WithFields(logrus.Fields{
		"schedule":    p.cfg.Schedule,
		"stale_after": p.cfg.StaleAfter.String(),
		"batch":       p.cfg.BatchSize,
	}).Info("Order status poller started")
	return nil
}

// Stop waits for a running poll to finish
func (p *OrderStatusPoller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
	p.logger.Info("Order status poller stopped")
}

func (p *OrderStatusPoller) pollJob() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		p.logger.Warn("Previous order status poll still running, skipping tick")
		return
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	if _, err := p.PollOnce(context.Background()); err != nil {
		p.logger.WithError(err).Error("Order status poll failed")
	}
}

// PollOnce checks one batch of stale bookings and returns how many changed.
// Per-booking failures are logged and left for the next tick.
func (p *OrderStatusPoller) PollOnce(ctx context.Context) (int, error) {
	startTime := p.now()
	cutoff := startTime.Add(-p.cfg.StaleAfter)

	bookings, err := p.store.ListStaleIssuing(ctx, cutoff, p.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, b := range bookings {
		changed := p.checkOrder(ctx, b.OrderNum)
		if changed {
			updated++
			continue
		}
		// Unchanged rows go to the back of the stale queue
		if err := p.store.MarkPolled(ctx, b.ID); err != nil {
			p.logger.WithError(err).WithField("order_num", b.OrderNum).Warn("Failed to mark booking polled")
		}
	}

	p.logger.WithFields(logrus.Fields{
		"checked":  len(bookings),
		"updated":  updated,
		"duration": time.Since(startTime).String(),
	}).Info("Order status poll completed")
	return updated, nil
}

// checkOrder polls one order and reports whether the local row changed
func (p *OrderStatusPoller) checkOrder(ctx context.Context, orderNum string) bool {
	entry := p.logger.WithField("order_num", orderNum)

	detail, err := p.gateway.OrderDetail(ctx, orderNum)
	if err != nil {
		if pe, ok := pkfare.AsProviderError(err); ok {
			entry.WithFields(logrus.Fields{
				"endpoint":      pe.Endpoint,
				"provider_code": pe.Code,
			}).Warn(pe.Message)
		} else {
			entry.WithError(err).Warn("Order detail poll failed")
		}
		return false
	}

	changed, err := p.reconciler.ReconcileOrderStatus(ctx, orderNum, detail.OrderStatus)
	if err != nil {
		entry.WithError(err).Warn("Failed to reconcile polled order status")
		return false
	}
	return changed
}
