// Package degrade keeps enrichment batches moving when external
// providers fail. Provider calls run under a per-stage circuit breaker
// and a call timeout; any failure is logged with its error class and
// reported to the caller, which substitutes the stage's neutral
// fallback instead of aborting the batch.
package degrade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sn3fru/silvanews-sub000/pkg/alert"
	"github.com/sn3fru/silvanews-sub000/pkg/config"
	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

// Stage names the provider-backed enrichment stages that can degrade.
const (
	StageExtraction = "entity_extraction"
	StageEmbedding  = "embedding"
	StageDecision   = "cluster_decision"
)

// Controller mediates every provider call made during enrichment.
type Controller struct {
	logger   *slog.Logger
	alerter  alert.Alerter
	timeout  time.Duration
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewController(cfg config.BreakerConfig, timeout time.Duration, alerter alert.Alerter, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if alerter == nil {
		alerter = &alert.NoOpAlerter{}
	}

	c := &Controller{
		logger:   logger,
		alerter:  alerter,
		timeout:  timeout,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
	if cfg.Enabled {
		for _, stage := range []string{StageExtraction, StageEmbedding, StageDecision} {
			c.breakers[stage] = c.newBreaker(cfg, stage)
		}
	}
	return c
}

func (c *Controller) newBreaker(cfg config.BreakerConfig, stage string) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{
		Name:        stage,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change",
				"stage", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				subject := fmt.Sprintf("URGENT: Circuit Breaker Tripped - %s", name)
				msg := fmt.Sprintf("Circuit breaker %q changed from %s to %s. Too many provider failures.", name, from, to)
				if err := c.alerter.Alert(subject, msg); err != nil {
					c.logger.Error("sending breaker alert", "stage", name, "error", err)
				}
			}
		},
	}
	return gobreaker.NewCircuitBreaker(st)
}

// Run executes fn for the given stage under the stage's breaker and the
// controller's call timeout. A non-nil return means the stage degraded
// for this article; the failure is already logged with its error class
// and the caller substitutes the stage's neutral fallback.
func (c *Controller) Run(ctx context.Context, stage, articleID string, fn func(ctx context.Context) error) error {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var err error
	if breaker, ok := c.breakers[stage]; ok {
		_, err = breaker.Execute(func() (any, error) {
			return nil, fn(callCtx)
		})
	} else {
		err = fn(callCtx)
	}
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = types.NewEnrichmentError(types.ErrProviderUnavailable, stage, articleID, err)
	}
	c.logger.Warn("enrichment stage degraded",
		"article_id", articleID,
		"stage", stage,
		"error_class", string(types.ClassOf(err)),
		"error", err)
	return err
}
