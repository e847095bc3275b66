package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper pings live clients and drops those that no longer answer.
type Sweeper interface {
	Sweep() int
}

// Heartbeat periodically sweeps the live-update registry so half-open
// connections are noticed even when no task changes.
type Heartbeat struct {
	sweeper  Sweeper
	logger   *zap.Logger
	cron     *cron.Cron
	interval time.Duration
}

func NewHeartbeat(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *Heartbeat {
	if interval < time.Second {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	hb := &Heartbeat{
		sweeper:  sweeper,
		logger:   logger.With(zap.String("component", "heartbeat")),
		cron:     cron.New(cron.WithSeconds()),
		interval: interval,
	}

	schedule := fmt.Sprintf("@every %ds", int(interval.Seconds()))
	_, _ = hb.cron.AddFunc(schedule, func() { hb.Tick() })

	return hb
}

// Start launches the cron scheduler.
func (hb *Heartbeat) Start() {
	if hb == nil || hb.cron == nil {
		return
	}
	hb.cron.Start()
	hb.logger.Info("heartbeat started", zap.Duration("interval", hb.interval))
}

// Stop waits for a running sweep to finish or for ctx to end.
func (hb *Heartbeat) Stop(ctx context.Context) {
	if hb == nil || hb.cron == nil {
		return
	}
	stopCtx := hb.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	hb.logger.Info("heartbeat stopped")
}

// Tick runs a single sweep and returns how many clients were dropped.
func (hb *Heartbeat) Tick() int {
	if hb == nil || hb.sweeper == nil {
		return 0
	}
	dropped := hb.sweeper.Sweep()
	if dropped > 0 {
		hb.logger.Info("dropped unresponsive clients", zap.Int("count", dropped))
	}
	return dropped
}
