package monitor

import (
	"context"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	postgresTimeout = 3 * time.Second
	redisTimeout    = 2 * time.Second
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientCounter reports the number of live realtime clients.
type ClientCounter interface {
	Len() int
}

// Deps lists the dependencies the monitor watches. Redis and Clients are optional.
type Deps struct {
	Postgres Pinger
	Redis    *redislib.Client
	Clients  ClientCounter
}

type Monitor struct {
	deps Deps

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(deps Deps, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		deps:     deps,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger.With(zap.String("component", "monitor")),
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	return m.GetStatus().Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Refresh checks every dependency now and stores the result.
func (m *Monitor) Refresh(ctx context.Context) Status {
	status := Status{
		PostgreSQL:   m.checkPostgres(ctx),
		Redis:        m.checkRedis(ctx),
		RedisEnabled: m.deps.Redis != nil,
		LastCheck:    time.Now(),
	}
	if m.deps.Clients != nil {
		status.RealtimeClients = m.deps.Clients.Len()
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if !previous.LastCheck.IsZero() && previous.PostgreSQL != status.PostgreSQL {
		if status.PostgreSQL {
			m.logger.Info("postgres reachable again")
		} else {
			m.logger.Warn("postgres unreachable")
		}
	}
	if status.RedisEnabled && !previous.LastCheck.IsZero() && previous.Redis != status.Redis {
		if status.Redis {
			m.logger.Info("redis reachable again")
		} else {
			m.logger.Warn("redis unreachable")
		}
	}
	return status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh(context.Background())
	for {
		select {
		case <-ticker.C:
			m.Refresh(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) checkPostgres(ctx context.Context) bool {
	if m.deps.Postgres == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, postgresTimeout)
	defer cancel()
	return m.deps.Postgres.Ping(ctx) == nil
}

func (m *Monitor) checkRedis(ctx context.Context) bool {
	if m.deps.Redis == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	return m.deps.Redis.Ping(ctx).Err() == nil
}
