package monitor

import "time"

type Status struct {
	PostgreSQL      bool      `json:"postgresql"`
	Redis           bool      `json:"redis"`
	RedisEnabled    bool      `json:"redis_enabled"`
	RealtimeClients int       `json:"realtime_clients"`
	LastCheck       time.Time `json:"last_check"`
}

// Healthy reports whether every configured dependency answered the last check.
func (s Status) Healthy() bool {
	return s.PostgreSQL && (!s.RedisEnabled || s.Redis)
}
