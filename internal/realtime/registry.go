package realtime

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
)

var (
	// ErrTooManyClients is returned by Register when the optional connection ceiling is reached.
	ErrTooManyClients = errors.New("realtime: connection limit reached")
	// ErrRegistryClosed is returned by Register after Close.
	ErrRegistryClosed = errors.New("realtime: registry closed")
)

const defaultQueueSize = 16

// Options tunes the registry.
type Options struct {
	// MaxClients caps the membership set; 0 means unbounded.
	MaxClients int
	// QueueSize is the per-client backlog of undelivered frames.
	QueueSize int
}

// Registry tracks every open live connection and fans change events out to all of them.
// Membership changes and broadcast snapshots are serialized by mu; delivery happens on
// a snapshot so concurrent Register/Unregister never disturb an in-flight broadcast.
type Registry struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool

	opts   Options
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options, logger *zap.Logger) *Registry {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.MaxClients < 0 {
		opts.MaxClients = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		clients: make(map[*Client]struct{}),
		opts:    opts,
		logger:  logger.With(zap.String("component", "realtime_registry")),
	}
}

// Register adds conn to the membership set. The returned client receives every
// event broadcast from now on; the caller must start Client.Run to drain it.
func (r *Registry) Register(conn Conn) (*Client, error) {
	if conn == nil {
		return nil, errors.New("realtime: nil connection")
	}
	client := newClient(uuid.NewString(), conn, r, r.opts.QueueSize)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	if r.opts.MaxClients > 0 && len(r.clients) >= r.opts.MaxClients {
		r.mu.Unlock()
		return nil, ErrTooManyClients
	}
	r.clients[client] = struct{}{}
	size := len(r.clients)
	r.mu.Unlock()

	r.logger.Debug("client registered", zap.String("client_id", client.id), zap.Int("clients", size))
	return client, nil
}

// Unregister removes the client and closes its connection. Unknown or already
// removed clients are ignored.
func (r *Registry) Unregister(client *Client) {
	if client == nil || client.registry != r {
		return
	}

	r.mu.Lock()
	_, member := r.clients[client]
	delete(r.clients, client)
	size := len(r.clients)
	r.mu.Unlock()

	client.shutdown()

	if member {
		r.logger.Debug("client unregistered", zap.String("client_id", client.id), zap.Int("clients", size))
	}
}

// Broadcast serializes event once and queues it on every registered client.
// Clients that cannot accept the frame are unregistered; the caller never sees their failure.
func (r *Registry) Broadcast(event domain.ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("failed to encode change event", zap.String("action", string(event.Action)), zap.Error(err))
		return
	}

	clients := r.snapshot()
	var dropped []*Client
	for _, client := range clients {
		if !client.enqueue(payload) {
			dropped = append(dropped, client)
		}
	}

	for _, client := range dropped {
		r.logger.Warn("dropping unresponsive client", zap.String("client_id", client.id))
		r.Unregister(client)
	}

	r.logger.Debug("change event broadcast",
		zap.String("action", string(event.Action)),
		zap.Int64("task_id", event.Task.ID),
		zap.Int("delivered", len(clients)-len(dropped)),
		zap.Int("dropped", len(dropped)))
}

// Sweep pings every client and unregisters the ones whose connection is gone.
func (r *Registry) Sweep() int {
	removed := 0
	for _, client := range r.snapshot() {
		if err := client.conn.Ping(); err != nil {
			r.logger.Debug("ping failed", zap.String("client_id", client.id), zap.Error(err))
			r.Unregister(client)
			removed++
		}
	}
	return removed
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close unregisters every client and rejects further registrations.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	clients := r.snapshot()
	for _, client := range clients {
		r.Unregister(client)
	}
	r.logger.Info("registry closed", zap.Int("disconnected", len(clients)))
}

func (r *Registry) snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]*Client, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}
