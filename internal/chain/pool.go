package chain

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// PoolConfig holds the handful of connection pool tuning knobs this
// pipeline actually varies.
type PoolConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
	KeepAlive           time.Duration
}

// DefaultPoolConfig returns production-grade pool defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:        128,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		KeepAlive:           30 * time.Second,
	}
}

// Pool manages HTTP transports/clients keyed by a logical upstream
// name: every caller asking for the same name reuses one client and
// its transport, while each distinct name (e.g. the RPC client and the
// oracle client) gets a transport of its own (adapted from
// provider/pool.go).
type Pool struct {
	mu         sync.Mutex
	transports map[string]*http.Transport
	clients    map[string]*http.Client
	defaults   PoolConfig
}

// NewPool builds a pool with the given defaults.
func NewPool(defaults PoolConfig) *Pool {
	return &Pool{
		transports: make(map[string]*http.Transport),
		clients:    make(map[string]*http.Client),
		defaults:   defaults,
	}
}

// GetClient returns the shared client for name, creating it with
// timeout on first access.
func (p *Pool) GetClient(name string, timeout time.Duration) *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[name]; ok {
		return c
	}

	dialer := &net.Dialer{Timeout: p.defaults.DialTimeout, KeepAlive: p.defaults.KeepAlive}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        p.defaults.MaxIdleConns,
		MaxIdleConnsPerHost: p.defaults.MaxIdleConnsPerHost,
		IdleConnTimeout:     p.defaults.IdleConnTimeout,
	}
	p.transports[name] = transport

	client := &http.Client{Transport: transport, Timeout: timeout}
	p.clients[name] = client
	return client
}

// Close releases idle connections across every tracked transport.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.transports {
		t.CloseIdleConnections()
	}
}
