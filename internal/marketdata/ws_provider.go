package marketdata

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"signal-truth/internal/domain"
)

// WSConfig configures WSProvider behavior.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the backoff between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the per-message read deadline.
	ReadTimeout time.Duration
	// WriteTimeout is the deadline for control frames.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default streaming configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSProvider keeps the quote cache warm from a streaming feed. Each
// message is either a single quote object or an array of them, in the
// same payload shape the HTTP poller accepts. Refresh is a no-op: the
// read loop updates the cache continuously, and the evaluation loop
// just reads whatever is cached.
type WSProvider struct {
	endpoint string
	config   WSConfig
	cache    *quoteCache
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSProvider connects to the endpoint and starts the read and ping
// loops. The connection retries with capped backoff after any drop.
func NewWSProvider(ctx context.Context, endpoint string, config *WSConfig, logger *log.Logger) (*WSProvider, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	p := &WSProvider{
		endpoint: endpoint,
		config:   cfg,
		cache:    newQuoteCache(),
		logger:   logger,
		done:     make(chan struct{}),
	}

	if err := p.connect(ctx); err != nil {
		return nil, err
	}

	p.wg.Add(1)
	go p.readLoop()

	p.wg.Add(1)
	go p.pingLoop()

	return p, nil
}

// Compile-time interface check.
var _ Provider = (*WSProvider)(nil)

// connect establishes the WebSocket connection.
func (p *WSProvider) connect(ctx context.Context) error {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, p.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	p.conn = conn
	return nil
}

// Refresh satisfies Provider; the stream keeps the cache current.
func (p *WSProvider) Refresh(_ context.Context) error {
	if p.closed.Load() {
		return fmt.Errorf("provider closed")
	}
	return nil
}

// Quote returns the last streamed quote for symbol.
func (p *WSProvider) Quote(symbol string) (domain.MarketQuote, bool) {
	return p.cache.get(symbol)
}

// Close shuts down the stream and waits for the loops to exit.
func (p *WSProvider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.done)

	p.connMu.Lock()
	if p.conn != nil {
		p.conn.Close()
	}
	p.connMu.Unlock()

	p.wg.Wait()
	return nil
}

// readLoop consumes quote messages and reconnects on failure.
func (p *WSProvider) readLoop() {
	defer p.wg.Done()

	delay := p.config.ReconnectDelay
	for {
		conn := p.currentConn()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(p.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if p.closed.Load() {
				return
			}
			p.logger.Printf("quote stream read failed, reconnecting: %v", err)
			if !p.reconnect(&delay) {
				return
			}
			continue
		}
		delay = p.config.ReconnectDelay

		p.handleMessage(message)
	}
}

// handleMessage decodes one message into cache entries. Malformed
// messages are dropped; the last good quotes stay served.
func (p *WSProvider) handleMessage(message []byte) {
	quotes, err := normalizeQuotes(message, time.Now().UTC())
	if err != nil {
		p.logger.Printf("dropping malformed quote message: %v", err)
		return
	}
	for _, q := range quotes {
		p.cache.put(q)
	}
}

// pingLoop keeps the connection alive.
func (p *WSProvider) pingLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			conn := p.currentConn()
			if conn == nil {
				continue
			}
			deadline := time.Now().Add(p.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil && !p.closed.Load() {
				p.logger.Printf("quote stream ping failed: %v", err)
			}
		}
	}
}

// reconnect redials with capped exponential backoff. Returns false when
// the provider is closing.
func (p *WSProvider) reconnect(delay *time.Duration) bool {
	for {
		select {
		case <-p.done:
			return false
		case <-time.After(*delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := p.connect(ctx)
		cancel()
		if err == nil {
			return true
		}

		p.logger.Printf("quote stream reconnect failed: %v", err)
		*delay *= 2
		if *delay > p.config.MaxReconnectDelay {
			*delay = p.config.MaxReconnectDelay
		}
	}
}

func (p *WSProvider) currentConn() *websocket.Conn {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	return p.conn
}
