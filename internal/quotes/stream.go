// Package quotes maintains a live best bid/ask snapshot per ticker over a
// WebSocket feed. The snapshot is optional input to the capacity check; when
// the feed is down or stale the engine falls back to the bar-range proxy.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/crosscheck/internal/models"
)

// StreamClient handles the WebSocket connection to the quote feed
type StreamClient struct {
	conn            *websocket.Conn
	streamURL       string
	apiKey          string
	mu              sync.RWMutex
	isConnected     bool
	latest          map[string]models.Quote
	reconnectConfig ReconnectConfig
	lastMessageTime time.Time
	logger          *log.Logger
}

// ReconnectConfig controls reconnection behavior
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// quoteMessage represents a message from the quote feed
type quoteMessage struct {
	Op        string  `json:"op"`
	Ticker    string  `json:"ticker,omitempty"`
	Bid       float64 `json:"bid,omitempty"`
	Ask       float64 `json:"ask,omitempty"`
	Timestamp string  `json:"ts,omitempty"`
	Heartbeat bool    `json:"heartbeat,omitempty"`
}

// DefaultReconnectConfig returns default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// NewStreamClient creates a new quote stream client
func NewStreamClient(streamURL, apiKey string, logger *log.Logger) *StreamClient {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &StreamClient{
		streamURL:       streamURL,
		apiKey:          apiKey,
		latest:          make(map[string]models.Quote),
		reconnectConfig: DefaultReconnectConfig(),
		logger:          logger,
	}
}

// Connect establishes the WebSocket connection
func (s *StreamClient) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isConnected {
		return fmt.Errorf("already connected")
	}

	s.logger.Printf("Connecting to quote stream: %s", s.streamURL)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.streamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to quote stream: %w", err)
	}

	s.conn = conn
	s.isConnected = true
	s.lastMessageTime = time.Now()

	s.logger.Printf("Connected to quote stream")

	// Start message reading loop
	go s.readMessages()

	return nil
}

// ConnectWithRetry connects with exponential backoff
func (s *StreamClient) ConnectWithRetry(ctx context.Context) error {
	backoff := s.reconnectConfig.InitialBackoff

	var lastErr error
	for attempt := 0; attempt <= s.reconnectConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Printf("Reconnect attempt %d after %v", attempt, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}

			backoff = time.Duration(float64(backoff) * s.reconnectConfig.BackoffMultiplier)
			if backoff > s.reconnectConfig.MaxBackoff {
				backoff = s.reconnectConfig.MaxBackoff
			}
		}

		if lastErr = s.Connect(ctx); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("exhausted reconnect attempts: %w", lastErr)
}

// Subscribe subscribes to quotes for the given tickers
func (s *StreamClient) Subscribe(ctx context.Context, tickers []string) error {
	s.mu.RLock()
	if !s.isConnected || s.conn == nil {
		s.mu.RUnlock()
		return fmt.Errorf("not connected to quote stream")
	}
	s.mu.RUnlock()

	subMsg := map[string]interface{}{
		"op":        "subscribe",
		"apiKey":    s.apiKey,
		"tickers":   tickers,
		"heartbeat": true,
	}

	s.logger.Printf("Subscribing to %d tickers", len(tickers))
	return s.sendMessage(subMsg)
}

// Latest returns the most recent quote for a ticker, or nil if none has
// arrived yet.
func (s *StreamClient) Latest(ticker string) *models.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quote, ok := s.latest[ticker]
	if !ok {
		return nil
	}
	q := quote
	return &q
}

// readMessages reads messages from the WebSocket connection
func (s *StreamClient) readMessages() {
	defer s.Close()

	for {
		var raw json.RawMessage
		err := s.conn.ReadJSON(&raw)
		if err != nil {
			s.logger.Printf("Error reading quote message: %v", err)
			s.mu.Lock()
			s.isConnected = false
			s.mu.Unlock()
			return
		}

		var msg quoteMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Printf("Malformed quote message: %v", err)
			continue
		}

		s.mu.Lock()
		s.lastMessageTime = time.Now()
		s.mu.Unlock()

		if msg.Op != "quote" || msg.Heartbeat {
			continue
		}

		s.applyQuote(&msg)
	}
}

// applyQuote updates the snapshot for one ticker. Crossed or empty quotes
// are dropped rather than stored.
func (s *StreamClient) applyQuote(msg *quoteMessage) {
	if msg.Ticker == "" || msg.Bid <= 0 || msg.Ask <= msg.Bid {
		return
	}

	ts, err := time.Parse(time.RFC3339, msg.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Never replace a newer quote with an out-of-order older one
	if existing, ok := s.latest[msg.Ticker]; ok && existing.Time.After(ts) {
		return
	}

	s.latest[msg.Ticker] = models.Quote{
		Ticker: msg.Ticker,
		Bid:    msg.Bid,
		Ask:    msg.Ask,
		Time:   ts,
	}
}

// sendMessage sends a JSON message to the stream
func (s *StreamClient) sendMessage(msg interface{}) error {
	s.mu.RLock()
	if !s.isConnected || s.conn == nil {
		s.mu.RUnlock()
		return fmt.Errorf("not connected")
	}
	conn := s.conn
	s.mu.RUnlock()

	return conn.WriteJSON(msg)
}

// IsConnected returns whether the stream is connected
func (s *StreamClient) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// LastMessageTime returns the time of the last received message
func (s *StreamClient) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageTime
}

// Close closes the stream connection
func (s *StreamClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	s.isConnected = false
	return s.conn.Close()
}

// Ping sends a ping message to keep the connection alive
func (s *StreamClient) Ping() error {
	return s.sendMessage(map[string]interface{}{
		"op": "ping",
	})
}
