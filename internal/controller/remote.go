package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/yourusername/chronos-console/internal/metrics"
	"github.com/yourusername/chronos-console/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Send pings to peer with this period
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 1024 * 1024
)

// RemoteBackend drives a controller reachable over a websocket
type RemoteBackend struct {
	url    string
	dialer *websocket.Dialer
	logger zerolog.Logger

	mu      sync.Mutex
	handler OutputHandler
	conn    *websocket.Conn
	running bool
	closing bool

	writeMu sync.Mutex
}

// NewRemoteBackend creates a backend for the websocket endpoint at url
func NewRemoteBackend(url string, logger zerolog.Logger) *RemoteBackend {
	return &RemoteBackend{
		url:    url,
		dialer: websocket.DefaultDialer,
		logger: logger.With().Str("component", "remote-backend").Str("url", url).Logger(),
	}
}

// SetOutputHandler sets the receiver of controller messages
func (b *RemoteBackend) SetOutputHandler(h OutputHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// Running reports the controller state last seen on the connection
func (b *RemoteBackend) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Start connects if needed and asks the controller to start
func (b *RemoteBackend) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return ErrAlreadyRunning
	}
	b.mu.Unlock()

	if err := b.connect(ctx); err != nil {
		return err
	}
	if err := b.write(protocol.NewCommandMessage(uuid.NewString(), "start", nil)); err != nil {
		return err
	}

	b.mu.Lock()
	b.running = true
	b.mu.Unlock()
	return nil
}

// Stop asks the controller to stop and closes the connection
func (b *RemoteBackend) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running || b.conn == nil {
		b.mu.Unlock()
		return ErrNotRunning
	}
	b.running = false
	b.closing = true
	conn := b.conn
	b.mu.Unlock()

	err := b.write(protocol.NewCommandMessage(uuid.NewString(), "stop", nil))

	b.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	b.writeMu.Unlock()
	conn.Close()

	if err != nil {
		return fmt.Errorf("failed to send stop: %w", err)
	}
	return nil
}

// Send forwards req as a command message
func (b *RemoteBackend) Send(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	connected := b.conn != nil
	b.mu.Unlock()
	if !connected {
		return ErrNotRunning
	}
	return b.write(protocol.NewCommandMessage(uuid.NewString(), req.Command, req.Args()))
}

// connect dials the controller unless a connection is already open
func (b *RemoteBackend) connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		return nil
	}

	conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("transport").Inc()
		return fmt.Errorf("failed to connect to controller: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	b.conn = conn
	b.closing = false
	b.logger.Info().Msg("Connected to controller")

	done := make(chan struct{})
	go b.readPump(conn, done)
	go b.pingLoop(conn, done)
	return nil
}

// readPump pumps messages from the connection to the output handler
func (b *RemoteBackend) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			b.disconnected(conn, err)
			return
		}

		msg, err := protocol.ParseOutbound(data)
		if err != nil {
			b.logger.Warn().Err(err).Msg("Invalid message from controller")
			continue
		}

		switch msg.Type {
		case protocol.TypePong, protocol.TypePing:
			continue
		case protocol.TypeStatus:
			b.mu.Lock()
			b.running = msg.Data == protocol.StateRunning
			b.mu.Unlock()
		case protocol.TypeResult:
			b.mu.Lock()
			b.running = false
			b.mu.Unlock()
		}
		b.emit(*msg)
	}
}

func (b *RemoteBackend) disconnected(conn *websocket.Conn, err error) {
	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	closing := b.closing
	wasRunning := b.running
	b.running = false
	b.mu.Unlock()
	conn.Close()

	if closing {
		b.logger.Info().Msg("Disconnected from controller")
		return
	}
	b.logger.Error().Err(err).Msg("Controller connection lost")
	metrics.ErrorsTotal.WithLabelValues("transport").Inc()
	if wasRunning {
		b.emit(protocol.NewErrorMessage(fmt.Sprintf("controller connection lost: %v", err)))
	}
}

// pingLoop keeps the connection alive until the read pump exits
func (b *RemoteBackend) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ping := protocol.InboundMessage{Type: protocol.TypePing, ID: uuid.NewString()}
			if err := b.writeTo(conn, ping); err != nil {
				return
			}
		}
	}
}

func (b *RemoteBackend) write(msg protocol.InboundMessage) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrNotRunning
	}
	return b.writeTo(conn, msg)
}

func (b *RemoteBackend) writeTo(conn *websocket.Conn, msg protocol.InboundMessage) error {
	data, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", msg.Command, err)
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		metrics.ErrorsTotal.WithLabelValues("transport").Inc()
		return fmt.Errorf("failed to write %s: %w", msg.Command, err)
	}
	return nil
}

func (b *RemoteBackend) emit(msg protocol.OutboundMessage) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h(msg)
	}
}
