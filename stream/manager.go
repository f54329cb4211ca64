// Package stream maintains the single WebSocket connection to the backend
// and fans incoming updates out to any number of in-process consumers.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sabbai/adapulse/core"
)

// Internal fan-out topics
const (
	TopicUpdates = "stream.updates"
	TopicStatus  = "stream.status"
)

// Status is a connection state change delivered to subscribers
type Status struct {
	Connected bool `json:"connected"`
}

// Subscription is one consumer's view of the stream. Messages arrive on C
// in the order they were read from the socket; connection state changes
// arrive on Status. Close releases the subscription.
type Subscription struct {
	C      <-chan core.StreamMessage
	Status <-chan Status

	cancel context.CancelFunc
}

// Close stops delivery to this subscription. Other subscriptions are
// unaffected.
func (s *Subscription) Close() {
	s.cancel()
}

// Manager owns the WebSocket connection. It dials once, reads frames into
// an internal pub/sub, and on any connection loss reconnects forever with
// the configured backoff. There is never more than one live socket.
type Manager struct {
	url     string
	backoff Backoff
	logger  *slog.Logger
	dialer  *websocket.Dialer

	pubSub *gochannel.GoChannel

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	writeMu   sync.Mutex

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a Manager
type Option func(*Manager)

// WithBackoff overrides the reconnect policy
func WithBackoff(b Backoff) Option {
	return func(m *Manager) { m.backoff = b }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a stream manager for the given WebSocket URL. The
// connection is not dialed until Start.
func NewManager(url string, opts ...Option) *Manager {
	m := &Manager{
		url:     url,
		backoff: FixedBackoff{Delay: DefaultReconnectDelay},
		logger:  slog.Default(),
		dialer:  websocket.DefaultDialer,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.pubSub = gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(m.logger),
	)
	return m
}

// Start launches the connection loop. Calling Start more than once is a
// no-op.
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.run(ctx)
	})
}

// Connected reports whether the socket is currently up
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Subscribe registers a new consumer. The first subscriber brings the
// connection up; later ones attach to it. The current connection state is
// delivered on Status immediately so late subscribers don't wait for the
// next transition.
func (m *Manager) Subscribe(ctx context.Context) (*Subscription, error) {
	select {
	case <-m.done:
		return nil, core.ErrStreamClosed
	default:
	}

	subCtx, cancel := context.WithCancel(ctx)

	updates, err := m.pubSub.Subscribe(subCtx, TopicUpdates)
	if err != nil {
		cancel()
		return nil, err
	}
	statuses, err := m.pubSub.Subscribe(subCtx, TopicStatus)
	if err != nil {
		cancel()
		return nil, err
	}

	msgCh := make(chan core.StreamMessage, 64)
	statusCh := make(chan Status, 8)

	go func() {
		defer close(msgCh)
		for msg := range updates {
			var parsed core.StreamMessage
			if err := json.Unmarshal(msg.Payload, &parsed); err != nil {
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case msgCh <- parsed:
			case <-subCtx.Done():
				return
			}
		}
	}()

	go func() {
		defer close(statusCh)
		for msg := range statuses {
			var status Status
			if err := json.Unmarshal(msg.Payload, &status); err != nil {
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case statusCh <- status:
			case <-subCtx.Done():
				return
			}
		}
	}()

	// Seed with the current state, then make sure the connection loop is
	// running; the first subscriber is what brings the socket up
	select {
	case statusCh <- Status{Connected: m.Connected()}:
	default:
	}
	m.Start(context.Background())

	return &Subscription{C: msgCh, Status: statusCh, cancel: cancel}, nil
}

// Send writes a text frame to the backend. Fails when the socket is down;
// callers decide whether to retry after the next reconnect.
func (m *Manager) Send(data []byte) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return core.ErrStreamNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Close tears down the connection and all subscriptions. Idempotent.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		m.mu.Lock()
		if m.conn != nil {
			m.conn.Close()
		}
		m.mu.Unlock()
		m.pubSub.Close()
	})
	return nil
}

// run is the connect/read/reconnect loop. It never gives up on its own;
// only ctx cancellation or Close ends it.
func (m *Manager) run(ctx context.Context) {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		default:
		}

		attempt++
		conn, _, err := m.dialer.DialContext(ctx, m.url, nil)
		if err != nil {
			m.logger.Warn("stream dial failed", "url", m.url, "attempt", attempt, "err", err)
			if !m.wait(ctx, m.backoff.Next(attempt)) {
				return
			}
			continue
		}

		m.logger.Info("stream connected", "url", m.url)
		attempt = 0
		m.setConn(conn, true)
		m.publishStatus(true)

		m.readLoop(ctx, conn)

		m.setConn(nil, false)
		m.publishStatus(false)
		conn.Close()

		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		default:
		}

		m.logger.Warn("stream disconnected, reconnecting", "url", m.url)
		if !m.wait(ctx, m.backoff.Next(1)) {
			return
		}
	}
}

// readLoop reads frames until the connection errors. Frames that are not
// valid JSON objects are dropped without disturbing the connection.
func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !json.Valid(data) {
			m.logger.Debug("dropping malformed stream frame", "size", len(data))
			continue
		}
		msg := message.NewMessage(uuid.NewString(), data)
		if err := m.pubSub.Publish(TopicUpdates, msg); err != nil {
			// Publish only fails once the pub/sub is closed
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		default:
		}
	}
}

func (m *Manager) setConn(conn *websocket.Conn, connected bool) {
	m.mu.Lock()
	m.conn = conn
	m.connected = connected
	m.mu.Unlock()
}

func (m *Manager) publishStatus(connected bool) {
	payload, err := json.Marshal(Status{Connected: connected})
	if err != nil {
		return
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	if err := m.pubSub.Publish(TopicStatus, msg); err != nil {
		m.logger.Debug("failed to publish stream status", "err", err)
	}
}

// wait sleeps for the given delay but wakes immediately on shutdown.
// Returns false when the manager should stop.
func (m *Manager) wait(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-m.done:
		return false
	}
}
