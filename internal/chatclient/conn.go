// Package chatclient is the client side of a room chat: one streaming
// connection per room view, an ingest pipeline that suppresses immediate
// repeats, and the ordered message log the view renders.
//
// Every RoomConnection is owned by a single goroutine. Inbound frames, sends
// and close requests are serialized through it, and the registered handlers
// are called from it one event at a time, in arrival order.
package chatclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bytetube/bytetube-chat/internal/models"
)

// sendBuffer is the hand-off between Send and the owner goroutine.
const sendBuffer = 32

// RoomConnection is the chat connection of one room view.
type RoomConnection struct {
	roomID string
	url    string

	state     atomic.Int32
	announced State // last state reported to onState; owner goroutine only

	log      *MessageLog
	pipeline *Pipeline

	dial      DialFunc
	logger    *slog.Logger
	onState   func(State)
	onMessage func(models.ChatMessage)
	now       func() time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	sendCh    chan models.ChatMessage
	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a RoomConnection.
type Option func(*RoomConnection)

// WithDialer replaces the websocket dialer.
func WithDialer(d DialFunc) Option {
	return func(rc *RoomConnection) { rc.dial = d }
}

// WithClock sets the clock used for duplicate detection.
func WithClock(now func() time.Time) Option {
	return func(rc *RoomConnection) { rc.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(rc *RoomConnection) { rc.logger = l }
}

// OnState registers the handler called on every state transition.
func OnState(fn func(State)) Option {
	return func(rc *RoomConnection) { rc.onState = fn }
}

// OnMessage registers the handler called after each append to the log.
func OnMessage(fn func(models.ChatMessage)) Option {
	return func(rc *RoomConnection) { rc.onMessage = fn }
}

// Open starts connecting to the room endpoint derived from baseURL and returns
// immediately in the Connecting state. Handshake failures are reported only by
// the connection moving to Closed. Cancelling ctx has the same effect as Close.
func Open(ctx context.Context, baseURL, roomID string, opts ...Option) *RoomConnection {
	rc := &RoomConnection{
		roomID:    roomID,
		url:       RoomURL(baseURL, roomID),
		announced: StateConnecting,
		log:       NewMessageLog(),
		logger:    slog.Default(),
		sendCh:    make(chan models.ChatMessage, sendBuffer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.dial == nil {
		rc.dial = WebsocketDialer(0)
	}
	rc.pipeline = NewPipeline(rc.log, rc.now)
	rc.state.Store(int32(StateConnecting))
	rc.ctx, rc.cancel = context.WithCancel(ctx)

	go rc.run()
	return rc
}

// RoomID returns the room this connection is scoped to.
func (rc *RoomConnection) RoomID() string { return rc.roomID }

// State returns the current connection state.
func (rc *RoomConnection) State() State { return State(rc.state.Load()) }

// Log returns the room's message log.
func (rc *RoomConnection) Log() *MessageLog { return rc.log }

// Done is closed once the underlying connection has been released.
func (rc *RoomConnection) Done() <-chan struct{} { return rc.done }

// Send transmits m verbatim if the connection is open and drops it otherwise.
// It never blocks on the network.
func (rc *RoomConnection) Send(m models.ChatMessage) {
	if rc.State() != StateOpen {
		return
	}
	select {
	case rc.sendCh <- m:
	default:
		rc.logger.Warn("chat send buffer full, dropping message", "room", rc.roomID)
	}
}

// Close moves the connection to Closed and releases the transport. Safe to
// call more than once and from any goroutine.
func (rc *RoomConnection) Close() {
	rc.closeOnce.Do(func() {
		rc.state.Store(int32(StateClosed))
		rc.cancel()
	})
}

func (rc *RoomConnection) run() {
	defer close(rc.done)
	defer rc.cancel()

	conn, err := rc.dial(rc.ctx, rc.url)
	if err != nil {
		rc.logger.Warn("chat handshake failed", "room", rc.roomID, "url", rc.url, "error", err)
		rc.finish()
		return
	}
	if !rc.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) || rc.ctx.Err() != nil {
		conn.Close()
		rc.finish()
		return
	}
	rc.notify(StateOpen)
	rc.logger.Info("chat connected", "room", rc.roomID)

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go rc.readLoop(conn, frames, readErr)

	defer func() {
		conn.Close()
		rc.finish()
	}()

	for {
		select {
		case <-rc.ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case err := <-readErr:
			rc.logger.Info("chat connection lost", "room", rc.roomID, "error", err)
			return
		case raw := <-frames:
			if rc.ctx.Err() != nil {
				return
			}
			rc.ingest(raw)
		case m := <-rc.sendCh:
			if rc.ctx.Err() != nil {
				return
			}
			if err := rc.write(conn, m); err != nil {
				rc.logger.Info("chat write failed", "room", rc.roomID, "error", err)
				return
			}
		}
	}
}

// readLoop only forwards text frames; it never touches the log.
func (rc *RoomConnection) readLoop(conn Conn, frames chan<- []byte, readErr chan<- error) {
	for {
		mt, raw, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		select {
		case frames <- raw:
		case <-rc.ctx.Done():
			return
		}
	}
}

func (rc *RoomConnection) ingest(raw []byte) {
	m, appended, err := rc.pipeline.Ingest(raw)
	if err != nil {
		rc.logger.Warn("dropping inbound chat frame", "room", rc.roomID, "error", err)
		return
	}
	if !appended {
		rc.logger.Debug("suppressed repeated chat message", "room", rc.roomID, "user", m.User)
		return
	}
	if rc.onMessage != nil {
		rc.onMessage(m)
	}
}

func (rc *RoomConnection) write(conn Conn, m models.ChatMessage) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (rc *RoomConnection) finish() {
	rc.state.Store(int32(StateClosed))
	rc.notify(StateClosed)
}

func (rc *RoomConnection) notify(s State) {
	if s == rc.announced {
		return
	}
	rc.announced = s
	if rc.onState != nil {
		rc.onState(s)
	}
}
