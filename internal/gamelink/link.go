package gamelink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type handlerKey struct {
	channel string
	event   string
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// Link is the websocket connection to the game server. It dials once,
// keeps the connection alive with pings, reconnects with exponential
// backoff when the connection drops, and dispatches inbound frames to
// handlers registered per channel and event.
type Link struct {
	wsURL    string
	clientID string
	logger   *zap.Logger

	conn   *websocket.Conn
	state  State
	stateM sync.RWMutex

	handlers map[handlerKey]func(data []byte)
	stateCbs []stateCallbackEntry
	cbM      sync.RWMutex

	maxReconnectAttempts int
	reconnectDelay       time.Duration
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func New(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration, logger *zap.Logger) *Link {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Link{
		wsURL:                wsURL,
		clientID:             uuid.NewString(),
		logger:               logger,
		state:                StateDisconnected,
		handlers:             make(map[handlerKey]func(data []byte)),
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
	}
}

// On registers the handler for frames on channel carrying event. The last
// registration for a pair wins. Registrations made after Connect are
// picked up by the running listener.
func (l *Link) On(channel, event string, fn func(data []byte)) {
	l.cbM.Lock()
	l.handlers[handlerKey{channel: channel, event: event}] = fn
	l.cbM.Unlock()
}

func (l *Link) OnStateChange(cb StateCallback) int {
	l.cbM.Lock()
	defer l.cbM.Unlock()
	id := len(l.stateCbs) + 1
	l.stateCbs = append(l.stateCbs, stateCallbackEntry{id: id, callback: cb})
	return id
}

func (l *Link) Connect(ctx context.Context) error {
	l.stateM.Lock()
	if l.state == StateConnected || l.state == StateConnecting {
		l.stateM.Unlock()
		return nil
	}
	l.stateM.Unlock()

	l.rootCtx, l.rootCancel = context.WithCancel(context.Background())
	l.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, l.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		l.setState(StateFailed)
		l.scheduleReconnect()
		return err
	}

	l.stateM.Lock()
	l.conn = conn
	l.stateM.Unlock()
	l.setState(StateConnected)
	l.sendHello()

	l.wg.Add(2)
	go l.listen()
	go l.pingLoop()
	return nil
}

// Emit pushes a frame to the game server. A context with no deadline
// gets a 5 second one so a stalled peer never blocks a caller forever.
func (l *Link) Emit(ctx context.Context, channel, event string, payload any) error {
	l.stateM.RLock()
	conn, state := l.conn, l.state
	l.stateM.RUnlock()
	if conn == nil || state != StateConnected {
		return errors.New("game link not connected")
	}

	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s/%s payload: %w", channel, event, err)
		}
		data = b
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	return wsjson.Write(ctx, conn, Frame{Channel: channel, Event: event, Data: data})
}

func (l *Link) sendHello() {
	ctx, cancel := context.WithTimeout(l.rootCtx, 5*time.Second)
	defer cancel()
	if err := l.Emit(ctx, "/", "hello", helloPayload{ClientID: l.clientID}); err != nil {
		l.logger.Warn("hello frame failed", zap.Error(err))
	}
}

func (l *Link) listen() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stopCh:
			return
		default:
		}

		l.stateM.RLock()
		conn := l.conn
		l.stateM.RUnlock()
		if conn == nil {
			return
		}

		var frame Frame
		if err := wsjson.Read(l.rootCtx, conn, &frame); err != nil {
			if l.isStopping() {
				return
			}
			l.logger.Warn("game link read failed", zap.Error(err))
			l.setState(StateDisconnected)
			_ = l.closeConn(websocket.StatusGoingAway, "reconnect")
			l.scheduleReconnect()
			return
		}
		l.dispatch(&frame)
	}
}

// dispatch routes a frame to its handler. A panicking handler is
// contained so one bad event cannot take the listener down.
func (l *Link) dispatch(frame *Frame) {
	l.cbM.RLock()
	fn := l.handlers[handlerKey{channel: frame.Channel, event: frame.Event}]
	l.cbM.RUnlock()
	if fn == nil {
		l.logger.Debug("frame with no handler",
			zap.String("channel", frame.Channel), zap.String("event", frame.Event))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("frame handler panicked",
				zap.String("channel", frame.Channel), zap.String("event", frame.Event), zap.Any("panic", r))
		}
	}()
	fn(frame.Data)
}

func (l *Link) pingLoop() {
	defer l.wg.Done()
	t := time.NewTicker(l.pingInterval)
	defer t.Stop()
	consecutivePingFailures := 0
	for {
		select {
		case <-l.stopCh:
			return
		case <-t.C:
			l.stateM.RLock()
			conn := l.conn
			l.stateM.RUnlock()
			if conn == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(l.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				consecutivePingFailures++
				if consecutivePingFailures >= 2 {
					if l.isStopping() {
						return
					}
					l.setState(StateDisconnected)
					_ = l.closeConn(websocket.StatusGoingAway, "ping failure")
					l.scheduleReconnect()
					consecutivePingFailures = 0
				}
				continue
			}
			consecutivePingFailures = 0
		}
	}
}

func (l *Link) scheduleReconnect() {
	if l.maxReconnectAttempts <= 0 {
		return
	}
	l.setState(StateReconnecting)

	go func() {
		for attempt := 1; attempt <= l.maxReconnectAttempts; attempt++ {
			select {
			case <-l.stopCh:
				return
			case <-time.After(backoffDuration(attempt, l.reconnectDelay)):
			}

			dialCtx, cancel := context.WithTimeout(l.rootCtx, 10*time.Second)
			conn, _, err := websocket.Dial(dialCtx, l.wsURL, &websocket.DialOptions{
				CompressionMode: websocket.CompressionNoContextTakeover,
			})
			cancel()
			if err != nil {
				l.logger.Warn("game link redial failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}

			l.stateM.Lock()
			l.conn = conn
			l.stateM.Unlock()
			l.setState(StateConnected)
			l.sendHello()

			l.wg.Add(2)
			go l.listen()
			go l.pingLoop()
			return
		}
		l.setState(StateFailed)
	}()
}

func (l *Link) setState(state State) {
	l.stateM.Lock()
	l.state = state
	l.stateM.Unlock()

	l.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(l.stateCbs))
	copy(callbacks, l.stateCbs)
	l.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

// State reports the current link state.
func (l *Link) State() State {
	l.stateM.RLock()
	defer l.stateM.RUnlock()
	return l.state
}

func (l *Link) Close(ctx context.Context) error {
	l.stopOnce.Do(func() { close(l.stopCh) })
	_ = l.closeConn(websocket.StatusNormalClosure, "close")

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if l.rootCancel != nil {
			l.rootCancel()
		}
		return nil
	}
}

func (l *Link) closeConn(code websocket.StatusCode, reason string) error {
	l.stateM.Lock()
	conn := l.conn
	l.conn = nil
	l.stateM.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(code, reason)
}

func (l *Link) isStopping() bool {
	select {
	case <-l.stopCh:
		return true
	default:
		return false
	}
}

// backoffDuration doubles the base delay per attempt, capped at 32x.
func backoffDuration(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * base
}
