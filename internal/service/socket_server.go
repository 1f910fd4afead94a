package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"kiosco_escolar_backend/internal/config"
	"kiosco_escolar_backend/pkg/logger"
	"kiosco_escolar_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 * 1024 // SYNC_PROGRESS batches can be large
	onlineTTL      = 2 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SocketHub tracks the live connections of this process and mirrors their
// online state into Redis with a TTL, so presence survives an unclean exit
// by simply expiring. The hub never touches protocol framing; sessions do.
type SocketHub struct {
	mu       sync.RWMutex
	sessions map[*SocketSession]*wsTransport

	Redis *redis.Client
	deps  SocketDeps
	cfg   config.SocketConfig
	ctx   context.Context
	done  chan struct{}
}

func NewSocketHub(rdb *redis.Client, deps SocketDeps, cfg config.SocketConfig) *SocketHub {
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = cfg.HistoryLimit
	}
	h := &SocketHub{
		sessions: make(map[*SocketSession]*wsTransport),
		Redis:    rdb,
		deps:     deps,
		cfg:      cfg,
		ctx:      context.Background(),
		done:     make(chan struct{}),
	}
	if h.deps.Presence == nil {
		h.deps.Presence = h
	}
	return h
}

func onlineKey(userID uint) string {
	return fmt.Sprintf("kiosco:online:%d", userID)
}

// Run renews presence keys for authenticated sessions until Stop is called.
func (h *SocketHub) Run() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.refreshPresence()
		case <-h.done:
			return
		}
	}
}

// refreshPresence re-arms the TTL of every authenticated session's online
// key and republishes the gauge. Sessions still in the AUTH handshake have
// no identity yet and are skipped.
func (h *SocketHub) refreshPresence() {
	h.mu.RLock()
	var ids []uint
	for session := range h.sessions {
		if identity := session.Identity(); identity != nil {
			ids = append(ids, identity.ID)
		}
	}
	h.mu.RUnlock()

	monitoring.SocketOnline.Set(float64(len(ids)))

	if h.Redis == nil || len(ids) == 0 {
		return
	}
	pipe := h.Redis.Pipeline()
	for _, id := range ids {
		pipe.Set(h.ctx, onlineKey(id), "1", onlineTTL)
	}
	if _, err := pipe.Exec(h.ctx); err != nil {
		logger.Log.Error("presence refresh failed", zap.Error(err))
	}
}

func (h *SocketHub) register(session *SocketSession, transport *wsTransport) {
	h.mu.Lock()
	h.sessions[session] = transport
	h.mu.Unlock()
}

func (h *SocketHub) unregister(session *SocketSession) {
	h.mu.Lock()
	delete(h.sessions, session)
	h.mu.Unlock()

	if identity := session.Identity(); identity != nil {
		if h.Redis != nil {
			h.Redis.Del(h.ctx, onlineKey(identity.ID))
		}
		monitoring.SocketOnline.Dec()
	}
}

// MarkOnline publishes a just-authenticated user's presence immediately
// instead of waiting for the next heartbeat tick.
func (h *SocketHub) MarkOnline(userID uint) {
	monitoring.SocketOnline.Inc()
	if h.Redis != nil {
		h.Redis.Set(h.ctx, onlineKey(userID), "1", onlineTTL)
	}
}

// IsUserOnline checks the local session table first and falls back to the
// Redis key, which covers the TTL window after an unclean disconnect.
func (h *SocketHub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	for session := range h.sessions {
		if identity := session.Identity(); identity != nil && identity.ID == userID {
			h.mu.RUnlock()
			return true
		}
	}
	h.mu.RUnlock()

	if h.Redis == nil {
		return false
	}
	val, err := h.Redis.Get(h.ctx, onlineKey(userID)).Result()
	return err == nil && val == "1"
}

// Stop closes every connection and clears the presence keys.
func (h *SocketHub) Stop() {
	logger.Log.Info("socket hub stopping: closing connections and clearing presence")
	close(h.done)

	h.mu.Lock()
	var ids []uint
	closed := 0
	for session, transport := range h.sessions {
		if identity := session.Identity(); identity != nil {
			ids = append(ids, identity.ID)
		}
		transport.Close()
		delete(h.sessions, session)
		closed++
	}
	h.mu.Unlock()

	if h.Redis != nil && len(ids) > 0 {
		pipe := h.Redis.Pipeline()
		for _, id := range ids {
			pipe.Del(h.ctx, onlineKey(id))
		}
		pipe.Exec(h.ctx)
	}

	monitoring.SocketOnline.Set(0)
	logger.Log.Info("socket hub stopped", zap.Int("closedConnections", closed))
}

// wsTransport adapts one gorilla connection to the Transport interface. All
// writes funnel through a buffered channel drained by writePump; a full
// buffer drops the frame rather than blocking a broadcast.
type wsTransport struct {
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	closed  int32
	limiter *rate.Limiter
}

func (t *wsTransport) Send(payload []byte) bool {
	if !t.IsOpen() || payload == nil {
		return false
	}
	select {
	case t.send <- payload:
		return true
	default:
		return false
	}
}

func (t *wsTransport) Close() {
	if atomic.CompareAndSwapInt32(&t.closed, 0, 1) {
		close(t.done)
		t.conn.Close()
	}
}

func (t *wsTransport) IsOpen() bool {
	return atomic.LoadInt32(&t.closed) == 0
}

func (t *wsTransport) readPump(hub *SocketHub, session *SocketSession) {
	defer func() {
		hub.unregister(session)
		t.Close()
		session.OnDisconnect()
	}()
	t.conn.SetReadLimit(maxMessageSize)
	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error { t.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("websocket unexpected close", zap.Error(err))
			}
			break
		}

		if !t.limiter.Allow() {
			continue
		}

		session.HandleFrame(message)
	}
}

func (t *wsTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()
	for {
		select {
		case message := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := t.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-t.done:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			t.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// ServeWs upgrades the request and starts the per-connection pumps. The
// connection is anonymous until its in-socket AUTH completes.
func (h *SocketHub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	transport := &wsTransport{
		conn:    conn,
		send:    make(chan []byte, h.cfg.SendBufferSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSec), h.cfg.MessageBurst),
	}

	go transport.writePump()

	session := NewSocketSession(transport, h.deps)
	h.register(session, transport)

	go transport.readPump(h, session)
}
