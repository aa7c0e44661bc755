package live

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/tilawa/backend/internal/metrics"
	"github.com/zhouzirui/tilawa/backend/pkg/utils"
)

const writeWait = 10 * time.Second

// Conn is one live websocket bound to a session. Writes are serialized.
type Conn struct {
	ID        string
	SessionID string

	ws *websocket.Conn
	mu sync.Mutex
}

// Send writes one JSON text frame.
func (c *Conn) Send(msg Outbound) error {
	data, err := utils.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Registry 维护所有活跃的实时连接
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]*Conn
	metrics *metrics.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{conns: make(map[string]*Conn), metrics: m}
}

// Register assigns the socket a fresh connection id.
func (r *Registry) Register(sessionID string, ws *websocket.Conn) *Conn {
	c := &Conn{ID: uuid.NewString(), SessionID: sessionID, ws: ws}

	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()

	r.metrics.ConnectionOpened()
	return c
}

// Unregister drops the connection; unknown ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	_, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()

	if ok {
		r.metrics.ConnectionClosed()
	}
}

// Get looks up a connection by id. A session's TransportRef may name a
// connection that has already gone away.
func (r *Registry) Get(id string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Len reports the number of open connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
