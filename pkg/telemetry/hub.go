// Package telemetry streams drive records to websocket clients.
package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/drive"
)

const (
	QueueDepth   = 64
	writeTimeout = time.Second
)

// Hub broadcasts every record it is given to all connected clients as JSON.
// Records are queued so that Record never blocks; when the queue is full they
// are dropped.
type Hub struct {
	log      logrus.FieldLogger
	queue    chan drive.Record
	upgrader websocket.Upgrader

	lock    sync.Mutex
	clients map[*websocket.Conn]bool
	dropped int
}

var _ drive.Sink = (*Hub)(nil)

func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		log:   log.WithField("component", "telemetry"),
		queue: make(chan drive.Record, QueueDepth),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: map[*websocket.Conn]bool{},
	}
}

func (h *Hub) Record(r drive.Record) {
	select {
	case h.queue <- r:
	default:
		h.lock.Lock()
		h.dropped++
		h.lock.Unlock()
	}
}

// Loop sends queued records to the clients until the context is done, then
// disconnects them.
func (h *Hub) Loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case r := <-h.queue:
			h.broadcast(r)
		}
	}
}

func (h *Hub) broadcast(r drive.Record) {
	data, err := json.Marshal(r)
	if err != nil {
		h.log.WithError(err).Warn("Skipping record that cannot be encoded")
		return
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	for client := range h.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.WithError(err).Info("Dropping telemetry client")
			client.Close()
			delete(h.clients, client)
		}
	}
}

func (h *Hub) closeAll() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

func (h *Hub) NumClients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and keeps it registered until
// the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	h.lock.Lock()
	h.clients[ws] = true
	h.lock.Unlock()
	h.log.WithField("remote", r.RemoteAddr).Info("Telemetry client connected")

	for {
		// Nothing is expected from the client; reading notices it leaving.
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.lock.Lock()
	if h.clients[ws] {
		ws.Close()
		delete(h.clients, ws)
	}
	h.lock.Unlock()
}

// Serve runs an HTTP server with the hub on /ws until the context is done.
func (h *Hub) Serve(ctx context.Context, listen string, wg *sync.WaitGroup) {
	defer wg.Done()

	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	srv := &http.Server{Addr: listen, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	h.log.WithField("listen", listen).Info("Serving telemetry")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		h.log.WithError(err).Error("Telemetry server failed")
	}
}
