package telemetry

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jsm174/libaltsound/internal/log"
)

// WebSocketSink serves /ws and fans each published Snapshot out to
// every connected client as JSON, mirroring the teacher's
// WebSocketTransport broadcast/client-map shape.
type WebSocketSink struct {
	addr      string
	logger    *log.Logger
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan Snapshot
	server    *http.Server
	done      chan struct{}
}

// NewWebSocketSink starts an HTTP server on addr exposing /ws.
func NewWebSocketSink(addr string, logger *log.Logger) *WebSocketSink {
	w := &WebSocketSink{
		addr:   addr,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Snapshot, 256),
		done:      make(chan struct{}),
	}
	w.start()
	return w
}

func (w *WebSocketSink) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", w.handleWebSocket)
	w.server = &http.Server{Addr: w.addr, Handler: mux}

	go func() {
		w.logger.Infof("telemetry: websocket sink listening on %s", w.addr)
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			w.logger.Errorf("telemetry: websocket server error: %v", err)
		}
	}()
	go w.run()
}

func (w *WebSocketSink) handleWebSocket(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Errorf("telemetry: websocket upgrade: %v", err)
		return
	}

	w.clientsMu.Lock()
	w.clients[conn] = true
	w.clientsMu.Unlock()

	go func() {
		_, _, err := conn.ReadMessage()
		if err != nil {
			w.clientsMu.Lock()
			delete(w.clients, conn)
			w.clientsMu.Unlock()
			conn.Close()
		}
	}()
}

func (w *WebSocketSink) run() {
	for {
		select {
		case snap := <-w.broadcast:
			w.clientsMu.Lock()
			for client := range w.clients {
				if err := client.WriteJSON(snap); err != nil {
					client.Close()
					delete(w.clients, client)
				}
			}
			w.clientsMu.Unlock()
		case <-w.done:
			return
		}
	}
}

// Publish queues a snapshot for broadcast, dropping it silently if
// the channel is full.
func (w *WebSocketSink) Publish(s Snapshot) {
	select {
	case w.broadcast <- s:
	default:
	}
}

// Close shuts down the websocket server and every open connection.
func (w *WebSocketSink) Close() error {
	close(w.done)

	w.clientsMu.Lock()
	for client := range w.clients {
		client.Close()
	}
	w.clients = make(map[*websocket.Conn]bool)
	w.clientsMu.Unlock()

	if w.server != nil {
		return w.server.Close()
	}
	return nil
}

var _ Sink = (*WebSocketSink)(nil)
