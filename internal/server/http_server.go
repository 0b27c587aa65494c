package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gigaz-dev/walker/internal/bot"
	"github.com/gigaz-dev/walker/internal/event"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// StatusProvider is the part of the supervisor manager the viewer reads.
type StatusProvider interface {
	StatusAll() map[string]bot.Stats
}

type HttpServer struct {
	logger   *slog.Logger
	server   *http.Server
	status   StatusProvider
	wsServer *WebSocketServer
	router   chi.Router

	sessionsMux sync.RWMutex
	sessions    map[string]SessionView
}

// SessionView is what the viewer knows about the session a supervisor is
// currently attached to.
type SessionView struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	StartedAt  time.Time `json:"startedAt"`
	AttachedAt time.Time `json:"attachedAt"`
}

type StatusData struct {
	Supervisors map[string]bot.Stats   `json:"supervisors"`
	Sessions    map[string]SessionView `json:"sessions"`
	Viewers     int                    `json:"viewers"`
}

var (
	errHubStopped = errors.New("viewer hub stopped")

	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	indexTemplate = template.Must(template.New("index").Parse(indexHTML))
)

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

type WebSocketServer struct {
	logger     *slog.Logger
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int32
}

func NewWebSocketServer(logger *slog.Logger) *WebSocketServer {
	return &WebSocketServer{
		logger:     logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is done, then drops every client.
func (s *WebSocketServer) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			for client := range s.clients {
				close(client.send)
				delete(s.clients, client)
			}
			s.count.Store(0)
			return
		case client := <-s.register:
			s.clients[client] = true
			s.count.Store(int32(len(s.clients)))
		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.count.Store(int32(len(s.clients)))
		case message := <-s.broadcast:
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					// slow reader
					close(client.send)
					delete(s.clients, client)
				}
			}
			s.count.Store(int32(len(s.clients)))
		}
	}
}

// Clients is the number of connected viewers.
func (s *WebSocketServer) Clients() int {
	return int(s.count.Load())
}

// Broadcast queues a message for every connected client. It gives up when
// ctx ends or the hub stopped.
func (s *WebSocketServer) Broadcast(ctx context.Context, message []byte) error {
	select {
	case <-s.done:
		return errHubStopped
	default:
	}

	select {
	case s.broadcast <- message:
		return nil
	case <-s.done:
		return errHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", slog.Any("error", err))
		return
	}

	client := &Client{conn: conn, send: make(chan []byte, 256)}
	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go s.writePump(client)
	go s.readPump(client)
}

func (s *WebSocketServer) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	client.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (s *WebSocketServer) readPump(client *Client) {
	defer func() {
		select {
		case s.unregister <- client:
		case <-s.done:
		}
		client.conn.Close()
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug("WebSocket read error", slog.Any("error", err))
			}
			return
		}
	}
}

func New(logger *slog.Logger, status StatusProvider) *HttpServer {
	s := &HttpServer{
		logger:   logger,
		status:   status,
		wsServer: NewWebSocketServer(logger),
		sessions: make(map[string]SessionView),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.getRoot)
	r.Get("/ws", s.wsServer.HandleWebSocket)
	r.Route("/status", func(r chi.Router) {
		r.Get("/", s.getStatus)
		r.Get("/{name}", s.getSupervisorStatus)
	})
	s.router = r
	s.server = &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}

	return s
}

func (s *HttpServer) Handler() http.Handler {
	return s.router
}

// Run drives the websocket hub; it must be running for Handle to deliver.
func (s *HttpServer) Run(ctx context.Context) {
	s.wsServer.Run(ctx)
}

// Handle is an event.Handler pushing every event to the connected viewers.
func (s *HttpServer) Handle(ctx context.Context, e event.Event) error {
	data, err := event.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.TypeName(e), err)
	}
	return s.wsServer.Broadcast(ctx, data)
}

// AttachSession records the session a supervisor is now driving. It is
// installed as the manager's session hook and runs once per spawn.
func (s *HttpServer) AttachSession(name string, session *bot.Session) {
	s.sessionsMux.Lock()
	s.sessions[name] = SessionView{
		ID:         session.ID,
		Username:   session.Username,
		StartedAt:  session.StartedAt,
		AttachedAt: time.Now(),
	}
	s.sessionsMux.Unlock()

	s.logger.Debug("Viewer attached to session",
		slog.String("supervisor", name),
		slog.String("session", session.ID))
}

func (s *HttpServer) statusData() StatusData {
	s.sessionsMux.RLock()
	sessions := make(map[string]SessionView, len(s.sessions))
	for name, v := range s.sessions {
		sessions[name] = v
	}
	s.sessionsMux.RUnlock()

	return StatusData{
		Supervisors: s.status.StatusAll(),
		Sessions:    sessions,
		Viewers:     s.wsServer.Clients(),
	}
}

func (s *HttpServer) getRoot(w http.ResponseWriter, r *http.Request) {
	data := s.statusData()
	names := make([]string, 0, len(data.Supervisors))
	for name := range data.Supervisors {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]bot.Stats, 0, len(names))
	for _, name := range names {
		rows = append(rows, data.Supervisors[name])
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, rows); err != nil {
		s.logger.Error("Failed to render index template", slog.Any("error", err))
	}
}

func (s *HttpServer) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.statusData())
}

func (s *HttpServer) getSupervisorStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	stats, found := s.status.StatusAll()[name]
	if !found {
		http.Error(w, "unknown supervisor", http.StatusNotFound)
		return
	}
	writeJSON(w, stats)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// Listen serves the viewer on host:port until Stop. Start failures come back
// immediately; the caller decides whether they matter.
func (s *HttpServer) Listen(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return fmt.Errorf("viewer listen: %w", err)
	}

	s.logger.Info("Viewer listening", slog.String("address", ln.Addr().String()))
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down. Called before Listen, it makes the later
// Serve return at once.
func (s *HttpServer) Stop() error {
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

const indexHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>walker</title></head>
<body>
<h1>walker</h1>
<table>
<tr><th>Supervisor</th><th>State</th><th>User</th><th>Sessions</th><th>Last termination</th><th>Last route</th></tr>
{{range .}}<tr><td>{{.SupervisorName}}</td><td>{{.State}}</td><td>{{.Username}}</td><td>{{.SessionsStarted}}</td><td>{{.LastTermination}}</td><td>{{.LastRoute}}</td></tr>
{{end}}</table>
<pre id="events"></pre>
<script>
const out = document.getElementById("events");
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = (m) => {
  const e = JSON.parse(m.data);
  out.textContent = "[" + e.supervisor + "] " + e.message + "\n" + out.textContent;
};
</script>
</body>
</html>
`
