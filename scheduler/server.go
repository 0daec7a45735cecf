package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/devskill-org/weatherdisplay/utils"
)

// WebServer serves the rendered display and pushes updates to connected displays
type WebServer struct {
	station   *Station
	server    *http.Server
	port      int
	startTime time.Time
	upgrader  websocket.Upgrader
	clients   sync.Map // *wsClient -> struct{}
	broadcast chan []byte
	done      chan struct{}
	stopOnce  sync.Once
	logger    *zap.Logger
}

// wsClient serializes writes to one websocket connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Station   StationStatus `json:"station"`
	System    SystemHealth  `json:"system"`
}

// SystemHealth represents system-level health information
type SystemHealth struct {
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines"`
	Clients    int    `json:"clients"`
}

// UpdateMessage is pushed to websocket clients after every display update.
type UpdateMessage struct {
	Type   string     `json:"type"`
	Result *RunResult `json:"result"`
}

// Version is reported by the health endpoint.
const Version = "1.0.0"

// NewWebServer creates a new web server for the station
func NewWebServer(station *Station, port int, logger *zap.Logger) *WebServer {
	if port <= 0 {
		return nil // Web server disabled
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ws := &WebServer{
		station:   station,
		port:      port,
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // e-paper displays connect from the local network
			},
		},
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
		logger:    logger.With(zap.String("component", "web")),
	}

	ws.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      ws.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return ws
}

// Router returns the HTTP routes of the server
func (ws *WebServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/forecast.svg", ws.svgHandler).Methods(http.MethodGet)
	r.HandleFunc("/forecast.png", ws.pngHandler).Methods(http.MethodGet)
	r.HandleFunc("/radar.gif", ws.radarHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/forecast", ws.forecastHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/health", ws.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/ws", ws.wsHandler).Methods(http.MethodGet)

	return r
}

// Start starts the web server
func (ws *WebServer) Start() error {
	if ws == nil {
		return nil // Web server disabled
	}

	go ws.handleBroadcasts()

	go func() {
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.Error("Web server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the web server
func (ws *WebServer) Stop(ctx context.Context) error {
	if ws == nil {
		return nil // Web server disabled
	}

	ws.stopOnce.Do(func() { close(ws.done) })

	ws.clients.Range(func(key, value any) bool {
		if client, ok := key.(*wsClient); ok {
			client.conn.Close()
		}
		return true
	})

	return ws.server.Shutdown(ctx)
}

// BroadcastUpdate queues a forecast_update message for all connected clients.
// The message is dropped when the queue is full.
func (ws *WebServer) BroadcastUpdate(result *RunResult) {
	if ws == nil || result == nil {
		return
	}

	message, err := json.Marshal(UpdateMessage{Type: "forecast_update", Result: result})
	if err != nil {
		ws.logger.Error("Failed to marshal forecast update", zap.Error(err))
		return
	}

	select {
	case ws.broadcast <- message:
	default:
		ws.logger.Warn("Broadcast queue full, dropping forecast update")
	}
}

// svgHandler handles the /forecast.svg endpoint
func (ws *WebServer) svgHandler(w http.ResponseWriter, r *http.Request) {
	latest := ws.station.Latest()
	if latest == nil {
		http.Error(w, "Forecast not available yet", http.StatusServiceUnavailable)
		return
	}
	writeImage(w, "image/svg+xml", latest.SVG, latest.UpdatedAt)
}

// pngHandler handles the /forecast.png endpoint
func (ws *WebServer) pngHandler(w http.ResponseWriter, r *http.Request) {
	latest := ws.station.Latest()
	if latest == nil || latest.PNG == nil {
		http.Error(w, "PNG output not available", http.StatusNotFound)
		return
	}
	writeImage(w, "image/png", latest.PNG, latest.UpdatedAt)
}

// radarHandler handles the /radar.gif endpoint
func (ws *WebServer) radarHandler(w http.ResponseWriter, r *http.Request) {
	latest := ws.station.Latest()
	if latest == nil || latest.Radar == nil {
		http.Error(w, "Radar image not available", http.StatusNotFound)
		return
	}
	writeImage(w, http.DetectContentType(latest.Radar), latest.Radar, latest.UpdatedAt)
}

func writeImage(w http.ResponseWriter, contentType string, data []byte, updated time.Time) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Last-Modified", updated.UTC().Format(http.TimeFormat))
	w.Write(data)
}

// forecastHandler handles the /api/forecast endpoint
func (ws *WebServer) forecastHandler(w http.ResponseWriter, r *http.Request) {
	latest := ws.station.Latest()
	if latest == nil {
		http.Error(w, "Forecast not available yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(latest); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// healthHandler handles the /api/health endpoint
func (ws *WebServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := ws.buildHealth()

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(health); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (ws *WebServer) buildHealth() HealthResponse {
	status := ws.station.GetStatus()

	health := HealthResponse{
		Status:    "healthy",
		Timestamp: utils.GetUTCString(time.Now()),
		Version:   Version,
		Station:   status,
		System: SystemHealth{
			Uptime:     formatUptime(time.Since(ws.startTime)),
			Goroutines: runtime.NumGoroutine(),
			Clients:    ws.clientCount(),
		},
	}

	// A station that has never produced a display is not healthy.
	if !status.HasForecast {
		health.Status = "unhealthy"
	}

	return health
}

// wsHandler handles WebSocket connections
func (ws *WebServer) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Warn("WebSocket upgrade error", zap.Error(err))
		return
	}

	client := &wsClient{conn: conn}
	ws.clients.Store(client, struct{}{})
	ws.logger.Info("WebSocket client connected", zap.Int("clients", ws.clientCount()))

	// Send the current display immediately
	if latest := ws.station.Latest(); latest != nil {
		message, err := json.Marshal(UpdateMessage{Type: "forecast_update", Result: latest})
		if err == nil {
			err = client.write(message)
		}
		if err != nil {
			ws.logger.Warn("Failed to send initial forecast", zap.Error(err))
		}
	}

	defer func() {
		ws.clients.Delete(client)
		conn.Close()
		ws.logger.Info("WebSocket client disconnected", zap.Int("clients", ws.clientCount()))
	}()

	// Read messages from client (ping/pong, close)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ws.logger.Warn("WebSocket error", zap.Error(err))
			}
			return
		}
	}
}

// handleBroadcasts sends messages to all connected clients
func (ws *WebServer) handleBroadcasts() {
	for {
		select {
		case message := <-ws.broadcast:
			ws.clients.Range(func(key, value any) bool {
				client, ok := key.(*wsClient)
				if !ok {
					return true
				}
				if err := client.write(message); err != nil {
					ws.logger.Warn("WebSocket write error", zap.Error(err))
					client.conn.Close()
					ws.clients.Delete(client)
				}
				return true
			})
		case <-ws.done:
			return
		}
	}
}

func (ws *WebServer) clientCount() int {
	count := 0
	ws.clients.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

// formatUptime formats a duration as a string with seconds rounded to integer
func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
