package chartfeed

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chartfeed_ws_connections",
		Help: "Clientes WebSocket conectados",
	})
	wsMessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chartfeed_ws_messages_sent_total",
		Help: "Total de mensagens WS enviadas",
	})
	leaderboardServed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chartfeed_leaderboard_requests_total",
		Help: "Requisições de leaderboard por país",
	}, []string{"country"})
)

func init() {
	prometheus.MustRegister(wsConnections, wsMessagesSent, leaderboardServed)
}

type clientConn struct {
	id   string
	conn *websocket.Conn
}

// Hub gerencia as conexões WebSocket e o broadcast da virada de chart.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*clientConn
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]*clientConn), log: log}
}

func (h *Hub) add(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	wsConnections.Inc()
	h.log.Info("ws client connected", zap.String("client_id", c.id))
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		wsConnections.Dec()
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

// Broadcast envia v (já serializável) a todos os clientes conectados.
func (h *Hub) Broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg, _ := json.Marshal(v)
	for id, c := range h.clients {
		c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			_ = c.conn.Close()
		} else {
			wsMessagesSent.Inc()
		}
	}
}

// chartUpdate é o payload de broadcast quando o chart de um país muda.
type chartUpdate struct {
	Country string  `json:"country"`
	Entries []Entry `json:"entries"`
	TsUnix  int64   `json:"ts_unix"`
}

// Server expõe o feed por HTTP e WS.
type Server struct {
	Log  *zap.Logger
	Feed *Feed
	Hub  *Hub
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/leaderboard/{country}", s.handleLeaderboard)
	r.Get("/daily-winner/{country}", s.handleDailyWinner)
	r.Get("/countries", s.handleCountries)
	r.Get("/ws", s.handleWS)

	return r
}

// GET /leaderboard/{country}?compact=true
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	country := strings.ToUpper(chi.URLParam(r, "country"))
	leaderboardServed.WithLabelValues(country).Inc()

	if r.URL.Query().Get("compact") == "true" {
		out, err := s.Feed.Compact(country)
		if err != nil {
			http.Error(w, "unknown country", http.StatusNotFound)
			return
		}
		writeJSON(w, out)
		return
	}

	out, err := s.Feed.Leaderboard(country)
	if err != nil {
		http.Error(w, "unknown country", http.StatusNotFound)
		return
	}
	writeJSON(w, out)
}

// GET /daily-winner/{country} — devolve a chave do #1 como string JSON.
func (s *Server) handleDailyWinner(w http.ResponseWriter, r *http.Request) {
	country := strings.ToUpper(chi.URLParam(r, "country"))
	winner, err := s.Feed.DailyWinner(country)
	if err != nil {
		http.Error(w, "unknown country", http.StatusNotFound)
		return
	}
	writeJSON(w, winner)
}

func (s *Server) handleCountries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.Feed.Countries())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	id := time.Now().UTC().Format("20060102T150405.000000000")
	c := &clientConn{id: id, conn: conn}
	s.Hub.add(c)

	go func() {
		defer func() {
			s.Hub.remove(id)
			_ = conn.Close()
		}()
		_ = conn.SetReadDeadline(time.Time{})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// RunTicker checa a virada do dia e faz broadcast dos charts novos.
func (s *Server) RunTicker(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.Feed.Refresh() {
				continue
			}
			now := time.Now().UTC().Unix()
			for _, country := range s.Feed.Countries() {
				entries, err := s.Feed.Leaderboard(country)
				if err != nil {
					continue
				}
				s.Hub.Broadcast(chartUpdate{Country: country, Entries: entries, TsUnix: now})
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
