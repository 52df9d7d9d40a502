package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/shaneVR097/v2x-collision-warning-simulation/manager"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server exposes the monitor's read-only snapshot to the presentation
// layer: JSON endpoints plus a websocket feed of live snapshots. It never
// mutates monitor state.
type Server struct {
	Manager  *manager.SafetyManager
	Interval time.Duration

	clients      map[*websocket.Conn]bool
	clientsMutex sync.Mutex
}

func NewServer(sm *manager.SafetyManager) *Server {
	return &Server{
		Manager:  sm,
		Interval: 200 * time.Millisecond,
		clients:  make(map[*websocket.Conn]bool),
	}
}

// Start serves the monitoring feed until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/ws", s.handleWs)

	srv := &http.Server{Addr: addr, Handler: mux}

	go s.broadcastSnapshots(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("monitoring feed listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(s.Manager.Snapshot()); err != nil {
		log.Printf("err encoding snapshot: %v", err)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(s.Manager.BuildReport())); err != nil {
		log.Printf("err writing report: %v", err)
	}
}

func (s *Server) handleWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("err upgrading connection: %v", err)
		return
	}

	s.clientsMutex.Lock()
	s.clients[conn] = true
	total := len(s.clients)
	s.clientsMutex.Unlock()

	log.Printf("new websocket client connected. Total clients: %d", total)

	go s.handleClientMessages(conn)
}

func (s *Server) handleClientMessages(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		s.clientsMutex.Lock()
		delete(s.clients, conn)
		log.Printf("websocket client disconnected. Remaining clients: %d", len(s.clients))
		s.clientsMutex.Unlock()
	}()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}
	}
}

func (s *Server) broadcastSnapshots(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.clientsMutex.Lock()
		empty := len(s.clients) == 0
		s.clientsMutex.Unlock()
		if empty {
			continue
		}

		payload, err := json.Marshal(s.Manager.Snapshot())
		if err != nil {
			log.Printf("err marshaling snapshot: %v", err)
			continue
		}

		s.clientsMutex.Lock()
		for conn := range s.clients {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("websocket write error: %v", err)
				conn.Close()
				delete(s.clients, conn)
			}
		}
		s.clientsMutex.Unlock()
	}
}
