package telemetry

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Server is the optional, read-only telemetry HTTP/WS surface from
// SPEC_FULL.md §4.19. It never mutates orchestrator state and sits
// outside the role-boundary-guarded path.
type Server struct {
	log *Log

	mu        sync.Mutex
	lineage   func() []interface{}
	httpSrv   *http.Server
	upgrader  websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}
}

// NewServer constructs a telemetry server over log, serving a snapshot
// of whatever lineageFn returns for GET /lineage.
func NewServer(log *Log, lineageFn func() []interface{}) *Server {
	return &Server{
		log:      log,
		lineage:  lineageFn,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		clients:  make(map[*websocket.Conn]struct{}),
	}
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET"},
	}))

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.log.Latest())
	})
	r.GET("/telemetry", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.log.Recent(256))
	})
	r.GET("/lineage", func(c *gin.Context) {
		if s.lineage == nil {
			c.JSON(http.StatusOK, []interface{}{})
			return
		}
		c.JSON(http.StatusOK, s.lineage())
	})
	r.GET("/ws/telemetry", s.handleWS)

	return r
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
		conn.Close()
	}()

	// Drain and discard any client messages; this endpoint is push-only.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// BroadcastFrame pushes one telemetry frame to every connected WS
// client — called once per cycle by the orchestrator.
func (s *Server) BroadcastFrame(snap Snapshot) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteJSON(snap); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// Start runs the HTTP server in a background goroutine bound to addr,
// used as given. Calls while it is already running are no-ops, and it
// is not on the role-boundary-guarded path.
func (s *Server) Start(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpSrv != nil {
		return
	}
	s.httpSrv = &http.Server{Addr: addr, Handler: s.router()}
	go func() {
		_ = s.httpSrv.ListenAndServe()
	}()
}

// Stop shuts the HTTP server down with a bounded grace period.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
