package tilegen

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/semaphore"
)

// Server generates tiles for remote clients. Each websocket connection gets its
// own worker pool; MaxInFlight bounds generation across all connections.
type Server struct {
	workers      int
	cacheMaxCost int64
	inFlight     *semaphore.Weighted
	log          *slog.Logger
	upgrader     websocket.Upgrader
}

// NewServer creates a Server. maxInFlight <= 0 means 1024.
func NewServer(workers int, cacheMaxCost, maxInFlight int64, log *slog.Logger) *Server {
	if maxInFlight <= 0 {
		maxInFlight = 1024
	}
	return &Server{
		workers:      workers,
		cacheMaxCost: cacheMaxCost,
		inFlight:     semaphore.NewWeighted(maxInFlight),
		log:          log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Router returns the HTTP routes of the server.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws", gin.WrapH(s))
	return r
}

// ServeHTTP upgrades the request and serves tile requests until the client leaves.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	log := s.log.With("conn", uuid.NewString(), "remote", r.RemoteAddr)
	log.Info("generation client connected")

	pool, err := NewPool(s.workers, s.cacheMaxCost, log)
	if err != nil {
		log.Error("create worker pool", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var pending atomic.Int64
	written := make(chan struct{})
	go func() {
		defer close(written)
		s.writeLoop(conn, pool, &pending, log)
	}()

	served := s.readLoop(ctx, conn, pool, &pending, log)

	cancel()
	_ = pool.Close()
	<-written
	if n := pending.Load(); n > 0 {
		s.inFlight.Release(n)
	}
	log.Info("generation client disconnected", "served", served)
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, pool *Pool, pending *atomic.Int64, log *slog.Logger) int {
	served := 0
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("read tile request", "error", err)
			}
			return served
		}

		var req Request
		if err := decode(data, &req); err != nil {
			log.Warn("bad tile request", "error", err)
			continue
		}

		if err := s.inFlight.Acquire(ctx, 1); err != nil {
			return served
		}
		pending.Add(1)
		if err := pool.Send(ctx, req); err != nil {
			pending.Add(-1)
			s.inFlight.Release(1)
			return served
		}
		served++
	}
}

func (s *Server) writeLoop(conn *websocket.Conn, pool *Pool, pending *atomic.Int64, log *slog.Logger) {
	for resp := range pool.Responses() {
		pending.Add(-1)
		s.inFlight.Release(1)

		data, err := encode(&resp)
		if err != nil {
			log.Error("encode tile response", "error", err)
			continue
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			log.Warn("write tile response", "error", err)
			// Keep draining so workers can exit.
			continue
		}
	}
}
