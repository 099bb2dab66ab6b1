// Package httpapi exposes the card-table state over a JSON HTTP API.
package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feltworks/deckhand/internal/adapters/fs"
	"github.com/feltworks/deckhand/internal/domain"
	"github.com/feltworks/deckhand/internal/ports"
	"github.com/feltworks/deckhand/pkg/log"
)

// Core is the narrow table contract required by the HTTP API.
type Core interface {
	Positions() []string
	State(position string) (domain.PositionState, error)
	States() map[string]domain.PositionState
	Hand(position string) (domain.StableHand, error)
	Hands() map[string]domain.StableHand
	History(position string, limit int) ([]domain.TagObservation, error)
	LastUID() string
	ProbeOnce(ctx context.Context, position string) (uid, label string, err error)
	ReadPage(ctx context.Context, position string, page int) ([]byte, error)
	WritePage(ctx context.Context, position string, page int, data []byte) error
}

// Server serves the table API.
type Server struct {
	addr      string
	core      Core
	labels    ports.LabelStore
	layout    fs.TableLayout
	logger    log.Logger
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates an API server; call Start to begin serving.
func NewServer(addr string, core Core, labels ports.LabelStore, layout fs.TableLayout, logger log.Logger) *Server {
	if addr == "" {
		addr = "0.0.0.0:8000"
	}
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Server{
		addr:   addr,
		core:   core,
		labels: labels,
		layout: layout,
		logger: logger,
	}
}

// routes builds the gin engine. Split out so tests can drive handlers
// without a listener.
func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/state", s.handleStates)
	r.GET("/api/state/:position", s.handleState)
	r.GET("/api/hands", s.handleHands)
	r.GET("/api/hand/:position", s.handleHand)
	r.GET("/api/history/:position", s.handleHistory)
	r.GET("/api/cards", s.handleCards)
	r.POST("/api/map", s.handleMap)
	r.POST("/api/clear", s.handleClear)
	r.GET("/api/last_uid", s.handleLastUID)
	r.GET("/api/readers", s.handleReaders)
	r.GET("/api/reader/:position/test", s.handleReaderTest)
	r.POST("/api/tag/read", s.handleTagRead)
	r.POST("/api/tag/write", s.handleTagWrite)

	return r
}

// Start begins serving in the background. A server may be started again
// after Stop.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.server = &http.Server{
		Handler:           s.routes(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.startTime = time.Now()
	s.logger.Info("api listening", log.Str("addr", listener.Addr().String()))

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api serve failed", log.Err(err))
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
