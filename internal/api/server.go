// Package api exposes the pipeline over HTTP: a synchronous processing
// endpoint, an asynchronous enqueue endpoint, and the user-action endpoint.
package api

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jobsignal/internal/actions"
	"github.com/jobsignal/internal/pipeline"
	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

// SignalQueue enqueues a signal for background processing. A nil queue
// disables the async endpoint.
type SignalQueue interface {
	EnqueueSignal(ctx context.Context, signal *models.Signal) error
}

// Server is the API server.
type Server struct {
	echo         *echo.Echo
	addr         string
	store        store.Store
	orchestrator *pipeline.Orchestrator
	executor     *actions.Executor
	queue        SignalQueue
}

// NewServer creates the API server.
func NewServer(addr string, s store.Store, orchestrator *pipeline.Orchestrator, executor *actions.Executor, queue SignalQueue) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:         e,
		addr:         addr,
		store:        s,
		orchestrator: orchestrator,
		executor:     executor,
		queue:        queue,
	}
	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")
	v1.POST("/signals/:id/process", s.processSignal)
	v1.POST("/signals/:id/enqueue", s.enqueueSignal)
	v1.POST("/signals/:id/actions", s.executeAction)
}

// Start runs the server until an interrupt, then shuts down gracefully.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router, used by tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
