// Package server runs the local daemon: an HTTP API that accepts page
// signals and answers history queries, plus an optional spool directory
// watcher that feeds signal files to the same coordinator.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/runnerr0/visitlog/internal/config"
	"github.com/runnerr0/visitlog/internal/history"
	"github.com/runnerr0/visitlog/internal/logging"
	"github.com/runnerr0/visitlog/internal/signals"
)

const shutdownTimeout = 5 * time.Second

// SignalHandler accepts page signals.
type SignalHandler interface {
	Handle(ctx context.Context, sig signals.Signal) error
}

// HistoryReader answers history queries.
type HistoryReader interface {
	Query(ctx context.Context, searchTerm string, pageNumber, pageSize int) (history.Page, error)
	Detail(ctx context.Context, channelID string) ([]int64, error)
	Stats(ctx context.Context) (*history.Stats, error)
}

// Deps wires a Server.
type Deps struct {
	Signals  SignalHandler
	History  HistoryReader
	Daemon   config.DaemonConfig
	PageSize int
	Version  string
}

// Server is the daemon.
type Server struct {
	deps    Deps
	router  *gin.Engine
	limiter *rate.Limiter
	started time.Time
}

// New builds a Server and its routes.
func New(deps Deps) *Server {
	if deps.PageSize < 1 {
		deps.PageSize = 10
	}
	s := &Server{deps: deps, started: time.Now()}
	if deps.Daemon.RateLimit > 0 {
		burst := deps.Daemon.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(deps.Daemon.RateLimit), burst)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	ingest := r.Group("/")
	ingest.Use(rateLimit(s.limiter), bodyLimit(s.deps.Daemon.MaxRequestSize))
	ingest.POST("/signals", s.postSignal)

	r.GET("/history", s.getHistory)
	r.GET("/history/:channel", s.getChannel)
	r.GET("/status", s.getStatus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Addr returns the listen address from the daemon config.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.deps.Daemon.Host, strconv.Itoa(s.deps.Daemon.Port))
}

// Run serves HTTP and, when a spool directory is configured, watches it.
// It returns when ctx is cancelled or either part fails.
func (s *Server) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	var spool *Spool
	if s.deps.Daemon.SpoolDir != "" {
		dir, err := config.ExpandPath(s.deps.Daemon.SpoolDir)
		if err != nil {
			return fmt.Errorf("spool dir: %w", err)
		}
		spool = NewSpool(dir, s.deps.Signals)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if spool != nil {
		g.Go(func() error {
			return spool.Run(gctx)
		})
	}

	return g.Wait()
}
