// Package httpapi serves the bot's status endpoints.
package httpapi

import (
	"context"
	"errors"
	"log"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/observability"
	"mention-token-bot/internal/orchestrator"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
	requestTimeout   = 5 * time.Second
	shutdownTimeout  = 10 * time.Second
)

// StatusSource exposes the polling loop state.
type StatusSource interface {
	Snapshot() orchestrator.Snapshot
}

// LaunchLister lists recorded launches, newest first.
type LaunchLister interface {
	ListRecent(ctx context.Context, limit int) ([]*domain.Launch, error)
}

// CycleLister lists recent cycle outcomes for a bot, newest first.
type CycleLister interface {
	ListRecent(ctx context.Context, botID string, limit int) ([]*domain.CycleOutcome, error)
}

// TokenCounter reports how many tokens the factory has deployed.
type TokenCounter interface {
	TokenCount(ctx context.Context) (*big.Int, error)
}

// Options configures the server. Nil listers disable their routes.
type Options struct {
	Addr     string
	Status   StatusSource
	Launches LaunchLister
	Cycles   CycleLister
	Tokens   TokenCounter // optional; adds factory_tokens to /status
	Logger   *log.Logger
}

// Server wraps the gin engine and its http.Server.
type Server struct {
	engine  *gin.Engine
	srv     *http.Server
	status  StatusSource
	launch  LaunchLister
	cycles  CycleLister
	tokens  TokenCounter
	logger  *log.Logger
	started time.Time
}

// New builds the router.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		engine:  r,
		srv:     &http.Server{Addr: opts.Addr, Handler: r, ReadHeaderTimeout: requestTimeout},
		status:  opts.Status,
		launch:  opts.Launches,
		cycles:  opts.Cycles,
		tokens:  opts.Tokens,
		logger:  logger,
		started: time.Now(),
	}

	r.GET("/health", s.handleHealth)
	r.GET("/status", s.handleStatus)
	r.GET("/metrics", gin.WrapH(observability.Handler()))
	if s.launch != nil {
		r.GET("/launches", s.handleLaunches)
	}
	if s.cycles != nil {
		r.GET("/cycles", s.handleCycles)
	}
	return s
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("status server listening on %s", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StatusResponse is the JSON body of /status.
type StatusResponse struct {
	Status        string                `json:"status"`
	Uptime        string                `json:"uptime"`
	FactoryTokens string                `json:"factory_tokens,omitempty"`
	Loop          orchestrator.Snapshot `json:"loop"`
}

func (s *Server) handleStatus(c *gin.Context) {
	if s.status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "polling loop not running"})
		return
	}

	snap := s.status.Snapshot()
	status := "running"
	if snap.State == orchestrator.StateStopped {
		status = "stopped"
	}
	resp := StatusResponse{
		Status: status,
		Uptime: time.Since(s.started).Round(time.Second).String(),
		Loop:   snap,
	}
	if s.tokens != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		n, err := s.tokens.TokenCount(ctx)
		cancel()
		if err != nil {
			s.logger.Printf("factory token count: %v", err)
		} else {
			resp.FactoryTokens = n.String()
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLaunches(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	launches, err := s.launch.ListRecent(ctx, limit)
	if err != nil {
		s.logger.Printf("list launches: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if launches == nil {
		launches = []*domain.Launch{}
	}
	c.JSON(http.StatusOK, launches)
}

func (s *Server) handleCycles(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	botID := c.Query("bot_id")
	if botID == "" && s.status != nil {
		botID = s.status.Snapshot().BotID
	}
	if botID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bot_id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	cycles, err := s.cycles.ListRecent(ctx, botID, limit)
	if err != nil {
		s.logger.Printf("list cycles: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cycles == nil {
		cycles = []*domain.CycleOutcome{}
	}
	c.JSON(http.StatusOK, cycles)
}

// parseLimit reads ?limit=N, writing a 400 on bad input.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return min(n, maxListLimit), true
}
