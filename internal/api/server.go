// Package api serves GetSwaps over HTTP and WebSocket.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"dex-swaps-lab/internal/analyzer"
	"dex-swaps-lab/internal/archive"
	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/export"
	"dex-swaps-lab/internal/ingestion"
	"dex-swaps-lab/internal/logging"
	"dex-swaps-lab/internal/observability"
	"dex-swaps-lab/internal/report"
)

// RequestIDHeader carries the per-request id.
const RequestIDHeader = "X-Request-ID"

// SwapService is the part of analyzer.Analyzer the API needs.
type SwapService interface {
	Sources() []domain.SourceID
	GetSwapsWithProgress(ctx context.Context, wallets []string, progress ingestion.ProgressFunc) (*domain.Table, error)
}

// Compile-time interface check.
var _ SwapService = (*analyzer.Analyzer)(nil)

// Options contains configuration for creating a Server.
type Options struct {
	Service  SwapService
	Archiver *archive.Archiver   // optional
	Gatherer prometheus.Gatherer // nil serves the default registry
	Logger   *zap.Logger
}

// Server routes HTTP requests to a SwapService.
type Server struct {
	service  SwapService
	archiver *archive.Archiver
	logger   *zap.Logger
	router   *gin.Engine
}

// SwapsResponse is the body of GET /swaps and of the final stream message.
type SwapsResponse struct {
	Swaps    []export.Record `json:"swaps"`
	Summary  *report.Summary `json:"summary"`
	Archived map[string]int  `json:"archived,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a Server and registers its routes.
func New(opts Options) *Server {
	s := &Server{
		service:  opts.Service,
		archiver: opts.Archiver,
		logger:   logging.OrNop(opts.Logger),
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))

	router.GET("/healthz", s.handleHealth)
	router.GET("/sources", s.handleSources)
	router.GET("/swaps", s.handleSwaps)
	router.GET("/swaps/stream", s.handleStream)
	router.GET("/metrics", gin.WrapH(observability.Handler(opts.Gatherer)))

	s.router = router
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sources": len(s.service.Sources())})
}

func (s *Server) handleSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": s.service.Sources()})
}

func (s *Server) handleSwaps(c *gin.Context) {
	wallets, err := parseWallets(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	table, err := s.service.GetSwapsWithProgress(c.Request.Context(), wallets, nil)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, analyzer.ErrEmptyFilter) {
			status = http.StatusBadRequest
		}
		c.JSON(status, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, s.respond(c.Request.Context(), table))
}

// respond builds the response body and archives table when stores are set.
// Archive failures are logged by the archiver and do not fail the request.
func (s *Server) respond(ctx context.Context, table *domain.Table) SwapsResponse {
	resp := SwapsResponse{
		Swaps:   export.Records(table),
		Summary: report.Summarize(table),
	}
	if s.archiver.Enabled() {
		resp.Archived, _ = s.archiver.Archive(ctx, table)
	}
	return resp
}

// parseWallets accepts both ?wallets=a,b and repeated ?wallets= parameters
// and validates every address.
func parseWallets(c *gin.Context) ([]string, error) {
	var raw []string
	for _, v := range c.QueryArray("wallets") {
		raw = append(raw, strings.Split(v, ",")...)
	}
	return domain.NormalizeAddresses(raw)
}

// requestLogger logs one line per request with a request id.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}
