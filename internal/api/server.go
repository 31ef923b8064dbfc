// Package api exposes the sync engine over HTTP.
package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/woodpower/baselinker-sync-backend/internal/application/service"
	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/config"
	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/storage"
)

// Server wires the HTTP routes to the sync service and storage.
type Server struct {
	svc    *service.SyncService
	store  *storage.Storage
	cfg    *config.Config
	logger *slog.Logger
}

// NewServer creates a Server.
func NewServer(svc *service.SyncService, store *storage.Storage, cfg *config.Config, logger *slog.Logger) *Server {
	return &Server{svc: svc, store: store, cfg: cfg, logger: logger}
}

// Router builds the gin engine with CORS and all routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	corsCfg := cors.DefaultConfig()
	if len(s.cfg.API.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = s.cfg.API.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsCfg))

	router.GET("/health", s.handleHealth)

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/sync", s.handleStartSync)
		apiGroup.GET("/sync/status", s.handleSyncStatus)
		apiGroup.GET("/sync/runs", s.handleListRuns)
		apiGroup.GET("/sync/runs/:id", s.handleGetRun)
		apiGroup.GET("/sync/jobs/:id", s.handleGetJob)
		apiGroup.GET("/pieces", s.handleListPieces)
		apiGroup.GET("/pieces/:shortID", s.handleGetPiece)
	}

	return router
}

// requestLogger logs each request after it completes.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStartSync triggers a run. With ?wait=true the request blocks until
// the run finishes and returns the full report; otherwise the run is queued
// in the background and a job id is returned.
func (s *Server) handleStartSync(c *gin.Context) {
	var req SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
	}

	params := req.ToParams()

	if c.Query("wait") == "true" {
		report, err := s.svc.RunAndWait(c.Request.Context(), params)
		if err != nil {
			s.respondSyncError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	jobID, err := s.svc.StartBackground(params)
	if err != nil {
		s.respondSyncError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, JobStartedResponse{JobID: jobID, Status: service.JobStatusRunning})
}

func (s *Server) respondSyncError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSyncInProgress) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	s.logger.Error("sync request failed", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func (s *Server) handleSyncStatus(c *gin.Context) {
	status, err := s.store.GetSyncStatus()
	if err != nil {
		s.logger.Error("failed to load sync status", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load sync status"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := s.store.ListSyncRuns(limit)
	if err != nil {
		s.logger.Error("failed to list sync runs", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list sync runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid run id"})
		return
	}

	run, err := s.store.GetSyncRun(id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found"})
		return
	}
	if err != nil {
		s.logger.Error("failed to load sync run", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load sync run"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, err := s.svc.GetJob(c.Param("id"))
	if errors.Is(err, service.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleListPieces(c *gin.Context) {
	orderID, _ := strconv.Atoi(c.Query("order_id"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	pieces, err := s.store.ListPieces(storage.PieceFilter{
		OrderID: orderID,
		Status:  c.Query("status"),
		Limit:   limit,
	})
	if err != nil {
		s.logger.Error("failed to list pieces", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list pieces"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pieces": pieces, "count": len(pieces)})
}

func (s *Server) handleGetPiece(c *gin.Context) {
	piece, err := s.store.GetPieceByShortID(c.Param("shortID"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "piece not found"})
		return
	}
	if err != nil {
		s.logger.Error("failed to load piece", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load piece"})
		return
	}
	c.JSON(http.StatusOK, piece)
}
