package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jasser00/bigdata/internal/aggregate"
	"github.com/jasser00/bigdata/internal/domain"
	"github.com/jasser00/bigdata/internal/pipeline"
	"github.com/jasser00/bigdata/internal/worker"
)

type Server struct {
	config   *ServerConfig
	pipeline *pipeline.Pipeline
	engine   *aggregate.Engine
	worker   *worker.Worker
	router   *gin.Engine
	logger   zerolog.Logger
}

func NewServer(options ...ConfigOption) (*Server, error) {
	config := &ServerConfig{
		WorkerCount: 4,
		BatchSize:   100,
		Port:        "8000",
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return nil, err
		}
	}

	if config.Store == nil {
		return nil, errors.New("server requires a record store")
	}

	server := &Server{
		config:   config,
		pipeline: pipeline.New(config.Store, config.Queue),
		engine:   aggregate.New(config.Store),
		router:   gin.Default(),
		logger:   log.With().Str("component", "server").Logger(),
	}

	if config.AlertEnabled && config.AlertConsumer != nil {
		server.worker = worker.NewWorker(config.AlertConsumer, config.WorkerCount, config.BatchSize)
	}

	server.setupRoutes()
	return server, nil
}

func (s *Server) setupRoutes() {
	if len(s.config.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = s.config.CORSOrigins
		corsConfig.AllowCredentials = true
		s.router.Use(cors.New(corsConfig))
	}

	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Maintenance Prediction API!"})
	})

	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Metrics endpoint
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.POST("/predict", s.handlePredict)
	s.router.GET("/history", s.handleHistory)
	s.router.GET("/stats", s.handleStats)
	s.router.GET("/machines", s.handleMachines)
	s.router.GET("/machine/:machineId", s.handleMachinePredictions)
}

func (s *Server) handlePredict(c *gin.Context) {
	var req domain.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.pipeline.Ingest(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save prediction"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHistory(c *gin.Context) {
	entries, err := s.engine.History(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.engine.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleMachines(c *gin.Context) {
	machines, err := s.engine.Machines(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch machines"})
		return
	}

	c.JSON(http.StatusOK, machines)
}

func (s *Server) handleMachinePredictions(c *gin.Context) {
	entries, err := s.engine.MachinePredictions(c.Request.Context(), c.Param("machineId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch machine predictions"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (s *Server) Start(ctx context.Context) error {
	if s.worker != nil && s.config.Queue != nil {
		go func() {
			if err := s.worker.Start(ctx, s.config.Queue); err != nil {
				s.logger.Error().Err(err).Msg("alert worker error")
			}
		}()
	}

	server := &http.Server{
		Addr:    ":" + s.config.Port,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("port", s.config.Port).Msg("server starting")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Close() error {
	if s.config.Queue != nil {
		s.config.Queue.Close()
	}
	if s.config.Store != nil {
		s.config.Store.Close()
	}
	return nil
}
