// Package server exposes the pipeline over HTTP. POST /api/stories/generate
// starts a run and streams its progress events as SSE; the connection ends
// after the terminal complete or failed event. GET /api/stories/:id reads a
// committed story tree back out of the store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storyloom/narrative/internal/persist"
	"github.com/storyloom/narrative/internal/pipeline"
	"github.com/storyloom/narrative/internal/story"
)

// StoryReader loads a committed story tree by its durable id.
type StoryReader interface {
	Story(ctx context.Context, id string) (*story.Story, error)
}

// Server wires the orchestrator to gin.
type Server struct {
	orchestrator *pipeline.Orchestrator
	reader       StoryReader
	logger       *slog.Logger
	engine       *gin.Engine
}

// New builds the HTTP server. reader may be nil when the backing store has
// no read path (in-memory runs); the story endpoint then reports 503.
func New(orchestrator *pipeline.Orchestrator, reader StoryReader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		orchestrator: orchestrator,
		reader:       reader,
		logger:       logger.With("component", "server"),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	api := engine.Group("/api")
	{
		api.POST("/stories/generate", s.handleGenerate)
		api.GET("/stories/:id", s.handleGetStory)
		api.GET("/healthz", s.handleHealth)
	}
	s.engine = engine
	return s
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.engine.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleGetStory(c *gin.Context) {
	if s.reader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "story reads are not available on this deployment"})
		return
	}
	id := c.Param("id")
	st, err := s.reader.Story(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, persist.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("story %s not found", id)})
			return
		}
		s.logger.Error("story read failed", "story_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "story read failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// handleGenerate starts a run and streams its events. The run's context is
// the request context, so a disconnected client cancels remaining work;
// in-flight generation calls drain naturally and their results are
// discarded.
func (s *Server) handleGenerate(c *gin.Context) {
	var req story.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	run, events, err := s.orchestrator.StartGeneration(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(c.Writer, "event: started\ndata: {\"run_id\":%q}\n\n", run.ID)
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-clientGone:
			s.logger.Warn("client disconnected mid-run", "run_id", run.ID)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("failed to marshal progress event", "run_id", run.ID, "error", err)
				continue
			}
			fmt.Fprintf(c.Writer, "event: progress\ndata: %s\n\n", data)
			c.Writer.Flush()
			if ev.Terminal {
				return
			}
		case <-heartbeat.C:
			fmt.Fprintf(c.Writer, "event: heartbeat\ndata: {\"time\":%d}\n\n", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}
