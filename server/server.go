// Package server exposes the training and generation primitives over an
// /api/init, /api/train, and /api/generate HTTP surface backed by the
// model/train/tokenizer packages.
package server

import (
	"math/rand"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"atomic-gpt-explorer/config"
	"atomic-gpt-explorer/model"
	"atomic-gpt-explorer/ops"
	"atomic-gpt-explorer/tokenizer"
	"atomic-gpt-explorer/train"
)

// Server owns HTTP handlers and the shared, mutable training state behind
// them, keeping request handling and lifecycle wiring separate from the
// model's own math and parameters.
type Server struct {
	mu   sync.RWMutex
	loop *train.Loop
	cfg  config.Config
	tok  tokenizer.Tokenizer
	pool ops.Pool
	log  zerolog.Logger
}

// New creates an HTTP server with no model initialized; /api/init must be
// called before /api/train or /api/generate will succeed.
func New(pool ops.Pool, logger zerolog.Logger) *Server {
	return &Server{
		tok:  tokenizer.New(),
		pool: pool,
		log:  logger,
	}
}

// Routes builds a gin.Engine with every endpoint attached.
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", s.handleHealthz)
	r.POST("/api/init", s.handleInit)
	r.POST("/api/train", s.handleTrain)
	r.POST("/api/generate", s.handleGenerate)
	return r
}

func (s *Server) currentLoop() *train.Loop {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loop
}

// InitRequest is the payload for POST /api/init.
type InitRequest struct {
	Docs   []string     `json:"docs" binding:"required"`
	Config config.Model `json:"config"`
}

func (s *Server) handleInit(c *gin.Context) {
	var req InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Config.NEmbd == 0 {
		req.Config = config.Default().Model
	}

	cfg := config.Default()
	cfg.Model = req.Config
	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loop := train.New(cfg, s.tok, s.pool, s.log, req.Docs)

	s.mu.Lock()
	s.loop = loop
	s.cfg = cfg
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"status": "initialized"})
}

// TrainRequest is the payload for POST /api/train.
type TrainRequest struct {
	Steps int `json:"steps"`
}

func (s *Server) handleTrain(c *gin.Context) {
	loop := s.currentLoop()
	if loop == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model not initialized"})
		return
	}

	var req TrainRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Steps <= 0 {
		req.Steps = 1
	}

	if err := loop.Run(c.Request.Context(), req.Steps); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "steps": req.Steps})
}

// GenerateRequest is the payload for POST /api/generate.
type GenerateRequest struct {
	Prompt       string  `json:"prompt"`
	Temperature  float32 `json:"temperature"`
	TopK         int     `json:"top_k"`
	MaxNewTokens int     `json:"max_new_tokens"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	loop := s.currentLoop()
	if loop == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model not initialized"})
		return
	}

	var req GenerateRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prompt := s.tok.Encode(req.Prompt)
	opts := model.GenerateOptions{
		Temperature:  req.Temperature,
		TopK:         req.TopK,
		MaxNewTokens: req.MaxNewTokens,
	}
	out := model.Generate(s.pool, loop.Weights(), s.tok, rand.New(rand.NewSource(1)), prompt, opts)

	c.JSON(http.StatusOK, gin.H{"text": s.tok.Decode(out)})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bindOptionalJSON binds the request body if present, treating an empty
// body as "use defaults" rather than a bind error.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}
