package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nortechlabs/recall/internal/config"
	"github.com/nortechlabs/recall/internal/memory"
)

// Server exposes the engine operations over HTTP.
type Server struct {
	engine *memory.Engine
	addr   string
	http   *http.Server
}

type interactRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	Channel  string `json:"channel" binding:"required"`
	Text     string `json:"text"`
}

type interactResponse struct {
	EventID             string `json:"event_id"`
	RiskScore           int    `json:"risk_score"`
	Quarantined         bool   `json:"quarantined"`
	GCRan               bool   `json:"gc_ran"`
	AssistantSuggestion string `json:"assistant_suggestion"`
}

type contextResponse struct {
	StateSummary        string         `json:"state_summary"`
	RecentCrossChannel  []memory.Event `json:"recent_cross_channel"`
	AssistantSuggestion string         `json:"assistant_suggestion"`
}

type deleteRequest struct {
	ClientID string   `json:"client_id" binding:"required"`
	Scope    string   `json:"scope" binding:"required"`
	EventID  string   `json:"event_id,omitempty"`
	Keys     []string `json:"keys,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(cfg config.ServerConfig, engine *memory.Engine) *Server {
	return &Server{
		engine: engine,
		addr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
}

// Router builds the gin handler; split out so tests can drive it with
// httptest without binding a port.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/interact", s.handleInteract)
	r.GET("/context", s.handleContext)
	r.DELETE("/memory", s.handleDelete)
	r.POST("/gc", s.handleGC)
	r.GET("/memory/raw", s.handleRaw)
	r.GET("/clients", s.handleClients)
	r.GET("/health", s.handleHealth)

	return r
}

func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}

	go func() {
		log.Printf("[server] listening on %s", s.addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[server] error: %v", err)
		}
	}()
	return nil
}

func (s *Server) Stop() error {
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleInteract(c *gin.Context) {
	var req interactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	res := s.engine.RecordInteraction(req.ClientID, req.Channel, req.Text)
	c.JSON(http.StatusOK, interactResponse{
		EventID:             res.EventID,
		RiskScore:           res.RiskScore,
		Quarantined:         res.Quarantined,
		GCRan:               res.GCRan,
		AssistantSuggestion: res.Suggestion,
	})
}

func (s *Server) handleContext(c *gin.Context) {
	clientID := c.Query("client_id")
	channel := c.Query("current_channel")
	if clientID == "" || channel == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "client_id and current_channel are required"})
		return
	}

	res, err := s.engine.Context(clientID, channel)
	if err != nil {
		s.writeError(c, err)
		return
	}

	events := res.Events
	if events == nil {
		events = []memory.Event{}
	}
	c.JSON(http.StatusOK, contextResponse{
		StateSummary:        res.StateSummary,
		RecentCrossChannel:  events,
		AssistantSuggestion: res.Suggestion,
	})
}

func (s *Server) handleDelete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	if err := s.engine.Delete(req.ClientID, req.Scope, req.EventID, req.Keys); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("memory deleted (scope: %s)", req.Scope)})
}

func (s *Server) handleGC(c *gin.Context) {
	clientID := c.Query("client_id")
	if clientID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "client_id is required"})
		return
	}

	report, err := s.engine.ForceGC(clientID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleRaw(c *gin.Context) {
	include := c.Query("include_quarantined") == "true"
	c.JSON(http.StatusOK, s.engine.Dump(include))
}

func (s *Server) handleClients(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clients": s.engine.ListClients()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, memory.ErrClientNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, memory.ErrInvalidDelete):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
