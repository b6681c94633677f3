// Package http exposes the ops API: health probes and an
// administrative XP surface mirroring the platform commands.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"forum-xp-backend/internal/common/config"
	apperrors "forum-xp-backend/internal/common/errors"
	"forum-xp-backend/internal/features/progression/repository"
	progression "forum-xp-backend/internal/features/progression/service"
	roles "forum-xp-backend/internal/features/roles/service"
)

type Server struct {
	cfg        *config.Config
	ledger     *progression.Ledger
	reconciler *roles.Reconciler
	store      repository.RecordStore
}

func NewServer(cfg *config.Config, ledger *progression.Ledger, reconciler *roles.Reconciler, store repository.RecordStore) *Server {
	return &Server{cfg: cfg, ledger: ledger, reconciler: reconciler, store: store}
}

// Router builds the gin engine with routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	if !s.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{s.cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "X-Admin-Token"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "forum-xp-backend",
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "record store unavailable",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(s.adminAuth())
	{
		v1.GET("/users/:id/xp", s.getUserXP)
		v1.PUT("/users/:id/xp", s.setUserXP)
	}

	return router
}

// HTTPServer wraps the router in an http.Server with the usual
// timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// adminAuth gates the API on the configured token. With no token
// configured the API is disabled outright.
func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.cfg.Server.AdminToken
		if token == "" || c.GetHeader("X-Admin-Token") != token {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func (s *Server) getUserXP(c *gin.Context) {
	userID := c.Param("id")

	info, err := s.ledger.GetLevel(c.Request.Context(), userID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"user_id": userID,
		"xp":      info.XP,
		"level":   info.Level,
	}
	if next, ok := s.ledger.NextThreshold(info.Level); ok {
		resp["next_level_xp"] = next
	}
	c.JSON(http.StatusOK, resp)
}

type setXPRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) setUserXP(c *gin.Context) {
	userID := c.Param("id")

	var req setXPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "xp amount cannot be negative"})
		return
	}

	result, err := s.reconciler.ApplyAdminSetXP(c.Request.Context(), s.cfg.Bot.GuildID, userID, req.Amount)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"xp":      result.NewXP,
		"level":   result.NewLevel,
	})
}

// statusFor maps classified errors to HTTP statuses; anything
// unclassified is a 500.
func statusFor(err error) int {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch {
	case appErr.IsNotFound():
		return http.StatusNotFound
	case appErr.IsValidation():
		return http.StatusBadRequest
	case appErr.IsTransient():
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
