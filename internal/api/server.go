// Package api exposes the booking service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vilo/internal/booking"
	"vilo/internal/config"
)

// Server is the public JSON API.
type Server struct {
	engine  *gin.Engine
	server  *http.Server
	svc     *booking.Service
	catalog *config.Catalog
	logger  *zerolog.Logger
}

// NewServer builds the router. Requests are authenticated against the live catalog.
func NewServer(cfg config.HTTPConfig, svc *booking.Service, catalog *config.Catalog, logger *zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		engine:  engine,
		svc:     svc,
		catalog: catalog,
		logger:  logger,
	}

	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	engine.Use(corsMiddleware(cfg.AllowedOrigins))

	engine.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	v1.Use(tenantAuth(catalog))
	v1.Use(rateLimit(newLimiterStore(cfg.RatePerSecond, cfg.RateBurst), logger))
	{
		v1.GET("/rooms", s.handleListRooms)
		v1.GET("/rooms/:id/calendar", s.handleCalendar)
		v1.GET("/rooms/:id/availability", s.handleAvailability)
		v1.GET("/rooms/:id/rates", s.handleRates)
		v1.PUT("/rooms/:id/overrides/:date", s.handleSetOverride)
		v1.DELETE("/rooms/:id/overrides/:date", s.handleDeleteOverride)
		v1.POST("/rooms/:id/selection", s.handleSelect)
		v1.GET("/rooms/:id/selection", s.handleGetSelection)
		v1.DELETE("/rooms/:id/selection", s.handleResetSelection)

		v1.POST("/quotes", s.handleQuote)
		v1.POST("/bookings", s.handleCreateBooking)
		v1.GET("/bookings/:ref", s.handleGetBooking)
		v1.POST("/bookings/:ref/cancel", s.handleCancelBooking)

		v1.GET("/reports/bookings", s.handleBookingsReport)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting API server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Api-Key"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
