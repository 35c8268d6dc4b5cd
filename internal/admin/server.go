// Package admin exposes the read-only operational surface of the
// daemon over HTTP: health, readiness, prometheus metrics, and
// JSON snapshots of the flight and billing tables.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/danmuck/reservectl/internal/booking"
	"github.com/danmuck/reservectl/internal/observability"
)

type flightView struct {
	Ref         int    `json:"ref"`
	Destination string `json:"destination"`
	Available   int    `json:"available"`
	Capacity    int    `json:"capacity"`
	Price       int    `json:"price"`
}

// Server is the admin HTTP surface. Reads go through the same booking
// service (and therefore the same table locks) as the wire protocols.
type Server struct {
	name    string
	svc     *booking.Service
	router  *gin.Engine
	started time.Time
}

func New(name string, svc *booking.Service, corsOrigins []string, logger zerolog.Logger) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware(name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		name:    name,
		svc:     svc,
		router:  r,
		started: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": s.name,
			"version": "0.0.1",
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(s.started).String(),
			"service": s.name,
			"version": "0.0.1",
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/flights", func(c *gin.Context) {
		flights, err := s.svc.List(nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		views := make([]flightView, 0, len(flights))
		for _, f := range flights {
			views = append(views, flightView{
				Ref:         f.Ref,
				Destination: f.Destination,
				Available:   f.Available,
				Capacity:    f.Capacity,
				Price:       f.Price,
			})
		}
		c.JSON(http.StatusOK, gin.H{"flights": views})
	})

	s.router.GET("/invoices/:agency", func(c *gin.Context) {
		agency := c.Param("agency")
		res, err := s.svc.Invoice(agency, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if res.Kind == booking.ResultNoInvoice {
			c.JSON(http.StatusNotFound, gin.H{"error": "no invoice for agency", "agency": agency})
			return
		}
		c.JSON(http.StatusOK, gin.H{"agency": res.Agency, "balance": res.Balance})
	})
}

// Serve runs the admin surface until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
