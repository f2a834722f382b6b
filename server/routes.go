// Package server - HTTP-API fuer Registry und Inferenz
// Beinhaltet: Server-Struct, Router-Registrierung, Server-Start
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/7blacky7/xinfer/backends"
	"github.com/7blacky7/xinfer/envconfig"
	"github.com/7blacky7/xinfer/logutil"
	"github.com/7blacky7/xinfer/model"
	"github.com/7blacky7/xinfer/version"
)

var mode string = gin.DebugMode

// Server verwaltet Registry und geladene Modell-Instanzen
type Server struct {
	addr      net.Addr
	registry  *model.Registry
	instances *instances
}

func init() {
	switch mode {
	case gin.DebugMode:
	case gin.ReleaseMode:
	case gin.TestMode:
	default:
		mode = gin.DebugMode
	}

	gin.SetMode(mode)
}

// New erstellt einen Server fuer eine bereits befuellte Registry
func New(r *model.Registry) *Server {
	return &Server{
		registry:  r,
		instances: newInstances(r),
	}
}

// GenerateRoutes erstellt und konfiguriert den HTTP-Router
func (s *Server) GenerateRoutes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
		requestIDHeader,
	}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.Use(
		cors.New(corsConfig),
		allowedHostsMiddleware(s.addr),
		requestIDMiddleware(),
	)

	// General
	r.HEAD("/", func(c *gin.Context) { c.String(http.StatusOK, "xinfer is running") })
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "xinfer is running") })
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })

	// Registry
	r.GET("/api/models", s.ListHandler)

	// Inference
	r.POST("/api/infer", s.InferHandler)
	r.GET("/api/ps", s.PsHandler)
	r.GET("/api/stats", s.StatsHandler)
	r.DELETE("/api/ps", s.UnloadHandler)

	return r
}

// Serve registriert alle Backends in der Default-Registry und startet den HTTP-Server
func Serve(ln net.Listener) error {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	slog.Info("server config", "env", envconfig.Values())

	if err := backends.RegisterAll(model.Default); err != nil {
		return err
	}
	model.Default.Seal()

	s := New(model.Default)
	s.addr = ln.Addr()

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version))
	srvr := &http.Server{
		Handler:           s.GenerateRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// auf ctrl+c warten und offene Anfragen beenden
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srvr.Shutdown(ctx); err != nil {
			slog.Warn("shutdown", "error", err)
		}
	}()

	err := srvr.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
