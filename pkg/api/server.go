// Package api exposes the textpix operations as JSON endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jlrickert/cli-toolkit/mylog"

	"github.com/jlrickert/textpix/pkg/textpix"
)

// Options configure the HTTP surface.
type Options struct {
	// StaticDir is the directory image files are served from. Empty
	// disables static serving.
	StaticDir string

	// URLPrefix is the prefix image URLs are built with. When it is a
	// relative path the static route is mounted under it.
	URLPrefix string

	// CORSOrigins lists allowed origins. Empty or "*" allows any origin.
	CORSOrigins []string
}

// Server routes HTTP requests to a textpix.Service.
type Server struct {
	svc    *textpix.Service
	opts   Options
	lg     *slog.Logger
	engine *gin.Engine
}

// New builds the router. The logger carried by ctx is attached to every
// request.
func New(ctx context.Context, svc *textpix.Service, opts Options) *Server {
	s := &Server{
		svc:  svc,
		opts: opts,
		lg:   mylog.LoggerFromContext(ctx),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), cors.New(s.corsConfig()))

	api := r.Group("/api")
	{
		api.POST("/create", s.create)
		api.POST("/save", s.save)
		api.POST("/regenerate", s.regenerate)
		api.POST("/load", s.load)
		api.POST("/get-metadata", s.getMetadata)
		api.POST("/update-text", s.updateText)
		api.POST("/update-metadata", s.updateMetadata)
		api.POST("/delete", s.remove)
		api.GET("/list", s.list)
		api.POST("/list", s.list)
		api.POST("/search", s.search)
		api.POST("/describe-text", s.describeText)
	}

	if mount := s.staticMount(); mount != "" {
		r.Static(mount, s.opts.StaticDir)
	}
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	origins := s.opts.CORSOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// staticMount returns the route images are served under, or "" when static
// serving does not apply.
func (s *Server) staticMount() string {
	if s.opts.StaticDir == "" {
		return ""
	}
	prefix := s.opts.URLPrefix
	if strings.Contains(prefix, "://") {
		return ""
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(mylog.WithLogger(c.Request.Context(), s.lg))
		c.Next()
		s.lg.Info("http_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.lg.Info("http_listen", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
