package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"car-sales/services"
	"car-sales/utils"
)

//go:embed templates/*.html
var templateFiles embed.FS

const requestIDHeader = "X-Request-ID"

// Pinger reports whether the primary store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the dashboard page and the JSON API.
type Server struct {
	router    *gin.Engine
	queries   *services.QueryService
	assistant *services.Assistant
	insights  *services.InsightService
	store     Pinger
	logger    *utils.Logger
}

// New builds the router. store may be nil when running on the CSV source only.
func New(queries *services.QueryService, assistant *services.Assistant, insights *services.InsightService, store Pinger, logger *utils.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:    gin.New(),
		queries:   queries,
		assistant: assistant,
		insights:  insights,
		store:     store,
		logger:    logger,
	}

	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFiles, "templates/*.html"))
	s.router.SetHTMLTemplate(tmpl)

	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// setupRoutes registers every route on the router.
func (s *Server) setupRoutes() {
	s.router.GET("/", s.index)
	s.router.GET("/healthz", s.healthz)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	{
		api.GET("/listings", s.listings)
		api.GET("/recommend", s.recommend)
		api.GET("/analyze", s.analyze)
		api.POST("/ask", s.ask)
		api.GET("/chart.xlsx", s.chart)
	}
}

// Handler exposes the router for tests and custom servers.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[server] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("[server] Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger tags each request with an ID and logs its outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set("logger", s.logger.With("request_id", id))

		start := time.Now()
		c.Next()

		s.reqLogger(c).Info("[server] %s %s → %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

func (s *Server) reqLogger(c *gin.Context) *utils.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(*utils.Logger); ok {
			return l
		}
	}
	return s.logger
}
