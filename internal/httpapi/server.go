// Package httpapi exposes the prediction service over HTTP.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/abhisek/medipredict/internal/predict"
	"github.com/abhisek/medipredict/internal/store"
)

// APIVersion is reported by GET /.
const APIVersion = "1.0.0"

// Options configures a Server.
type Options struct {
	// CORSOrigins lists allowed origins. "*" allows any origin.
	CORSOrigins []string

	// ArtifactsDir is reloaded by POST /api/model/reload. Empty disables
	// the endpoint.
	ArtifactsDir string

	// History enables prediction recording and the /api/predictions
	// endpoints. Nil disables both.
	History store.PredictionRepo

	// RequestLog receives gin's access log. Nil disables it.
	RequestLog io.Writer
}

// Server is the HTTP front of a predict.Service.
type Server struct {
	svc       *predict.Service
	predictor predict.Predictor
	history   store.PredictionRepo
	dir       string
	engine    *gin.Engine
}

// New builds the gin engine and routes.
func New(svc *predict.Service, opts Options) *Server {
	s := &Server{
		svc:       svc,
		predictor: svc,
		history:   opts.History,
		dir:       opts.ArtifactsDir,
	}
	if opts.History != nil {
		s.predictor = predict.WithHistory(svc, opts.History)
	}

	r := gin.New()
	if opts.RequestLog != nil {
		r.Use(gin.LoggerWithWriter(opts.RequestLog))
	}
	r.Use(gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.Logf("panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, rec)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":  "internal_error",
			"detail": "internal server error",
		})
	}))
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	r.GET("/", s.root)
	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/diseases", s.diseases)
		api.GET("/model/info", s.modelInfo)
		api.POST("/model/reload", s.reload)
		api.POST("/predict", s.predict)
		api.GET("/symptoms", s.symptoms)
		api.GET("/predictions", s.listPredictions)
		api.GET("/predictions/:id", s.getPrediction)
	}
	s.engine = r
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is done, then shuts down within
// shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Logf("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Logf("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
