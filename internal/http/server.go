package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"whisperasr/internal/app"
)

type Server struct {
	engine *gin.Engine
	app    *app.App
	srv    *http.Server
}

func NewServer(a *app.App) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := newEngine(a)
	return &Server{
		engine: engine,
		app:    a,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%s", a.Config.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func newEngine(a *app.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(a.Logger.With().Str("component", "http").Logger()))
	engine.Use(Metrics())
	// multipart import carries a JSON document next to the audio
	engine.Use(MaxBodySize(2 * a.Config.MaxUploadBytes))
	engine.Use(CORS())

	registerRoutes(engine, NewAPI(a))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.app.Logger.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
