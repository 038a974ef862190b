package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kaistullich/Image-Converter/internal/config"
	"github.com/kaistullich/Image-Converter/internal/handler"
	"github.com/kaistullich/Image-Converter/internal/metrics"
	"github.com/kaistullich/Image-Converter/internal/repository"
	"github.com/kaistullich/Image-Converter/internal/service"
	"github.com/kaistullich/Image-Converter/pkg/utils"
	"github.com/kaistullich/Image-Converter/web"
)

type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	log        *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	router, err := NewRouter(cfg, log, prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}

	server := &Server{
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			MaxHeaderBytes:    1 << 20, // 1 MB
		},
		cfg: cfg,
		log: log,
	}

	log.Info("Server created successfully",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("upload_dir", cfg.App.UploadDir))

	return server, nil
}

// NewRouter wires the upload pipeline onto a gin engine. Metrics are
// registered on reg and exposed at /metrics.
func NewRouter(cfg *config.Config, log *zap.Logger, reg *prometheus.Registry) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	repo, err := repository.NewFSRepository(cfg.App.UploadDir, log)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(reg)
	converter := utils.NewGrayscaleConverter(log, collector)
	imageService := service.NewImageService(repo, converter, collector, log)
	h := handler.NewHandler(imageService, cfg.App.MaxUploadSize, log)

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(log))
	router.MaxMultipartMemory = cfg.App.MaxUploadSize
	router.SetHTMLTemplate(tmpl)

	h.Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	router.Static(handler.UploadsURLPrefix, cfg.App.UploadDir)

	return router, nil
}

func (s *Server) Run() error {
	s.log.Info("Server is running",
		zap.String("address", s.httpServer.Addr))

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}
