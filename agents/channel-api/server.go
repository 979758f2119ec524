package channelapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"channel-insights/internal/models"
	"channel-insights/shared/config"
	"channel-insights/shared/storage"
)

const shutdownTimeout = 10 * time.Second

// ChannelSource is the aggregation surface the handlers read from.
type ChannelSource interface {
	GetChannelInfo(ctx context.Context, channelID string) (*models.ChannelSummary, error)
	GetChannelVideos(ctx context.Context, channelID string, maxResults int) ([]models.VideoRecord, error)
	GetVideoComments(ctx context.Context, videoID string, maxResults int) []models.CommentRecord
	GetChannelComments(ctx context.Context, channelID string) []models.CommentRecord
	SweepComments(ctx context.Context, channelID string, videos []models.VideoRecord) []models.CommentRecord
}

// Analyzer is the model-backed summarization surface.
type Analyzer interface {
	AnalyzeComments(ctx context.Context, texts []string) models.AnalysisResult
	AnalyzeChartData(ctx context.Context, chartType models.ChartType, data map[string]any) (string, error)
}

// ReportSource reads digest reports stored by the channel-digest agent.
type ReportSource interface {
	Get(id string) (*models.DigestReport, error)
	Latest(channelID string) (*models.DigestReport, error)
	List(channelID string) []storage.ReportEntry
}

// Server is the channel insights HTTP API.
type Server struct {
	app      *fiber.App
	cfg      config.ServerConfig
	channels ChannelSource
	analyzer Analyzer
	reports  ReportSource
	now      func() time.Time
}

// NewServer builds the API. reports may be nil, in which case the digest
// routes are not mounted.
func NewServer(cfg config.ServerConfig, channels ChannelSource, analyzer Analyzer, reports ReportSource) *Server {
	s := &Server{
		cfg:      cfg,
		channels: channels,
		analyzer: analyzer,
		reports:  reports,
		now:      time.Now,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "channel-insights",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "${status} ${method} ${path} ${latency}\n",
		Output: log.Logger,
	}))
	s.app.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	if s.cfg.RateLimitPerMinute > 0 {
		api.Use(rateLimit(s.cfg.RateLimitPerMinute))
	}

	api.Get("/channel/:channelId", s.getChannel)
	channel := api.Group("/channel/:channelId")
	channel.Get("/videos", s.getChannelVideos)
	channel.Get("/comments", s.getChannelComments)
	channel.Get("/insights", s.getChannelInsights)
	if s.reports != nil {
		channel.Get("/digest", s.getLatestDigest)
		channel.Get("/digests", s.listDigests)
		api.Get("/digests/:digestId", s.getDigest)
	}

	videos := api.Group("/videos/:videoId")
	videos.Get("/comments", s.getVideoComments)
	videos.Get("/analysis", s.getVideoAnalysis)

	api.Post("/analysis/chart", s.analyzeChart)

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	errCh := make(chan error, 1)

	go func() {
		log.Info().Str("addr", addr).Msg("API server starting")
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		log.Info().Msg("Shutting down API server")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return fmt.Errorf("API server shutdown failed: %w", err)
		}
		return nil
	}
}

func corsConfig(origins string) cors.Config {
	cfg := cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET, POST, OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}
	if origins != "*" {
		cfg.AllowCredentials = true
	}
	return cfg
}

func rateLimit(perMinute int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return detail(c, fiber.StatusTooManyRequests, "Too many requests, try again in a minute")
		},
	})
}

// errorHandler renders every unhandled error in the API's {"detail": ...} shape.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled request error")
	}
	return detail(c, code, message)
}

func detail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"detail": message})
}
