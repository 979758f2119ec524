package channelapi

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"channel-insights/internal/models"
	"channel-insights/shared/ai"
	"channel-insights/shared/insights"
)

const defaultCommentLimit = 100

func (s *Server) getChannel(c *fiber.Ctx) error {
	channelID := c.Params("channelId")

	channel, err := s.channels.GetChannelInfo(c.UserContext(), channelID)
	if err != nil {
		return detail(c, fiber.StatusNotFound, "Channel not found")
	}
	return c.JSON(channel)
}

func (s *Server) getChannelVideos(c *fiber.Ctx) error {
	channelID := c.Params("channelId")
	maxResults, err := queryLimit(c, 0)
	if err != nil {
		return err
	}

	videos, err := s.channels.GetChannelVideos(c.UserContext(), channelID, maxResults)
	if err != nil || len(videos) == 0 {
		return detail(c, fiber.StatusNotFound, "Videos not found")
	}
	return c.JSON(videos)
}

func (s *Server) getVideoComments(c *fiber.Ctx) error {
	videoID := c.Params("videoId")
	maxResults, err := queryLimit(c, defaultCommentLimit)
	if err != nil {
		return err
	}

	comments := s.channels.GetVideoComments(c.UserContext(), videoID, maxResults)
	if len(comments) == 0 {
		return detail(c, fiber.StatusNotFound, "Comments not found")
	}
	return c.JSON(comments)
}

func (s *Server) getVideoAnalysis(c *fiber.Ctx) error {
	videoID := c.Params("videoId")
	ctx := c.UserContext()

	comments := s.channels.GetVideoComments(ctx, videoID, defaultCommentLimit)
	if len(comments) == 0 {
		return detail(c, fiber.StatusNotFound, "Comments not found")
	}

	analysis := s.analyzer.AnalyzeComments(ctx, models.Texts(comments))
	return c.JSON(analysis)
}

func (s *Server) getChannelComments(c *fiber.Ctx) error {
	channelID := c.Params("channelId")

	comments := s.channels.GetChannelComments(c.UserContext(), channelID)
	if len(comments) == 0 {
		return detail(c, fiber.StatusNotFound, "Comments not found")
	}
	return c.JSON(comments)
}

// getChannelInsights computes every chart's metrics for a channel, with model
// commentary when ?analyze=true. ?comments=false skips the comment sweep and
// leaves the core fan chart empty.
func (s *Server) getChannelInsights(c *fiber.Ctx) error {
	channelID := c.Params("channelId")
	ctx := c.UserContext()

	maxResults, err := queryLimit(c, 0)
	if err != nil {
		return err
	}

	channel, err := s.channels.GetChannelInfo(ctx, channelID)
	if err != nil {
		return detail(c, fiber.StatusNotFound, "Channel not found")
	}
	videos, err := s.channels.GetChannelVideos(ctx, channelID, maxResults)
	if err != nil || len(videos) == 0 {
		return detail(c, fiber.StatusNotFound, "Videos not found")
	}

	var comments []models.CommentRecord
	if c.QueryBool("comments", true) {
		comments = s.channels.SweepComments(ctx, channelID, videos)
	}

	report := insights.Compute(channel, videos, comments, s.now())

	var charts []models.ChartInsight
	if c.QueryBool("analyze", false) {
		charts = report.Charts(ctx, s.analyzer)
	} else {
		charts = report.Charts(ctx, nil)
	}

	return c.JSON(fiber.Map{
		"channel": channel,
		"report":  report,
		"charts":  charts,
	})
}

type chartRequest struct {
	ChartType      string         `json:"chartType"`
	ChartTypeSnake string         `json:"chart_type"`
	Data           map[string]any `json:"data"`
}

func (r chartRequest) chartType() models.ChartType {
	if r.ChartType != "" {
		return models.ChartType(r.ChartType)
	}
	return models.ChartType(r.ChartTypeSnake)
}

func (s *Server) analyzeChart(c *fiber.Ctx) error {
	var req chartRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	chartType := req.chartType()
	if chartType == "" {
		return detail(c, fiber.StatusBadRequest, "chartType is required")
	}
	if !chartType.Valid() {
		return detail(c, fiber.StatusBadRequest, "Unknown chart type: "+string(chartType)+" (expected one of "+chartTypeList()+")")
	}
	if req.Data == nil {
		req.Data = map[string]any{}
	}

	analysis, err := s.analyzer.AnalyzeChartData(c.UserContext(), chartType, req.Data)
	switch {
	case errors.Is(err, ai.ErrUnknownChartType), errors.Is(err, ai.ErrInvalidChartData):
		return detail(c, fiber.StatusBadRequest, err.Error())
	case err != nil:
		log.Error().Err(err).Str("chart_type", string(chartType)).Msg("Chart analysis failed")
		return detail(c, fiber.StatusInternalServerError, "Chart analysis failed")
	}

	return c.JSON(fiber.Map{"analysis": analysis})
}

// queryLimit reads ?maxResults=, falling back to def when it is absent.
func queryLimit(c *fiber.Ctx, def int) (int, error) {
	if c.Query("maxResults") == "" {
		return def, nil
	}
	n := c.QueryInt("maxResults", -1)
	if n <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "maxResults must be a positive integer")
	}
	return n, nil
}

func chartTypeList() string {
	names := make([]string, len(models.ChartTypes))
	for i, t := range models.ChartTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
