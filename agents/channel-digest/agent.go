package channeldigest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"channel-insights/internal/models"
	"channel-insights/shared/ai"
	"channel-insights/shared/config"
	"channel-insights/shared/email"
	"channel-insights/shared/insights"
	"channel-insights/shared/scheduler"
	"channel-insights/shared/storage"
	"channel-insights/shared/youtube"
)

const topVideoCount = 5

// ChannelSource is the part of the YouTube aggregator a digest needs.
type ChannelSource interface {
	GetChannelInfo(ctx context.Context, channelID string) (*models.ChannelSummary, error)
	GetChannelVideos(ctx context.Context, channelID string, maxResults int) ([]models.VideoRecord, error)
	SweepComments(ctx context.Context, channelID string, videos []models.VideoRecord) []models.CommentRecord
}

type Analyzer interface {
	AnalyzeComments(ctx context.Context, texts []string) models.AnalysisResult
	insights.ChartAnalyzer
}

type ReportStore interface {
	Save(report *models.DigestReport) error
	Prune() (int, error)
}

type Mailer interface {
	SendDigest(reports []*models.DigestReport, date time.Time) error
}

// DigestMetrics summarizes one digest run.
type DigestMetrics struct {
	Channels  int  `json:"channels"`
	Reports   int  `json:"reports"`
	Failed    int  `json:"failed"`
	Comments  int  `json:"comments"`
	Pruned    int  `json:"pruned"`
	EmailSent bool `json:"email_sent"`
}

// GetSummary implements the scheduler.Metrics interface
func (m DigestMetrics) GetSummary() string {
	summary := fmt.Sprintf("digested %d/%d channels, %d comments analyzed", m.Reports, m.Channels, m.Comments)
	if m.EmailSent {
		summary += ", email sent"
	}
	return summary
}

// DigestAgent implements the scheduler.Agent interface
type DigestAgent struct {
	config   *config.Config
	channels ChannelSource
	analyzer Analyzer
	store    ReportStore
	mailer   Mailer
	now      func() time.Time
}

func NewDigestAgent(cfg *config.Config) *DigestAgent {
	return &DigestAgent{
		config: cfg,
		now:    time.Now,
	}
}

func (d *DigestAgent) Name() string {
	return "Channel Digest"
}

func (d *DigestAgent) Initialize() error {
	log.Info().Str("agent", d.Name()).Msg("Initializing")
	ctx := context.Background()

	if err := d.config.ValidateDigest(); err != nil {
		return err
	}

	if d.channels == nil {
		client, err := youtube.NewClient(ctx, d.config.YouTube)
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		d.channels = youtube.NewAggregator(client, d.config.Comments)
		log.Debug().Msg("YouTube client initialized")
	}

	if d.analyzer == nil {
		generator, err := ai.NewGeminiGenerator(ctx, d.config.AI)
		if err != nil {
			return fmt.Errorf("failed to create AI generator: %w", err)
		}
		prompts, err := ai.LoadPrompts(d.config.AI.PromptsFile)
		if err != nil {
			return err
		}
		d.analyzer = ai.NewSummarizer(generator, prompts, d.config.AI)
		log.Debug().Str("model", d.config.AI.Model).Msg("Summarizer initialized")
	}

	if d.store == nil {
		store, err := storage.NewReportStore(d.config.Digest.DataDir, d.config.Digest.Retention)
		if err != nil {
			return fmt.Errorf("failed to create report store: %w", err)
		}
		d.store = store
		log.Debug().Int("reports", store.Count()).Msg("Report store initialized")
	}

	if d.mailer == nil && d.config.Digest.SendEmail {
		d.mailer = email.NewSender(d.config.Email)
		log.Debug().Msg("Email sender initialized")
	}

	return nil
}

// RunOnce builds, stores and optionally mails a report for every configured
// channel. One failed channel is a partial failure; all failing is critical.
func (d *DigestAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	channelIDs := d.config.Digest.Channels
	metrics := DigestMetrics{Channels: len(channelIDs)}

	pruned, err := d.store.Prune()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to prune old reports")
	}
	metrics.Pruned = pruned

	var reports []*models.DigestReport
	var failures []error

	for i, channelID := range channelIDs {
		if err := ctx.Err(); err != nil {
			return err
		}

		log.Info().Str("channel_id", channelID).Msgf("Building digest %d/%d", i+1, len(channelIDs))

		report, err := d.buildReport(ctx, channelID)
		if err == nil {
			err = d.store.Save(report)
		}
		if err != nil {
			log.Warn().Err(err).Str("channel_id", channelID).Msg("Channel digest failed")
			failures = append(failures, fmt.Errorf("%s: %w", channelID, err))
			continue
		}

		reports = append(reports, report)
		metrics.Comments += report.CommentCount
	}

	metrics.Reports = len(reports)
	metrics.Failed = len(failures)

	// Returned errors are recorded as critical by the scheduler.
	if len(reports) == 0 && len(failures) > 0 {
		return fmt.Errorf("every channel failed: %w", errors.Join(failures...))
	}
	if len(failures) > 0 && events != nil && events.OnPartialFailure != nil {
		events.OnPartialFailure(fmt.Errorf("%d of %d channels failed: %w", len(failures), len(channelIDs), errors.Join(failures...)), time.Since(startTime))
	}

	if d.mailer != nil && len(reports) > 0 {
		if err := d.mailer.SendDigest(reports, d.now()); err != nil {
			return fmt.Errorf("failed to send digest email: %w", err)
		}
		metrics.EmailSent = true
	}

	duration := time.Since(startTime)
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, duration)
	}

	log.Info().
		Int("reports", metrics.Reports).
		Int("failed", metrics.Failed).
		Int("pruned", metrics.Pruned).
		Bool("email_sent", metrics.EmailSent).
		Dur("duration", duration).
		Msg("Digest run complete")

	return nil
}

func (d *DigestAgent) buildReport(ctx context.Context, channelID string) (*models.DigestReport, error) {
	channel, err := d.channels.GetChannelInfo(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel info: %w", err)
	}

	videos, err := d.channels.GetChannelVideos(ctx, channelID, d.config.Digest.MaxVideos)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel videos: %w", err)
	}

	comments := d.channels.SweepComments(ctx, channelID, videos)
	analysis := d.analyzer.AnalyzeComments(ctx, models.Texts(comments))
	if analysis.IsError() {
		log.Warn().Str("channel_id", channelID).Str("reason", analysis.Feedback[0].Content).Msg("Comment analysis returned an error result")
	}

	now := d.now().UTC()
	report := insights.Compute(channel, videos, comments, now)

	return &models.DigestReport{
		GeneratedAt:  now,
		Channel:      channel,
		VideoCount:   len(videos),
		CommentCount: len(comments),
		Analysis:     analysis,
		Insights:     report.Charts(ctx, d.analyzer),
		TopVideos:    insights.TopVideos(videos, topVideoCount),
	}, nil
}
