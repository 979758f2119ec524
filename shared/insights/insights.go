// Package insights derives dashboard metrics from normalized channel data.
// Every Compute function is pure; ChartData maps a Report onto the fields the
// chart prompt templates expect.
package insights

import (
	"context"
	"time"

	"channel-insights/internal/models"
)

// ChartAnalyzer writes commentary for one chart's data.
type ChartAnalyzer interface {
	AnalyzeChartData(ctx context.Context, chartType models.ChartType, data map[string]any) (string, error)
}

// Report holds every chart's metrics for one channel.
type Report struct {
	Engagement         Engagement         `json:"engagement"`
	Growth             Growth             `json:"growth"`
	Upload             Upload             `json:"upload"`
	ContentPerformance ContentPerformance `json:"content_performance"`
	CoreFans           CoreFans           `json:"core_fans"`
	Titles             TitleAnalysis      `json:"titles"`
}

// Compute builds a Report. now anchors the growth window.
func Compute(channel *models.ChannelSummary, videos []models.VideoRecord, comments []models.CommentRecord, now time.Time) Report {
	return Report{
		Engagement:         ComputeEngagement(videos),
		Growth:             ComputeGrowth(videos, now),
		Upload:             ComputeUpload(videos),
		ContentPerformance: ComputeContentPerformance(videos),
		CoreFans:           ComputeCoreFans(channel, comments),
		Titles:             ComputeTitleAnalysis(videos),
	}
}

// ChartData returns the prompt data for chartType, or nil for an unknown type.
func (r Report) ChartData(chartType models.ChartType) map[string]any {
	switch chartType {
	case models.ChartEngagement:
		return map[string]any{
			"like_ratio":       r.Engagement.LikeRatio,
			"comment_ratio":    r.Engagement.CommentRatio,
			"total_engagement": r.Engagement.TotalEngagement,
		}
	case models.ChartGrowth:
		return map[string]any{
			"total_views":       r.Growth.TotalViews,
			"avg_views":         r.Growth.AvgViews,
			"view_growth":       r.Growth.ViewGrowth,
			"engagement_growth": r.Growth.EngagementGrowth,
		}
	case models.ChartUpload:
		return map[string]any{
			"top_day":         orNone(r.Upload.TopDay),
			"top_hour":        orNone(r.Upload.TopHour),
			"upload_interval": r.Upload.UploadInterval,
		}
	case models.ChartContentPerformance:
		cp := r.ContentPerformance
		return map[string]any{
			"best_duration":   cp.Best.Label,
			"best_views":      cp.Best.AvgViews,
			"best_engagement": cp.Best.AvgEngagement,
			"short_views":     cp.Short.AvgViews,
			"medium_views":    cp.Medium.AvgViews,
			"long_views":      cp.Long.AvgViews,
		}
	case models.ChartCoreFans:
		data := map[string]any{
			"total_core_fans":      len(r.CoreFans.Fans),
			"top_fan_comments":     0,
			"top_fan_likes":        int64(0),
			"top_fan_engagement":   0.0,
			"avg_comments_per_fan": r.CoreFans.AvgCommentsPerFan,
			"avg_engagement_rate":  r.CoreFans.AvgEngagementRate,
		}
		if len(r.CoreFans.Fans) > 0 {
			top := r.CoreFans.Fans[0]
			data["top_fan_comments"] = top.CommentCount
			data["top_fan_likes"] = top.TotalLikes
			data["top_fan_engagement"] = top.EngagementRate
		}
		return data
	default:
		return nil
	}
}

// Charts returns one ChartInsight per chart type. With a nil analyzer only the
// data is filled in; otherwise each chart is analyzed in turn and a failure is
// recorded on that chart without stopping the rest.
func (r Report) Charts(ctx context.Context, analyzer ChartAnalyzer) []models.ChartInsight {
	charts := make([]models.ChartInsight, 0, len(models.ChartTypes))
	for _, chartType := range models.ChartTypes {
		insight := models.ChartInsight{Type: chartType, Data: r.ChartData(chartType)}
		if analyzer != nil {
			text, err := analyzer.AnalyzeChartData(ctx, chartType, insight.Data)
			if err != nil {
				insight.Error = err.Error()
			} else {
				insight.Analysis = text
			}
		}
		charts = append(charts, insight)
	}
	return charts
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
