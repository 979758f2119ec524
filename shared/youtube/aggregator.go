package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"

	"channel-insights/internal/models"
	"channel-insights/shared/config"
)

// ErrChannelNotFound is returned when channels.list has no item for the id.
var ErrChannelNotFound = errors.New("channel not found")

// Aggregator collects channel, video and comment data from a Source and
// normalizes it. It holds no per-request state and calls are sequential.
type Aggregator struct {
	source          Source
	maxPerVideo     int
	sweepDelay      time.Duration
	sweepVideoLimit int
	sleep           func(ctx context.Context, d time.Duration) error
}

func NewAggregator(source Source, cfg config.CommentsConfig) *Aggregator {
	maxPerVideo := cfg.MaxPerVideo
	if maxPerVideo <= 0 {
		maxPerVideo = 100
	}
	return &Aggregator{
		source:          source,
		maxPerVideo:     maxPerVideo,
		sweepDelay:      cfg.SweepDelay,
		sweepVideoLimit: cfg.SweepVideoLimit,
		sleep:           sleepContext,
	}
}

// GetChannelInfo looks up a single channel.
func (a *Aggregator) GetChannelInfo(ctx context.Context, channelID string) (*models.ChannelSummary, error) {
	resp, err := a.source.ListChannels(ctx, channelID, "snippet", "statistics", "contentDetails")
	if err != nil {
		log.Error().Err(err).Str("channel_id", channelID).Msg("Failed to fetch channel info")
		return nil, fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		log.Info().Str("channel_id", channelID).Msg("Channel not found")
		return nil, ErrChannelNotFound
	}

	summary := NormalizeChannel(resp.Items[0])
	summary.ID = channelID
	return &summary, nil
}

// GetChannelVideos walks the channel's upload playlist in upstream order and
// joins every page with one batched videos.list lookup. maxResults <= 0 means
// every upload. Any failure discards the partial result.
func (a *Aggregator) GetChannelVideos(ctx context.Context, channelID string, maxResults int) ([]models.VideoRecord, error) {
	playlistID, err := a.uploadsPlaylistID(ctx, channelID)
	if err != nil {
		log.Error().Err(err).Str("channel_id", channelID).Msg("Failed to resolve uploads playlist")
		return nil, err
	}

	videos, err := Paginate(ctx, maxPlaylistPageSize, maxResults, func(ctx context.Context, pageToken string, pageSize int64) ([]models.VideoRecord, string, error) {
		resp, err := a.source.ListPlaylistItems(ctx, playlistID, pageToken, pageSize)
		if err != nil {
			return nil, "", fmt.Errorf("failed to list playlist items: %w", err)
		}
		records, err := a.joinVideoDetails(ctx, resp.Items)
		if err != nil {
			return nil, "", err
		}
		return records, resp.NextPageToken, nil
	})
	if err != nil {
		log.Error().Err(err).Str("channel_id", channelID).Str("playlist_id", playlistID).Msg("Failed to fetch channel videos")
		return nil, err
	}

	log.Info().Str("channel_id", channelID).Int("video_count", len(videos)).Msg("Retrieved channel videos")

	if videos == nil {
		videos = []models.VideoRecord{}
	}
	return videos, nil
}

func (a *Aggregator) uploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	resp, err := a.source.ListChannels(ctx, channelID, "contentDetails")
	if err != nil {
		return "", fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		return "", ErrChannelNotFound
	}

	cd := resp.Items[0].ContentDetails
	if cd == nil || cd.RelatedPlaylists == nil || cd.RelatedPlaylists.Uploads == "" {
		return "", fmt.Errorf("channel %s has no uploads playlist", channelID)
	}
	return cd.RelatedPlaylists.Uploads, nil
}

// joinVideoDetails keys the videos.list response by id, so the batch may come
// back in any order or miss entries without shifting statistics onto the wrong
// playlist item.
func (a *Aggregator) joinVideoDetails(ctx context.Context, items []*youtube.PlaylistItem) ([]models.VideoRecord, error) {
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if id := playlistItemVideoID(item); id != "" {
			ids = append(ids, id)
		}
	}

	details := make(map[string]*youtube.Video, len(ids))
	if len(ids) > 0 {
		resp, err := a.source.ListVideos(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch video details: %w", err)
		}
		for _, v := range resp.Items {
			details[v.Id] = v
		}
	}

	records := make([]models.VideoRecord, 0, len(items))
	for _, item := range items {
		id := playlistItemVideoID(item)
		records = append(records, NormalizeVideo(item, details[id]))
	}
	return records, nil
}

// GetVideoComments pages through a video's top-level comments, at most
// maxResults of them (<= 0 uses the configured default). Failures never
// surface: a failing page ends the walk with what was already collected.
func (a *Aggregator) GetVideoComments(ctx context.Context, videoID string, maxResults int) []models.CommentRecord {
	if maxResults <= 0 {
		maxResults = a.maxPerVideo
	}

	comments, err := Paginate(ctx, maxCommentPageSize, maxResults, func(ctx context.Context, pageToken string, pageSize int64) ([]models.CommentRecord, string, error) {
		resp, err := a.source.ListCommentThreads(ctx, videoID, pageToken, pageSize)
		if err != nil {
			return nil, "", err
		}
		records := make([]models.CommentRecord, 0, len(resp.Items))
		for _, thread := range resp.Items {
			if record, ok := NormalizeComment(thread); ok {
				records = append(records, record)
			}
		}
		return records, resp.NextPageToken, nil
	})
	if err != nil {
		if IsCommentsDisabled(err) {
			log.Debug().Str("video_id", videoID).Msg("Comments are disabled")
		} else {
			log.Warn().Err(err).Str("video_id", videoID).Int("collected", len(comments)).Msg("Failed to fetch comments page")
		}
	}

	if comments == nil {
		comments = []models.CommentRecord{}
	}
	return comments
}

// GetChannelComments sweeps every upload of the channel one video at a time,
// tagging each comment with its video and pausing between videos. It never
// fails: unresolvable channels yield an empty list and a bad video only costs
// its own comments.
func (a *Aggregator) GetChannelComments(ctx context.Context, channelID string) []models.CommentRecord {
	videos, err := a.GetChannelVideos(ctx, channelID, a.sweepVideoLimit)
	if err != nil || len(videos) == 0 {
		return []models.CommentRecord{}
	}
	return a.SweepComments(ctx, channelID, videos)
}

// SweepComments is the comment sweep of GetChannelComments over videos the
// caller already resolved. The configured sweep limit still caps how many
// videos are visited.
func (a *Aggregator) SweepComments(ctx context.Context, channelID string, videos []models.VideoRecord) []models.CommentRecord {
	all := []models.CommentRecord{}
	if a.sweepVideoLimit > 0 && len(videos) > a.sweepVideoLimit {
		videos = videos[:a.sweepVideoLimit]
	}

	for i, video := range videos {
		if i > 0 {
			if err := a.sleep(ctx, a.sweepDelay); err != nil {
				log.Warn().Err(err).Str("channel_id", channelID).Int("videos_done", i).Msg("Comment sweep interrupted")
				break
			}
		}

		comments := a.GetVideoComments(ctx, video.ID, a.maxPerVideo)
		for _, c := range comments {
			c.VideoID = video.ID
			c.VideoTitle = video.Title
			c.VideoPublishedAt = video.PublishedAt
			all = append(all, c)
		}
	}

	log.Info().
		Str("channel_id", channelID).
		Int("video_count", len(videos)).
		Int("comment_count", len(all)).
		Msg("Channel comment sweep complete")

	return all
}

// IsCommentsDisabled reports whether err is the Data API refusing a comment
// listing because the video has comments turned off.
func IsCommentsDisabled(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, item := range apiErr.Errors {
		if item.Reason == "commentsDisabled" {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
