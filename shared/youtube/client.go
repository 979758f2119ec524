package youtube

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"channel-insights/shared/config"
)

// Source is the subset of the YouTube Data API the aggregators consume. Each
// method issues exactly one request.
type Source interface {
	ListChannels(ctx context.Context, channelID string, parts ...string) (*youtube.ChannelListResponse, error)
	ListPlaylistItems(ctx context.Context, playlistID, pageToken string, pageSize int64) (*youtube.PlaylistItemListResponse, error)
	ListVideos(ctx context.Context, videoIDs []string) (*youtube.VideoListResponse, error)
	ListCommentThreads(ctx context.Context, videoID, pageToken string, pageSize int64) (*youtube.CommentThreadListResponse, error)
}

// Client implements Source on top of the generated Data API service.
type Client struct {
	service *youtube.Service
}

// NewClient builds the Data API service from the configured credential: the API
// key when present, otherwise the cached OAuth token. Extra options are applied
// last, which lets tests point the client at a local endpoint.
func NewClient(ctx context.Context, cfg config.YouTubeConfig, extra ...option.ClientOption) (*Client, error) {
	var opts []option.ClientOption

	if cfg.UsesOAuth() {
		ts, err := newTokenSource(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load OAuth token: %w", err)
		}
		opts = append(opts, option.WithTokenSource(ts))
		log.Info().Str("token_file", cfg.TokenFile).Msg("Using OAuth token for YouTube Data API")
	} else {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("YouTube API key is required")
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	opts = append(opts, extra...)

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{service: service}, nil
}

func (c *Client) ListChannels(ctx context.Context, channelID string, parts ...string) (*youtube.ChannelListResponse, error) {
	return c.service.Channels.List(parts).
		Id(channelID).
		Context(ctx).
		Do()
}

func (c *Client) ListPlaylistItems(ctx context.Context, playlistID, pageToken string, pageSize int64) (*youtube.PlaylistItemListResponse, error) {
	call := c.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(pageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Do()
}

func (c *Client) ListVideos(ctx context.Context, videoIDs []string) (*youtube.VideoListResponse, error) {
	return c.service.Videos.List([]string{"statistics", "contentDetails"}).
		Id(videoIDs...).
		Context(ctx).
		Do()
}

func (c *Client) ListCommentThreads(ctx context.Context, videoID, pageToken string, pageSize int64) (*youtube.CommentThreadListResponse, error) {
	call := c.service.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		MaxResults(pageSize).
		TextFormat("plainText").
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Do()
}
