package youtube

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"
)

// fakeSource serves canned Data API responses and records the calls it gets.
type fakeSource struct {
	channels      map[string]*youtube.Channel
	playlistPages map[string][]*youtube.PlaylistItem // playlist id -> all items
	videos        map[string]*youtube.Video
	comments      map[string][]*youtube.CommentThread
	commentErrs   map[string]error

	channelErr  error
	playlistErr error
	videosErr   error

	playlistCalls []int64
	videoCalls    [][]string
	commentCalls  map[string][]int64
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		channels:      map[string]*youtube.Channel{},
		playlistPages: map[string][]*youtube.PlaylistItem{},
		videos:        map[string]*youtube.Video{},
		comments:      map[string][]*youtube.CommentThread{},
		commentErrs:   map[string]error{},
		commentCalls:  map[string][]int64{},
	}
}

func (f *fakeSource) ListChannels(_ context.Context, channelID string, _ ...string) (*youtube.ChannelListResponse, error) {
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	resp := &youtube.ChannelListResponse{}
	if ch, ok := f.channels[channelID]; ok {
		resp.Items = []*youtube.Channel{ch}
	}
	return resp, nil
}

// page slices items using the token as an offset, mimicking upstream paging.
func page[T any](items []T, pageToken string, pageSize int64) ([]T, string) {
	offset := 0
	if pageToken != "" {
		offset, _ = strconv.Atoi(pageToken)
	}
	end := offset + int(pageSize)
	if end > len(items) {
		end = len(items)
	}
	next := ""
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	return items[offset:end], next
}

func (f *fakeSource) ListPlaylistItems(_ context.Context, playlistID, pageToken string, pageSize int64) (*youtube.PlaylistItemListResponse, error) {
	f.playlistCalls = append(f.playlistCalls, pageSize)
	if f.playlistErr != nil {
		return nil, f.playlistErr
	}
	items, next := page(f.playlistPages[playlistID], pageToken, pageSize)
	return &youtube.PlaylistItemListResponse{Items: items, NextPageToken: next}, nil
}

func (f *fakeSource) ListVideos(_ context.Context, videoIDs []string) (*youtube.VideoListResponse, error) {
	f.videoCalls = append(f.videoCalls, videoIDs)
	if f.videosErr != nil {
		return nil, f.videosErr
	}
	resp := &youtube.VideoListResponse{}
	// Reverse order so a positional zip would mismatch.
	for i := len(videoIDs) - 1; i >= 0; i-- {
		if v, ok := f.videos[videoIDs[i]]; ok {
			resp.Items = append(resp.Items, v)
		}
	}
	return resp, nil
}

func (f *fakeSource) ListCommentThreads(_ context.Context, videoID, pageToken string, pageSize int64) (*youtube.CommentThreadListResponse, error) {
	f.commentCalls[videoID] = append(f.commentCalls[videoID], pageSize)
	if err := f.commentErrs[videoID]; err != nil {
		return nil, err
	}
	items, next := page(f.comments[videoID], pageToken, pageSize)
	return &youtube.CommentThreadListResponse{Items: items, NextPageToken: next}, nil
}

func (f *fakeSource) addChannel(channelID, uploads string, videoIDs ...string) {
	f.channels[channelID] = &youtube.Channel{
		Id: channelID,
		Snippet: &youtube.ChannelSnippet{
			Title:       "Channel " + channelID,
			Description: "about",
			PublishedAt: "2020-01-01T00:00:00Z",
			Thumbnails: &youtube.ThumbnailDetails{
				Default: &youtube.Thumbnail{Url: "https://img/" + channelID},
			},
		},
		Statistics: &youtube.ChannelStatistics{SubscriberCount: 1000, VideoCount: uint64(len(videoIDs)), ViewCount: 50000},
		ContentDetails: &youtube.ChannelContentDetails{
			RelatedPlaylists: &youtube.ChannelContentDetailsRelatedPlaylists{Uploads: uploads},
		},
	}
	for i, id := range videoIDs {
		f.playlistPages[uploads] = append(f.playlistPages[uploads], playlistItem(id, i))
		f.videos[id] = &youtube.Video{
			Id:             id,
			Statistics:     &youtube.VideoStatistics{ViewCount: uint64(100 * (i + 1)), LikeCount: uint64(10 * (i + 1)), CommentCount: uint64(i + 1)},
			ContentDetails: &youtube.VideoContentDetails{Duration: fmt.Sprintf("PT%dM", i+1)},
		}
	}
}

func playlistItem(videoID string, i int) *youtube.PlaylistItem {
	return &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			Title:       "Video " + videoID,
			Description: "desc " + videoID,
			PublishedAt: fmt.Sprintf("2024-01-%02dT10:00:00Z", 28-i%28),
			Thumbnails: &youtube.ThumbnailDetails{
				Medium: &youtube.Thumbnail{Url: "https://img/" + videoID},
			},
		},
		ContentDetails: &youtube.PlaylistItemContentDetails{VideoId: videoID},
	}
}

func (f *fakeSource) addComments(videoID string, n int) {
	for i := 0; i < n; i++ {
		f.comments[videoID] = append(f.comments[videoID], commentThread(fmt.Sprintf("%s comment %d", videoID, i), "user"+strconv.Itoa(i), int64(i)))
	}
}

func commentThread(text, author string, likes int64) *youtube.CommentThread {
	return &youtube.CommentThread{
		Snippet: &youtube.CommentThreadSnippet{
			TopLevelComment: &youtube.Comment{
				Snippet: &youtube.CommentSnippet{
					TextDisplay:       text,
					AuthorDisplayName: author,
					LikeCount:         likes,
					PublishedAt:       "2024-02-01T00:00:00Z",
				},
			},
		},
	}
}

func commentsDisabledErr() error {
	return &googleapi.Error{
		Code:    403,
		Message: "The video identified by the videoId parameter has disabled comments.",
		Errors:  []googleapi.ErrorItem{{Reason: "commentsDisabled"}},
	}
}
