package youtube

import (
	"strconv"

	"google.golang.org/api/youtube/v3"

	"channel-insights/internal/models"
)

// NormalizeChannel flattens a channels.list item. CustomURL is empty when the
// channel has none.
func NormalizeChannel(ch *youtube.Channel) models.ChannelSummary {
	summary := models.ChannelSummary{
		ID:              ch.Id,
		SubscriberCount: "0",
		VideoCount:      "0",
		ViewCount:       "0",
	}

	if s := ch.Snippet; s != nil {
		summary.Title = s.Title
		summary.Description = s.Description
		summary.CustomURL = s.CustomUrl
		summary.PublishedAt = s.PublishedAt
		if s.Thumbnails != nil && s.Thumbnails.Default != nil {
			summary.ThumbnailURL = s.Thumbnails.Default.Url
		}
	}

	if st := ch.Statistics; st != nil {
		summary.SubscriberCount = count(st.SubscriberCount)
		summary.VideoCount = count(st.VideoCount)
		summary.ViewCount = count(st.ViewCount)
	}

	return summary
}

// NormalizeVideo flattens a playlist item joined with its videos.list entry.
// details may be nil when the batch lookup did not return the video; the
// counters then stay "0".
func NormalizeVideo(item *youtube.PlaylistItem, details *youtube.Video) models.VideoRecord {
	record := models.VideoRecord{
		ID:           playlistItemVideoID(item),
		ViewCount:    "0",
		LikeCount:    "0",
		CommentCount: "0",
	}

	if s := item.Snippet; s != nil {
		record.Title = s.Title
		record.Description = s.Description
		record.PublishedAt = s.PublishedAt
		if s.Thumbnails != nil && s.Thumbnails.Medium != nil {
			record.ThumbnailURL = s.Thumbnails.Medium.Url
		}
	}

	if details != nil {
		if st := details.Statistics; st != nil {
			record.ViewCount = count(st.ViewCount)
			record.LikeCount = count(st.LikeCount)
			record.CommentCount = count(st.CommentCount)
		}
		if cd := details.ContentDetails; cd != nil {
			record.Duration = cd.Duration
		}
	}

	return record
}

// NormalizeComment flattens a commentThreads.list item to its top-level
// comment. ok is false when the thread carries no top-level snippet.
func NormalizeComment(thread *youtube.CommentThread) (models.CommentRecord, bool) {
	if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil || thread.Snippet.TopLevelComment.Snippet == nil {
		return models.CommentRecord{}, false
	}
	c := thread.Snippet.TopLevelComment.Snippet

	record := models.CommentRecord{
		Text:        c.TextDisplay,
		Author:      c.AuthorDisplayName,
		LikeCount:   c.LikeCount,
		PublishedAt: c.PublishedAt,
	}
	if c.AuthorChannelId != nil {
		record.AuthorChannelID = c.AuthorChannelId.Value
	}
	return record, true
}

func playlistItemVideoID(item *youtube.PlaylistItem) string {
	if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
		return item.ContentDetails.VideoId
	}
	if item.Snippet != nil && item.Snippet.ResourceId != nil {
		return item.Snippet.ResourceId.VideoId
	}
	return ""
}

func count(n uint64) string {
	return strconv.FormatUint(n, 10)
}
