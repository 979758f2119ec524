package insights

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"channel-insights/internal/models"
)

const (
	// MinCoreFanComments is how many comments make an author a core fan.
	MinCoreFanComments = 3
	maxCoreFans        = 10
)

// Fan is one commenter's activity across a channel's recent uploads.
type Fan struct {
	Author          string    `json:"author"`
	AuthorChannelID string    `json:"author_channel_id,omitempty"`
	CommentCount    int       `json:"comment_count"`
	TotalLikes      int64     `json:"total_likes"`
	UniqueVideos    int       `json:"unique_videos"`
	LastComment     string    `json:"last_comment"`
	FirstActivity   time.Time `json:"first_activity"`
	LastActivity    time.Time `json:"last_activity"`
	EngagementRate  float64   `json:"engagement_rate"` // percent of swept videos commented on
}

type CoreFans struct {
	Fans              []Fan   `json:"fans"`
	AvgCommentsPerFan float64 `json:"avg_comments_per_fan"`
	AvgEngagementRate float64 `json:"avg_engagement_rate"`
}

// ComputeCoreFans groups channel comments by author, drops the channel's own
// comments and keeps the most active authors with at least
// MinCoreFanComments comments.
func ComputeCoreFans(channel *models.ChannelSummary, comments []models.CommentRecord) CoreFans {
	sweptVideos := make(map[string]struct{})
	for _, c := range comments {
		if c.VideoID != "" {
			sweptVideos[c.VideoID] = struct{}{}
		}
	}

	type activity struct {
		fan    Fan
		videos map[string]struct{}
	}
	byAuthor := make(map[string]*activity)
	var order []string

	for _, c := range comments {
		if isOwner(channel, c) {
			continue
		}
		key := c.AuthorChannelID
		if key == "" {
			key = "name:" + c.Author
		}

		a, ok := byAuthor[key]
		if !ok {
			a = &activity{
				fan:    Fan{Author: c.Author, AuthorChannelID: c.AuthorChannelID},
				videos: make(map[string]struct{}),
			}
			byAuthor[key] = a
			order = append(order, key)
		}

		a.fan.CommentCount++
		a.fan.TotalLikes += c.LikeCount
		if c.VideoID != "" {
			a.videos[c.VideoID] = struct{}{}
		}

		published, err := time.Parse(time.RFC3339, c.PublishedAt)
		if err != nil {
			continue
		}
		if a.fan.FirstActivity.IsZero() || published.Before(a.fan.FirstActivity) {
			a.fan.FirstActivity = published
		}
		if !published.Before(a.fan.LastActivity) {
			a.fan.LastActivity = published
			a.fan.LastComment = c.Text
		}
	}

	fans := make([]Fan, 0)
	for _, key := range order {
		a := byAuthor[key]
		if a.fan.CommentCount < MinCoreFanComments {
			continue
		}
		a.fan.UniqueVideos = len(a.videos)
		if len(sweptVideos) > 0 {
			a.fan.EngagementRate = round2(float64(len(a.videos)) / float64(len(sweptVideos)) * 100)
		}
		fans = append(fans, a.fan)
	}

	slices.SortStableFunc(fans, func(a, b Fan) int {
		if c := cmp.Compare(b.CommentCount, a.CommentCount); c != 0 {
			return c
		}
		return cmp.Compare(b.TotalLikes, a.TotalLikes)
	})
	if len(fans) > maxCoreFans {
		fans = fans[:maxCoreFans]
	}

	result := CoreFans{Fans: fans}
	if len(fans) > 0 {
		var total int
		var rate float64
		for _, f := range fans {
			total += f.CommentCount
			rate += f.EngagementRate
		}
		result.AvgCommentsPerFan = round1(float64(total) / float64(len(fans)))
		result.AvgEngagementRate = round1(rate / float64(len(fans)))
	}
	return result
}

func isOwner(channel *models.ChannelSummary, c models.CommentRecord) bool {
	if channel == nil {
		return false
	}
	if c.AuthorChannelID != "" && c.AuthorChannelID == channel.ID {
		return true
	}
	return channel.Title != "" && strings.EqualFold(c.Author, channel.Title)
}
