package models

// ChannelSummary is a request-scoped snapshot of a channel.
// Counters stay in the textual form the upstream API reports them in.
type ChannelSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	SubscriberCount string `json:"subscriberCount"`
	VideoCount      string `json:"videoCount"`
	ViewCount       string `json:"viewCount"`
	ThumbnailURL    string `json:"thumbnail"`
	CustomURL       string `json:"customUrl"`
	PublishedAt     string `json:"publishedAt"`
}

// VideoRecord is one item of a channel's upload collection joined with its
// statistics. ViewCount, LikeCount and CommentCount are never empty: "0" when
// the upstream omits them.
type VideoRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail"`
	PublishedAt  string `json:"publishedAt"`
	ViewCount    string `json:"viewCount"`
	LikeCount    string `json:"likeCount"`
	CommentCount string `json:"commentCount"`
	Duration     string `json:"duration"`
}

// CommentRecord is a top-level comment. The Video* fields are only set when the
// comment was collected by a channel-wide sweep.
type CommentRecord struct {
	Text            string `json:"text"`
	Author          string `json:"author"`
	AuthorChannelID string `json:"authorChannelId,omitempty"`
	LikeCount       int64  `json:"likeCount"`
	PublishedAt     string `json:"publishedAt"`

	VideoID          string `json:"videoId,omitempty"`
	VideoTitle       string `json:"videoTitle,omitempty"`
	VideoPublishedAt string `json:"videoPublishedAt,omitempty"`
}

// Texts returns the comment bodies in order.
func Texts(comments []CommentRecord) []string {
	texts := make([]string, 0, len(comments))
	for _, c := range comments {
		texts = append(texts, c.Text)
	}
	return texts
}
