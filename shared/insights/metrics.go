package insights

import (
	"math"
	"slices"
	"strconv"
	"time"

	"channel-insights/internal/models"
)

// GrowthWindow splits uploads into recent and older for growth comparisons.
const GrowthWindow = 30 * 24 * time.Hour

const (
	shortVideoLimit  = 10 * time.Minute
	mediumVideoLimit = 20 * time.Minute
)

// Engagement averages per-video ratios, in percent of views.
type Engagement struct {
	LikeRatio       float64 `json:"like_ratio"`
	CommentRatio    float64 `json:"comment_ratio"`
	TotalEngagement float64 `json:"total_engagement"`
	Videos          int     `json:"videos"`
}

type Growth struct {
	TotalViews       int64   `json:"total_views"`
	AvgViews         float64 `json:"avg_views"`
	RecentAvgViews   float64 `json:"recent_avg_views"`
	OlderAvgViews    float64 `json:"older_avg_views"`
	ViewGrowth       float64 `json:"view_growth"`
	EngagementGrowth float64 `json:"engagement_growth"`
}

type Upload struct {
	ByWeekday      [7]int  `json:"by_weekday"`
	ByHour         [24]int `json:"by_hour"`
	TopDay         string  `json:"top_day"`
	TopHour        string  `json:"top_hour"`
	UploadInterval float64 `json:"upload_interval"` // mean days between uploads
}

// LengthBucket is the performance of videos in one duration range.
type LengthBucket struct {
	Label         string  `json:"label"`
	Videos        int     `json:"videos"`
	AvgViews      float64 `json:"avg_views"`
	AvgEngagement float64 `json:"avg_engagement"` // percent
}

type ContentPerformance struct {
	Short  LengthBucket `json:"short"`
	Medium LengthBucket `json:"medium"`
	Long   LengthBucket `json:"long"`
	Best   LengthBucket `json:"best"`
}

type videoStats struct {
	views, likes, comments int64
	published             time.Time
	hasDate               bool
	length                time.Duration
}

func parseVideo(v models.VideoRecord) videoStats {
	s := videoStats{
		views:    parseCount(v.ViewCount),
		likes:    parseCount(v.LikeCount),
		comments: parseCount(v.CommentCount),
		length:   ParseDuration(v.Duration),
	}
	if t, err := time.Parse(time.RFC3339, v.PublishedAt); err == nil {
		s.published = t.UTC()
		s.hasDate = true
	}
	return s
}

func (s videoStats) engagement() (float64, bool) {
	if s.views <= 0 {
		return 0, false
	}
	return float64(s.likes+s.comments) / float64(s.views) * 100, true
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ComputeEngagement averages like, comment and combined ratios over videos
// with a positive view count.
func ComputeEngagement(videos []models.VideoRecord) Engagement {
	var e Engagement
	for _, v := range videos {
		s := parseVideo(v)
		if s.views <= 0 {
			continue
		}
		views := float64(s.views)
		e.LikeRatio += float64(s.likes) / views * 100
		e.CommentRatio += float64(s.comments) / views * 100
		e.TotalEngagement += float64(s.likes+s.comments) / views * 100
		e.Videos++
	}
	if e.Videos > 0 {
		n := float64(e.Videos)
		e.LikeRatio = round2(e.LikeRatio / n)
		e.CommentRatio = round2(e.CommentRatio / n)
		e.TotalEngagement = round2(e.TotalEngagement / n)
	}
	return e
}

// ComputeGrowth compares uploads from the last GrowthWindow before now with
// older ones. Growth is 0 when either side has nothing to compare.
func ComputeGrowth(videos []models.VideoRecord, now time.Time) Growth {
	var g Growth
	cutoff := now.Add(-GrowthWindow)

	var recentViews, olderViews int64
	var recentEng, olderEng float64
	var recentN, olderN, recentEngN, olderEngN int

	for _, v := range videos {
		s := parseVideo(v)
		g.TotalViews += s.views
		eng, ok := s.engagement()
		if s.hasDate && !s.published.Before(cutoff) {
			recentViews += s.views
			recentN++
			if ok {
				recentEng += eng
				recentEngN++
			}
		} else {
			olderViews += s.views
			olderN++
			if ok {
				olderEng += eng
				olderEngN++
			}
		}
	}

	if len(videos) > 0 {
		g.AvgViews = round2(float64(g.TotalViews) / float64(len(videos)))
	}
	g.RecentAvgViews = round2(mean(float64(recentViews), recentN))
	g.OlderAvgViews = round2(mean(float64(olderViews), olderN))
	g.ViewGrowth = round2(percentChange(g.RecentAvgViews, g.OlderAvgViews, recentN, olderN))
	g.EngagementGrowth = round2(percentChange(mean(recentEng, recentEngN), mean(olderEng, olderEngN), recentEngN, olderEngN))
	return g
}

// ComputeUpload counts uploads per UTC weekday and hour and the mean gap
// between consecutive uploads.
func ComputeUpload(videos []models.VideoRecord) Upload {
	var u Upload
	var dates []time.Time
	for _, v := range videos {
		s := parseVideo(v)
		if !s.hasDate {
			continue
		}
		u.ByWeekday[s.published.Weekday()]++
		u.ByHour[s.published.Hour()]++
		dates = append(dates, s.published)
	}
	if len(dates) == 0 {
		return u
	}

	u.TopDay = time.Weekday(argmax(u.ByWeekday[:])).String()
	u.TopHour = strconv.Itoa(argmax(u.ByHour[:])) + ":00 UTC"

	if len(dates) > 1 {
		slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
		span := dates[len(dates)-1].Sub(dates[0])
		u.UploadInterval = round2(span.Hours() / 24 / float64(len(dates)-1))
	}
	return u
}

// ComputeContentPerformance buckets videos by length (under 10 minutes,
// 10 to 20, 20 and over) and picks the bucket with the highest average views.
func ComputeContentPerformance(videos []models.VideoRecord) ContentPerformance {
	buckets := [3]LengthBucket{
		{Label: "under 10 min"},
		{Label: "10-20 min"},
		{Label: "over 20 min"},
	}
	var views [3]int64
	var engagement [3]float64
	var engaged [3]int

	for _, v := range videos {
		s := parseVideo(v)
		i := 2
		switch {
		case s.length < shortVideoLimit:
			i = 0
		case s.length < mediumVideoLimit:
			i = 1
		}
		buckets[i].Videos++
		views[i] += s.views
		if eng, ok := s.engagement(); ok {
			engagement[i] += eng
			engaged[i]++
		}
	}

	best := 0
	for i := range buckets {
		buckets[i].AvgViews = math.Round(mean(float64(views[i]), buckets[i].Videos))
		buckets[i].AvgEngagement = round1(mean(engagement[i], engaged[i]))
		if buckets[i].AvgViews > buckets[best].AvgViews {
			best = i
		}
	}

	return ContentPerformance{
		Short:  buckets[0],
		Medium: buckets[1],
		Long:   buckets[2],
		Best:   buckets[best],
	}
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func percentChange(recent, older float64, recentN, olderN int) float64 {
	if recentN == 0 || olderN == 0 || older == 0 {
		return 0
	}
	return (recent - older) / older * 100
}

func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
func round2(f float64) float64 { return math.Round(f*100) / 100 }

// TopVideos returns up to n videos ordered by view count, highest first.
func TopVideos(videos []models.VideoRecord, n int) []models.VideoRecord {
	top := slices.Clone(videos)
	slices.SortStableFunc(top, func(a, b models.VideoRecord) int {
		av, bv := parseCount(a.ViewCount), parseCount(b.ViewCount)
		switch {
		case av > bv:
			return -1
		case av < bv:
			return 1
		}
		return 0
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}
