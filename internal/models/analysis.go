package models

import "time"

// FeedbackTypeError marks the single feedback entry of an error analysis.
const FeedbackTypeError = "error"

type Keyword struct {
	Word     string   `json:"word"`
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

type SentimentExamples struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
	Neutral  []string `json:"neutral"`
}

// Sentiment holds bucket percentages (0-100) and example comments per bucket.
type Sentiment struct {
	Positive float64           `json:"positive"`
	Negative float64           `json:"negative"`
	Neutral  float64           `json:"neutral"`
	Examples SentimentExamples `json:"examples"`
}

type Category struct {
	Name     string   `json:"name"`
	Examples []string `json:"examples"`
}

type Feedback struct {
	Type     string   `json:"type"`
	Content  string   `json:"content"`
	Examples []string `json:"examples"`
}

// AnalysisResult is the structured summary of a set of comments. Success, empty
// and error results all share this shape.
type AnalysisResult struct {
	Keywords   []Keyword  `json:"keywords"`
	Sentiment  Sentiment  `json:"sentiment"`
	Categories []Category `json:"categories"`
	Feedback   []Feedback `json:"feedback"`
}

// EmptyAnalysis is the result for an empty comment set: fully neutral, nothing else.
func EmptyAnalysis() AnalysisResult {
	return AnalysisResult{
		Keywords: []Keyword{},
		Sentiment: Sentiment{
			Neutral: 100,
			Examples: SentimentExamples{
				Positive: []string{},
				Negative: []string{},
				Neutral:  []string{},
			},
		},
		Categories: []Category{},
		Feedback:   []Feedback{},
	}
}

// ErrorAnalysis is EmptyAnalysis carrying msg as its only feedback entry.
func ErrorAnalysis(msg string) AnalysisResult {
	result := EmptyAnalysis()
	result.Feedback = []Feedback{{Type: FeedbackTypeError, Content: msg, Examples: []string{}}}
	return result
}

// IsError reports whether r is an error analysis.
func (r AnalysisResult) IsError() bool {
	return len(r.Feedback) == 1 && r.Feedback[0].Type == FeedbackTypeError
}

// Normalize replaces nil collections with empty ones so the JSON shape never
// contains nulls.
func (r *AnalysisResult) Normalize() {
	if r.Keywords == nil {
		r.Keywords = []Keyword{}
	}
	for i := range r.Keywords {
		if r.Keywords[i].Examples == nil {
			r.Keywords[i].Examples = []string{}
		}
	}
	if r.Categories == nil {
		r.Categories = []Category{}
	}
	for i := range r.Categories {
		if r.Categories[i].Examples == nil {
			r.Categories[i].Examples = []string{}
		}
	}
	if r.Feedback == nil {
		r.Feedback = []Feedback{}
	}
	for i := range r.Feedback {
		if r.Feedback[i].Examples == nil {
			r.Feedback[i].Examples = []string{}
		}
	}
	ex := &r.Sentiment.Examples
	if ex.Positive == nil {
		ex.Positive = []string{}
	}
	if ex.Negative == nil {
		ex.Negative = []string{}
	}
	if ex.Neutral == nil {
		ex.Neutral = []string{}
	}
}

// ChartType selects a chart insight prompt.
type ChartType string

const (
	ChartEngagement         ChartType = "engagement"
	ChartGrowth             ChartType = "growth"
	ChartUpload             ChartType = "upload"
	ChartContentPerformance ChartType = "content_performance"
	ChartCoreFans           ChartType = "core_fans"
)

// ChartTypes lists every supported chart type in display order.
var ChartTypes = []ChartType{
	ChartEngagement,
	ChartGrowth,
	ChartUpload,
	ChartContentPerformance,
	ChartCoreFans,
}

// Valid reports whether t is one of ChartTypes.
func (t ChartType) Valid() bool {
	for _, known := range ChartTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ChartInsight is a one-sentence model commentary for a chart's data.
type ChartInsight struct {
	Type     ChartType      `json:"chartType"`
	Data     map[string]any `json:"data"`
	Analysis string         `json:"analysis,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// DigestReport is one scheduled sweep result for a channel.
type DigestReport struct {
	ID           string          `json:"id"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Channel      *ChannelSummary `json:"channel"`
	VideoCount   int             `json:"video_count"`
	CommentCount int             `json:"comment_count"`
	Analysis     AnalysisResult  `json:"analysis"`
	Insights     []ChartInsight  `json:"insights"`
	TopVideos    []VideoRecord   `json:"top_videos"`
}
