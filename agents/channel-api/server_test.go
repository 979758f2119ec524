package channelapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-insights/internal/models"
	"channel-insights/shared/ai"
	"channel-insights/shared/config"
	"channel-insights/shared/youtube"
)

type fakeChannels struct {
	mu sync.Mutex

	channel         *models.ChannelSummary
	videos          []models.VideoRecord
	videosErr       error
	videoComments   map[string][]models.CommentRecord
	channelComments []models.CommentRecord

	videoLimits   []int
	commentLimits []int
	sweeps        int
	sweptVideos   []int
}

func (f *fakeChannels) GetChannelInfo(_ context.Context, channelID string) (*models.ChannelSummary, error) {
	if f.channel == nil || f.channel.ID != channelID {
		return nil, youtube.ErrChannelNotFound
	}
	return f.channel, nil
}

func (f *fakeChannels) GetChannelVideos(_ context.Context, channelID string, maxResults int) ([]models.VideoRecord, error) {
	f.mu.Lock()
	f.videoLimits = append(f.videoLimits, maxResults)
	f.mu.Unlock()
	if f.videosErr != nil {
		return nil, f.videosErr
	}
	if f.channel == nil || f.channel.ID != channelID {
		return nil, youtube.ErrChannelNotFound
	}
	return f.videos, nil
}

func (f *fakeChannels) GetVideoComments(_ context.Context, videoID string, maxResults int) []models.CommentRecord {
	f.mu.Lock()
	f.commentLimits = append(f.commentLimits, maxResults)
	f.mu.Unlock()
	comments := f.videoComments[videoID]
	if comments == nil {
		return []models.CommentRecord{}
	}
	return comments
}

func (f *fakeChannels) GetChannelComments(_ context.Context, _ string) []models.CommentRecord {
	f.mu.Lock()
	f.sweeps++
	f.mu.Unlock()
	if f.channelComments == nil {
		return []models.CommentRecord{}
	}
	return f.channelComments
}

func (f *fakeChannels) SweepComments(_ context.Context, _ string, videos []models.VideoRecord) []models.CommentRecord {
	f.mu.Lock()
	f.sweeps++
	f.sweptVideos = append(f.sweptVideos, len(videos))
	f.mu.Unlock()
	if f.channelComments == nil {
		return []models.CommentRecord{}
	}
	return f.channelComments
}

type fakeAnalyzer struct {
	mu         sync.Mutex
	result     models.AnalysisResult
	chartText  string
	chartErr   error
	texts      [][]string
	chartCalls []models.ChartType
	chartData  []map[string]any
}

func (f *fakeAnalyzer) AnalyzeComments(_ context.Context, texts []string) models.AnalysisResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, texts)
	return f.result
}

func (f *fakeAnalyzer) AnalyzeChartData(_ context.Context, chartType models.ChartType, data map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chartCalls = append(f.chartCalls, chartType)
	f.chartData = append(f.chartData, data)
	return f.chartText, f.chartErr
}

func testChannels() *fakeChannels {
	return &fakeChannels{
		channel: &models.ChannelSummary{ID: "UC1", Title: "Test Channel", SubscriberCount: "10"},
		videos: []models.VideoRecord{
			{ID: "v1", Title: "First", ViewCount: "100", LikeCount: "10", CommentCount: "2", Duration: "PT4M", PublishedAt: "2024-03-01T10:00:00Z"},
			{ID: "v2", Title: "Second", ViewCount: "300", LikeCount: "6", CommentCount: "0", Duration: "PT30M", PublishedAt: "2024-03-02T10:00:00Z"},
		},
		videoComments: map[string][]models.CommentRecord{
			"v1": {{Text: "great", Author: "a"}, {Text: "meh", Author: "b"}},
		},
		channelComments: []models.CommentRecord{
			{Text: "great", Author: "a", VideoID: "v1", VideoTitle: "First"},
		},
	}
}

func newTestServer(t *testing.T, channels *fakeChannels, analyzer *fakeAnalyzer, rateLimit int) *Server {
	t.Helper()
	s := NewServer(config.ServerConfig{
		Port:               0,
		CORSOrigins:        "http://localhost:3000",
		RateLimitPerMinute: rateLimit,
	}, channels, analyzer, nil)
	s.now = func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }
	return s
}

func do(t *testing.T, s *Server, method, target, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func detailOf(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Detail
}

func TestGetChannel(t *testing.T) {
	s := newTestServer(t, testChannels(), &fakeAnalyzer{}, 0)

	status, body := do(t, s, http.MethodGet, "/api/channel/UC1", "")
	require.Equal(t, http.StatusOK, status)

	var channel models.ChannelSummary
	require.NoError(t, json.Unmarshal(body, &channel))
	assert.Equal(t, "Test Channel", channel.Title)
	assert.Equal(t, "10", channel.SubscriberCount)

	status, body = do(t, s, http.MethodGet, "/api/channel/UCmissing", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Channel not found", detailOf(t, body))
}

func TestGetChannelVideos(t *testing.T) {
	channels := testChannels()
	s := newTestServer(t, channels, &fakeAnalyzer{}, 0)

	status, body := do(t, s, http.MethodGet, "/api/channel/UC1/videos?maxResults=5", "")
	require.Equal(t, http.StatusOK, status)

	var videos []models.VideoRecord
	require.NoError(t, json.Unmarshal(body, &videos))
	assert.Len(t, videos, 2)
	assert.Equal(t, "v1", videos[0].ID)

	status, _ = do(t, s, http.MethodGet, "/api/channel/UC1/videos", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []int{5, 0}, channels.videoLimits)

	status, body = do(t, s, http.MethodGet, "/api/channel/UC1/videos?maxResults=zero", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, detailOf(t, body), "maxResults")
}

func TestGetChannelVideosNotFound(t *testing.T) {
	tests := []struct {
		name     string
		channels *fakeChannels
	}{
		{"upstream error", &fakeChannels{channel: &models.ChannelSummary{ID: "UC1"}, videosErr: errors.New("quota")}},
		{"no uploads", &fakeChannels{channel: &models.ChannelSummary{ID: "UC1"}, videos: []models.VideoRecord{}}},
		{"unknown channel", &fakeChannels{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.channels, &fakeAnalyzer{}, 0)
			status, _ := do(t, s, http.MethodGet, "/api/channel/UC1/videos", "")
			assert.Equal(t, http.StatusNotFound, status)
		})
	}
}

func TestGetVideoComments(t *testing.T) {
	channels := testChannels()
	s := newTestServer(t, channels, &fakeAnalyzer{}, 0)

	status, body := do(t, s, http.MethodGet, "/api/videos/v1/comments", "")
	require.Equal(t, http.StatusOK, status)

	var comments []models.CommentRecord
	require.NoError(t, json.Unmarshal(body, &comments))
	assert.Len(t, comments, 2)

	status, _ = do(t, s, http.MethodGet, "/api/videos/v1/comments?maxResults=20", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []int{100, 20}, channels.commentLimits)

	status, body = do(t, s, http.MethodGet, "/api/videos/silent/comments", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Comments not found", detailOf(t, body))
}

func TestGetVideoAnalysis(t *testing.T) {
	analyzer := &fakeAnalyzer{result: models.AnalysisResult{
		Keywords:  []models.Keyword{{Word: "great", Count: 1, Examples: []string{"great"}}},
		Sentiment: models.Sentiment{Positive: 50, Neutral: 50},
	}}
	s := newTestServer(t, testChannels(), analyzer, 0)

	status, body := do(t, s, http.MethodGet, "/api/videos/v1/analysis", "")
	require.Equal(t, http.StatusOK, status)

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 50.0, result.Sentiment.Positive)
	require.Len(t, analyzer.texts, 1)
	assert.Equal(t, []string{"great", "meh"}, analyzer.texts[0])

	status, _ = do(t, s, http.MethodGet, "/api/videos/none/analysis", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Len(t, analyzer.texts, 1, "no analysis without comments")
}

func TestGetVideoAnalysisErrorVariantIsOK(t *testing.T) {
	analyzer := &fakeAnalyzer{result: models.ErrorAnalysis("invalid response format from model")}
	s := newTestServer(t, testChannels(), analyzer, 0)

	status, body := do(t, s, http.MethodGet, "/api/videos/v1/analysis", "")
	require.Equal(t, http.StatusOK, status)

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.True(t, result.IsError())
}

func TestGetChannelComments(t *testing.T) {
	s := newTestServer(t, testChannels(), &fakeAnalyzer{}, 0)

	status, body := do(t, s, http.MethodGet, "/api/channel/UC1/comments", "")
	require.Equal(t, http.StatusOK, status)

	var comments []models.CommentRecord
	require.NoError(t, json.Unmarshal(body, &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "v1", comments[0].VideoID)
	assert.Equal(t, "First", comments[0].VideoTitle)

	empty := newTestServer(t, &fakeChannels{}, &fakeAnalyzer{}, 0)
	status, _ = do(t, empty, http.MethodGet, "/api/channel/UC1/comments", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAnalyzeChart(t *testing.T) {
	analyzer := &fakeAnalyzer{chartText: "Strong engagement."}
	s := newTestServer(t, testChannels(), analyzer, 0)

	status, body := do(t, s, http.MethodPost, "/api/analysis/chart",
		`{"chartType":"engagement","data":{"like_ratio":4.5,"comment_ratio":0.3,"total_engagement":4.8}}`)
	require.Equal(t, http.StatusOK, status)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "Strong engagement.", payload["analysis"])
	assert.Equal(t, []models.ChartType{models.ChartEngagement}, analyzer.chartCalls)
	assert.Equal(t, 4.5, analyzer.chartData[0]["like_ratio"])

	status, _ = do(t, s, http.MethodPost, "/api/analysis/chart", `{"chart_type":"growth","data":{}}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.ChartGrowth, analyzer.chartCalls[1])
}

func TestAnalyzeChartErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		chartErr error
		want     int
	}{
		{"unknown type", `{"chartType":"subscribers","data":{}}`, nil, http.StatusBadRequest},
		{"missing type", `{"data":{}}`, nil, http.StatusBadRequest},
		{"malformed body", `{"chartType":`, nil, http.StatusBadRequest},
		{"missing field", `{"chartType":"growth","data":{}}`, ai.ErrInvalidChartData, http.StatusBadRequest},
		{"model failure", `{"chartType":"growth","data":{}}`, errors.New("quota"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{chartErr: tt.chartErr}
			s := newTestServer(t, testChannels(), analyzer, 0)

			status, body := do(t, s, http.MethodPost, "/api/analysis/chart", tt.body)
			assert.Equal(t, tt.want, status)
			assert.NotEmpty(t, detailOf(t, body))
		})
	}
}

func TestGetChannelInsights(t *testing.T) {
	channels := testChannels()
	analyzer := &fakeAnalyzer{chartText: "Looks healthy."}
	s := newTestServer(t, channels, analyzer, 0)

	status, body := do(t, s, http.MethodGet, "/api/channel/UC1/insights", "")
	require.Equal(t, http.StatusOK, status)

	var payload struct {
		Channel models.ChannelSummary `json:"channel"`
		Report  struct {
			Engagement struct {
				Videos int `json:"videos"`
			} `json:"engagement"`
			Titles struct {
				Short  struct{ Videos int } `json:"short"`
				Medium struct{ Videos int } `json:"medium"`
				Long   struct{ Videos int } `json:"long"`
			} `json:"titles"`
		} `json:"report"`
		Charts []models.ChartInsight `json:"charts"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "UC1", payload.Channel.ID)
	assert.Equal(t, 2, payload.Report.Engagement.Videos)
	titles := payload.Report.Titles
	assert.Equal(t, len(channels.videos), titles.Short.Videos+titles.Medium.Videos+titles.Long.Videos)
	require.Len(t, payload.Charts, len(models.ChartTypes))
	assert.Empty(t, payload.Charts[0].Analysis)
	assert.Empty(t, analyzer.chartCalls)
	assert.Equal(t, 1, channels.sweeps)
	assert.Len(t, channels.videoLimits, 1, "uploads are listed once per insights request")
	assert.Equal(t, []int{len(channels.videos)}, channels.sweptVideos)

	status, body = do(t, s, http.MethodGet, "/api/channel/UC1/insights?analyze=true&comments=false", "")
	require.Equal(t, http.StatusOK, status)
	payload.Charts = nil
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "Looks healthy.", payload.Charts[0].Analysis)
	assert.Len(t, analyzer.chartCalls, len(models.ChartTypes))
	assert.Equal(t, 1, channels.sweeps, "comment sweep skipped")

	status, _ = do(t, s, http.MethodGet, "/api/channel/UCmissing/insights", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testChannels(), &fakeAnalyzer{}, 0)

	status, body := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, testChannels(), &fakeAnalyzer{}, 2)

	for i := 0; i < 2; i++ {
		status, _ := do(t, s, http.MethodGet, "/api/channel/UC1", "")
		require.Equal(t, http.StatusOK, status)
	}
	status, body := do(t, s, http.MethodGet, "/api/channel/UC1", "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.NotEmpty(t, detailOf(t, body))

	status, _ = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status, "health is not rate limited")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, testChannels(), &fakeAnalyzer{}, 0)

	req := httptest.NewRequest(http.MethodOptions, "/api/analysis/chart", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, testChannels(), &fakeAnalyzer{}, 0)

	status, body := do(t, s, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, detailOf(t, body))
}
