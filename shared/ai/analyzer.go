package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"channel-insights/internal/models"
	"channel-insights/shared/config"
)

// ErrUnknownChartType is returned for a chart type with no prompt template.
var ErrUnknownChartType = errors.New("unknown chart type")

// ErrInvalidChartData is returned when chart data lacks a field its template uses.
var ErrInvalidChartData = errors.New("invalid chart data")

const invalidResponseMessage = "invalid response format from model"

// Summarizer turns comment sets and chart metrics into model-written analysis.
type Summarizer struct {
	generator Generator
	prompts   *Prompts
	cfg       config.AIConfig

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSummarizer(generator Generator, prompts *Prompts, cfg config.AIConfig) *Summarizer {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 100
	}
	if cfg.MaxCommentLength <= 0 {
		cfg.MaxCommentLength = 200
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Summarizer{
		generator: generator,
		prompts:   prompts,
		cfg:       cfg,
		rng:       rand.New(rand.NewPCG(uint64(seed), uint64(seed>>1))),
	}
}

// Prepare builds the prompt comment block: exact duplicates dropped keeping the
// first occurrence, at most SampleSize comments kept in their original order,
// each cut to MaxCommentLength characters with "..." appended, one per line.
// Line breaks inside a comment are flattened after deduplication, so every
// distinct comment still gets its own line.
func (s *Summarizer) Prepare(texts []string) string {
	seen := make(map[string]struct{}, len(texts))
	unique := make([]string, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		unique = append(unique, text)
	}

	sampled := s.sample(unique)
	for i, text := range sampled {
		sampled[i] = truncateString(flattenLines(text), s.cfg.MaxCommentLength)
	}
	return strings.Join(sampled, "\n")
}

func (s *Summarizer) sample(texts []string) []string {
	if len(texts) <= s.cfg.SampleSize {
		return texts
	}

	s.mu.Lock()
	picked := s.rng.Perm(len(texts))[:s.cfg.SampleSize]
	s.mu.Unlock()

	slices.Sort(picked)
	out := make([]string, len(picked))
	for i, idx := range picked {
		out[i] = texts[idx]
	}
	return out
}

// AnalyzeComments asks the model for a structured summary of texts. It never
// fails: an empty input yields EmptyAnalysis without a model call, and any
// model or parse failure yields ErrorAnalysis.
func (s *Summarizer) AnalyzeComments(ctx context.Context, texts []string) models.AnalysisResult {
	if len(texts) == 0 {
		return models.EmptyAnalysis()
	}

	block := s.Prepare(texts)
	if block == "" {
		return models.EmptyAnalysis()
	}

	prompt, err := s.prompts.AnalysisPrompt(block)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build analysis prompt")
		return models.ErrorAnalysis(err.Error())
	}

	response, err := s.generator.Generate(ctx, Request{
		Model:           s.cfg.Model,
		System:          s.prompts.AnalysisSystem,
		Prompt:          prompt,
		Temperature:     s.cfg.AnalysisTemperature,
		MaxOutputTokens: s.cfg.AnalysisMaxTokens,
		JSON:            true,
	})
	if err != nil {
		log.Error().Err(err).Int("comment_count", len(texts)).Msg("Comment analysis failed")
		return models.ErrorAnalysis(err.Error())
	}

	result, err := parseAnalysisResponse(response)
	if err != nil {
		log.Warn().Err(err).Str("response", truncateString(response, 300)).Msg("Could not parse comment analysis")
		return models.ErrorAnalysis(invalidResponseMessage)
	}

	log.Info().
		Int("comment_count", len(texts)).
		Int("keywords", len(result.Keywords)).
		Float64("positive", result.Sentiment.Positive).
		Msg("Comment analysis complete")
	return result
}

// AnalyzeChartData asks for a one-sentence commentary on one chart's metrics.
func (s *Summarizer) AnalyzeChartData(ctx context.Context, chartType models.ChartType, data map[string]any) (string, error) {
	if !chartType.Valid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownChartType, chartType)
	}

	prompt, err := s.prompts.ChartPrompt(chartType, data)
	if err != nil {
		return "", err
	}

	response, err := s.generator.Generate(ctx, Request{
		Model:           s.cfg.ChartModel,
		System:          s.prompts.ChartSystem,
		Prompt:          prompt,
		Temperature:     s.cfg.ChartTemperature,
		MaxOutputTokens: s.cfg.ChartMaxTokens,
		DisableThinking: true,
	})
	if err != nil {
		log.Error().Err(err).Str("chart_type", string(chartType)).Msg("Chart analysis failed")
		return "", fmt.Errorf("failed to analyze %s chart: %w", chartType, err)
	}

	return strings.TrimSpace(response), nil
}

func parseAnalysisResponse(response string) (models.AnalysisResult, error) {
	response = stripFences(response)

	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx < startIdx {
		return models.AnalysisResult{}, fmt.Errorf("no JSON object found in response")
	}
	jsonStr := response[startIdx : endIdx+1]

	var result struct {
		models.AnalysisResult
		Sentiment *models.Sentiment `json:"sentiment"`
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		sanitized := sanitizeJSON(jsonStr)
		if sanitizedErr := json.Unmarshal([]byte(sanitized), &result); sanitizedErr != nil {
			return models.AnalysisResult{}, fmt.Errorf("failed to unmarshal analysis JSON: %w (sanitized version also failed: %v)", err, sanitizedErr)
		}
		log.Warn().Msg("Had to sanitize malformed analysis JSON")
	}

	if result.Sentiment == nil {
		return models.AnalysisResult{}, fmt.Errorf("analysis JSON has no sentiment object")
	}

	analysis := result.AnalysisResult
	analysis.Sentiment = *result.Sentiment
	analysis.Normalize()
	return analysis, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// sanitizeJSON escapes stray quotes inside single-line string values, the
// most common way model output breaks JSON.
func sanitizeJSON(jsonStr string) string {
	lines := strings.Split(jsonStr, "\n")
	sanitized := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		colonIdx := strings.Index(line, ":")
		if colonIdx != -1 && strings.Contains(line, "\"") {
			beforeColon := line[:colonIdx+1]
			afterColon := strings.TrimSpace(line[colonIdx+1:])

			if strings.HasPrefix(afterColon, "\"") {
				lastQuoteIdx := strings.LastIndex(afterColon, "\"")
				if lastQuoteIdx > 0 {
					content := afterColon[1:lastQuoteIdx]
					content = strings.ReplaceAll(content, `\"`, `"`)
					content = strings.ReplaceAll(content, `"`, `\"`)
					line = beforeColon + " \"" + content + "\"" + afterColon[lastQuoteIdx+1:]
				}
			}
		}

		sanitized = append(sanitized, line)
	}

	return strings.Join(sanitized, "\n")
}

func flattenLines(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }), " ")
}

func truncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength]) + "..."
}
