package ai

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"channel-insights/internal/models"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompts is the compiled prompt catalogue.
type Prompts struct {
	AnalysisSystem string
	ChartSystem    string

	analysis *template.Template
	charts   map[models.ChartType]*template.Template
}

type promptFile struct {
	AnalysisSystem string                      `yaml:"analysis_system"`
	AnalysisUser   string                      `yaml:"analysis_user"`
	ChartSystem    string                      `yaml:"chart_system"`
	Charts         map[models.ChartType]string `yaml:"charts"`
}

var templateFuncs = template.FuncMap{
	"num": formatNumber,
	"dec": formatDecimal,
}

// DefaultPrompts returns the built-in catalogue.
func DefaultPrompts() (*Prompts, error) {
	return ParsePrompts(defaultPrompts)
}

// LoadPrompts reads a catalogue from disk, or the built-in one when path is empty.
func LoadPrompts(path string) (*Prompts, error) {
	if path == "" {
		return DefaultPrompts()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file %s: %w", path, err)
	}
	return ParsePrompts(data)
}

// ParsePrompts compiles a YAML catalogue. Every chart type must have a template.
func ParsePrompts(data []byte) (*Prompts, error) {
	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}
	if strings.TrimSpace(file.AnalysisUser) == "" {
		return nil, fmt.Errorf("prompts: analysis_user is required")
	}

	analysis, err := compile("analysis", file.AnalysisUser)
	if err != nil {
		return nil, err
	}

	p := &Prompts{
		AnalysisSystem: strings.TrimSpace(file.AnalysisSystem),
		ChartSystem:    strings.TrimSpace(file.ChartSystem),
		analysis:       analysis,
		charts:         make(map[models.ChartType]*template.Template, len(models.ChartTypes)),
	}

	for _, chartType := range models.ChartTypes {
		text, ok := file.Charts[chartType]
		if !ok {
			return nil, fmt.Errorf("prompts: missing template for chart type %q", chartType)
		}
		tmpl, err := compile(string(chartType), text)
		if err != nil {
			return nil, err
		}
		p.charts[chartType] = tmpl
	}

	return p, nil
}

func compile(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(templateFuncs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("prompts: invalid %s template: %w", name, err)
	}
	return tmpl, nil
}

// AnalysisPrompt renders the comment analysis prompt around the prepared comment block.
func (p *Prompts) AnalysisPrompt(comments string) (string, error) {
	return render(p.analysis, struct{ Comments string }{Comments: comments})
}

// ChartPrompt renders the template for chartType with the caller's metrics.
func (p *Prompts) ChartPrompt(chartType models.ChartType, data map[string]any) (string, error) {
	tmpl, ok := p.charts[chartType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownChartType, chartType)
	}
	prompt, err := render(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidChartData, err)
	}
	return prompt, nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(sb.String()), nil
}

func formatNumber(v any) string {
	f, ok := toFloat(v)
	if !ok {
		return fmt.Sprint(v)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatDecimal(places int, v any) string {
	f, ok := toFloat(v)
	if !ok {
		return fmt.Sprint(v)
	}
	return strconv.FormatFloat(f, 'f', places, 64)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
