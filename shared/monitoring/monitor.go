package monitoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Monitor tracks the outcome of the latest scheduled run. Partial failures are
// logged but do not change health.
type Monitor struct {
	mu             sync.RWMutex
	lastRunSuccess bool
	lastRunTime    time.Time
	lastSummary    string
	lastError      string
	runs           int
	failures       int
	now            func() time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{now: time.Now}
}

func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = true
	m.lastRunTime = m.now()
	m.lastSummary = summary
	m.lastError = ""
	m.runs++
	m.mu.Unlock()

	log.Info().Str("summary", summary).Dur("duration", duration).Msg("Run completed successfully")
}

func (m *Monitor) RecordPartialFailure(err error, duration time.Duration) {
	log.Warn().Err(err).Dur("duration", duration).Msg("Partial failure")
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = false
	m.lastRunTime = m.now()
	m.lastError = err.Error()
	m.runs++
	m.failures++
	at := m.lastRunTime
	m.mu.Unlock()

	log.Error().Err(err).Dur("duration", duration).Time("at", at).Msg("Critical failure")
}

// IsHealthy is true before the first run and after any successful run.
func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return true
	}
	return m.lastRunSuccess
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return "No runs yet"
	}
	if m.lastRunSuccess {
		return fmt.Sprintf("Last run: %s (%s)", m.lastRunTime.Format("Jan 2 15:04"), m.lastSummary)
	}
	return fmt.Sprintf("Last run failed: %s (%s)", m.lastRunTime.Format("Jan 2 15:04"), m.lastError)
}

// Status is the JSON snapshot served by /status.
type Status struct {
	Healthy   bool       `json:"healthy"`
	Summary   string     `json:"summary"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Runs      int        `json:"runs"`
	Failures  int        `json:"failures"`
}

func (m *Monitor) Status() Status {
	summary := m.GetStatusSummary()
	healthy := m.IsHealthy()

	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{
		Healthy:   healthy,
		Summary:   summary,
		LastError: m.lastError,
		Runs:      m.runs,
		Failures:  m.failures,
	}
	if !m.lastRunTime.IsZero() {
		t := m.lastRunTime
		s.LastRun = &t
	}
	return s
}
